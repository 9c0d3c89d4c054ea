package grf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/xerrors"
)

// table2Record is the fixed 17-byte per-entry record that follows each
// NUL-terminated path in a 2.0 file table. Per an observed compatibility
// choice in the original codec, SizeCompressedAligned is emitted equal to
// SizeCompressed (not the entry's actual aligned size): the 2.0 reader
// treats the two fields identically, so correcting this would be a format
// change, not a bugfix (see DESIGN.md Open Question 1).
type table2Record struct {
	SizeCompressed        uint32
	SizeCompressedAligned uint32
	Size                  uint32
	EntryType             uint8
	OffsetRelative        uint32
}

// buildTable2 serializes the 2.0 file table (uncompressed form): for each
// entry, a NUL-terminated Windows-1252 path followed by its 17-byte
// record. Iteration order is unspecified; the reader does not require
// sorting.
func (b *Builder) buildTable2() ([]byte, error) {
	var table bytes.Buffer
	var outerErr error
	b.entries.iter(func(path string, e FileEntry) {
		if outerErr != nil {
			return
		}
		name, err := toWindows1252(path)
		if err != nil {
			outerErr = err
			return
		}
		offsetRel := e.Offset - uint32(b.startOffset) - uint32(headerSize)
		table.Write(name)
		table.WriteByte(0)
		if err := binary.Write(&table, binary.LittleEndian, table2Record{
			SizeCompressed:        e.SizeCompressed,
			SizeCompressedAligned: e.SizeCompressed,
			Size:                  e.Size,
			EntryType:             uint8(e.EntryType),
			OffsetRelative:        offsetRel,
		}); err != nil {
			outerErr = xerrors.Errorf("writing table record for %q: %w", path, err)
		}
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return table.Bytes(), nil
}

// buildTable1 serializes the 1.x file table: for each entry, a
// length-prefixed record carrying the obfuscated name and the obfuscated
// size fields described in spec.md §4.4. The table is not compressed.
func (b *Builder) buildTable1() ([]byte, error) {
	var table bytes.Buffer
	var outerErr error
	b.entries.iter(func(path string, e FileEntry) {
		if outerErr != nil {
			return
		}
		name, err := toWindows1252(path)
		if err != nil {
			outerErr = err
			return
		}
		obfName := obfuscateName(name)

		pathSizePadded := uint32(len(obfName) + 6)
		binary.Write(&table, binary.LittleEndian, pathSizePadded)
		table.Write([]byte{0, 0})
		table.Write(obfName)
		table.Write([]byte{0, 0, 0, 0})

		sizeTotEnc := e.SizeCompressed + e.Size + 0x02CB
		binary.Write(&table, binary.LittleEndian, sizeTotEnc)

		sizeAlignedEnc := e.SizeCompressedAligned + 0x92CB
		binary.Write(&table, binary.LittleEndian, sizeAlignedEnc)

		binary.Write(&table, binary.LittleEndian, e.Size)
		table.WriteByte(uint8(e.EntryType))

		offsetRel := e.Offset - uint32(b.startOffset) - uint32(headerSize)
		binary.Write(&table, binary.LittleEndian, offsetRel)
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return table.Bytes(), nil
}

// writeFileTable emits the versioned file table and returns its
// allocator-relative offset (i.e. relative to startOffset), ready to be
// recorded in the header.
func (b *Builder) writeFileTable() (uint64, error) {
	switch b.version.Major {
	case 2:
		return b.writeFileTable2()
	case 1:
		return b.writeFileTable1()
	default:
		return 0, xerrors.Errorf("%w: major %d", ErrInvalidVersion, b.version.Major)
	}
}

func (b *Builder) writeFileTable2() (uint64, error) {
	table, err := b.buildTable2()
	if err != nil {
		return 0, err
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(table); err != nil {
		return 0, xerrors.Errorf("compressing file table: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, xerrors.Errorf("compressing file table: %w", err)
	}

	compressedLen, err := toUint32(int64(compressed.Len()))
	if err != nil {
		return 0, xerrors.Errorf("%w: compressed table: %v", ErrSerialization, err)
	}
	uncompressedLen, err := toUint32(int64(len(table)))
	if err != nil {
		return 0, xerrors.Errorf("%w: uncompressed table: %v", ErrSerialization, err)
	}

	blockLen := uint64(compressed.Len() + 8)
	offset, err := b.chunks.alloc(blockLen)
	if err != nil {
		return 0, xerrors.Errorf("allocating file table: %w", err)
	}

	if _, err := b.w.Seek(int64(b.startOffset)+int64(offset), io.SeekStart); err != nil {
		return 0, xerrors.Errorf("seeking to file table: %w", err)
	}
	if err := binary.Write(b.w, binary.LittleEndian, compressedLen); err != nil {
		return 0, xerrors.Errorf("writing file table header: %w", err)
	}
	if err := binary.Write(b.w, binary.LittleEndian, uncompressedLen); err != nil {
		return 0, xerrors.Errorf("writing file table header: %w", err)
	}
	if _, err := b.w.Write(compressed.Bytes()); err != nil {
		return 0, xerrors.Errorf("writing file table: %w", err)
	}
	return offset, nil
}

func (b *Builder) writeFileTable1() (uint64, error) {
	table, err := b.buildTable1()
	if err != nil {
		return 0, err
	}

	tableLen := uint64(len(table))
	offset, err := b.chunks.alloc(tableLen)
	if err != nil {
		return 0, xerrors.Errorf("allocating file table: %w", err)
	}

	if _, err := b.w.Seek(int64(b.startOffset)+int64(offset), io.SeekStart); err != nil {
		return 0, xerrors.Errorf("seeking to file table: %w", err)
	}
	if _, err := b.w.Write(table); err != nil {
		return 0, xerrors.Errorf("writing file table: %w", err)
	}
	return offset, nil
}

// finalize writes the file table and then rewrites the fixed header at
// startOffset with the table's relative offset and the biased entry count.
// It is the last thing Finish does before the archive is considered
// complete; nothing may be added or removed from entries/chunks after this
// call succeeds.
func (b *Builder) finalize() error {
	tableOffset, err := b.writeFileTable()
	if err != nil {
		return xerrors.Errorf("writing file table: %w", err)
	}

	tableOffsetRelative, err := toUint32(int64(tableOffset) - headerSize)
	if err != nil {
		return xerrors.Errorf("%w: file table offset: %v", ErrSerialization, err)
	}

	if _, err := b.w.Seek(int64(b.startOffset), io.SeekStart); err != nil {
		return xerrors.Errorf("seeking to header: %w", err)
	}
	if err := writeHeader(b.w, tableOffsetRelative, b.entries.len(), b.version); err != nil {
		return xerrors.Errorf("writing header: %w", err)
	}
	return nil
}
