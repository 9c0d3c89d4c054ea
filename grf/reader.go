package grf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/xerrors"
)

// Reader opens an existing GRF archive for enumeration and content
// retrieval. It is not a general-purpose random-access library: it
// implements exactly what Builder.Open and round-trip verification need
// (header parsing, table parsing for both format families, zlib inflate,
// and 1.x name/content de-obfuscation), nothing more.
type Reader struct {
	r       io.ReadSeeker
	version Version
	entries *entryIndex
}

// OpenReader parses the header and file table of an existing archive
// readable through r. r must also support Seek since both table families
// are located by absolute offset rather than read in a single pass.
func OpenReader(r io.ReadSeeker) (*Reader, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, xerrors.Errorf("seeking to header: %w", err)
	}
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	v := h.version()
	if !v.valid() {
		return nil, xerrors.Errorf("%w: major %d", ErrInvalidVersion, v.Major)
	}

	tableOffset := headerSize + int64(h.FileTableOffset)
	if _, err := r.Seek(tableOffset, io.SeekStart); err != nil {
		return nil, xerrors.Errorf("seeking to file table: %w", err)
	}

	var entries *entryIndex
	switch v.Major {
	case 2:
		entries, err = readTable2(r, v, uint64(tableOffset))
	case 1:
		entries, err = readTable1(r, v, uint64(tableOffset))
	default:
		return nil, xerrors.Errorf("%w: major %d", ErrInvalidVersion, v.Major)
	}
	if err != nil {
		return nil, err
	}

	return &Reader{r: r, version: v, entries: entries}, nil
}

// Version reports the archive's on-disk format family.
func (rd *Reader) Version() Version { return rd.version }

// Entries returns every (path, descriptor) pair known to the archive.
// Iteration order is unspecified.
func (rd *Reader) Entries() map[string]FileEntry {
	out := make(map[string]FileEntry, rd.entries.len())
	rd.entries.iter(func(path string, e FileEntry) {
		out[path] = e
	})
	return out
}

// GetFileEntry returns the descriptor stored for path, if any.
func (rd *Reader) GetFileEntry(path string) (FileEntry, bool) {
	return rd.entries.get(path)
}

// RawEntryData returns the on-disk bytes of path's payload exactly as
// stored: still compressed, and for 1.x archives still padded and
// obfuscated. This is what ImportRawFromGRF's fast path copies verbatim.
func (rd *Reader) RawEntryData(path string) ([]byte, error) {
	e, ok := rd.entries.get(path)
	if !ok {
		return nil, xerrors.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	buf := make([]byte, e.SizeCompressedAligned)
	if _, err := rd.r.Seek(int64(e.Offset), io.SeekStart); err != nil {
		return nil, xerrors.Errorf("seeking to %q: %w", path, err)
	}
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return nil, xerrors.Errorf("reading %q: %w", path, err)
	}
	return buf, nil
}

// FileContent returns path's fully decompressed (and, for 1.x, de-padded
// and de-obfuscated) content.
func (rd *Reader) FileContent(path string) ([]byte, error) {
	e, ok := rd.entries.get(path)
	if !ok {
		return nil, xerrors.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	raw, err := rd.RawEntryData(path)
	if err != nil {
		return nil, err
	}

	compressed := raw[:e.SizeCompressed]
	if rd.version.Obfuscated() {
		cycle := encryptionCycle(path, len(raw))
		padded := append([]byte(nil), raw...)
		deobfuscatePayload(padded, cycle)
		compressed = padded[:e.SizeCompressed]
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, xerrors.Errorf("inflating %q: %w", path, err)
	}
	defer zr.Close()
	content, err := io.ReadAll(zr)
	if err != nil {
		return nil, xerrors.Errorf("inflating %q: %w", path, err)
	}
	return content, nil
}

// occupiedRange is a payload's byte span relative to the archive's
// startOffset, used to reconstruct a free-space allocator when reopening
// an existing archive.
type occupiedRange struct {
	offset uint64
	length uint64
}

// chunksFromEntries reconstructs a free-space allocator for an archive
// whose occupied ranges are the fixed header plus the payloads described
// by entries, sitting at startOffset. The file table's own on-disk range
// is deliberately not reserved: Finish always rewrites the table from
// scratch, so the space it used to occupy is free to reuse.
func chunksFromEntries(entries *entryIndex, startOffset uint64) *freeList {
	ranges := []occupiedRange{{offset: 0, length: uint64(headerSize)}}
	entries.iter(func(_ string, e FileEntry) {
		ranges = append(ranges, occupiedRange{
			offset: uint64(e.Offset) - startOffset,
			length: uint64(e.SizeCompressedAligned),
		})
	})
	return rebuildFreeList(ranges)
}

// rebuildFreeList derives a free-space allocator from a set of occupied
// ranges: every gap between consecutive (or before the first) occupied
// range is free space, and the span past the last occupied range becomes
// the open-ended tail chunk.
func rebuildFreeList(ranges []occupiedRange) *freeList {
	sorted := append([]occupiedRange(nil), ranges...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].offset > sorted[j].offset; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	f := &freeList{}
	var cursor uint64
	for _, rg := range sorted {
		if rg.offset > cursor {
			f.chunks = append(f.chunks, chunk{offset: cursor, length: rg.offset - cursor})
		}
		if rg.offset+rg.length > cursor {
			cursor = rg.offset + rg.length
		}
	}
	f.chunks = append(f.chunks, chunk{offset: cursor, tail: true})
	return f
}

func readTable2(r io.ReadSeeker, v Version, tableOffset uint64) (*entryIndex, error) {
	var compressedLen, uncompressedLen uint32
	if err := binary.Read(r, binary.LittleEndian, &compressedLen); err != nil {
		return nil, xerrors.Errorf("reading file table header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &uncompressedLen); err != nil {
		return nil, xerrors.Errorf("reading file table header: %w", err)
	}

	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, xerrors.Errorf("reading file table: %w", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, xerrors.Errorf("inflating file table: %w", err)
	}
	defer zr.Close()
	table, err := io.ReadAll(zr)
	if err != nil {
		return nil, xerrors.Errorf("inflating file table: %w", err)
	}
	if uint32(len(table)) != uncompressedLen {
		return nil, xerrors.Errorf("%w: file table length mismatch", ErrSerialization)
	}

	entries := newEntryIndex()
	buf := bytes.NewReader(table)
	for buf.Len() > 0 {
		nameBytes, err := readCString(buf)
		if err != nil {
			return nil, xerrors.Errorf("reading file table entry name: %w", err)
		}
		var rec table2Record
		if err := binary.Read(buf, binary.LittleEndian, &rec); err != nil {
			return nil, xerrors.Errorf("reading file table entry record: %w", err)
		}
		path := fromWindows1252(nameBytes)
		entries.insert(path, FileEntry{
			Offset:                rec.OffsetRelative + uint32(headerSize),
			Size:                  rec.Size,
			SizeCompressed:        rec.SizeCompressed,
			SizeCompressedAligned: rec.SizeCompressedAligned,
			EntryType:             EntryType(rec.EntryType),
		})
	}
	return entries, nil
}

func readTable1(r io.ReadSeeker, v Version, tableOffset uint64) (*entryIndex, error) {
	entries := newEntryIndex()
	for {
		var pathSizePadded uint32
		if err := binary.Read(r, binary.LittleEndian, &pathSizePadded); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, xerrors.Errorf("reading file table entry header: %w", err)
		}

		var skip [2]byte
		if _, err := io.ReadFull(r, skip[:]); err != nil {
			return nil, xerrors.Errorf("reading file table entry: %w", err)
		}
		obfNameLen := int(pathSizePadded) - 6
		if obfNameLen < 0 {
			return nil, xerrors.Errorf("%w: negative obfuscated name length", ErrSerialization)
		}
		obfName := make([]byte, obfNameLen)
		if _, err := io.ReadFull(r, obfName); err != nil {
			return nil, xerrors.Errorf("reading file table entry name: %w", err)
		}
		var skip2 [4]byte
		if _, err := io.ReadFull(r, skip2[:]); err != nil {
			return nil, xerrors.Errorf("reading file table entry: %w", err)
		}

		var sizeTotEnc, sizeAlignedEnc, size uint32
		var entryType uint8
		var offsetRel uint32
		if err := binary.Read(r, binary.LittleEndian, &sizeTotEnc); err != nil {
			return nil, xerrors.Errorf("reading file table entry: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &sizeAlignedEnc); err != nil {
			return nil, xerrors.Errorf("reading file table entry: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, xerrors.Errorf("reading file table entry: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &entryType); err != nil {
			return nil, xerrors.Errorf("reading file table entry: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &offsetRel); err != nil {
			return nil, xerrors.Errorf("reading file table entry: %w", err)
		}

		name := obfuscateName(obfName) // its own inverse
		path := fromWindows1252(name)
		sizeCompressed := sizeTotEnc - size - 0x02CB
		sizeCompressedAligned := sizeAlignedEnc - 0x92CB

		entries.insert(path, FileEntry{
			Offset:                offsetRel + uint32(headerSize),
			Size:                  size,
			SizeCompressed:        sizeCompressed,
			SizeCompressedAligned: sizeCompressedAligned,
			EntryType:             EntryType(entryType),
		})
	}
}

func readCString(r *bytes.Reader) ([]byte, error) {
	var out []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return out, nil
		}
		out = append(out, b)
	}
}
