package grf

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// headerMagic is the fixed 16-byte signature every GRF archive starts with,
// including its NUL terminator.
const headerMagic = "Master of Magic\x00"

// headerKey is the fixed 14-byte constant that follows the magic. Its
// values are {1, 2, ..., 14}; it carries no cryptographic meaning.
var headerKey = [14]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}

// headerSize is the total size, in bytes, of magic + header fields. It must
// match exactly what a compatible reader expects: 16 (magic incl. NUL) + 14
// (key) + 4*4 (file_table_offset, seed, v_file_count, version) = 46.
const headerSize = int64(len(headerMagic) + 14 + 4*4)

// vFileCountBias is the format's reserved bias for virtual entries; it is
// added to the real entry count when writing v_file_count, observed rather
// than specified.
const vFileCountBias = 7

// header is the fixed-size archive header, in on-disk field order.
type header struct {
	Key             [14]byte
	FileTableOffset uint32 // relative to end of header
	Seed            int32
	VFileCount      int32
	Version         uint32
}

func writeHeader(w io.Writer, fileTableOffsetRelative uint32, entryCount int, v Version) error {
	if _, err := io.WriteString(w, headerMagic); err != nil {
		return xerrors.Errorf("writing magic: %w", err)
	}
	h := header{
		Key:             headerKey,
		FileTableOffset: fileTableOffsetRelative,
		Seed:            0,
		VFileCount:      int32(entryCount + vFileCountBias),
		Version:         v.wire(),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return xerrors.Errorf("writing header: %w", err)
	}
	return nil
}

func readHeader(r io.Reader) (header, error) {
	var magic [len(headerMagic)]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return header{}, xerrors.Errorf("reading magic: %w", err)
	}
	if string(magic[:]) != headerMagic {
		return header{}, xerrors.Errorf("not a GRF archive: bad magic %q", magic[:])
	}
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return header{}, xerrors.Errorf("reading header: %w", err)
	}
	return h, nil
}

func (h header) version() Version {
	return versionFromWire(h.Version)
}

// fileCount recovers the real entry count from the biased v_file_count
// field, tolerating the bias the way a compatible reader must.
func (h header) fileCount() int {
	n := int(h.VFileCount) - vFileCountBias
	if n < 0 {
		return 0
	}
	return n
}
