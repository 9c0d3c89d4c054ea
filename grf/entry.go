package grf

// EntryType is an 8-bit flag word describing an entry. Only bit 0 (regular
// file) is interpreted by this package; any other bits are opaque and are
// preserved verbatim across raw imports.
type EntryType uint8

// EntryTypeFile marks a regular file entry.
const EntryTypeFile EntryType = 1

// FileEntry is the logical record the Entry Index maps a path to.
type FileEntry struct {
	// Offset is the absolute byte offset in the archive file where the
	// payload begins. Always >= headerSize.
	Offset uint32

	// Size is the uncompressed payload length in bytes.
	Size uint32

	// SizeCompressed is the compressed payload length a reader actually
	// consumes.
	SizeCompressed uint32

	// SizeCompressedAligned is the on-disk footprint of the payload: for
	// version 2 it equals SizeCompressed; for version 1 it is
	// SizeCompressed padded up to a multiple of 8.
	SizeCompressedAligned uint32

	// EntryType carries format-specific flags; bit 0 set means regular
	// file.
	EntryType EntryType
}

// isFile reports whether the regular-file bit is set.
func (e FileEntry) isFile() bool {
	return e.EntryType&EntryTypeFile != 0
}
