// Package thor describes the interface GRF's Builder needs from a THOR
// patch archive in order to import entries raw. THOR container parsing
// itself is out of scope here: this package defines the surface and
// supplies an in-memory reference implementation, not a file-format
// reader.
package thor

import (
	"golang.org/x/xerrors"
)

// ErrEntryNotFound is returned by Archive implementations when a
// requested path is not present.
var ErrEntryNotFound = xerrors.New("thor: entry not found")

// FileEntry is the minimal per-entry metadata a THOR archive must expose
// for a raw import: how large the payload is uncompressed and compressed.
type FileEntry struct {
	Size           uint32
	SizeCompressed uint32
}

// Archive is the read surface grf.Builder.ImportRawFromThor needs: entry
// enumeration, raw (still-compressed) payload bytes, decompressed
// content, and the patch's declared GRF version family.
type Archive interface {
	// Entries lists every path this archive carries an entry for.
	Entries() []string

	// Entry returns the descriptor for path.
	Entry(path string) (FileEntry, error)

	// RawEntryData returns path's payload exactly as stored in the
	// patch: DEFLATE-compressed, never padded or obfuscated (THOR
	// payloads are always destined for major >= 2 archives when copied
	// raw).
	RawEntryData(path string) ([]byte, error)

	// FileContent returns path's fully decompressed content.
	FileContent(path string) ([]byte, error)

	// VersionMajor reports the GRF major version family this patch
	// targets.
	VersionMajor() uint32
}
