package grf

// Version identifies a GRF archive's on-disk format family. Major 1
// archives use the obfuscated inline table and the padded/scrambled payload
// encoding; major 2 archives use the compressed record table and plain
// payload encoding. No other major is supported.
type Version struct {
	Major uint32
	Minor uint32
}

// Obfuscated reports whether this version uses the 1.x payload padding and
// content/name obfuscation scheme.
func (v Version) Obfuscated() bool {
	return v.Major < 2
}

// valid reports whether v is a major version this package knows how to
// read or write.
func (v Version) valid() bool {
	return v.Major == 1 || v.Major == 2
}

// compatibleForRawImport reports whether a and b are close enough in format
// family that an entry's already-encoded bytes can be copied verbatim
// between archives of these two versions (spec: "both >= 2 or both < 2").
func compatibleForRawImport(a, b Version) bool {
	if a.Major >= 2 && b.Major >= 2 {
		return true
	}
	return a.Major < 2 && b.Major < 2
}

// wire returns the on-disk version word: (major << 8) | minor.
func (v Version) wire() uint32 {
	return (v.Major << 8) | v.Minor
}

func versionFromWire(w uint32) Version {
	return Version{Major: w >> 8, Minor: w & 0xFF}
}
