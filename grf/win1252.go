package grf

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/xerrors"
)

// toWindows1252 transcodes s (UTF-8, the host string encoding) to
// Windows-1252, the single-byte encoding GRF paths are stored in. Any
// character that has no Windows-1252 representation is a serialization
// error, never a lossy substitution.
func toWindows1252(s string) ([]byte, error) {
	b, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, xerrors.Errorf("%w: path %q is not representable in Windows-1252: %v", ErrSerialization, s, err)
	}
	return b, nil
}

// fromWindows1252 transcodes Windows-1252 bytes back to a UTF-8 string.
// Every byte value 0x00-0xFF has a Windows-1252 mapping, so this never
// fails.
func fromWindows1252(b []byte) string {
	s, err := charmap.Windows1252.NewDecoder().String(string(b))
	if err != nil {
		// Windows-1252 decoding is total; this should not happen.
		return string(b)
	}
	return s
}
