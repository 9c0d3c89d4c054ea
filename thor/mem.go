package thor

import (
	"bytes"
	"io"
	"sort"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/xerrors"
)

// MemArchive is an in-memory Archive: every entry's raw compressed bytes
// live in a map. It is a reference implementation used by the tests, not a
// THOR container parser.
type MemArchive struct {
	versionMajor uint32
	entries      map[string]memEntry
}

type memEntry struct {
	FileEntry
	raw []byte
}

// NewMemArchive creates an empty in-memory THOR archive targeting the
// given GRF major version family.
func NewMemArchive(versionMajor uint32) *MemArchive {
	return &MemArchive{versionMajor: versionMajor, entries: make(map[string]memEntry)}
}

// PutContent DEFLATE-compresses content and stores it under path,
// replacing any prior entry there.
func (m *MemArchive) PutContent(path string, content []byte) error {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(content); err != nil {
		return xerrors.Errorf("compressing %q: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return xerrors.Errorf("compressing %q: %w", path, err)
	}
	m.entries[path] = memEntry{
		FileEntry: FileEntry{
			Size:           uint32(len(content)),
			SizeCompressed: uint32(buf.Len()),
		},
		raw: buf.Bytes(),
	}
	return nil
}

func (m *MemArchive) Entries() []string {
	paths := make([]string, 0, len(m.entries))
	for p := range m.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m *MemArchive) Entry(path string) (FileEntry, error) {
	e, ok := m.entries[path]
	if !ok {
		return FileEntry{}, xerrors.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	return e.FileEntry, nil
}

func (m *MemArchive) RawEntryData(path string) ([]byte, error) {
	e, ok := m.entries[path]
	if !ok {
		return nil, xerrors.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	return e.raw, nil
}

func (m *MemArchive) FileContent(path string) ([]byte, error) {
	e, ok := m.entries[path]
	if !ok {
		return nil, xerrors.Errorf("%w: %q", ErrEntryNotFound, path)
	}
	zr, err := zlib.NewReader(bytes.NewReader(e.raw))
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

func (m *MemArchive) VersionMajor() uint32 {
	return m.versionMajor
}
