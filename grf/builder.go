package grf

import (
	"bytes"
	"io"
	"os"

	"github.com/google/renameio"
	"github.com/orcaman/writerseeker"
	"golang.org/x/xerrors"

	"github.com/ArturllVale/Kafra-Patcher/thor"
)

// Builder mutates a GRF archive: adding, removing, and raw-importing
// entries, then finalizing the file table and header. A Builder is not
// safe for concurrent use; the archive it writes to must not be touched
// by any other writer for the Builder's lifetime.
type Builder struct {
	w           io.WriteSeeker
	startOffset uint64
	finished    bool
	version     Version
	entries     *entryIndex
	chunks      *freeList

	closer io.Closer // non-nil when w owns a resource Close must release
}

// Create begins a new archive at the current position of w, reserving
// space for the header (written for real only on Finish). major/minor
// select the on-disk format family; major must be 1 or 2.
func Create(w io.WriteSeeker, major, minor uint32) (*Builder, error) {
	v := Version{Major: major, Minor: minor}
	if !v.valid() {
		return nil, xerrors.Errorf("%w: major %d", ErrInvalidVersion, major)
	}

	startOffset, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, xerrors.Errorf("locating start offset: %w", err)
	}

	placeholder := make([]byte, headerSize)
	if _, err := w.Write(placeholder); err != nil {
		return nil, xerrors.Errorf("reserving header: %w", err)
	}

	return &Builder{
		w:           w,
		startOffset: uint64(startOffset),
		version:     v,
		entries:     newEntryIndex(),
		chunks:      newFreeList(uint64(headerSize)),
	}, nil
}

// CreateAtomic creates a new archive backed by a temp file in path's
// directory; Finish (or Close) atomically renames it into place, so a
// process crash mid-write never leaves a torn file at path. Callers that
// need the error from the rename must call Finish, not rely on Close.
func CreateAtomic(path string, major, minor uint32) (*Builder, error) {
	pf, err := renameio.TempFile("", path)
	if err != nil {
		return nil, xerrors.Errorf("creating temp file for %q: %w", path, err)
	}
	b, err := Create(pf, major, minor)
	if err != nil {
		pf.Cleanup()
		return nil, err
	}
	b.closer = pendingFileCloser{pf}
	return b, nil
}

// pendingFileCloser adapts renameio's commit-on-close semantics to
// io.Closer: closing it is what actually performs the atomic rename.
type pendingFileCloser struct {
	pf *renameio.PendingFile
}

func (c pendingFileCloser) Close() error {
	return c.pf.CloseAtomicallyReplace()
}

// CreateWriterSeeker creates a new archive entirely in memory, returning
// both the Builder and the backing buffer so the caller can flush it
// (to a file, over the network, wherever) once Finish returns.
func CreateWriterSeeker(major, minor uint32) (*Builder, *writerseeker.WriterSeeker, error) {
	ws := &writerseeker.WriterSeeker{}
	b, err := Create(ws, major, minor)
	if err != nil {
		return nil, nil, err
	}
	return b, ws, nil
}

// Open reopens an existing archive at path for mutation: its header and
// file table are parsed to reconstruct the Entry Index and the
// Free-Space Allocator's occupied ranges.
func Open(path string) (*Builder, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, xerrors.Errorf("opening %q: %w", path, err)
	}

	rd, err := OpenReader(f)
	if err != nil {
		f.Close()
		return nil, xerrors.Errorf("parsing %q: %w", path, err)
	}

	return &Builder{
		w:           f,
		startOffset: 0,
		version:     rd.version,
		entries:     rd.entries,
		chunks:      chunksFromEntries(rd.entries, 0),
		closer:      f,
	}, nil
}

// AddFile compresses r's content and writes it at a newly allocated (or,
// if relativePath already exists, reallocated) offset, replacing any
// prior entry at that path.
func (b *Builder) AddFile(relativePath string, r io.Reader) error {
	encoded, err := encodePayload(relativePath, r, b.version)
	if err != nil {
		return err
	}
	return b.placePayload(relativePath, encoded.bytes, FileEntry{
		Size:                  encoded.size,
		SizeCompressed:        encoded.sizeCompressed,
		SizeCompressedAligned: encoded.sizeCompressedAligned,
		EntryType:             EntryTypeFile,
	})
}

// RemoveFile deletes relativePath's entry, if present, and returns its
// occupied range to the allocator. It reports whether an entry was
// actually removed.
func (b *Builder) RemoveFile(relativePath string) (bool, error) {
	e, ok := b.entries.remove(relativePath)
	if !ok {
		return false, nil
	}
	if err := b.chunks.free(uint64(e.Offset)-b.startOffset, uint64(e.SizeCompressedAligned)); err != nil {
		return false, xerrors.Errorf("freeing %q: %w", relativePath, err)
	}
	return true, nil
}

// ImportRawFromGRF copies relativePath from src into this archive. When
// src and this Builder are both major >= 2 or both major < 2, the
// already-encoded bytes are copied verbatim (the raw-import fast path);
// otherwise the content is re-read decompressed and routed through
// AddFile, since the two archives' payload encodings are not
// bit-compatible.
func (b *Builder) ImportRawFromGRF(src *Reader, relativePath string) error {
	if !compatibleForRawImport(b.version, src.version) {
		content, err := src.FileContent(relativePath)
		if err != nil {
			return err
		}
		return b.AddFile(relativePath, bytes.NewReader(content))
	}

	entry, ok := src.GetFileEntry(relativePath)
	if !ok {
		return xerrors.Errorf("%w: %q", ErrEntryNotFound, relativePath)
	}
	raw, err := src.RawEntryData(relativePath)
	if err != nil {
		return err
	}
	return b.placePayload(relativePath, raw, FileEntry{
		Size:                  entry.Size,
		SizeCompressed:        entry.SizeCompressed,
		SizeCompressedAligned: entry.SizeCompressedAligned,
		EntryType:             entry.EntryType,
	})
}

// ImportRawFromThor copies relativePath from a THOR patch archive. Into a
// major >= 2 archive, the raw compressed payload is copied verbatim with
// size_compressed_aligned set equal to size_compressed and entry_type
// hard-coded to EntryTypeFile — matching the source builder's behavior,
// which discards the THOR side's own entry type. Into a major < 2
// archive, the content is re-read decompressed and routed through
// AddFile, since 1.x payloads need the pad-and-obfuscate treatment a THOR
// payload never carries.
func (b *Builder) ImportRawFromThor(src thor.Archive, relativePath string) error {
	if b.version.Major < 2 {
		content, err := src.FileContent(relativePath)
		if err != nil {
			return err
		}
		return b.AddFile(relativePath, bytes.NewReader(content))
	}

	entry, err := src.Entry(relativePath)
	if err != nil {
		return err
	}
	raw, err := src.RawEntryData(relativePath)
	if err != nil {
		return err
	}
	return b.placePayload(relativePath, raw, FileEntry{
		Size:                  entry.Size,
		SizeCompressed:        entry.SizeCompressed,
		SizeCompressedAligned: entry.SizeCompressed,
		EntryType:             EntryTypeFile,
	})
}

// placePayload writes data at a newly allocated (or reallocated, if
// relativePath is already present) offset and records entry — with
// Offset filled in — in the Entry Index.
func (b *Builder) placePayload(relativePath string, data []byte, entry FileEntry) error {
	var offset uint64
	if existing, ok := b.entries.get(relativePath); ok {
		o, err := b.chunks.realloc(uint64(existing.Offset)-b.startOffset, uint64(existing.SizeCompressedAligned), uint64(len(data)))
		if err != nil {
			return xerrors.Errorf("reallocating %q: %w", relativePath, err)
		}
		offset = o
	} else {
		o, err := b.chunks.alloc(uint64(len(data)))
		if err != nil {
			return xerrors.Errorf("allocating %q: %w", relativePath, err)
		}
		offset = o
	}

	if _, err := b.w.Seek(int64(b.startOffset+offset), io.SeekStart); err != nil {
		return xerrors.Errorf("seeking to write %q: %w", relativePath, err)
	}
	if _, err := b.w.Write(data); err != nil {
		return xerrors.Errorf("writing %q: %w", relativePath, err)
	}

	absOffset, err := toUint32(int64(b.startOffset + offset))
	if err != nil {
		return xerrors.Errorf("%w: %q offset: %v", ErrSerialization, relativePath, err)
	}
	entry.Offset = absOffset
	b.entries.insert(relativePath, entry)
	return nil
}

// Finish writes the file table and rewrites the header, making the
// archive valid on disk. Finish is idempotent: a second call is a no-op
// returning nil, matching the guarantee the Rust original's Drop-based
// auto-finish relied on.
func (b *Builder) Finish() error {
	if b.finished {
		return nil
	}
	b.finished = true
	if err := b.finalize(); err != nil {
		return err
	}
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}

// Close calls Finish, discarding any error. It is always safe to defer
// immediately after Create/Open: a caller that needs to observe a
// finalization error must call Finish explicitly instead.
func (b *Builder) Close() error {
	_ = b.Finish()
	return nil
}
