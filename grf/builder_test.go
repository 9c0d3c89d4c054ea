package grf

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/orcaman/writerseeker"

	"github.com/ArturllVale/Kafra-Patcher/thor"
)

func mustCreate(t *testing.T, major, minor uint32) (*Builder, *writerseeker.WriterSeeker) {
	t.Helper()
	b, ws, err := CreateWriterSeeker(major, minor)
	if err != nil {
		t.Fatal(err)
	}
	return b, ws
}

func mustOpenReader(t *testing.T, ws *writerseeker.WriterSeeker) *Reader {
	t.Helper()
	rd, err := OpenReader(ws.BytesReader())
	if err != nil {
		t.Fatal(err)
	}
	return rd
}

// S1: add files to a fresh 2.0 archive, finish, reopen, read back content.
func TestBuilderAddFileAndReadBack(t *testing.T) {
	b, ws := mustCreate(t, 2, 0)
	files := map[string][]byte{
		"data\\file.gat":            bytes.Repeat([]byte{0}, 60),
		"data\\subfolder\\file.gnd": bytes.Repeat([]byte{0xCC}, 341),
		"data\\file2.gat":           bytes.Repeat([]byte{3}, 60),
	}
	for path, content := range files {
		if err := b.AddFile(path, bytes.NewReader(content)); err != nil {
			t.Fatalf("AddFile(%q): %v", path, err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatal(err)
	}

	rd := mustOpenReader(t, ws)
	for path, want := range files {
		got, err := rd.FileContent(path)
		if err != nil {
			t.Fatalf("FileContent(%q): %v", path, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("FileContent(%q) = %v, want %v", path, got, want)
		}
	}
}

// S2: overwriting an existing path replaces its content without leaking the
// old allocation.
func TestBuilderOverwriteReplacesContent(t *testing.T) {
	b, ws := mustCreate(t, 2, 0)
	const path = "data\\file.gat"
	if err := b.AddFile(path, bytes.NewReader(make([]byte, 10))); err != nil {
		t.Fatal(err)
	}
	want := bytes.Repeat([]byte{7}, 500)
	if err := b.AddFile(path, bytes.NewReader(want)); err != nil {
		t.Fatal(err)
	}
	if err := b.Finish(); err != nil {
		t.Fatal(err)
	}

	rd := mustOpenReader(t, ws)
	got, err := rd.FileContent(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("FileContent after overwrite = %v, want %v", got, want)
	}
	entries := rd.Entries()
	if len(entries) != 1 {
		t.Errorf("entry count after overwrite = %d, want 1", len(entries))
	}
}

// S3: removing an entry drops it from the table, and removing it again
// reports false.
func TestBuilderRemoveFile(t *testing.T) {
	b, ws := mustCreate(t, 2, 0)
	if err := b.AddFile("data\\a.gat", bytes.NewReader([]byte("aaaa"))); err != nil {
		t.Fatal(err)
	}
	if err := b.AddFile("data\\b.gat", bytes.NewReader([]byte("bbbb"))); err != nil {
		t.Fatal(err)
	}
	removed, err := b.RemoveFile("data\\a.gat")
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("RemoveFile reported false for an entry that exists")
	}
	removedAgain, err := b.RemoveFile("data\\a.gat")
	if err != nil {
		t.Fatal(err)
	}
	if removedAgain {
		t.Fatal("RemoveFile reported true for an already-removed entry")
	}
	if err := b.Finish(); err != nil {
		t.Fatal(err)
	}

	rd := mustOpenReader(t, ws)
	if _, ok := rd.GetFileEntry("data\\a.gat"); ok {
		t.Error("removed entry still present after Finish")
	}
	if _, ok := rd.GetFileEntry("data\\b.gat"); !ok {
		t.Error("surviving entry missing after Finish")
	}
}

// S3b: raw-importing between two version-2 archives copies bytes verbatim.
func TestBuilderImportRawFromGRFFastPath(t *testing.T) {
	srcB, srcWS := mustCreate(t, 2, 0)
	content := bytes.Repeat([]byte{9}, 2000)
	if err := srcB.AddFile("data\\big.gat", bytes.NewReader(content)); err != nil {
		t.Fatal(err)
	}
	if err := srcB.Finish(); err != nil {
		t.Fatal(err)
	}
	srcRd := mustOpenReader(t, srcWS)

	dstB, dstWS := mustCreate(t, 2, 0)
	if err := dstB.ImportRawFromGRF(srcRd, "data\\big.gat"); err != nil {
		t.Fatal(err)
	}
	if err := dstB.Finish(); err != nil {
		t.Fatal(err)
	}

	dstRd := mustOpenReader(t, dstWS)
	got, err := dstRd.FileContent("data\\big.gat")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Error("content mismatch after raw import fast path")
	}

	srcEntry, _ := srcRd.GetFileEntry("data\\big.gat")
	dstEntry, _ := dstRd.GetFileEntry("data\\big.gat")
	if diff := cmp.Diff(srcEntry.SizeCompressed, dstEntry.SizeCompressed); diff != "" {
		t.Errorf("SizeCompressed mismatch (-src +dst):\n%s", diff)
	}
}

// S3b: raw-importing between incompatible version families falls back to
// the decompress-and-re-encode path instead of failing.
func TestBuilderImportRawFromGRFIncompatibleFallback(t *testing.T) {
	srcB, srcWS := mustCreate(t, 1, 3)
	content := []byte("version 1.x content, re-encoded on import")
	if err := srcB.AddFile("data\\old.gat", bytes.NewReader(content)); err != nil {
		t.Fatal(err)
	}
	if err := srcB.Finish(); err != nil {
		t.Fatal(err)
	}
	srcRd := mustOpenReader(t, srcWS)

	dstB, dstWS := mustCreate(t, 2, 0)
	if err := dstB.ImportRawFromGRF(srcRd, "data\\old.gat"); err != nil {
		t.Fatal(err)
	}
	if err := dstB.Finish(); err != nil {
		t.Fatal(err)
	}

	dstRd := mustOpenReader(t, dstWS)
	got, err := dstRd.FileContent("data\\old.gat")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("FileContent after fallback import = %q, want %q", got, content)
	}
}

// Importing from a THOR archive into a 2.0 destination copies the raw
// payload and hard-codes entry_type, matching the observed builder.rs
// behavior.
func TestBuilderImportRawFromThor(t *testing.T) {
	thorArchive := thor.NewMemArchive(2)
	content := []byte("patch payload")
	if err := thorArchive.PutContent("data\\patched.gat", content); err != nil {
		t.Fatal(err)
	}

	b, ws := mustCreate(t, 2, 0)
	if err := b.ImportRawFromThor(thorArchive, "data\\patched.gat"); err != nil {
		t.Fatal(err)
	}
	if err := b.Finish(); err != nil {
		t.Fatal(err)
	}

	rd := mustOpenReader(t, ws)
	got, err := rd.FileContent("data\\patched.gat")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("FileContent after THOR import = %q, want %q", got, content)
	}
	entry, ok := rd.GetFileEntry("data\\patched.gat")
	if !ok {
		t.Fatal("imported entry missing")
	}
	if entry.EntryType != EntryTypeFile {
		t.Errorf("EntryType = %d, want %d", entry.EntryType, EntryTypeFile)
	}
}

// S4: Finish is idempotent.
func TestBuilderFinishIsIdempotent(t *testing.T) {
	b, _ := mustCreate(t, 2, 0)
	if err := b.AddFile("data\\a.gat", bytes.NewReader([]byte("a"))); err != nil {
		t.Fatal(err)
	}
	if err := b.Finish(); err != nil {
		t.Fatal(err)
	}
	if err := b.Finish(); err != nil {
		t.Fatalf("second Finish returned an error: %v", err)
	}
}

// S5: a 1.x archive round-trips through its obfuscated table and payload
// encoding.
func TestBuilder1xRoundTrip(t *testing.T) {
	b, ws := mustCreate(t, 1, 3)
	files := map[string][]byte{
		"data\\a.gat": []byte("alpha content"),
		"data\\b.bmp": bytes.Repeat([]byte{5}, 900),
	}
	for path, content := range files {
		if err := b.AddFile(path, bytes.NewReader(content)); err != nil {
			t.Fatalf("AddFile(%q): %v", path, err)
		}
	}
	if err := b.Finish(); err != nil {
		t.Fatal(err)
	}

	rd := mustOpenReader(t, ws)
	if got, want := rd.Version(), (Version{Major: 1, Minor: 3}); got != want {
		t.Errorf("Version() = %+v, want %+v", got, want)
	}
	for path, want := range files {
		got, err := rd.FileContent(path)
		if err != nil {
			t.Fatalf("FileContent(%q): %v", path, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("FileContent(%q) = %v, want %v", path, got, want)
		}
	}
}

// S6: reopening a finished archive the way Open does (OpenReader plus a
// rebuilt allocator) preserves existing entries and lets the caller add more.
func TestBuilderOpenThenAddFile(t *testing.T) {
	b, ws := mustCreate(t, 2, 0)
	if err := b.AddFile("data\\existing.gat", bytes.NewReader([]byte("original"))); err != nil {
		t.Fatal(err)
	}
	if err := b.Finish(); err != nil {
		t.Fatal(err)
	}

	rd, err := OpenReader(ws.BytesReader())
	if err != nil {
		t.Fatal(err)
	}

	reopened := &Builder{
		w:           ws,
		startOffset: 0,
		version:     rd.version,
		entries:     rd.entries,
		chunks:      chunksFromEntries(rd.entries, 0),
	}
	if err := reopened.AddFile("data\\new.gat", bytes.NewReader([]byte("fresh"))); err != nil {
		t.Fatal(err)
	}
	if err := reopened.Finish(); err != nil {
		t.Fatal(err)
	}

	final := mustOpenReader(t, ws)
	for path, want := range map[string]string{
		"data\\existing.gat": "original",
		"data\\new.gat":      "fresh",
	} {
		got, err := final.FileContent(path)
		if err != nil {
			t.Fatalf("FileContent(%q): %v", path, err)
		}
		if string(got) != want {
			t.Errorf("FileContent(%q) = %q, want %q", path, got, want)
		}
	}
}
