package grf

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	v := Version{Major: 2, Minor: 0}
	if err := writeHeader(&buf, 1234, 5, v); err != nil {
		t.Fatal(err)
	}
	if int64(buf.Len()) != headerSize {
		t.Fatalf("written header length = %d, want %d", buf.Len(), headerSize)
	}

	h, err := readHeader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if h.FileTableOffset != 1234 {
		t.Errorf("FileTableOffset = %d, want 1234", h.FileTableOffset)
	}
	if h.fileCount() != 5 {
		t.Errorf("fileCount() = %d, want 5", h.fileCount())
	}
	if h.version() != v {
		t.Errorf("version() = %+v, want %+v", h.version(), v)
	}
	if h.Key != headerKey {
		t.Errorf("Key = %v, want %v", h.Key, headerKey)
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("not a grf archive at all, padded out")
	if _, err := readHeader(buf); err == nil {
		t.Fatal("expected an error for a bad magic")
	}
}

func TestHeaderFileCountTolerantOfUnderflow(t *testing.T) {
	h := header{VFileCount: 3} // below the bias of 7
	if got := h.fileCount(); got != 0 {
		t.Errorf("fileCount() = %d, want 0 (floored)", got)
	}
}
