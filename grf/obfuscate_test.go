package grf

import (
	"bytes"
	"testing"
)

func TestObfuscateNameIsInvolution(t *testing.T) {
	cases := [][]byte{
		[]byte("data\\file.gat"),
		[]byte(""),
		[]byte{0x00, 0xFF, 0x10, 0x01},
		[]byte("data\\subfolder\\deeply\\nested\\file.str"),
	}
	for _, b := range cases {
		once := obfuscateName(b)
		twice := obfuscateName(once)
		if !bytes.Equal(twice, b) {
			t.Errorf("obfuscateName(obfuscateName(%q)) = %q, want %q", b, twice, b)
		}
	}
}

func TestPermuteBlockBytesIsInvolution(t *testing.T) {
	block := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	want := append([]byte(nil), block...)
	permuteBlockBytes(block)
	permuteBlockBytes(block)
	if !bytes.Equal(block, want) {
		t.Errorf("permuteBlockBytes applied twice = %v, want %v", block, want)
	}
}

func TestScrambleBlockBytesIsInvolution(t *testing.T) {
	for cycle := 0; cycle < 5; cycle++ {
		block := []byte{10, 20, 30, 40, 50, 60, 70, 80}
		want := append([]byte(nil), block...)
		scrambleBlockBytes(block, cycle)
		scrambleBlockBytes(block, cycle)
		if !bytes.Equal(block, want) {
			t.Errorf("cycle %d: scrambleBlockBytes applied twice = %v, want %v", cycle, block, want)
		}
	}
}

func TestObfuscateDeobfuscatePayloadRoundTrips(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		path string
	}{
		{"single block", bytes.Repeat([]byte{0xAB}, 8), "data\\x.gat"},
		{"many blocks", bytes.Repeat([]byte{1, 2, 3, 4}, 100), "data\\y.bmp"},
		{"empty", nil, "data\\z.gat"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			original := append([]byte(nil), c.data...)
			cycle := encryptionCycle(c.path, len(original))
			working := append([]byte(nil), original...)
			obfuscatePayload(working, cycle)
			deobfuscatePayload(working, cycle)
			if !bytes.Equal(working, original) {
				t.Errorf("round trip mismatch: got %v, want %v", working, original)
			}
		})
	}
}

func TestEncryptionCycleSpecialExtensionsAreZero(t *testing.T) {
	for _, ext := range specialExtensions {
		path := "data\\file" + ext
		if got := encryptionCycle(path, 800); got != 0 {
			t.Errorf("encryptionCycle(%q, 800) = %d, want 0", path, got)
		}
	}
}

func TestEncryptionCycleRegularExtensionUsesDigitCount(t *testing.T) {
	path := "data\\file.bmp"
	if got, want := encryptionCycle(path, 128), digitCount(128); got != want {
		t.Errorf("encryptionCycle(%q, 128) = %d, want %d", path, got, want)
	}
}
