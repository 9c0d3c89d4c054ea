package grf

import "testing"

func TestWindows1252RoundTrip(t *testing.T) {
	cases := []string{
		"data\\file.gat",
		"data\\café.gat",
		"",
	}
	for _, s := range cases {
		b, err := toWindows1252(s)
		if err != nil {
			t.Fatalf("toWindows1252(%q): %v", s, err)
		}
		got := fromWindows1252(b)
		if got != s {
			t.Errorf("round trip %q -> %q -> %q", s, b, got)
		}
	}
}

func TestWindows1252RejectsUnrepresentable(t *testing.T) {
	if _, err := toWindows1252("data\\文字.gat"); err == nil {
		t.Fatal("expected an error encoding CJK characters as Windows-1252")
	}
}
