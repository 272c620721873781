package session

import (
	"strings"
	"testing"
)

func TestTranscript_Empty(t *testing.T) {
	tr := NewTranscript(8)
	if tr.String() != "" || tr.Len() != 0 {
		t.Fatalf("new transcript should be empty, got %q", tr.String())
	}
}

func TestTranscript_KeepsNewestBytes(t *testing.T) {
	tr := NewTranscript(8)
	_, _ = tr.Write([]byte("abcdefghij"))

	if got := tr.String(); got != "cdefghij" {
		t.Fatalf("String() = %q, want %q", got, "cdefghij")
	}
	if tr.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", tr.Len())
	}
}

func TestTranscript_DropsSplitRune(t *testing.T) {
	tr := NewTranscript(5)
	// "é" is two bytes; after writing "xé1234" only the second byte of é survives.
	_, _ = tr.Write([]byte("xé1234"))

	got := tr.String()
	if got != "1234" {
		t.Fatalf("String() = %q, want %q", got, "1234")
	}
}

func TestTranscript_Append(t *testing.T) {
	tr := NewTranscript(0)
	tr.Append("user", "hi")
	tr.Append("ai", "")
	tr.Append("ai", "hello")

	want := "user: hi\nai: hello\n"
	if got := tr.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestTranscript_Reset(t *testing.T) {
	tr := NewTranscript(4)
	_, _ = tr.Write([]byte(strings.Repeat("z", 10)))
	tr.Reset()
	if tr.Len() != 0 {
		t.Fatalf("Len() after Reset = %d", tr.Len())
	}
}
