package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "uploads"), filepath.Join(dir, "outputs"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

func TestSaveUpload(t *testing.T) {
	s := testStore(t)

	path, size, err := s.SaveUpload("my talk.mp3", strings.NewReader("audio data"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if size != int64(len("audio data")) {
		t.Errorf("Expected size %d, got %d", len("audio data"), size)
	}
	if !s.Exists(path) {
		t.Error("Expected saved file to exist")
	}
	if s.UploadPath("my talk.mp3") != path {
		t.Errorf("Expected UploadPath to resolve to %s", path)
	}
}

func TestSaveUpload_StripsDirectories(t *testing.T) {
	s := testStore(t)

	path, _, err := s.SaveUpload("../../etc/passwd.mp3", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if filepath.Dir(path) != s.UploadsDir {
		t.Errorf("Expected file inside uploads dir, got %s", path)
	}
}

func TestWriteAndReadTranscript(t *testing.T) {
	s := testStore(t)

	path, err := s.WriteTranscript("meeting", 42, "the body", TranscriptMeta{
		SourceName: "meeting.mp3",
		Timestamps: true,
	})
	if err != nil {
		t.Fatalf("WriteTranscript failed: %v", err)
	}
	if filepath.Base(path) != "meeting_42.md" {
		t.Errorf("Unexpected filename %s", filepath.Base(path))
	}

	content, err := s.ReadTranscript(path)
	if err != nil {
		t.Fatalf("ReadTranscript failed: %v", err)
	}
	for _, want := range []string{
		"# Transcript: meeting",
		"**Source:** meeting.mp3",
		"**Timestamps:** Enabled",
		"## Content",
		"the body",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Expected %q in %q", want, content)
		}
	}
	if strings.Contains(content, "**Enhanced:**") {
		t.Error("Unexpected enhanced marker")
	}
}

func TestWriteTranscript_Enhanced(t *testing.T) {
	s := testStore(t)

	path, err := s.WriteTranscript("meeting", 43, "polished", TranscriptMeta{
		SourceName: "meeting.mp3",
		Enhanced:   true,
	})
	if err != nil {
		t.Fatalf("WriteTranscript failed: %v", err)
	}
	if filepath.Base(path) != "meeting_43_enhanced.md" {
		t.Errorf("Unexpected filename %s", filepath.Base(path))
	}

	content, _ := s.ReadTranscript(path)
	if !strings.Contains(content, "# Enhanced Transcript: meeting") {
		t.Errorf("Expected enhanced title in %q", content)
	}
	if !strings.Contains(content, "**Enhanced:** Yes (Gemini API)") {
		t.Errorf("Expected enhanced marker in %q", content)
	}
}

func TestTranscriptContent(t *testing.T) {
	s := testStore(t)

	path, err := s.WriteTranscript("m", 1, "line one\nline two", TranscriptMeta{SourceName: "m.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	markdown, _ := s.ReadTranscript(path)

	body := TranscriptContent(markdown)
	if body != "line one\nline two" {
		t.Errorf("Expected body only, got %q", body)
	}

	// Content without the marker passes through whole.
	if got := TranscriptContent("  bare text  "); got != "bare text" {
		t.Errorf("Expected trimmed passthrough, got %q", got)
	}
}

func TestRemove(t *testing.T) {
	s := testStore(t)

	path, err := s.WriteTranscript("m", 1, "x", TranscriptMeta{SourceName: "m.mp3"})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected file to be removed")
	}

	// Removing again, or removing nothing, is not an error.
	if err := s.Remove(path); err != nil {
		t.Errorf("Second remove failed: %v", err)
	}
	if err := s.Remove(""); err != nil {
		t.Errorf("Empty remove failed: %v", err)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"normal.mp3", "normal.mp3"},
		{`bad<>:"|?*.mp3`, "bad.mp3"},
		{"trailing. ", "trailing"},
		{"with space.wav", "with space.wav"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.input); got != tt.expected {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestStem(t *testing.T) {
	if got := Stem("/data/uploads/talk.mp3"); got != "talk" {
		t.Errorf("Stem = %q, want talk", got)
	}
	if got := Stem("noext"); got != "noext" {
		t.Errorf("Stem = %q, want noext", got)
	}
}
