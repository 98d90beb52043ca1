// Package artifact manages the durable input and output files jobs refer to.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/voskhod/whisperd/internal/constants"
)

// Store is a path-addressed artifact store with one directory for uploaded
// audio and one for produced transcripts. Jobs reference artifacts by path.
type Store struct {
	UploadsDir string
	OutputsDir string
}

func NewStore(uploadsDir, outputsDir string) (*Store, error) {
	for _, dir := range []string{uploadsDir, outputsDir} {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return &Store{UploadsDir: uploadsDir, OutputsDir: outputsDir}, nil
}

// SaveUpload writes an uploaded audio file under the uploads directory and
// returns its path and size. The name is sanitized for the filesystem.
func (s *Store) SaveUpload(name string, r io.Reader) (string, int64, error) {
	name = Sanitize(filepath.Base(name))
	if name == "" {
		return "", 0, fmt.Errorf("empty filename after sanitizing")
	}

	path := filepath.Join(s.UploadsDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}
	return path, size, nil
}

// UploadPath resolves an uploaded filename to its stored path.
func (s *Store) UploadPath(name string) string {
	return filepath.Join(s.UploadsDir, Sanitize(filepath.Base(name)))
}

// Exists reports whether an artifact path points at a regular file.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// TranscriptMeta describes the markdown header written for a transcript.
type TranscriptMeta struct {
	SourceName string
	Timestamps bool
	Enhanced   bool
}

// WriteTranscript materializes a transcript as a markdown artifact in the
// outputs directory and returns its path. The filename embeds the job id so
// re-runs never clobber earlier results.
func (s *Store) WriteTranscript(stem string, jobID int64, content string, meta TranscriptMeta) (string, error) {
	suffix := ".md"
	if meta.Enhanced {
		suffix = "_enhanced.md"
	}
	name := fmt.Sprintf("%s_%d%s", Sanitize(stem), jobID, suffix)
	path := filepath.Join(s.OutputsDir, name)

	var b strings.Builder
	title := "Transcript"
	if meta.Enhanced {
		title = "Enhanced Transcript"
	}
	fmt.Fprintf(&b, "# %s: %s\n\n", title, stem)
	fmt.Fprintf(&b, "**Source:** %s\n\n", meta.SourceName)
	if meta.Timestamps {
		b.WriteString("**Timestamps:** Enabled\n\n")
	}
	if meta.Enhanced {
		b.WriteString("**Enhanced:** Yes (Gemini API)\n\n")
	}
	b.WriteString("## Content\n\n")
	b.WriteString(content)

	if err := os.WriteFile(path, []byte(b.String()), constants.FilePermissions); err != nil {
		return "", err
	}
	return path, nil
}

// ReadTranscript returns the full markdown artifact.
func (s *Store) ReadTranscript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TranscriptContent strips the markdown header and returns the body after
// the "## Content" marker. Artifacts without the marker are returned whole.
func TranscriptContent(markdown string) string {
	lines := strings.Split(markdown, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "## Content") {
			return strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		}
	}
	return strings.TrimSpace(markdown)
}

// Remove deletes an output artifact. Missing files are not an error: the
// registry row is authoritative and delete must stay idempotent.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Sanitize strips characters that are invalid in filesystem paths and
// trims trailing dots and spaces.
func Sanitize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(constants.InvalidPathChars, r) {
			return -1
		}
		return r
	}, s)

	return strings.TrimRight(mapped, ". ")
}

// Stem returns the filename without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
