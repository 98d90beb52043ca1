// Package engine wraps the external compute the workers drive: the whisper
// CLI for speech-to-text, ffmpeg/ffprobe for audio handling, and the Gemini
// API for transcript enhancement.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// TranscribeRequest describes one transcription run.
type TranscribeRequest struct {
	InputPath        string
	StartTime        *float64
	EndTime          *float64
	EnableTimestamps bool
	Chunked          bool
	ChunkLength      int
}

// Transcriber converts an audio artifact into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscribeRequest, progress func(float64)) (string, error)
}

// commandResult captures one external command invocation.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// StageError is a stage-aware transcription failure with command context.
type StageError struct {
	Stage   string
	Message string
	Stderr  string
	Err     error
}

func (e *StageError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s: %s", e.Stage, e.Message, lastLine(e.Stderr))
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *StageError) Unwrap() error { return e.Err }

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// WhisperCLI runs transcription through the whisper.cpp command line tool,
// preprocessing input with ffmpeg into the 16 kHz mono WAV it expects.
type WhisperCLI struct {
	FFmpegBin  string
	WhisperBin string
	ModelPath  string

	runner commandRunner
	prober *FFProbe
}

func NewWhisperCLI(ffmpegBin, ffprobeBin, whisperBin, modelPath string) *WhisperCLI {
	return &WhisperCLI{
		FFmpegBin:  ffmpegBin,
		WhisperBin: whisperBin,
		ModelPath:  modelPath,
		runner:     execRunner{},
		prober:     NewFFProbe(ffprobeBin),
	}
}

// Transcribe preprocesses the input, runs whisper over it (per chunk when
// chunked mode is on), and returns the assembled transcript text. Progress
// is reported on a 0-100 scale.
func (w *WhisperCLI) Transcribe(ctx context.Context, req TranscribeRequest, progress func(float64)) (string, error) {
	if _, err := os.Stat(req.InputPath); err != nil {
		return "", &StageError{Stage: "preprocess", Message: fmt.Sprintf("cannot access input: %s", req.InputPath), Err: err}
	}

	tempDir, err := os.MkdirTemp("", "whisperd-*")
	if err != nil {
		return "", &StageError{Stage: "preprocess", Message: "failed to create temp workspace", Err: err}
	}
	defer os.RemoveAll(tempDir)

	windows, err := w.planWindows(ctx, req)
	if err != nil {
		return "", err
	}

	report := func(p float64) {
		if progress != nil {
			progress(p)
		}
	}

	var parts []string
	for i, win := range windows {
		wavPath := filepath.Join(tempDir, fmt.Sprintf("chunk-%04d.wav", i))
		if err := w.preprocess(ctx, req.InputPath, wavPath, win); err != nil {
			return "", err
		}
		report(float64(2*i+1) / float64(2*len(windows)) * 100)

		segments, err := w.runWhisper(ctx, wavPath)
		if err != nil {
			return "", err
		}
		parts = append(parts, renderSegments(segments, req.EnableTimestamps, win.start))
		report(float64(2*i+2) / float64(2*len(windows)) * 100)
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", &StageError{Stage: "transcribe", Message: "whisper produced an empty transcript"}
	}
	return text, nil
}

// window is one time slice of the input, in seconds. end == 0 means "until
// the end of the file".
type window struct {
	start float64
	end   float64
}

func (w *WhisperCLI) planWindows(ctx context.Context, req TranscribeRequest) ([]window, error) {
	var start, end float64
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}

	if !req.Chunked || req.ChunkLength <= 0 {
		return []window{{start: start, end: end}}, nil
	}

	if end <= 0 {
		duration, err := w.prober.Duration(ctx, req.InputPath)
		if err != nil {
			return nil, &StageError{Stage: "preprocess", Message: "failed to probe input duration", Err: err}
		}
		end = duration
	}
	if end <= start {
		return []window{{start: start, end: end}}, nil
	}

	step := float64(req.ChunkLength)
	var windows []window
	for at := start; at < end; at += step {
		to := at + step
		if to > end {
			to = end
		}
		windows = append(windows, window{start: at, end: to})
	}
	return windows, nil
}

func (w *WhisperCLI) preprocess(ctx context.Context, inputPath, outPath string, win window) error {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	if win.start > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", win.start))
	}
	if win.end > 0 {
		args = append(args, "-to", fmt.Sprintf("%.3f", win.end))
	}
	args = append(args,
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	)

	result, err := w.runner.Run(ctx, w.FFmpegBin, args...)
	if err != nil {
		return &StageError{Stage: "preprocess", Message: "ffmpeg audio conversion failed", Stderr: result.Stderr, Err: err}
	}
	if _, err := os.Stat(outPath); err != nil {
		return &StageError{Stage: "preprocess", Message: "ffmpeg completed but output is missing", Err: err}
	}
	return nil
}

// segment is one timed span of transcribed speech.
type segment struct {
	From float64
	To   float64
	Text string
}

// whisperOutput matches the whisper.cpp JSON export.
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (w *WhisperCLI) runWhisper(ctx context.Context, wavPath string) ([]segment, error) {
	outBase := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))
	args := []string{
		"-m", w.ModelPath,
		"-f", wavPath,
		"-of", outBase,
		"-oj",
	}

	result, err := w.runner.Run(ctx, w.WhisperBin, args...)
	if err != nil {
		return nil, &StageError{Stage: "transcribe", Message: "whisper transcription failed", Stderr: result.Stderr, Err: err}
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return nil, &StageError{Stage: "transcribe", Message: "whisper completed but JSON output is missing", Err: err}
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &StageError{Stage: "transcribe", Message: "failed to decode whisper output", Err: err}
	}

	segments := make([]segment, 0, len(out.Transcription))
	for _, t := range out.Transcription {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		segments = append(segments, segment{
			From: float64(t.Offsets.From) / 1000,
			To:   float64(t.Offsets.To) / 1000,
			Text: text,
		})
	}
	return segments, nil
}

// renderSegments joins segments into transcript text, prefixing each with a
// timestamp when requested. Offset shifts chunk-relative times back onto the
// original recording's clock.
func renderSegments(segments []segment, timestamps bool, offset float64) string {
	var b strings.Builder
	for i, s := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		if timestamps {
			fmt.Fprintf(&b, "[%s] ", formatTimestamp(s.From+offset))
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
