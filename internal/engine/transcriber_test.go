package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// scriptedRunner fakes ffmpeg, ffprobe and whisper invocations, writing the
// files the real tools would produce.
type scriptedRunner struct {
	t            *testing.T
	durationSecs float64
	segmentsPer  []string
	failFFmpeg   bool
	ffmpegCalls  [][]string
	whisperCalls [][]string
	whisperRuns  int
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	switch {
	case strings.Contains(name, "ffprobe"):
		stdout := fmt.Sprintf(`{"format": {"duration": "%f"}}`, r.durationSecs)
		return commandResult{Stdout: stdout}, nil

	case strings.Contains(name, "ffmpeg"):
		r.ffmpegCalls = append(r.ffmpegCalls, args)
		if r.failFFmpeg {
			return commandResult{Stderr: "Invalid data found when processing input", ExitCode: 1}, errors.New("exit status 1")
		}
		outPath := args[len(args)-1]
		if err := os.WriteFile(outPath, []byte("wav"), 0644); err != nil {
			r.t.Fatalf("Failed to write fake wav: %v", err)
		}
		return commandResult{}, nil

	case strings.Contains(name, "whisper"):
		r.whisperCalls = append(r.whisperCalls, args)
		var outBase string
		for i, a := range args {
			if a == "-of" && i+1 < len(args) {
				outBase = args[i+1]
			}
		}
		text := "chunk output"
		if r.whisperRuns < len(r.segmentsPer) {
			text = r.segmentsPer[r.whisperRuns]
		}
		r.whisperRuns++
		payload := fmt.Sprintf(`{"transcription": [{"offsets": {"from": 1000, "to": 4000}, "text": " %s"}]}`, text)
		if err := os.WriteFile(outBase+".json", []byte(payload), 0644); err != nil {
			r.t.Fatalf("Failed to write fake whisper output: %v", err)
		}
		return commandResult{}, nil
	}

	r.t.Fatalf("Unexpected command %s", name)
	return commandResult{}, nil
}

func testWhisperCLI(t *testing.T, runner *scriptedRunner) (*WhisperCLI, string) {
	t.Helper()
	input := filepath.Join(t.TempDir(), "talk.mp3")
	if err := os.WriteFile(input, []byte("mp3"), 0644); err != nil {
		t.Fatal(err)
	}

	w := NewWhisperCLI("ffmpeg", "ffprobe", "whisper-cli", "model.bin")
	w.runner = runner
	w.prober.runner = runner
	return w, input
}

func TestTranscribe_SingleWindow(t *testing.T) {
	runner := &scriptedRunner{t: t, segmentsPer: []string{"hello world"}}
	w, input := testWhisperCLI(t, runner)

	var last float64
	text, err := w.Transcribe(context.Background(), TranscribeRequest{InputPath: input}, func(p float64) { last = p })
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "hello world" {
		t.Errorf("Expected plain text, got %q", text)
	}
	if strings.Contains(text, "[") {
		t.Errorf("Expected no timestamps, got %q", text)
	}
	if len(runner.ffmpegCalls) != 1 || len(runner.whisperCalls) != 1 {
		t.Errorf("Expected one ffmpeg and one whisper call, got %d/%d", len(runner.ffmpegCalls), len(runner.whisperCalls))
	}
	if last != 100 {
		t.Errorf("Expected final progress 100, got %f", last)
	}
}

func TestTranscribe_Timestamps(t *testing.T) {
	runner := &scriptedRunner{t: t, segmentsPer: []string{"hello"}}
	w, input := testWhisperCLI(t, runner)

	text, err := w.Transcribe(context.Background(), TranscribeRequest{InputPath: input, EnableTimestamps: true}, nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "[00:01] hello" {
		t.Errorf("Expected timestamped line, got %q", text)
	}
}

func TestTranscribe_TimeRange(t *testing.T) {
	runner := &scriptedRunner{t: t}
	w, input := testWhisperCLI(t, runner)

	start, end := 5.0, 20.0
	_, err := w.Transcribe(context.Background(), TranscribeRequest{InputPath: input, StartTime: &start, EndTime: &end}, nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	args := strings.Join(runner.ffmpegCalls[0], " ")
	if !strings.Contains(args, "-ss 5.000") {
		t.Errorf("Expected -ss in args: %s", args)
	}
	if !strings.Contains(args, "-to 20.000") {
		t.Errorf("Expected -to in args: %s", args)
	}
}

func TestTranscribe_Chunked(t *testing.T) {
	runner := &scriptedRunner{
		t:            t,
		durationSecs: 65,
		segmentsPer:  []string{"first", "second", "third"},
	}
	w, input := testWhisperCLI(t, runner)

	req := TranscribeRequest{
		InputPath:        input,
		Chunked:          true,
		ChunkLength:      30,
		EnableTimestamps: true,
	}
	text, err := w.Transcribe(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if len(runner.whisperCalls) != 3 {
		t.Fatalf("Expected 3 chunks for 65s at 30s, got %d", len(runner.whisperCalls))
	}
	// Chunk-relative offsets are shifted onto the recording's clock.
	for _, want := range []string{"[00:01] first", "[00:31] second", "[01:01] third"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in transcript %q", want, text)
		}
	}
}

func TestTranscribe_FFmpegFailure(t *testing.T) {
	runner := &scriptedRunner{t: t, failFFmpeg: true}
	w, input := testWhisperCLI(t, runner)

	_, err := w.Transcribe(context.Background(), TranscribeRequest{InputPath: input}, nil)
	if err == nil {
		t.Fatal("Expected error from ffmpeg failure")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("Expected StageError, got %T", err)
	}
	if stageErr.Stage != "preprocess" {
		t.Errorf("Expected preprocess stage, got %s", stageErr.Stage)
	}
	if !strings.Contains(stageErr.Error(), "Invalid data") {
		t.Errorf("Expected stderr tail in message: %s", stageErr.Error())
	}
}

func TestTranscribe_MissingInput(t *testing.T) {
	w := NewWhisperCLI("ffmpeg", "ffprobe", "whisper-cli", "model.bin")

	_, err := w.Transcribe(context.Background(), TranscribeRequest{InputPath: "/nonexistent/file.mp3"}, nil)
	if err == nil {
		t.Fatal("Expected error for missing input")
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds  float64
		expected string
	}{
		{0, "00:00"},
		{61.4, "01:01"},
		{599, "09:59"},
		{3600, "01:00:00"},
		{3725, "01:02:05"},
	}
	for _, tt := range tests {
		if got := formatTimestamp(tt.seconds); got != tt.expected {
			t.Errorf("formatTimestamp(%f) = %s, want %s", tt.seconds, got, tt.expected)
		}
	}
}
