package worker

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/voskhod/whisperd/internal/artifact"
	"github.com/voskhod/whisperd/internal/domain"
	"github.com/voskhod/whisperd/internal/engine"
)

// TranscribeHandler runs speech-to-text over an uploaded audio file and
// writes the transcript as a markdown artifact.
type TranscribeHandler struct {
	transcriber engine.Transcriber
	files       *artifact.Store
}

func NewTranscribeHandler(transcriber engine.Transcriber, files *artifact.Store) *TranscribeHandler {
	return &TranscribeHandler{transcriber: transcriber, files: files}
}

func (h *TranscribeHandler) Handle(ctx context.Context, job *domain.Job, progress func(float64)) (string, error) {
	req := engine.TranscribeRequest{
		InputPath:        job.InputRef,
		StartTime:        job.Params.StartTime,
		EndTime:          job.Params.EndTime,
		EnableTimestamps: job.Params.EnableTimestamp,
		Chunked:          job.Params.EnableChunked,
		ChunkLength:      job.Params.ChunkLength,
	}

	// Engine progress covers 0-90; the artifact write takes the rest.
	text, err := h.transcriber.Transcribe(ctx, req, func(p float64) {
		progress(p * 0.9)
	})
	if err != nil {
		return "", err
	}

	outputRef, err := h.files.WriteTranscript(artifact.Stem(job.InputRef), job.ID, text, artifact.TranscriptMeta{
		SourceName: filepath.Base(job.InputRef),
		Timestamps: job.Params.EnableTimestamp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to write transcript: %w", err)
	}
	progress(95)
	return outputRef, nil
}
