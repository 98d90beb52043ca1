package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/voskhod/whisperd/internal/artifact"
	"github.com/voskhod/whisperd/internal/domain"
	"github.com/voskhod/whisperd/internal/engine"
)

// EnhanceHandler rewrites a completed transcript through the enhancement
// engine and writes the result as a new markdown artifact. The source
// artifact is left untouched.
type EnhanceHandler struct {
	enhancer engine.Enhancer
	files    *artifact.Store
}

func NewEnhanceHandler(enhancer engine.Enhancer, files *artifact.Store) *EnhanceHandler {
	return &EnhanceHandler{enhancer: enhancer, files: files}
}

func (h *EnhanceHandler) Handle(ctx context.Context, job *domain.Job, progress func(float64)) (string, error) {
	markdown, err := h.files.ReadTranscript(job.InputRef)
	if err != nil {
		return "", fmt.Errorf("failed to read source transcript: %w", err)
	}
	progress(20)

	transcript := artifact.TranscriptContent(markdown)
	if transcript == "" {
		return "", fmt.Errorf("source transcript is empty")
	}
	hadTimestamps := strings.Contains(markdown, "**Timestamps:** Enabled")
	progress(30)

	enhanced, err := h.enhancer.Enhance(ctx, transcript, job.Params.EnhancementPrompt, job.Params.TranslateTo)
	if err != nil {
		return "", err
	}
	progress(80)

	outputRef, err := h.files.WriteTranscript(artifact.Stem(job.InputRef), job.ID, enhanced, artifact.TranscriptMeta{
		SourceName: filepath.Base(job.InputRef),
		Timestamps: hadTimestamps,
		Enhanced:   true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to write enhanced transcript: %w", err)
	}
	progress(95)
	return outputRef, nil
}
