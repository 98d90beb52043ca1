// Package dto defines the JSON request and response shapes of the API.
package dto

import (
	"fmt"
	"strings"

	"github.com/voskhod/whisperd/internal/domain"
)

// TranscribeRequest creates a transcription job for an uploaded file.
type TranscribeRequest struct {
	Filename          string   `json:"filename"`
	StartTime         *float64 `json:"start_time,omitempty"`
	EndTime           *float64 `json:"end_time,omitempty"`
	EnableTimestamp   bool     `json:"enable_timestamp,omitempty"`
	EnableChunked     bool     `json:"enable_chunked,omitempty"`
	ChunkLength       int      `json:"chunk_length,omitempty"`
	TranslateTo       string   `json:"translate_to,omitempty"`
	AutoEnhance       bool     `json:"auto_enhance,omitempty"`
	EnhancementPrompt string   `json:"enhancement_prompt,omitempty"`
}

func (r *TranscribeRequest) Validate() error {
	if strings.TrimSpace(r.Filename) == "" {
		return fmt.Errorf("filename is required")
	}
	if r.ChunkLength < 0 {
		return fmt.Errorf("chunk_length must not be negative")
	}
	return nil
}

// Params converts the request into the job's frozen parameter snapshot.
func (r *TranscribeRequest) Params() domain.JobParams {
	return domain.JobParams{
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		EnableTimestamp:   r.EnableTimestamp,
		EnableChunked:     r.EnableChunked,
		ChunkLength:       r.ChunkLength,
		TranslateTo:       r.TranslateTo,
		AutoEnhance:       r.AutoEnhance,
		EnhancementPrompt: r.EnhancementPrompt,
	}
}

// EnhanceRequest creates an enhancement job from a completed job's output.
type EnhanceRequest struct {
	JobID             int64  `json:"job_id"`
	EnhancementPrompt string `json:"enhancement_prompt,omitempty"`
	TranslateTo       string `json:"translate_to,omitempty"`
}

func (r *EnhanceRequest) Validate() error {
	if r.JobID <= 0 {
		return fmt.Errorf("job_id is required")
	}
	return nil
}

func (r *EnhanceRequest) Params() domain.JobParams {
	return domain.JobParams{
		EnhancementPrompt: r.EnhancementPrompt,
		TranslateTo:       r.TranslateTo,
	}
}
