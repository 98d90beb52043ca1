package dto

import (
	"github.com/voskhod/whisperd/internal/domain"
)

// UploadResponse describes a stored upload.
type UploadResponse struct {
	Filename string   `json:"filename"`
	Size     int64    `json:"size"`
	Duration *float64 `json:"duration,omitempty"`
}

// JobListResponse is one page of jobs plus the total matching the filter.
type JobListResponse struct {
	Jobs  []*domain.Job `json:"jobs"`
	Total int           `json:"total"`
}

// ResultResponse carries a completed job's output content.
type ResultResponse struct {
	JobID         int64  `json:"job_id"`
	Filename      string `json:"filename"`
	AudioURL      string `json:"audio_url,omitempty"`
	Content       string `json:"content"`
	HasTimestamps bool   `json:"has_timestamps"`
}

// MessageResponse is a minimal acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the error envelope for all failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports service liveness and queue backlog.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	QueueDepth int    `json:"queue_depth"`
}
