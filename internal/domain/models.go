package domain

import (
	"time"
)

type JobType string

const (
	JobTypeTranscribe JobType = "transcribe"
	JobTypeEnhance    JobType = "enhance"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents one unit of submitted work (transcription or enhancement).
// Params are frozen at creation; only status, progress, output/error fields
// and the archived flag change afterwards.
type Job struct {
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	OutputRef    *string    `json:"output_ref,omitempty" db:"output_ref"`
	ErrorSummary *string    `json:"error_summary,omitempty" db:"error_summary"`
	InputRef     string     `json:"input_ref" db:"input_ref"`
	Type         JobType    `json:"job_type" db:"job_type"`
	Status       JobStatus  `json:"status" db:"status"`
	Params       JobParams  `json:"params" db:"params"`
	Progress     float64    `json:"progress" db:"progress"`
	ID           int64      `json:"id" db:"id"`
	Archived     bool       `json:"archived" db:"archived"`
}

// Terminal reports whether the job has reached a final status.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Result is the materialized output of a completed job.
type Result struct {
	JobID         int64  `json:"job_id"`
	Filename      string `json:"filename"`
	OutputPath    string `json:"output_path"`
	Content       string `json:"content"`
	HasTimestamps bool   `json:"has_timestamps"`
}
