// Package app implements the job lifecycle: submission, querying, archive
// and delete, plus the reconciliation sweep that recovers lost publishes.
package app

import (
	"fmt"
	"path/filepath"

	"github.com/voskhod/whisperd/internal/artifact"
	"github.com/voskhod/whisperd/internal/constants"
	"github.com/voskhod/whisperd/internal/domain"
	"github.com/voskhod/whisperd/internal/logger"
	"github.com/voskhod/whisperd/internal/store"
)

// JobService coordinates the job registry, the queue, and the artifact
// store. Submission writes the registry row first and publishes the
// execution message second; a failed publish leaves the job pending for the
// reconciler to pick up.
type JobService struct {
	db    *store.DB
	files *artifact.Store
	log   *logger.Logger
}

func NewJobService(db *store.DB, files *artifact.Store, log *logger.Logger) *JobService {
	return &JobService{
		db:    db,
		files: files,
		log:   log.WithComponent("jobs"),
	}
}

// SubmitTranscribe creates a transcription job for a previously uploaded
// file and queues it for execution.
func (s *JobService) SubmitTranscribe(filename string, params domain.JobParams) (*domain.Job, error) {
	inputPath := s.files.UploadPath(filename)
	if !s.files.Exists(inputPath) {
		return nil, fmt.Errorf("file %q: %w", filename, domain.ErrNotFound)
	}

	if params.StartTime != nil && *params.StartTime < 0 {
		return nil, fmt.Errorf("start_time must not be negative: %w", domain.ErrInvalidPrecondition)
	}
	if params.StartTime != nil && params.EndTime != nil && *params.EndTime <= *params.StartTime {
		return nil, fmt.Errorf("end_time must be after start_time: %w", domain.ErrInvalidPrecondition)
	}
	if params.EnableChunked && params.ChunkLength <= 0 {
		params.ChunkLength = constants.DefaultChunkLength
	}

	return s.submit(domain.JobTypeTranscribe, inputPath, params)
}

// SubmitEnhance creates an enhancement job whose input is the completed
// output of an existing job. The source reference is resolved once here;
// later changes to the source job do not affect the new job.
func (s *JobService) SubmitEnhance(sourceID int64, params domain.JobParams) (*domain.Job, error) {
	source, err := s.db.GetJob(sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("source job %d: %w", sourceID, domain.ErrNotFound)
	}
	if source.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("source job %d is not completed: %w", sourceID, domain.ErrInvalidPrecondition)
	}
	if source.OutputRef == nil || !s.files.Exists(*source.OutputRef) {
		return nil, fmt.Errorf("source transcript for job %d: %w", sourceID, domain.ErrNotFound)
	}

	return s.submit(domain.JobTypeEnhance, *source.OutputRef, params)
}

func (s *JobService) submit(jobType domain.JobType, inputRef string, params domain.JobParams) (*domain.Job, error) {
	job := store.NewJob(jobType, inputRef, params)
	if err := s.db.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	msg := &store.Message{JobID: job.ID, Type: job.Type, InputRef: job.InputRef, Params: job.Params}
	if err := s.db.Enqueue(msg); err != nil {
		// The registry row survives; the reconciliation sweep republishes.
		s.log.WithJob(job.ID, string(job.Type)).Warn("Failed to publish job, leaving for reconciler", "error", err)
		return job, nil
	}

	s.log.WithJob(job.ID, string(job.Type)).Info("Job submitted")
	return job, nil
}

// Get returns a job by id.
func (s *JobService) Get(id int64) (*domain.Job, error) {
	job, err := s.db.GetJob(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %d: %w", id, domain.ErrNotFound)
	}
	return job, nil
}

// List returns one page of jobs and the total matching the filter. The
// limit is clamped to the configured maximum.
func (s *JobService) List(filter store.JobFilter, limit, offset int) ([]*domain.Job, int, error) {
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	if limit > constants.MaxListLimit {
		limit = constants.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.db.ListJobs(filter, limit, offset)
}

// GetResult materializes the output of a completed job.
func (s *JobService) GetResult(id int64) (*domain.Result, error) {
	job, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("job %d is not completed: %w", id, domain.ErrInvalidState)
	}
	if job.OutputRef == nil || !s.files.Exists(*job.OutputRef) {
		return nil, fmt.Errorf("output for job %d: %w", id, domain.ErrNotFound)
	}

	content, err := s.files.ReadTranscript(*job.OutputRef)
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	return &domain.Result{
		JobID:         job.ID,
		Filename:      filepath.Base(job.InputRef),
		OutputPath:    *job.OutputRef,
		Content:       content,
		HasTimestamps: job.Params.EnableTimestamp,
	}, nil
}

// ResultPath returns the output artifact path of a completed job, for
// direct download.
func (s *JobService) ResultPath(id int64) (string, error) {
	job, err := s.Get(id)
	if err != nil {
		return "", err
	}
	if job.Status != domain.JobStatusCompleted {
		return "", fmt.Errorf("job %d is not completed: %w", id, domain.ErrInvalidState)
	}
	if job.OutputRef == nil || !s.files.Exists(*job.OutputRef) {
		return "", fmt.Errorf("output for job %d: %w", id, domain.ErrNotFound)
	}
	return *job.OutputRef, nil
}

// Archive hides a job from default listings. Archiving an archived job is a
// no-op; the job keeps running if it is in flight.
func (s *JobService) Archive(id int64) error {
	return s.setArchived(id, true)
}

// Unarchive restores a job to default listings.
func (s *JobService) Unarchive(id int64) error {
	return s.setArchived(id, false)
}

func (s *JobService) setArchived(id int64, archived bool) error {
	exists, err := s.db.SetArchived(id, archived)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("job %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a job, its queue message, and its output artifact. Uploaded
// inputs are kept; other jobs may reference them. A worker holding the job
// mid-flight finds the row gone when it tries to finalize and drops the
// result.
func (s *JobService) Delete(id int64) error {
	job, err := s.Get(id)
	if err != nil {
		return err
	}

	if job.OutputRef != nil {
		if err := s.files.Remove(*job.OutputRef); err != nil {
			s.log.WithJob(id, string(job.Type)).Warn("Failed to remove output artifact", "error", err)
		}
	}

	deleted, err := s.db.DeleteJob(id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("job %d: %w", id, domain.ErrNotFound)
	}

	s.log.WithJob(id, string(job.Type)).Info("Job deleted")
	return nil
}

// QueueDepth exposes the broker backlog for the health endpoint.
func (s *JobService) QueueDepth() (int, error) {
	return s.db.QueueDepth()
}
