package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/voskhod/whisperd/internal/domain"
)

// JobFilter narrows ListJobs results. Nil fields match everything; Archived
// is tri-state (true/false/unset=all).
type JobFilter struct {
	Type     *domain.JobType
	Status   *domain.JobStatus
	Archived *bool
}

// NewJob builds a pending job row ready for CreateJob.
func NewJob(jobType domain.JobType, inputRef string, params domain.JobParams) *domain.Job {
	now := time.Now()
	return &domain.Job{
		Type:      jobType,
		Status:    domain.JobStatusPending,
		InputRef:  inputRef,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (db *DB) CreateJob(job *domain.Job) error {
	query := `INSERT INTO jobs (job_type, status, input_ref, output_ref, progress, error_summary, params, archived, created_at, updated_at)
		VALUES (:job_type, :status, :input_ref, :output_ref, :progress, :error_summary, :params, :archived, :created_at, :updated_at)`

	res, err := db.NamedExec(query, job)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	job.ID = id
	return nil
}

func (db *DB) GetJob(id int64) (*domain.Job, error) {
	query := `SELECT id, job_type, status, input_ref, output_ref, progress, error_summary, params, archived, created_at, updated_at, completed_at
		FROM jobs WHERE id = ?`

	job := &domain.Job{}
	err := db.Get(job, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListJobs returns one page of jobs ordered by creation time descending,
// together with the total count matching the filter.
func (db *DB) ListJobs(filter JobFilter, limit, offset int) ([]*domain.Job, int, error) {
	var conds []string
	var args []interface{}

	if filter.Type != nil {
		conds = append(conds, "job_type = ?")
		args = append(args, *filter.Type)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Archived != nil {
		conds = append(conds, "archived = ?")
		args = append(args, *filter.Archived)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := db.Get(&total, "SELECT COUNT(*) FROM jobs"+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT id, job_type, status, input_ref, output_ref, progress, error_summary, params, archived, created_at, updated_at, completed_at
		FROM jobs%s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, where)
	args = append(args, limit, offset)

	var jobs []*domain.Job
	if err := db.Select(&jobs, query, args...); err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// MarkProcessing flips a job to processing before computation starts. The
// update is a row-level compare-and-set: it succeeds for pending jobs and
// for processing jobs being re-claimed after a worker death, never for
// terminal ones. Reports whether the transition was applied.
func (db *DB) MarkProcessing(id int64) (bool, error) {
	query := `UPDATE jobs SET status = ?, progress = 0, error_summary = NULL, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`
	res, err := db.Exec(query, domain.JobStatusProcessing, time.Now(), id, domain.JobStatusPending, domain.JobStatusProcessing)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateJobProgress records progress for an in-flight job. Writes are
// monotonic last-write-wins and ignored once the job left processing.
func (db *DB) UpdateJobProgress(id int64, progress float64) error {
	query := `UPDATE jobs SET progress = MAX(progress, ?), updated_at = ? WHERE id = ? AND status = ?`
	_, err := db.Exec(query, progress, time.Now(), id, domain.JobStatusProcessing)
	return err
}

// CompleteJob finalizes a successful execution. This is the last write for
// the job; only archive/delete may touch the row afterwards.
func (db *DB) CompleteJob(id int64, outputRef string) (bool, error) {
	now := time.Now()
	query := `UPDATE jobs SET status = ?, output_ref = ?, progress = 100, updated_at = ?, completed_at = ?
		WHERE id = ? AND status = ?`
	res, err := db.Exec(query, domain.JobStatusCompleted, outputRef, now, now, id, domain.JobStatusProcessing)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// FailJob records a failed execution with a readable cause. It applies to
// pending jobs too, so abandoned messages can be failed without a claim.
func (db *DB) FailJob(id int64, summary string) (bool, error) {
	now := time.Now()
	query := `UPDATE jobs SET status = ?, error_summary = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`
	res, err := db.Exec(query, domain.JobStatusFailed, summary, now, now, id, domain.JobStatusPending, domain.JobStatusProcessing)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SetArchived toggles the archive flag regardless of status. Reports
// whether the job exists.
func (db *DB) SetArchived(id int64, archived bool) (bool, error) {
	query := `UPDATE jobs SET archived = ?, updated_at = ? WHERE id = ?`
	res, err := db.Exec(query, archived, time.Now(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteJob removes the job row and any queue message still referencing it.
func (db *DB) DeleteJob(id int64) (bool, error) {
	if _, err := db.Exec(`DELETE FROM queue WHERE job_id = ?`, id); err != nil {
		return false, err
	}
	res, err := db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListStuckPending returns pending jobs older than the grace period that
// have no queue message, i.e. the registry write succeeded but the publish
// was lost. Used by the reconciliation sweep.
func (db *DB) ListStuckPending(grace time.Duration) ([]*domain.Job, error) {
	cutoff := time.Now().Add(-grace)
	query := `SELECT id, job_type, status, input_ref, output_ref, progress, error_summary, params, archived, created_at, updated_at, completed_at
		FROM jobs j
		WHERE j.status = ? AND j.created_at <= ?
		AND NOT EXISTS (SELECT 1 FROM queue q WHERE q.job_id = j.id)
		ORDER BY j.id ASC`

	var jobs []*domain.Job
	err := db.Select(&jobs, query, domain.JobStatusPending, cutoff)
	return jobs, err
}
