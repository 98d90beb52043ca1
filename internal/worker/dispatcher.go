// Package worker runs queued jobs: it claims messages, drives the matching
// handler, reports progress, and finalizes the registry row.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/voskhod/whisperd/internal/domain"
)

// ErrUnknownJobType is returned when no handler is registered for a
// message's job type.
var ErrUnknownJobType = errors.New("unknown job type")

// JobHandler executes one job and returns the output artifact path. The
// progress callback takes a 0-100 value; calls may be coalesced or dropped.
type JobHandler interface {
	Handle(ctx context.Context, job *domain.Job, progress func(float64)) (string, error)
}

// Dispatcher routes jobs to their registered handler by type.
type Dispatcher struct {
	handlers map[domain.JobType]JobHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[domain.JobType]JobHandler)}
}

func (d *Dispatcher) Register(jobType domain.JobType, h JobHandler) {
	d.handlers[jobType] = h
}

func (d *Dispatcher) Dispatch(ctx context.Context, job *domain.Job, progress func(float64)) (string, error) {
	h, ok := d.handlers[job.Type]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
	return h.Handle(ctx, job, progress)
}
