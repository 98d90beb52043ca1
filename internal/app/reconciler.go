package app

import (
	"context"
	"time"

	"github.com/voskhod/whisperd/internal/logger"
	"github.com/voskhod/whisperd/internal/store"
)

// Reconciler periodically republishes jobs whose registry write succeeded
// but whose queue publish was lost. Enqueue is idempotent per job, so a
// sweep racing a late publish is harmless.
type Reconciler struct {
	db       *store.DB
	log      *logger.Logger
	interval time.Duration
	grace    time.Duration
}

func NewReconciler(db *store.DB, log *logger.Logger, interval, grace time.Duration) *Reconciler {
	return &Reconciler{
		db:       db,
		log:      log.WithComponent("reconciler"),
		interval: interval,
		grace:    grace,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.Sweep(); err != nil {
				r.log.Error("Sweep failed", "error", err)
			} else if n > 0 {
				r.log.Info("Republished stuck jobs", "count", n)
			}
		}
	}
}

// Sweep republishes pending jobs older than the grace period that have no
// queue message, and returns how many were republished.
func (r *Reconciler) Sweep() (int, error) {
	jobs, err := r.db.ListStuckPending(r.grace)
	if err != nil {
		return 0, err
	}

	republished := 0
	for _, job := range jobs {
		msg := &store.Message{JobID: job.ID, Type: job.Type, InputRef: job.InputRef, Params: job.Params}
		if err := r.db.Enqueue(msg); err != nil {
			r.log.WithJob(job.ID, string(job.Type)).Error("Failed to republish", "error", err)
			continue
		}
		republished++
	}
	return republished, nil
}
