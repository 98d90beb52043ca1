package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voskhod/whisperd/internal/constants"
	"github.com/voskhod/whisperd/internal/domain"
	"github.com/voskhod/whisperd/internal/logger"
	"github.com/voskhod/whisperd/internal/store"
)

// Chainer submits the follow-up enhancement job after an auto-enhance
// transcription completes.
type Chainer interface {
	SubmitEnhance(sourceID int64, params domain.JobParams) (*domain.Job, error)
}

// Pool polls the queue and runs claimed jobs concurrently. Each claimed
// message is heartbeated while its handler runs, then acked once the job
// reaches a terminal status.
type Pool struct {
	ctx          context.Context
	cancel       context.CancelFunc
	db           *store.DB
	dispatcher   *Dispatcher
	chainer      Chainer
	logger       *logger.Logger
	wg           sync.WaitGroup
	pollInterval time.Duration
	visibility   time.Duration
	hardTimeout  time.Duration
	concurrency  int
}

func NewPool(db *store.DB, dispatcher *Dispatcher, chainer Chainer, log *logger.Logger, concurrency int, hardTimeout time.Duration) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.Default()
	}
	if concurrency < 1 {
		concurrency = constants.DefaultConcurrency
	}

	return &Pool{
		ctx:          ctx,
		cancel:       cancel,
		db:           db,
		dispatcher:   dispatcher,
		chainer:      chainer,
		logger:       log.WithComponent("worker"),
		pollInterval: constants.DefaultPollInterval,
		visibility:   constants.VisibilityTimeout,
		hardTimeout:  hardTimeout,
		concurrency:  concurrency,
	}
}

func (p *Pool) Start() {
	p.logger.Info("Starting worker pool", "concurrency", p.concurrency)
	p.wg.Add(1)
	go p.poll()
}

func (p *Pool) Stop() {
	p.logger.Info("Stopping worker pool")
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) poll() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, p.concurrency)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			// Drain visible messages up to free capacity.
			for {
				claimed, err := p.claimWithSlot(sem)
				if err != nil {
					p.logger.Error("Failed to claim message", "error", err)
					break
				}
				if claimed == nil {
					break
				}

				p.wg.Add(1)
				go func(c *store.Claimed) {
					defer p.wg.Done()
					defer func() { <-sem }()
					p.runClaimed(c)
				}(claimed)
			}
		}
	}
}

// claimWithSlot claims only while a concurrency slot is free; the slot is
// released by the job goroutine, or here when nothing was claimed.
func (p *Pool) claimWithSlot(sem chan struct{}) (*store.Claimed, error) {
	select {
	case sem <- struct{}{}:
	default:
		return nil, nil
	}

	claimed, err := p.db.Claim(p.visibility)
	if err != nil || claimed == nil {
		<-sem
		return nil, err
	}
	return claimed, nil
}

func (p *Pool) runClaimed(claimed *store.Claimed) {
	log := p.logger.WithJob(claimed.JobID, string(claimed.Type))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in job", "panic", r)
			_, _ = p.db.FailJob(claimed.JobID, fmt.Sprintf("panic: %v", r))
			_ = p.db.Ack(claimed.Token)
		}
	}()

	job, err := p.db.GetJob(claimed.JobID)
	if err != nil {
		log.Error("Failed to load job", "error", err)
		return
	}
	if job == nil || job.Terminal() {
		// Deleted or already finalized by an earlier delivery.
		_ = p.db.Ack(claimed.Token)
		return
	}

	if claimed.Attempts > constants.MaxDeliveries {
		log.Warn("Message exceeded delivery limit", "attempts", claimed.Attempts)
		_, _ = p.db.FailJob(job.ID, fmt.Sprintf("abandoned after %d deliveries", claimed.Attempts-1))
		_ = p.db.Ack(claimed.Token)
		return
	}

	applied, err := p.db.MarkProcessing(job.ID)
	if err != nil {
		log.Error("Failed to mark job processing", "error", err)
		return
	}
	if !applied {
		_ = p.db.Ack(claimed.Token)
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.hardTimeout)
	defer cancel()

	stopHeartbeat := p.heartbeat(ctx, claimed.Token)
	defer stopHeartbeat()

	log.Info("Running job", "attempt", claimed.Attempts)

	outputRef, err := p.dispatcher.Dispatch(ctx, job, p.progressFunc(job.ID))
	if err != nil {
		log.Error("Job failed", "error", err)
		_, _ = p.db.FailJob(job.ID, err.Error())
		_ = p.db.Ack(claimed.Token)
		return
	}

	completed, err := p.db.CompleteJob(job.ID, outputRef)
	if err != nil {
		log.Error("Failed to finalize job", "error", err)
		return
	}
	if !completed {
		// Row deleted mid-flight; drop the result.
		log.Warn("Job vanished before completion, dropping result")
		_ = p.db.Ack(claimed.Token)
		return
	}
	_ = p.db.Ack(claimed.Token)

	log.Info("Job completed")

	if job.Type == domain.JobTypeTranscribe && job.Params.AutoEnhance && p.chainer != nil {
		chained, err := p.chainer.SubmitEnhance(job.ID, domain.JobParams{
			EnhancementPrompt: job.Params.EnhancementPrompt,
			TranslateTo:       job.Params.TranslateTo,
		})
		if err != nil {
			log.Error("Failed to submit auto-enhance job", "error", err)
		} else {
			log.Info("Auto-enhance job submitted", "enhance_job_id", chained.ID)
		}
	}
}

// heartbeat extends the claim's visibility while the handler runs. The
// returned stop function blocks until the goroutine exits.
func (p *Pool) heartbeat(ctx context.Context, token string) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(p.visibility / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if err := p.db.ExtendClaim(token, p.visibility); err != nil {
					p.logger.Error("Failed to extend claim", "error", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

// progressFunc writes handler progress to the registry, rate-limited so
// chatty handlers do not hammer the database. Values only move forward.
func (p *Pool) progressFunc(jobID int64) func(float64) {
	var mu sync.Mutex
	var lastWrite time.Time
	var lastValue float64

	return func(progress float64) {
		mu.Lock()
		defer mu.Unlock()

		if progress <= lastValue {
			return
		}
		now := time.Now()
		if now.Sub(lastWrite) < constants.ProgressWriteInterval && progress < 100 {
			return
		}
		lastValue = progress
		lastWrite = now

		if err := p.db.UpdateJobProgress(jobID, progress); err != nil {
			p.logger.Error("Failed to write progress", "job_id", jobID, "error", err)
		}
	}
}
