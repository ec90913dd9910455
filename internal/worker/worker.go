package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/notifications"
	"github.com/teamhuddle/backend/internal/polls"
	"github.com/teamhuddle/backend/pkg/queue"
)

// JobSource yields jobs and takes failed ones back.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Processor executes queued jobs: promotion sweeps and notification batches.
type Processor struct {
	sweep   *GuardedSweep
	writer  notifications.Writer
	jobs    JobSource
	backoff time.Duration
	logger  *zap.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(sweep *GuardedSweep, writer notifications.Writer, jobs JobSource, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{sweep: sweep, writer: writer, jobs: jobs, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypePromotionSweep:
		var payload polls.SweepJob
		if err := job.Decode(&payload); err != nil {
			return err
		}
		sum, ran, err := p.sweep.Run(ctx, payload.ActorID)
		if err != nil {
			return fmt.Errorf("promotion sweep: %w", err)
		}
		p.logger.Info("promotion sweep job done", zap.String("job_id", job.ID), zap.Bool("ran", ran), zap.Int("promoted", sum.Promoted))
		return nil
	case queue.JobTypeNotification:
		var batch notifications.Batch
		if err := job.Decode(&batch); err != nil {
			return err
		}
		n, err := p.writer.InsertMany(ctx, batch.Notifications)
		if err != nil {
			return fmt.Errorf("write notifications: %w", err)
		}
		p.logger.Debug("notifications written", zap.String("job_id", job.ID), zap.Int64("count", n))
		return nil
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("job worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *Processor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
