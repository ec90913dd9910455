package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/polls"
	"github.com/teamhuddle/backend/pkg/redis"
)

// SweepLockKey serializes promotion sweeps across workers.
const SweepLockKey = "locks:promotion_sweep"

// Sweeper runs the promotion rule over active polls.
type Sweeper interface {
	ProcessExpired(ctx context.Context, actor *uuid.UUID) (polls.SweepSummary, error)
}

// Locker grants a single-holder lease.
type Locker interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (release func(), err error)
}

// GuardedSweep runs a sweep only while holding the sweep lock.
type GuardedSweep struct {
	sweeper Sweeper
	lock    Locker
	ttl     time.Duration
	logger  *zap.Logger
}

// NewGuardedSweep creates a lock-guarded sweep. ttl bounds how long a crashed holder blocks others.
func NewGuardedSweep(sweeper Sweeper, lock Locker, ttl time.Duration, logger *zap.Logger) *GuardedSweep {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardedSweep{sweeper: sweeper, lock: lock, ttl: ttl, logger: logger}
}

// Run sweeps once. ran is false when another worker holds the lock.
func (g *GuardedSweep) Run(ctx context.Context, actor *uuid.UUID) (sum polls.SweepSummary, ran bool, err error) {
	release, err := g.lock.TryAcquire(ctx, g.ttl)
	if errors.Is(err, redis.ErrLockHeld) {
		g.logger.Debug("promotion sweep already running elsewhere")
		return sum, false, nil
	}
	if err != nil {
		return sum, false, err
	}
	defer release()

	start := time.Now()
	sum, err = g.sweeper.ProcessExpired(ctx, actor)
	if err != nil {
		return sum, true, err
	}
	if sum.Promoted > 0 || sum.Failed > 0 {
		g.logger.Info("promotion sweep finished",
			zap.Int("checked", sum.Checked),
			zap.Int("promoted", sum.Promoted),
			zap.Int("skipped", sum.Skipped),
			zap.Int("failed", sum.Failed),
			zap.Duration("took", time.Since(start)),
		)
	}
	return sum, true, nil
}

// Scheduler ticks the guarded sweep at a fixed interval.
type Scheduler struct {
	sweep    *GuardedSweep
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(sweep *GuardedSweep, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{sweep: sweep, interval: interval, logger: logger}
}

// Run sweeps immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("promotion scheduler started", zap.Duration("interval", s.interval))
	for {
		if _, _, err := s.sweep.Run(ctx, nil); err != nil && ctx.Err() == nil {
			s.logger.Error("promotion sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info("promotion scheduler stopping")
			return
		case <-ticker.C:
		}
	}
}
