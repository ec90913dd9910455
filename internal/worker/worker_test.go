package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/internal/notifications"
	"github.com/teamhuddle/backend/internal/polls"
	"github.com/teamhuddle/backend/pkg/queue"
	"github.com/teamhuddle/backend/pkg/redis"
)

type countingSweeper struct {
	mu     sync.Mutex
	calls  int
	actors []*uuid.UUID
	err    error
}

func (c *countingSweeper) ProcessExpired(_ context.Context, actor *uuid.UUID) (polls.SweepSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.actors = append(c.actors, actor)
	return polls.SweepSummary{Checked: 1, Promoted: 1}, c.err
}

func (c *countingSweeper) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type memLock struct {
	mu   sync.Mutex
	held bool
}

func (l *memLock) TryAcquire(context.Context, time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, redis.ErrLockHeld
	}
	l.held = true
	return func() {
		l.mu.Lock()
		l.held = false
		l.mu.Unlock()
	}, nil
}

type memWriter struct{ rows []models.Notification }

func (w *memWriter) InsertMany(_ context.Context, ns []models.Notification) (int64, error) {
	w.rows = append(w.rows, ns...)
	return int64(len(ns)), nil
}

type sliceJobs struct {
	mu      sync.Mutex
	pending []*queue.Job
	retried []*queue.Job
}

func (s *sliceJobs) Dequeue(ctx context.Context) (*queue.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, nil
	}
	j := s.pending[0]
	s.pending = s.pending[1:]
	return j, nil
}

func (s *sliceJobs) Retry(_ context.Context, j *queue.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.Attempt++
	s.retried = append(s.retried, j)
	return nil
}

func TestGuardedSweepSkipsWhenLocked(t *testing.T) {
	sw := &countingSweeper{}
	lock := &memLock{}
	g := NewGuardedSweep(sw, lock, time.Second, nil)

	_, ran, err := g.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, lock.held)

	release, err := lock.TryAcquire(context.Background(), time.Second)
	require.NoError(t, err)
	_, ran, err = g.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ran)
	release()

	assert.Equal(t, 1, sw.count())
}

func TestProcessJobs(t *testing.T) {
	sw := &countingSweeper{}
	w := &memWriter{}
	p := NewProcessor(NewGuardedSweep(sw, &memLock{}, time.Second, nil), w, &sliceJobs{}, nil)
	ctx := context.Background()

	actor := uuid.New()
	job, err := queue.NewJob(queue.JobTypePromotionSweep, polls.SweepJob{ActorID: &actor})
	require.NoError(t, err)
	require.NoError(t, p.Process(ctx, job))
	require.Len(t, sw.actors, 1)
	assert.Equal(t, actor, *sw.actors[0])

	ns := []models.Notification{{UserID: uuid.New(), Title: "t", Message: "m", Type: models.NotificationActivityCreated}}
	job, err = queue.NewJob(queue.JobTypeNotification, notifications.Batch{Notifications: ns})
	require.NoError(t, err)
	require.NoError(t, p.Process(ctx, job))
	require.Len(t, w.rows, 1)
	assert.Equal(t, ns[0].UserID, w.rows[0].UserID)

	assert.Error(t, p.Process(ctx, &queue.Job{Type: "mystery"}))
}

func TestRunRetriesFailedJobs(t *testing.T) {
	sw := &countingSweeper{err: errors.New("db down")}
	job, err := queue.NewJob(queue.JobTypePromotionSweep, polls.SweepJob{})
	require.NoError(t, err)
	jobs := &sliceJobs{pending: []*queue.Job{job}}
	p := NewProcessor(NewGuardedSweep(sw, &memLock{}, time.Second, nil), &memWriter{}, jobs, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		jobs.mu.Lock()
		defer jobs.mu.Unlock()
		return len(jobs.retried) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, jobs.retried[0].Attempt)
}

func TestSchedulerSweepsOnStartAndTick(t *testing.T) {
	sw := &countingSweeper{}
	s := NewScheduler(NewGuardedSweep(sw, &memLock{}, time.Second, nil), 10*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return sw.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
