package notifications

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/queue"
)

// Dispatcher delivers notifications. Failures are reported but callers treat
// delivery as best effort once their own write has committed.
type Dispatcher interface {
	Dispatch(ctx context.Context, ns []models.Notification) error
}

// Writer persists notification rows.
type Writer interface {
	InsertMany(ctx context.Context, ns []models.Notification) (int64, error)
}

// Enqueuer pushes background jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, payload interface{}) error
}

// Batch is the payload of a notification job.
type Batch struct {
	Notifications []models.Notification `json:"notifications"`
}

// QueueDispatcher hands notifications to the worker via the job queue.
type QueueDispatcher struct {
	q      Enqueuer
	logger *zap.Logger
}

// NewQueueDispatcher creates a dispatcher backed by the job queue.
func NewQueueDispatcher(q Enqueuer, logger *zap.Logger) *QueueDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueDispatcher{q: q, logger: logger}
}

// Dispatch enqueues one notification job for the whole batch.
func (d *QueueDispatcher) Dispatch(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	if err := d.q.Enqueue(ctx, queue.JobTypeNotification, Batch{Notifications: ns}); err != nil {
		return fmt.Errorf("enqueue notifications: %w", err)
	}
	d.logger.Debug("notifications enqueued", zap.Int("count", len(ns)))
	return nil
}

// DirectDispatcher writes rows synchronously.
type DirectDispatcher struct {
	w Writer
}

// NewDirectDispatcher creates a dispatcher that writes immediately.
func NewDirectDispatcher(w Writer) *DirectDispatcher {
	return &DirectDispatcher{w: w}
}

// Dispatch writes the batch.
func (d *DirectDispatcher) Dispatch(ctx context.Context, ns []models.Notification) error {
	_, err := d.w.InsertMany(ctx, ns)
	return err
}

// Nop discards notifications.
type Nop struct{}

// Dispatch does nothing.
func (Nop) Dispatch(context.Context, []models.Notification) error { return nil }
