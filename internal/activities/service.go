package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/internal/notifications"
	"github.com/teamhuddle/backend/internal/realtime"
)

var (
	ErrNotFound            = errors.New("activity not found")
	ErrTitleRequired       = errors.New("title is required")
	ErrInvalidStatus       = errors.New("invalid activity status")
	ErrNotStarted          = errors.New("activity has not started yet")
	ErrCancelled           = errors.New("activity is cancelled")
	ErrPollAlreadyPromoted = errors.New("an activity already exists for this poll")
	ErrInvalidReference    = errors.New("invalid poll or option reference")
)

// Store is the persistence the activity service needs. Getters return nil when absent.
type Store interface {
	// Create rejects an option that is not part of the activity's poll with
	// ErrInvalidReference and resolves the linked poll in the same transaction.
	Create(ctx context.Context, a *models.Activity) error
	Get(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	List(ctx context.Context) ([]models.Activity, error)
	ListByStatus(ctx context.Context, status models.ActivityStatus) ([]models.Activity, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Activity, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.ActivityStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Recipients lists the profiles an announcement goes to.
type Recipients interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CreateInput holds the fields of a new activity.
type CreateInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Location     string     `json:"location"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	PollID       *uuid.UUID `json:"poll_id"`
	PollOptionID *uuid.UUID `json:"poll_option_id"`
}

// UpdateInput holds the fields to change; nil fields are kept.
type UpdateInput struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Location    *string                `json:"location"`
	ScheduledAt *time.Time             `json:"scheduled_at"`
	Status      *models.ActivityStatus `json:"status"`
}

// View is an activity with its derived display status.
type View struct {
	models.Activity
	DisplayStatus models.ActivityStatus `json:"display_status"`
}

// Service implements activity operations.
type Service struct {
	store      Store
	recipients Recipients
	notify     notifications.Dispatcher
	changes    realtime.Publisher
	now        func() time.Time
	logger     *zap.Logger
}

// NewService creates an activity service.
func NewService(store Store, recipients Recipients, notify notifications.Dispatcher, changes realtime.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = notifications.Nop{}
	}
	if changes == nil {
		changes = realtime.NopPublisher{}
	}
	return &Service{store: store, recipients: recipients, notify: notify, changes: changes, now: time.Now, logger: logger}
}

func (s *Service) view(a *models.Activity) View {
	return View{Activity: *a, DisplayStatus: a.DisplayStatus(s.now())}
}

// Create inserts an upcoming activity and announces it to everyone but the creator.
func (s *Service) Create(ctx context.Context, creator uuid.UUID, in CreateInput) (*View, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if in.PollOptionID != nil && in.PollID == nil {
		return nil, ErrInvalidReference
	}
	a := &models.Activity{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Location:     strings.TrimSpace(in.Location),
		ScheduledAt:  in.ScheduledAt,
		Status:       models.ActivityUpcoming,
		CreatedBy:    &creator,
		PollID:       in.PollID,
		PollOptionID: in.PollOptionID,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableActivities, a.ID, realtime.OpInsert))
	if a.PollID != nil {
		s.changes.Publish(ctx, realtime.NewChange(realtime.TablePolls, *a.PollID, realtime.OpUpdate))
	}
	s.announce(ctx, a)
	v := s.view(a)
	return &v, nil
}

func (s *Service) announce(ctx context.Context, a *models.Activity) {
	if s.recipients == nil {
		return
	}
	ids, err := s.recipients.ListIDs(ctx)
	if err != nil {
		s.logger.Warn("list notification recipients failed", zap.Error(err), zap.String("activity_id", a.ID.String()))
		return
	}
	if err := s.notify.Dispatch(ctx, notifications.ActivityCreated(a, ids)); err != nil {
		s.logger.Warn("activity notification failed", zap.Error(err), zap.String("activity_id", a.ID.String()))
	}
}

// Get returns one activity.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(a)
	return &v, nil
}

// Lookup returns the stored activity; used by participation and leaderboard.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	return a, nil
}

// List returns all activities with accepted counts and display status.
func (s *Service) List(ctx context.Context) ([]View, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(list))
	for i := range list {
		out = append(out, s.view(&list[i]))
	}
	return out, nil
}

// Completed returns completed activities, most recent first.
func (s *Service) Completed(ctx context.Context) ([]models.Activity, error) {
	return s.store.ListByStatus(ctx, models.ActivityCompleted)
}

// Update changes the given fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*View, error) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, ErrTitleRequired
		}
		in.Title = &t
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	a, err := s.store.Update(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	if a == nil {
		return nil, ErrNotFound
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableActivities, id, realtime.OpUpdate))
	v := s.view(a)
	return &v, nil
}

// Complete marks a started activity completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	a, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if a.Status == models.ActivityCancelled {
		return ErrCancelled
	}
	if !a.Started(s.now()) {
		return ErrNotStarted
	}
	return s.setStatus(ctx, id, models.ActivityCompleted)
}

// Cancel marks the activity cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, models.ActivityCancelled)
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status models.ActivityStatus) error {
	ok, err := s.store.SetStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableActivities, id, realtime.OpUpdate))
	return nil
}

// Delete removes the activity.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableActivities, id, realtime.OpDelete))
	return nil
}
