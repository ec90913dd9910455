package participation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/internal/notifications"
	"github.com/teamhuddle/backend/internal/realtime"
)

var (
	ErrInvalidStatus    = errors.New("status must be accepted or rejected")
	ErrReasonRequired   = errors.New("a reason is required when declining")
	ErrActivityNotFound = errors.New("activity not found")
	ErrActivityClosed   = errors.New("activity no longer takes responses")
)

// Store is the RSVP persistence.
type Store interface {
	Upsert(ctx context.Context, p *models.Participation) error
	ListForActivity(ctx context.Context, activityID uuid.UUID) ([]models.Participation, error)
	AcceptedCount(ctx context.Context, activityID uuid.UUID) (int, error)
}

// ActivityLookup returns an activity, or nil when absent.
type ActivityLookup interface {
	Lookup(ctx context.Context, id uuid.UUID) (*models.Activity, error)
}

// ProfileLookup returns a profile, or nil when absent.
type ProfileLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// Service records responses to activities.
type Service struct {
	store      Store
	activities ActivityLookup
	profiles   ProfileLookup
	notify     notifications.Dispatcher
	changes    realtime.Publisher
	logger     *zap.Logger
}

// NewService creates a participation service.
func NewService(store Store, activities ActivityLookup, profiles ProfileLookup, notify notifications.Dispatcher, changes realtime.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = notifications.Nop{}
	}
	if changes == nil {
		changes = realtime.NopPublisher{}
	}
	return &Service{store: store, activities: activities, profiles: profiles, notify: notify, changes: changes, logger: logger}
}

// Respond records or replaces the user's RSVP. A reason is required to decline
// and dropped on accept.
func (s *Service) Respond(ctx context.Context, activityID, userID uuid.UUID, status models.ParticipationStatus, reason string) (*models.Participation, error) {
	switch status {
	case models.ParticipationAccepted:
		reason = ""
	case models.ParticipationRejected:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, ErrReasonRequired
		}
	default:
		return nil, ErrInvalidStatus
	}

	a, err := s.activities.Lookup(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if a == nil {
		return nil, ErrActivityNotFound
	}
	if a.Status.Final() {
		return nil, ErrActivityClosed
	}

	p := &models.Participation{ActivityID: activityID, UserID: userID, Status: status, RejectionReason: reason}
	if err := s.store.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableParticipation, p.ID, realtime.OpUpdate))

	if a.CreatedBy != nil && *a.CreatedBy != userID {
		name := ""
		if s.profiles != nil {
			if prof, err := s.profiles.GetByID(ctx, userID); err == nil && prof != nil {
				name = prof.FullName
			}
		}
		if err := s.notify.Dispatch(ctx, notifications.ParticipationResponse(a, name, status)); err != nil {
			s.logger.Warn("participation notification failed", zap.Error(err), zap.String("activity_id", activityID.String()))
		}
	}
	return p, nil
}

// List returns the activity's responses.
func (s *Service) List(ctx context.Context, activityID uuid.UUID) ([]models.Participation, error) {
	return s.store.ListForActivity(ctx, activityID)
}

// AcceptedCount returns the number of accepted responses.
func (s *Service) AcceptedCount(ctx context.Context, activityID uuid.UUID) (int, error) {
	return s.store.AcceptedCount(ctx, activityID)
}
