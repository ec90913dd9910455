package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/internal/notifications"
	"github.com/teamhuddle/backend/internal/realtime"
)

var (
	ErrActivityNotFound     = errors.New("activity not found")
	ErrActivityNotCompleted = errors.New("activity must be completed before ranking")
	ErrInvalidRank          = errors.New("rank must be at least 1")
)

// Store is the leaderboard persistence.
type Store interface {
	Upsert(ctx context.Context, e *models.LeaderboardEntry) error
	Delete(ctx context.Context, activityID, userID uuid.UUID) (bool, error)
	Standings(ctx context.Context, activityID uuid.UUID) ([]models.Standing, error)
}

// Activities finds activities to rank.
type Activities interface {
	Lookup(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	Completed(ctx context.Context) ([]models.Activity, error)
}

// Action is what SetRank did.
type Action string

const (
	ActionSet       Action = "set"
	ActionCleared   Action = "cleared"
	ActionUnchanged Action = "unchanged"
)

// SetResult reports the outcome of SetRank. Entry is nil unless a rank was stored.
type SetResult struct {
	Action Action                   `json:"action"`
	Entry  *models.LeaderboardEntry `json:"entry,omitempty"`
}

// Service assigns and reads ranks.
type Service struct {
	store      Store
	activities Activities
	notify     notifications.Dispatcher
	changes    realtime.Publisher
	logger     *zap.Logger
}

// NewService creates a leaderboard service.
func NewService(store Store, activities Activities, notify notifications.Dispatcher, changes realtime.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = notifications.Nop{}
	}
	if changes == nil {
		changes = realtime.NopPublisher{}
	}
	return &Service{store: store, activities: activities, notify: notify, changes: changes, logger: logger}
}

// SetRank stores, replaces or clears a participant's rank on a completed activity.
// A nil rank clears an existing entry and is a no-op otherwise. Ties are allowed.
func (s *Service) SetRank(ctx context.Context, activityID, userID uuid.UUID, rank *int, marker uuid.UUID) (*SetResult, error) {
	if rank != nil && *rank < 1 {
		return nil, ErrInvalidRank
	}
	a, err := s.activities.Lookup(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if a == nil {
		return nil, ErrActivityNotFound
	}
	if a.Status != models.ActivityCompleted {
		return nil, ErrActivityNotCompleted
	}

	if rank == nil {
		deleted, err := s.store.Delete(ctx, activityID, userID)
		if err != nil {
			return nil, fmt.Errorf("clear rank: %w", err)
		}
		if !deleted {
			return &SetResult{Action: ActionUnchanged}, nil
		}
		s.changes.Publish(ctx, realtime.NewChange(realtime.TableLeaderboard, activityID, realtime.OpDelete))
		return &SetResult{Action: ActionCleared}, nil
	}

	e := &models.LeaderboardEntry{ActivityID: activityID, UserID: userID, Rank: *rank, MarkedBy: &marker}
	if err := s.store.Upsert(ctx, e); err != nil {
		return nil, fmt.Errorf("save rank: %w", err)
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableLeaderboard, e.ID, realtime.OpUpdate))
	if err := s.notify.Dispatch(ctx, notifications.LeaderboardMarked(a, userID, *rank)); err != nil {
		s.logger.Warn("leaderboard notification failed", zap.Error(err), zap.String("activity_id", activityID.String()))
	}
	return &SetResult{Action: ActionSet, Entry: e}, nil
}

// Board returns the activity with accepted participants, ranked first.
func (s *Service) Board(ctx context.Context, activityID uuid.UUID) (*models.Board, error) {
	a, err := s.activities.Lookup(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrActivityNotFound
	}
	return s.board(ctx, *a)
}

func (s *Service) board(ctx context.Context, a models.Activity) (*models.Board, error) {
	standings, err := s.store.Standings(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load standings: %w", err)
	}
	SortStandings(standings)
	if standings == nil {
		standings = []models.Standing{}
	}
	return &models.Board{Activity: a, Participants: standings}, nil
}

// Overview returns boards for every completed activity, most recent first.
func (s *Service) Overview(ctx context.Context) ([]models.Board, error) {
	completed, err := s.activities.Completed(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Board, 0, len(completed))
	for _, a := range completed {
		b, err := s.board(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

// SortStandings orders ranked participants by ascending rank, then unranked
// ones; names break ties.
func SortStandings(list []models.Standing) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := list[i].Rank, list[j].Rank
		switch {
		case ri != nil && rj == nil:
			return true
		case ri == nil && rj != nil:
			return false
		case ri != nil && rj != nil && *ri != *rj:
			return *ri < *rj
		}
		return strings.ToLower(list[i].FullName) < strings.ToLower(list[j].FullName)
	})
}
