package realtime

import (
	"context"

	"github.com/google/uuid"
)

// Channel is the Redis pub/sub channel carrying change events.
const Channel = "changes"

// Tables whose rows clients watch.
const (
	TablePolls         = "activity_polls"
	TableVotes         = "votes"
	TableActivities    = "activities"
	TableParticipation = "activity_participation"
	TableLeaderboard   = "leaderboard_entries"
	TableProfiles      = "profiles"
	TableAdmins        = "admins"
	TableNotifications = "notifications"
)

// Op is the kind of row mutation.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change is published after a successful mutation.
type Change struct {
	Table string `json:"table"`
	ID    string `json:"id"`
	Op    Op     `json:"op"`
}

// NewChange builds a change event for a row id.
func NewChange(table string, id uuid.UUID, op Op) Change {
	return Change{Table: table, ID: id.String(), Op: op}
}

// Publisher emits change events. Publishing is best effort; implementations log failures.
type Publisher interface {
	Publish(ctx context.Context, changes ...Change)
}

// NopPublisher drops change events.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, ...Change) {}
