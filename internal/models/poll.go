package models

import (
	"time"

	"github.com/google/uuid"
)

// PollStatus is the persisted lifecycle state of a poll.
type PollStatus string

const (
	PollActive   PollStatus = "active"
	PollClosed   PollStatus = "closed"
	PollResolved PollStatus = "resolved"
)

// Poll is a proposal open for voting until ExpiresAt.
type Poll struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	CreatedBy   *uuid.UUID      `json:"created_by,omitempty"`
	Creator     *ProfileSummary `json:"creator,omitempty"`
	Status      PollStatus      `json:"status"`
	ExpiresAt   time.Time       `json:"expires_at"`
	EventDate   *string         `json:"event_date,omitempty"`
	EventTime   *string         `json:"event_time,omitempty"`
	Options     []PollOption    `json:"options"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Expired reports whether now is at or past the expiry timestamp.
func (p *Poll) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// DisplayedClosed reports whether the poll shows as closed: not active, or expired.
func (p *Poll) DisplayedClosed(now time.Time) bool {
	return p.Status != PollActive || p.Expired(now)
}

// Option returns the option with id, or nil.
func (p *Poll) Option(id uuid.UUID) *PollOption {
	for i := range p.Options {
		if p.Options[i].ID == id {
			return &p.Options[i]
		}
	}
	return nil
}

// PollOption is one selectable choice within a poll. Votes holds the voter ids.
type PollOption struct {
	ID          uuid.UUID   `json:"id"`
	PollID      uuid.UUID   `json:"poll_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Votes       []uuid.UUID `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Vote is a single user's choice on a poll; at most one per (poll, user).
type Vote struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	OptionID  uuid.UUID `json:"option_id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
