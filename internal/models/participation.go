package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipationStatus is a user's RSVP state.
type ParticipationStatus string

const (
	ParticipationPending  ParticipationStatus = "pending"
	ParticipationAccepted ParticipationStatus = "accepted"
	ParticipationRejected ParticipationStatus = "rejected"
)

// Participation is a user's RSVP; at most one per (activity, user).
type Participation struct {
	ID              uuid.UUID           `json:"id"`
	ActivityID      uuid.UUID           `json:"activity_id"`
	UserID          uuid.UUID           `json:"user_id"`
	Status          ParticipationStatus `json:"status"`
	RejectionReason string              `json:"rejection_reason,omitempty"`
	RespondedAt     *time.Time          `json:"responded_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	User            *ProfileSummary     `json:"user,omitempty"`
}
