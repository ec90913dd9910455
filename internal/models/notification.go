package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types written by the service.
const (
	NotificationActivityCreated       = "activity_created"
	NotificationParticipationResponse = "participation_response"
	NotificationLeaderboardMarked     = "leaderboard_marked"
	NotificationPollResolved          = "poll_resolved"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	ReferenceID *uuid.UUID `json:"reference_id,omitempty"`
	IsRead      bool       `json:"is_read"`
	CreatedAt   time.Time  `json:"created_at"`
}
