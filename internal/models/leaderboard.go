package models

import (
	"time"

	"github.com/google/uuid"
)

// LeaderboardEntry is an admin-assigned rank for a participant of an activity.
type LeaderboardEntry struct {
	ID         uuid.UUID  `json:"id"`
	ActivityID uuid.UUID  `json:"activity_id"`
	UserID     uuid.UUID  `json:"user_id"`
	Rank       int        `json:"rank"`
	MarkedBy   *uuid.UUID `json:"marked_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Standing is one accepted participant on an activity board, ranked or not.
type Standing struct {
	UserID    uuid.UUID `json:"user_id"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Rank      *int      `json:"rank"`
}

// Board is an activity with its ordered standings.
type Board struct {
	Activity     Activity   `json:"activity"`
	Participants []Standing `json:"participants"`
}
