package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityStatus is the persisted state of an activity.
type ActivityStatus string

const (
	ActivityUpcoming  ActivityStatus = "upcoming"
	ActivityOngoing   ActivityStatus = "ongoing"
	ActivityCompleted ActivityStatus = "completed"
	ActivityCancelled ActivityStatus = "cancelled"
)

// Valid reports whether s is a known activity status.
func (s ActivityStatus) Valid() bool {
	switch s {
	case ActivityUpcoming, ActivityOngoing, ActivityCompleted, ActivityCancelled:
		return true
	}
	return false
}

// Final reports whether the activity no longer takes responses.
func (s ActivityStatus) Final() bool {
	return s == ActivityCompleted || s == ActivityCancelled
}

// Activity is a scheduled event, created by an admin or by poll promotion.
type Activity struct {
	ID            uuid.UUID      `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Location      string         `json:"location,omitempty"`
	ScheduledAt   *time.Time     `json:"scheduled_at,omitempty"`
	Status        ActivityStatus `json:"status"`
	CreatedBy     *uuid.UUID     `json:"created_by,omitempty"`
	PollID        *uuid.UUID     `json:"poll_id,omitempty"`
	PollOptionID  *uuid.UUID     `json:"poll_option_id,omitempty"`
	AcceptedCount int            `json:"accepted_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Started reports whether the scheduled time is set and has passed.
func (a *Activity) Started(now time.Time) bool {
	return a.ScheduledAt != nil && !now.Before(*a.ScheduledAt)
}

// DisplayStatus derives the status shown to users: completed and cancelled are
// kept, otherwise the activity is ongoing once its scheduled time has passed.
func (a *Activity) DisplayStatus(now time.Time) ActivityStatus {
	if a.Status.Final() {
		return a.Status
	}
	if a.Started(now) {
		return ActivityOngoing
	}
	return ActivityUpcoming
}
