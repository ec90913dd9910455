package notifications

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/teamhuddle/backend/internal/models"
)

// ActivityCreated builds one notification per recipient, skipping the creator.
func ActivityCreated(a *models.Activity, recipients []uuid.UUID) []models.Notification {
	ref := a.ID
	out := make([]models.Notification, 0, len(recipients))
	for _, uid := range recipients {
		if a.CreatedBy != nil && uid == *a.CreatedBy {
			continue
		}
		out = append(out, models.Notification{
			UserID:      uid,
			Title:       "New Activity",
			Message:     fmt.Sprintf("%s has been scheduled!", a.Title),
			Type:        models.NotificationActivityCreated,
			ReferenceID: &ref,
		})
	}
	return out
}

// ParticipationResponse tells the activity creator how someone responded.
func ParticipationResponse(a *models.Activity, responder string, status models.ParticipationStatus) []models.Notification {
	if a.CreatedBy == nil {
		return nil
	}
	if responder == "" {
		responder = "Someone"
	}
	ref := a.ID
	return []models.Notification{{
		UserID:      *a.CreatedBy,
		Title:       "Participation Update",
		Message:     fmt.Sprintf("%s %s %s", responder, status, a.Title),
		Type:        models.NotificationParticipationResponse,
		ReferenceID: &ref,
	}}
}

// LeaderboardMarked tells a participant their rank.
func LeaderboardMarked(a *models.Activity, userID uuid.UUID, rank int) []models.Notification {
	ref := a.ID
	return []models.Notification{{
		UserID:      userID,
		Title:       "Leaderboard Updated",
		Message:     fmt.Sprintf("You ranked #%d in %s!", rank, a.Title),
		Type:        models.NotificationLeaderboardMarked,
		ReferenceID: &ref,
	}}
}

// PollResolved tells voters their poll became an activity.
func PollResolved(a *models.Activity, voters []uuid.UUID) []models.Notification {
	ref := a.ID
	out := make([]models.Notification, 0, len(voters))
	for _, uid := range voters {
		out = append(out, models.Notification{
			UserID:      uid,
			Title:       "Poll Resolved",
			Message:     fmt.Sprintf("%s is happening! RSVP now.", a.Title),
			Type:        models.NotificationPollResolved,
			ReferenceID: &ref,
		})
	}
	return out
}
