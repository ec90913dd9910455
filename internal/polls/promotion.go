package polls

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teamhuddle/backend/internal/models"
)

// Outcome is the result of evaluating one poll for promotion.
type Outcome string

const (
	OutcomePromoted       Outcome = "promoted"
	OutcomeNotActive      Outcome = "not_active"
	OutcomeNotExpired     Outcome = "not_expired"
	OutcomeBelowThreshold Outcome = "below_threshold"
	OutcomeAlreadyLinked  Outcome = "already_promoted"
	OutcomeFailed         Outcome = "failed"
)

var timeLayouts = []string{"15:04:05", "15:04"}

// Eligible checks the pure part of the promotion rule: active, expired and a
// passing yes share. The existing-activity check needs the store.
func Eligible(p *models.Poll, now time.Time) (Tally, Outcome, bool) {
	t := ComputeTally(p)
	switch {
	case p.Status != models.PollActive:
		return t, OutcomeNotActive, false
	case !p.Expired(now):
		return t, OutcomeNotExpired, false
	case !t.Passes():
		return t, OutcomeBelowThreshold, false
	}
	return t, "", true
}

// ResolveSchedule combines event_date and event_time in loc. The date is read
// up to any 'T' and the time up to any '+'. Nil when either is missing or unparsable.
func ResolveSchedule(eventDate, eventTime *string, loc *time.Location) *time.Time {
	if eventDate == nil || eventTime == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	date := strings.TrimSpace(*eventDate)
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		date = date[:i]
	}
	clock := strings.TrimSpace(*eventTime)
	if i := strings.IndexByte(clock, '+'); i >= 0 {
		clock = clock[:i]
	}
	if date == "" || clock == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		ts, err := time.ParseInLocation("2006-01-02 "+layout, date+" "+clock, loc)
		if err == nil {
			return &ts
		}
	}
	return nil
}

// ComposeDescription joins the non-blank parts: poll description, the winning
// option line and the yes option's own description.
func ComposeDescription(p *models.Poll, yes *models.PollOption) string {
	parts := []string{p.Description}
	if yes != nil {
		parts = append(parts, "Winning option: "+strings.TrimSpace(yes.Title), yes.Description)
	}
	kept := parts[:0]
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}

// BuildActivity derives the activity a passing poll becomes. creator falls back
// to the poll's creator when nil.
func BuildActivity(p *models.Poll, yes *models.PollOption, creator *uuid.UUID, loc *time.Location) *models.Activity {
	title := strings.TrimSpace(p.Title)
	if title == "" && yes != nil {
		title = strings.TrimSpace(yes.Title)
	}
	if creator == nil {
		creator = p.CreatedBy
	}
	pollID := p.ID
	a := &models.Activity{
		Title:       title,
		Description: ComposeDescription(p, yes),
		ScheduledAt: ResolveSchedule(p.EventDate, p.EventTime, loc),
		Status:      models.ActivityUpcoming,
		CreatedBy:   creator,
		PollID:      &pollID,
	}
	if yes != nil {
		optID := yes.ID
		a.PollOptionID = &optID
	}
	return a
}

// SweepSummary reports one sweep over the active polls.
type SweepSummary struct {
	Checked  int         `json:"checked"`
	Promoted int         `json:"promoted"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
	Created  []uuid.UUID `json:"created_activity_ids,omitempty"`
}

func (s *SweepSummary) record(o Outcome) {
	s.Checked++
	switch o {
	case OutcomePromoted:
		s.Promoted++
	case OutcomeFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}
