package polls

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamhuddle/backend/internal/models"
)

func votes(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func pollWith(yesTitle string, yes, no int) *models.Poll {
	return &models.Poll{
		ID:     uuid.New(),
		Title:  "Team Lunch",
		Status: models.PollActive,
		Options: []models.PollOption{
			{ID: uuid.New(), Title: yesTitle, Votes: votes(yes)},
			{ID: uuid.New(), Title: "No", Votes: votes(no)},
		},
	}
}

func TestTally(t *testing.T) {
	tests := []struct {
		name     string
		poll     *models.Poll
		total    int
		share    float64
		passes   bool
		hasYesOp bool
	}{
		{"three to one", pollWith("Yes", 3, 1), 4, 0.75, true, true},
		{"one to three", pollWith("Yes", 1, 3), 4, 0.25, false, true},
		{"even split", pollWith("yes", 2, 2), 4, 0.5, true, true},
		{"no votes", pollWith("Yes", 0, 0), 0, 0, false, true},
		{"padded title", pollWith("  YES ", 1, 0), 1, 1, true, true},
		{"no yes option", pollWith("Sure", 5, 0), 5, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tally := ComputeTally(tt.poll)
			assert.Equal(t, tt.total, tally.Total)
			assert.InDelta(t, tt.share, tally.YesShare(), 1e-9)
			assert.Equal(t, tt.passes, tally.Passes())
			assert.Equal(t, tt.hasYesOp, tally.Yes != nil)

			sum := 0
			for _, n := range tally.Counts {
				sum += n
			}
			assert.Equal(t, tally.Total, sum)
		})
	}
}

func TestEligible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := pollWith("Yes", 3, 1)
	p.ExpiresAt = now
	_, outcome, ok := Eligible(p, now)
	assert.True(t, ok, outcome)

	p.ExpiresAt = now.Add(time.Minute)
	_, outcome, ok = Eligible(p, now)
	assert.False(t, ok)
	assert.Equal(t, OutcomeNotExpired, outcome)

	p.ExpiresAt = now.Add(-time.Minute)
	p.Status = models.PollClosed
	_, outcome, _ = Eligible(p, now)
	assert.Equal(t, OutcomeNotActive, outcome)

	low := pollWith("Yes", 1, 3)
	low.ExpiresAt = now.Add(-time.Minute)
	_, outcome, _ = Eligible(low, now)
	assert.Equal(t, OutcomeBelowThreshold, outcome)
}

func strp(s string) *string { return &s }

func TestResolveSchedule(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name  string
		date  *string
		clock *string
		loc   *time.Location
		want  *time.Time
	}{
		{"date and seconds", strp("2026-06-01"), strp("12:30:00"), time.UTC, tp(time.Date(2026, 6, 1, 12, 30, 0, 0, time.UTC))},
		{"hours and minutes", strp("2026-06-01"), strp("09:05"), time.UTC, tp(time.Date(2026, 6, 1, 9, 5, 0, 0, time.UTC))},
		{"iso date and offset time", strp("2026-06-01T00:00:00Z"), strp("18:00:00+02"), time.UTC, tp(time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC))},
		{"configured zone", strp("2026-06-01"), strp("18:00"), berlin, tp(time.Date(2026, 6, 1, 18, 0, 0, 0, berlin))},
		{"missing time", strp("2026-06-01"), nil, time.UTC, nil},
		{"missing date", nil, strp("12:00"), time.UTC, nil},
		{"unparsable date", strp("next friday"), strp("12:00"), time.UTC, nil},
		{"unparsable time", strp("2026-06-01"), strp("noon"), time.UTC, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSchedule(tt.date, tt.clock, tt.loc)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %v got %v", tt.want, got)
		})
	}
}

func tp(t time.Time) *time.Time { return &t }

func TestComposeDescription(t *testing.T) {
	yes := &models.PollOption{Title: "Yes", Description: "Pizza place on 5th"}
	p := &models.Poll{Description: "Friday lunch?"}
	assert.Equal(t, "Friday lunch?\n\nWinning option: Yes\n\nPizza place on 5th", ComposeDescription(p, yes))

	assert.Equal(t, "Winning option: Yes", ComposeDescription(&models.Poll{Description: "  "}, &models.PollOption{Title: "Yes"}))
}

func TestBuildActivity(t *testing.T) {
	creator := uuid.New()
	p := pollWith("Yes", 3, 1)
	p.CreatedBy = &creator
	yes := &p.Options[0]

	a := BuildActivity(p, yes, nil, time.UTC)
	assert.Equal(t, "Team Lunch", a.Title)
	assert.Equal(t, creator, *a.CreatedBy)
	assert.Equal(t, p.ID, *a.PollID)
	assert.Equal(t, yes.ID, *a.PollOptionID)
	assert.Equal(t, models.ActivityUpcoming, a.Status)
	assert.Nil(t, a.ScheduledAt)

	admin := uuid.New()
	p.Title = " "
	a = BuildActivity(p, yes, &admin, time.UTC)
	assert.Equal(t, "Yes", a.Title)
	assert.Equal(t, admin, *a.CreatedBy)
}
