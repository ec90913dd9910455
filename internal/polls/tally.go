package polls

import (
	"strings"

	"github.com/google/uuid"

	"github.com/teamhuddle/backend/internal/models"
)

// IsYesOption reports whether an option title names the "Yes" choice.
func IsYesOption(title string) bool {
	return strings.EqualFold(strings.TrimSpace(title), "yes")
}

// Tally is the derived vote count of a poll.
type Tally struct {
	Counts   map[uuid.UUID]int
	Total    int
	Yes      *models.PollOption
	YesVotes int
}

// ComputeTally counts the votes attached to each option.
func ComputeTally(p *models.Poll) Tally {
	t := Tally{Counts: make(map[uuid.UUID]int, len(p.Options))}
	for i := range p.Options {
		o := &p.Options[i]
		n := len(o.Votes)
		t.Counts[o.ID] = n
		t.Total += n
		if t.Yes == nil && IsYesOption(o.Title) {
			t.Yes = o
			t.YesVotes = n
		}
	}
	return t
}

// YesShare is yes votes over total votes, or 0 without votes.
func (t Tally) YesShare() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.YesVotes) / float64(t.Total)
}

// Passes reports whether the yes share is at least one half. Integer math keeps
// the 50% boundary exact.
func (t Tally) Passes() bool {
	return t.Yes != nil && t.Total > 0 && t.YesVotes*2 >= t.Total
}
