package polls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/internal/notifications"
	"github.com/teamhuddle/backend/internal/realtime"
)

var (
	ErrNotFound            = errors.New("poll not found")
	ErrAlreadyVoted        = errors.New("you have already voted on this poll")
	ErrNoExistingVote      = errors.New("no existing vote to change")
	ErrPollNotOpen         = errors.New("poll is closed")
	ErrOptionNotInPoll     = errors.New("option does not belong to this poll")
	ErrTitleRequired       = errors.New("title is required")
	ErrTooFewOptions       = errors.New("a poll needs at least two options")
	ErrOptionTitleRequired = errors.New("every option needs a title")
	ErrExpiryInPast        = errors.New("expires_at must be in the future")
)

// Store is the persistence the poll service needs. Getters return nil when absent.
type Store interface {
	CreatePoll(ctx context.Context, p *models.Poll) error
	GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	ListPolls(ctx context.Context) ([]models.Poll, error)
	ListActivePolls(ctx context.Context) ([]models.Poll, error)
	// InsertVote returns ErrAlreadyVoted when (poll, user) already has a vote.
	InsertVote(ctx context.Context, v *models.Vote) error
	// UpdateVote returns the moved vote, or nil when the user has not voted.
	UpdateVote(ctx context.Context, pollID, userID, optionID uuid.UUID) (*models.Vote, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.PollStatus) (bool, error)
	DeletePoll(ctx context.Context, id uuid.UUID) (bool, error)
	ActivityExistsForPoll(ctx context.Context, pollID uuid.UUID) (bool, error)
	// PromotePoll inserts the activity (ignoring a conflicting one for the same
	// poll) and resolves the poll in one transaction. created is false on conflict.
	PromotePoll(ctx context.Context, a *models.Activity) (created bool, err error)
}

// Service implements the poll lifecycle.
type Service struct {
	store   Store
	notify  notifications.Dispatcher
	changes realtime.Publisher
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone event_date/event_time are read in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

// NewService creates a poll service.
func NewService(store Store, notify notifications.Dispatcher, changes realtime.Publisher, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = notifications.Nop{}
	}
	if changes == nil {
		changes = realtime.NopPublisher{}
	}
	s := &Service{store: store, notify: notify, changes: changes, loc: time.UTC, now: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// OptionInput is one option of a new poll.
type OptionInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateInput holds the fields of a new poll.
type CreateInput struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	ExpiresAt   time.Time     `json:"expires_at"`
	EventDate   *string       `json:"event_date"`
	EventTime   *string       `json:"event_time"`
	Options     []OptionInput `json:"options"`
}

// OptionView is an option with its vote count.
type OptionView struct {
	models.PollOption
	VoteCount int `json:"vote_count"`
}

// PollView is a poll with derived state for one viewer.
type PollView struct {
	models.Poll
	Options    []OptionView `json:"options"`
	TotalVotes int          `json:"total_votes"`
	YesShare   float64      `json:"yes_share"`
	Expired    bool         `json:"expired"`
	Closed     bool         `json:"closed"`
	MyOptionID *uuid.UUID   `json:"my_option_id,omitempty"`
}

// View derives the tally, expiry and the viewer's choice.
func View(p *models.Poll, viewer uuid.UUID, now time.Time) PollView {
	t := ComputeTally(p)
	v := PollView{
		Poll:       *p,
		Options:    make([]OptionView, 0, len(p.Options)),
		TotalVotes: t.Total,
		YesShare:   t.YesShare(),
		Expired:    p.Expired(now),
		Closed:     p.DisplayedClosed(now),
	}
	for _, o := range p.Options {
		v.Options = append(v.Options, OptionView{PollOption: o, VoteCount: t.Counts[o.ID]})
		for _, uid := range o.Votes {
			if uid == viewer {
				id := o.ID
				v.MyOptionID = &id
			}
		}
	}
	return v
}

// Create validates and stores a poll with its options.
func (s *Service) Create(ctx context.Context, creator uuid.UUID, in CreateInput) (*models.Poll, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if len(in.Options) < 2 {
		return nil, ErrTooFewOptions
	}
	if !in.ExpiresAt.After(s.now()) {
		return nil, ErrExpiryInPast
	}
	p := &models.Poll{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   &creator,
		Status:      models.PollActive,
		ExpiresAt:   in.ExpiresAt,
		EventDate:   blankToNil(in.EventDate),
		EventTime:   blankToNil(in.EventTime),
	}
	for _, o := range in.Options {
		t := strings.TrimSpace(o.Title)
		if t == "" {
			return nil, ErrOptionTitleRequired
		}
		p.Options = append(p.Options, models.PollOption{Title: t, Description: strings.TrimSpace(o.Description)})
	}
	if err := s.store.CreatePoll(ctx, p); err != nil {
		return nil, fmt.Errorf("create poll: %w", err)
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TablePolls, p.ID, realtime.OpInsert))
	return p, nil
}

// List returns every poll, newest first, as seen by viewer.
func (s *Service) List(ctx context.Context, viewer uuid.UUID) ([]PollView, error) {
	polls, err := s.store.ListPolls(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]PollView, 0, len(polls))
	for i := range polls {
		out = append(out, View(&polls[i], viewer, now))
	}
	return out, nil
}

// Get returns one poll as seen by viewer.
func (s *Service) Get(ctx context.Context, id, viewer uuid.UUID) (*PollView, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v := View(p, viewer, s.now())
	return &v, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, err := s.store.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) openPollOption(ctx context.Context, pollID, optionID uuid.UUID) (*models.Poll, error) {
	p, err := s.load(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if p.DisplayedClosed(s.now()) {
		return nil, ErrPollNotOpen
	}
	if p.Option(optionID) == nil {
		return nil, ErrOptionNotInPoll
	}
	return p, nil
}

// Vote casts the voter's single vote on an open poll.
func (s *Service) Vote(ctx context.Context, pollID, optionID, voter uuid.UUID) (*models.Vote, error) {
	if _, err := s.openPollOption(ctx, pollID, optionID); err != nil {
		return nil, err
	}
	v := &models.Vote{PollID: pollID, OptionID: optionID, UserID: voter}
	if err := s.store.InsertVote(ctx, v); err != nil {
		return nil, err
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableVotes, v.ID, realtime.OpInsert))
	return v, nil
}

// ChangeVote moves the voter's existing vote to another option of the same poll.
func (s *Service) ChangeVote(ctx context.Context, pollID, optionID, voter uuid.UUID) error {
	if _, err := s.openPollOption(ctx, pollID, optionID); err != nil {
		return err
	}
	v, err := s.store.UpdateVote(ctx, pollID, voter, optionID)
	if err != nil {
		return err
	}
	if v == nil {
		return ErrNoExistingVote
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableVotes, v.ID, realtime.OpUpdate))
	return nil
}

// Close marks the poll closed without promoting it.
func (s *Service) Close(ctx context.Context, id uuid.UUID) error {
	ok, err := s.store.SetStatus(ctx, id, models.PollClosed)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TablePolls, id, realtime.OpUpdate))
	return nil
}

// Delete removes the poll; options and votes cascade.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.store.DeletePoll(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TablePolls, id, realtime.OpDelete))
	return nil
}

// Promote applies the promotion rule to one poll. actor is the admin running
// it, or nil for the scheduler.
func (s *Service) Promote(ctx context.Context, p *models.Poll, actor *uuid.UUID) (Outcome, *models.Activity, error) {
	t, outcome, ok := Eligible(p, s.now())
	if !ok {
		return outcome, nil, nil
	}
	exists, err := s.store.ActivityExistsForPoll(ctx, p.ID)
	if err != nil {
		return OutcomeFailed, nil, fmt.Errorf("check existing activity: %w", err)
	}
	if exists {
		return OutcomeAlreadyLinked, nil, nil
	}
	a := BuildActivity(p, t.Yes, actor, s.loc)
	created, err := s.store.PromotePoll(ctx, a)
	if err != nil {
		return OutcomeFailed, nil, fmt.Errorf("promote poll: %w", err)
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TablePolls, p.ID, realtime.OpUpdate))
	if !created {
		return OutcomeAlreadyLinked, nil, nil
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableActivities, a.ID, realtime.OpInsert))
	if err := s.notify.Dispatch(ctx, notifications.PollResolved(a, voters(p))); err != nil {
		s.logger.Warn("poll resolved notification failed", zap.Error(err), zap.String("poll_id", p.ID.String()))
	}
	return OutcomePromoted, a, nil
}

// ProcessExpired sweeps all active polls. A failing poll is logged and left
// active for the next sweep.
func (s *Service) ProcessExpired(ctx context.Context, actor *uuid.UUID) (SweepSummary, error) {
	var sum SweepSummary
	polls, err := s.store.ListActivePolls(ctx)
	if err != nil {
		return sum, fmt.Errorf("list active polls: %w", err)
	}
	for i := range polls {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		p := &polls[i]
		outcome, a, err := s.Promote(ctx, p, actor)
		if err != nil {
			s.logger.Error("poll promotion failed", zap.Error(err), zap.String("poll_id", p.ID.String()))
		}
		sum.record(outcome)
		if a != nil {
			sum.Created = append(sum.Created, a.ID)
			s.logger.Info("poll promoted",
				zap.String("poll_id", p.ID.String()),
				zap.String("activity_id", a.ID.String()),
			)
		}
	}
	return sum, nil
}

func voters(p *models.Poll) []uuid.UUID {
	var out []uuid.UUID
	for _, o := range p.Options {
		out = append(out, o.Votes...)
	}
	return out
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
