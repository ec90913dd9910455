package polls

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/database"
)

const pollSelect = `SELECT p.id, p.title, COALESCE(p.description, ''), p.created_by, p.status, p.expires_at,
		p.event_date, p.event_time, p.created_at, p.updated_at,
		pr.id, COALESCE(pr.full_name, ''), COALESCE(pr.avatar_url, '')
	FROM activity_polls p
	LEFT JOIN profiles pr ON pr.id = p.created_by`

// Repository handles poll, option and vote persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreatePoll inserts the poll and its options in one transaction.
func (r *Repository) CreatePoll(ctx context.Context, p *models.Poll) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertPoll = `INSERT INTO activity_polls (title, description, created_by, status, expires_at, event_date, event_time)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, insertPoll, p.Title, p.Description, p.CreatedBy, p.Status, p.ExpiresAt, p.EventDate, p.EventTime).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert poll: %w", err)
		}
		const insertOption = `INSERT INTO poll_options (poll_id, title, description)
			VALUES ($1, $2, NULLIF($3, ''))
			RETURNING id, created_at`
		for i := range p.Options {
			o := &p.Options[i]
			o.PollID = p.ID
			if err := tx.QueryRow(ctx, insertOption, p.ID, o.Title, o.Description).Scan(&o.ID, &o.CreatedAt); err != nil {
				return fmt.Errorf("insert option: %w", err)
			}
		}
		return nil
	})
}

func scanPoll(row pgx.Row) (*models.Poll, error) {
	var (
		p         models.Poll
		creatorID *uuid.UUID
		name      string
		avatar    string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.CreatedBy, &p.Status, &p.ExpiresAt,
		&p.EventDate, &p.EventTime, &p.CreatedAt, &p.UpdatedAt,
		&creatorID, &name, &avatar)
	if err != nil {
		return nil, err
	}
	if creatorID != nil {
		p.Creator = &models.ProfileSummary{ID: *creatorID, FullName: name, AvatarURL: avatar}
	}
	return &p, nil
}

// GetPoll returns the poll with options and votes, or nil when absent.
func (r *Repository) GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, err := scanPoll(r.pool.QueryRow(ctx, pollSelect+` WHERE p.id = $1`, id))
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	polls := []models.Poll{*p}
	if err := r.attachOptions(ctx, polls); err != nil {
		return nil, err
	}
	return &polls[0], nil
}

// ListPolls returns all polls, newest first.
func (r *Repository) ListPolls(ctx context.Context) ([]models.Poll, error) {
	return r.listWhere(ctx, ``)
}

// ListActivePolls returns polls with status active, oldest expiry first.
func (r *Repository) ListActivePolls(ctx context.Context) ([]models.Poll, error) {
	return r.listWhere(ctx, ` WHERE p.status = 'active'`)
}

func (r *Repository) listWhere(ctx context.Context, where string) ([]models.Poll, error) {
	order := ` ORDER BY p.created_at DESC`
	if where != "" {
		order = ` ORDER BY p.expires_at ASC`
	}
	rows, err := r.pool.Query(ctx, pollSelect+where+order)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var polls []models.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachOptions(ctx, polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// attachOptions loads options and voter ids for polls in two queries.
func (r *Repository) attachOptions(ctx context.Context, polls []models.Poll) error {
	if len(polls) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(polls))
	index := make(map[uuid.UUID]int, len(polls))
	for i := range polls {
		ids[i] = polls[i].ID
		index[polls[i].ID] = i
		polls[i].Options = []models.PollOption{}
	}

	const optionsQ = `SELECT id, poll_id, title, COALESCE(description, ''), created_at
		FROM poll_options WHERE poll_id = ANY($1) ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, optionsQ, ids)
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}
	optionAt := make(map[uuid.UUID][2]int)
	for rows.Next() {
		var o models.PollOption
		if err := rows.Scan(&o.ID, &o.PollID, &o.Title, &o.Description, &o.CreatedAt); err != nil {
			rows.Close()
			return err
		}
		pi := index[o.PollID]
		polls[pi].Options = append(polls[pi].Options, o)
		optionAt[o.ID] = [2]int{pi, len(polls[pi].Options) - 1}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const votesQ = `SELECT option_id, user_id FROM votes WHERE poll_id = ANY($1) ORDER BY created_at`
	rows, err = r.pool.Query(ctx, votesQ, ids)
	if err != nil {
		return fmt.Errorf("load votes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var optionID, userID uuid.UUID
		if err := rows.Scan(&optionID, &userID); err != nil {
			return err
		}
		if at, ok := optionAt[optionID]; ok {
			o := &polls[at[0]].Options[at[1]]
			o.Votes = append(o.Votes, userID)
		}
	}
	return rows.Err()
}

// InsertVote records a vote. The (poll_id, user_id) constraint turns a second vote into ErrAlreadyVoted.
func (r *Repository) InsertVote(ctx context.Context, v *models.Vote) error {
	const q = `INSERT INTO votes (poll_id, option_id, user_id) VALUES ($1, $2, $3)
		ON CONFLICT (poll_id, user_id) DO NOTHING
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, v.PollID, v.OptionID, v.UserID).Scan(&v.ID, &v.CreatedAt)
	if database.IsNoRows(err) || database.IsUniqueViolation(err) {
		return ErrAlreadyVoted
	}
	return err
}

// UpdateVote moves the user's vote to optionID. Returns nil when there is no vote.
func (r *Repository) UpdateVote(ctx context.Context, pollID, userID, optionID uuid.UUID) (*models.Vote, error) {
	const q = `UPDATE votes SET option_id = $3 WHERE poll_id = $1 AND user_id = $2
		RETURNING id, poll_id, option_id, user_id, created_at`
	var v models.Vote
	err := r.pool.QueryRow(ctx, q, pollID, userID, optionID).Scan(&v.ID, &v.PollID, &v.OptionID, &v.UserID, &v.CreatedAt)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SetStatus updates the poll status. Returns false when the poll is absent.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.PollStatus) (bool, error) {
	const q = `UPDATE activity_polls SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeletePoll removes the poll; options and votes cascade.
func (r *Repository) DeletePoll(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activity_polls WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ActivityExistsForPoll reports whether an activity references the poll.
func (r *Repository) ActivityExistsForPoll(ctx context.Context, pollID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM activities WHERE poll_id = $1)`, pollID).Scan(&ok)
	return ok, err
}

// PromotePoll inserts the activity and resolves its poll in one transaction.
// A concurrent promotion of the same poll makes the insert a no-op; the poll
// is resolved either way.
func (r *Repository) PromotePoll(ctx context.Context, a *models.Activity) (created bool, err error) {
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insert = `INSERT INTO activities (title, description, scheduled_at, status, created_by, poll_id, poll_option_id)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
			ON CONFLICT (poll_id) WHERE poll_id IS NOT NULL DO NOTHING
			RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, insert, a.Title, a.Description, a.ScheduledAt, a.Status, a.CreatedBy, a.PollID, a.PollOptionID).
			Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
		switch {
		case database.IsNoRows(err):
			created = false
		case err != nil:
			return fmt.Errorf("insert activity: %w", err)
		default:
			created = true
		}
		const resolve = `UPDATE activity_polls SET status = 'resolved', updated_at = NOW() WHERE id = $1 AND status = 'active'`
		if _, err := tx.Exec(ctx, resolve, a.PollID); err != nil {
			return fmt.Errorf("resolve poll: %w", err)
		}
		return nil
	})
	return created, err
}
