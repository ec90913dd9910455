package activities

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/database"
)

const activitySelect = `SELECT a.id, a.title, COALESCE(a.description, ''), COALESCE(a.location, ''), a.scheduled_at, a.status,
		a.created_by, a.poll_id, a.poll_option_id, a.created_at, a.updated_at,
		(SELECT COUNT(*) FROM activity_participation ap WHERE ap.activity_id = a.id AND ap.status = 'accepted')
	FROM activities a`

// Repository handles activity persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an activities repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanActivity(row pgx.Row) (*models.Activity, error) {
	var a models.Activity
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Location, &a.ScheduledAt, &a.Status,
		&a.CreatedBy, &a.PollID, &a.PollOptionID, &a.CreatedAt, &a.UpdatedAt, &a.AcceptedCount)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Create inserts an activity. With a poll_id the insert runs in one transaction
// that checks the option belongs to that poll and resolves the poll.
func (r *Repository) Create(ctx context.Context, a *models.Activity) error {
	if a.PollID == nil {
		return insertActivity(ctx, r.pool, a)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if a.PollOptionID != nil {
			var owner uuid.UUID
			err := tx.QueryRow(ctx, `SELECT poll_id FROM poll_options WHERE id = $1`, *a.PollOptionID).Scan(&owner)
			if database.IsNoRows(err) {
				return ErrInvalidReference
			}
			if err != nil {
				return fmt.Errorf("load poll option: %w", err)
			}
			if owner != *a.PollID {
				return ErrInvalidReference
			}
		}
		if err := insertActivity(ctx, tx, a); err != nil {
			return err
		}
		const resolve = `UPDATE activity_polls SET status = 'resolved', updated_at = NOW() WHERE id = $1 AND status = 'active'`
		if _, err := tx.Exec(ctx, resolve, *a.PollID); err != nil {
			return fmt.Errorf("resolve poll: %w", err)
		}
		return nil
	})
}

func insertActivity(ctx context.Context, q rowQuerier, a *models.Activity) error {
	const insert = `INSERT INTO activities (title, description, location, scheduled_at, status, created_by, poll_id, poll_option_id)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err := q.QueryRow(ctx, insert, a.Title, a.Description, a.Location, a.ScheduledAt, a.Status, a.CreatedBy, a.PollID, a.PollOptionID).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	switch {
	case database.IsUniqueViolation(err):
		return ErrPollAlreadyPromoted
	case database.IsForeignKeyViolation(err):
		return ErrInvalidReference
	}
	return err
}

// Get returns the activity or nil when absent.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	a, err := scanActivity(r.pool.QueryRow(ctx, activitySelect+` WHERE a.id = $1`, id))
	if database.IsNoRows(err) {
		return nil, nil
	}
	return a, err
}

// List returns activities by scheduled time, unscheduled last.
func (r *Repository) List(ctx context.Context) ([]models.Activity, error) {
	return r.query(ctx, activitySelect+` ORDER BY a.scheduled_at ASC NULLS LAST, a.created_at DESC`)
}

// ListByStatus returns activities with the given status, most recent first.
func (r *Repository) ListByStatus(ctx context.Context, status models.ActivityStatus) ([]models.Activity, error) {
	return r.query(ctx, activitySelect+` WHERE a.status = $1 ORDER BY a.scheduled_at DESC NULLS LAST, a.updated_at DESC`, status)
}

func (r *Repository) query(ctx context.Context, q string, args ...interface{}) ([]models.Activity, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// Update applies the non-nil fields and returns the activity, or nil when absent.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Activity, error) {
	const q = `UPDATE activities SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			location = COALESCE($4, location),
			scheduled_at = COALESCE($5, scheduled_at),
			status = COALESCE($6, status),
			updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, in.Title, in.Description, in.Location, in.ScheduledAt, in.Status)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.Get(ctx, id)
}

// SetStatus updates the status. Returns false when absent.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.ActivityStatus) (bool, error) {
	const q = `UPDATE activities SET status = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes the activity; participation and leaderboard rows cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
