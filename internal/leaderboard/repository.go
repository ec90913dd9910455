package leaderboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamhuddle/backend/internal/models"
)

// Repository handles leaderboard persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a leaderboard repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts or updates the rank for (activity, user).
func (r *Repository) Upsert(ctx context.Context, e *models.LeaderboardEntry) error {
	const q = `INSERT INTO leaderboard_entries (activity_id, user_id, rank, marked_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (activity_id, user_id) DO UPDATE
			SET rank = EXCLUDED.rank, marked_by = EXCLUDED.marked_by, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.ActivityID, e.UserID, e.Rank, e.MarkedBy).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Delete removes the entry. Returns false when there was none.
func (r *Repository) Delete(ctx context.Context, activityID, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leaderboard_entries WHERE activity_id = $1 AND user_id = $2`, activityID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Standings returns accepted participants of the activity with their rank, if any.
func (r *Repository) Standings(ctx context.Context, activityID uuid.UUID) ([]models.Standing, error) {
	const q = `SELECT ap.user_id, COALESCE(pr.full_name, ''), COALESCE(pr.avatar_url, ''), le.rank
		FROM activity_participation ap
		JOIN profiles pr ON pr.id = ap.user_id
		LEFT JOIN leaderboard_entries le ON le.activity_id = ap.activity_id AND le.user_id = ap.user_id
		WHERE ap.activity_id = $1 AND ap.status = 'accepted'`
	rows, err := r.pool.Query(ctx, q, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Standing
	for rows.Next() {
		var s models.Standing
		if err := rows.Scan(&s.UserID, &s.FullName, &s.AvatarURL, &s.Rank); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
