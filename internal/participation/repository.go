package participation

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamhuddle/backend/internal/models"
)

// Repository handles RSVP persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a participation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert writes the user's response. The (activity_id, user_id) constraint keeps one row per user.
func (r *Repository) Upsert(ctx context.Context, p *models.Participation) error {
	const q = `INSERT INTO activity_participation (activity_id, user_id, status, rejection_reason, responded_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		ON CONFLICT (activity_id, user_id) DO UPDATE
			SET status = EXCLUDED.status,
				rejection_reason = EXCLUDED.rejection_reason,
				responded_at = EXCLUDED.responded_at
		RETURNING id, responded_at, created_at`
	return r.pool.QueryRow(ctx, q, p.ActivityID, p.UserID, p.Status, p.RejectionReason).
		Scan(&p.ID, &p.RespondedAt, &p.CreatedAt)
}

// ListForActivity returns the activity's responses with profile summaries.
func (r *Repository) ListForActivity(ctx context.Context, activityID uuid.UUID) ([]models.Participation, error) {
	const q = `SELECT ap.id, ap.activity_id, ap.user_id, ap.status, COALESCE(ap.rejection_reason, ''), ap.responded_at, ap.created_at,
			COALESCE(pr.full_name, ''), COALESCE(pr.avatar_url, '')
		FROM activity_participation ap
		JOIN profiles pr ON pr.id = ap.user_id
		WHERE ap.activity_id = $1
		ORDER BY ap.responded_at DESC NULLS LAST, ap.created_at DESC`
	rows, err := r.pool.Query(ctx, q, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Participation
	for rows.Next() {
		var (
			p      models.Participation
			name   string
			avatar string
		)
		if err := rows.Scan(&p.ID, &p.ActivityID, &p.UserID, &p.Status, &p.RejectionReason, &p.RespondedAt, &p.CreatedAt, &name, &avatar); err != nil {
			return nil, err
		}
		p.User = &models.ProfileSummary{ID: p.UserID, FullName: name, AvatarURL: avatar}
		list = append(list, p)
	}
	return list, rows.Err()
}

// AcceptedCount counts accepted responses.
func (r *Repository) AcceptedCount(ctx context.Context, activityID uuid.UUID) (int, error) {
	const q = `SELECT COUNT(*) FROM activity_participation WHERE activity_id = $1 AND status = 'accepted'`
	var n int
	err := r.pool.QueryRow(ctx, q, activityID).Scan(&n)
	return n, err
}
