package profiles

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/pkg/database"
)

const profileColumns = `id, email, COALESCE(full_name, ''), COALESCE(avatar_url, ''), role, status, created_at, updated_at`

// Repository handles profile and admin allowlist persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a profiles repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.AvatarURL, &p.Role, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns the profile or nil when none exists.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.pool.QueryRow(ctx, q, id))
	if database.IsNoRows(err) {
		return nil, nil
	}
	return p, err
}

// Insert creates the profile unless one with the same id exists. created is false on an existing row.
func (r *Repository) Insert(ctx context.Context, p *models.Profile) (created bool, err error) {
	const q = `INSERT INTO profiles (id, email, full_name, avatar_url, role, status)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at`
	err = r.pool.QueryRow(ctx, q, p.ID, p.Email, p.FullName, p.AvatarURL, p.Role, p.Status).Scan(&p.CreatedAt, &p.UpdatedAt)
	if database.IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all profiles ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles ORDER BY full_name NULLS LAST, email`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// ListIDs returns every profile id; used for notification fan-out.
func (r *Repository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM profiles`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// UpdateFullName sets full_name and returns the updated profile, or nil when absent.
func (r *Repository) UpdateFullName(ctx context.Context, id uuid.UUID, name string) (*models.Profile, error) {
	q := `UPDATE profiles SET full_name = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + profileColumns
	return r.updateReturning(ctx, q, id, name)
}

// SetRole updates the role and returns the profile, or nil when absent.
func (r *Repository) SetRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Profile, error) {
	q := `UPDATE profiles SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + profileColumns
	return r.updateReturning(ctx, q, id, role)
}

// SetStatus updates the status and returns the profile, or nil when absent.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.ProfileStatus) (*models.Profile, error) {
	q := `UPDATE profiles SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + profileColumns
	return r.updateReturning(ctx, q, id, status)
}

// SetAvatarURL stores the avatar URL and returns the profile, or nil when absent.
func (r *Repository) SetAvatarURL(ctx context.Context, id uuid.UUID, url string) (*models.Profile, error) {
	q := `UPDATE profiles SET avatar_url = NULLIF($2, ''), updated_at = NOW() WHERE id = $1 RETURNING ` + profileColumns
	return r.updateReturning(ctx, q, id, url)
}

func (r *Repository) updateReturning(ctx context.Context, q string, args ...interface{}) (*models.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, q, args...))
	if database.IsNoRows(err) {
		return nil, nil
	}
	return p, err
}

// IsAllowlisted reports whether email is a pre-authorized admin (case-insensitive).
func (r *Repository) IsAllowlisted(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM admins WHERE LOWER(email) = LOWER($1))`
	var ok bool
	err := r.pool.QueryRow(ctx, q, strings.TrimSpace(email)).Scan(&ok)
	return ok, err
}

// ListAdmins returns the allowlist.
func (r *Repository) ListAdmins(ctx context.Context) ([]models.AdminEmail, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, created_at FROM admins ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AdminEmail
	for rows.Next() {
		var a models.AdminEmail
		if err := rows.Scan(&a.ID, &a.Email, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// AddAdmin inserts an allowlist entry. Returns ErrAdminExists on a duplicate email.
func (r *Repository) AddAdmin(ctx context.Context, email string) (*models.AdminEmail, error) {
	const q = `INSERT INTO admins (email) VALUES ($1) RETURNING id, email, created_at`
	var a models.AdminEmail
	err := r.pool.QueryRow(ctx, q, email).Scan(&a.ID, &a.Email, &a.CreatedAt)
	if database.IsUniqueViolation(err) {
		return nil, ErrAdminExists
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// RemoveAdmin deletes an allowlist entry. Returns false when absent.
func (r *Repository) RemoveAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SeedAdmins inserts emails that are not yet allowlisted and returns how many were added.
func (r *Repository) SeedAdmins(ctx context.Context, emails []string) (int, error) {
	if len(emails) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, e := range emails {
		batch.Queue(`INSERT INTO admins (email) VALUES ($1) ON CONFLICT DO NOTHING`, e)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	added := 0
	for range emails {
		tag, err := br.Exec()
		if err != nil {
			return added, err
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}
