package profiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhuddle/backend/internal/models"
	"github.com/teamhuddle/backend/internal/realtime"
	"github.com/teamhuddle/backend/pkg/storage"
)

var (
	ErrNotFound        = errors.New("profile not found")
	ErrInvalidRole     = errors.New("role must be admin or user")
	ErrInvalidStatus   = errors.New("status must be active or inactive")
	ErrInvalidName     = errors.New("full name must not be blank")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrAdminExists     = errors.New("email is already an admin")
	ErrAdminNotFound   = errors.New("admin entry not found")
	ErrInvalidSignup   = errors.New("signup record requires id and email")
	ErrAvatarsDisabled = errors.New("avatar storage not configured")
	ErrAvatarTooLarge  = errors.New("avatar exceeds 5MB")
	ErrAvatarType      = errors.New("avatar must be jpeg, png, webp or gif")
)

// Store is the persistence the service needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Insert(ctx context.Context, p *models.Profile) (bool, error)
	List(ctx context.Context) ([]models.Profile, error)
	UpdateFullName(ctx context.Context, id uuid.UUID, name string) (*models.Profile, error)
	SetRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Profile, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.ProfileStatus) (*models.Profile, error)
	SetAvatarURL(ctx context.Context, id uuid.UUID, url string) (*models.Profile, error)
	IsAllowlisted(ctx context.Context, email string) (bool, error)
	ListAdmins(ctx context.Context) ([]models.AdminEmail, error)
	AddAdmin(ctx context.Context, email string) (*models.AdminEmail, error)
	RemoveAdmin(ctx context.Context, id uuid.UUID) (bool, error)
	SeedAdmins(ctx context.Context, emails []string) (int, error)
}

// AvatarStore uploads and removes avatar objects.
type AvatarStore interface {
	PutAvatar(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	DeleteAvatarURL(ctx context.Context, url string) error
}

// SignupEvent is the identity provider's database webhook payload.
type SignupEvent struct {
	Type   string       `json:"type"`
	Table  string       `json:"table"`
	Schema string       `json:"schema,omitempty"`
	Record SignupRecord `json:"record"`
}

// SignupRecord is the provider's user row.
type SignupRecord struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Metadata struct {
		FullName  string `json:"full_name"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	} `json:"raw_user_meta_data"`
}

// IsUserInsert reports whether the event is a new provider user.
func (e SignupEvent) IsUserInsert() bool {
	return e.Type == "INSERT" && e.Table == "users"
}

// Service implements profile and admin allowlist operations.
type Service struct {
	store   Store
	avatars AvatarStore
	changes realtime.Publisher
	logger  *zap.Logger
}

// NewService creates a profiles service. avatars may be nil when S3 is not configured.
func NewService(store Store, avatars AvatarStore, changes realtime.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if changes == nil {
		changes = realtime.NopPublisher{}
	}
	return &Service{store: store, avatars: avatars, changes: changes, logger: logger}
}

// HandleSignup provisions a profile for a new provider user. Repeated events
// for the same id return the existing profile with created=false.
func (s *Service) HandleSignup(ctx context.Context, ev SignupEvent) (p *models.Profile, created bool, err error) {
	if !ev.IsUserInsert() {
		return nil, false, nil
	}
	id, err := uuid.Parse(ev.Record.ID)
	if err != nil || strings.TrimSpace(ev.Record.Email) == "" {
		return nil, false, ErrInvalidSignup
	}
	email := strings.TrimSpace(ev.Record.Email)
	name := ev.Record.Metadata.FullName
	if name == "" {
		name = ev.Record.Metadata.Name
	}

	role := models.RoleUser
	admin, err := s.store.IsAllowlisted(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("check admin allowlist: %w", err)
	}
	if admin {
		role = models.RoleAdmin
	}

	p = &models.Profile{
		ID:        id,
		Email:     email,
		FullName:  strings.TrimSpace(name),
		AvatarURL: ev.Record.Metadata.AvatarURL,
		Role:      role,
		Status:    models.ProfileActive,
	}
	created, err = s.store.Insert(ctx, p)
	if err != nil {
		return nil, false, fmt.Errorf("insert profile: %w", err)
	}
	if !created {
		existing, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	s.logger.Info("profile provisioned", zap.String("user_id", id.String()), zap.String("role", string(role)))
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableProfiles, id, realtime.OpInsert))
	return p, true, nil
}

// Get returns a profile by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// List returns all profiles.
func (s *Service) List(ctx context.Context) ([]models.Profile, error) {
	return s.store.List(ctx)
}

// UpdateName sets the caller's display name.
func (s *Service) UpdateName(ctx context.Context, id uuid.UUID, name string) (*models.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	return s.updated(ctx, id)(s.store.UpdateFullName(ctx, id, name))
}

// SetRole changes a profile's role.
func (s *Service) SetRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Profile, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.updated(ctx, id)(s.store.SetRole(ctx, id, role))
}

// SetStatus activates or deactivates a profile.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status models.ProfileStatus) (*models.Profile, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.updated(ctx, id)(s.store.SetStatus(ctx, id, status))
}

func (s *Service) updated(ctx context.Context, id uuid.UUID) func(*models.Profile, error) (*models.Profile, error) {
	return func(p *models.Profile, err error) (*models.Profile, error) {
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, ErrNotFound
		}
		s.changes.Publish(ctx, realtime.NewChange(realtime.TableProfiles, id, realtime.OpUpdate))
		return p, nil
	}
}

// UploadAvatar stores an image and points the profile at it. The previous
// avatar object is removed when it lives in our bucket.
func (s *Service) UploadAvatar(ctx context.Context, id uuid.UUID, contentType string, size int64, body io.Reader) (*models.Profile, error) {
	if s.avatars == nil {
		return nil, ErrAvatarsDisabled
	}
	if size > storage.MaxAvatarSize {
		return nil, ErrAvatarTooLarge
	}
	ext, ok := storage.AvatarExtension(contentType)
	if !ok {
		return nil, ErrAvatarType
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key := storage.AvatarKey(id.String(), uuid.New().String(), ext)
	url, err := s.avatars.PutAvatar(ctx, key, contentType, io.LimitReader(body, storage.MaxAvatarSize), size)
	if err != nil {
		return nil, err
	}
	p, err := s.updated(ctx, id)(s.store.SetAvatarURL(ctx, id, url))
	if err != nil {
		return nil, err
	}
	if current.AvatarURL != "" && current.AvatarURL != url {
		if err := s.avatars.DeleteAvatarURL(ctx, current.AvatarURL); err != nil {
			s.logger.Warn("delete previous avatar failed", zap.Error(err), zap.String("user_id", id.String()))
		}
	}
	return p, nil
}

// ListAdmins returns the admin allowlist.
func (s *Service) ListAdmins(ctx context.Context) ([]models.AdminEmail, error) {
	return s.store.ListAdmins(ctx)
}

// AddAdmin pre-authorizes an email for the admin role at signup.
func (s *Service) AddAdmin(ctx context.Context, email string) (*models.AdminEmail, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return nil, ErrInvalidEmail
	}
	a, err := s.store.AddAdmin(ctx, strings.ToLower(addr.Address))
	if err != nil {
		return nil, err
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableAdmins, a.ID, realtime.OpInsert))
	return a, nil
}

// RemoveAdmin deletes an allowlist entry. Existing profile roles are unchanged.
func (s *Service) RemoveAdmin(ctx context.Context, id uuid.UUID) error {
	ok, err := s.store.RemoveAdmin(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAdminNotFound
	}
	s.changes.Publish(ctx, realtime.NewChange(realtime.TableAdmins, id, realtime.OpDelete))
	return nil
}

// SeedAdmins upserts the configured allowlist.
func (s *Service) SeedAdmins(ctx context.Context, emails []string) error {
	n, err := s.store.SeedAdmins(ctx, emails)
	if err != nil {
		return fmt.Errorf("seed admins: %w", err)
	}
	s.logger.Info("admin allowlist seeded", zap.Int("configured", len(emails)), zap.Int("added", n))
	return nil
}
