package profiles

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamhuddle/backend/internal/models"
)

type memStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*models.Profile
	admins   map[string]models.AdminEmail
}

func newMemStore() *memStore {
	return &memStore{profiles: map[uuid.UUID]*models.Profile{}, admins: map[string]models.AdminEmail{}}
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) Insert(_ context.Context, p *models.Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; ok {
		return false, nil
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return true, nil
}

func (m *memStore) List(context.Context) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Profile
	for _, p := range m.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) mutate(id uuid.UUID, fn func(*models.Profile)) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	fn(p)
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateFullName(_ context.Context, id uuid.UUID, name string) (*models.Profile, error) {
	return m.mutate(id, func(p *models.Profile) { p.FullName = name })
}

func (m *memStore) SetRole(_ context.Context, id uuid.UUID, role models.Role) (*models.Profile, error) {
	return m.mutate(id, func(p *models.Profile) { p.Role = role })
}

func (m *memStore) SetStatus(_ context.Context, id uuid.UUID, s models.ProfileStatus) (*models.Profile, error) {
	return m.mutate(id, func(p *models.Profile) { p.Status = s })
}

func (m *memStore) SetAvatarURL(_ context.Context, id uuid.UUID, url string) (*models.Profile, error) {
	return m.mutate(id, func(p *models.Profile) { p.AvatarURL = url })
}

func (m *memStore) IsAllowlisted(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.admins[strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}

func (m *memStore) ListAdmins(context.Context) ([]models.AdminEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AdminEmail
	for _, a := range m.admins {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) AddAdmin(_ context.Context, email string) (*models.AdminEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := m.admins[key]; ok {
		return nil, ErrAdminExists
	}
	a := models.AdminEmail{ID: uuid.New(), Email: email}
	m.admins[key] = a
	return &a, nil
}

func (m *memStore) RemoveAdmin(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, a := range m.admins {
		if a.ID == id {
			delete(m.admins, k)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SeedAdmins(ctx context.Context, emails []string) (int, error) {
	n := 0
	for _, e := range emails {
		if _, err := m.AddAdmin(ctx, e); err == nil {
			n++
		}
	}
	return n, nil
}

type fakeAvatars struct {
	puts    []string
	deleted []string
}

func (f *fakeAvatars) PutAvatar(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	_, _ = io.Copy(io.Discard, body)
	f.puts = append(f.puts, key)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeAvatars) DeleteAvatarURL(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

func signup(id uuid.UUID, email, name string) SignupEvent {
	ev := SignupEvent{Type: "INSERT", Table: "users"}
	ev.Record.ID = id.String()
	ev.Record.Email = email
	ev.Record.Metadata.Name = name
	return ev
}

func TestHandleSignup(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	_, err := store.AddAdmin(ctx, "lead@example.com")
	require.NoError(t, err)
	svc := NewService(store, nil, nil, nil)

	memberID := uuid.New()
	p, created, err := svc.HandleSignup(ctx, signup(memberID, "ann@example.com", "Ann"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleUser, p.Role)
	assert.Equal(t, models.ProfileActive, p.Status)
	assert.Equal(t, "Ann", p.FullName)

	adminID := uuid.New()
	p, _, err = svc.HandleSignup(ctx, signup(adminID, "Lead@Example.com", ""))
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, p.Role)

	p, created, err = svc.HandleSignup(ctx, signup(memberID, "ann@example.com", "Other"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Ann", p.FullName)

	p, created, err = svc.HandleSignup(ctx, SignupEvent{Type: "UPDATE", Table: "users"})
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.False(t, created)

	_, _, err = svc.HandleSignup(ctx, signup(uuid.Nil, "", ""))
	assert.ErrorIs(t, err, ErrInvalidSignup)
}

func TestRoleAndStatusValidation(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, nil, nil, nil)
	id := uuid.New()
	_, _, err := svc.HandleSignup(ctx, signup(id, "a@example.com", "A"))
	require.NoError(t, err)

	_, err = svc.SetRole(ctx, id, "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
	p, err := svc.SetRole(ctx, id, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())

	_, err = svc.SetStatus(ctx, id, "gone")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	p, err = svc.SetStatus(ctx, id, models.ProfileInactive)
	require.NoError(t, err)
	assert.Equal(t, models.ProfileInactive, p.Status)

	_, err = svc.SetStatus(ctx, uuid.New(), models.ProfileActive)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateName(ctx, id, "   ")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAdminAllowlist(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(), nil, nil, nil)

	a, err := svc.AddAdmin(ctx, "Ops@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", a.Email)

	_, err = svc.AddAdmin(ctx, "ops@example.com")
	assert.ErrorIs(t, err, ErrAdminExists)
	_, err = svc.AddAdmin(ctx, "not an email")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	require.NoError(t, svc.RemoveAdmin(ctx, a.ID))
	assert.ErrorIs(t, svc.RemoveAdmin(ctx, a.ID), ErrAdminNotFound)

	require.NoError(t, svc.SeedAdmins(ctx, []string{"x@example.com", "y@example.com"}))
	list, err := svc.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUploadAvatar(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	id := uuid.New()
	_, err := store.Insert(ctx, &models.Profile{ID: id, Email: "a@example.com", AvatarURL: "https://cdn.example.com/avatars/old.png"})
	require.NoError(t, err)

	_, err = NewService(store, nil, nil, nil).UploadAvatar(ctx, id, "image/png", 10, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrAvatarsDisabled)

	avatars := &fakeAvatars{}
	svc := NewService(store, avatars, nil, nil)

	_, err = svc.UploadAvatar(ctx, id, "application/pdf", 10, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrAvatarType)
	_, err = svc.UploadAvatar(ctx, id, "image/png", 6<<20, bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrAvatarTooLarge)

	p, err := svc.UploadAvatar(ctx, id, "image/png", 3, bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	require.Len(t, avatars.puts, 1)
	assert.True(t, strings.HasPrefix(avatars.puts[0], "avatars/"+id.String()+"/"))
	assert.True(t, strings.HasSuffix(avatars.puts[0], ".png"))
	assert.Equal(t, "https://cdn.example.com/"+avatars.puts[0], p.AvatarURL)
	assert.Equal(t, []string{"https://cdn.example.com/avatars/old.png"}, avatars.deleted)
}
