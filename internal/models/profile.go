package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a profile's role. profiles.role is the single source of truth;
// the admins table only pre-authorizes emails at signup.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// ProfileStatus is the active/inactive flag on a profile.
type ProfileStatus string

const (
	ProfileActive   ProfileStatus = "active"
	ProfileInactive ProfileStatus = "inactive"
)

// Valid reports whether s is a known status.
func (s ProfileStatus) Valid() bool { return s == ProfileActive || s == ProfileInactive }

// Profile is a user account, created on first sign-in.
type Profile struct {
	ID        uuid.UUID     `json:"id"`
	Email     string        `json:"email"`
	FullName  string        `json:"full_name"`
	AvatarURL string        `json:"avatar_url,omitempty"`
	Role      Role          `json:"role"`
	Status    ProfileStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsAdmin reports whether the profile holds the admin role.
func (p *Profile) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

// ProfileSummary is the subset of a profile embedded in other views.
type ProfileSummary struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// AdminEmail is one entry of the pre-authorized admin list.
type AdminEmail struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
