package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROMOTION_INTERVAL_SEC", "")
	t.Setenv("REALTIME_DEBOUNCE_MS", "")
	t.Setenv("APP_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Polls.PromotionInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Realtime.Debounce)
	assert.Equal(t, "UTC", cfg.Polls.Timezone)
}

func TestLoadRejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("PROMOTION_INTERVAL_SEC", "0")
	_, err := Load()
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "huddle", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/huddle?sslmode=disable", c.DSN())

	c.URL = "postgres://elsewhere/x"
	assert.Equal(t, "postgres://elsewhere/x", c.DSN())
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, PollsConfig{}.Location())
	assert.Equal(t, time.UTC, PollsConfig{Timezone: "Not/AZone"}.Location())
}

func TestLoadAdminSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "admins.yaml")
	require.NoError(t, os.WriteFile(path, []byte("admins:\n  - Lead@Example.com\n  - ' ops@example.com '\n  - lead@example.com\n  - ''\n"), 0o600))

	emails, err := LoadAdminSeed(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"lead@example.com", "ops@example.com"}, emails)
}

func TestLoadAdminSeedMissingFile(t *testing.T) {
	emails, err := LoadAdminSeed(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, emails)

	emails, err = LoadAdminSeed("")
	require.NoError(t, err)
	assert.Nil(t, emails)
}

func TestLoadAdminSeedInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("admins: [unterminated"), 0o600))
	_, err := LoadAdminSeed(path)
	require.Error(t, err)
}
