package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Polls     PollsConfig
	Realtime  RealtimeConfig
	Secrets   SecretsConfig
	AdminSeed string // path to YAML file with pre-authorized admin emails; empty = none
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all (e.g. http://localhost:5173,http://localhost:3000)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/huddle?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to verify identity provider tokens.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the avatar bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	AvatarsBucket   string
	PublicBaseURL   string // optional CDN / website endpoint; empty = virtual-hosted S3 URL
}

// PollsConfig holds poll lifecycle settings.
type PollsConfig struct {
	Timezone          string
	PromotionInterval time.Duration
	PromotionLockTTL  time.Duration
}

// RealtimeConfig holds change feed settings.
type RealtimeConfig struct {
	Debounce time.Duration
}

// SecretsConfig holds shared secrets for machine callers (cron, auth webhook).
type SecretsConfig struct {
	Cron    string
	Webhook string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Location resolves the configured timezone, falling back to UTC.
func (c PollsConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "huddle"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AvatarsBucket:   getEnv("AWS_S3_AVATARS_BUCKET", "huddle-avatars"),
			PublicBaseURL:   strings.TrimRight(getEnv("AWS_S3_PUBLIC_BASE_URL", ""), "/"),
		},
		Polls: PollsConfig{
			Timezone:          getEnv("APP_TIMEZONE", "UTC"),
			PromotionInterval: time.Duration(getEnvInt("PROMOTION_INTERVAL_SEC", 30)) * time.Second,
			PromotionLockTTL:  time.Duration(getEnvInt("PROMOTION_LOCK_TTL_SEC", 25)) * time.Second,
		},
		Realtime: RealtimeConfig{
			Debounce: time.Duration(getEnvInt("REALTIME_DEBOUNCE_MS", 250)) * time.Millisecond,
		},
		Secrets: SecretsConfig{
			Cron:    getEnv("CRON_SECRET", ""),
			Webhook: getEnv("WEBHOOK_SECRET", ""),
		},
		AdminSeed: getEnv("ADMIN_SEED_FILE", ""),
	}
	if cfg.Polls.PromotionInterval <= 0 {
		return nil, fmt.Errorf("PROMOTION_INTERVAL_SEC must be positive")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
