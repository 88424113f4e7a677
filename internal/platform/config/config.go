// Package config loads all runtime configuration from the environment so
// main stays lean.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr string
	Env  string // "development" or "production"

	DatabaseURL    string
	MigrateOnStart bool

	RedisURL string

	BlobDir string

	SendgridAPIKey string
	MailFrom       string
	MailFromName   string

	ShutdownTimeout time.Duration
}

// Load reads a local .env file when present, then builds the config from the
// environment. Missing optional values fall back to development defaults.
func Load() Config {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	return Config{
		Addr:            envOr("MATRICULA_ADDR", ":8080"),
		Env:             envOr("MATRICULA_ENV", "development"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		MigrateOnStart:  os.Getenv("MIGRATE_ON_START") != "false",
		RedisURL:        os.Getenv("REDIS_URL"),
		BlobDir:         envOr("BLOB_DIR", "./data/documents"),
		SendgridAPIKey:  os.Getenv("SENDGRID_API_KEY"),
		MailFrom:        envOr("MAIL_FROM", "admissions@example.edu"),
		MailFromName:    envOr("MAIL_FROM_NAME", "Admissions Office"),
		ShutdownTimeout: 10 * time.Second,
	}
}

// IsProduction reports whether the server runs with production settings.
func (c Config) IsProduction() bool { return c.Env == "production" }

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
