// Package config reads lessonweave settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config holds every setting the CLI and servers need. Flags override it.
type Config struct {
	ContentDir string `env:"LESSONWEAVE_CONTENT_DIR" envDefault:"."`
	LogLevel   string `env:"LESSONWEAVE_LOG_LEVEL"   envDefault:"info"`

	Store    string `env:"LESSONWEAVE_STORE"     envDefault:"memory"`
	StoreDir string `env:"LESSONWEAVE_STORE_DIR" envDefault:".lessonweave/progress"`

	RedisAddr     string        `env:"LESSONWEAVE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"LESSONWEAVE_REDIS_PASSWORD"`
	RedisDB       int           `env:"LESSONWEAVE_REDIS_DB"   envDefault:"0"`
	RedisTTL      time.Duration `env:"LESSONWEAVE_REDIS_TTL"`

	SQLitePath string `env:"LESSONWEAVE_SQLITE_PATH" envDefault:".lessonweave/progress.db"`

	// Base64 AES-256 keys. When EncryptionKey is set every saved document is sealed.
	EncryptionKey          string   `env:"LESSONWEAVE_ENCRYPTION_KEY"`
	EncryptionFallbackKeys []string `env:"LESSONWEAVE_ENCRYPTION_FALLBACK_KEYS"`
	// Regular expressions; matching state keys are masked before saving.
	RedactKeys []string `env:"LESSONWEAVE_REDACT_KEYS"`

	HTTPAddr      string        `env:"LESSONWEAVE_HTTP_ADDR"      envDefault:":8080"`
	Metrics       bool          `env:"LESSONWEAVE_METRICS"        envDefault:"true"`
	LockTTL       time.Duration `env:"LESSONWEAVE_LOCK_TTL"       envDefault:"30s"`
	MaxSubmission int           `env:"LESSONWEAVE_MAX_SUBMISSION" envDefault:"65536"`
	// Keep password unlocks when progression is initialized.
	KeepPasswordUnlocks bool `env:"LESSONWEAVE_KEEP_PASSWORD_UNLOCKS"`
}

// Load reads the given .env files (default ".env"; missing files are skipped)
// without overriding variables already set, then parses the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreSQLite:
		return nil
	default:
		return fmt.Errorf("unknown store %q (want memory, file, redis or sqlite)", c.Store)
	}
}
