// Package config reads the server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/dukerupert/chorequest/internal/backup"
)

// Store backends for the document record.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Port     string `env:"CHOREQUEST_PORT,default=8080"`
	DBPath   string `env:"CHOREQUEST_DB_PATH,default=chorequest.db"`
	LogLevel string `env:"CHOREQUEST_LOG_LEVEL,default=info"`
	Timezone string `env:"CHOREQUEST_TIMEZONE,default=Local"`

	Store       string `env:"CHOREQUEST_STORE,default=sqlite"`
	PostgresURL string `env:"CHOREQUEST_POSTGRES_URL"`
	RedisURL    string `env:"CHOREQUEST_REDIS_URL"`

	VAPIDPublicKey  string `env:"CHOREQUEST_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"CHOREQUEST_VAPID_PRIVATE_KEY"`
	VAPIDSubscriber string `env:"CHOREQUEST_VAPID_SUBSCRIBER"`

	ArchiveEndpoint   string `env:"CHOREQUEST_ARCHIVE_S3_ENDPOINT"`
	ArchiveBucket     string `env:"CHOREQUEST_ARCHIVE_S3_BUCKET"`
	ArchiveRegion     string `env:"CHOREQUEST_ARCHIVE_S3_REGION,default=us-east-1"`
	ArchiveAccessKey  string `env:"CHOREQUEST_ARCHIVE_S3_ACCESS_KEY"`
	ArchiveSecretKey  string `env:"CHOREQUEST_ARCHIVE_S3_SECRET_KEY"`
	ArchivePassphrase string `env:"CHOREQUEST_ARCHIVE_PASSPHRASE"`

	WeekCheckSchedule string `env:"CHOREQUEST_WEEK_CHECK_SCHEDULE,default=0 * * * *"`

	// PINAttempts wrong PINs are allowed per PINWindow per address.
	PINAttempts int           `env:"CHOREQUEST_PIN_ATTEMPTS,default=5"`
	PINWindow   time.Duration `env:"CHOREQUEST_PIN_WINDOW,default=1m"`
	// TrustProxy attributes requests by CF-Connecting-IP / X-Forwarded-For.
	// Only set it behind a proxy that overwrites those headers.
	TrustProxy  bool          `env:"CHOREQUEST_TRUST_PROXY,default=false"`
}

// Load reads envFile when it exists, then decodes the environment. Variables
// already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreSQLite:
	case StorePostgres:
		if c.PostgresURL == "" {
			return errors.New("CHOREQUEST_POSTGRES_URL is required when CHOREQUEST_STORE=postgres")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("CHOREQUEST_REDIS_URL is required when CHOREQUEST_STORE=redis")
		}
	default:
		return fmt.Errorf("unknown CHOREQUEST_STORE %q", c.Store)
	}
	if c.PINAttempts <= 0 || c.PINWindow <= 0 {
		return errors.New("PIN attempt limits must be positive")
	}
	return nil
}

// Location resolves the household time zone used for day and week
// boundaries.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return loc, nil
}

// Archive returns the weekly archive settings.
func (c *Config) Archive() backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  c.ArchiveEndpoint,
			Bucket:    c.ArchiveBucket,
			Region:    c.ArchiveRegion,
			AccessKey: c.ArchiveAccessKey,
			SecretKey: c.ArchiveSecretKey,
		},
		Passphrase: c.ArchivePassphrase,
	}
}
