package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// InsecureJWTSecret is a placeholder secret that must never sign real tokens.
const InsecureJWTSecret = "change-me"

type Config struct {
	RunAddress     string
	DatabaseURI    string
	DatabaseDriver string
	LogLevel       string
	JWTSecret      string
	AdminKeyHash   string
	DayBoundaryTZ  string
	TokenTTL       time.Duration
}

// ParseFlags reads command-line flags; non-empty environment variables
// override them. A malformed TOKEN_TTL is reported as an error.
func ParseFlags() (Config, error) {
	var cfg Config

	flag.StringVar(&cfg.RunAddress, "a", ":8080", "address to run server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database uri, empty for in-memory storage")
	flag.StringVar(&cfg.DatabaseDriver, "driver", "pgx", "database/sql driver: pgx or postgres")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")
	flag.StringVar(&cfg.JWTSecret, "s", "", "bearer token signing secret, empty for a random per-process one")
	flag.StringVar(&cfg.AdminKeyHash, "admin-key-hash", "", "bcrypt hash of the admin key")
	flag.StringVar(&cfg.DayBoundaryTZ, "tz", "UTC", "time zone of the daily cap reset")
	flag.DurationVar(&cfg.TokenTTL, "token-ttl", 24*time.Hour, "bearer token lifetime")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		cfg.RunAddress = envRunAddr
	}
	if databaseURI := os.Getenv("DATABASE_URI"); databaseURI != "" {
		cfg.DatabaseURI = databaseURI
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		cfg.DatabaseDriver = driver
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if adminKeyHash := os.Getenv("ADMIN_KEY_HASH"); adminKeyHash != "" {
		cfg.AdminKeyHash = adminKeyHash
	}
	if tz := os.Getenv("DAY_BOUNDARY_TZ"); tz != "" {
		cfg.DayBoundaryTZ = tz
	}
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return cfg, fmt.Errorf("parse TOKEN_TTL %q: %w", ttl, err)
		}
		cfg.TokenTTL = d
	}

	return cfg, nil
}
