package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const insecureJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string

	// RedisURL selects the shared lock service; empty means process-local locks.
	RedisURL string

	NBPBaseURL      string
	NBPTimeout      time.Duration
	NBPRetries      int
	NBPRetryBackoff time.Duration
	NBPRateLimit    int // outbound requests per second

	LockWait  time.Duration
	LockLease time.Duration

	// Location is the calendar "today" and "yesterday" are computed in.
	Location *time.Location

	CORSAllowedOrigins []string
	RateLimit          string // ulule/limiter formatted rate, e.g. "100-M"

	SchedulerEnabled bool
	SyncCron         string
	CacheRatesCron   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("JWT_SECRET", insecureJWTSecret)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("NBP_BASE_URL", "https://api.nbp.pl/api")
	v.SetDefault("NBP_TIMEOUT", "10s")
	v.SetDefault("NBP_RETRIES", 2)
	v.SetDefault("NBP_RETRY_BACKOFF", "200ms")
	v.SetDefault("NBP_RATE_LIMIT", 5)
	v.SetDefault("LOCK_WAIT", "2s")
	v.SetDefault("LOCK_LEASE", "10s")
	v.SetDefault("TIMEZONE", "Europe/Warsaw")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("SCHEDULER_ENABLED", false)
	v.SetDefault("SYNC_CRON", "0 6 * * *")
	v.SetDefault("CACHE_RATES_CRON", "15 6 * * *")
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{
		DatabaseURL:      v.GetString("PGSQL_URL"),
		Port:             v.GetString("PORT"),
		IsProduction:     v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:    v.GetBool("ENABLE_DB_CHECK"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		RedisURL:         v.GetString("REDIS_URL"),
		NBPBaseURL:       strings.TrimRight(v.GetString("NBP_BASE_URL"), "/"),
		NBPRetries:       v.GetInt("NBP_RETRIES"),
		NBPRateLimit:     v.GetInt("NBP_RATE_LIMIT"),
		RateLimit:        v.GetString("RATE_LIMIT"),
		SchedulerEnabled: v.GetBool("SCHEDULER_ENABLED"),
		SyncCron:         v.GetString("SYNC_CRON"),
		CacheRatesCron:   v.GetString("CACHE_RATES_CRON"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.JWTSecret == "" || cfg.JWTSecret == insecureJWTSecret {
		cfg.JWTSecret = insecureJWTSecret
		if cfg.IsProduction {
			return nil, fmt.Errorf("JWT_SECRET must be set in production")
		}
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.NBPRetries < 0 {
		return nil, fmt.Errorf("NBP_RETRIES must not be negative, got %d", cfg.NBPRetries)
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"NBP_TIMEOUT", &cfg.NBPTimeout},
		{"NBP_RETRY_BACKOFF", &cfg.NBPRetryBackoff},
		{"LOCK_WAIT", &cfg.LockWait},
		{"LOCK_LEASE", &cfg.LockLease},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(v.GetString(d.key)); err != nil {
			return nil, fmt.Errorf("invalid value for %s (%q): %w", d.key, v.GetString(d.key), err)
		}
	}
	if cfg.LockLease <= 0 {
		return nil, fmt.Errorf("LOCK_LEASE must be positive")
	}

	tz := v.GetString("TIMEZONE")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	for _, origin := range strings.Split(v.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}
