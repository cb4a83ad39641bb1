package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sujalbistaa/whisperwall/internal/log"
)

// Defaults used when the environment leaves a setting empty or invalid.
const (
	DefaultPort            = "8080"
	DefaultDatabaseURL     = "sqlite://whisperwall.db"
	DefaultRateEvery       = "3s"
	DefaultRateBurst       = 1
	DefaultWhisperTTL      = "24h"
	DefaultConfessionTTL   = "30m"
	DefaultReapInterval    = "10m"
	DefaultWhisperSample   = 3
	DefaultSessionSecret   = "change-me-in-production"
	DefaultFeedPageSize    = 20
	MaxPageSize            = 50
	MaxPostLength          = 2000
	MaxCommentLength       = 1000
	MaxMessageLength       = 4000
	MaxWhisperChainHops    = 10
	DefaultReactorsPerPage = 20
)

type Config struct {
	Port        string
	DatabaseURL string
	CORSOrigin  string
	AdminToken  string

	SessionSecret string
	RedisURL      string

	RateEvery time.Duration
	RateBurst int

	WhisperTTL    time.Duration
	ConfessionTTL time.Duration
	ReapInterval  time.Duration
	WhisperSample int
}

// Load builds the configuration from the environment.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", DefaultPort),
		DatabaseURL: getEnv("DATABASE_URL", DefaultDatabaseURL),
		CORSOrigin:  getEnv("CORS_ORIGIN", "*"),
		AdminToken:  os.Getenv("X_ADMIN_TOKEN"),

		SessionSecret: getEnv("SESSION_SECRET", DefaultSessionSecret),
		RedisURL:      os.Getenv("REDIS_URL"),

		RateEvery: getDuration("RATE_EVERY", DefaultRateEvery),
		RateBurst: getInt("RATE_BURST", DefaultRateBurst),

		WhisperTTL:    getDuration("WHISPER_TTL", DefaultWhisperTTL),
		ConfessionTTL: getDuration("CONFESSION_TTL", DefaultConfessionTTL),
		ReapInterval:  getDuration("WHISPER_REAP_INTERVAL", DefaultReapInterval),
		WhisperSample: getInt("FEED_WHISPER_SAMPLE", DefaultWhisperSample),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Warn.Printf("Invalid %s duration %q, using default %s", key, raw, fallback)
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn.Printf("Invalid %s integer %q, using default %d", key, raw, fallback)
		return fallback
	}
	return n
}
