package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

// Config holds the sheet sources and their fetch settings.
type Config struct {
	LeaderboardCSVURL string
	PhotoCSVURL       string
	PhotoCacheTTL     time.Duration
	PhotoNaiveSplit   bool
	FetchTimeout      time.Duration
}

// Defaults
const (
	DefaultPhotoCacheTTL = 10 * time.Minute
	DefaultFetchTimeout  = 15 * time.Second
)

// LoadDotEnv loads .env into the environment if present. Existing variables win.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("[Config] Could not read .env")
	}
}

// LoadConfig reads Config from the environment. A missing URL disables that source.
func LoadConfig() Config {
	cfg := Config{
		LeaderboardCSVURL: os.Getenv("LEADERBOARD_CSV_URL"),
		PhotoCSVURL:       os.Getenv("PHOTO_CSV_URL"),
		PhotoCacheTTL:     envDuration("PHOTO_CACHE_TTL", DefaultPhotoCacheTTL),
		PhotoNaiveSplit:   envBool("PHOTO_CSV_NAIVE_SPLIT", false),
		FetchTimeout:      envDuration("SHEETS_FETCH_TIMEOUT", DefaultFetchTimeout),
	}

	if cfg.LeaderboardCSVURL == "" {
		log.Warn("[Config] LEADERBOARD_CSV_URL not set, leaderboard data disabled")
	}
	if cfg.PhotoCSVURL == "" {
		log.Warn("[Config] PHOTO_CSV_URL not set, photo lookup disabled")
	}

	return cfg
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warnf("[Config] Invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warnf("[Config] Invalid %s=%q, using %t", key, raw, fallback)
		return fallback
	}
	return b
}
