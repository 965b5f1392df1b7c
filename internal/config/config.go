package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures the runtime configuration for the StreamHub backend service.
type Config struct {
	AppPort      int
	DatabaseURL  string
	MigrationDir string
	SeedDir      string
	LogLevel     string
	CORSOrigin   string

	AccessTokenSecret  string
	AccessTokenTTL     time.Duration
	RefreshTokenSecret string
	RefreshTokenTTL    time.Duration

	FFProbePath      string
	FFProbeTimeout   time.Duration
	MetadataCacheTTL time.Duration

	VideoStagingDir string
	IngestWorkers   int
	IngestQueueSize int

	SecureCookies  bool
	LoginRateLimit int
	LoginRateBurst int

	ObjectStore ObjectStoreConfig
}

// ObjectStoreConfig describes the S3-compatible bucket used for hosted media.
type ObjectStoreConfig struct {
	Bucket        string
	Endpoint      string
	Region        string
	PublicBaseURL string
}

// Load reads configuration from environment variables. Optional settings fall
// back to development defaults; signing secrets, the database URL, and the
// allowed CORS origin are required and their absence is a startup error that
// names every missing variable at once.
func Load() (Config, error) {
	cfg := Config{
		AppPort:          getInt("STREAMHUB_PORT", 8080),
		DatabaseURL:      os.Getenv("STREAMHUB_DATABASE_URL"),
		MigrationDir:     getString("STREAMHUB_MIGRATIONS", "migrations"),
		SeedDir:          getString("STREAMHUB_SEEDS", "seeds"),
		LogLevel:         getString("STREAMHUB_LOG_LEVEL", "info"),
		CORSOrigin:       os.Getenv("STREAMHUB_CORS_ORIGIN"),

		AccessTokenSecret:  os.Getenv("STREAMHUB_ACCESS_TOKEN_SECRET"),
		AccessTokenTTL:     getDuration("STREAMHUB_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenSecret: os.Getenv("STREAMHUB_REFRESH_TOKEN_SECRET"),
		RefreshTokenTTL:    getDuration("STREAMHUB_REFRESH_TOKEN_TTL", 10*24*time.Hour),

		FFProbePath:      getString("STREAMHUB_FFPROBE_PATH", "ffprobe"),
		FFProbeTimeout:   getDuration("STREAMHUB_FFPROBE_TIMEOUT", 30*time.Second),
		MetadataCacheTTL: getDuration("STREAMHUB_METADATA_CACHE_TTL", 15*time.Minute),

		VideoStagingDir: getString("STREAMHUB_VIDEO_STAGING", "uploads/staging"),
		IngestWorkers:   getInt("STREAMHUB_INGEST_WORKERS", 2),
		IngestQueueSize: getInt("STREAMHUB_INGEST_QUEUE", 16),

		SecureCookies:  getBool("STREAMHUB_SECURE_COOKIES", true),
		LoginRateLimit: getInt("STREAMHUB_LOGIN_RATE_LIMIT", 10),
		LoginRateBurst: getInt("STREAMHUB_LOGIN_RATE_BURST", 5),

		ObjectStore: ObjectStoreConfig{
			Bucket:        getString("STREAMHUB_MEDIA_BUCKET", "streamhub-media"),
			Endpoint:      os.Getenv("STREAMHUB_MEDIA_ENDPOINT"),
			Region:        getString("STREAMHUB_MEDIA_REGION", "us-east-1"),
			PublicBaseURL: os.Getenv("STREAMHUB_MEDIA_PUBLIC_URL"),
		},
	}

	var missing []string
	for _, req := range []struct {
		name  string
		value string
	}{
		{"STREAMHUB_DATABASE_URL", cfg.DatabaseURL},
		{"STREAMHUB_ACCESS_TOKEN_SECRET", cfg.AccessTokenSecret},
		{"STREAMHUB_REFRESH_TOKEN_SECRET", cfg.RefreshTokenSecret},
		{"STREAMHUB_CORS_ORIGIN", cfg.CORSOrigin},
	} {
		if strings.TrimSpace(req.value) == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return Config{}, fmt.Errorf("STREAMHUB_ACCESS_TOKEN_SECRET and STREAMHUB_REFRESH_TOKEN_SECRET must differ")
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
