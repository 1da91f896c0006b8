package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/syncsieve/internal/logging"
	"github.com/forPelevin/syncsieve/internal/types"
)

// Config holds environment-level settings. CLI flags override them.
type Config struct {
	Tools ToolsConfig
	Run   RunConfig
	Redis RedisConfig
	Log   LogConfig
}

type ToolsConfig struct {
	Python     string
	SyncNetDir string
	FFmpeg     string
	FFprobe    string
	// MinTrack and MinFaceSize of 0 leave the per-command default in place.
	MinTrack    int
	MinFaceSize int
}

type RunConfig struct {
	Workers      int
	WorkDir      string
	StageRetries int
	StageTimeout time.Duration
}

type RedisConfig struct {
	URL string
	TTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from SYNCSIEVE_* environment variables and
// validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Tools: ToolsConfig{
			Python:      envString("SYNCSIEVE_PYTHON", "python3"),
			SyncNetDir:  envString("SYNCSIEVE_SYNCNET_DIR", "."),
			FFmpeg:      envString("SYNCSIEVE_FFMPEG", "ffmpeg"),
			FFprobe:     envString("SYNCSIEVE_FFPROBE", "ffprobe"),
			MinTrack:    envInt("SYNCSIEVE_MIN_TRACK", 0),
			MinFaceSize: envInt("SYNCSIEVE_MIN_FACE_SIZE", 0),
		},
		Run: RunConfig{
			Workers:      envInt("SYNCSIEVE_WORKERS", 2),
			WorkDir:      envString("SYNCSIEVE_WORK_DIR", ""),
			StageRetries: envInt("SYNCSIEVE_STAGE_RETRIES", 0),
			StageTimeout: envDuration("SYNCSIEVE_STAGE_TIMEOUT", 0),
		},
		Redis: RedisConfig{
			URL: os.Getenv("SYNCSIEVE_REDIS_URL"),
			TTL: envDuration("SYNCSIEVE_CACHE_TTL", 7*24*time.Hour),
		},
		Log: LogConfig{
			Level:  envString("SYNCSIEVE_LOG_LEVEL", "info"),
			Format: envString("SYNCSIEVE_LOG_FORMAT", "text"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Run.Workers < 1 {
		return fmt.Errorf("SYNCSIEVE_WORKERS must be >= 1, got %d: %w", c.Run.Workers, types.ErrConfiguration)
	}
	if c.Run.StageRetries < 0 {
		return fmt.Errorf("SYNCSIEVE_STAGE_RETRIES must be >= 0, got %d: %w", c.Run.StageRetries, types.ErrConfiguration)
	}
	if c.Run.StageTimeout < 0 {
		return fmt.Errorf("SYNCSIEVE_STAGE_TIMEOUT must not be negative: %w", types.ErrConfiguration)
	}
	if c.Tools.MinTrack < 0 || c.Tools.MinFaceSize < 0 {
		return fmt.Errorf("SYNCSIEVE_MIN_TRACK and SYNCSIEVE_MIN_FACE_SIZE must not be negative: %w", types.ErrConfiguration)
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("SYNCSIEVE_CACHE_TTL must not be negative: %w", types.ErrConfiguration)
	}
	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("SYNCSIEVE_REDIS_URL must start with redis:// or rediss://, got %q: %w", c.Redis.URL, types.ErrConfiguration)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("SYNCSIEVE_LOG_LEVEL: %v: %w", err, types.ErrConfiguration)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("SYNCSIEVE_LOG_FORMAT must be text or json, got %q: %w", c.Log.Format, types.ErrConfiguration)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
