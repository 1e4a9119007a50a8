package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingAPIKey    = errors.New("YouTube API key is required")
	ErrInvalidBackend   = errors.New("unknown cache backend")
	ErrBackendNeedsConn = errors.New("cache backend needs a connection setting")
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheSQLite = "sqlite"
)

// Config holds the application configuration
type Config struct {
	YouTubeAPIKeys []string
	KeyCooldown    time.Duration

	DBPath string

	CacheBackend string
	CacheTTL     time.Duration
	RedisURL     string

	EmbeddingEndpoint  string
	EmbeddingModel     string
	EmbeddingAPIKey    string
	EmbeddingBatchSize int
	EmbeddingTimeout   time.Duration

	ClusterSeed    int64
	SearchOrder    string
	SearchMaxPages int
	SearchRPS      float64

	MetricsTimezone string
	CORSOrigins     []string

	LogLevel  string
	LogFormat string
	Port      string
}

// Load loads the configuration from environment variables. Malformed
// numbers and durations are reported rather than silently replaced.
func Load() (*Config, error) {
	keys := splitList(os.Getenv("YOUTUBE_API_KEYS"))
	if single := strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY")); single != "" {
		keys = append(keys, single)
	}

	cfg := &Config{
		YouTubeAPIKeys:    keys,
		DBPath:            os.Getenv("DB_PATH"),
		RedisURL:          os.Getenv("REDIS_URL"),
		EmbeddingEndpoint: os.Getenv("EMBEDDING_ENDPOINT"),
		EmbeddingModel:    getenv("EMBEDDING_MODEL", "all-MiniLM-L6-v2"),
		EmbeddingAPIKey:   os.Getenv("EMBEDDING_API_KEY"),
		SearchOrder:       getenv("SEARCH_ORDER", "relevance"),
		MetricsTimezone:   getenv("METRICS_TIMEZONE", "Asia/Seoul"),
		CORSOrigins:       splitList(getenv("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "json"),
		Port:              getenv("PORT", "8080"),
	}

	var err error
	if cfg.KeyCooldown, err = durationEnv("KEY_COOLDOWN", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EmbeddingTimeout, err = durationEnv("EMBEDDING_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.EmbeddingBatchSize, err = intEnv("EMBEDDING_BATCH_SIZE", 32); err != nil {
		return nil, err
	}
	if cfg.SearchMaxPages, err = intEnv("SEARCH_MAX_PAGES", 20); err != nil {
		return nil, err
	}
	seed, err := intEnv("CLUSTER_SEED", 42)
	if err != nil {
		return nil, err
	}
	cfg.ClusterSeed = int64(seed)
	if cfg.SearchRPS, err = floatEnv("SEARCH_RPS", 5); err != nil {
		return nil, err
	}

	cfg.CacheBackend = strings.ToLower(os.Getenv("CACHE_BACKEND"))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = defaultBackend(cfg)
	}

	return cfg, nil
}

func defaultBackend(cfg *Config) string {
	switch {
	case cfg.RedisURL != "":
		return CacheRedis
	case cfg.DBPath != "":
		return CacheSQLite
	default:
		return CacheMemory
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.YouTubeAPIKeys) == 0 {
		return fmt.Errorf("%w: set YOUTUBE_API_KEYS or YOUTUBE_API_KEY", ErrMissingAPIKey)
	}
	switch c.CacheBackend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: CACHE_BACKEND=redis requires REDIS_URL", ErrBackendNeedsConn)
		}
	case CacheSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("%w: CACHE_BACKEND=sqlite requires DB_PATH", ErrBackendNeedsConn)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.CacheBackend)
	}
	if _, err := time.LoadLocation(c.MetricsTimezone); err != nil {
		return fmt.Errorf("METRICS_TIMEZONE: %w", err)
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
