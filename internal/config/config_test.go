package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"YOUTUBE_API_KEYS", "YOUTUBE_API_KEY", "DB_PATH", "REDIS_URL", "CACHE_BACKEND",
		"CACHE_TTL", "KEY_COOLDOWN", "EMBEDDING_ENDPOINT", "EMBEDDING_MODEL",
		"EMBEDDING_BATCH_SIZE", "EMBEDDING_TIMEOUT", "CLUSTER_SEED", "SEARCH_ORDER",
		"SEARCH_MAX_PAGES", "SEARCH_RPS", "METRICS_TIMEZONE", "CORS_ORIGINS",
		"LOG_LEVEL", "LOG_FORMAT", "PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOUTUBE_API_KEY", "abc")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"abc"}, cfg.YouTubeAPIKeys)
	assert.Equal(t, CacheMemory, cfg.CacheBackend)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.KeyCooldown)
	assert.Equal(t, int64(42), cfg.ClusterSeed)
	assert.Equal(t, 20, cfg.SearchMaxPages)
	assert.Equal(t, "Asia/Seoul", cfg.MetricsTimezone)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.CORSOrigins)
}

func TestLoadKeyList(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOUTUBE_API_KEYS", "k1, k2,,k3 ")
	t.Setenv("YOUTUBE_API_KEY", "k4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k3", "k4"}, cfg.YouTubeAPIKeys)
}

func TestLoadBackendFollowsConnections(t *testing.T) {
	clearEnv(t)
	t.Setenv("YOUTUBE_API_KEY", "abc")
	t.Setenv("DB_PATH", "sqlitecloud://host:8860/db?apikey=x")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, CacheSQLite, cfg.CacheBackend)

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, CacheRedis, cfg.CacheBackend)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	for key, val := range map[string]string{
		"CACHE_TTL":        "tomorrow",
		"SEARCH_MAX_PAGES": "many",
		"SEARCH_RPS":       "fast",
		"CLUSTER_SEED":     "x",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{YouTubeAPIKeys: []string{"k"}, CacheBackend: CacheMemory, MetricsTimezone: "UTC"}
	require.NoError(t, valid.Validate())

	noKey := valid
	noKey.YouTubeAPIKeys = nil
	assert.ErrorIs(t, noKey.Validate(), ErrMissingAPIKey)

	redis := valid
	redis.CacheBackend = CacheRedis
	assert.ErrorIs(t, redis.Validate(), ErrBackendNeedsConn)

	bogus := valid
	bogus.CacheBackend = "memcached"
	assert.ErrorIs(t, bogus.Validate(), ErrInvalidBackend)

	tz := valid
	tz.MetricsTimezone = "Mars/Olympus"
	assert.Error(t, tz.Validate())
}
