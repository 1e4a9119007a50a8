package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/yt-insights/nicheexplorer/internal/api"
	"github.com/yt-insights/nicheexplorer/internal/cache"
	"github.com/yt-insights/nicheexplorer/internal/cluster"
	"github.com/yt-insights/nicheexplorer/internal/collector"
	"github.com/yt-insights/nicheexplorer/internal/config"
	"github.com/yt-insights/nicheexplorer/internal/embedding"
	"github.com/yt-insights/nicheexplorer/internal/logging"
	"github.com/yt-insights/nicheexplorer/internal/models"
	"github.com/yt-insights/nicheexplorer/internal/niche"
	"github.com/yt-insights/nicheexplorer/internal/telemetry"
	"github.com/yt-insights/nicheexplorer/internal/youtube"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logging.Warn().Msg(".env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	loc, _ := time.LoadLocation(cfg.MetricsTimezone)

	telemetry.Register()

	var db *models.Database
	if cfg.DBPath != "" {
		db, err = models.NewDatabase(cfg.DBPath)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to initialize database")
		}
		defer db.Close()
	} else {
		logging.Warn().Msg("DB_PATH not set, runs and channel metrics will not be persisted")
	}

	resultCache := newCache(cfg, db)

	ring := collector.NewKeyRing(cfg.YouTubeAPIKeys, cfg.KeyCooldown)
	yt := youtube.NewClient()
	col := collector.New(yt, ring, collector.Options{
		Order:             models.VideoSortOption(cfg.SearchOrder),
		MaxPages:          cfg.SearchMaxPages,
		RequestsPerSecond: cfg.SearchRPS,
	})

	var embedder embedding.Embedder = embedding.HashEmbedder{}
	if cfg.EmbeddingEndpoint != "" {
		embedder = embedding.NewHTTPEmbedder(embedding.HTTPConfig{
			Endpoint:  cfg.EmbeddingEndpoint,
			Model:     cfg.EmbeddingModel,
			APIKey:    cfg.EmbeddingAPIKey,
			BatchSize: cfg.EmbeddingBatchSize,
			Timeout:   cfg.EmbeddingTimeout,
		})
	} else {
		logging.Warn().Msg("EMBEDDING_ENDPOINT not set, clustering on hashed title features")
	}

	opts := []niche.Option{niche.WithCache(resultCache)}
	deps := api.Deps{
		Channels:    yt,
		Keys:        ring,
		Location:    loc,
		CORSOrigins: cfg.CORSOrigins,
	}
	if db != nil {
		opts = append(opts, niche.WithRunStore(db))
		deps.RunReader = db
		deps.Engagement = db
	}
	deps.Explorer = niche.NewExplorer(col, embedder, cluster.NewKMeans(cfg.ClusterSeed), opts...)

	logging.Info().
		Int("api_keys", ring.Len()).
		Str("cache", resultCache.Name()).
		Str("embedder", embedder.Model()).
		Msg("niche explorer configured")

	server := api.NewServer(deps)
	if err := server.Start(cfg.Port); err != nil {
		logging.Fatal().Err(err).Msg("failed to start server")
	}
}

func newCache(cfg *config.Config, db *models.Database) cache.Cache {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		rc, err := cache.NewRedis(context.Background(), cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			logging.Warn().Err(err).Msg("redis unavailable, falling back to in-memory cache")
			return cache.NewMemory(cfg.CacheTTL, 0)
		}
		return rc
	case config.CacheSQLite:
		if db != nil {
			return cache.NewSQLite(db, cfg.CacheTTL)
		}
		return cache.NewMemory(cfg.CacheTTL, 0)
	case config.CacheNone:
		return cache.Nop{}
	default:
		return cache.NewMemory(cfg.CacheTTL, 0)
	}
}
