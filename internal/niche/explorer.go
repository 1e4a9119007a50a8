package niche

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yt-insights/nicheexplorer/internal/cache"
	"github.com/yt-insights/nicheexplorer/internal/cluster"
	"github.com/yt-insights/nicheexplorer/internal/collector"
	"github.com/yt-insights/nicheexplorer/internal/embedding"
	"github.com/yt-insights/nicheexplorer/internal/logging"
	"github.com/yt-insights/nicheexplorer/internal/models"
	"github.com/yt-insights/nicheexplorer/internal/telemetry"
)

const (
	DefaultMaxItems     = 200
	MaxItemsLimit       = 500
	DefaultClusterCount = 8
	ClusterCountLimit   = 50
	// DescriptionPrefix is how much of a description is embedded with the title.
	DescriptionPrefix = 200
	// SalvageTimeout bounds analysis of a partial run after the caller gave up.
	SalvageTimeout = 30 * time.Second
)

// ErrEmptyKeyword is returned when Explore is called without a keyword.
var ErrEmptyKeyword = errors.New("keyword is required")

// Collector gathers videos for a keyword. *collector.Collector satisfies it.
type Collector interface {
	Collect(ctx context.Context, keyword string, target int) collector.Result
}

// RunStore persists finished runs.
type RunStore interface {
	SaveNicheRun(run *models.NicheRun) error
}

// ExploreRequest describes one explore call. Zero MaxItems and ClusterCount
// take the defaults; out-of-range values are clamped.
type ExploreRequest struct {
	Keyword      string
	MaxItems     int
	ClusterCount int
	UseCache     bool
}

// Explorer runs collect, embed, cluster and score for a keyword.
type Explorer struct {
	collector Collector
	embedder  embedding.Embedder
	clusterer cluster.Clusterer
	cache     cache.Cache
	store     RunStore
	now       func() time.Time
}

// Option customizes an Explorer.
type Option func(*Explorer)

// WithCache enables result caching.
func WithCache(c cache.Cache) Option {
	return func(e *Explorer) { e.cache = c }
}

// WithRunStore saves every complete run to s.
func WithRunStore(s RunStore) Option {
	return func(e *Explorer) { e.store = s }
}

// NewExplorer wires the pipeline collaborators.
func NewExplorer(c Collector, emb embedding.Embedder, cl cluster.Clusterer, opts ...Option) *Explorer {
	e := &Explorer{
		collector: c,
		embedder:  emb,
		clusterer: cl,
		cache:     cache.Nop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func clamp(v, def, limit int) int {
	switch {
	case v == 0:
		return def
	case v < 1:
		return 1
	case v > limit:
		return limit
	}
	return v
}

// Normalize trims the keyword and applies defaults and limits.
func (r ExploreRequest) Normalize() ExploreRequest {
	r.Keyword = strings.TrimSpace(r.Keyword)
	r.MaxItems = clamp(r.MaxItems, DefaultMaxItems, MaxItemsLimit)
	r.ClusterCount = clamp(r.ClusterCount, DefaultClusterCount, ClusterCountLimit)
	return r
}

func (r ExploreRequest) cacheKey() string {
	return cache.Key(r.Keyword, strconv.Itoa(r.MaxItems), strconv.Itoa(r.ClusterCount))
}

// Explore returns the ranked clusters for req.Keyword. Collection problems
// and caller cancellation yield a partial run flagged Incomplete. Otherwise
// only a missing keyword, an embedding failure or a clustering failure is
// returned as an error.
func (e *Explorer) Explore(ctx context.Context, req ExploreRequest) (*models.NicheRun, error) {
	req = req.Normalize()
	if req.Keyword == "" {
		return nil, ErrEmptyKeyword
	}
	log := logging.With("explorer")
	start := e.now()

	if req.UseCache {
		if run := e.lookup(ctx, req); run != nil {
			log.Info().Str("keyword", req.Keyword).Str("run_id", run.ID).Msg("serving cached run")
			return run, nil
		}
	}

	res := e.collector.Collect(ctx, req.Keyword, req.MaxItems)
	run := &models.NicheRun{
		ID:         uuid.NewString(),
		Keyword:    req.Keyword,
		Params:     models.NicheParams{MaxItems: req.MaxItems, ClusterCount: req.ClusterCount},
		FetchedAt:  e.now().UTC(),
		Collected:  len(res.Videos),
		Pages:      res.Pages,
		StopReason: res.Reason,
		Incomplete: res.Incomplete,
		Clusters:   []models.ClusterResult{},
	}

	if len(res.Videos) > 0 {
		if ctx.Err() != nil {
			run.Clusters = e.salvage(ctx, res.Videos, req.ClusterCount)
			run.Incomplete = true
		} else {
			clusters, err := e.analyze(ctx, res.Videos, req.ClusterCount)
			if err != nil {
				return nil, err
			}
			run.Clusters = clusters
		}
	}

	telemetry.ExploreDuration.WithLabelValues(string(run.StopReason)).Observe(e.now().Sub(start).Seconds())
	log.Info().
		Str("keyword", req.Keyword).
		Str("run_id", run.ID).
		Int("videos", run.Collected).
		Int("clusters", len(run.Clusters)).
		Bool("incomplete", run.Incomplete).
		Msg("explore finished")

	if !run.Incomplete {
		e.persist(ctx, req, run)
	}
	return run, nil
}

// salvage analyzes what was collected before ctx ended. It runs detached
// from ctx and returns no clusters if analysis fails.
func (e *Explorer) salvage(ctx context.Context, videos []models.Video, clusterCount int) []models.ClusterResult {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SalvageTimeout)
	defer cancel()

	clusters, err := e.analyze(sctx, videos, clusterCount)
	if err != nil {
		logging.Warn().Err(err).Int("videos", len(videos)).Msg("could not analyze partial run")
		return []models.ClusterResult{}
	}
	return clusters
}

func (e *Explorer) analyze(ctx context.Context, videos []models.Video, clusterCount int) ([]models.ClusterResult, error) {
	texts := make([]string, len(videos))
	for i, v := range videos {
		texts[i] = EmbeddingText(v)
	}

	embedStart := time.Now()
	vectors, err := e.embedder.Embed(ctx, texts)
	telemetry.EmbedDuration.Observe(time.Since(embedStart).Seconds())
	if err != nil {
		return nil, fmt.Errorf("embed %d titles with %s: %w", len(texts), e.embedder.Model(), err)
	}

	labels, err := e.clusterer.Cluster(vectors, min(clusterCount, len(videos)))
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}

	clusters, err := Score(videos, labels)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	groups := make([][]string, len(clusters))
	for i, c := range clusters {
		for _, id := range c.VideoIDs {
			groups[i] = append(groups[i], byID[id].Title)
		}
	}
	for i, label := range LabelClusters(groups) {
		clusters[i].Label = label
	}
	return clusters, nil
}

// EmbeddingText is the title followed by the start of the description.
func EmbeddingText(v models.Video) string {
	desc := []rune(v.Description)
	if len(desc) > DescriptionPrefix {
		desc = desc[:DescriptionPrefix]
	}
	return strings.TrimSpace(v.Title + " " + string(desc))
}

func (e *Explorer) lookup(ctx context.Context, req ExploreRequest) *models.NicheRun {
	backend := e.cache.Name()
	data, ok, err := e.cache.Get(ctx, req.cacheKey())
	if err != nil {
		logging.Warn().Err(err).Str("backend", backend).Msg("cache lookup failed")
		telemetry.CacheLookups.WithLabelValues(backend, "error").Inc()
		return nil
	}
	if !ok {
		telemetry.CacheLookups.WithLabelValues(backend, "miss").Inc()
		return nil
	}

	var run models.NicheRun
	if err := json.Unmarshal(data, &run); err != nil {
		logging.Warn().Err(err).Str("backend", backend).Msg("discarding unreadable cache entry")
		telemetry.CacheLookups.WithLabelValues(backend, "error").Inc()
		return nil
	}
	telemetry.CacheLookups.WithLabelValues(backend, "hit").Inc()
	run.Cached = true
	return &run
}

// persist writes a complete run to the cache and run store. Failures are
// logged; the caller still gets the run.
func (e *Explorer) persist(ctx context.Context, req ExploreRequest, run *models.NicheRun) {
	if data, err := json.Marshal(run); err != nil {
		logging.Error().Err(err).Msg("failed to marshal run for cache")
	} else if err := e.cache.Set(ctx, req.cacheKey(), data); err != nil {
		logging.Warn().Err(err).Str("backend", e.cache.Name()).Msg("failed to cache run")
	}

	if e.store != nil {
		if err := e.store.SaveNicheRun(run); err != nil {
			logging.Error().Err(err).Str("run_id", run.ID).Msg("failed to save run")
		}
	}
}
