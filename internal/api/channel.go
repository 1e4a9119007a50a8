package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yt-insights/nicheexplorer/internal/analytics"
	"github.com/yt-insights/nicheexplorer/internal/collector"
	"github.com/yt-insights/nicheexplorer/internal/logging"
	"github.com/yt-insights/nicheexplorer/internal/models"
	"github.com/yt-insights/nicheexplorer/internal/youtube"
)

// metricsSample is how many recent uploads feed the channel metrics.
const metricsSample = 50

// ChannelSource looks up channels and their uploads. *youtube.Client
// satisfies it.
type ChannelSource interface {
	ResolveChannelID(ctx context.Context, key, ref string) (string, error)
	Channel(ctx context.Context, key, channelID string) (*models.Channel, error)
	RecentUploads(ctx context.Context, key string, ch *models.Channel, limit int) ([]models.Video, error)
}

// EngagementStore caches computed channel payloads per day.
// *models.Database satisfies it.
type EngagementStore interface {
	StoreEngagement(engagement *models.ChannelEngagement) error
	GetLatestEngagement(channelID string, engagementType models.EngagementType) (*models.ChannelEngagement, error)
}

// getChannelMetrics handles GET /channel/:id/metrics. The :id may be a
// channel ID or an @handle.
func (s *Server) getChannelMetrics(c *gin.Context) {
	ref := c.Param("id")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Channel ID is required"})
		return
	}
	ctx := c.Request.Context()
	log := logging.With("channel-metrics")

	var channelID string
	err := collector.WithKey(ctx, s.deps.Keys, func(key string) error {
		id, err := s.deps.Channels.ResolveChannelID(ctx, key, ref)
		channelID = id
		return err
	})
	if err != nil {
		s.channelError(c, err)
		return
	}

	if cached := s.cachedMetrics(channelID); cached != nil {
		log.Debug().Str("channel", channelID).Msg("returning same-day metrics")
		c.JSON(http.StatusOK, cached)
		return
	}

	var (
		ch     *models.Channel
		videos []models.Video
	)
	err = collector.WithKey(ctx, s.deps.Keys, func(key string) error {
		var err error
		if ch, err = s.deps.Channels.Channel(ctx, key, channelID); err != nil {
			return err
		}
		videos, err = s.deps.Channels.RecentUploads(ctx, key, ch, metricsSample)
		return err
	})
	if err != nil {
		s.channelError(c, err)
		return
	}

	analytics.SortRecentFirst(videos)
	metrics := analytics.Aggregate(channelID, videos, s.deps.Location, s.now().UTC())
	metrics.ChannelTitle = ch.Title

	s.storeMetrics(channelID, metrics)
	c.JSON(http.StatusOK, metrics)
}

func (s *Server) cachedMetrics(channelID string) *models.ChannelMetrics {
	if s.deps.Engagement == nil {
		return nil
	}
	engagement, err := s.deps.Engagement.GetLatestEngagement(channelID, models.EngagementTypeMetrics)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logging.Warn().Err(err).Str("channel", channelID).Msg("error fetching cached metrics")
		}
		return nil
	}
	if !engagement.SameDay(s.now()) {
		return nil
	}

	var metrics models.ChannelMetrics
	if err := json.Unmarshal(engagement.JSONResponse, &metrics); err != nil {
		logging.Warn().Err(err).Str("channel", channelID).Msg("failed to unmarshal cached metrics")
		return nil
	}
	return &metrics
}

func (s *Server) storeMetrics(channelID string, metrics models.ChannelMetrics) {
	if s.deps.Engagement == nil {
		return
	}
	body, err := json.Marshal(metrics)
	if err != nil {
		logging.Error().Err(err).Msg("error marshaling metrics")
		return
	}
	err = s.deps.Engagement.StoreEngagement(&models.ChannelEngagement{
		ChannelID:      channelID,
		EngagementType: models.EngagementTypeMetrics,
		UpdateDate:     s.now(),
		JSONResponse:   body,
	})
	if err != nil {
		logging.Warn().Err(err).Str("channel", channelID).Msg("failed to store metrics")
	}
}

func (s *Server) channelError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, youtube.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, collector.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "YouTube rate limit hit, retry shortly"})
	case errors.Is(err, collector.ErrKeysExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "YouTube quota exhausted for all configured keys"})
	default:
		logging.Error().Err(err).Msg("channel lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
