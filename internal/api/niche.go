package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yt-insights/nicheexplorer/internal/embedding"
	"github.com/yt-insights/nicheexplorer/internal/logging"
	"github.com/yt-insights/nicheexplorer/internal/models"
	"github.com/yt-insights/nicheexplorer/internal/niche"
)

// Explorer runs the niche pipeline. *niche.Explorer satisfies it.
type Explorer interface {
	Explore(ctx context.Context, req niche.ExploreRequest) (*models.NicheRun, error)
}

// RunReader loads stored runs. *models.Database satisfies it.
type RunReader interface {
	GetNicheRun(id string) (*models.NicheRun, error)
}

type exploreQuery struct {
	Keyword  string `form:"keyword" binding:"required"`
	MaxItems int    `form:"maxItems" binding:"omitempty,min=1,max=500"`
	Clusters int    `form:"clusters" binding:"omitempty,min=1,max=50"`
	Cache    *bool  `form:"cache"`
}

// exploreNiche handles GET /niche/explore
func (s *Server) exploreNiche(c *gin.Context) {
	var q exploreQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	useCache := true
	if q.Cache != nil {
		useCache = *q.Cache
	}

	run, err := s.deps.Explorer.Explore(c.Request.Context(), niche.ExploreRequest{
		Keyword:      q.Keyword,
		MaxItems:     q.MaxItems,
		ClusterCount: q.Clusters,
		UseCache:     useCache,
	})
	switch {
	case errors.Is(err, niche.ErrEmptyKeyword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, embedding.ErrUnavailable):
		logging.Error().Err(err).Str("keyword", q.Keyword).Msg("explore failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		logging.Error().Err(err).Str("keyword", q.Keyword).Msg("explore failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

// getNicheRun handles GET /niche/runs/:id
func (s *Server) getNicheRun(c *gin.Context) {
	if s.deps.RunReader == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run storage is not configured"})
		return
	}

	id := c.Param("id")
	run, err := s.deps.RunReader.GetNicheRun(id)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		logging.Error().Err(err).Str("run_id", id).Msg("failed to load run")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, run)
}
