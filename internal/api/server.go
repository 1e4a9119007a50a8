package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yt-insights/nicheexplorer/internal/collector"
	"github.com/yt-insights/nicheexplorer/internal/logging"
)

// Deps are the collaborators the handlers need. RunReader and Engagement
// may be nil when no database is configured.
type Deps struct {
	Explorer    Explorer
	RunReader   RunReader
	Channels    ChannelSource
	Engagement  EngagementStore
	Keys        *collector.KeyRing
	Location    *time.Location
	CORSOrigins []string
}

// Server represents the API server
type Server struct {
	router *gin.Engine
	deps   Deps
	now    func() time.Time
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), requestMetrics())
	corsConfig := cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "Pragma"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(deps.CORSOrigins) == 0 {
		// cors.New panics on an empty origin list
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	server := &Server{
		router: router,
		deps:   deps,
		now:    time.Now,
	}
	server.setupRoutes()
	return server
}

// setupRoutes configures all the routes for the server
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/niche/explore", s.exploreNiche)
	s.router.GET("/niche/runs/:id", s.getNicheRun)

	s.router.GET("/channel/:id/metrics", s.getChannelMetrics)
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server on the specified port
func (s *Server) Start(port string) error {
	logging.Info().Str("port", port).Msg("server starting")
	return s.router.Run(":" + port)
}
