// Package server exposes the analyzer over a JSON HTTP API.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/tubetitle/ai"
	"github.com/seo-optimizer/tubetitle/analyzer"
	"github.com/seo-optimizer/tubetitle/lexicon"
	"github.com/seo-optimizer/tubetitle/logging"
	"github.com/seo-optimizer/tubetitle/middleware"
	"github.com/seo-optimizer/tubetitle/stats"
)

// Deps are the collaborators served by the API. Analyzer and Lexicons
// are required; everything else is optional.
type Deps struct {
	Analyzer    *analyzer.Analyzer
	Lexicons    *lexicon.Cache
	AI          *ai.Service
	// Competitors is cleared by DELETE /api/cache when it holds a cache.
	Competitors analyzer.CompetitorSource
	Statistics  *logging.Statistics
	CacheStats  *stats.Storage
	Metrics     *middleware.Metrics
	RateLimiter *middleware.RateLimiter
	// YouTubeEnabled is reported by the health endpoint.
	YouTubeEnabled bool
}

type Server struct {
	Deps
}

func New(d Deps) *Server {
	return &Server{Deps: d}
}

func cors(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	c.Next()
}

// Router builds the gin engine with middlewares and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware())
	}
	r.Use(cors)
	if s.Statistics != nil {
		r.Use(middleware.Stats(s.Statistics))
	}

	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	api := r.Group("/api")
	if s.RateLimiter != nil {
		api.Use(s.RateLimiter.RateLimit())
	}
	{
		api.GET("/health", s.health)

		api.POST("/score", s.score)
		api.POST("/analyze", s.analyze)
		api.POST("/analyze/batch", s.analyzeBatch)
		api.POST("/analyze/url", s.analyzeURL)
		api.POST("/metrics", s.competitorMetrics)
		api.POST("/ai/:kind", s.generate)

		api.GET("/lexicon", s.getLexicon)
		api.POST("/lexicon/refresh", s.refreshLexicon)
		api.DELETE("/lexicon", s.resetLexicon)

		api.DELETE("/cache", s.clearCaches)

		api.GET("/statistics", s.statistics)
	}

	return r
}
