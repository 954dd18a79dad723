package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/tubetitle/ai"
	"github.com/seo-optimizer/tubetitle/analyzer"
	"github.com/seo-optimizer/tubetitle/lexicon"
	"github.com/seo-optimizer/tubetitle/logging"
	"github.com/seo-optimizer/tubetitle/middleware"
)

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (s *Server) health(c *gin.Context) {
	logging.Log.WithField("ip", c.ClientIP()).Debug("Health check request received")
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"youtube": s.YouTubeEnabled,
		"ai":      s.AI.Enabled(),
	})
}

type scoreRequest struct {
	Title   string `json:"title"`
	Keyword string `json:"keyword"`
}

func (s *Server) score(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	c.Set(middleware.KeywordKey, req.Keyword)
	if strings.TrimSpace(req.Title) == "" {
		abortWithError(c, http.StatusBadRequest, "Title is required")
		return
	}

	c.JSON(http.StatusOK, s.Analyzer.Score(c.Request.Context(), req.Title, req.Keyword))
}

type analyzeRequest struct {
	Title           string `json:"title"`
	Keyword         string `json:"keyword"`
	Duration        string `json:"duration"`
	WithCompetitors bool   `json:"withCompetitors"`
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	c.Set(middleware.KeywordKey, req.Keyword)

	report, err := s.Analyzer.Analyze(c.Request.Context(), analyzer.Request{
		Title:           req.Title,
		Keyword:         req.Keyword,
		DurationLabel:   req.Duration,
		WithCompetitors: req.WithCompetitors,
	})
	if errors.Is(err, analyzer.ErrEmptyTitle) {
		abortWithError(c, http.StatusBadRequest, "Title is required")
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, report)
}

type batchRequest struct {
	Titles  []string `json:"titles"`
	Text    string   `json:"text"`
	Keyword string   `json:"keyword"`
}

// analyzeBatch accepts a title list or one pasted block, one title per line.
func (s *Server) analyzeBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	c.Set(middleware.KeywordKey, req.Keyword)

	titles := req.Titles
	if req.Text != "" {
		titles = append(titles, strings.Split(strings.TrimSpace(req.Text), "\n")...)
	}

	items, err := s.Analyzer.ScoreBatch(c.Request.Context(), titles, req.Keyword)
	if errors.Is(err, analyzer.ErrBatchTooLarge) {
		abortWithError(c, http.StatusBadRequest, "Too many titles, the limit is 50")
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	if len(items) == 0 {
		abortWithError(c, http.StatusBadRequest, "No titles provided")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

type urlRequest struct {
	URL     string `json:"url" binding:"required,url"`
	Keyword string `json:"keyword"`
}

func (s *Server) analyzeURL(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid URL provided")
		return
	}
	c.Set(middleware.KeywordKey, req.Keyword)

	if s.Analyzer.IsCached(req.URL, req.Keyword) {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}

	report, err := s.Analyzer.AnalyzePage(c.Request.Context(), req.URL, req.Keyword)
	if err != nil {
		logging.Log.WithFields(logrus.Fields{
			"url":   req.URL,
			"error": err,
		}).Warn("Page analysis failed")
		if errors.Is(err, analyzer.ErrNoTitle) {
			abortWithError(c, http.StatusUnprocessableEntity, "The page has no title to analyze")
			return
		}
		abortWithError(c, http.StatusBadGateway, "Failed to analyze URL: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, report)
}

type metricsRequest struct {
	Keyword string `json:"keyword"`
}

func (s *Server) competitorMetrics(c *gin.Context) {
	var req metricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	records, summary, err := s.Analyzer.Metrics(c.Request.Context(), req.Keyword)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"videos": records, "summary": summary})
	case errors.Is(err, analyzer.ErrKeywordRequired):
		abortWithError(c, http.StatusBadRequest, analyzer.UserMessage(err))
	case errors.Is(err, analyzer.ErrCompetitorsUnavailable):
		abortWithError(c, http.StatusServiceUnavailable, analyzer.UserMessage(err))
	case errors.Is(err, analyzer.ErrEmptyInput):
		abortWithError(c, http.StatusNotFound, analyzer.UserMessage(err))
	default:
		abortWithError(c, http.StatusBadGateway, analyzer.UserMessage(err))
	}
}

type generateRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) generate(c *gin.Context) {
	kind, err := ai.ParseKind(c.Param("kind"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Unknown suggestion kind")
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if kind == ai.KindPowerWords {
		words, err := s.AI.PowerWords(c.Request.Context(), req.Topic)
		if err != nil {
			s.generateError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": kind, "topic": req.Topic, "words": words})
		return
	}

	text, err := s.AI.Generate(c.Request.Context(), kind, req.Topic)
	if err != nil {
		s.generateError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "topic": req.Topic, "text": text})
}

func (s *Server) generateError(c *gin.Context, err error) {
	var um interface{ UserMessage() string }
	switch {
	case errors.Is(err, ai.ErrEmptyTopic):
		abortWithError(c, http.StatusBadRequest, "Topic is required")
	case errors.Is(err, ai.ErrDisabled):
		abortWithError(c, http.StatusServiceUnavailable, "AI suggestions are not configured")
	case errors.Is(err, ai.ErrMalformedResponse), errors.Is(err, ai.ErrEmptyResponse):
		abortWithError(c, http.StatusBadGateway, "The AI response could not be used, try again")
	case errors.As(err, &um):
		abortWithError(c, http.StatusBadGateway, um.UserMessage())
	default:
		abortWithError(c, http.StatusBadGateway, "The AI service is unavailable, try again later")
	}
}

func lexiconResponse(lex lexicon.Lexicon, cache *lexicon.Cache) gin.H {
	return gin.H{
		"powerWords": lex.PowerWords,
		"stopWords":  lex.StopWordList(),
		"fetchedAt":  cache.FetchedAt(),
		"ttlSeconds": int(cache.TTL().Seconds()),
	}
}

func (s *Server) getLexicon(c *gin.Context) {
	lex := s.Lexicons.Get(c.Request.Context())
	c.JSON(http.StatusOK, lexiconResponse(lex, s.Lexicons))
}

func (s *Server) refreshLexicon(c *gin.Context) {
	lex := s.Lexicons.Refresh(c.Request.Context())
	c.JSON(http.StatusOK, lexiconResponse(lex, s.Lexicons))
}

func (s *Server) resetLexicon(c *gin.Context) {
	s.Lexicons.Reset()
	c.Status(http.StatusNoContent)
}

// clearCaches drops page analyses, generated answers and competitor
// lookups. The lexicon has its own reset.
func (s *Server) clearCaches(c *gin.Context) {
	s.Analyzer.ClearCache()
	if s.AI != nil {
		s.AI.ClearCache()
	}
	if cc, ok := s.Competitors.(interface{ ClearCache() }); ok {
		cc.ClearCache()
	}
	logging.Log.WithField("ip", c.ClientIP()).Info("Caches cleared")
	c.Status(http.StatusNoContent)
}

func (s *Server) statistics(c *gin.Context) {
	out := gin.H{}
	if s.Statistics != nil {
		for k, v := range s.Statistics.GetStatistics() {
			out[k] = v
		}
	}
	if s.CacheStats != nil {
		out["cache"] = s.CacheStats.GetCurrentStats()
	}
	c.JSON(http.StatusOK, out)
}
