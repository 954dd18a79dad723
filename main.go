package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/tubetitle/ai"
	"github.com/seo-optimizer/tubetitle/analyzer"
	"github.com/seo-optimizer/tubetitle/config"
	"github.com/seo-optimizer/tubetitle/lexicon"
	"github.com/seo-optimizer/tubetitle/logging"
	"github.com/seo-optimizer/tubetitle/middleware"
	"github.com/seo-optimizer/tubetitle/server"
	"github.com/seo-optimizer/tubetitle/stats"
	"github.com/seo-optimizer/tubetitle/youtube"
)

const (
	cleanupInterval = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func newGenerator(ctx context.Context, cfg *config.Config) (ai.Generator, error) {
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		return ai.NewGeminiGenerator(ctx, cfg.AI.GeminiAPIKey, cfg.AI.Model)
	case config.ProviderOpenAI:
		return ai.NewChatGenerator(ctx, cfg.AI.OpenAIBaseURL, cfg.AI.OpenAIAPIKey, cfg.AI.Model)
	default:
		return nil, nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.Log.WithError(err).Fatal("Failed to load configuration")
	}

	if err := logging.InitLogger(cfg.Log.Level, cfg.Log.File); err != nil {
		logging.Log.WithError(err).Fatal("Failed to initialize logger")
	}
	gin.SetMode(cfg.Server.GinMode)

	if err := os.MkdirAll(cfg.Server.DataDir, 0o755); err != nil {
		logging.Log.WithError(err).Fatal("Failed to create data directory")
	}

	storage, err := stats.NewStorage(cfg.Server.DataDir, logging.Log)
	if err != nil {
		logging.Log.WithError(err).Fatal("Failed to initialize cache statistics")
	}
	statistics := logging.NewStatistics(cfg.Server.DataDir, cfg.Server.DevMode)
	metrics := middleware.NewMetrics("tubetitle")
	recorder := stats.Multi{storage, metrics}

	var source lexicon.Source
	if cfg.Lexicon.URL != "" {
		source = lexicon.NewHTTPSource(cfg.Lexicon.URL, 0)
	}
	lexicons := lexicon.NewCache(source, cfg.LexiconTTL(), lexicon.WithRecorder(recorder))

	done := make(chan struct{})

	var competitors analyzer.CompetitorSource
	if cfg.YouTubeEnabled() {
		client, err := youtube.NewClient(ctx, cfg.YouTube.APIKey, youtube.Options{
			MaxResults: cfg.YouTube.MaxResults,
			CacheTTL:   cfg.CompetitorCacheTTL(),
			Recorder:   recorder,
		})
		if err != nil {
			logging.Log.WithError(err).Fatal("Failed to create YouTube client")
		}
		go client.RunCleanup(cleanupInterval, done)
		competitors = client
	} else {
		logging.Log.Info("YOUTUBE_API_KEY not set, competitor metrics are disabled")
	}

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		logging.Log.WithError(err).Fatal("Failed to create AI generator")
	}
	suggestions := ai.NewService(gen, ai.Options{
		CacheTTL:          cfg.AICacheTTL(),
		RequestsPerMinute: cfg.AI.RequestsPerMinute,
		Recorder:          recorder,
	})

	seoAnalyzer := analyzer.New(analyzer.Config{
		Lexicons:        lexicons,
		Competitors:     competitors,
		Recorder:        recorder,
		PageCacheTTL:    cfg.PageCacheTTL(),
		CleanupInterval: cleanupInterval,
	})

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	go rateLimiter.RunCleanup(cleanupInterval, done)

	srv := server.New(server.Deps{
		Analyzer:       seoAnalyzer,
		Lexicons:       lexicons,
		AI:             suggestions,
		Competitors:    competitors,
		Statistics:     statistics,
		CacheStats:     storage,
		Metrics:        metrics,
		RateLimiter:    rateLimiter,
		YouTubeEnabled: competitors != nil,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Log.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"youtube":  competitors != nil,
			"provider": cfg.AI.Provider,
		}).Info("Server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logging.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}

	close(done)
	if err := seoAnalyzer.Shutdown(); err != nil {
		logging.Log.WithError(err).Warn("Analyzer shutdown failed")
	}
	if err := statistics.Save(); err != nil {
		logging.Log.WithError(err).Warn("Could not save statistics")
	}
	if err := storage.Shutdown(); err != nil {
		logging.Log.WithError(err).Warn("Could not flush cache statistics")
	}
}
