package analyzer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/tubetitle/cache"
	"github.com/seo-optimizer/tubetitle/lexicon"
	"github.com/seo-optimizer/tubetitle/logging"
	"github.com/seo-optimizer/tubetitle/stats"
)

const maxBatchSize = 50

var (
	// ErrCompetitorsUnavailable means no competitor source is configured
	ErrCompetitorsUnavailable = errors.New("competitor data is not configured")
	// ErrKeywordRequired is returned when competitor data is requested without a keyword
	ErrKeywordRequired = errors.New("a keyword is required for competitor data")
	// ErrBatchTooLarge is returned for batches over the limit
	ErrBatchTooLarge = errors.New("too many titles in batch")
)

// LexiconProvider resolves the current word lists
type LexiconProvider interface {
	Get(ctx context.Context) lexicon.Lexicon
}

// CompetitorSource fetches competitor videos for a keyword
type CompetitorSource interface {
	Competitors(ctx context.Context, keyword string) ([]CompetitorRecord, error)
}

// Config wires the analyzer's collaborators. Only Lexicons is required.
type Config struct {
	Lexicons        LexiconProvider
	Competitors     CompetitorSource
	Engine          *Engine
	Rand            Rand
	Recorder        stats.Recorder
	HTTPClient      *http.Client
	PageCacheTTL    time.Duration
	MaxPageCache    int
	CleanupInterval time.Duration
}

// Analyzer combines the scoring engine with its external collaborators
type Analyzer struct {
	engine          *Engine
	lexicons        LexiconProvider
	competitors     CompetitorSource
	rng             Rand
	recorder        stats.Recorder
	client          *http.Client
	pages           *cache.TTL[*Report]
	cleanupInterval time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

// BatchItem is one scored title of a batch
type BatchItem struct {
	Title  string `json:"title"`
	Result Result `json:"result"`
}

// New creates an Analyzer and starts its cache cleanup loop
func New(cfg Config) *Analyzer {
	if cfg.Lexicons == nil {
		cfg.Lexicons = lexicon.NewCache(nil, lexicon.DefaultTTL)
	}
	if cfg.Engine == nil {
		cfg.Engine = NewEngine()
	}
	if cfg.Rand == nil {
		cfg.Rand = NewLockedRand(time.Now().UnixNano())
	}
	if cfg.Recorder == nil {
		cfg.Recorder = stats.Nop{}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newPageClient()
	}
	if cfg.PageCacheTTL <= 0 {
		cfg.PageCacheTTL = 30 * time.Minute
	}
	if cfg.MaxPageCache <= 0 {
		cfg.MaxPageCache = 1000
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	a := &Analyzer{
		engine:          cfg.Engine,
		lexicons:        cfg.Lexicons,
		competitors:     cfg.Competitors,
		rng:             cfg.Rand,
		recorder:        cfg.Recorder,
		client:          cfg.HTTPClient,
		pages:           cache.New[*Report](cfg.PageCacheTTL, cfg.MaxPageCache),
		cleanupInterval: cfg.CleanupInterval,
		stop:            make(chan struct{}),
	}

	go a.pages.RunCleanup(a.cleanupInterval, a.stop)

	return a
}

// Lexicon returns the lexicon currently in effect
func (a *Analyzer) Lexicon(ctx context.Context) lexicon.Lexicon {
	return a.lexicons.Get(ctx)
}

// Score scores a single title without generating anything else
func (a *Analyzer) Score(ctx context.Context, title, keyword string) Result {
	return a.engine.Score(title, keyword, a.lexicons.Get(ctx))
}

// ScoreBatch scores a pasted list of titles against one keyword. Blank
// lines are skipped.
func (a *Analyzer) ScoreBatch(ctx context.Context, titles []string, keyword string) ([]BatchItem, error) {
	if len(titles) > maxBatchSize {
		return nil, ErrBatchTooLarge
	}
	lex := a.lexicons.Get(ctx)

	items := make([]BatchItem, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		items = append(items, BatchItem{Title: t, Result: a.engine.Score(t, keyword, lex)})
	}
	return items, nil
}

// Analyze produces the full report for one title. External failures never
// fail the report; they surface as MetricsError.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	lex := a.lexicons.Get(ctx)
	result := a.engine.Score(title, req.Keyword, lex)

	report := &Report{
		Title:    title,
		Keyword:  strings.TrimSpace(req.Keyword),
		Score:    result.Score,
		Findings: result.Findings,
	}

	competitorTags := req.CompetitorTags
	var records []CompetitorRecord
	if req.WithCompetitors {
		recs, summary, err := a.Metrics(ctx, req.Keyword)
		if err != nil {
			report.MetricsError = UserMessage(err)
			logging.Log.WithFields(logrus.Fields{
				"keyword": req.Keyword,
				"error":   err,
			}).Warn("Competitor metrics unavailable")
		} else {
			report.Metrics = summary
			records = recs
			for _, tc := range summary.TrendingTags {
				competitorTags = append(competitorTags, tc.Tag)
			}
		}
	}

	report.Theme = ExtractTheme(title, req.Keyword, lex)
	report.Tags = a.engine.GenerateTags(title, req.Keyword, competitorTags, lex)
	report.Description = a.engine.GenerateDescription(title, req.Keyword, report.Tags, req.DurationLabel)
	report.Suggestions = a.engine.Suggest(title, req.Keyword, lex, records, a.rng)

	return report, nil
}

// Metrics fetches competitor records for keyword and aggregates them.
// The records are returned even when aggregation reports ErrEmptyInput.
func (a *Analyzer) Metrics(ctx context.Context, keyword string) ([]CompetitorRecord, *MetricsSummary, error) {
	if a.competitors == nil {
		return nil, nil, ErrCompetitorsUnavailable
	}
	if strings.TrimSpace(keyword) == "" {
		return nil, nil, ErrKeywordRequired
	}

	records, err := a.competitors.Competitors(ctx, keyword)
	if err != nil {
		return nil, nil, err
	}
	summary, err := Aggregate(records)
	if err != nil {
		return records, nil, err
	}
	return records, summary, nil
}

// UserMessage turns an error into a short message fit for display.
// Errors that carry their own message (UserMessage() string) use it.
func UserMessage(err error) string {
	var um interface{ UserMessage() string }
	switch {
	case err == nil:
		return ""
	case errors.As(err, &um):
		return um.UserMessage()
	case errors.Is(err, ErrEmptyInput):
		return "No competitor videos found for this keyword"
	case errors.Is(err, ErrCompetitorsUnavailable), errors.Is(err, ErrKeywordRequired):
		return strings.ToUpper(err.Error()[:1]) + err.Error()[1:]
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out, please try again"
	default:
		return "Could not load competitor data"
	}
}

// IsCached reports whether a page analysis is cached for url and keyword
func (a *Analyzer) IsCached(url, keyword string) bool {
	_, ok := a.pages.Get(pageCacheKey(url, keyword))
	return ok
}

// ClearCache drops all cached page analyses
func (a *Analyzer) ClearCache() {
	a.pages.Clear()
}

// Shutdown stops the cleanup loop and clears the cache
func (a *Analyzer) Shutdown() error {
	if a == nil {
		return nil
	}
	a.stopOnce.Do(func() { close(a.stop) })
	a.pages.Clear()
	return nil
}
