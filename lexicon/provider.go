package lexicon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/tubetitle/logging"
	"github.com/seo-optimizer/tubetitle/stats"
)

const (
	// DefaultTTL is how long a resolved lexicon is served before the
	// source is consulted again.
	DefaultTTL = 600 * time.Second

	defaultFetchTimeout = 5 * time.Second
	maxListBytes        = 1 << 20
	userAgent           = "TubeTitleOptimizer/1.0"
)

var (
	ErrEmptyList     = errors.New("lexicon source returned an empty list")
	ErrMalformedList = errors.New("lexicon source returned malformed JSON")
)

// Source produces a raw power-word list.
type Source interface {
	Fetch(ctx context.Context) ([]string, error)
}

// HTTPSource fetches a JSON array of strings from a fixed URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource returns a source with a short fixed timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs a single GET. Any non-200 status, malformed body or empty
// list is an error; the caller decides how to fall back.
func (s *HTTPSource) Fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build lexicon request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lexicon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lexicon source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon body: %w", err)
	}

	var words []string
	if err := json.Unmarshal(body, &words); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedList, err)
	}

	words = normalize(words)
	if len(words) == 0 {
		return nil, ErrEmptyList
	}
	return words, nil
}

// Cache resolves the lexicon at most once per TTL window. A failed fetch
// falls back to the last successful list, then to the built-in defaults,
// and that fallback is itself cached for the window.
type Cache struct {
	mu        sync.Mutex
	source    Source
	ttl       time.Duration
	stopWords []string
	value     Lexicon
	fetchedAt time.Time
	lastGood  []string
	now       func() time.Time
	recorder  stats.Recorder
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRecorder reports hits, misses and fallbacks.
func WithRecorder(r stats.Recorder) Option {
	return func(c *Cache) { c.recorder = r }
}

// WithStopWords replaces the built-in stop-word list.
func WithStopWords(words []string) Option {
	return func(c *Cache) { c.stopWords = words }
}

// NewCache creates a cache over source. A nil source always yields the
// built-in lexicon.
func NewCache(source Source, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		source:    source,
		ttl:       ttl,
		stopWords: DefaultStopWords,
		now:       time.Now,
		recorder:  stats.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached lexicon, resolving it when absent or expired.
func (c *Cache) Get(ctx context.Context) Lexicon {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl {
		c.recorder.Increment(stats.LexiconHits, 1)
		return c.value
	}
	c.recorder.Increment(stats.LexiconMisses, 1)
	return c.resolveLocked(ctx)
}

// Refresh bypasses the TTL and consults the source immediately.
func (c *Cache) Refresh(ctx context.Context) Lexicon {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.recorder.Increment(stats.LexiconMisses, 1)
	return c.resolveLocked(ctx)
}

// Reset drops the cached value and the last successful list.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.value = Lexicon{}
	c.fetchedAt = time.Time{}
	c.lastGood = nil
}

// FetchedAt reports when the current value was resolved; zero if never.
func (c *Cache) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}

// TTL returns the configured window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// resolveLocked fetches with a context detached from the caller's
// cancellation: the result is shared by every caller for the whole TTL.
func (c *Cache) resolveLocked(ctx context.Context) Lexicon {
	words := DefaultPowerWords
	if c.source != nil {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultFetchTimeout)
		fetched, err := c.source.Fetch(fetchCtx)
		cancel()
		switch {
		case err == nil:
			words = fetched
			c.lastGood = fetched
		case c.lastGood != nil:
			logging.Log.WithError(err).Warn("Lexicon fetch failed, keeping last successful list")
			c.recorder.Increment(stats.LexiconFallbacks, 1)
			words = c.lastGood
		default:
			logging.Log.WithError(err).Warn("Lexicon fetch failed, using built-in list")
			c.recorder.Increment(stats.LexiconFallbacks, 1)
		}
	}

	c.value = New(words, c.stopWords)
	if c.value.Empty() {
		c.value = Default()
	}
	c.fetchedAt = c.now()

	logging.Log.WithFields(logrus.Fields{
		"powerWords": len(c.value.PowerWords),
		"stopWords":  len(c.value.StopWords),
	}).Debug("Lexicon resolved")
	return c.value
}
