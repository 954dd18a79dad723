// Package youtube fetches competitor videos for a keyword from the
// YouTube Data API v3 using an API key.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/seo-optimizer/tubetitle/analyzer"
	"github.com/seo-optimizer/tubetitle/cache"
	"github.com/seo-optimizer/tubetitle/logging"
	"github.com/seo-optimizer/tubetitle/stats"
)

const (
	defaultMaxResults = 20
	defaultCacheTTL   = 30 * time.Minute
	maxCachedKeywords = 500
	requestTimeout    = 15 * time.Second
)

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	MaxResults int64
	CacheTTL   time.Duration
	Recorder   stats.Recorder
	// Endpoint overrides the API base URL.
	Endpoint string
}

type Client struct {
	service    *youtube.Service
	maxResults int64
	breaker    *gobreaker.CircuitBreaker
	cache      *cache.TTL[[]analyzer.CompetitorRecord]
	recorder   stats.Recorder
}

func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, &Error{Op: "new client", Kind: ErrInvalidAPIKey, Err: errors.New("no API key configured")}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Recorder == nil {
		opts.Recorder = stats.Nop{}
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	return &Client{
		service:    service,
		maxResults: opts.MaxResults,
		breaker:    newBreaker("youtube"),
		cache:      cache.New[[]analyzer.CompetitorRecord](opts.CacheTTL, maxCachedKeywords),
		recorder:   opts.Recorder,
	}, nil
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// Competitors searches videos for keyword and returns their snippet and
// statistics. Results are cached per keyword.
func (c *Client) Competitors(ctx context.Context, keyword string) ([]analyzer.CompetitorRecord, error) {
	keyword = strings.Join(strings.Fields(keyword), " ")
	if keyword == "" {
		return nil, analyzer.ErrKeywordRequired
	}

	key := cache.Key(strings.ToLower(keyword))
	if records, ok := c.cache.Get(key); ok {
		c.recorder.Increment(stats.CompetitorCacheHits, 1)
		return records, nil
	}
	c.recorder.Increment(stats.CompetitorCacheMisses, 1)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	startTime := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, keyword)
	})
	if err != nil {
		logging.Log.WithFields(logrus.Fields{
			"keyword": keyword,
			"error":   err,
		}).Warn("Competitor lookup failed")
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, classify("competitors", err)
	}

	records := out.([]analyzer.CompetitorRecord)
	c.cache.Set(key, records)

	logging.Log.WithFields(logrus.Fields{
		"keyword": keyword,
		"videos":  len(records),
		"elapsed": time.Since(startTime).String(),
	}).Debug("Fetched competitor videos")
	return records, nil
}

func (c *Client) fetch(ctx context.Context, keyword string) ([]analyzer.CompetitorRecord, error) {
	search, err := c.service.Search.List([]string{"id"}).
		Q(keyword).
		Type("video").
		MaxResults(c.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("search", err)
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return []analyzer.CompetitorRecord{}, nil
	}

	videos, err := c.service.Videos.List([]string{"snippet", "statistics"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("videos", err)
	}

	records := make([]analyzer.CompetitorRecord, 0, len(videos.Items))
	for _, item := range videos.Items {
		records = append(records, toRecord(item))
	}
	return records, nil
}

// toRecord maps an API video; missing counters stay zero.
func toRecord(v *youtube.Video) analyzer.CompetitorRecord {
	r := analyzer.CompetitorRecord{VideoID: v.Id}
	if v.Snippet != nil {
		r.Title = v.Snippet.Title
		r.ChannelName = v.Snippet.ChannelTitle
		r.Tags = v.Snippet.Tags
		if publishedAt, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			r.PublishedAt = publishedAt
		}
	}
	if v.Statistics != nil {
		r.ViewCount = int64(v.Statistics.ViewCount)
		r.LikeCount = int64(v.Statistics.LikeCount)
		r.CommentCount = int64(v.Statistics.CommentCount)
	}
	return r
}

// ClearCache drops every cached keyword.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// RunCleanup evicts expired keywords every interval until stop is closed.
func (c *Client) RunCleanup(interval time.Duration, stop <-chan struct{}) {
	c.cache.RunCleanup(interval, stop)
}
