package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/tubetitle/cache"
	"github.com/seo-optimizer/tubetitle/logging"
	"github.com/seo-optimizer/tubetitle/stats"
)

const (
	pageUserAgent  = "TubeTitleOptimizer/1.0"
	pageTimeout    = 15 * time.Second
	maxPageBytes   = 5 << 20
	platformSuffix = " - YouTube"
)

// ErrNoTitle is returned when a fetched page carries no usable title
var ErrNoTitle = errors.New("page has no title")

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// PageMeta is the SEO-relevant metadata of a video page
type PageMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

func newPageClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   pageTimeout,
		Transport: transport,
	}
}

func pageCacheKey(url, keyword string) string {
	return cache.Key(url, normalizeKeyword(keyword))
}

// AnalyzePage fetches a video page, extracts its title and keywords and
// runs the title through Analyze with the page keywords as competitor
// tags. Results are cached per URL and keyword.
func (a *Analyzer) AnalyzePage(ctx context.Context, url, keyword string) (*Report, error) {
	key := pageCacheKey(url, keyword)
	if report, ok := a.pages.Get(key); ok {
		a.recorder.Increment(stats.PageCacheHits, 1)
		return report, nil
	}
	a.recorder.Increment(stats.PageCacheMisses, 1)

	ctx, cancel := context.WithTimeout(ctx, pageTimeout)
	defer cancel()

	meta, err := a.fetchPageMeta(ctx, url)
	if err != nil {
		return nil, err
	}

	report, err := a.Analyze(ctx, Request{
		Title:          meta.Title,
		Keyword:        keyword,
		CompetitorTags: meta.Keywords,
	})
	if err != nil {
		return nil, err
	}
	report.Source = url

	a.pages.Set(key, report)
	return report, nil
}

func (a *Analyzer) fetchPageMeta(ctx context.Context, url string) (*PageMeta, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	req.Header.Set("User-Agent", pageUserAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if _, err := io.Copy(buf, io.LimitReader(resp.Body, maxPageBytes)); err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	meta := extractPageMeta(doc)
	logging.Log.WithFields(logrus.Fields{
		"url":      url,
		"bytes":    buf.Len(),
		"keywords": len(meta.Keywords),
		"elapsed":  time.Since(startTime).String(),
	}).Debug("Fetched page metadata")

	if meta.Title == "" {
		return nil, ErrNoTitle
	}
	return meta, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// extractPageMeta prefers Open Graph values over plain tags
func extractPageMeta(doc *goquery.Document) *PageMeta {
	meta := &PageMeta{}

	meta.Title = metaContent(doc, "meta[property='og:title']")
	if meta.Title == "" {
		meta.Title = metaContent(doc, "meta[name='title']")
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	meta.Title = strings.TrimSpace(strings.TrimSuffix(meta.Title, platformSuffix))

	meta.Description = metaContent(doc, "meta[name='description']")
	if meta.Description == "" {
		meta.Description = metaContent(doc, "meta[property='og:description']")
	}

	if keywords := metaContent(doc, "meta[name='keywords']"); keywords != "" {
		for _, k := range strings.Split(keywords, ",") {
			if k = strings.TrimSpace(k); k != "" {
				meta.Keywords = append(meta.Keywords, k)
			}
		}
	}
	doc.Find("meta[property='og:video:tag']").Each(func(_ int, s *goquery.Selection) {
		if tag, ok := s.Attr("content"); ok && strings.TrimSpace(tag) != "" {
			meta.Keywords = append(meta.Keywords, strings.TrimSpace(tag))
		}
	})

	return meta
}
