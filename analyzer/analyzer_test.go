package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/tubetitle/lexicon"
	"github.com/seo-optimizer/tubetitle/stats"
)

type MemStats struct {
	HeapAlloc  uint64
	TotalAlloc uint64
	NumGC      uint32
}

func getMemStats() MemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemStats{
		HeapAlloc:  ms.HeapAlloc,
		TotalAlloc: ms.TotalAlloc,
		NumGC:      ms.NumGC,
	}
}

type staticLexicon struct{ lex lexicon.Lexicon }

func (s staticLexicon) Get(context.Context) lexicon.Lexicon { return s.lex }

type fakeCompetitors struct {
	records []CompetitorRecord
	err     error
	calls   int32
}

func (f *fakeCompetitors) Competitors(context.Context, string) ([]CompetitorRecord, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.records, f.err
}

type quotaError struct{}

func (quotaError) Error() string       { return "quotaExceeded" }
func (quotaError) UserMessage() string { return "API quota exceeded, try again tomorrow" }

type countingRecorder struct {
	mu     sync.Mutex
	counts map[stats.Counter]int
}

func (r *countingRecorder) Increment(c stats.Counter, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[stats.Counter]int)
	}
	r.counts[c] += n
}

func (r *countingRecorder) get(c stats.Counter) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[c]
}

func fixedEngine() *Engine {
	return &Engine{Now: func() time.Time {
		return time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	}}
}

func newTestAnalyzer(t *testing.T, competitors CompetitorSource) *Analyzer {
	t.Helper()
	a := New(Config{
		Lexicons:    staticLexicon{lexicon.Default()},
		Competitors: competitors,
		Engine:      fixedEngine(),
		Rand:        NewLockedRand(1),
	})
	t.Cleanup(func() { a.Shutdown() })
	return a
}

func sampleRecords() []CompetitorRecord {
	at := func(h int) time.Time { return time.Date(2024, 5, 1, h, 0, 0, 0, time.UTC) }
	return []CompetitorRecord{
		{VideoID: "a", Title: "7 Insane Python Tricks", ViewCount: 900_000, LikeCount: 9_000, CommentCount: 900, Tags: []string{"Python", "coding"}, PublishedAt: at(14)},
		{VideoID: "b", Title: "Python for Beginners", ViewCount: 300_000, LikeCount: 3_000, Tags: []string{"python", "learn python"}, PublishedAt: at(9)},
		{VideoID: "c", Title: "Learn Python Fast", ViewCount: 100_000, LikeCount: 500, CommentCount: 50, Tags: []string{"coding"}, PublishedAt: at(14)},
	}
}

func TestAnalyze(t *testing.T) {
	src := &fakeCompetitors{records: sampleRecords()}
	a := newTestAnalyzer(t, src)

	report, err := a.Analyze(context.Background(), Request{
		Title:           "Python Tutorial for Beginners 2024 🔥",
		Keyword:         "python tutorial",
		DurationLabel:   "12 min",
		WithCompetitors: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 65, report.Score)
	assert.Equal(t, "python tutorial", report.Keyword)
	assert.NotEmpty(t, report.Theme)
	assert.Empty(t, report.MetricsError)
	require.NotNil(t, report.Metrics)
	assert.Equal(t, 3, report.Metrics.SampleSize)
	assert.Equal(t, 300_000.0, report.Metrics.MedianViews)
	assert.Equal(t, 14, report.Metrics.BestUploadHour)

	assert.Contains(t, report.Tags, "coding", "trending tags feed tag generation")
	assert.LessOrEqual(t, len(report.Tags), 20)
	assert.Contains(t, report.Description, report.Title)
	assert.Len(t, report.Suggestions, len(suggestionTemplates))
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))
}

func TestAnalyzeWithoutCompetitors(t *testing.T) {
	src := &fakeCompetitors{records: sampleRecords()}
	a := newTestAnalyzer(t, src)

	report, err := a.Analyze(context.Background(), Request{Title: "Cook pasta", Keyword: "pasta"})
	require.NoError(t, err)
	assert.Nil(t, report.Metrics)
	assert.Empty(t, report.MetricsError)
	assert.Zero(t, atomic.LoadInt32(&src.calls))
}

func TestAnalyzeEmptyTitle(t *testing.T) {
	a := newTestAnalyzer(t, nil)
	_, err := a.Analyze(context.Background(), Request{Title: "   "})
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestAnalyzeMetricsErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  CompetitorSource
		keyword string
		want    string
	}{
		{"quota", &fakeCompetitors{err: fmt.Errorf("search: %w", quotaError{})}, "python", "API quota exceeded, try again tomorrow"},
		{"no records", &fakeCompetitors{}, "python", "No competitor videos found for this keyword"},
		{"not configured", nil, "python", "Competitor data is not configured"},
		{"no keyword", &fakeCompetitors{records: sampleRecords()}, "", "A keyword is required for competitor data"},
		{"timeout", &fakeCompetitors{err: context.DeadlineExceeded}, "python", "The request timed out, please try again"},
		{"other", &fakeCompetitors{err: errors.New("boom")}, "python", "Could not load competitor data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, tt.source)
			report, err := a.Analyze(context.Background(), Request{
				Title:           "Python Tutorial for Beginners",
				Keyword:         tt.keyword,
				WithCompetitors: true,
			})
			require.NoError(t, err, "external failures never fail the report")
			assert.Nil(t, report.Metrics)
			assert.Equal(t, tt.want, report.MetricsError)
			assert.NotEmpty(t, report.Suggestions)
		})
	}
}

func TestMetricsReturnsRecordsOnEmptyAggregate(t *testing.T) {
	a := newTestAnalyzer(t, &fakeCompetitors{records: []CompetitorRecord{}})
	records, summary, err := a.Metrics(context.Background(), "python")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, summary)
	assert.Empty(t, records)
}

func TestScoreBatch(t *testing.T) {
	a := newTestAnalyzer(t, nil)

	items, err := a.ScoreBatch(context.Background(), []string{"Cook pasta", "", "  ", "Learning to cook pasta at home with friends"}, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Cook pasta", items[0].Title)
	assert.Equal(t, 30, items[0].Result.Score)
	assert.Equal(t, 45, items[1].Result.Score)

	tooMany := make([]string, maxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("Title %d", i)
	}
	_, err = a.ScoreBatch(context.Background(), tooMany, "")
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

const videoPage = `<!DOCTYPE html>
<html><head>
<title>Python Tutorial for Beginners - YouTube</title>
<meta property="og:title" content="Python Tutorial for Beginners">
<meta name="description" content="Learn Python from scratch.">
<meta name="keywords" content="python, programming , , learn python">
<meta property="og:video:tag" content="coding">
</head><body><p>video</p></body></html>`

func newPageServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		switch r.URL.Path {
		case "/watch":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, videoPage)
		case "/untitled":
			fmt.Fprint(w, "<html><head></head><body></body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnalyzePage(t *testing.T) {
	var hits int32
	srv := newPageServer(t, &hits)
	rec := &countingRecorder{}
	a := New(Config{
		Lexicons: staticLexicon{lexicon.Default()},
		Engine:   fixedEngine(),
		Rand:     NewLockedRand(1),
		Recorder: rec,
	})
	defer a.Shutdown()

	url := srv.URL + "/watch"
	report, err := a.AnalyzePage(context.Background(), url, "python tutorial")
	require.NoError(t, err)
	assert.Equal(t, "Python Tutorial for Beginners", report.Title)
	assert.Equal(t, url, report.Source)
	assert.Contains(t, report.Tags, "programming")
	assert.Contains(t, report.Tags, "coding")

	assert.True(t, a.IsCached(url, "python tutorial"))
	assert.True(t, a.IsCached(url, "  Python   Tutorial "), "keyword is normalized in the cache key")
	assert.False(t, a.IsCached(url, "python"))

	again, err := a.AnalyzePage(context.Background(), url, "python tutorial")
	require.NoError(t, err)
	assert.Same(t, report, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, 1, rec.get(stats.PageCacheHits))
	assert.Equal(t, 1, rec.get(stats.PageCacheMisses))
}

func TestAnalyzePageErrors(t *testing.T) {
	var hits int32
	srv := newPageServer(t, &hits)
	a := newTestAnalyzer(t, nil)

	_, err := a.AnalyzePage(context.Background(), srv.URL+"/untitled", "")
	assert.ErrorIs(t, err, ErrNoTitle)

	_, err = a.AnalyzePage(context.Background(), srv.URL+"/missing", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = a.AnalyzePage(context.Background(), "://bad", "")
	assert.Error(t, err)
}

func TestCachePurging(t *testing.T) {
	var hits int32
	srv := newPageServer(t, &hits)
	a := New(Config{
		Lexicons:     staticLexicon{lexicon.Default()},
		Engine:       fixedEngine(),
		Rand:         NewLockedRand(1),
		PageCacheTTL: 50 * time.Millisecond,
	})
	defer a.Shutdown()

	url := srv.URL + "/watch"
	_, err := a.AnalyzePage(context.Background(), url, "")
	require.NoError(t, err)
	assert.True(t, a.IsCached(url, ""))

	time.Sleep(100 * time.Millisecond)
	assert.False(t, a.IsCached(url, ""), "entry should expire after the TTL")

	_, err = a.AnalyzePage(context.Background(), url, "")
	require.NoError(t, err)
	a.ClearCache()
	assert.False(t, a.IsCached(url, ""))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestConcurrentCacheAccess(t *testing.T) {
	var hits int32
	srv := newPageServer(t, &hits)
	a := newTestAnalyzer(t, nil)
	url := srv.URL + "/watch"

	before := getMemStats()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers*5)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				if _, err := a.AnalyzePage(context.Background(), url, fmt.Sprintf("kw%d", i%4)); err != nil {
					errs <- err
				}
				a.Score(context.Background(), "Python Tutorial for Beginners", "python")
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent analysis failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		assert.True(t, a.IsCached(url, fmt.Sprintf("kw%d", i)))
	}

	after := getMemStats()
	t.Logf("Heap: %d -> %d bytes, GC runs: %d -> %d, fetches: %d",
		before.HeapAlloc, after.HeapAlloc, before.NumGC, after.NumGC, atomic.LoadInt32(&hits))
}

func TestShutdownIdempotent(t *testing.T) {
	a := New(Config{})
	assert.NoError(t, a.Shutdown())
	assert.NoError(t, a.Shutdown())

	var nilAnalyzer *Analyzer
	assert.NoError(t, nilAnalyzer.Shutdown())
}
