package logging

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsTracking(t *testing.T) {
	s := NewStatistics(t.TempDir(), true)

	s.TrackVisitor("10.0.0.1")
	s.TrackVisitor("10.0.0.1")
	s.TrackVisitor("10.0.0.2")
	s.TrackAnalysis("Python Tutorial", 100, false)
	s.TrackAnalysis("python   tutorial", 300, true)
	s.TrackAnalysis("sourdough", 200, false)
	s.TrackAnalysis("", 0, false)

	assert.Equal(t, 2, s.GetUniqueVisitorsCount())
	assert.Equal(t, 4, s.TotalRequests())
	assert.Equal(t, 25.0, s.GetErrorRate())
	assert.Equal(t, []KeywordCount{{"python tutorial", 2}, {"sourdough", 1}}, s.GetPopularKeywords(5))
	assert.Len(t, s.GetPopularKeywords(1), 1)

	snapshot := s.GetStatistics()
	assert.Equal(t, 150.0, snapshot["averageLoadTime"])
	assert.Contains(t, snapshot, "popularKeywords")
}

func TestStatisticsHidesKeywordsInProduction(t *testing.T) {
	s := NewStatistics(t.TempDir(), false)
	s.TrackAnalysis("python", 10, false)
	assert.NotContains(t, s.GetStatistics(), "popularKeywords")
}

func TestStatisticsPersistence(t *testing.T) {
	dir := t.TempDir()
	s := NewStatistics(dir, false)
	s.TrackVisitor("10.0.0.1")
	s.TrackAnalysis("python", 10, true)
	require.NoError(t, s.Save())

	_, err := os.Stat(filepath.Join(dir, "statistics.json"))
	require.NoError(t, err)

	reloaded := NewStatistics(dir, false)
	assert.Equal(t, 1, reloaded.TotalRequests())
	assert.Equal(t, 1, reloaded.GetUniqueVisitorsCount())
	assert.Equal(t, 100.0, reloaded.GetErrorRate())
}

func TestStatisticsConcurrentAccess(t *testing.T) {
	s := NewStatistics(t.TempDir(), true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.TrackVisitor("10.0.0.1")
			s.TrackAnalysis("python", 5, false)
			s.GetStatistics()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, s.TotalRequests())
}

func TestInitLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, InitLogger("debug", path))
	t.Cleanup(func() { InitLogger("info", "") })

	Log.Debug("hello")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")

	require.NoError(t, InitLogger("nonsense", ""))
	assert.Equal(t, "info", Log.GetLevel().String())
}
