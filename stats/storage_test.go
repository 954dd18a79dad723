package stats

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T, dir string) *Storage {
	t.Helper()
	log := logrus.New()
	log.SetOutput(os.Stderr)
	storage, err := NewStorage(dir, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Shutdown() })
	return storage
}

func TestStorage(t *testing.T) {
	tempDir := t.TempDir()
	storage := newTestStorage(t, tempDir)

	t.Run("Increment", func(t *testing.T) {
		storage.Increment(LexiconHits, 1)
		storage.Increment(LexiconMisses, 2)
		storage.Increment(CompetitorCacheHits, 3)
		storage.Increment(AICacheMisses, 4)

		stats := storage.GetCurrentStats()
		assert.Equal(t, 1, stats.LexiconHits)
		assert.Equal(t, 2, stats.LexiconMisses)
		assert.Equal(t, 3, stats.CompetitorCacheHits)
		assert.Equal(t, 4, stats.AICacheMisses)
		assert.False(t, stats.LastUpdated.IsZero())
	})

	t.Run("UnknownCounterIgnored", func(t *testing.T) {
		before := storage.GetCurrentStats()
		storage.Increment(Counter("bogus"), 10)
		after := storage.GetCurrentStats()
		assert.Equal(t, before.LexiconHits, after.LexiconHits)
		assert.Equal(t, before.AICacheMisses, after.AICacheMisses)
	})

	t.Run("Persistence", func(t *testing.T) {
		require.NoError(t, storage.save())

		storage2 := newTestStorage(t, tempDir)
		stats := storage2.GetCurrentStats()
		assert.Equal(t, 1, stats.LexiconHits)
		assert.Equal(t, 3, stats.CompetitorCacheHits)
	})

	t.Run("Cleanup", func(t *testing.T) {
		oldMonth := time.Now().AddDate(0, -2, 0).Format("2006-01")
		storage.mutex.Lock()
		storage.stats[oldMonth] = &MonthlyStats{
			LexiconHits: 100,
			LastUpdated: time.Now().AddDate(0, -2, 0),
		}
		storage.mutex.Unlock()

		storage.Cleanup(1)

		_, exists := storage.GetMonthlyStats(oldMonth)
		assert.False(t, exists, "old stats should have been cleaned up")
		assert.Equal(t, []string{getCurrentMonth()}, storage.GetAllMonths())
	})

	t.Run("FileSize", func(t *testing.T) {
		require.NoError(t, storage.save())

		info, err := os.Stat(filepath.Join(tempDir, "stats.json"))
		require.NoError(t, err)
		assert.Less(t, info.Size(), int64(1024))
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		before := storage.GetCurrentStats()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					storage.Increment(PageCacheHits, 1)
					storage.Increment(AICacheHits, 1)
					storage.GetCurrentStats()
				}
			}()
		}
		wg.Wait()

		after := storage.GetCurrentStats()
		assert.Equal(t, 1000, after.PageCacheHits-before.PageCacheHits)
		assert.Equal(t, 1000, after.AICacheHits-before.AICacheHits)
	})
}

func TestShutdownFlushes(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewStorage(dir, nil)
	require.NoError(t, err)

	storage.Increment(PageCacheMisses, 7)
	require.NoError(t, storage.Shutdown())
	require.NoError(t, storage.Shutdown(), "second shutdown must be harmless")

	reloaded := newTestStorage(t, dir)
	assert.Equal(t, 7, reloaded.GetCurrentStats().PageCacheMisses)
}

func TestMultiRecorder(t *testing.T) {
	a := newTestStorage(t, t.TempDir())
	b := newTestStorage(t, t.TempDir())

	Multi{a, Nop{}, b}.Increment(LexiconFallbacks, 2)

	assert.Equal(t, 2, a.GetCurrentStats().LexiconFallbacks)
	assert.Equal(t, 2, b.GetCurrentStats().LexiconFallbacks)
}

func TestCountersAreAllTracked(t *testing.T) {
	var m MonthlyStats
	for _, c := range Counters() {
		assert.True(t, m.add(c, 1), "counter %s", c)
	}
}
