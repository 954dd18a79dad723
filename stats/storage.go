package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Counter names one of the tracked cache counters
type Counter string

const (
	LexiconHits           Counter = "lexicon_hits"
	LexiconMisses         Counter = "lexicon_misses"
	LexiconFallbacks      Counter = "lexicon_fallbacks"
	PageCacheHits         Counter = "page_hits"
	PageCacheMisses       Counter = "page_misses"
	CompetitorCacheHits   Counter = "competitor_hits"
	CompetitorCacheMisses Counter = "competitor_misses"
	AICacheHits           Counter = "ai_hits"
	AICacheMisses         Counter = "ai_misses"
)

// Recorder is implemented by anything that can count cache events
type Recorder interface {
	Increment(counter Counter, n int)
}

// Nop discards every increment
type Nop struct{}

func (Nop) Increment(Counter, int) {}

// Multi fans every increment out to each recorder
type Multi []Recorder

func (m Multi) Increment(counter Counter, n int) {
	for _, r := range m {
		r.Increment(counter, n)
	}
}

// Counters lists every known counter
func Counters() []Counter {
	return []Counter{
		LexiconHits, LexiconMisses, LexiconFallbacks,
		PageCacheHits, PageCacheMisses,
		CompetitorCacheHits, CompetitorCacheMisses,
		AICacheHits, AICacheMisses,
	}
}

// MonthlyStats represents statistics for a specific month
type MonthlyStats struct {
	LexiconHits           int       `json:"lexicon_hits"`
	LexiconMisses         int       `json:"lexicon_misses"`
	LexiconFallbacks      int       `json:"lexicon_fallbacks"`
	PageCacheHits         int       `json:"page_hits"`
	PageCacheMisses       int       `json:"page_misses"`
	CompetitorCacheHits   int       `json:"competitor_hits"`
	CompetitorCacheMisses int       `json:"competitor_misses"`
	AICacheHits           int       `json:"ai_hits"`
	AICacheMisses         int       `json:"ai_misses"`
	LastUpdated           time.Time `json:"last_updated"`
}

func (m *MonthlyStats) add(counter Counter, n int) bool {
	switch counter {
	case LexiconHits:
		m.LexiconHits += n
	case LexiconMisses:
		m.LexiconMisses += n
	case LexiconFallbacks:
		m.LexiconFallbacks += n
	case PageCacheHits:
		m.PageCacheHits += n
	case PageCacheMisses:
		m.PageCacheMisses += n
	case CompetitorCacheHits:
		m.CompetitorCacheHits += n
	case CompetitorCacheMisses:
		m.CompetitorCacheMisses += n
	case AICacheHits:
		m.AICacheHits += n
	case AICacheMisses:
		m.AICacheMisses += n
	default:
		return false
	}
	return true
}

// Storage handles persistent storage of statistics
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	log         *logrus.Logger
}

// NewStorage creates a new statistics storage instance
func NewStorage(dataDir string, log *logrus.Logger) (*Storage, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	filePath := filepath.Join(dataDir, "stats.json")
	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filePath,
		writeBuffer: make(chan struct{}, 1), // Buffer for write requests
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		log:         log,
	}

	// Load existing stats if file exists
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()

	return s, nil
}

// load reads statistics from file
func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return json.Unmarshal(data, &s.stats)
}

// save writes statistics to file
func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	// Write to temporary file first
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Rename temporary file to actual file (atomic operation)
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// backgroundWriter handles periodic writes to disk
func (s *Storage) backgroundWriter() {
	defer close(s.stopped)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
		case <-ticker.C:
		case <-s.done:
			return
		}
		if err := s.save(); err != nil {
			s.log.WithError(err).Warn("Failed to persist statistics")
		}
	}
}

// getCurrentMonth returns the current month key in YYYY-MM format
func getCurrentMonth() string {
	return time.Now().Format("2006-01")
}

// requestWrite signals that a write to disk is needed
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// write already pending
	}
}

// Increment adds n to the named counter of the current month
func (s *Storage) Increment(counter Counter, n int) {
	month := getCurrentMonth()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, exists := s.stats[month]
	if !exists {
		stats = &MonthlyStats{}
		s.stats[month] = stats
	}

	if !stats.add(counter, n) {
		s.log.WithField("counter", counter).Warn("Unknown statistics counter")
		return
	}
	stats.LastUpdated = time.Now()

	// Request a write if enough time has passed
	if time.Since(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = time.Now()
	}
}

// GetCurrentStats returns statistics for the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	month := getCurrentMonth()

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[month]; exists {
		return *stats
	}
	return MonthlyStats{}
}

// Cleanup removes statistics older than the given number of months,
// always keeping the current one.
func (s *Storage) Cleanup(retainMonths int) {
	if retainMonths < 1 {
		retainMonths = 1
	}
	now := time.Now()
	keep := make(map[string]bool, retainMonths)
	for i := 0; i < retainMonths; i++ {
		keep[now.AddDate(0, -i, 0).Format("2006-01")] = true
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
		}
	}

	s.requestWrite()
	s.log.WithField("months", retainMonths).Debug("Pruned statistics")
}

// GetMonthlyStats returns statistics for a specific month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[yearMonth]; exists {
		return *stats, true
	}
	return MonthlyStats{}, false
}

// GetAllMonths returns a sorted list of all months that have statistics
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}

	// newest first
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	return months
}

// Shutdown stops the background writer and flushes to disk
func (s *Storage) Shutdown() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
	return s.save()
}
