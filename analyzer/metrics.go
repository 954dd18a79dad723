package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	maxTrendingTags = 15

	highCompetitionViews   = 500_000
	mediumCompetitionViews = 100_000
)

// EngagementRate is (likes+comments)/views as a percentage rounded to two
// decimals; zero views yield zero.
func EngagementRate(r CompetitorRecord) float64 {
	if r.ViewCount <= 0 {
		return 0
	}
	rate := float64(r.LikeCount+r.CommentCount) / float64(r.ViewCount) * 100
	return round2(rate)
}

// Aggregate summarizes competitor records. An empty slice is reported as
// ErrEmptyInput so callers can render "no data".
func Aggregate(records []CompetitorRecord) (*MetricsSummary, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	var views []float64
	var engagementSum float64
	engagementCount := 0
	for _, r := range records {
		if r.ViewCount > 0 {
			views = append(views, float64(r.ViewCount))
		}
		if e := EngagementRate(r); e > 0 {
			engagementSum += e
			engagementCount++
		}
	}

	summary := &MetricsSummary{
		SampleSize:     len(records),
		MedianViews:    median(views),
		MeanViews:      mean(views),
		TrendingTags:   trendingTags(records, maxTrendingTags),
		BestUploadHour: -1,
		BestUploadTime: "Unknown",
	}
	if engagementCount > 0 {
		summary.MeanEngagementRate = round2(engagementSum / float64(engagementCount))
	}
	if hour, ok := bestUploadHour(records); ok {
		summary.BestUploadHour = hour
		summary.BestUploadTime = fmt.Sprintf("%02d:00 UTC", hour)
	}
	summary.DifficultyLabel, summary.DifficultyScore = difficulty(summary.MedianViews)

	return summary, nil
}

// difficulty maps median views to a coarse opportunity score; more
// competition means a lower score.
func difficulty(medianViews float64) (string, int) {
	switch {
	case medianViews > highCompetitionViews:
		return "High", 30
	case medianViews > mediumCompetitionViews:
		return "Medium", 60
	default:
		return "Low", 90
	}
}

func trendingTags(records []CompetitorRecord, n int) []TagCount {
	index := make(map[string]int)
	var counts []TagCount
	for _, r := range records {
		for _, tag := range r.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" {
				continue
			}
			if i, ok := index[tag]; ok {
				counts[i].Count++
				continue
			}
			index[tag] = len(counts)
			counts = append(counts, TagCount{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	if counts == nil {
		counts = []TagCount{}
	}
	return counts
}

// bestUploadHour is the most frequent publish hour (UTC); the hour seen
// first wins ties.
func bestUploadHour(records []CompetitorRecord) (int, bool) {
	var freq [24]int
	var order []int
	for _, r := range records {
		if r.PublishedAt.IsZero() {
			continue
		}
		h := r.PublishedAt.UTC().Hour()
		if freq[h] == 0 {
			order = append(order, h)
		}
		freq[h]++
	}
	if len(order) == 0 {
		return 0, false
	}

	best := order[0]
	for _, h := range order[1:] {
		if freq[h] > freq[best] {
			best = h
		}
	}
	return best, true
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
