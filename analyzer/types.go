package analyzer

import (
	"errors"
	"time"
)

var (
	// ErrEmptyTitle is returned for blank titles where a score is required
	ErrEmptyTitle = errors.New("title is empty")
	// ErrEmptyInput is returned by Aggregate when there are no records
	ErrEmptyInput = errors.New("no competitor records to aggregate")
)

// Severity classifies a Finding
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Finding is one diagnostic emitted by a scoring rule
type Finding struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
}

// Result is a score with the findings in rule execution order
type Result struct {
	Score    int       `json:"score"`
	Findings []Finding `json:"findings"`
}

// CompetitorRecord is a snapshot of one external video
type CompetitorRecord struct {
	VideoID      string    `json:"videoId"`
	Title        string    `json:"title"`
	ChannelName  string    `json:"channelName"`
	ViewCount    int64     `json:"viewCount"`
	LikeCount    int64     `json:"likeCount"`
	CommentCount int64     `json:"commentCount"`
	Tags         []string  `json:"tags"`
	PublishedAt  time.Time `json:"publishedAt"`
}

// TagCount is a tag with its frequency across competitor records
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// MetricsSummary aggregates a set of competitor records
type MetricsSummary struct {
	SampleSize         int        `json:"sampleSize"`
	MedianViews        float64    `json:"medianViews"`
	MeanViews          float64    `json:"meanViews"`
	MeanEngagementRate float64    `json:"meanEngagementRate"`
	TrendingTags       []TagCount `json:"trendingTags"`
	BestUploadHour     int        `json:"bestUploadHour"`
	BestUploadTime     string     `json:"bestUploadTime"`
	DifficultyLabel    string     `json:"difficultyLabel"`
	DifficultyScore    int        `json:"difficultyScore"`
}

// Verdict compares a candidate title against the original
type Verdict string

const (
	VerdictBetter Verdict = "better"
	VerdictEqual  Verdict = "equal"
	VerdictWorse  Verdict = "worse"
)

// Candidate is a generated title with its own score
type Candidate struct {
	Title   string  `json:"title"`
	Score   int     `json:"score"`
	Delta   int     `json:"delta"`
	Verdict Verdict `json:"verdict"`
	Result  Result  `json:"result"`
}

// Report is the complete analysis of one title
type Report struct {
	Title        string          `json:"title"`
	Keyword      string          `json:"keyword"`
	Score        int             `json:"score"`
	Findings     []Finding       `json:"findings"`
	Theme        string          `json:"theme"`
	Tags         []string        `json:"tags"`
	Description  string          `json:"description"`
	Suggestions  []Candidate     `json:"suggestions"`
	Metrics      *MetricsSummary `json:"metrics,omitempty"`
	MetricsError string          `json:"metricsError,omitempty"`
	Source       string          `json:"source,omitempty"`
}

// Request describes a title analysis
type Request struct {
	Title           string
	Keyword         string
	DurationLabel   string
	WithCompetitors bool
	CompetitorTags  []string
}
