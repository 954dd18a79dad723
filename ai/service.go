// Package ai produces generative title suggestions through a single
// text-completion call per request, cached by prompt kind and topic.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/seo-optimizer/tubetitle/cache"
	"github.com/seo-optimizer/tubetitle/logging"
	"github.com/seo-optimizer/tubetitle/stats"
)

// Kind selects a prompt template.
type Kind string

const (
	KindPowerWords Kind = "power_words"
	KindDailyIdeas Kind = "daily_ideas"
	KindScript     Kind = "script"
	KindAudit      Kind = "audit"
)

const (
	DefaultCacheTTL   = 3600 * time.Second
	generationTimeout = 60 * time.Second
	maxCachedAnswers  = 500
)

var (
	ErrUnknownPrompt     = errors.New("unknown prompt kind")
	ErrEmptyTopic        = errors.New("topic is empty")
	ErrEmptyResponse     = errors.New("model returned an empty response")
	ErrMalformedResponse = errors.New("model returned malformed output")
	ErrDisabled          = errors.New("no AI provider is configured")
)

var prompts = map[Kind]string{
	KindPowerWords: `List 15 emotionally charged "power words" that perform well in YouTube titles about %q.
Return ONLY a JSON array of lowercase strings, for example ["ultimate", "secret"].`,
	KindDailyIdeas: `Suggest 5 YouTube video ideas about %q that could be published today.
For each idea give a click-worthy title under 70 characters and one sentence on why it would perform.`,
	KindScript: `Write a short YouTube video script outline about %q.
Include a 10-second hook, three main sections with talking points, and a call to action.`,
	KindAudit: `Audit this YouTube title for search and click-through performance: %q.
List its strengths, its weaknesses, and three improved alternatives under 70 characters.`,
}

// Kinds lists the supported prompt kinds in display order.
func Kinds() []Kind {
	return []Kind{KindPowerWords, KindDailyIdeas, KindScript, KindAudit}
}

// ParseKind validates a prompt kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := prompts[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, s)
	}
	return k, nil
}

// Error is a failed completion call.
type Error struct {
	Err error
}

func (e *Error) Error() string { return "generation failed: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func (e *Error) UserMessage() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "The AI service did not respond in time, try again"
	}
	return "The AI service is unavailable, try again later"
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	CacheTTL          time.Duration
	RequestsPerMinute int
	Recorder          stats.Recorder
}

type Service struct {
	gen      Generator
	cache    *cache.TTL[string]
	limiter  *rate.Limiter
	recorder stats.Recorder
}

// NewService wraps gen. A nil generator yields a service whose calls all
// fail with ErrDisabled.
func NewService(gen Generator, opts Options) *Service {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	if opts.Recorder == nil {
		opts.Recorder = stats.Nop{}
	}

	limit := rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
	return &Service{
		gen:      gen,
		cache:    cache.New[string](opts.CacheTTL, maxCachedAnswers),
		limiter:  rate.NewLimiter(limit, 1),
		recorder: opts.Recorder,
	}
}

// Enabled reports whether a generator is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.gen != nil
}

// Generate renders the prompt for kind and returns the model's answer.
// Answers are cached per (kind, topic); failures are not retried.
func (s *Service) Generate(ctx context.Context, kind Kind, topic string) (string, error) {
	if _, ok := prompts[kind]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, kind)
	}
	topic = normalizeTopic(topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	if !s.Enabled() {
		return "", ErrDisabled
	}

	key := answerKey(kind, topic)
	if answer, ok := s.cache.Get(key); ok {
		s.recorder.Increment(stats.AICacheHits, 1)
		return answer, nil
	}
	s.recorder.Increment(stats.AICacheMisses, 1)

	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return "", &Error{Err: err}
	}

	startTime := time.Now()
	answer, err := s.gen.Generate(ctx, fmt.Sprintf(prompts[kind], topic))
	if err != nil {
		logging.Log.WithFields(logrus.Fields{
			"kind":  kind,
			"topic": topic,
			"error": err,
		}).Warn("Generation failed")
		return "", &Error{Err: err}
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", ErrEmptyResponse
	}

	logging.Log.WithFields(logrus.Fields{
		"kind":    kind,
		"topic":   topic,
		"chars":   len(answer),
		"elapsed": time.Since(startTime).String(),
	}).Debug("Generated suggestion")

	s.cache.Set(key, answer)
	return answer, nil
}

// PowerWords asks for power words about topic and parses the JSON array
// out of the answer, tolerating a surrounding code fence. An answer that
// does not parse is evicted so the next call asks the model again.
func (s *Service) PowerWords(ctx context.Context, topic string) ([]string, error) {
	answer, err := s.Generate(ctx, KindPowerWords, topic)
	if err != nil {
		return nil, err
	}
	words, err := ParseWordList(answer)
	if err != nil {
		s.cache.Delete(answerKey(KindPowerWords, normalizeTopic(topic)))
		return nil, err
	}
	return words, nil
}

func normalizeTopic(topic string) string {
	return strings.Join(strings.Fields(topic), " ")
}

func answerKey(kind Kind, topic string) string {
	return cache.Key(string(kind), strings.ToLower(topic))
}

// ParseWordList extracts a JSON string array from model output.
func ParseWordList(answer string) ([]string, error) {
	body := stripFences(answer)

	var words []string
	if err := json.Unmarshal([]byte(body), &words); err != nil {
		start, end := strings.Index(body, "["), strings.LastIndex(body, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: no JSON array found", ErrMalformedResponse)
		}
		if err := json.Unmarshal([]byte(body[start:end+1]), &words); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}

	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrMalformedResponse)
	}
	return out, nil
}

// stripFences removes a leading ``` or ```json line and a trailing fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ClearCache drops every cached answer.
func (s *Service) ClearCache() {
	s.cache.Clear()
}
