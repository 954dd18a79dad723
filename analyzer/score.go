package analyzer

import (
	"strings"
	"time"

	"github.com/seo-optimizer/tubetitle/lexicon"
)

const (
	minScore = 0
	maxScore = 100
)

// Engine scores titles and generates tags, descriptions and suggestions.
// It holds no state between calls apart from its clock, so scoring the
// same text twice yields the same result.
type Engine struct {
	Now func() time.Time
}

// NewEngine returns an engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{Now: time.Now}
}

// Score is a convenience wrapper around a wall-clock Engine.
func Score(title, keyword string, lex lexicon.Lexicon) Result {
	return NewEngine().Score(title, keyword, lex)
}

// Score sums the capped contribution of each rule and clamps the total to
// [0,100]. A blank title short-circuits to 0 with a single error finding.
func (e *Engine) Score(title, keyword string, lex lexicon.Lexicon) Result {
	if strings.TrimSpace(title) == "" {
		return Result{
			Score:    0,
			Findings: []Finding{{SeverityError, "input", "Title is empty"}},
		}
	}

	in := titleInput{
		title:   title,
		lower:   strings.ToLower(title),
		keyword: normalizeKeyword(keyword),
		lexicon: lex,
		year:    e.now().Year(),
	}

	total := 0
	findings := make([]Finding, 0, len(rules)+3)
	for _, r := range rules {
		points, f := r(in)
		total += points
		findings = append(findings, f...)
	}

	return Result{Score: clamp(total, minScore, maxScore), Findings: findings}
}

func (e *Engine) now() time.Time {
	if e == nil || e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// normalizeKeyword lowercases and collapses whitespace.
func normalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
