package analyzer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/seo-optimizer/tubetitle/lexicon"
)

const (
	maxTags           = 20
	titleTagSoftCap   = 12
	maxCompetitorTags = 5
	minTitleTagLength = 3
)

// tagSet is an insertion-ordered, case-insensitive set
type tagSet struct {
	seen  map[string]bool
	items []string
}

func newTagSet() *tagSet {
	return &tagSet{seen: make(map[string]bool)}
}

func (s *tagSet) add(tag string) bool {
	tag = strings.Join(strings.Fields(strings.ToLower(tag)), " ")
	if tag == "" || s.seen[tag] {
		return false
	}
	s.seen[tag] = true
	s.items = append(s.items, tag)
	return true
}

// GenerateTags builds up to 20 search tags. Keyword-specific tags come
// first, then significant title words, then competitor tags, then generic
// keyword phrases; earlier entries win on duplicates.
func (e *Engine) GenerateTags(title, keyword string, competitorTags []string, lex lexicon.Lexicon) []string {
	kw := normalizeKeyword(keyword)
	year := strconv.Itoa(e.now().Year())
	tags := newTagSet()

	if kw != "" {
		tags.add(kw)
		tags.add(kw + " " + year)
		if words := strings.Fields(kw); len(words) > 1 {
			tags.add(words[0])
			tags.add(words[0] + " " + words[1])
		}
	}

	for _, tok := range tokenize(title) {
		if len(tags.items) >= titleTagSoftCap {
			break
		}
		lower := strings.ToLower(tok)
		if utf8.RuneCountInString(lower) < minTitleTagLength || lex.IsStopWord(lower) {
			continue
		}
		tags.add(lower)
	}

	added := 0
	for _, t := range competitorTags {
		if added >= maxCompetitorTags || len(tags.items) >= maxTags {
			break
		}
		if tags.add(t) {
			added++
		}
	}

	if kw != "" {
		tags.add(kw + " tutorial")
		tags.add("how to " + kw)
	}

	if len(tags.items) > maxTags {
		return tags.items[:maxTags]
	}
	return tags.items
}

// GenerateTags uses a wall-clock Engine.
func GenerateTags(title, keyword string, competitorTags []string, lex lexicon.Lexicon) []string {
	return NewEngine().GenerateTags(title, keyword, competitorTags, lex)
}
