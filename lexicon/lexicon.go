// Package lexicon supplies the power-word and stop-word lists used by the
// title scoring engine, either from a built-in list or from a remote JSON
// source cached for a fixed window.
package lexicon

import (
	"sort"
	"strings"
)

// Lexicon holds the two word sets consumed by the analyzer.
// PowerWords keeps its order; rules that pick "the first matching word"
// depend on it.
type Lexicon struct {
	PowerWords []string            `json:"powerWords"`
	StopWords  map[string]struct{} `json:"-"`
}

// DefaultPowerWords is the built-in fallback list.
var DefaultPowerWords = []string{
	"ultimate",
	"best",
	"secret",
	"proven",
	"easy",
	"amazing",
	"shocking",
	"complete",
	"essential",
	"powerful",
	"insane",
	"epic",
	"incredible",
	"hacks",
	"mistakes",
	"instantly",
	"genius",
	"exclusive",
	"hidden",
	"unbelievable",
}

// DefaultStopWords are excluded from tag and theme extraction.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "can", "do",
	"for", "from", "get", "has", "have", "how", "i", "if", "in", "into",
	"is", "it", "its", "me", "my", "no", "not", "of", "on", "or", "our",
	"so", "than", "that", "the", "their", "then", "this", "to", "up",
	"was", "we", "what", "when", "where", "which", "who", "why", "will",
	"with", "you", "your", "vs",
}

// Default returns the built-in lexicon.
func Default() Lexicon {
	return New(DefaultPowerWords, DefaultStopWords)
}

// New builds a lexicon from raw lists. Entries are lowercased, trimmed and
// deduplicated; first occurrence wins so power-word order is preserved.
func New(powerWords, stopWords []string) Lexicon {
	lex := Lexicon{
		PowerWords: normalize(powerWords),
		StopWords:  make(map[string]struct{}, len(stopWords)),
	}
	for _, w := range normalize(stopWords) {
		lex.StopWords[w] = struct{}{}
	}
	return lex
}

// IsStopWord reports whether w (any case) is a stop word.
func (l Lexicon) IsStopWord(w string) bool {
	_, ok := l.StopWords[strings.ToLower(w)]
	return ok
}

// Empty reports whether either set is missing.
func (l Lexicon) Empty() bool {
	return len(l.PowerWords) == 0 || len(l.StopWords) == 0
}

// StopWordList returns the stop words sorted for display.
func (l Lexicon) StopWordList() []string {
	out := make([]string, 0, len(l.StopWords))
	for w := range l.StopWords {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func normalize(words []string) []string {
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
	return out
}
