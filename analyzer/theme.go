package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/seo-optimizer/tubetitle/lexicon"
)

const (
	minThemeLen    = 3
	maxThemeTokens = 5
	fallbackTheme  = "Guide"
)

var (
	wordPattern  = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)?`)
	bracketChars = regexp.MustCompile(`[\[\]\(\)\{\}<>]`)
)

// ExtractTheme recovers the "core theme" of a title: what is left once the
// keyword, brackets and stray punctuation are removed. It never returns an
// empty string.
func ExtractTheme(title, keyword string, lex lexicon.Lexicon) string {
	kw := normalizeKeyword(keyword)

	rest := title
	if kw != "" {
		rest = keywordMatcher(kw).ReplaceAllString(rest, " ")
	}
	rest = bracketChars.ReplaceAllString(rest, " ")

	var kept []string
	for _, f := range strings.Fields(rest) {
		f = strings.TrimFunc(f, isSeparatorPunct)
		if hasAlnum(f) {
			kept = append(kept, f)
		}
	}
	theme := strings.TrimFunc(strings.Join(kept, " "), notAlnum)
	if utf8.RuneCountInString(theme) >= minThemeLen {
		return theme
	}

	tokens := significantTokens(title, kw, lex)
	if len(tokens) > maxThemeTokens {
		tokens = tokens[:maxThemeTokens]
	}
	if len(tokens) > 0 {
		return strings.Join(tokens, " ")
	}
	return fallbackTheme
}

// keywordMatcher matches kw case-insensitively with flexible whitespace.
func keywordMatcher(kw string) *regexp.Regexp {
	parts := strings.Fields(kw)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, `\s+`))
}

// tokenize returns the words of s in their original case.
func tokenize(s string) []string {
	return wordPattern.FindAllString(s, -1)
}

// significantTokens drops stop words and the keyword's own words, keeping
// title order and original case.
func significantTokens(title, kw string, lex lexicon.Lexicon) []string {
	exclude := make(map[string]bool)
	for _, w := range strings.Fields(kw) {
		exclude[w] = true
	}

	var out []string
	for _, tok := range tokenize(title) {
		lower := strings.ToLower(tok)
		if exclude[lower] || lex.IsStopWord(lower) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// topTokens ranks significant tokens by frequency; ties keep first
// occurrence order.
func topTokens(title, kw string, lex lexicon.Lexicon, n int) []string {
	type counted struct {
		word  string
		count int
	}
	index := make(map[string]int)
	var ranked []counted
	for _, tok := range significantTokens(title, kw, lex) {
		lower := strings.ToLower(tok)
		if i, ok := index[lower]; ok {
			ranked[i].count++
			continue
		}
		index[lower] = len(ranked)
		ranked = append(ranked, counted{word: tok, count: 1})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})

	out := make([]string, 0, n)
	for i := 0; i < len(ranked) && i < n; i++ {
		out = append(out, ranked[i].word)
	}
	return out
}

func hasAlnum(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

func notAlnum(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isSeparatorPunct(r rune) bool {
	return strings.ContainsRune(":;,|-–—.!", r)
}
