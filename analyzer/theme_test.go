package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seo-optimizer/tubetitle/lexicon"
)

func TestExtractTheme(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		keyword string
		want    string
	}{
		{"keyword removed", "Best Relaxing Music for Sleep", "relaxing music", "Best for Sleep"},
		{"keyword case and spacing", "Best RELAXING   music for Sleep", "Relaxing Music", "Best for Sleep"},
		{"brackets stripped", "[Official] Lo-fi Beats (Study Mix)", "", "Official Lo-fi Beats Study Mix"},
		{"separators trimmed", "Python Tutorial: Build a Web App 🔥", "python tutorial", "Build a Web App"},
		{"short remainder uses tokens", "Python Tutorial: Go", "python tutorial", "Go"},
		{"nothing left", "Python Tutorial", "python tutorial", "Guide"},
		{"punctuation only", "!!! ???", "", "Guide"},
		{"no keyword keeps title", "How to do it", "", "How to do it"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTheme(tt.title, tt.keyword, lexicon.Default()))
		})
	}
}

func TestExtractThemeNeverEmpty(t *testing.T) {
	lex := lexicon.Default()
	for _, title := range []string{"", " ", "-", "a", "Python", "🔥🔥🔥", "the and of"} {
		theme := ExtractTheme(title, "python", lex)
		assert.NotEmpty(t, theme, "title %q", title)
	}

	theme := ExtractTheme("Best Relaxing Music for Sleep", "relaxing music", lex)
	assert.NotContains(t, strings.ToLower(theme), "relaxing music")
}

func TestExtractThemeFallbackLimit(t *testing.T) {
	title := "Python: Alpha Beta Gamma Delta Epsilon Zeta"
	tokens := significantTokens(title, "python", lexicon.Default())
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta"}, tokens)
}

func TestTopTokens(t *testing.T) {
	lex := lexicon.Default()
	got := topTokens("bread bread starter flour starter bread yeast", "", lex, 3)
	assert.Equal(t, []string{"bread", "starter", "flour"}, got)

	got = topTokens("How to bake the bread", "bread", lex, 5)
	assert.Equal(t, []string{"bake"}, got, "stop words and keyword words are dropped")

	assert.Empty(t, topTokens("", "", lex, 3))
}
