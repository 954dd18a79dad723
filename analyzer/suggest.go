package analyzer

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/seo-optimizer/tubetitle/lexicon"
)

const suggestionBudget = 100

// Rand is the random source used to pick decorations. *rand.Rand
// satisfies it.
type Rand interface {
	Intn(n int) int
}

// LockedRand makes a math/rand generator safe for concurrent handlers.
type LockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewLockedRand seeds a generator.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{src: rand.New(rand.NewSource(seed))}
}

func (r *LockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

var (
	leadNumbers = []int{5, 7, 10}
	decorations = []string{"🔥", "🚀", "✅", "💡", "⭐", "🎯"}

	genericThemes = map[string]bool{
		"guide":    true,
		"video":    true,
		"tutorial": true,
		"tips":     true,
		"content":  true,
	}

	// {theme} is interpolated last, cut to whatever budget is left.
	suggestionTemplates = []string{
		"{Subject}: {theme} - {POWER} {year} {emoji}",
		"{n} {Power} {Subject} Tips for {theme} ({year})",
		"How to Master {Subject}: {theme} {emoji}",
		"{Subject} {year}: The {Power} Guide to {theme}",
		"Is This the {Power} Way to {theme}? {Subject} in {n} Steps {emoji}",
	}
)

type decoration struct {
	power string
	lead  int
	emoji string
}

// Suggest renders alternative titles and scores each one with the same
// engine, labelling it against the original. Candidates are never
// filtered; callers rank them by Delta.
func (e *Engine) Suggest(title, keyword string, lex lexicon.Lexicon, competitors []CompetitorRecord, rng Rand) []Candidate {
	kw := normalizeKeyword(keyword)
	year := strconv.Itoa(e.now().Year())

	theme := ExtractTheme(title, kw, lex)
	if theme == "" || genericThemes[strings.ToLower(theme)] {
		if top := topTokens(title, kw, lex, 3); len(top) > 0 {
			theme = strings.Join(top, " ")
		}
	}

	subject := titleCase(kw)
	if subject == "" {
		subject = titleCase(strings.Join(topTokens(title, "", lex, 2), " "))
	}
	if subject == "" {
		subject = "Video"
	}

	deco := pickDecoration(lex, rng)
	if top, ok := topCompetitor(competitors); ok {
		deco = biasTowards(deco, top.Title, lex)
	}

	original := e.Score(title, keyword, lex)
	candidates := make([]Candidate, 0, len(suggestionTemplates))
	for _, tpl := range suggestionTemplates {
		text := renderSuggestion(tpl, subject, theme, year, deco)
		res := e.Score(text, keyword, lex)
		candidates = append(candidates, Candidate{
			Title:   text,
			Score:   res.Score,
			Delta:   res.Score - original.Score,
			Verdict: verdict(res.Score, original.Score),
			Result:  res,
		})
	}
	return candidates
}

func pickDecoration(lex lexicon.Lexicon, rng Rand) decoration {
	d := decoration{
		power: "ultimate",
		lead:  leadNumbers[rng.Intn(len(leadNumbers))],
		emoji: decorations[rng.Intn(len(decorations))],
	}
	if len(lex.PowerWords) > 0 {
		d.power = lex.PowerWords[rng.Intn(len(lex.PowerWords))]
	}
	return d
}

// biasTowards copies the lead number and the first lexicon power word
// found in a competitor title.
func biasTowards(d decoration, competitorTitle string, lex lexicon.Lexicon) decoration {
	if run := digitRun.FindString(competitorTitle); run != "" {
		if n, err := strconv.Atoi(run); err == nil {
			d.lead = n
		}
	}
	lower := strings.ToLower(competitorTitle)
	for _, w := range lex.PowerWords {
		if strings.Contains(lower, w) {
			d.power = w
			break
		}
	}
	return d
}

// topCompetitor is the record with the most views; the first one wins ties.
func topCompetitor(records []CompetitorRecord) (CompetitorRecord, bool) {
	if len(records) == 0 {
		return CompetitorRecord{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.ViewCount > best.ViewCount {
			best = r
		}
	}
	return best, true
}

func renderSuggestion(tpl, subject, theme, year string, d decoration) string {
	text := strings.NewReplacer(
		"{Subject}", subject,
		"{POWER}", strings.ToUpper(d.power),
		"{Power}", titleCase(d.power),
		"{year}", year,
		"{emoji}", d.emoji,
		"{n}", strconv.Itoa(d.lead),
	).Replace(tpl)

	budget := suggestionBudget - utf8.RuneCountInString(strings.Replace(text, "{theme}", "", 1))
	text = strings.Replace(text, "{theme}", fitTheme(theme, budget), 1)
	return strings.Join(strings.Fields(text), " ")
}

// fitTheme cuts theme to budget but always keeps its first word, so a
// long subject can push a candidate past the budget instead of leaving a
// hole in the template.
func fitTheme(theme string, budget int) string {
	if fitted := truncateWords(theme, budget); fitted != "" {
		return fitted
	}
	if words := strings.Fields(theme); len(words) > 0 {
		return words[0]
	}
	return fallbackTheme
}

// truncateWords shortens s to at most limit runes, cutting only between
// words.
func truncateWords(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	var b strings.Builder
	n := 0
	for _, w := range strings.Fields(s) {
		wl := utf8.RuneCountInString(w)
		extra := wl
		if n > 0 {
			extra++
		}
		if n+extra > limit {
			break
		}
		if n > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		n += extra
	}
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func verdict(score, original int) Verdict {
	switch {
	case score > original:
		return VerdictBetter
	case score < original:
		return VerdictWorse
	default:
		return VerdictEqual
	}
}
