package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/seo-optimizer/tubetitle/lexicon"
)

const (
	idealMinLen      = 40
	idealMaxLen      = 70
	acceptableMinLen = 30
	acceptableMaxLen = 90
	keywordWindow    = 30

	markerPoints   = 5
	markerCap      = 15
	allCapsPenalty = 10
)

var digitRun = regexp.MustCompile(`\d+`)

// titleInput is the precomputed view of a title shared by every rule
type titleInput struct {
	title   string
	lower   string
	keyword string
	lexicon lexicon.Lexicon
	year    int
}

// rule scores one independent aspect of a title
type rule func(in titleInput) (int, []Finding)

// rules run in this order; only the findings sequence depends on it
var rules = []rule{
	lengthRule,
	keywordRule,
	powerWordRule,
	digitRule,
	visualMarkerRule,
}

func lengthRule(in titleInput) (int, []Finding) {
	n := utf8.RuneCountInString(in.title)
	switch {
	case n >= idealMinLen && n <= idealMaxLen:
		return 25, []Finding{{SeveritySuccess, "length",
			fmt.Sprintf("Perfect Length: %d characters", n)}}
	case n >= acceptableMinLen && n <= acceptableMaxLen:
		return 20, []Finding{{SeverityInfo, "length",
			fmt.Sprintf("Good Length: %d characters (ideal %d-%d)", n, idealMinLen, idealMaxLen)}}
	case n < acceptableMinLen:
		return 10, []Finding{{SeverityWarning, "length",
			fmt.Sprintf("Too Short: %d characters, aim for %d-%d", n, idealMinLen, idealMaxLen)}}
	default:
		return 5, []Finding{{SeverityWarning, "length",
			fmt.Sprintf("Too Long: %d characters, it will be truncated in search results", n)}}
	}
}

func keywordRule(in titleInput) (int, []Finding) {
	if in.keyword == "" {
		return 20, nil
	}

	loc := keywordMatcher(in.keyword).FindStringIndex(in.title)
	if loc == nil {
		return 0, []Finding{{SeverityError, "keyword",
			fmt.Sprintf("Missing Keyword: %q does not appear in the title", in.keyword)}}
	}

	if !hasAlnum(in.title[:loc[0]]) {
		return 20, []Finding{{SeveritySuccess, "keyword", "Keyword at Start: best placement for ranking"}}
	}

	end := utf8.RuneCountInString(in.title[:loc[1]])
	if end <= keywordWindow {
		return 15, []Finding{{SeveritySuccess, "keyword",
			fmt.Sprintf("Keyword Near Start: within the first %d characters", keywordWindow)}}
	}
	return 10, []Finding{{SeverityInfo, "keyword", "Keyword Present: move it closer to the start"}}
}

func powerWordRule(in titleInput) (int, []Finding) {
	var matches []string
	for _, w := range in.lexicon.PowerWords {
		if strings.Contains(in.lower, w) {
			matches = append(matches, w)
		}
	}
	if len(matches) == 0 {
		return 0, []Finding{{SeverityWarning, "power_words", "No Power Words: add an emotional trigger word"}}
	}
	if len(matches) > 2 {
		matches = matches[:2]
	}
	return 15, []Finding{{SeveritySuccess, "power_words",
		"Power Words: " + strings.Join(matches, ", ")}}
}

func digitRule(in titleInput) (int, []Finding) {
	runs := digitRun.FindAllString(in.title, -1)
	if len(runs) == 0 {
		return 0, []Finding{{SeverityInfo, "digits", "No Numbers: titles with numbers tend to get more clicks"}}
	}
	return 15, []Finding{{SeveritySuccess, "digits", "Numbers: " + strings.Join(runs, ", ")}}
}

// visualMarkerRule also applies the all-caps penalty. The penalty lands on
// the capped marker subtotal, which is then floored at zero, so it can
// never eat into the points of other rules.
func visualMarkerRule(in titleInput) (int, []Finding) {
	var findings []Finding
	subtotal := 0

	if strings.ContainsAny(in.title, "([") {
		subtotal += markerPoints
		findings = append(findings, Finding{SeveritySuccess, "visual", "Brackets: adds context at a glance"})
	}
	if strings.Contains(in.title, "?") {
		subtotal += markerPoints
		findings = append(findings, Finding{SeveritySuccess, "visual", "Question: sparks curiosity"})
	}
	if year := strconv.Itoa(in.year); strings.Contains(in.title, year) {
		subtotal += markerPoints
		findings = append(findings, Finding{SeveritySuccess, "visual", "Current Year: " + year + " signals fresh content"})
	}
	if containsEmoji(in.title) {
		subtotal += markerPoints
		findings = append(findings, Finding{SeveritySuccess, "visual", "Emoji: stands out in the feed"})
	}
	if subtotal > markerCap {
		subtotal = markerCap
	}

	if isAllCaps(in.title) {
		subtotal -= allCapsPenalty
		findings = append(findings, Finding{SeverityError, "caps", "All Caps: reads as shouting, use title case"})
	}
	if subtotal < 0 {
		subtotal = 0
	}
	return subtotal, findings
}

func isAllCaps(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF: // pictographs, emoticons, transport, supplemental
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	case r == 0x2B50 || r == 0x2B55 || r == 0x2705 || r == 0x274C:
		return true
	}
	return false
}

func containsEmoji(s string) bool {
	for _, r := range s {
		if isEmoji(r) {
			return true
		}
	}
	return false
}
