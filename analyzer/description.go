package analyzer

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultDurationMinutes = 10
	maxHashtags            = 5
)

var leadingInt = regexp.MustCompile(`^\s*(\d+)`)

type chapter struct {
	fraction float64
	label    string
}

var outline = []chapter{
	{0, "Introduction"},
	{0.10, "What is %s?"},
	{0.40, "Step-by-step walkthrough"},
	{0.75, "Tips and common mistakes"},
	{0.90, "Final thoughts"},
}

// parseDurationMinutes reads the leading integer of labels such as
// "12 min" or "8-10 minutes"; anything else yields the default.
func parseDurationMinutes(label string) int {
	m := leadingInt.FindStringSubmatch(label)
	if m == nil {
		return defaultDurationMinutes
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return defaultDurationMinutes
	}
	return n
}

func formatOffset(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func hashtag(tag string) string {
	return "#" + strings.Join(strings.Fields(tag), "")
}

// GenerateDescription renders the description template.
func (e *Engine) GenerateDescription(title, keyword string, tags []string, durationLabel string) string {
	now := e.now()
	subject := strings.TrimSpace(keyword)
	if subject == "" {
		subject = title
	}
	total := parseDurationMinutes(durationLabel) * 60

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", title)
	fmt.Fprintf(&b, "In this video you will learn everything about %s, updated for %s %d. ",
		subject, now.Month(), now.Year())
	b.WriteString("Watch until the end for the key takeaways, and subscribe for more.\n\n")

	b.WriteString("⏱️ TIMESTAMPS\n")
	for _, c := range outline {
		label := c.label
		if strings.Contains(label, "%s") {
			label = fmt.Sprintf(label, subject)
		}
		fmt.Fprintf(&b, "%s %s\n", formatOffset(int(math.Round(float64(total)*c.fraction))), label)
	}

	b.WriteString("\n👍 If this helped, like the video and share it with a friend.\n")
	b.WriteString("💬 Tell us in the comments what you want to see next.\n")

	n := len(tags)
	if n > maxHashtags {
		n = maxHashtags
	}
	if n > 0 {
		hashtags := make([]string, 0, n)
		for _, t := range tags[:n] {
			hashtags = append(hashtags, hashtag(t))
		}
		fmt.Fprintf(&b, "\n%s\n", strings.Join(hashtags, " "))
	}

	return b.String()
}

// GenerateDescription uses a wall-clock Engine.
func GenerateDescription(title, keyword string, tags []string, durationLabel string) string {
	return NewEngine().GenerateDescription(title, keyword, tags, durationLabel)
}
