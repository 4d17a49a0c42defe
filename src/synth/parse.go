package synth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// VerdictMarker is the line the synthesizer is told to write between the
// summaries and the verdict
const VerdictMarker = "FINAL VERDICT:"

// NoVerdict replaces an empty verdict region
const NoVerdict = "No verdict provided"

// DefaultFallbackLength is how much of a raw answer stands in for a missing
// summary line
const DefaultFallbackLength = 150

// Split is a synthesized text cut at the verdict marker.
type Split struct {
	// Summaries is everything before the marker line, or the whole text
	// when there is no marker.
	Summaries string
	// Verdict is the non-blank lines after the marker, trimmed. It is
	// empty when there is no marker.
	Verdict string
	Found   bool
}

// SplitVerdict cuts text at the first line containing "final verdict",
// compared case-insensitively.
func SplitVerdict(text string) Split {
	lines := strings.Split(text, "\n")
	marker := -1
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), "final verdict") {
			marker = i
			break
		}
	}
	if marker < 0 {
		return Split{Summaries: text}
	}

	// text sharing the marker line is not part of the verdict
	var verdict []string
	for _, line := range lines[marker+1:] {
		if strings.TrimSpace(line) != "" {
			verdict = append(verdict, line)
		}
	}

	return Split{
		Summaries: strings.Join(lines[:marker], "\n"),
		Verdict:   strings.TrimSpace(strings.Join(verdict, "\n")),
		Found:     true,
	}
}

// ExtractSummary finds the first line of region of the form "<name>: text"
// and returns text. The name is matched case-insensitively and may be
// wrapped in markdown emphasis or preceded by a list marker.
func ExtractSummary(region, name string) (string, bool) {
	pattern := regexp.MustCompile(`(?i)^[\s>#*_+\-\d.]*` + regexp.QuoteMeta(name) + `[*_]*\s*:[*_]*\s*(.+)$`)
	for _, line := range strings.Split(region, "\n") {
		m := pattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		if text := strings.TrimSpace(m[1]); text != "" {
			return text, true
		}
	}
	return "", false
}

// Fallback returns the first n runes of text, followed by "..." when
// anything was cut.
func Fallback(text string, n int) string {
	if n <= 0 {
		n = DefaultFallbackLength
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
