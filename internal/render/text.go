package render

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	wsRegexp       = regexp.MustCompile(`\s+`)
	blankRunRegexp = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// Tidy collapses runs of blank lines left by adjacent block rules and trims
// the result.
func Tidy(md string) string {
	return strings.TrimSpace(blankRunRegexp.ReplaceAllString(md, "\n\n"))
}

func compactText(v string, max int) string {
	v = strings.TrimSpace(wsRegexp.ReplaceAllString(v, " "))
	if max <= 0 || len(v) <= max {
		return v
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(v[cut]) {
		cut--
	}
	return strings.TrimSpace(v[:cut]) + "..."
}
