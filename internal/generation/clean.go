package generation

import (
	"regexp"
	"strings"
)

var (
	headingPattern  = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]*`)
	emphasisPattern = regexp.MustCompile(`(\*{1,3}|_{2,3}|~~)`)
	bracketPattern  = regexp.MustCompile(`\[[^\]]*\]`)
	parenPattern    = regexp.MustCompile(`\([^)]*\)`)
	labelPattern    = regexp.MustCompile(`(?m)^[ \t]*[A-Z][A-Za-z0-9]*(?:[ \t]+[A-Z0-9][A-Za-z0-9]*){0,2}:[ \t]*`)
	spacePattern    = regexp.MustCompile(`[ \t]+`)
	blankPattern    = regexp.MustCompile(`\n{3,}`)
)

// SpeakableScript strips markdown and stage directions so only spoken words
// reach the voice provider. Section labels such as "Hook:" are dropped.
func SpeakableScript(script string) string {
	out := headingPattern.ReplaceAllString(script, "")
	out = emphasisPattern.ReplaceAllString(out, "")
	out = bracketPattern.ReplaceAllString(out, "")
	out = parenPattern.ReplaceAllString(out, "")
	out = labelPattern.ReplaceAllString(out, "")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spacePattern.ReplaceAllString(line, " "))
	}
	out = strings.Join(lines, "\n")
	out = blankPattern.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// firstRunes returns at most n runes of s.
func firstRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
