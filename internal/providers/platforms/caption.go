package platforms

import "strings"

func captionFrom(script string, max int) string {
	s := strings.TrimSpace(script)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
