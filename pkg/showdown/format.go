package showdown

import (
	"regexp"
	"strings"
)

var bracketFormat = regexp.MustCompile(`^\[Gen (\d+)\] (.+)$`)

// CompactFormat converts a display format such as "[Gen 9] VGC 2025 Reg G"
// to its compact id "gen9vgc2025regg". It reports false when the input is
// not in bracket notation.
func CompactFormat(format string) (string, bool) {
	m := bracketFormat.FindStringSubmatch(format)
	if m == nil {
		return "", false
	}
	name := strings.ReplaceAll(strings.ToLower(m[2]), " ", "")
	return "gen" + m[1] + name, true
}

// ToID reduces a display name to the lowercase alphanumeric form the server
// uses for user and room ids
func ToID(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
