package pipeline

import (
	"regexp"
	"strings"
	"unicode"
)

// namePatterns are tried in order against the lowercased message; the
// first pattern that matches anywhere wins.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`my name is ([\p{L}\p{M}\p{N}_]+)`),
	regexp.MustCompile(`i'm ([\p{L}\p{M}\p{N}_]+)`),
	regexp.MustCompile(`i am ([\p{L}\p{M}\p{N}_]+)`),
	regexp.MustCompile(`call me ([\p{L}\p{M}\p{N}_]+)`),
}

// ExtractName returns the title-cased name from a self-introduction such
// as "my name is alice" or "call me Bob", or "" when none is found.
func ExtractName(message string) string {
	lower := strings.ToLower(message)
	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return titleCase(m[1])
		}
	}
	return ""
}

// titleCase upper-cases each letter that follows a non-letter and
// lower-cases the rest: "o_neil" -> "O_Neil", "2pac" -> "2Pac".
func titleCase(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	prevLetter := false
	for _, r := range word {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
