package rules

import (
	"regexp"
	"strings"
)

// Matcher tests text against a keyword list using case-insensitive
// alternation anchored on Unicode word boundaries. RE2's \b only knows ASCII
// word characters, so "cia" would otherwise match inside "vacância".
type Matcher struct {
	re *regexp.Regexp
}

const wordChar = `\p{L}\p{N}_`

// NewMatcher compiles keywords into one alternation. Internal whitespace in a
// keyword matches any run of whitespace. An empty list yields a matcher that
// never matches.
func NewMatcher(keywords []string) *Matcher {
	alts := make([]string, 0, len(keywords))
	for _, k := range keywords {
		fields := strings.Fields(k)
		if len(fields) == 0 {
			continue
		}
		for i, f := range fields {
			fields[i] = regexp.QuoteMeta(f)
		}
		alts = append(alts, strings.Join(fields, `\s+`))
	}
	if len(alts) == 0 {
		return &Matcher{}
	}
	expr := `(?i)(?:^|[^` + wordChar + `])(` + strings.Join(alts, "|") + `)(?:[^` + wordChar + `]|$)`
	return &Matcher{re: regexp.MustCompile(expr)}
}

// Match reports whether any keyword occurs in text.
func (m *Matcher) Match(text string) bool {
	if m == nil || m.re == nil {
		return false
	}
	return m.re.MatchString(text)
}

// Find returns the byte offsets of every keyword occurrence in text.
func (m *Matcher) Find(text string) [][2]int {
	if m == nil || m.re == nil {
		return nil
	}
	var out [][2]int
	// Boundary characters are consumed by the match, so adjacent keywords
	// separated by a single space need a rescan from the keyword end.
	for pos := 0; pos < len(text); {
		loc := m.re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[2], pos+loc[3]
		out = append(out, [2]int{start, end})
		pos = end
	}
	return out
}

// FindFirst returns the offset of the first keyword occurrence, or -1.
func (m *Matcher) FindFirst(text string) int {
	if m == nil || m.re == nil {
		return -1
	}
	loc := m.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return -1
	}
	return loc[2]
}
