package detect

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/rules"
)

// nameSpan is the capture shared by every pattern: an upper-case initial
// followed by letters, spaces, apostrophes and hyphens. It stops at digits
// and punctuation; the cut-set trims trailing clauses.
const nameSpan = `(\p{Lu}[\p{L}'’\s-]{4,100})`

// namePattern is one rung of the subject cascade.
type namePattern struct {
	name string
	re   *regexp.Regexp
}

// Patterns in priority order; the first match that survives cleaning wins.
var namePatterns = []namePattern{
	{
		name: "colon_act",
		re: regexp.MustCompile(`(?i:\b(?:nomear|exonerar|dispensar|designar|demitir|aposentar|reverter|empossar)\s*:)\s*` + nameSpan),
	},
	{
		name: "occupied_by",
		re: regexp.MustCompile(`(?i:\bocupad[oa]\s+(?:anteriormente\s+)?pel[oa]\s+(?:(?:servidor|servidora|candidato|candidata)\s*,?\s+)?)` + nameSpan),
	},
	{
		name: "ranked_list",
		re: regexp.MustCompile(`(?:^|\s)\d{1,3}\s*[ºª°]?\s*(?:(?i:lugar|colocad[oa])\s*)?[-–:.)]\s*` + nameSpan),
	},
	{
		name: "act_on_employee",
		re: regexp.MustCompile(`(?i:\b(?:exonerar|demitir|dispensar|aposentar|nomear|reverter|redistribuir|desligar)\s*,?\s*(?:a\s+pedido\s*,?\s*)?(?:[oa]s?\s+)?(?:servidor|servidora|empregado|empregada|candidato|candidata|senhor|senhora)\s*,?\s+)` + nameSpan),
	},
	{
		name: "act_direct",
		re: regexp.MustCompile(`(?i:\b(?:nomear|exonerar|demitir|aposentar|dispensar)\s*,?\s*(?:a\s+pedido\s*,?\s*)?(?:[oa]\s+)?)` + nameSpan),
	},
	{
		name: "employee",
		re: regexp.MustCompile(`(?i:\bservidora?\s*,?\s+)` + nameSpan),
	},
}

// Subject is the resolved person of an act.
type Subject struct {
	Name    string
	Offset  int    // byte offset of the mention in the block, -1 when unidentified
	Pattern string // cascade rung or "recognizer"
}

// Identified reports whether a real name was resolved.
func (s Subject) Identified() bool { return s.Name != model.Unidentified }

// SubjectExtractor resolves the person's name from an act block.
type SubjectExtractor struct {
	patterns   []namePattern
	cutWords   *rules.Matcher
	cutPunct   string
	prefixes   []string
	blacklist  []string
	recognizer Recognizer
}

// NewSubjectExtractor builds an extractor. rec may be nil to disable the
// recognizer fallback.
func NewSubjectExtractor(r rules.Rules, rec Recognizer) *SubjectExtractor {
	x := &SubjectExtractor{patterns: namePatterns, recognizer: rec}

	var words []string
	for _, c := range r.NameCutWords {
		if strings.IndexFunc(c, unicode.IsLetter) < 0 {
			x.cutPunct += strings.TrimSpace(c)
			continue
		}
		words = append(words, c)
	}
	x.cutWords = rules.NewMatcher(words)

	for _, p := range r.RolePrefixes {
		if p = model.NormalizeName(p); p != "" {
			x.prefixes = append(x.prefixes, p)
		}
	}
	// longest first so "TÉCNICO JUDICIÁRIO" wins over a shorter overlap
	sort.SliceStable(x.prefixes, func(i, j int) bool { return len(x.prefixes[i]) > len(x.prefixes[j]) })

	for _, b := range r.NameBlacklist {
		if b = strings.ToUpper(b); strings.TrimSpace(b) != "" {
			x.blacklist = append(x.blacklist, b)
		}
	}
	return x
}

// Extract runs the cascade, then the recognizer. It never fails: a block with
// no usable name yields the Unidentified sentinel.
func (x *SubjectExtractor) Extract(block string) Subject {
	for _, p := range x.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(block, -1) {
			if name, ok := x.clean(block[loc[2]:loc[3]]); ok {
				return Subject{Name: name, Offset: loc[2], Pattern: p.name}
			}
		}
	}
	if s, ok := x.recognize(block); ok {
		return s
	}
	return Subject{Name: model.Unidentified, Offset: -1}
}

func (x *SubjectExtractor) recognize(block string) (Subject, bool) {
	if x.recognizer == nil {
		return Subject{}, false
	}
	ents := x.recognizer.Persons(block)
	for _, e := range ents {
		if e.Known {
			return Subject{Name: e.Text, Offset: e.Offset, Pattern: "recognizer"}, true
		}
	}
	for _, e := range ents {
		name := x.stripPrefixes(model.NormalizeName(e.Text))
		if len(strings.Fields(name)) < 2 || x.blacklisted(name) {
			continue
		}
		return Subject{Name: name, Offset: e.Offset, Pattern: "recognizer"}, true
	}
	return Subject{}, false
}

// clean applies the post-filters to a raw capture: cut trailing clauses,
// require a majority of upper-case letters, keep the leading upper-case run,
// strip role titles, require two tokens and reject blacklisted fragments.
func (x *SubjectExtractor) clean(raw string) (string, bool) {
	s := x.cut(raw)
	if !mostlyUpper(s) {
		return "", false
	}
	s = leadingUpperRun(s)
	s = x.stripPrefixes(model.NormalizeName(s))
	s = strings.Trim(s, " -'’")
	if len(strings.Fields(s)) < 2 {
		return "", false
	}
	if x.blacklisted(s) {
		return "", false
	}
	return s, true
}

func (x *SubjectExtractor) cut(s string) string {
	if x.cutPunct != "" {
		if i := strings.IndexAny(s, x.cutPunct); i >= 0 {
			s = s[:i]
		}
	}
	if i := x.cutWords.FindFirst(s); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func (x *SubjectExtractor) stripPrefixes(s string) string {
	for changed := true; changed; {
		changed = false
		for _, p := range x.prefixes {
			if strings.HasPrefix(s, p+" ") {
				s = strings.TrimSpace(s[len(p):])
				changed = true
				break
			}
		}
	}
	return s
}

func (x *SubjectExtractor) blacklisted(name string) bool {
	for _, b := range x.blacklist {
		if strings.Contains(name, b) {
			return true
		}
	}
	return false
}

func mostlyUpper(s string) bool {
	var upper, letters int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return letters > 0 && upper*2 > letters
}

// leadingUpperRun keeps tokens up to the first one containing a lower-case letter.
func leadingUpperRun(s string) string {
	fields := strings.Fields(s)
	n := 0
	for _, f := range fields {
		if strings.IndexFunc(f, unicode.IsLower) >= 0 {
			break
		}
		n++
	}
	return strings.Join(fields[:n], " ")
}
