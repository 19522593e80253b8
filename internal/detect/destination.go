package detect

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/rules"
)

// DefaultProximity is how far, in bytes, reason vocabulary may sit from the
// subject's name and still be attributed to it.
const DefaultProximity = 250

const (
	minDestinationRunes = 10
	maxDestinationRunes = 120
)

var (
	preposition = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(para|no|na|em)\s+`)
	// legal grounds, not destinations
	groundPrefixes = []string{"virtude", "substitui", "conson", "estágio", "fins", "avalia", "uso d", "exercício d"}
	destinationCut = regexp.MustCompile(`(?i)[.;]|,?\s+lotad[oa]|,?\s+com\s+exerc`)
	incompatible   = regexp.MustCompile(`(?i)posse\s+em\s+(?:outro\s+)?cargo\s+(?:público\s+)?inacumul`)
	// "tomar posse no Ministério X" and "cargo inacumulável no Ministério X"
	// name the institution after the lead
	destinationLead = regexp.MustCompile(`(?i)^(?:(?:tomar\s+posse|assumir|ter\s+exerc[ií]cio)\s+(?:n[oa]s?|em)\s+)?` +
		`(?:(?:outro\s+)?cargo\s+(?:público\s+)?inacumul[aá]vel\s+(?:n[oa]s?|em)\s+)?`)
	// end of the act preamble ("..., RESOLVE:")
	preambleEnd = regexp.MustCompile(`(?i)\bresolve\b\s*:?`)
)

// Resolution is the destination verdict for one act.
type Resolution struct {
	Destination string
	Confidence  string
}

// Resolver extracts the stated destination of an act and, for exits,
// decides whether the act is a confirmed departure.
type Resolver struct {
	judiciary  *rules.Matcher
	outside    *rules.Matcher
	retirement *rules.Matcher
	death      *rules.Matcher
	proximity  int
}

func NewResolver(r rules.Rules, proximity int) *Resolver {
	if proximity <= 0 {
		proximity = DefaultProximity
	}
	return &Resolver{
		judiciary:  rules.NewMatcher(r.JudiciarioKeywords),
		outside:    rules.NewMatcher(r.ForaJudiciarioKeywords),
		retirement: rules.NewMatcher(r.RetirementKeywords),
		death:      rules.NewMatcher(r.DeathKeywords),
		proximity:  proximity,
	}
}

// Candidate returns the phrase following the first destination preposition
// that does not introduce a legal ground, or "".
func (r *Resolver) Candidate(block string) string {
	for _, loc := range preposition.FindAllStringSubmatchIndex(block, -1) {
		rest := block[loc[1]:]
		lower := strings.ToLower(rest)
		excluded := false
		for _, g := range groundPrefixes {
			if strings.HasPrefix(lower, g) {
				excluded = true
				break
			}
		}
		if excluded || utf8.RuneCountInString(rest) < minDestinationRunes {
			continue
		}
		rest = truncateRunes(rest, maxDestinationRunes)
		if i := destinationCut.FindStringIndex(rest); i != nil {
			rest = rest[:i[0]]
		}
		return normalizeText(destinationLead.ReplaceAllString(rest, ""))
	}
	return ""
}

// Resolve classifies the act's destination. Entries resolve to their own
// organ. Exits are kept only when the person provably leaves the tracked
// institution family or falls in a terminal category; otherwise ok is false.
func (r *Resolver) Resolve(block string, typ model.EventType, subj Subject, organ string) (res Resolution, ok bool) {
	if typ == model.Entry {
		return Resolution{Destination: organ, Confidence: model.ConfirmedEntry}, true
	}

	if r.near(r.retirement, block, subj.Offset) {
		return Resolution{Destination: model.DestRetirement, Confidence: model.ConfirmedRetirement}, true
	}
	if r.near(r.death, block, subj.Offset) {
		return Resolution{Destination: model.DestDeath, Confidence: model.ConfirmedDeath}, true
	}

	// the destination usually follows the subject; some acts state it
	// between the verb and the name
	dest := r.Candidate(block)
	if subj.Offset > 0 && subj.Offset < len(block) {
		dest = r.Candidate(block[subj.Offset:])
		if dest == "" {
			dest = r.candidateBefore(block[:subj.Offset])
		}
	}
	if incompatible.MatchString(block) {
		switch {
		case dest == "":
			dest = model.DestIncompatibleUnspecified
		case r.judiciary.Match(dest):
			return Resolution{}, false
		case !r.outside.Match(dest):
			dest = model.DestIncompatibleOther
		}
		return Resolution{Destination: dest, Confidence: model.ConfirmedVacancy}, true
	}

	if dest == "" || r.judiciary.Match(dest) || !r.outside.Match(dest) {
		return Resolution{}, false
	}
	return Resolution{Destination: dest, Confidence: model.ConfirmedExit}, true
}

// candidateBefore looks for a destination between the end of the preamble
// and the subject, as in "Exonerar, para tomar posse no Ministério X, o
// servidor FULANO". The candidate stops at the first comma.
func (r *Resolver) candidateBefore(span string) string {
	if locs := preambleEnd.FindAllStringIndex(span, -1); len(locs) > 0 {
		span = span[locs[len(locs)-1][1]:]
	}
	dest := r.Candidate(span)
	if i := strings.IndexByte(dest, ','); i >= 0 {
		dest = strings.TrimSpace(dest[:i])
	}
	return dest
}

// near reports whether m matches within the proximity window of offset. An
// unknown offset widens the window to the whole block.
func (r *Resolver) near(m *rules.Matcher, block string, offset int) bool {
	if offset < 0 {
		return m.Match(block)
	}
	for _, loc := range m.Find(block) {
		if abs(loc[0]-offset) <= r.proximity || abs(loc[1]-offset) <= r.proximity {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
