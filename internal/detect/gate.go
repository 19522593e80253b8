package detect

import (
	"movement-tracker/pipeline/internal/model"
	"movement-tracker/pipeline/internal/rules"
)

// Verdict is the classifier's decision for one block.
type Verdict string

const (
	VerdictSkipped   Verdict = "skipped"
	VerdictNoAct     Verdict = "no_act"
	VerdictOffDomain Verdict = "off_domain"
	VerdictEntry     Verdict = "entry"
	VerdictExit      Verdict = "exit"
)

// Gate decides whether a block describes a relevant personnel act.
type Gate struct {
	skip   *rules.Matcher
	entry  *rules.Matcher
	exit   *rules.Matcher
	domain *rules.Matcher
}

func NewGate(r rules.Rules) *Gate {
	return &Gate{
		skip:   rules.NewMatcher(r.SkipPatterns),
		entry:  rules.NewMatcher(r.EntryPatterns),
		exit:   rules.NewMatcher(r.ExitPatterns),
		domain: rules.NewMatcher(r.TIKeywords),
	}
}

// Evaluate runs the staged gate. Corrections and retractions are rejected
// before anything else; a nomination that also mentions a vacancy is an entry.
func (g *Gate) Evaluate(block string) Verdict {
	if g.skip.Match(block) {
		return VerdictSkipped
	}
	isEntry := g.entry.Match(block)
	isExit := g.exit.Match(block)
	if !isEntry && !isExit {
		return VerdictNoAct
	}
	if !g.domain.Match(block) {
		return VerdictOffDomain
	}
	if isEntry {
		return VerdictEntry
	}
	return VerdictExit
}

// Classify returns the act type and whether the block is retained.
func (g *Gate) Classify(block string) (model.EventType, bool) {
	switch g.Evaluate(block) {
	case VerdictEntry:
		return model.Entry, true
	case VerdictExit:
		return model.Exit, true
	}
	return "", false
}
