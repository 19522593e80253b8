package detect

import (
	"sort"
	"strings"
	"unicode"

	"movement-tracker/pipeline/internal/model"
)

// Entity is a person mention found by a Recognizer.
type Entity struct {
	Text   string
	Offset int
	Known  bool // exact dictionary hit
}

// Recognizer finds person-like mentions in free text. It is the last resort
// of the subject cascade.
type Recognizer interface {
	Persons(text string) []Entity
}

// GazetteerRecognizer spots runs of capitalized words joined by Portuguese
// name particles, and flags runs that equal a previously confirmed name.
// Build it once per process and share it; it is read-only after construction.
type GazetteerRecognizer struct {
	known [][]string        // folded token sequences
	canon map[string]string // folded name -> canonical uppercase name
}

var particles = map[string]bool{
	"da": true, "de": true, "do": true, "das": true, "dos": true, "e": true, "d'": true,
}

// leading words that start sentences, never names
var articles = map[string]bool{
	"O": true, "A": true, "OS": true, "AS": true, "NO": true, "NA": true, "EM": true,
	"DO": true, "DA": true, "AO": true, "À": true, "E": true, "DE": true,
}

func NewGazetteerRecognizer(knownNames []string) *GazetteerRecognizer {
	g := &GazetteerRecognizer{canon: make(map[string]string, len(knownNames))}
	for _, n := range knownNames {
		f := model.FoldName(n)
		if f == "" {
			continue
		}
		if _, dup := g.canon[f]; dup {
			continue
		}
		g.canon[f] = model.NormalizeName(n)
		g.known = append(g.known, strings.Fields(f))
	}
	return g
}

type token struct {
	text  string
	start int
	end   int
	// gapClean is true when only whitespace separates this token from the previous one
	gapClean bool
}

func tokenize(text string) []token {
	var out []token
	start := -1
	clean := true
	for i, r := range text {
		isWord := unicode.IsLetter(r) || r == '\'' || r == '’' || r == '-'
		switch {
		case isWord && start < 0:
			start = i
		case !isWord && start >= 0:
			out = append(out, token{text: text[start:i], start: start, end: i, gapClean: clean})
			start = -1
			clean = true
		}
		if !isWord && !unicode.IsSpace(r) {
			clean = false
		}
	}
	if start >= 0 {
		out = append(out, token{text: text[start:], start: start, end: len(text), gapClean: clean})
	}
	return out
}

func capitalized(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// Persons returns dictionary hits and capitalized runs in text order.
func (g *GazetteerRecognizer) Persons(text string) []Entity {
	toks := tokenize(text)
	folded := make([]string, len(toks))
	for i, t := range toks {
		folded[i] = model.FoldName(t.text)
	}

	var out []Entity
	seen := make(map[int]bool)
	for i := range toks {
		for _, k := range g.known {
			if !matchTokens(toks, folded, i, k) {
				continue
			}
			out = append(out, Entity{
				Text:   g.canon[strings.Join(k, " ")],
				Offset: toks[i].start,
				Known:  true,
			})
			seen[toks[i].start] = true
		}
	}

	for i := 0; i < len(toks); {
		if !capitalized(toks[i].text) || articles[strings.ToUpper(toks[i].text)] {
			i++
			continue
		}
		j := i + 1
		for j < len(toks) && toks[j].gapClean {
			w := toks[j].text
			if capitalized(w) || (particles[strings.ToLower(w)] && j+1 < len(toks) && toks[j+1].gapClean && capitalized(toks[j+1].text)) {
				j++
				continue
			}
			break
		}
		if j-i >= 2 && !seen[toks[i].start] {
			out = append(out, Entity{
				Text:   model.NormalizeName(text[toks[i].start:toks[j-1].end]),
				Offset: toks[i].start,
			})
		}
		i = j
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Offset < out[b].Offset })
	return out
}

func matchTokens(toks []token, folded []string, i int, k []string) bool {
	if i+len(k) > len(toks) {
		return false
	}
	for n, w := range k {
		if folded[i+n] != w {
			return false
		}
		if n > 0 && !toks[i+n].gapClean {
			return false
		}
	}
	return true
}

var _ Recognizer = (*GazetteerRecognizer)(nil)
