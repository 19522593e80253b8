package model

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldName strips diacritics, uppercases and collapses whitespace, for name
// comparisons that must survive inconsistent accentuation ("JOAO" == "JOÃO").
func FoldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return NormalizeName(out)
}
