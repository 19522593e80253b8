package detect

import (
	"iter"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// minBlockLines is the smallest run of lines that may close a block.
const minBlockLines = 8

// Segment splits document text into candidate act blocks. Non-empty lines
// accumulate until at least minBlockLines have been collected and the last one
// ends in a period or colon; the remainder is flushed as a final block. Blocks
// are NFC-normalized and whitespace-collapsed.
func Segment(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var cur []string
		for _, ln := range strings.Split(text, "\n") {
			ln = strings.TrimSpace(ln)
			if ln == "" {
				continue
			}
			cur = append(cur, ln)
			if len(cur) >= minBlockLines && (strings.HasSuffix(ln, ".") || strings.HasSuffix(ln, ":")) {
				if !yield(normalizeText(strings.Join(cur, " "))) {
					return
				}
				cur = cur[:0]
			}
		}
		if len(cur) > 0 {
			yield(normalizeText(strings.Join(cur, " ")))
		}
	}
}

// normalizeText composes accents (PDF extraction often yields NFD) and
// collapses whitespace.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
