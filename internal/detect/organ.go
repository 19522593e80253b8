package detect

import (
	"regexp"

	"movement-tracker/pipeline/internal/model"
)

var (
	organMention = regexp.MustCompile(`\bTRT[-\s]?\d{1,2}\b`)
	organHeader  = regexp.MustCompile(`(?i)TRIBUNAL\s+REGIONAL\s+DO\s+TRABALHO\s+DA\s+(\d{1,2})\s*[ªº]\s+REGIÃO`)
)

// fallbackOrgan is used when neither the text nor the metadata name a court.
const fallbackOrgan = "TRT"

// initialOrgan picks the organ context a document starts with: a TRT code
// anywhere in the text, then the metadata hint.
func initialOrgan(text, hint string) string {
	if m := organMention.FindString(text); m != "" {
		return model.NormalizeOrgan(m)
	}
	if h := model.NormalizeOrgan(hint); h != "" {
		return h
	}
	return fallbackOrgan
}

// headerOrgan returns the organ named by a regional-court header in block.
func headerOrgan(block string) (string, bool) {
	m := organHeader.FindStringSubmatch(block)
	if m == nil {
		return "", false
	}
	return model.NormalizeOrgan(m[1]), true
}
