package detect

import (
	"regexp"
	"strings"

	"movement-tracker/pipeline/internal/model"
)

var rolePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:para\s+exercer\s+o\s+cargo\s+de|para\s+ocupar\s+o\s+cargo\s+de|para\s+o\s+cargo\s+de|no\s+cargo\s+de)\s+([^,.;]+)`),
	regexp.MustCompile(`(?i)cargo\s+de\s+([^,.;]+)`),
}

// ExtractRole returns the position named in an act, or Unidentified.
func ExtractRole(text string) string {
	for _, re := range rolePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if role := strings.Join(strings.Fields(m[1]), " "); role != "" {
				return role
			}
		}
	}
	return model.Unidentified
}
