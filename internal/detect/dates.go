package detect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"movement-tracker/pipeline/internal/model"
)

const dateToken = `(\d{1,2}[/.]\d{1,2}[/.]\d{2,4}|\d{1,2}º?\s+de\s+\p{L}+\s+de\s+\d{4})`

// Effective-date patterns in priority order.
var effectiveDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:a\s+partir\s+de|a\s+contar\s+de|com\s+efeitos?\s+(?:a\s+partir\s+)?de)\s+` + dateToken),
	regexp.MustCompile(`(?i)\bem\s+` + dateToken),
}

var referenceDatePattern = regexp.MustCompile(`(?i)publicad[oa]s?\b[^;]{0,80}?\b(?:de|em|dia)\s+` + dateToken)

var (
	numericDate = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})[/.](\d{2,4})$`)
	writtenDate = regexp.MustCompile(`(?i)^(\d{1,2})º?\s+de\s+(\p{L}+)\s+de\s+(\d{4})$`)
)

var months = map[string]int{
	"janeiro": 1, "fevereiro": 2, "março": 3, "marco": 3, "abril": 4, "maio": 5, "junho": 6,
	"julho": 7, "agosto": 8, "setembro": 9, "outubro": 10, "novembro": 11, "dezembro": 12,
}

// EffectiveDate returns the first valid date introduced by an effectiveness
// phrase, or "".
func EffectiveDate(block string) string {
	for _, re := range effectiveDatePatterns {
		for _, m := range re.FindAllStringSubmatch(block, -1) {
			if d, err := ParseGazetteDate(m[1]); err == nil {
				return d
			}
		}
	}
	return ""
}

// ReferenceDate returns the publication date cited inside the act, or "".
func ReferenceDate(block string) string {
	for _, m := range referenceDatePattern.FindAllStringSubmatch(block, -1) {
		if d, err := ParseGazetteDate(m[1]); err == nil {
			return d
		}
	}
	return ""
}

// ParseGazetteDate converts "5/3/24", "05.03.2024" or "5 de março de 2024"
// into YYYY-MM-DD.
func ParseGazetteDate(s string) (string, error) {
	s = strings.Join(strings.Fields(s), " ")
	var day, month, year int
	if m := numericDate.FindStringSubmatch(s); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		y := m[3]
		if len(y) == 2 {
			y = "20" + y
		}
		year, _ = strconv.Atoi(y)
	} else if m := writtenDate.FindStringSubmatch(s); m != nil {
		day, _ = strconv.Atoi(m[1])
		month = months[strings.ToLower(m[2])]
		year, _ = strconv.Atoi(m[3])
	} else {
		return "", fmt.Errorf("%w: %q", model.ErrInvalidDate, s)
	}
	d := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
	if _, err := model.ParseDate(d); err != nil {
		return "", err
	}
	return d, nil
}
