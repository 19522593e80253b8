package model

import (
	"regexp"
	"strconv"
	"strings"
)

var courtCode = regexp.MustCompile(`(?i)^(TRT|TRF|TRE)[\s_-]*(\d{1,2}|[A-Z]{2})$`)

// NormalizeOrgan turns the many spellings of a court code into one form:
// "5", "TRT-5", "trt 05" all become "TRT5"; "TRE sp" becomes "TRE-SP".
// Free-text organ names are returned whitespace-collapsed and otherwise untouched.
func NormalizeOrgan(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return "TRT" + strconv.Itoa(n)
	}
	m := courtCode.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	prefix := strings.ToUpper(m[1])
	if n, err := strconv.Atoi(m[2]); err == nil {
		return prefix + strconv.Itoa(n)
	}
	return prefix + "-" + strings.ToUpper(m[2])
}
