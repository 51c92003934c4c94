package tables

import (
	"strings"
	"unicode"
)

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePhone keeps digits and a leading plus sign, then formats ten-digit
// North American numbers as (555) 123-4567. Anything else is returned
// trimmed but otherwise untouched.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var digits strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		return s
	}
	return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
}

// NormalizeChoice matches s case-insensitively against choices and returns
// the canonical spelling, so "heloc" is stored as "HELOC".
func NormalizeChoice(choices []string) func(string) string {
	return func(s string) string {
		t := strings.TrimSpace(s)
		for _, c := range choices {
			if strings.EqualFold(c, t) {
				return c
			}
		}
		return s
	}
}
