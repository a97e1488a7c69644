// internal/app/system/inputval/inputval.go
package inputval

import (
	"strings"
	"time"
	"unicode"
)

// IsValidEmail reports whether s is a bare addr-spec (no display name).
// Single-label domains such as "localhost" are accepted.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "<>()[],;:\"\\") {
		return false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			return false
		}
	}

	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 || strings.Count(s, "@") != 1 {
		return false
	}
	return validDotted(s[:at]) && validDotted(s[at+1:])
}

func validDotted(part string) bool {
	if part == "" || part[0] == '.' || part[len(part)-1] == '.' {
		return false
	}
	return !strings.Contains(part, "..")
}

// DateLayout is the form encoding of a date of birth.
const DateLayout = "2006-01-02"

// ParseBirthDate parses a YYYY-MM-DD date and rejects dates after now.
func ParseBirthDate(s string, now time.Time) (time.Time, bool) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	if d.After(now) {
		return time.Time{}, false
	}
	return d, true
}
