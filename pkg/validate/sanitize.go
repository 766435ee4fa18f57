package validate

import (
	"strings"
	"unicode"
)

// Text trims surrounding whitespace and strips control characters other than
// newline, carriage return and tab. Values are stored as typed; escaping is
// left to whatever renders them.
func Text(s string) string {
	return strings.TrimSpace(removeControlChars(s))
}

// Line is Text for single-line fields: line breaks and tabs collapse to spaces.
func Line(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(Text(s)), " ")
}

// OptionalText applies Text to a pointer value, returning nil for blank input.
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	v := Text(*s)
	if v == "" {
		return nil
	}
	return &v
}

func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
