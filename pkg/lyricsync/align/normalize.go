package align

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize prepares text for similarity scoring: whitespace runs collapse to
// a single space, the result is trimmed and lowercased, and everything that is
// neither a word character (letter, number, underscore) nor a space is removed.
//
// Punctuation is removed last and the spaces around it are kept, so "a - b"
// becomes "a  b" and "hello !" becomes "hello ". Normalize is idempotent only
// for inputs where that leaves no double or edge spaces.
func Normalize(text string) string {
	s := collapseSpaces(text)
	if s == "" {
		return ""
	}

	// cases.Caser keeps state between calls, so one per invocation.
	s = cases.Lower(language.Und).String(s)

	return strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)
}

// collapseSpaces replaces every whitespace run with one ASCII space and trims both ends.
func collapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// isSpace is unicode.IsSpace extended with the ASCII information separators
// U+001C to U+001F.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
