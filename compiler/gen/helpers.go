package gen

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// Helper functions
// =============================================================================

// splitWords splits a Pascal or camel cased name into words.
// Acronyms are kept together: "HTTPServer" gives "HTTP", "Server".
func splitWords(name string) []string {
	var (
		words []string
		runes = []rune(name)
		start int
	)
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case cur == '_' || cur == ' ':
			words = append(words, string(runes[start:i]))
			start = i + 1
		case unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			words = append(words, string(runes[start:i]))
			start = i
		case unicode.IsUpper(cur) && unicode.IsUpper(prev) && unicode.IsLower(next):
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}
	return words
}

// displayName returns the human-readable name of a type name,
// e.g. "JobTimeRange" gives "Job Time Range".
func displayName(name string) string {
	var words []string
	for _, w := range splitWords(name) {
		if w != "" {
			words = append(words, w)
		}
	}
	return cases.Title(language.English, cases.NoLower).String(strings.Join(words, " "))
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}

func typeNames(types []*Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return names
}
