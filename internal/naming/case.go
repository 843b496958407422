package naming

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// camelBoundary matches a lowercase letter or digit followed by an uppercase letter.
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	// acronymBoundary matches an uppercase run followed by an uppercase-lowercase pair,
	// e.g. "ABCWord" splits as "ABC" + "Word".
	acronymBoundary = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	// digitBoundary matches an uppercase letter followed by digits and a lowercase
	// letter, e.g. "ID2fa" splits as "ID" + "2fa".
	digitBoundary   = regexp.MustCompile(`([A-Z])([0-9]+[a-z])`)
	nonFieldChars   = regexp.MustCompile(`[^a-z0-9_]`)
	nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// ToFieldName converts a column name to a Rust field identifier (snake_case).
// Example: "userId" -> "user_id", "ABCWord" -> "abc_word", "user.id" -> "user_id"
//
// The camelCase boundary is inserted before the acronym boundary; swapping the
// two changes the result for mixed-case acronyms.
func ToFieldName(raw string) string {
	s := insertBoundaries(raw)
	s = strings.ToLower(s)
	return nonFieldChars.ReplaceAllString(s, "_")
}

// ToStructName converts a table name to a Rust type identifier (PascalCase).
// A special case keyed by the lowercased table name wins over every other rule.
// Example: "user_profiles" -> "UserProfiles", "HTTP_logs" -> "HTTPLogs"
func ToStructName(raw string, specialCases map[string]string) string {
	if override, ok := specialCases[strings.ToLower(raw)]; ok {
		return override
	}

	tokens := nonAlphanumeric.Split(raw, -1)
	// Names without any lowercase letter are legacy SHOUTING_CASE, not acronyms.
	shouting := len(tokens) > 1 && !hasLower(raw)

	var b strings.Builder
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if shouting {
			b.WriteString(titleCase(token))
			continue
		}
		if isAcronym(token) {
			b.WriteString(token)
			continue
		}
		split := digitBoundary.ReplaceAllString(insertBoundaries(token), "${1}_${2}")
		for _, sub := range strings.Split(split, "_") {
			if isAcronym(sub) {
				b.WriteString(sub)
				continue
			}
			b.WriteString(titleCase(sub))
		}
	}
	return b.String()
}

func insertBoundaries(s string) string {
	s = camelBoundary.ReplaceAllString(s, "${1}_${2}")
	return acronymBoundary.ReplaceAllString(s, "${1}_${2}")
}

// isAcronym reports whether token is entirely uppercase and longer than one character.
// Digits do not count against it ("V2" is an acronym, "2" is not).
func isAcronym(token string) bool {
	if len(token) < 2 {
		return false
	}
	letters := 0
	for _, r := range token {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			letters++
		}
	}
	return letters > 0
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}
