package naming

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Singularize converts a plural word to its singular form.
// Checks custom overrides first (case-insensitive), then falls back to the inflection library.
func (n *Namer) Singularize(word string) string {
	if override, ok := n.config.SingularOverrides[strings.ToLower(word)]; ok {
		return matchLeadingCase(override, word)
	}
	return inflection.Singular(word)
}

// singularizeLastWord singularizes the trailing PascalCase word of name.
// Example: "UserProfiles" -> "UserProfile"
func (n *Namer) singularizeLastWord(name string) string {
	idx := lastWordStart(name)
	return name[:idx] + n.Singularize(name[idx:])
}

func lastWordStart(name string) int {
	for i := len(name) - 1; i > 0; i-- {
		if !unicode.IsUpper(rune(name[i])) {
			continue
		}
		prev := rune(name[i-1])
		if !unicode.IsUpper(prev) {
			return i
		}
		// "HTTPLogs": the word starts at the last capital of an acronym run.
		if i+1 < len(name) && unicode.IsLower(rune(name[i+1])) {
			return i
		}
	}
	return 0
}

func matchLeadingCase(word, like string) string {
	if word == "" || like == "" {
		return word
	}
	if unicode.IsUpper(rune(like[0])) {
		return strings.ToUpper(word[:1]) + word[1:]
	}
	return word
}
