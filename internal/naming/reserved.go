package naming

// rustKeywords contains strict and reserved Rust keywords (2021 edition)
// that cannot be used as plain identifiers.
var rustKeywords = map[string]bool{
	// Strict keywords
	"as": true, "async": true, "await": true, "break": true, "const": true,
	"continue": true, "dyn": true, "else": true, "enum": true, "extern": true,
	"false": true, "fn": true, "for": true, "if": true, "impl": true,
	"in": true, "let": true, "loop": true, "match": true, "mod": true,
	"move": true, "mut": true, "pub": true, "ref": true, "return": true,
	"static": true, "struct": true, "trait": true, "true": true, "type": true,
	"unsafe": true, "use": true, "where": true, "while": true,

	// Reserved for future use
	"abstract": true, "become": true, "box": true, "do": true, "final": true,
	"gen": true, "macro": true, "override": true, "priv": true, "try": true,
	"typeof": true, "unsized": true, "virtual": true, "yield": true,
}

// rawForbidden lists keywords that are not allowed as raw identifiers either.
var rawForbidden = map[string]bool{
	"self":  true,
	"Self":  true,
	"super": true,
	"crate": true,
	"_":     true,
}

// IsKeyword reports whether name collides with a Rust keyword.
func IsKeyword(name string) bool {
	return rustKeywords[name] || rawForbidden[name]
}

// EscapeIdent returns name in a form that compiles as a Rust identifier.
// Keywords become raw identifiers ("type" -> "r#type"); the few keywords that
// cannot be raw identifiers get a trailing underscore ("self" -> "self_").
// Names starting with a digit get a leading underscore ("1st" -> "_1st") and
// an empty name becomes "unnamed".
func EscapeIdent(name string) string {
	switch {
	case name == "":
		return "unnamed"
	case startsWithDigit(name):
		return "_" + name
	case rawForbidden[name]:
		return name + "_"
	case rustKeywords[name]:
		return "r#" + name
	}
	return name
}

// EscapeTypeName is EscapeIdent for struct names; an empty name becomes "Unnamed".
func EscapeTypeName(name string) string {
	if name == "" {
		return "Unnamed"
	}
	return EscapeIdent(name)
}

func startsWithDigit(name string) bool {
	return name != "" && name[0] >= '0' && name[0] <= '9'
}
