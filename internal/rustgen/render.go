package rustgen

import (
	"strings"

	"rowgen/internal/naming"
)

// DocumentHeader is the first line of every generated document.
const DocumentHeader = "// This file is generated by rowgen. Do not edit by hand."

const indent = "    "

// Render renders a single struct declaration, terminated by a newline.
func Render(s Struct) string {
	var b strings.Builder
	writeDoc(&b, "", s.Doc)
	for _, attr := range s.Attributes {
		b.WriteString(attr)
		b.WriteString("\n")
	}
	b.WriteString("pub struct ")
	b.WriteString(naming.EscapeTypeName(s.Name))
	b.WriteString(" {\n")
	for _, field := range s.Fields {
		writeDoc(&b, indent, field.Doc)
		if field.Rename != "" {
			b.WriteString(indent)
			b.WriteString(field.Rename)
			b.WriteString("\n")
		}
		b.WriteString(indent)
		b.WriteString("pub ")
		b.WriteString(naming.EscapeIdent(field.Name))
		b.WriteString(": ")
		b.WriteString(field.Type)
		b.WriteString(",\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// RenderDocument renders the header, the use declarations for style, and
// every struct in order, separated by blank lines.
func RenderDocument(structs []Struct, style Style) string {
	var b strings.Builder
	b.WriteString(DocumentHeader)
	b.WriteString("\n\n")
	for _, use := range style.useDeclarations() {
		b.WriteString(use)
		b.WriteString("\n")
	}
	for _, s := range structs {
		b.WriteString("\n")
		b.WriteString(Render(s))
	}
	return b.String()
}

func writeDoc(b *strings.Builder, prefix, doc string) {
	if doc == "" {
		return
	}
	for _, line := range strings.Split(doc, "\n") {
		b.WriteString(prefix)
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			b.WriteString("///\n")
			continue
		}
		b.WriteString("/// ")
		b.WriteString(line)
		b.WriteString("\n")
	}
}
