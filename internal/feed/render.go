package feed

import (
	"html"
	"strings"

	"github.com/antchfx/xmlquery"
)

const (
	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`
	xmlNamespace   = "http://www.w3.org/XML/1998/namespace"
	indent         = "  "
)

// render writes doc with one element per line. Elements holding text are written on a
// single line with their content untouched.
func render(doc *xmlquery.Node) []byte {
	var b strings.Builder
	first := doc.FirstChild
	for first != nil && isBlank(first) {
		first = first.NextSibling
	}
	if first == nil || first.Type != xmlquery.DeclarationNode {
		b.WriteString(xmlDeclaration)
		b.WriteByte('\n')
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		writeIndented(&b, n, 0)
	}
	return []byte(b.String())
}

func writeIndented(b *strings.Builder, n *xmlquery.Node, depth int) {
	if isBlank(n) {
		return
	}
	b.WriteString(strings.Repeat(indent, depth))
	switch {
	case n.Type == xmlquery.DeclarationNode:
		b.WriteString("<?" + n.Data)
		writeAttrs(b, n)
		b.WriteString("?>")
	case n.Type != xmlquery.ElementNode || !elementOnly(n):
		writeInline(b, n)
	default:
		b.WriteString("<" + qualifiedName(n))
		writeAttrs(b, n)
		b.WriteString(">\n")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeIndented(b, c, depth+1)
		}
		b.WriteString(strings.Repeat(indent, depth) + "</" + qualifiedName(n) + ">")
	}
	b.WriteByte('\n')
}

func writeInline(b *strings.Builder, n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.TextNode:
		b.WriteString(html.EscapeString(n.Data))
	case xmlquery.CharDataNode:
		b.WriteString("<![CDATA[" + n.Data + "]]>")
	case xmlquery.CommentNode:
		b.WriteString("<!--" + n.Data + "-->")
	case xmlquery.ElementNode:
		b.WriteString("<" + qualifiedName(n))
		writeAttrs(b, n)
		if n.FirstChild == nil {
			b.WriteString("/>")
			return
		}
		b.WriteByte('>')
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeInline(b, c)
		}
		b.WriteString("</" + qualifiedName(n) + ">")
	}
}

func writeAttrs(b *strings.Builder, n *xmlquery.Node) {
	for _, attr := range n.Attr {
		b.WriteByte(' ')
		switch attr.Name.Space {
		case "":
		case xmlNamespace:
			b.WriteString("xml:")
		default:
			b.WriteString(attr.Name.Space + ":")
		}
		b.WriteString(attr.Name.Local + `="` + html.EscapeString(attr.Value) + `"`)
	}
}

// elementOnly reports whether n has children and none of them is text or CDATA.
func elementOnly(n *xmlquery.Node) bool {
	if n.FirstChild == nil {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.CharDataNode || (c.Type == xmlquery.TextNode && !isBlank(c)) {
			return false
		}
	}
	return true
}

func isBlank(n *xmlquery.Node) bool {
	return n.Type == xmlquery.TextNode && strings.TrimSpace(n.Data) == ""
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix == "" {
		return n.Data
	}
	return n.Prefix + ":" + n.Data
}
