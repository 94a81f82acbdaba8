package svgdoc

import "strings"

// textElements are the elements that draw glyphs.
var textElements = map[string]bool{
	"text":     true,
	"tspan":    true,
	"textPath": true,
	"tref":     true,
}

// IsTextElement reports whether n draws glyphs.
func IsTextElement(n *Node) bool {
	return n.Kind == ElementNode && textElements[n.Name]
}

// HasText reports whether any text-drawing element in doc carries
// non-blank character data. It is a pure predicate over the parsed tree and
// the only gate in front of font catalog construction.
func HasText(doc *Document) bool {
	found := false
	doc.Walk(func(n *Node) bool {
		if found {
			return false
		}
		if !IsTextElement(n) {
			return true
		}
		if strings.TrimSpace(TextContent(n)) != "" {
			found = true
			return false
		}
		return true
	})
	return found
}

// TextContent concatenates the character data below n in document order.
func TextContent(n *Node) string {
	var b strings.Builder
	collectText(n, &b)
	return b.String()
}

func collectText(n *Node, b *strings.Builder) {
	if n.Kind == TextNode {
		b.WriteString(n.Text)
		return
	}
	for _, c := range n.Children {
		collectText(c, b)
	}
}

// CollapseWhitespace applies xml:space="default" handling: newlines are
// removed, tabs become spaces and runs of spaces collapse.
func CollapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\t", " ")
	var b strings.Builder
	prevSpace := false
	for _, r := range s {
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
