package svgdoc

import (
	"strings"

	"golang.org/x/text/language"
)

// Conditions evaluates conditional processing attributes against the
// user's languages.
type Conditions struct {
	Languages []language.Tag
}

// Passes reports whether n's systemLanguage attribute, if present, matches
// one of the configured languages by base language. An empty attribute
// never matches.
func (c Conditions) Passes(n *Node) bool {
	v, ok := n.Attr("systemLanguage")
	if !ok {
		return true
	}
	for _, raw := range strings.Split(v, ",") {
		tag, err := language.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		want, _ := tag.Base()
		for _, l := range c.Languages {
			if have, _ := l.Base(); have == want {
				return true
			}
		}
	}
	return false
}

// Children returns the element children of n that should be processed.
// For <switch> only the first passing child is kept.
func (c Conditions) Children(n *Node) []*Node {
	var out []*Node
	for _, child := range n.Elements() {
		if !c.Passes(child) {
			continue
		}
		out = append(out, child)
		if n.Name == "switch" {
			break
		}
	}
	return out
}
