package svgdoc

import "strings"

// inherited lists the presentation properties that cascade to descendants.
var inherited = map[string]bool{
	"fill":              true,
	"fill-opacity":      true,
	"fill-rule":         true,
	"stroke":            true,
	"stroke-width":      true,
	"stroke-opacity":    true,
	"stroke-linecap":    true,
	"stroke-linejoin":   true,
	"font-family":       true,
	"font-size":         true,
	"font-style":        true,
	"font-weight":       true,
	"text-anchor":       true,
	"visibility":        true,
	"shape-rendering":   true,
	"text-rendering":    true,
	"image-rendering":   true,
	"color":             true,
	"letter-spacing":    true,
	"dominant-baseline": true,
}

// Inherited reports whether a presentation property cascades to
// descendants.
func Inherited(name string) bool { return inherited[name] }

// Property returns the specified value of a presentation property on n
// itself. A declaration in the style attribute wins over the attribute of
// the same name.
func (n *Node) Property(name string) (string, bool) {
	if v, ok := n.declarations()[name]; ok {
		return v, true
	}
	if v, ok := n.Attr(name); ok {
		v = strings.TrimSpace(v)
		return v, v != ""
	}
	return "", false
}

// Computed returns the value of a property after inheritance. Values of
// "inherit" defer to the parent.
func (n *Node) Computed(name string) (string, bool) {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Kind != ElementNode {
			continue
		}
		v, ok := cur.Property(name)
		if ok && v != "inherit" {
			return v, true
		}
		if !ok && !inherited[name] {
			return "", false
		}
	}
	return "", false
}

func (n *Node) declarations() map[string]string {
	return n.style
}

// ParseStyle splits an inline style attribute into property declarations.
// Later declarations override earlier ones; !important is dropped.
func ParseStyle(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
		if name == "" || value == "" {
			continue
		}
		out[name] = value
	}
	return out
}
