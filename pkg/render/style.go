package render

import (
	"fmt"
	stdcolor "image/color"
	"strconv"
	"strings"

	"github.com/matzehuels/svgpng/pkg/color"
	"github.com/matzehuels/svgpng/pkg/svgdoc"
)

// scope is the chain of elements a node is drawn through, outermost first.
// It differs from the parent chain for content instanced by <use>.
type scope []*svgdoc.Node

func (s scope) push(n *svgdoc.Node) scope {
	return append(s[:len(s):len(s)], n)
}

func (s scope) top() *svgdoc.Node {
	return s[len(s)-1]
}

// computed resolves a property through the scope.
func (s scope) computed(name string) (string, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		v, ok := s[i].Property(name)
		if ok && v != "inherit" {
			return v, true
		}
		if !ok && !svgdoc.Inherited(name) {
			return "", false
		}
	}
	return "", false
}

func (s scope) computedOr(name, def string) string {
	if v, ok := s.computed(name); ok {
		return v
	}
	return def
}

// hidden reports whether visibility suppresses drawing.
func (s scope) hidden() bool {
	v := s.computedOr("visibility", "visible")
	return v == "hidden" || v == "collapse"
}

// paint is a resolved fill or stroke.
type paint struct {
	none     bool
	gradient string // element id when painting with a gradient
	color    stdcolor.NRGBA
}

// paint resolves the fill or stroke property. gradients holds the ids of
// the gradients available to url() references.
func (s scope) paint(name, def string, gradients map[string]bool) paint {
	v := s.computedOr(name, def)
	if strings.HasPrefix(v, "url(") {
		end := strings.IndexByte(v, ')')
		if end < 0 {
			return paint{none: true}
		}
		id := strings.TrimPrefix(strings.Trim(strings.TrimSpace(v[4:end]), `"'`), "#")
		if gradients[id] {
			return paint{gradient: id}
		}
		// Missing reference: use the fallback when one is given.
		v = strings.TrimSpace(v[end+1:])
		if v == "" {
			return paint{none: true}
		}
	}
	return s.colorPaint(v, def)
}

func (s scope) colorPaint(v, def string) paint {
	switch v {
	case "none":
		return paint{none: true}
	case "currentColor":
		v = s.computedOr("color", "black")
	}
	c, err := color.Parse(v)
	if err != nil {
		if def == "none" {
			return paint{none: true}
		}
		c, _ = color.Parse(def)
	}
	return paint{color: c}
}

// attr renders the paint as a presentation attribute value and the opacity
// it contributes.
func (p paint) attr() (string, float64) {
	switch {
	case p.none:
		return "none", 1
	case p.gradient != "":
		return fmt.Sprintf("url(#%s)", p.gradient), 1
	default:
		return fmt.Sprintf("#%02x%02x%02x", p.color.R, p.color.G, p.color.B), float64(p.color.A) / 255
	}
}

// parseOpacity reads an opacity value, clamped to [0, 1]. Percentages are
// accepted.
func parseOpacity(v string, def float64) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	scale := 1.0
	if strings.HasSuffix(v, "%") {
		v, scale = strings.TrimSuffix(v, "%"), 0.01
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	f *= scale
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
