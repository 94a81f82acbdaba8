package geom

import (
	"math"
	"strings"

	"github.com/matzehuels/svgpng/pkg/svgdoc"
)

// ShapePath converts a basic shape element (rect, circle, ellipse, line,
// polyline, polygon, path) to a path in its user space. ok is false for
// other elements and for shapes that draw nothing.
func (ms *Measurer) ShapePath(n *svgdoc.Node) (Path, bool) {
	switch n.Name {
	case "rect":
		x, y := ms.x(n, "x", 0), ms.y(n, "y", 0)
		w, h := ms.x(n, "width", 0), ms.y(n, "height", 0)
		if w <= 0 || h <= 0 {
			return Path{}, false
		}
		rx, okx := ms.corner(n, "rx", ms.Viewport[0])
		ry, oky := ms.corner(n, "ry", ms.Viewport[1])
		switch {
		case okx && !oky:
			ry = rx
		case oky && !okx:
			rx = ry
		}
		rx, ry = math.Min(rx, w/2), math.Min(ry, h/2)
		if rx <= 0 || ry <= 0 {
			return polygon([][2]float64{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}, true), true
		}
		return roundedRect(x, y, w, h, rx, ry), true
	case "circle":
		r := n.Number("r", ms.DPI, ms.diagonal(), 0)
		if r <= 0 {
			return Path{}, false
		}
		return ellipsePath(ms.x(n, "cx", 0), ms.y(n, "cy", 0), r, r), true
	case "ellipse":
		rx, ry := ms.x(n, "rx", 0), ms.y(n, "ry", 0)
		if rx <= 0 || ry <= 0 {
			return Path{}, false
		}
		return ellipsePath(ms.x(n, "cx", 0), ms.y(n, "cy", 0), rx, ry), true
	case "line":
		return polygon([][2]float64{
			{ms.x(n, "x1", 0), ms.y(n, "y1", 0)},
			{ms.x(n, "x2", 0), ms.y(n, "y2", 0)},
		}, false), true
	case "polyline", "polygon":
		v, _ := n.Attr("points")
		p := parsePoints(v)
		if p.IsEmpty() {
			return Path{}, false
		}
		if n.Name == "polygon" {
			p.p.Close()
		}
		return p, true
	case "path":
		d, _ := n.Attr("d")
		p, _ := ParsePath(d)
		if p.IsEmpty() {
			return Path{}, false
		}
		return p, true
	}
	return Path{}, false
}

func (ms *Measurer) corner(n *svgdoc.Node, attr string, ref float64) (float64, bool) {
	v, ok := n.Attr(attr)
	if !ok || strings.TrimSpace(v) == "auto" {
		return 0, false
	}
	l, err := svgdoc.ParseLength(v)
	if err != nil || l.Value < 0 {
		return 0, false
	}
	return l.Pixels(ms.DPI, n.FontSize(), ref), true
}
