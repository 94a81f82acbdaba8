package geom

import (
	"math"
	"strconv"
	"strings"

	"github.com/srwiley/rasterx"

	"github.com/matzehuels/svgpng/pkg/svgdoc"
)

// TextMetrics describes a run of text set in a concrete face.
type TextMetrics struct {
	Advance float64
	Ascent  float64
	Descent float64
}

// TextMeasurer measures text runs. It is backed by the font catalog; when no
// face matches the run's font-family, ok is false and the run has no
// geometry.
type TextMeasurer interface {
	MeasureText(n *svgdoc.Node, text string, size float64) (m TextMetrics, ok bool)
}

// maxUseDepth bounds <use> indirection so reference cycles terminate.
const maxUseDepth = 16

// nonRendering elements never contribute geometry.
var nonRendering = map[string]bool{
	"defs":           true,
	"clipPath":       true,
	"mask":           true,
	"marker":         true,
	"pattern":        true,
	"symbol":         true,
	"linearGradient": true,
	"radialGradient": true,
	"filter":         true,
	"style":          true,
	"script":         true,
	"title":          true,
	"desc":           true,
	"metadata":       true,
}

// NonRendering reports whether elements named name are never drawn
// directly.
func NonRendering(name string) bool { return nonRendering[name] }

// Measurer computes stroke-inclusive bounding boxes of document nodes.
type Measurer struct {
	Doc        *svgdoc.Document
	DPI        float64
	Viewport   [2]float64 // reference size for percentages
	Conditions svgdoc.Conditions
	Text       TextMeasurer
}

// Bounds returns the bounding box of n and its descendants in the space
// described by ctm. The node's own transform attribute is applied on top of
// ctm. ok is false when the node has no computable geometry.
func (ms *Measurer) Bounds(n *svgdoc.Node, ctm rasterx.Matrix2D) (Rect, bool) {
	r := ms.bounds(n, ctm, 0)
	return r, !r.IsEmpty()
}

func (ms *Measurer) bounds(n *svgdoc.Node, ctm rasterx.Matrix2D, depth int) Rect {
	if n.Kind != svgdoc.ElementNode || nonRendering[n.Name] {
		return Rect{}
	}
	if v, _ := n.Property("display"); v == "none" {
		return Rect{}
	}
	if !ms.Conditions.Passes(n) {
		return Rect{}
	}
	if t, ok := n.Attr("transform"); ok {
		m, err := ParseTransform(t)
		if err != nil {
			return Rect{}
		}
		ctm = Mul(ctm, m)
	}

	switch n.Name {
	case "g", "a", "switch":
		var r Rect
		for _, c := range ms.Conditions.Children(n) {
			r = r.Union(ms.bounds(c, ctm, depth))
		}
		return r
	case "svg":
		return ms.nested(n, ctm, depth)
	case "use":
		return ms.use(n, ctm, depth)
	case "text":
		return ms.stroke(n, ctm, ms.text(n, ctm))
	case "image":
		w := ms.x(n, "width", 0)
		h := ms.y(n, "height", 0)
		if w <= 0 || h <= 0 {
			return Rect{}
		}
		return NewRect(ms.x(n, "x", 0), ms.y(n, "y", 0), w, h).Transform(ctm)
	}

	if n.Name == "circle" || n.Name == "ellipse" {
		return ms.stroke(n, ctm, ms.ellipse(n, ctm))
	}
	path, ok := ms.ShapePath(n)
	if !ok {
		return Rect{}
	}
	return ms.stroke(n, ctm, path.Bounds(ctm))
}

// ellipse computes the exact box of an affinely transformed ellipse.
func (ms *Measurer) ellipse(n *svgdoc.Node, ctm rasterx.Matrix2D) Rect {
	cx, cy := ms.x(n, "cx", 0), ms.y(n, "cy", 0)
	var rx, ry float64
	if n.Name == "circle" {
		rx = n.Number("r", ms.DPI, ms.diagonal(), 0)
		ry = rx
	} else {
		rx, ry = ms.x(n, "rx", 0), ms.y(n, "ry", 0)
	}
	if rx <= 0 || ry <= 0 {
		return Rect{}
	}
	x, y := Apply(ctm, cx, cy)
	hx := math.Hypot(ctm.A*rx, ctm.C*ry)
	hy := math.Hypot(ctm.B*rx, ctm.D*ry)
	return Rect{}.AddPoint(x-hx, y-hy).AddPoint(x+hx, y+hy)
}

// nested handles an inner <svg>: a new viewport at (x, y) with an optional
// viewBox mapping.
func (ms *Measurer) nested(n *svgdoc.Node, ctm rasterx.Matrix2D, depth int) Rect {
	if n != ms.Doc.Root {
		ctm = Mul(ctm, Translate(ms.x(n, "x", 0), ms.y(n, "y", 0)))
		if vbAttr, ok := n.Attr("viewBox"); ok {
			if vb, ok := svgdoc.ParseViewBox(vbAttr); ok {
				w := ms.x(n, "width", ms.Viewport[0])
				h := ms.y(n, "height", ms.Viewport[1])
				ar, _ := n.Attr("preserveAspectRatio")
				ctm = Mul(ctm, ViewBoxTransform(vb, svgdoc.ParseAspectRatio(ar), w, h))
			}
		}
	}
	var r Rect
	for _, c := range ms.Conditions.Children(n) {
		r = r.Union(ms.bounds(c, ctm, depth))
	}
	return r
}

func (ms *Measurer) use(n *svgdoc.Node, ctm rasterx.Matrix2D, depth int) Rect {
	if depth >= maxUseDepth {
		return Rect{}
	}
	href, _ := n.Attr("href")
	ref, ok := ms.Doc.Lookup(strings.TrimPrefix(strings.TrimSpace(href), "#"))
	if !ok || ref == n {
		return Rect{}
	}
	ctm = Mul(ctm, Translate(ms.x(n, "x", 0), ms.y(n, "y", 0)))
	if ref.Name == "symbol" {
		var r Rect
		for _, c := range ms.Conditions.Children(ref) {
			r = r.Union(ms.bounds(c, ctm, depth+1))
		}
		return r
	}
	return ms.bounds(ref, ctm, depth+1)
}

// text lays out the character data of a <text> element as a sequence of
// runs. A tspan with its own x or y starts a new run at that position.
func (ms *Measurer) text(n *svgdoc.Node, ctm rasterx.Matrix2D) Rect {
	if ms.Text == nil {
		return Rect{}
	}
	type run struct {
		x, y  float64
		width float64
		asc   float64
		desc  float64
	}
	var (
		runs    []run
		penX    = firstCoord(n, "x", ms.DPI, n.FontSize())
		penY    = firstCoord(n, "y", ms.DPI, n.FontSize())
		matched bool
	)

	var visit func(el *svgdoc.Node)
	visit = func(el *svgdoc.Node) {
		for _, c := range el.Children {
			if c.Kind == svgdoc.TextNode {
				s := svgdoc.CollapseWhitespace(c.Text)
				if strings.TrimSpace(s) == "" {
					continue
				}
				size := el.FontSize()
				m, ok := ms.Text.MeasureText(el, s, size)
				if !ok {
					continue
				}
				matched = true
				runs = append(runs, run{x: penX, y: penY, width: m.Advance, asc: m.Ascent, desc: m.Descent})
				penX += m.Advance
				continue
			}
			if !svgdoc.IsTextElement(c) || !ms.Conditions.Passes(c) {
				continue
			}
			if _, ok := c.Attr("x"); ok {
				penX = firstCoord(c, "x", ms.DPI, c.FontSize())
			}
			if _, ok := c.Attr("y"); ok {
				penY = firstCoord(c, "y", ms.DPI, c.FontSize())
			}
			if dx, ok := c.Attr("dx"); ok {
				penX += firstNumber(dx)
			}
			if dy, ok := c.Attr("dy"); ok {
				penY += firstNumber(dy)
			}
			visit(c)
		}
	}
	visit(n)
	if !matched {
		return Rect{}
	}

	var total float64
	for _, r := range runs {
		total += r.width
	}
	shift := 0.0
	switch anchor, _ := n.Computed("text-anchor"); anchor {
	case "middle":
		shift = -total / 2
	case "end":
		shift = -total
	}

	var out Rect
	for _, r := range runs {
		out = out.Union(NewRect(r.x+shift, r.y-r.asc, r.width, r.asc+r.desc).Transform(ctm))
	}
	return out
}

// stroke inflates r by half the computed stroke width when the node is
// stroked.
func (ms *Measurer) stroke(n *svgdoc.Node, ctm rasterx.Matrix2D, r Rect) Rect {
	if r.IsEmpty() {
		return r
	}
	if s, ok := n.Computed("stroke"); !ok || s == "none" {
		return r
	}
	width := 1.0
	if v, ok := n.Computed("stroke-width"); ok {
		l, err := svgdoc.ParseLength(v)
		if err != nil {
			return r
		}
		width = l.Pixels(ms.DPI, n.FontSize(), ms.diagonal())
	}
	if width <= 0 {
		return r
	}
	return r.Inflate(width / 2 * LineScale(ctm))
}

func (ms *Measurer) x(n *svgdoc.Node, attr string, def float64) float64 {
	return n.Number(attr, ms.DPI, ms.Viewport[0], def)
}

func (ms *Measurer) y(n *svgdoc.Node, attr string, def float64) float64 {
	return n.Number(attr, ms.DPI, ms.Viewport[1], def)
}

// diagonal is the percentage reference for lengths that are neither
// horizontal nor vertical.
func (ms *Measurer) diagonal() float64 {
	w, h := ms.Viewport[0], ms.Viewport[1]
	return math.Sqrt((w*w + h*h) / 2)
}

// ViewBoxTransform maps vb onto a w x h viewport.
func ViewBoxTransform(vb svgdoc.ViewBox, ar svgdoc.AspectRatio, w, h float64) rasterx.Matrix2D {
	sx, sy, tx, ty := ar.Fit(vb, w, h)
	return rasterx.Matrix2D{A: sx, D: sy, E: tx, F: ty}
}

// firstCoord resolves the first value of a coordinate list attribute.
func firstCoord(n *svgdoc.Node, attr string, dpi, fontSize float64) float64 {
	v, ok := n.Attr(attr)
	if !ok {
		return 0
	}
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) == 0 {
		return 0
	}
	l, err := svgdoc.ParseLength(fields[0])
	if err != nil {
		return 0
	}
	return l.Pixels(dpi, fontSize, 0)
}

func firstNumber(s string) float64 {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) == 0 {
		return 0
	}
	v, _ := strconv.ParseFloat(fields[0], 64)
	return v
}
