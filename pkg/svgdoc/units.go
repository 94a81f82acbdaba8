package svgdoc

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is a CSS length unit.
type Unit string

const (
	UnitNone    Unit = ""
	UnitPx      Unit = "px"
	UnitPt      Unit = "pt"
	UnitPc      Unit = "pc"
	UnitMm      Unit = "mm"
	UnitCm      Unit = "cm"
	UnitIn      Unit = "in"
	UnitEm      Unit = "em"
	UnitEx      Unit = "ex"
	UnitPercent Unit = "%"
)

// Length is a number with a unit.
type Length struct {
	Value float64
	Unit  Unit
}

var units = []Unit{UnitPx, UnitPt, UnitPc, UnitMm, UnitCm, UnitIn, UnitEm, UnitEx, UnitPercent}

// ParseLength parses strings such as "12", "1.5in" or "50%".
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Length{}, fmt.Errorf("empty length")
	}
	unit := UnitNone
	num := s
	for _, u := range units {
		if strings.HasSuffix(strings.ToLower(s), string(u)) {
			unit = u
			num = strings.TrimSpace(s[:len(s)-len(u)])
			break
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("invalid length %q", s)
	}
	return Length{Value: v, Unit: unit}, nil
}

// Pixels converts l to user units. fontSize resolves em and ex; reference
// resolves percentages.
func (l Length) Pixels(dpi, fontSize, reference float64) float64 {
	switch l.Unit {
	case UnitPt:
		return l.Value * dpi / 72
	case UnitPc:
		return l.Value * dpi / 6
	case UnitMm:
		return l.Value * dpi / 25.4
	case UnitCm:
		return l.Value * dpi / 2.54
	case UnitIn:
		return l.Value * dpi
	case UnitEm:
		return l.Value * fontSize
	case UnitEx:
		return l.Value * fontSize / 2
	case UnitPercent:
		return l.Value * reference / 100
	default:
		return l.Value
	}
}

// Number parses an attribute as a length in user units, returning def when
// the attribute is absent or malformed.
func (n *Node) Number(name string, dpi, reference, def float64) float64 {
	v, ok := n.Attr(name)
	if !ok {
		return def
	}
	l, err := ParseLength(v)
	if err != nil {
		return def
	}
	return l.Pixels(dpi, n.FontSize(), reference)
}

// FontSize returns the computed font size of n in user units. Relative
// sizes resolve against the parent.
func (n *Node) FontSize() float64 {
	const fallback = 12
	parent := func() float64 {
		if n.Parent == nil {
			return fallback
		}
		return n.Parent.FontSize()
	}
	v, ok := n.Property("font-size")
	if !ok || v == "inherit" {
		return parent()
	}
	l, err := ParseLength(v)
	if err != nil || l.Value <= 0 {
		return parent()
	}
	switch l.Unit {
	case UnitEm, UnitEx, UnitPercent:
		p := parent()
		return l.Pixels(96, p, p)
	}
	return l.Pixels(96, fallback, fallback)
}

// ViewBox is the user-space rectangle mapped onto the viewport.
type ViewBox struct {
	X, Y, W, H float64
}

// ParseViewBox parses "min-x min-y width height". Width and height must be
// positive.
func ParseViewBox(s string) (ViewBox, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return ViewBox{}, false
	}
	var v [4]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return ViewBox{}, false
		}
		v[i] = x
	}
	if v[2] <= 0 || v[3] <= 0 {
		return ViewBox{}, false
	}
	return ViewBox{X: v[0], Y: v[1], W: v[2], H: v[3]}, true
}

// AspectRatio is a parsed preserveAspectRatio value.
type AspectRatio struct {
	None   bool
	AlignX float64 // 0 min, 0.5 mid, 1 max
	AlignY float64
	Slice  bool
}

// DefaultAspectRatio is xMidYMid meet.
var DefaultAspectRatio = AspectRatio{AlignX: 0.5, AlignY: 0.5}

// ParseAspectRatio parses a preserveAspectRatio attribute, falling back to
// the default for unknown input.
func ParseAspectRatio(s string) AspectRatio {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return DefaultAspectRatio
	}
	if fields[0] == "defer" {
		fields = fields[1:]
		if len(fields) == 0 {
			return DefaultAspectRatio
		}
	}
	ar := DefaultAspectRatio
	align := fields[0]
	if align == "none" {
		ar.None = true
	} else if len(align) == 8 {
		x, okX := alignValue(align[1:4])
		y, okY := alignValue(align[5:8])
		if !okX || !okY || align[0] != 'x' || align[4] != 'Y' {
			return DefaultAspectRatio
		}
		ar.AlignX, ar.AlignY = x, y
	} else {
		return DefaultAspectRatio
	}
	if len(fields) > 1 && fields[1] == "slice" {
		ar.Slice = true
	}
	return ar
}

func alignValue(s string) (float64, bool) {
	switch s {
	case "Min":
		return 0, true
	case "Mid":
		return 0.5, true
	case "Max":
		return 1, true
	}
	return 0, false
}

// Fit returns the scale and translation mapping vb onto a w x h viewport.
func (ar AspectRatio) Fit(vb ViewBox, w, h float64) (sx, sy, tx, ty float64) {
	sx, sy = w/vb.W, h/vb.H
	if !ar.None {
		s := min(sx, sy)
		if ar.Slice {
			s = max(sx, sy)
		}
		sx, sy = s, s
	}
	tx = -vb.X * sx
	ty = -vb.Y * sy
	if !ar.None {
		tx += (w - vb.W*sx) * ar.AlignX
		ty += (h - vb.H*sy) * ar.AlignY
	}
	return sx, sy, tx, ty
}

// Size returns the intrinsic size of the document in pixels. Width and
// height attributes win; a missing one is derived from the viewBox aspect
// ratio, and without a viewBox the fallback is used.
func (d *Document) Size(dpi float64, fallbackW, fallbackH float64) (w, h float64) {
	root := d.Root
	vb, hasVB := d.ViewBox()

	w, okW := rootDimension(root, "width", dpi, fallbackW)
	h, okH := rootDimension(root, "height", dpi, fallbackH)

	switch {
	case okW && okH:
	case hasVB && okW:
		h = w * vb.H / vb.W
	case hasVB && okH:
		w = h * vb.W / vb.H
	case hasVB:
		w, h = vb.W, vb.H
	default:
		if !okW {
			w = fallbackW
		}
		if !okH {
			h = fallbackH
		}
	}
	return w, h
}

// ViewBox returns the root viewBox, if any.
func (d *Document) ViewBox() (ViewBox, bool) {
	s, ok := d.Root.Attr("viewBox")
	if !ok {
		return ViewBox{}, false
	}
	return ParseViewBox(s)
}

// rootDimension resolves width or height on the root. Percentages are
// relative to the fallback size.
func rootDimension(root *Node, name string, dpi, reference float64) (float64, bool) {
	v, ok := root.Attr(name)
	if !ok {
		return 0, false
	}
	l, err := ParseLength(v)
	if err != nil {
		return 0, false
	}
	if l.Unit == UnitPercent {
		if _, hasVB := root.Attr("viewBox"); hasVB {
			return 0, false
		}
	}
	px := l.Pixels(dpi, root.FontSize(), reference)
	if px < 0 {
		return 0, false
	}
	return px, true
}
