package render

import (
	stdcolor "image/color"
	"strconv"
	"strings"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/svgpng/pkg/fontdb"
	"github.com/matzehuels/svgpng/pkg/geom"
	"github.com/matzehuels/svgpng/pkg/options"
	"github.com/matzehuels/svgpng/pkg/svgdoc"
)

// textRun is a stretch of text set in one face at one position.
type textRun struct {
	text string
	x, y float64 // baseline origin in user space
	size float64
	face *fontdb.Face
	fill stdcolor.NRGBA
	ctm  rasterx.Matrix2D
}

// catalogMeasurer resolves the face of a text element against the catalog
// and measures runs with it.
type catalogMeasurer struct {
	catalog *fontdb.Catalog
	family  string // used when no listed family matches
}

var _ geom.TextMeasurer = (*catalogMeasurer)(nil)

// face matches the element's computed font properties.
func (m *catalogMeasurer) face(n *svgdoc.Node) (*fontdb.Face, bool) {
	var families []string
	if v, ok := n.Computed("font-family"); ok {
		families = strings.Split(v, ",")
	}
	families = append(families, m.family)

	weight := fontWeight(n)
	style, _ := n.Computed("font-style")
	return m.catalog.Match(families, weight, style == "italic" || style == "oblique")
}

func (m *catalogMeasurer) MeasureText(n *svgdoc.Node, text string, size float64) (geom.TextMetrics, bool) {
	f, ok := m.face(n)
	if !ok {
		return geom.TextMetrics{}, false
	}
	face, err := m.open(f, size, font.HintingNone)
	if err != nil {
		return geom.TextMetrics{}, false
	}
	defer face.Close()

	met := face.Metrics()
	return geom.TextMetrics{
		Advance: fromFixed(font.MeasureString(face, text)),
		Ascent:  fromFixed(met.Ascent),
		Descent: fromFixed(met.Descent),
	}, true
}

// open returns a face of f at size user units.
func (m *catalogMeasurer) open(f *fontdb.Face, size float64, hinting font.Hinting) (font.Face, error) {
	fnt, err := m.catalog.Open(f)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: hinting})
}

// fontWeight maps font-weight to a numeric weight. bolder and lighter step
// relative to the parent.
func fontWeight(n *svgdoc.Node) uint16 {
	v, ok := n.Property("font-weight")
	if !ok || v == "inherit" {
		if n.Parent != nil {
			return fontWeight(n.Parent)
		}
		return 400
	}
	switch v {
	case "normal":
		return 400
	case "bold":
		return 700
	case "bolder", "lighter":
		parent := uint16(400)
		if n.Parent != nil {
			parent = fontWeight(n.Parent)
		}
		if v == "bolder" {
			return min(parent+300, 900)
		}
		if parent <= 400 {
			return 100
		}
		return parent - 300
	}
	w, err := strconv.Atoi(v)
	if err != nil || w < 1 || w > 1000 {
		return 400
	}
	return uint16(w)
}

// text lays out a <text> element into runs. A tspan with its own x or y
// starts a new chunk at that position; text-anchor shifts the whole
// element.
func (wk *walker) text(n *svgdoc.Node, ctm rasterx.Matrix2D, sc scope, opacity float64) {
	if wk.tree.catalog == nil {
		return
	}
	cm := wk.tree.ms.Text.(*catalogMeasurer)
	dpi := wk.tree.ms.DPI

	var (
		runs  []*textRun
		penX  = firstLength(n, "x", dpi)
		penY  = firstLength(n, "y", dpi)
		total float64
	)

	var visit func(el *svgdoc.Node, sc scope)
	visit = func(el *svgdoc.Node, sc scope) {
		for _, c := range el.Children {
			if c.Kind == svgdoc.TextNode {
				s := svgdoc.CollapseWhitespace(c.Text)
				if strings.TrimSpace(s) == "" {
					continue
				}
				size := el.FontSize()
				f, ok := cm.face(el)
				if !ok {
					wk.tree.logger.Debug("no font for text run", "text", s)
					continue
				}
				m, _ := cm.MeasureText(el, s, size)
				if !sc.hidden() {
					p := sc.paint("fill", "black", nil)
					if !p.none {
						fill := p.color
						fill.A = uint8(float64(fill.A)*opacity*parseOpacity(sc.computedOr("fill-opacity", "1"), 1) + 0.5)
						runs = append(runs, &textRun{text: s, x: penX, y: penY, size: size, face: f, fill: fill, ctm: ctm})
					}
				}
				penX += m.Advance
				total += m.Advance
				continue
			}
			if !svgdoc.IsTextElement(c) || !wk.conditions().Passes(c) {
				continue
			}
			if v, _ := c.Property("display"); v == "none" {
				continue
			}
			if _, ok := c.Attr("x"); ok {
				penX = firstLength(c, "x", dpi)
			}
			if _, ok := c.Attr("y"); ok {
				penY = firstLength(c, "y", dpi)
			}
			if dx, ok := c.Attr("dx"); ok {
				penX += firstNumber(dx)
			}
			if dy, ok := c.Attr("dy"); ok {
				penY += firstNumber(dy)
			}
			visit(c, sc.push(c))
		}
	}
	visit(n, sc)

	shift := 0.0
	switch sc.computedOr("text-anchor", "start") {
	case "middle":
		shift = -total / 2
	case "end":
		shift = -total
	}
	for _, r := range runs {
		r.x += shift
	}
	wk.tree.texts = append(wk.tree.texts, runs...)
}

// hinting maps text-rendering to glyph hinting.
func hinting(mode options.TextRendering) font.Hinting {
	switch mode {
	case options.TextGeometricPrecision:
		return font.HintingNone
	case options.TextOptimizeSpeed:
		return font.HintingFull
	default:
		return font.HintingVertical
	}
}

func firstLength(n *svgdoc.Node, attr string, dpi float64) float64 {
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
	return l.Pixels(dpi, n.FontSize(), 0)
}

func firstNumber(s string) float64 {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) == 0 {
		return 0
	}
	v, _ := strconv.ParseFloat(fields[0], 64)
	return v
}

func fromFixed(v fixed.Int26_6) float64 { return float64(v) / 64 }

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }
