package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/fit"
	"github.com/matzehuels/svgpng/pkg/fontdb"
	"github.com/matzehuels/svgpng/pkg/geom"
	"github.com/matzehuels/svgpng/pkg/options"
	"github.com/matzehuels/svgpng/pkg/svgdoc"
)

// maxUseDepth bounds <use> indirection.
const maxUseDepth = 16

// Option configures Build.
type Option func(*config)

type config struct {
	logger  *log.Logger
	catalog *fontdb.Catalog
}

// WithLogger sets the logger for skipped content.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCatalog provides the font catalog for text. Without one, text is not
// drawn and has no geometry.
func WithCatalog(cat *fontdb.Catalog) Option { return func(c *config) { c.catalog = cat } }

// Tree is the renderable form of a document.
type Tree struct {
	width, height float64
	root          rasterx.Matrix2D

	icon   *oksvg.SvgIcon
	images []*imageItem
	texts  []*textRun

	plan    *options.Plan
	catalog *fontdb.Catalog
	ms      *geom.Measurer
	logger  *log.Logger
}

// Build resolves doc against plan. Only unrecoverable problems with the
// shape layer fail the build; unresolvable images and unmatched text are
// skipped with a debug log.
func Build(doc *svgdoc.Document, plan *options.Plan, opts ...Option) (*Tree, error) {
	cfg := config{logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, opt := range opts {
		opt(&cfg)
	}

	w, h := doc.Size(plan.DPI, plan.DefaultSize[0], plan.DefaultSize[1])
	t := &Tree{
		width:   w,
		height:  h,
		root:    rootTransform(doc, w, h),
		plan:    plan,
		catalog: cfg.catalog,
		logger:  cfg.logger,
	}
	t.ms = &geom.Measurer{
		Doc:        doc,
		DPI:        plan.DPI,
		Viewport:   viewport(doc, w, h),
		Conditions: svgdoc.Conditions{Languages: plan.Languages},
	}
	if cfg.catalog != nil {
		t.ms.Text = &catalogMeasurer{catalog: cfg.catalog, family: plan.FontFamily}
	}

	wk := &walker{tree: t, doc: doc, gradients: make(map[string]bool)}
	fmt.Fprintf(&wk.buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s">`, formatFloat(w), formatFloat(h))
	wk.writeGradients()
	wk.visit(doc.Root, rasterx.Identity, nil, 1, 0)
	wk.buf.WriteString("</svg>")

	icon, err := oksvg.ReadIconStream(bytes.NewReader(wk.buf.Bytes()), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormatParse, err, "failed to build shape layer")
	}
	t.icon = icon
	t.logger.Debug("render tree built", "size", fmt.Sprintf("%gx%g", w, h),
		"paths", len(icon.SVGPaths), "images", len(t.images), "texts", len(t.texts))
	return t, nil
}

// Size is the intrinsic document size rounded up to whole pixels.
func (t *Tree) Size() fit.Size { return fit.FromFloat(t.width, t.height) }

// RootTransform maps root user space onto the intrinsic viewport.
func (t *Tree) RootTransform() rasterx.Matrix2D { return t.root }

// Measurer returns a bounding box calculator bound to the tree's document,
// plan and font catalog.
func (t *Tree) Measurer() *geom.Measurer { return t.ms }

func rootTransform(doc *svgdoc.Document, w, h float64) rasterx.Matrix2D {
	vb, ok := doc.ViewBox()
	if !ok {
		return rasterx.Identity
	}
	ar, _ := doc.Root.Attr("preserveAspectRatio")
	return geom.ViewBoxTransform(vb, svgdoc.ParseAspectRatio(ar), w, h)
}

// viewport is the reference size for percentage lengths.
func viewport(doc *svgdoc.Document, w, h float64) [2]float64 {
	if vb, ok := doc.ViewBox(); ok {
		return [2]float64{vb.W, vb.H}
	}
	return [2]float64{w, h}
}

// walker flattens the document into the three layers. Every shape is
// written with its full user-space transform and computed paint, so the
// shape layer has no grouping left for the rasterizer to resolve.
type walker struct {
	tree      *Tree
	doc       *svgdoc.Document
	buf       bytes.Buffer
	gradients map[string]bool
}

func (wk *walker) conditions() svgdoc.Conditions { return wk.tree.ms.Conditions }

func (wk *walker) visit(n *svgdoc.Node, ctm rasterx.Matrix2D, sc scope, opacity float64, depth int) {
	if n.Kind != svgdoc.ElementNode || geom.NonRendering(n.Name) {
		return
	}
	if v, _ := n.Property("display"); v == "none" {
		return
	}
	if !wk.conditions().Passes(n) {
		return
	}
	if tr, ok := n.Attr("transform"); ok {
		m, err := geom.ParseTransform(tr)
		if err != nil {
			wk.tree.logger.Debug("skipping element with invalid transform", "element", n.Name, "id", n.ID(), "err", err)
			return
		}
		ctm = geom.Mul(ctm, m)
	}
	sc = sc.push(n)
	if v, ok := n.Property("opacity"); ok {
		opacity *= parseOpacity(v, 1)
	}

	ms := wk.tree.ms
	switch n.Name {
	case "svg":
		if n != wk.doc.Root {
			ctm = geom.Mul(ctm, geom.Translate(n.Number("x", ms.DPI, ms.Viewport[0], 0), n.Number("y", ms.DPI, ms.Viewport[1], 0)))
			if vbAttr, ok := n.Attr("viewBox"); ok {
				if vb, ok := svgdoc.ParseViewBox(vbAttr); ok {
					w := n.Number("width", ms.DPI, ms.Viewport[0], ms.Viewport[0])
					h := n.Number("height", ms.DPI, ms.Viewport[1], ms.Viewport[1])
					ar, _ := n.Attr("preserveAspectRatio")
					ctm = geom.Mul(ctm, geom.ViewBoxTransform(vb, svgdoc.ParseAspectRatio(ar), w, h))
				}
			}
		}
		wk.children(n, ctm, sc, opacity, depth)
	case "g", "a", "switch":
		wk.children(n, ctm, sc, opacity, depth)
	case "use":
		wk.use(n, ctm, sc, opacity, depth)
	case "text":
		wk.text(n, ctm, sc, opacity)
	case "image":
		wk.image(n, ctm, sc, opacity)
	default:
		wk.shape(n, ctm, sc, opacity)
	}
}

func (wk *walker) children(n *svgdoc.Node, ctm rasterx.Matrix2D, sc scope, opacity float64, depth int) {
	for _, c := range wk.conditions().Children(n) {
		wk.visit(c, ctm, sc, opacity, depth)
	}
}

func (wk *walker) use(n *svgdoc.Node, ctm rasterx.Matrix2D, sc scope, opacity float64, depth int) {
	if depth >= maxUseDepth {
		wk.tree.logger.Debug("use nesting too deep", "id", n.ID())
		return
	}
	href, _ := n.Attr("href")
	ref, ok := wk.doc.Lookup(strings.TrimPrefix(strings.TrimSpace(href), "#"))
	if !ok || ref == n {
		return
	}
	ms := wk.tree.ms
	ctm = geom.Mul(ctm, geom.Translate(n.Number("x", ms.DPI, ms.Viewport[0], 0), n.Number("y", ms.DPI, ms.Viewport[1], 0)))
	if ref.Name == "symbol" {
		sc = sc.push(ref)
		if vbAttr, ok := ref.Attr("viewBox"); ok {
			if vb, ok := svgdoc.ParseViewBox(vbAttr); ok {
				w := n.Number("width", ms.DPI, ms.Viewport[0], ms.Viewport[0])
				h := n.Number("height", ms.DPI, ms.Viewport[1], ms.Viewport[1])
				ar, _ := ref.Attr("preserveAspectRatio")
				ctm = geom.Mul(ctm, geom.ViewBoxTransform(vb, svgdoc.ParseAspectRatio(ar), w, h))
			}
		}
		wk.children(ref, ctm, sc, opacity, depth+1)
		return
	}
	wk.visit(ref, ctm, sc, opacity, depth+1)
}

// shape writes one basic shape as a path element.
func (wk *walker) shape(n *svgdoc.Node, ctm rasterx.Matrix2D, sc scope, opacity float64) {
	if sc.hidden() {
		return
	}
	ms := wk.tree.ms
	path, ok := ms.ShapePath(n)
	if !ok {
		return
	}

	fill, fillAlpha := sc.paint("fill", "black", wk.gradients).attr()
	stroke, strokeAlpha := sc.paint("stroke", "none", wk.gradients).attr()
	if n.Name == "line" || n.Name == "polyline" {
		fill = "none"
	}
	if fill == "none" && stroke == "none" {
		return
	}

	b := &wk.buf
	b.WriteString(`<path d="`)
	b.WriteString(path.String())
	fmt.Fprintf(b, `" transform="matrix(%s %s %s %s %s %s)"`,
		formatFloat(ctm.A), formatFloat(ctm.B), formatFloat(ctm.C),
		formatFloat(ctm.D), formatFloat(ctm.E), formatFloat(ctm.F))

	writeAttr(b, "fill", fill)
	if fill != "none" {
		writeAttr(b, "fill-opacity", formatFloat(fillAlpha*opacity*parseOpacity(sc.computedOr("fill-opacity", "1"), 1)))
		if rule := sc.computedOr("fill-rule", "nonzero"); rule == "evenodd" {
			writeAttr(b, "fill-rule", rule)
		}
	}

	writeAttr(b, "stroke", stroke)
	if stroke != "none" {
		writeAttr(b, "stroke-opacity", formatFloat(strokeAlpha*opacity*parseOpacity(sc.computedOr("stroke-opacity", "1"), 1)))
		writeAttr(b, "stroke-width", formatFloat(wk.length(sc, "stroke-width", 1)))
		for _, prop := range []string{"stroke-linecap", "stroke-linejoin", "stroke-miterlimit"} {
			if v, ok := sc.computed(prop); ok {
				writeAttr(b, prop, v)
			}
		}
		if dashes := wk.dashArray(sc); dashes != "" {
			writeAttr(b, "stroke-dasharray", dashes)
			writeAttr(b, "stroke-dashoffset", formatFloat(wk.length(sc, "stroke-dashoffset", 0)))
		}
	}
	b.WriteString("/>")
}

// length resolves a length-valued property in user units.
func (wk *walker) length(sc scope, name string, def float64) float64 {
	v, ok := sc.computed(name)
	if !ok {
		return def
	}
	l, err := svgdoc.ParseLength(v)
	if err != nil {
		return def
	}
	ms := wk.tree.ms
	vw, vh := ms.Viewport[0], ms.Viewport[1]
	return l.Pixels(ms.DPI, sc.top().FontSize(), math.Sqrt((vw*vw+vh*vh)/2))
}

// dashArray resolves stroke-dasharray. An odd list is repeated; a list
// that sums to zero disables dashing.
func (wk *walker) dashArray(sc scope) string {
	v, ok := sc.computed("stroke-dasharray")
	if !ok || v == "none" {
		return ""
	}
	ms := wk.tree.ms
	var (
		parts []string
		sum   float64
	)
	for _, f := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
		l, err := svgdoc.ParseLength(f)
		if err != nil || l.Value < 0 {
			return ""
		}
		px := l.Pixels(ms.DPI, sc.top().FontSize(), ms.Viewport[0])
		sum += px
		parts = append(parts, formatFloat(px))
	}
	if sum <= 0 {
		return ""
	}
	if len(parts)%2 == 1 {
		parts = append(parts, parts...)
	}
	return strings.Join(parts, ",")
}

// writeGradients copies every gradient into the shape layer, resolving
// href inheritance of stops and attributes.
func (wk *walker) writeGradients() {
	wk.doc.Walk(func(n *svgdoc.Node) bool {
		if n.Kind != svgdoc.ElementNode {
			return true
		}
		if n.Name != "linearGradient" && n.Name != "radialGradient" {
			return true
		}
		if id := n.ID(); id != "" && !wk.gradients[id] {
			wk.gradients[id] = true
			wk.writeGradient(n)
		}
		return false
	})
}

var gradientAttrs = []string{
	"x1", "y1", "x2", "y2", "cx", "cy", "r", "fx", "fy",
	"gradientUnits", "gradientTransform", "spreadMethod",
}

func (wk *walker) writeGradient(n *svgdoc.Node) {
	chain := []*svgdoc.Node{n}
	for cur := n; len(chain) < maxUseDepth; {
		href, ok := cur.Attr("href")
		if !ok {
			break
		}
		ref, ok := wk.doc.Lookup(strings.TrimPrefix(strings.TrimSpace(href), "#"))
		if !ok || (ref.Name != "linearGradient" && ref.Name != "radialGradient") {
			break
		}
		chain = append(chain, ref)
		cur = ref
	}

	b := &wk.buf
	b.WriteString("<" + n.Name)
	writeAttr(b, "id", n.ID())
	for _, name := range gradientAttrs {
		for _, g := range chain {
			if v, ok := g.Attr(name); ok {
				writeAttr(b, name, v)
				break
			}
		}
	}
	b.WriteString(">")

	for _, g := range chain {
		stops := 0
		for _, s := range g.Elements() {
			if s.Name != "stop" {
				continue
			}
			stops++
			p := scope{s}.colorPaint(scope{s}.computedOr("stop-color", "black"), "black")
			b.WriteString("<stop")
			writeAttr(b, "offset", strings.TrimSpace(attrOr(s, "offset", "0")))
			fmt.Fprintf(b, ` stop-color="#%02x%02x%02x"`, p.color.R, p.color.G, p.color.B)
			alpha := float64(p.color.A) / 255 * parseOpacity(scope{s}.computedOr("stop-opacity", "1"), 1)
			writeAttr(b, "stop-opacity", formatFloat(alpha))
			b.WriteString("/>")
		}
		if stops > 0 {
			break
		}
	}
	b.WriteString("</" + n.Name + ">")
}

func attrOr(n *svgdoc.Node, name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

func writeAttr(b *bytes.Buffer, name, value string) {
	b.WriteString(" " + name + `="`)
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString(`"`)
}
