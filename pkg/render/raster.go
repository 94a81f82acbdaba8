package render

import (
	"image"
	stdcolor "image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/fit"
	"github.com/matzehuels/svgpng/pkg/geom"
	"github.com/matzehuels/svgpng/pkg/options"
	"github.com/matzehuels/svgpng/pkg/svgdoc"
)

// NewTarget allocates a transparent canvas of size, pre-filled with bg when
// set.
func NewTarget(size fit.Size, bg *stdcolor.NRGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(size.W), int(size.H)))
	if bg != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(*bg), image.Point{}, draw.Src)
	}
	return img
}

// Draw rasterizes the tree onto dst. m maps the intrinsic viewport onto the
// canvas; it is usually fit.Transform of the sizing mode.
func (t *Tree) Draw(dst *image.RGBA, m rasterx.Matrix2D) {
	full := geom.Mul(m, t.root)
	t.drawShapes(dst, full)
	t.drawImages(dst, full)
	t.drawTexts(dst, full)
}

func (t *Tree) drawShapes(dst *image.RGBA, full rasterx.Matrix2D) {
	if len(t.icon.SVGPaths) == 0 {
		return
	}
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	layer := image.NewRGBA(b)
	scanner := rasterx.NewScannerGV(w, h, layer, layer.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)

	t.icon.Transform = full
	t.icon.Draw(raster, 1.0)

	if !t.plan.ShapeRendering.Antialias() {
		snapAlpha(layer)
	}
	draw.Draw(dst, b, layer, b.Min, draw.Over)
}

// snapAlpha turns coverage into all-or-nothing, which is what crisp edges
// look like after rasterization.
func snapAlpha(img *image.RGBA) {
	p := img.Pix
	for i := 0; i+3 < len(p); i += 4 {
		a := p[i+3]
		switch {
		case a == 0 || a == 255:
		case a < 128:
			p[i], p[i+1], p[i+2], p[i+3] = 0, 0, 0, 0
		default:
			for c := 0; c < 3; c++ {
				p[i+c] = uint8(min(int(p[i+c])*255/int(a), 255))
			}
			p[i+3] = 255
		}
	}
}

func (t *Tree) drawImages(dst *image.RGBA, full rasterx.Matrix2D) {
	var interp xdraw.Interpolator = xdraw.CatmullRom
	if t.plan.ImageRendering == options.ImageOptimizeSpeed {
		interp = xdraw.NearestNeighbor
	}

	for _, it := range t.images {
		sb := it.img.Bounds()
		vb := svgdoc.ViewBox{W: float64(sb.Dx()), H: float64(sb.Dy())}
		sx, sy, tx, ty := it.aspect.Fit(vb, it.w, it.h)
		place := geom.Mul(geom.Translate(it.x+tx, it.y+ty), geom.Scale(sx, sy))
		// Source pixel coordinates start at sb.Min.
		m := geom.Mul(geom.Mul(full, it.ctm), geom.Mul(place, geom.Translate(float64(-sb.Min.X), float64(-sb.Min.Y))))

		var opts *xdraw.Options
		if it.opacity < 1 {
			opts = &xdraw.Options{SrcMask: image.NewUniform(stdcolor.Alpha{A: uint8(it.opacity*255 + 0.5)})}
		}
		aff := f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}
		interp.Transform(dst, aff, it.img, sb, xdraw.Over, opts)
	}
}

func (t *Tree) drawTexts(dst *image.RGBA, full rasterx.Matrix2D) {
	if len(t.texts) == 0 {
		return
	}
	cm := t.ms.Text.(*catalogMeasurer)
	hint := hinting(t.plan.TextRendering)

	for _, r := range t.texts {
		m := geom.Mul(full, r.ctm)
		size := r.size * geom.LineScale(m)
		if size <= 0 {
			continue
		}
		face, err := cm.open(r.face, size, hint)
		if err != nil {
			t.logger.Debug("cannot open face", "source", r.face.Source, "err", err)
			continue
		}
		x, y := geom.Apply(m, r.x, r.y)
		d := font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(r.fill),
			Face: face,
			Dot:  fixed.Point26_6{X: toFixed(x), Y: toFixed(y)},
		}
		d.DrawString(r.text)
		face.Close()
	}
}

// Encode writes img as PNG. Failures are ENCODE errors.
func Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(w, img); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "failed to encode PNG")
	}
	return nil
}
