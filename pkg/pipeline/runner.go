package pipeline

import (
	"bytes"
	"context"
	"image"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/fit"
	"github.com/matzehuels/svgpng/pkg/fontdb"
	"github.com/matzehuels/svgpng/pkg/geom"
	"github.com/matzehuels/svgpng/pkg/observability"
	"github.com/matzehuels/svgpng/pkg/options"
	"github.com/matzehuels/svgpng/pkg/render"
	"github.com/matzehuels/svgpng/pkg/svgdoc"
)

// Runner executes conversion calls.
//
// The Runner holds no per-call state: every call resolves its own plan and
// builds its own font catalog. Multiple goroutines can safely use the same
// Runner.
type Runner struct {
	Logger *log.Logger
	Fonts  FontBuilder
}

// NewRunner creates a runner that builds catalogs with fontdb.
// If logger is nil, logging is discarded.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Logger: logger,
		Fonts:  fontdb.NewBuilder(logger),
	}
}

// RenderFileToFile renders the SVG or SVGZ file at src into a PNG at dst.
// Relative references resolve against the directory of src unless the
// configuration names a resources directory.
func (r *Runner) RenderFileToFile(ctx context.Context, src, dst string, raw options.Raw) error {
	png, err := r.render(ctx, OpRenderFile, options.FromFile(src), raw, func() ([]byte, error) {
		return svgdoc.ReadFile(src)
	})
	if err != nil {
		return err
	}
	return r.writeFile(ctx, OpRenderFile, dst, png)
}

// RenderTextToFile renders inline SVG text into a PNG at dst. The
// configuration must name a resources directory.
func (r *Runner) RenderTextToFile(ctx context.Context, text, dst string, raw options.Raw) error {
	png, err := r.render(ctx, OpRenderTextToFile, options.FromText(), raw, textSource(text))
	if err != nil {
		return err
	}
	return r.writeFile(ctx, OpRenderTextToFile, dst, png)
}

// RenderTextToBuffer renders inline SVG text and returns the PNG bytes.
// The configuration must name a resources directory.
func (r *Runner) RenderTextToBuffer(ctx context.Context, text string, raw options.Raw) ([]byte, error) {
	return r.render(ctx, OpRenderText, options.FromText(), raw, textSource(text))
}

// ListFonts builds a font catalog from the configuration alone and
// describes its file-backed faces.
func (r *Runner) ListFonts(ctx context.Context, raw options.Raw) ([]string, error) {
	var plan *options.Plan
	err := r.stage(ctx, OpListFonts, StageOptions, func() (err error) {
		plan, err = options.Resolve(options.NoInput(), raw)
		return err
	})
	if err != nil {
		return nil, err
	}

	var cat *fontdb.Catalog
	err = r.stage(ctx, OpListFonts, StageFonts, func() (err error) {
		cat, err = r.Fonts.Build(ctx, plan.Fonts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cat.Descriptors(), nil
}

// Query reports the bounding boxes of the root's direct children that carry
// an id, in document order. Boxes include stroke and are rounded to
// QueryPrecision decimals. Children without geometry are left out.
func (r *Runner) Query(ctx context.Context, src string, raw options.Raw) ([]NodeBox, error) {
	c, err := r.prepare(ctx, OpQuery, options.FromFile(src), raw, func() ([]byte, error) {
		return svgdoc.ReadFile(src)
	})
	if err != nil {
		return nil, err
	}

	var boxes []NodeBox
	err = r.stage(ctx, OpQuery, StageMeasure, func() error {
		boxes = queryBoxes(c.doc, c.tree)
		return nil
	})
	return boxes, err
}

func queryBoxes(doc *svgdoc.Document, tree *render.Tree) []NodeBox {
	ms := tree.Measurer()
	ctm := tree.RootTransform()

	boxes := []NodeBox{}
	for _, n := range ms.Conditions.Children(doc.Root) {
		id := n.ID()
		if id == "" {
			continue
		}
		rect, ok := ms.Bounds(n, ctm)
		if !ok {
			continue
		}
		boxes = append(boxes, NodeBox{
			ID:     id,
			X:      geom.Round(rect.MinX, QueryPrecision),
			Y:      geom.Round(rect.MinY, QueryPrecision),
			Width:  geom.Round(rect.Width(), QueryPrecision),
			Height: geom.Round(rect.Height(), QueryPrecision),
		})
	}
	return boxes
}

// =============================================================================
// Shared Stages
// =============================================================================

// call is the state shared by the stages of one call.
type call struct {
	plan *options.Plan
	doc  *svgdoc.Document
	tree *render.Tree
}

func textSource(text string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(text), nil }
}

// prepare runs the stages up to and including the render tree.
func (r *Runner) prepare(ctx context.Context, op string, origin options.Origin, raw options.Raw, read func() ([]byte, error)) (*call, error) {
	c := &call{}

	err := r.stage(ctx, op, StageOptions, func() (err error) {
		c.plan, err = options.Resolve(origin, raw)
		if err != nil {
			return err
		}
		// Inline text has no directory of its own to resolve against.
		if origin.Kind() == options.OriginText {
			_, err = c.plan.ResourcesDir()
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	var data []byte
	if err := r.stage(ctx, op, StageLoad, func() (err error) {
		data, err = read()
		return err
	}); err != nil {
		return nil, err
	}

	var text string
	if err := r.stage(ctx, op, StageDecode, func() (err error) {
		text, err = svgdoc.Decode(data)
		return err
	}); err != nil {
		return nil, err
	}

	if err := r.stage(ctx, op, StageParse, func() (err error) {
		c.doc, err = svgdoc.Parse(text)
		return err
	}); err != nil {
		return nil, err
	}

	opts := []render.Option{render.WithLogger(r.Logger)}
	if svgdoc.HasText(c.doc) {
		var cat *fontdb.Catalog
		if err := r.stage(ctx, op, StageFonts, func() (err error) {
			cat, err = r.Fonts.Build(ctx, c.plan.Fonts)
			return err
		}); err != nil {
			return nil, err
		}
		opts = append(opts, render.WithCatalog(cat))
	}

	if err := r.stage(ctx, op, StageTree, func() (err error) {
		c.tree, err = render.Build(c.doc, c.plan, opts...)
		return err
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// render runs every stage and returns the encoded PNG.
func (r *Runner) render(ctx context.Context, op string, origin options.Origin, raw options.Raw, read func() ([]byte, error)) ([]byte, error) {
	c, err := r.prepare(ctx, op, origin, raw, read)
	if err != nil {
		return nil, err
	}

	var img *image.RGBA
	err = r.stage(ctx, op, StageRasterize, func() error {
		source := c.tree.Size()
		size, ok := fit.TargetSize(c.plan.Sizing, source)
		if !ok {
			return errors.New(errors.ErrCodeGeometryZeroSize,
				"cannot render %s document at %s", source, c.plan.Sizing)
		}
		if !size.Fits() {
			return errors.New(errors.ErrCodeGeometryTooLarge,
				"target size %s exceeds the %d byte limit", size, fit.MaxBytes)
		}
		r.Logger.Debug("rasterizing", "source", source, "target", size, "sizing", c.plan.Sizing)
		img = render.NewTarget(size, c.plan.Background)
		c.tree.Draw(img, fit.Transform(c.plan.Sizing, source))
		return nil
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.stage(ctx, op, StageEncode, func() error {
		return render.Encode(&buf, img)
	}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Runner) writeFile(ctx context.Context, op, dst string, png []byte) error {
	return r.stage(ctx, op, StageWrite, func() error {
		if err := os.WriteFile(dst, png, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeEncode, err, "failed to write %s", dst)
		}
		return nil
	})
}

// stage times fn and reports it to the logger and the pipeline hooks.
func (r *Runner) stage(ctx context.Context, op, name string, fn func() error) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, op, name)

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	hooks.OnStageComplete(ctx, op, name, elapsed, err)
	if err != nil {
		r.Logger.Debug("stage failed", "op", op, "stage", name, "duration", elapsed, "err", err)
		return err
	}
	r.Logger.Debug("stage done", "op", op, "stage", name, "duration", elapsed)
	return nil
}
