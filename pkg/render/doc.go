// Package render builds the renderable tree of a parsed document and
// rasterizes it.
//
// # Overview
//
// [Build] walks the document once, applying conditional processing and
// style inheritance, and splits it into three layers:
//
//   - Shapes: basic shapes and paths, normalized to absolute path data with
//     resolved paint and handed to oksvg/rasterx for filling and stroking
//   - Images: raster <image> elements, loaded from data URIs or from the
//     resources directory and scaled with golang.org/x/image/draw
//   - Text: runs set in faces from the font catalog and drawn with
//     golang.org/x/image/font
//
// Layers are composited in that order.
//
//	tree, err := render.Build(doc, plan, render.WithCatalog(cat))
//	size := tree.Size()
//	img := render.NewTarget(target, plan.Background)
//	tree.Draw(img, fit.Transform(plan.Sizing, size))
//	err = render.Encode(w, img)
package render
