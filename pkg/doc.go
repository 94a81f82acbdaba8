// Package pkg provides the core libraries for svgpng.
//
// # Overview
//
// svgpng rasterizes SVG and SVGZ documents into PNG images. The pkg
// directory is organized into three areas:
//
//  1. Document model - [svgdoc], [geom], [color]
//  2. Rendering - [options], [fit], [fontdb], [render], [pipeline]
//  3. Surfaces and support - [host], [errors], [observability], [buildinfo]
//
// # Architecture
//
// The data flow of one conversion:
//
//	raw configuration + SVG/SVGZ bytes
//	         ↓
//	    [options] (validate into a Plan)
//	         ↓
//	    [svgdoc] (decompress, parse, resolve styles)
//	         ↓
//	    [fontdb] (font catalog, only for documents with text)
//	         ↓
//	    [render] (flatten into shapes, images and text; rasterize)
//	         ↓
//	    PNG bytes or file
//
// [pipeline] sequences these stages for every entry point, and [host]
// exposes the same entry points to other processes.
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/svgpng/pkg/options"
//	    "github.com/matzehuels/svgpng/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil)
//	err := runner.RenderFileToFile(context.Background(), "logo.svg", "logo.png", options.Raw{})
//
// # Main Packages
//
// ## Document Model
//
// [svgdoc] - Document tree with resolved presentation attributes, CSS style
// declarations, entities, conditional processing (switch, systemLanguage)
// and unit conversion.
//
// [geom] - Affine transforms, path geometry on tdewolff/canvas, and bounding
// boxes of elements including stroke.
//
// [color] - CSS color parsing for the background option.
//
// ## Rendering
//
// [options] - Validates the raw configuration into an immutable Plan:
// sizing mode, rendering modes, languages, fonts, resources directory.
//
// [fit] - Target image size and the viewport-to-canvas transform for each
// sizing mode.
//
// [fontdb] - Font catalog built from system directories, explicit files and
// directories, with CSS font matching.
//
// [render] - Renderable tree and rasterizer.
//
// [pipeline] - The five entry points: render file to file, text to file,
// text to buffer, list fonts and query geometry.
//
// ## Surfaces
//
// [host] - Tagged request/response envelope, JSON-lines stdio port and HTTP
// router.
//
// [errors] - Coded errors shared by every package.
//
// [observability] - Hooks for stage, font scan and host call events.
//
// [svgdoc]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/svgdoc
// [geom]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/geom
// [color]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/color
// [options]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/options
// [fit]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/fit
// [fontdb]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/fontdb
// [render]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/pipeline
// [host]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/host
// [errors]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/svgpng/pkg/buildinfo
package pkg
