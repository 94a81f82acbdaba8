// Package pipeline provides the conversion pipeline for svgpng.
//
// This package sequences the stages every entry point goes through, so the
// CLI, the host port and the HTTP surface behave identically.
//
// # Architecture
//
// A call runs these stages in order, stopping at the first failure:
//
//  1. Options: resolve the raw configuration into a plan
//  2. Load: read the source file or take the inline text
//  3. Decode: gunzip svgz input and validate UTF-8
//  4. Parse: build the document tree
//  5. Fonts: build the font catalog, only when the document has text
//  6. Tree: resolve the renderable tree
//  7. Rasterize: size the canvas and draw
//  8. Encode: encode the PNG and write it out
//
// Every failure is an *errors.Error whose code names the failing stage.
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	err := runner.RenderFileToFile(ctx, "in.svg", "out.png", options.Raw{})
//
//	png, err := runner.RenderTextToBuffer(ctx, svgText, options.Raw{
//	    ResourcesDir: "/assets",
//	    Zoom:         &zoom,
//	})
//
//	fonts, err := runner.ListFonts(ctx, options.Raw{SkipSystemFonts: true})
//	boxes, err := runner.Query(ctx, "in.svg", options.Raw{})
package pipeline

import (
	"context"

	"github.com/matzehuels/svgpng/pkg/fontdb"
	"github.com/matzehuels/svgpng/pkg/options"
)

// =============================================================================
// Operations and Stages
// =============================================================================

// Operation names reported to observability hooks and logs.
const (
	OpRenderFile       = "render_file"
	OpRenderTextToFile = "render_text_to_file"
	OpRenderText       = "render_text"
	OpListFonts        = "list_fonts"
	OpQuery            = "query"
)

// Stage names.
const (
	StageOptions   = "options"
	StageLoad      = "load"
	StageDecode    = "decode"
	StageParse     = "parse"
	StageFonts     = "fonts"
	StageTree      = "tree"
	StageRasterize = "rasterize"
	StageEncode    = "encode"
	StageWrite     = "write"
	StageMeasure   = "measure"
)

// QueryPrecision is the number of decimals query results are rounded to.
const QueryPrecision = 3

// =============================================================================
// Types
// =============================================================================

// FontBuilder builds a font catalog from resolved settings.
// *fontdb.Builder is the production implementation.
type FontBuilder interface {
	Build(ctx context.Context, s options.FontSettings) (*fontdb.Catalog, error)
}

// NodeBox is the bounding box of one top-level element, in document user
// space after the root viewBox mapping.
type NodeBox struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}
