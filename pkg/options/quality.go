package options

import (
	"strings"

	"github.com/matzehuels/svgpng/pkg/errors"
)

// ShapeRendering is the shape-rendering quality selector.
type ShapeRendering int

const (
	ShapeGeometricPrecision ShapeRendering = iota
	ShapeOptimizeSpeed
	ShapeCrispEdges
)

// TextRendering is the text-rendering quality selector.
type TextRendering int

const (
	TextOptimizeLegibility TextRendering = iota
	TextOptimizeSpeed
	TextGeometricPrecision
)

// ImageRendering is the image-rendering quality selector.
type ImageRendering int

const (
	ImageOptimizeQuality ImageRendering = iota
	ImageOptimizeSpeed
)

var shapeRenderings = map[string]ShapeRendering{
	"optimizespeed":      ShapeOptimizeSpeed,
	"crispedges":         ShapeCrispEdges,
	"geometricprecision": ShapeGeometricPrecision,
}

var textRenderings = map[string]TextRendering{
	"optimizespeed":      TextOptimizeSpeed,
	"optimizelegibility": TextOptimizeLegibility,
	"geometricprecision": TextGeometricPrecision,
}

var imageRenderings = map[string]ImageRendering{
	"optimizequality": ImageOptimizeQuality,
	"optimizespeed":   ImageOptimizeSpeed,
}

// normalizeMode folds case and kebab-case so "crispEdges", "CRISPEDGES"
// and "crisp-edges" are the same selector.
func normalizeMode(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "")
}

// ParseShapeRendering parses a shape-rendering value. Empty selects
// geometricPrecision.
func ParseShapeRendering(s string) (ShapeRendering, error) {
	if strings.TrimSpace(s) == "" {
		return ShapeGeometricPrecision, nil
	}
	v, ok := shapeRenderings[normalizeMode(s)]
	if !ok {
		return 0, errors.New(errors.ErrCodeConfigRenderingMode,
			"invalid shape_rendering %q (must be one of: optimizeSpeed, crispEdges, geometricPrecision)", s)
	}
	return v, nil
}

// ParseTextRendering parses a text-rendering value. Empty selects
// optimizeLegibility.
func ParseTextRendering(s string) (TextRendering, error) {
	if strings.TrimSpace(s) == "" {
		return TextOptimizeLegibility, nil
	}
	v, ok := textRenderings[normalizeMode(s)]
	if !ok {
		return 0, errors.New(errors.ErrCodeConfigRenderingMode,
			"invalid text_rendering %q (must be one of: optimizeSpeed, optimizeLegibility, geometricPrecision)", s)
	}
	return v, nil
}

// ParseImageRendering parses an image-rendering value. Empty selects
// optimizeQuality.
func ParseImageRendering(s string) (ImageRendering, error) {
	if strings.TrimSpace(s) == "" {
		return ImageOptimizeQuality, nil
	}
	v, ok := imageRenderings[normalizeMode(s)]
	if !ok {
		return 0, errors.New(errors.ErrCodeConfigRenderingMode,
			"invalid image_rendering %q (must be one of: optimizeQuality, optimizeSpeed)", s)
	}
	return v, nil
}

// String returns the SVG keyword.
func (s ShapeRendering) String() string {
	switch s {
	case ShapeOptimizeSpeed:
		return "optimizeSpeed"
	case ShapeCrispEdges:
		return "crispEdges"
	default:
		return "geometricPrecision"
	}
}

// String returns the SVG keyword.
func (t TextRendering) String() string {
	switch t {
	case TextOptimizeSpeed:
		return "optimizeSpeed"
	case TextGeometricPrecision:
		return "geometricPrecision"
	default:
		return "optimizeLegibility"
	}
}

// String returns the SVG keyword.
func (i ImageRendering) String() string {
	if i == ImageOptimizeSpeed {
		return "optimizeSpeed"
	}
	return "optimizeQuality"
}

// Antialias reports whether shapes are drawn with antialiasing.
func (s ShapeRendering) Antialias() bool {
	return s == ShapeGeometricPrecision
}
