// Package geom provides the float64 geometry behind geometry queries:
// affine transforms, SVG transform lists, path data and bounding boxes.
//
// Matrices use the rasterx layout so they can be handed to the rasterizer
// unchanged:
//
//	x' = A*x + C*y + E
//	y' = B*x + D*y + F
package geom

import (
	"math"

	"github.com/srwiley/rasterx"
)

// Mul returns a·b, the transform that applies b first and then a.
func Mul(a, b rasterx.Matrix2D) rasterx.Matrix2D {
	return rasterx.Matrix2D{
		A: a.A*b.A + a.C*b.B,
		B: a.B*b.A + a.D*b.B,
		C: a.A*b.C + a.C*b.D,
		D: a.B*b.C + a.D*b.D,
		E: a.A*b.E + a.C*b.F + a.E,
		F: a.B*b.E + a.D*b.F + a.F,
	}
}

// Apply maps the point (x, y) through m.
func Apply(m rasterx.Matrix2D, x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// Translate returns a translation.
func Translate(tx, ty float64) rasterx.Matrix2D {
	return rasterx.Matrix2D{A: 1, D: 1, E: tx, F: ty}
}

// Scale returns a scale about the origin.
func Scale(sx, sy float64) rasterx.Matrix2D {
	return rasterx.Matrix2D{A: sx, D: sy}
}

// Rotate returns a rotation by deg degrees about the origin.
func Rotate(deg float64) rasterx.Matrix2D {
	s, c := math.Sincos(deg * math.Pi / 180)
	return rasterx.Matrix2D{A: c, B: s, C: -s, D: c}
}

// SkewX returns a horizontal skew by deg degrees.
func SkewX(deg float64) rasterx.Matrix2D {
	return rasterx.Matrix2D{A: 1, C: math.Tan(deg * math.Pi / 180), D: 1}
}

// SkewY returns a vertical skew by deg degrees.
func SkewY(deg float64) rasterx.Matrix2D {
	return rasterx.Matrix2D{A: 1, B: math.Tan(deg * math.Pi / 180), D: 1}
}

// LineScale is the factor by which m scales lengths on average. It is used
// to carry stroke widths into transformed space.
func LineScale(m rasterx.Matrix2D) float64 {
	return math.Sqrt(math.Abs(m.A*m.D - m.B*m.C))
}
