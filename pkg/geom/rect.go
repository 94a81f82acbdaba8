package geom

import (
	"math"

	"github.com/srwiley/rasterx"
)

// Rect is an axis-aligned bounding box. The zero value is empty.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
	valid                  bool
}

// NewRect returns the rectangle with origin (x, y) and the given size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h, valid: true}
}

// IsEmpty reports whether no point has been added.
func (r Rect) IsEmpty() bool { return !r.valid }

// Width returns MaxX-MinX.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns MaxY-MinY.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// AddPoint extends r to include (x, y).
func (r Rect) AddPoint(x, y float64) Rect {
	if math.IsNaN(x) || math.IsNaN(y) {
		return r
	}
	if !r.valid {
		return Rect{MinX: x, MinY: y, MaxX: x, MaxY: y, valid: true}
	}
	r.MinX = math.Min(r.MinX, x)
	r.MinY = math.Min(r.MinY, y)
	r.MaxX = math.Max(r.MaxX, x)
	r.MaxY = math.Max(r.MaxY, y)
	return r
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	if !o.valid {
		return r
	}
	return r.AddPoint(o.MinX, o.MinY).AddPoint(o.MaxX, o.MaxY)
}

// Inflate grows r by d on every side.
func (r Rect) Inflate(d float64) Rect {
	if !r.valid {
		return r
	}
	r.MinX -= d
	r.MinY -= d
	r.MaxX += d
	r.MaxY += d
	return r
}

// Transform returns the bounding box of r's corners mapped through m.
func (r Rect) Transform(m rasterx.Matrix2D) Rect {
	if !r.valid {
		return r
	}
	var out Rect
	for _, p := range [4][2]float64{{r.MinX, r.MinY}, {r.MaxX, r.MinY}, {r.MaxX, r.MaxY}, {r.MinX, r.MaxY}} {
		out = out.AddPoint(Apply(m, p[0], p[1]))
	}
	return out
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
