package geom

import (
	"fmt"
	"strings"

	"github.com/srwiley/rasterx"
	"github.com/tdewolff/canvas"
)

// Path is shape geometry in user space. Coordinates are kept in float64 and
// arcs are kept as arcs, so bounds are exact.
type Path struct {
	p *canvas.Path
}

// ParsePath parses SVG path data. Data must start with a moveto. On error
// the returned path holds whatever was read before the failure, which may
// be nothing.
func ParsePath(d string) (Path, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return Path{}, nil
	}
	if d[0] != 'M' && d[0] != 'm' {
		return Path{}, fmt.Errorf("path must start with a moveto")
	}
	p, err := canvas.ParseSVGPath(d)
	return Path{p: p}, err
}

// IsEmpty reports whether p draws nothing: no segments, or only movetos.
func (p Path) IsEmpty() bool { return p.p == nil || p.p.Empty() }

// Bounds returns the exact bounding box of p mapped through m. Control
// points do not contribute.
func (p Path) Bounds(m rasterx.Matrix2D) Rect {
	if p.IsEmpty() {
		return Rect{}
	}
	b := p.p.Copy().Transform(toCanvas(m)).Bounds()
	return Rect{MinX: b.X0, MinY: b.Y0, MaxX: b.X1, MaxY: b.Y1, valid: true}
}

// String renders p as SVG path data.
func (p Path) String() string {
	if p.p == nil {
		return ""
	}
	return p.p.ToSVG()
}

func toCanvas(m rasterx.Matrix2D) canvas.Matrix {
	return canvas.Matrix{
		{m.A, m.C, m.E},
		{m.B, m.D, m.F},
	}
}

func polygon(pts [][2]float64, closed bool) Path {
	p := &canvas.Path{}
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt[0], pt[1])
			continue
		}
		p.LineTo(pt[0], pt[1])
	}
	if closed {
		p.Close()
	}
	return Path{p: p}
}

func ellipsePath(cx, cy, rx, ry float64) Path {
	p := &canvas.Path{}
	p.MoveTo(cx+rx, cy)
	p.ArcTo(rx, ry, 0, false, true, cx-rx, cy)
	p.ArcTo(rx, ry, 0, false, true, cx+rx, cy)
	p.Close()
	return Path{p: p}
}

func roundedRect(x, y, w, h, rx, ry float64) Path {
	r, b := x+w, y+h
	p := &canvas.Path{}
	p.MoveTo(x+rx, y)
	p.LineTo(r-rx, y)
	p.ArcTo(rx, ry, 0, false, true, r, y+ry)
	p.LineTo(r, b-ry)
	p.ArcTo(rx, ry, 0, false, true, r-rx, b)
	p.LineTo(x+rx, b)
	p.ArcTo(rx, ry, 0, false, true, x, b-ry)
	p.LineTo(x, y+ry)
	p.ArcTo(rx, ry, 0, false, true, x+rx, y)
	p.Close()
	return Path{p: p}
}

// parsePoints reads a points attribute as the implicit linetos of a single
// moveto. Malformed data yields whatever the path parser produced.
func parsePoints(s string) Path {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}
	}
	p, _ := canvas.ParseSVGPath("M" + s)
	return Path{p: p}
}
