// Package fit computes output pixel sizes and scaling transforms.
//
// A Mode is the resolved sizing policy of a render call. Exactly one kind is
// active per mode: the original document size, a fixed width, a fixed
// height, a fixed box, or a zoom factor.
//
//	mode := fit.Width(800)
//	size, ok := fit.TargetSize(mode, fit.Size{W: 400, H: 300}) // 800x600
//	m := fit.Transform(mode, fit.Size{W: 400, H: 300})         // scale(2, 2)
package fit

import (
	"fmt"
	"math"

	"github.com/srwiley/rasterx"
)

// Kind identifies the active sizing variant.
type Kind int

const (
	KindOriginal Kind = iota
	KindWidth
	KindHeight
	KindSize
	KindZoom
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindOriginal:
		return "original"
	case KindWidth:
		return "width"
	case KindHeight:
		return "height"
	case KindSize:
		return "size"
	case KindZoom:
		return "zoom"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mode is a closed sizing variant. Construct it with Original, Width,
// Height, Box or Zoom; the zero value is Original.
type Mode struct {
	kind Kind
	w, h uint32
	zoom float64
}

// Original keeps the document size.
func Original() Mode { return Mode{kind: KindOriginal} }

// Width scales uniformly to the given width.
func Width(w uint32) Mode { return Mode{kind: KindWidth, w: w} }

// Height scales uniformly to the given height.
func Height(h uint32) Mode { return Mode{kind: KindHeight, h: h} }

// Box stretches the document to exactly w x h.
func Box(w, h uint32) Mode { return Mode{kind: KindSize, w: w, h: h} }

// Zoom multiplies both dimensions by f.
func Zoom(f float64) Mode { return Mode{kind: KindZoom, zoom: f} }

// Kind returns the active variant.
func (m Mode) Kind() Kind { return m.kind }

// Dimensions returns the requested width and height. Only the fields
// meaningful for the active kind are non-zero.
func (m Mode) Dimensions() (w, h uint32) { return m.w, m.h }

// Factor returns the zoom factor of a KindZoom mode.
func (m Mode) Factor() float64 { return m.zoom }

// String renders the mode for logs.
func (m Mode) String() string {
	switch m.kind {
	case KindWidth:
		return fmt.Sprintf("width(%d)", m.w)
	case KindHeight:
		return fmt.Sprintf("height(%d)", m.h)
	case KindSize:
		return fmt.Sprintf("size(%dx%d)", m.w, m.h)
	case KindZoom:
		return fmt.Sprintf("zoom(%g)", m.zoom)
	default:
		return "original"
	}
}

// Size is an integer pixel size.
type Size struct {
	W, H uint32
}

// MaxBytes is the largest RGBA buffer a Size may need. It keeps W*H*4
// within a signed 32-bit integer.
const MaxBytes = math.MaxInt32

// Bytes returns the size of an RGBA buffer of s.
func (s Size) Bytes() uint64 { return uint64(s.W) * uint64(s.H) * 4 }

// Fits reports whether an RGBA buffer of s stays within MaxBytes.
func (s Size) Fits() bool { return s.Bytes() <= MaxBytes }

// IsZero reports whether either dimension is zero.
func (s Size) IsZero() bool { return s.W == 0 || s.H == 0 }

// String renders the size as WxH.
func (s Size) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }

// FromFloat rounds a floating point document size up to whole pixels.
// Non-positive and non-finite dimensions become zero.
func FromFloat(w, h float64) Size {
	return Size{W: ceilDim(w), H: ceilDim(h)}
}

// TargetSize returns the output size for mode applied to source.
// It returns false when the result would have a zero dimension; callers
// must treat that as a fatal condition rather than rendering an empty image.
func TargetSize(mode Mode, source Size) (Size, bool) {
	if source.IsZero() {
		return Size{}, false
	}

	var out Size
	switch mode.kind {
	case KindOriginal:
		out = source
	case KindWidth:
		out = Size{
			W: mode.w,
			H: ceilDim(float64(mode.w) * float64(source.H) / float64(source.W)),
		}
	case KindHeight:
		out = Size{
			W: ceilDim(float64(mode.h) * float64(source.W) / float64(source.H)),
			H: mode.h,
		}
	case KindSize:
		out = Size{W: mode.w, H: mode.h}
	case KindZoom:
		out = Size{
			W: roundDim(float64(source.W) * mode.zoom),
			H: roundDim(float64(source.H) * mode.zoom),
		}
	default:
		return Size{}, false
	}

	if out.IsZero() {
		return Size{}, false
	}
	return out, true
}

// Transform returns the scale mapping source pixels onto the target size.
// It is the identity when TargetSize fails.
func Transform(mode Mode, source Size) rasterx.Matrix2D {
	target, ok := TargetSize(mode, source)
	if !ok {
		return rasterx.Identity
	}
	sx := float64(target.W) / float64(source.W)
	sy := float64(target.H) / float64(source.H)
	return rasterx.Matrix2D{A: sx, D: sy}
}

func ceilDim(v float64) uint32 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	// Absorb float noise such as 100.00000000000001.
	return uint32(math.Ceil(v - 1e-9))
}

func roundDim(v float64) uint32 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}
