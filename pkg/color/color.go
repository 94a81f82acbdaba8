// Package color parses CSS/SVG color strings into RGBA values.
//
// Supported notations:
//   - named colors from the SVG 1.1 keyword list ("steelblue", "white")
//   - "transparent"
//   - hex: #rgb, #rgba, #rrggbb, #rrggbbaa
//   - functional: rgb(r, g, b), rgba(r, g, b, a) with integer or percent channels
//
// The returned color is not premultiplied; callers compositing onto an
// image.RGBA should convert with color.NRGBA semantics.
package color

import (
	"fmt"
	stdcolor "image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Parse parses s into a non-premultiplied RGBA color.
func Parse(s string) (stdcolor.NRGBA, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	if str == "" {
		return stdcolor.NRGBA{}, fmt.Errorf("empty color")
	}

	if str == "transparent" {
		return stdcolor.NRGBA{}, nil
	}

	if c, ok := colornames.Map[str]; ok {
		return stdcolor.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}

	if strings.HasPrefix(str, "#") {
		return parseHex(str)
	}

	if strings.HasPrefix(str, "rgb") {
		return parseFunctional(str)
	}

	return stdcolor.NRGBA{}, fmt.Errorf("unsupported color format: %q", s)
}

// parseHex handles the four hex forms. The alpha digits are split off
// before the RGB part is handed to go-colorful.
func parseHex(s string) (stdcolor.NRGBA, error) {
	digits := strings.TrimPrefix(s, "#")
	alpha := uint8(255)

	switch len(digits) {
	case 3, 6:
	case 4:
		a, err := strconv.ParseUint(strings.Repeat(digits[3:], 2), 16, 8)
		if err != nil {
			return stdcolor.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
		alpha = uint8(a)
		digits = digits[:3]
	case 8:
		a, err := strconv.ParseUint(digits[6:], 16, 8)
		if err != nil {
			return stdcolor.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
		alpha = uint8(a)
		digits = digits[:6]
	default:
		return stdcolor.NRGBA{}, fmt.Errorf("invalid hex color length: %q", s)
	}

	c, err := colorful.Hex("#" + digits)
	if err != nil {
		return stdcolor.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return stdcolor.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

func parseFunctional(s string) (stdcolor.NRGBA, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return stdcolor.NRGBA{}, fmt.Errorf("malformed color function %q", s)
	}
	name := strings.TrimSpace(s[:open])
	if name != "rgb" && name != "rgba" {
		return stdcolor.NRGBA{}, fmt.Errorf("unsupported color function %q", name)
	}

	args := strings.FieldsFunc(s[open+1:len(s)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/' || r == '\t'
	})
	if len(args) != 3 && len(args) != 4 {
		return stdcolor.NRGBA{}, fmt.Errorf("color function %q needs 3 or 4 arguments", s)
	}

	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := parseChannel(args[i])
		if err != nil {
			return stdcolor.NRGBA{}, fmt.Errorf("invalid channel in %q: %w", s, err)
		}
		ch[i] = v
	}

	alpha := uint8(255)
	if len(args) == 4 {
		a, err := parseAlpha(args[3])
		if err != nil {
			return stdcolor.NRGBA{}, fmt.Errorf("invalid alpha in %q: %w", s, err)
		}
		alpha = a
	}

	return stdcolor.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: alpha}, nil
}

func parseChannel(s string) (uint8, error) {
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, err
		}
		return clampByte(v * 255 / 100), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return clampByte(v), nil
}

func parseAlpha(s string) (uint8, error) {
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, err
		}
		return clampByte(v * 255 / 100), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return clampByte(v * 255), nil
}

func clampByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}
