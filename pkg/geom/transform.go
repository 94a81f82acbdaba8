package geom

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/srwiley/rasterx"
)

var (
	transformLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Number", Pattern: `[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`},
		{Name: "Ident", Pattern: `[a-zA-Z]+`},
		{Name: "Punct", Pattern: `[(),]`},
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	})

	transformParser = participle.MustBuild[transformList](
		participle.Lexer(transformLexer),
		participle.Elide("Whitespace"),
	)
)

// transformList is the AST of an SVG transform attribute.
type transformList struct {
	Items []*transformItem `parser:"( @@ ','? )*"`
}

type transformItem struct {
	Name string    `parser:"@Ident '('"`
	Args []float64 `parser:"( @Number ','? )* ')'"`
}

// ParseTransform parses an SVG transform list such as
// "translate(10 20) rotate(45, 5, 5)". Items compose left to right, so the
// last item is applied to points first.
func ParseTransform(s string) (rasterx.Matrix2D, error) {
	m := rasterx.Identity
	if strings.TrimSpace(s) == "" {
		return m, nil
	}

	list, err := transformParser.ParseString("", s)
	if err != nil {
		return rasterx.Identity, fmt.Errorf("invalid transform %q: %w", s, err)
	}

	for _, item := range list.Items {
		t, err := item.matrix()
		if err != nil {
			return rasterx.Identity, fmt.Errorf("invalid transform %q: %w", s, err)
		}
		m = Mul(m, t)
	}
	return m, nil
}

func (it *transformItem) matrix() (rasterx.Matrix2D, error) {
	a := it.Args
	switch it.Name {
	case "matrix":
		if len(a) == 6 {
			return rasterx.Matrix2D{A: a[0], B: a[1], C: a[2], D: a[3], E: a[4], F: a[5]}, nil
		}
	case "translate":
		switch len(a) {
		case 1:
			return Translate(a[0], 0), nil
		case 2:
			return Translate(a[0], a[1]), nil
		}
	case "scale":
		switch len(a) {
		case 1:
			return Scale(a[0], a[0]), nil
		case 2:
			return Scale(a[0], a[1]), nil
		}
	case "rotate":
		switch len(a) {
		case 1:
			return Rotate(a[0]), nil
		case 3:
			return Mul(Translate(a[1], a[2]), Mul(Rotate(a[0]), Translate(-a[1], -a[2]))), nil
		}
	case "skewX":
		if len(a) == 1 {
			return SkewX(a[0]), nil
		}
	case "skewY":
		if len(a) == 1 {
			return SkewY(a[0]), nil
		}
	default:
		return rasterx.Identity, fmt.Errorf("unknown function %q", it.Name)
	}
	return rasterx.Identity, fmt.Errorf("%s takes a different number of arguments than %d", it.Name, len(a))
}
