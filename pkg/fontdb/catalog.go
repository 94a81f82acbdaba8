// Package fontdb builds the per-call font catalog.
//
// A Catalog indexes font faces found in system font directories, explicit
// font files and font directories, plus bindings for the five CSS generic
// families. Catalogs are never cached: every call that needs fonts builds a
// fresh one with a Builder and drops it when the call ends.
//
//	b := fontdb.NewBuilder(logger)
//	cat, err := b.Build(ctx, plan.Fonts)
//	face, ok := cat.Match([]string{"Helvetica", "sans-serif"}, 700, false)
package fontdb

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/matzehuels/svgpng/pkg/options"
)

// Style is the slant of a face.
type Style int

const (
	StyleNormal Style = iota
	StyleItalic
	StyleOblique
)

// String returns the style name.
func (s Style) String() string {
	switch s {
	case StyleItalic:
		return "Italic"
	case StyleOblique:
		return "Oblique"
	default:
		return "Normal"
	}
}

// Stretch is the width class of a face, 1 (UltraCondensed) to 9
// (UltraExpanded).
type Stretch int

const (
	StretchUltraCondensed Stretch = iota + 1
	StretchExtraCondensed
	StretchCondensed
	StretchSemiCondensed
	StretchNormal
	StretchSemiExpanded
	StretchExpanded
	StretchExtraExpanded
	StretchUltraExpanded
)

var stretchNames = [...]string{
	"UltraCondensed", "ExtraCondensed", "Condensed", "SemiCondensed", "Normal",
	"SemiExpanded", "Expanded", "ExtraExpanded", "UltraExpanded",
}

// String returns the stretch name.
func (s Stretch) String() string {
	if s < StretchUltraCondensed || s > StretchUltraExpanded {
		return "Normal"
	}
	return stretchNames[s-1]
}

// Family is a family name and the language it is recorded in.
type Family struct {
	Name     string
	Language language.Tag
}

// Face is one font face inside a font file.
type Face struct {
	Source   string // file path
	Index    int    // face index within a collection
	Families []Family
	Style    Style
	Weight   uint16
	Stretch  Stretch
}

// Catalog is a read-only index of faces plus generic family bindings.
type Catalog struct {
	faces    []*Face
	generics options.Generics

	mu     sync.Mutex
	opened map[string]*sfnt.Font
}

func newCatalog() *Catalog {
	return &Catalog{opened: make(map[string]*sfnt.Font)}
}

// Faces returns every face in load order.
func (c *Catalog) Faces() []*Face {
	return c.faces
}

// Len returns the number of faces.
func (c *Catalog) Len() int { return len(c.faces) }

// Generics returns the generic family bindings.
func (c *Catalog) Generics() options.Generics { return c.generics }

// Generic resolves a CSS generic family keyword to its bound family.
func (c *Catalog) Generic(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "serif":
		return c.generics.Serif, true
	case "sans-serif":
		return c.generics.SansSerif, true
	case "cursive":
		return c.generics.Cursive, true
	case "fantasy":
		return c.generics.Fantasy, true
	case "monospace":
		return c.generics.Monospace, true
	}
	return "", false
}

// Match returns the face that best fits a font-family list, trying each
// family in order. Generic keywords go through the bindings. Within a family
// the closest stretch wins, then style, then weight per the CSS matching
// rules.
func (c *Catalog) Match(families []string, weight uint16, italic bool) (*Face, bool) {
	for _, fam := range families {
		fam = strings.Trim(strings.TrimSpace(fam), `"'`)
		if bound, ok := c.Generic(fam); ok {
			fam = bound
		}
		if fam == "" {
			continue
		}

		var candidates []*Face
		for _, f := range c.faces {
			if f.hasFamily(fam) {
				candidates = append(candidates, f)
			}
		}
		if len(candidates) > 0 {
			return bestFace(candidates, weight, italic), true
		}
	}
	return nil, false
}

func (f *Face) hasFamily(name string) bool {
	for _, fam := range f.Families {
		if strings.EqualFold(fam.Name, name) {
			return true
		}
	}
	return false
}

func bestFace(faces []*Face, weight uint16, italic bool) *Face {
	best := faces[0]
	for _, f := range faces[1:] {
		if faceLess(f, best, weight, italic) {
			best = f
		}
	}
	return best
}

// faceLess reports whether a is a better match than b.
func faceLess(a, b *Face, weight uint16, italic bool) bool {
	if da, db := stretchDistance(a.Stretch), stretchDistance(b.Stretch); da != db {
		return da < db
	}
	if sa, sb := styleRank(a.Style, italic), styleRank(b.Style, italic); sa != sb {
		return sa < sb
	}
	return weightRank(a.Weight, weight) < weightRank(b.Weight, weight)
}

func stretchDistance(s Stretch) int {
	d := int(s) - int(StretchNormal)
	if d < 0 {
		// Narrower faces are preferred over wider ones at equal distance.
		return -2 * d
	}
	return 2*d + 1
}

func styleRank(s Style, italic bool) int {
	if italic {
		switch s {
		case StyleItalic:
			return 0
		case StyleOblique:
			return 1
		default:
			return 2
		}
	}
	switch s {
	case StyleNormal:
		return 0
	case StyleOblique:
		return 1
	default:
		return 2
	}
}

// weightRank orders weights by the CSS font matching algorithm: lower is
// better.
func weightRank(have, want uint16) float64 {
	h, w := float64(have), float64(want)
	switch {
	case h == w:
		return 0
	case w >= 400 && w <= 500:
		if h >= w && h <= 500 {
			return h - w
		}
		if h < w {
			return 1000 + (w - h)
		}
		return 2000 + (h - w)
	case w < 400:
		if h <= w {
			return w - h
		}
		return 1000 + (h - w)
	default:
		if h >= w {
			return h - w
		}
		return 1000 + (w - h)
	}
}

// Open returns the parsed outline font of a face. Fonts are parsed once per
// catalog.
func (c *Catalog) Open(f *Face) (*sfnt.Font, error) {
	key := fmt.Sprintf("%s#%d", f.Source, f.Index)

	c.mu.Lock()
	defer c.mu.Unlock()
	if fnt, ok := c.opened[key]; ok {
		return fnt, nil
	}

	data, err := os.ReadFile(f.Source)
	if err != nil {
		return nil, err
	}
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, err
	}
	fnt, err := coll.Font(f.Index)
	if err != nil {
		return nil, err
	}
	c.opened[key] = fnt
	return fnt, nil
}

// Descriptors lists file-backed faces as
//
//	path: 'Family (Language, Region)', index, Style, weight, Stretch
//
// Generic bindings have no backing file and are never listed.
func (c *Catalog) Descriptors() []string {
	out := make([]string, 0, len(c.faces))
	for _, f := range c.faces {
		if f.Source == "" {
			continue
		}
		names := make([]string, 0, len(f.Families))
		for _, fam := range f.Families {
			names = append(names, fmt.Sprintf("%s (%s)", fam.Name, describeLanguage(fam.Language)))
		}
		out = append(out, fmt.Sprintf("%s: '%s', %d, %s, %d, %s",
			f.Source, strings.Join(names, "', '"), f.Index, f.Style, f.Weight, f.Stretch))
	}
	return out
}

// describeLanguage renders a tag as "English, United States".
func describeLanguage(tag language.Tag) string {
	base, _ := tag.Base()
	region, _ := tag.Region()
	return fmt.Sprintf("%s, %s",
		display.English.Languages().Name(base),
		display.English.Regions().Name(region))
}

// stretchFromRatio maps a width ratio (1 = normal) to the nearest class.
func stretchFromRatio(r float64) Stretch {
	if r <= 0 || math.IsNaN(r) {
		return StretchNormal
	}
	ratios := [...]float64{0.5, 0.625, 0.75, 0.875, 1, 1.125, 1.25, 1.5, 2}
	best, bestD := StretchNormal, math.Inf(1)
	for i, v := range ratios {
		if d := math.Abs(v - r); d < bestD {
			best, bestD = Stretch(i+1), d
		}
	}
	return best
}
