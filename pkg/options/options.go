// Package options turns a raw configuration payload into a validated,
// immutable rendering plan.
//
// The raw payload (Raw) is what callers send: every field is optional and
// loosely typed. Resolve validates it against the input origin and produces
// a Plan, which the pipeline reads for the rest of the call. Resolve does no
// I/O besides canonicalizing the input path of a FromFile origin.
//
//	plan, err := options.Resolve(options.FromFile("in.svg"), raw)
//	if err != nil {
//	    return err // always a CONFIG_* error
//	}
//	dir, err := plan.ResourcesDir()
package options

import (
	stdcolor "image/color"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"

	"github.com/matzehuels/svgpng/pkg/color"
	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/fit"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultDPI is the resolution used to convert physical units to pixels.
	DefaultDPI = 96.0

	// DefaultFontFamily is used for text without a matching font-family.
	DefaultFontFamily = "Times New Roman"

	// DefaultFontSize is the font size of text without a font-size.
	DefaultFontSize = 12.0

	// DefaultDocumentSize is used when a document declares no size and the
	// sizing mode does not provide one.
	DefaultDocumentSize = 100.0
)

// DefaultLanguages is the language list when none is given.
var DefaultLanguages = []string{"en"}

// Default generic family bindings.
const (
	DefaultSerif     = "Times New Roman"
	DefaultSansSerif = "Arial"
	DefaultCursive   = "Comic Sans MS"
	DefaultFantasy   = "Impact"
	DefaultMonospace = "Courier New"
)

// =============================================================================
// Raw - Caller Configuration
// =============================================================================

// Raw is the configuration payload of a call. All fields are optional.
// The same struct is decoded from host JSON requests and TOML config files.
type Raw struct {
	Width  *uint32  `json:"width,omitempty" toml:"width"`
	Height *uint32  `json:"height,omitempty" toml:"height"`
	Zoom   *float64 `json:"zoom,omitempty" toml:"zoom"`
	DPI    float64  `json:"dpi,omitempty" toml:"dpi"`

	Background string   `json:"background,omitempty" toml:"background"`
	Languages  []string `json:"languages,omitempty" toml:"languages"`

	ShapeRendering string `json:"shape_rendering,omitempty" toml:"shape_rendering"`
	TextRendering  string `json:"text_rendering,omitempty" toml:"text_rendering"`
	ImageRendering string `json:"image_rendering,omitempty" toml:"image_rendering"`

	ResourcesDir string `json:"resources_dir,omitempty" toml:"resources_dir"`

	FontFamily string  `json:"font_family,omitempty" toml:"font_family"`
	FontSize   float64 `json:"font_size,omitempty" toml:"font_size"`

	SerifFamily     string `json:"serif_family,omitempty" toml:"serif_family"`
	SansSerifFamily string `json:"sans_serif_family,omitempty" toml:"sans_serif_family"`
	CursiveFamily   string `json:"cursive_family,omitempty" toml:"cursive_family"`
	FantasyFamily   string `json:"fantasy_family,omitempty" toml:"fantasy_family"`
	MonospaceFamily string `json:"monospace_family,omitempty" toml:"monospace_family"`

	FontFiles       []string `json:"font_files,omitempty" toml:"font_files"`
	FontDirs        []string `json:"font_dirs,omitempty" toml:"font_dirs"`
	SkipSystemFonts bool     `json:"skip_system_fonts,omitempty" toml:"skip_system_fonts"`
}

// =============================================================================
// Origin - Where the Document Comes From
// =============================================================================

// OriginKind identifies an input origin variant.
type OriginKind int

const (
	OriginNone OriginKind = iota
	OriginFile
	OriginText
)

// Origin is a closed variant: FromFile, FromText or NoInput.
type Origin struct {
	kind OriginKind
	path string
}

// FromFile is a document read from path.
func FromFile(path string) Origin { return Origin{kind: OriginFile, path: path} }

// FromText is a document passed inline.
func FromText() Origin { return Origin{kind: OriginText} }

// NoInput is a call without a document, such as font listing.
func NoInput() Origin { return Origin{kind: OriginNone} }

// Kind returns the variant.
func (o Origin) Kind() OriginKind { return o.kind }

// Path returns the input path of a FromFile origin.
func (o Origin) Path() string { return o.path }

// =============================================================================
// Plan - Resolved Configuration
// =============================================================================

// FontSettings controls font catalog construction.
type FontSettings struct {
	Files      []string
	Dirs       []string
	SkipSystem bool
	Generics   Generics
}

// Generics binds the five CSS generic families to concrete family names.
type Generics struct {
	Serif     string
	SansSerif string
	Cursive   string
	Fantasy   string
	Monospace string
}

// Plan is the validated configuration of one call. It is never mutated
// after Resolve returns.
type Plan struct {
	Sizing      fit.Mode
	DefaultSize [2]float64
	DPI         float64
	Background  *stdcolor.NRGBA
	Languages   []language.Tag

	ShapeRendering ShapeRendering
	TextRendering  TextRendering
	ImageRendering ImageRendering

	FontFamily string
	FontSize   float64
	Fonts      FontSettings

	resourcesDir    string
	resourcesDirErr error
}

// ResourcesDir returns the directory relative references resolve against,
// or the configuration error recorded when it could not be determined.
func (p *Plan) ResourcesDir() (string, error) {
	if p.resourcesDirErr != nil {
		return "", p.resourcesDirErr
	}
	return p.resourcesDir, nil
}

// =============================================================================
// Resolve
// =============================================================================

// Resolve validates raw for the given origin. Every failure is a CONFIG_*
// error and is reported before any document or font I/O happens.
func Resolve(origin Origin, raw Raw) (*Plan, error) {
	plan := &Plan{
		DPI:        DefaultDPI,
		FontFamily: DefaultFontFamily,
		FontSize:   DefaultFontSize,
	}

	sizing, defaultSize, err := resolveSizing(raw)
	if err != nil {
		return nil, err
	}
	plan.Sizing = sizing
	plan.DefaultSize = defaultSize

	if raw.DPI != 0 {
		if raw.DPI < 0 {
			return nil, errors.New(errors.ErrCodeConfigInvalid, "dpi must be positive, got %g", raw.DPI)
		}
		plan.DPI = raw.DPI
	}

	if raw.FontSize != 0 {
		if raw.FontSize < 0 {
			return nil, errors.New(errors.ErrCodeConfigInvalid, "font_size must be positive, got %g", raw.FontSize)
		}
		plan.FontSize = raw.FontSize
	}

	if raw.FontFamily != "" {
		if err := errors.ValidateFamilyName("font_family", raw.FontFamily); err != nil {
			return nil, err
		}
		plan.FontFamily = raw.FontFamily
	}

	if raw.Background != "" {
		c, err := color.Parse(raw.Background)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigColor, err, "invalid background color %q", raw.Background)
		}
		plan.Background = &c
	}

	if plan.Languages, err = resolveLanguages(raw.Languages); err != nil {
		return nil, err
	}

	if plan.ShapeRendering, err = ParseShapeRendering(raw.ShapeRendering); err != nil {
		return nil, err
	}
	if plan.TextRendering, err = ParseTextRendering(raw.TextRendering); err != nil {
		return nil, err
	}
	if plan.ImageRendering, err = ParseImageRendering(raw.ImageRendering); err != nil {
		return nil, err
	}

	if plan.Fonts, err = resolveFonts(raw); err != nil {
		return nil, err
	}

	plan.resourcesDir, plan.resourcesDirErr = resolveResourcesDir(origin, raw.ResourcesDir)
	return plan, nil
}

// resolveSizing derives the sizing mode. Width and height together win over
// width alone, then height alone, then zoom.
func resolveSizing(raw Raw) (fit.Mode, [2]float64, error) {
	def := [2]float64{DefaultDocumentSize, DefaultDocumentSize}

	if raw.Zoom != nil && *raw.Zoom < 0 {
		return fit.Mode{}, def, errors.New(errors.ErrCodeConfigInvalid, "zoom must not be negative, got %g", *raw.Zoom)
	}

	switch {
	case raw.Width != nil && raw.Height != nil:
		w, h := *raw.Width, *raw.Height
		return fit.Box(w, h), [2]float64{float64(w), float64(h)}, nil
	case raw.Width != nil:
		return fit.Width(*raw.Width), [2]float64{float64(*raw.Width), DefaultDocumentSize}, nil
	case raw.Height != nil:
		return fit.Height(*raw.Height), [2]float64{DefaultDocumentSize, float64(*raw.Height)}, nil
	case raw.Zoom != nil:
		return fit.Zoom(*raw.Zoom), def, nil
	default:
		return fit.Original(), def, nil
	}
}

// resolveResourcesDir applies the origin rules. An explicit directory is
// used verbatim.
func resolveResourcesDir(origin Origin, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	switch origin.Kind() {
	case OriginFile:
		abs, err := filepath.Abs(origin.Path())
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeConfigResourcesDir, err, "cannot resolve %s", origin.Path())
		}
		// Canonicalize when the file exists; a missing file is reported
		// later as an IO error naming the path.
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		return filepath.Dir(abs), nil
	default:
		return "", errors.New(errors.ErrCodeConfigResourcesDir,
			"resources_dir is required when the document is not read from a file")
	}
}

func resolveLanguages(raw []string) ([]language.Tag, error) {
	if len(raw) == 0 {
		raw = DefaultLanguages
	}
	tags := make([]language.Tag, 0, len(raw))
	for _, s := range raw {
		tag, err := language.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfigLanguage, err, "invalid language tag %q", s)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func resolveFonts(raw Raw) (FontSettings, error) {
	if err := errors.ValidatePaths("font_files", raw.FontFiles); err != nil {
		return FontSettings{}, err
	}
	if err := errors.ValidatePaths("font_dirs", raw.FontDirs); err != nil {
		return FontSettings{}, err
	}

	generics := Generics{
		Serif:     orDefault(raw.SerifFamily, DefaultSerif),
		SansSerif: orDefault(raw.SansSerifFamily, DefaultSansSerif),
		Cursive:   orDefault(raw.CursiveFamily, DefaultCursive),
		Fantasy:   orDefault(raw.FantasyFamily, DefaultFantasy),
		Monospace: orDefault(raw.MonospaceFamily, DefaultMonospace),
	}
	for field, name := range map[string]string{
		"serif_family":      generics.Serif,
		"sans_serif_family": generics.SansSerif,
		"cursive_family":    generics.Cursive,
		"fantasy_family":    generics.Fantasy,
		"monospace_family":  generics.Monospace,
	} {
		if err := errors.ValidateFamilyName(field, name); err != nil {
			return FontSettings{}, err
		}
	}

	return FontSettings{
		Files:      append([]string(nil), raw.FontFiles...),
		Dirs:       append([]string(nil), raw.FontDirs...),
		SkipSystem: raw.SkipSystemFonts,
		Generics:   generics,
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
