package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/options"
)

// configFlags binds the rendering flags of a command. Flag values live in
// raw and are only applied when the flag was set, so a config file value
// survives an unset flag.
type configFlags struct {
	path   string
	width  uint32
	height uint32
	zoom   float64
	raw    options.Raw
}

// addConfigFlags registers the rendering flags on cmd.
func addConfigFlags(cmd *cobra.Command) *configFlags {
	f := &configFlags{}
	fs := cmd.Flags()

	fs.StringVar(&f.path, "config", "", "TOML config file (default $XDG_CONFIG_HOME/svgpng/config.toml)")

	fs.Uint32Var(&f.width, "width", 0, "output width in pixels, height keeps the aspect ratio")
	fs.Uint32Var(&f.height, "height", 0, "output height in pixels, width keeps the aspect ratio")
	fs.Float64Var(&f.zoom, "zoom", 0, "scale the document size by this factor")
	fs.Float64Var(&f.raw.DPI, "dpi", 0, "resolution for physical units (default 96)")

	fs.StringVar(&f.raw.Background, "background", "", "background color, transparent when unset")
	fs.StringSliceVar(&f.raw.Languages, "languages", nil, "languages matched by systemLanguage (default en)")

	fs.StringVar(&f.raw.ShapeRendering, "shape-rendering", "", "optimizeSpeed, crispEdges or geometricPrecision")
	fs.StringVar(&f.raw.TextRendering, "text-rendering", "", "optimizeSpeed, optimizeLegibility or geometricPrecision")
	fs.StringVar(&f.raw.ImageRendering, "image-rendering", "", "optimizeQuality or optimizeSpeed")

	fs.StringVar(&f.raw.ResourcesDir, "resources-dir", "", "directory for relative image references")

	fs.StringVar(&f.raw.FontFamily, "font-family", "", "family for text without a matching font-family")
	fs.Float64Var(&f.raw.FontSize, "font-size", 0, "font size for text without font-size (default 12)")
	fs.StringVar(&f.raw.SerifFamily, "serif-family", "", "family bound to serif")
	fs.StringVar(&f.raw.SansSerifFamily, "sans-serif-family", "", "family bound to sans-serif")
	fs.StringVar(&f.raw.CursiveFamily, "cursive-family", "", "family bound to cursive")
	fs.StringVar(&f.raw.FantasyFamily, "fantasy-family", "", "family bound to fantasy")
	fs.StringVar(&f.raw.MonospaceFamily, "monospace-family", "", "family bound to monospace")

	fs.StringSliceVar(&f.raw.FontFiles, "font-file", nil, "font file to load (repeatable)")
	fs.StringSliceVar(&f.raw.FontDirs, "font-dir", nil, "font directory to scan (repeatable)")
	fs.BoolVar(&f.raw.SkipSystemFonts, "skip-system-fonts", false, "do not scan system font directories")

	return f
}

// resolve loads the config file and applies the flags that were set.
func (f *configFlags) resolve(cmd *cobra.Command) (options.Raw, error) {
	raw, err := f.load(loggerFromContext(cmd.Context()))
	if err != nil {
		return options.Raw{}, err
	}

	overrides := []struct {
		name  string
		apply func()
	}{
		{"width", func() { raw.Width = &f.width }},
		{"height", func() { raw.Height = &f.height }},
		{"zoom", func() { raw.Zoom = &f.zoom }},
		{"dpi", func() { raw.DPI = f.raw.DPI }},
		{"background", func() { raw.Background = f.raw.Background }},
		{"languages", func() { raw.Languages = f.raw.Languages }},
		{"shape-rendering", func() { raw.ShapeRendering = f.raw.ShapeRendering }},
		{"text-rendering", func() { raw.TextRendering = f.raw.TextRendering }},
		{"image-rendering", func() { raw.ImageRendering = f.raw.ImageRendering }},
		{"resources-dir", func() { raw.ResourcesDir = f.raw.ResourcesDir }},
		{"font-family", func() { raw.FontFamily = f.raw.FontFamily }},
		{"font-size", func() { raw.FontSize = f.raw.FontSize }},
		{"serif-family", func() { raw.SerifFamily = f.raw.SerifFamily }},
		{"sans-serif-family", func() { raw.SansSerifFamily = f.raw.SansSerifFamily }},
		{"cursive-family", func() { raw.CursiveFamily = f.raw.CursiveFamily }},
		{"fantasy-family", func() { raw.FantasyFamily = f.raw.FantasyFamily }},
		{"monospace-family", func() { raw.MonospaceFamily = f.raw.MonospaceFamily }},
		{"font-file", func() { raw.FontFiles = f.raw.FontFiles }},
		{"font-dir", func() { raw.FontDirs = f.raw.FontDirs }},
		{"skip-system-fonts", func() { raw.SkipSystemFonts = f.raw.SkipSystemFonts }},
	}
	for _, o := range overrides {
		if cmd.Flags().Changed(o.name) {
			o.apply()
		}
	}
	return raw, nil
}

// load reads the explicit config file, or the default one when it exists.
func (f *configFlags) load(logger *log.Logger) (options.Raw, error) {
	if f.path != "" {
		return loadConfig(f.path, logger)
	}
	dir, err := configDir()
	if err != nil {
		return options.Raw{}, nil
	}
	path := filepath.Join(dir, configFileName)
	if _, err := os.Stat(path); err != nil {
		return options.Raw{}, nil
	}
	return loadConfig(path, logger)
}

// loadConfig decodes a TOML config file. Unknown keys are reported but do
// not fail the load.
func loadConfig(path string, logger *log.Logger) (options.Raw, error) {
	var raw options.Raw
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return options.Raw{}, errors.Wrap(errors.ErrCodeConfigInvalid, err, "failed to load config %s", path)
	}
	for _, key := range md.Undecoded() {
		logger.Warn("unknown config key", "file", path, "key", key.String())
	}
	logger.Debug("loaded config", "file", path)
	return raw, nil
}
