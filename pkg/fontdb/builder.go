package fontdb

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"golang.org/x/text/language"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/observability"
	"github.com/matzehuels/svgpng/pkg/options"
)

var errUnnamedFace = stderrors.New("face has no family name")

// Family names are recorded in US English.
var familyLanguage = language.AmericanEnglish

// fontExtensions are the file types picked up when scanning directories.
var fontExtensions = map[string]bool{
	".ttf": true,
	".otf": true,
	".ttc": true,
	".otc": true,
}

// Builder constructs catalogs. A Builder holds no catalog state and can be
// shared across concurrent calls.
type Builder struct {
	Logger *log.Logger

	// SystemDirs lists the platform font directories. Nil uses
	// DefaultSystemDirs.
	SystemDirs func() []string
}

// NewBuilder returns a builder that logs to logger. A nil logger discards.
func NewBuilder(logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Builder{Logger: logger}
}

// Build loads fonts in order: system fonts (unless skipped), explicit font
// files, font directories, then the generic family bindings. An unreadable
// explicit file fails the build with IO_FONT; bad system fonts and bad
// directories are skipped.
func (b *Builder) Build(ctx context.Context, s options.FontSettings) (*Catalog, error) {
	logger := b.logger()
	cat := newCatalog()

	if !s.SkipSystem {
		start := time.Now()
		before := cat.Len()
		for _, dir := range b.systemDirs() {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			b.loadDir(ctx, cat, dir)
		}
		n := cat.Len() - before
		logger.Debug("system fonts loaded", "faces", n, "elapsed", time.Since(start))
		observability.Fonts().OnScan(ctx, "system", n, time.Since(start))
	}

	for _, path := range s.Files {
		start := time.Now()
		faces, err := b.loadFile(ctx, path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeIOFont, err, "failed to load font file %s", path)
		}
		cat.faces = append(cat.faces, faces...)
		observability.Fonts().OnScan(ctx, "file", len(faces), time.Since(start))
	}

	for _, dir := range s.Dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		n := b.loadDir(ctx, cat, dir)
		observability.Fonts().OnScan(ctx, "dir", n, time.Since(start))
	}

	cat.generics = s.Generics
	logger.Debug("font catalog built", "faces", cat.Len())
	return cat, nil
}

func (b *Builder) logger() *log.Logger {
	if b.Logger == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return b.Logger
}

func (b *Builder) systemDirs() []string {
	if b.SystemDirs != nil {
		return b.SystemDirs()
	}
	return DefaultSystemDirs()
}

// loadDir adds every parseable font under dir and returns the number of
// faces added. Nothing under dir can fail the build.
func (b *Builder) loadDir(ctx context.Context, cat *Catalog, dir string) int {
	n := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			observability.Fonts().OnSkip(ctx, path, err)
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !fontExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		faces, err := b.loadFile(ctx, path)
		if err != nil {
			b.logger().Debug("skipping font", "path", path, "err", err)
			observability.Fonts().OnSkip(ctx, path, err)
			return nil
		}
		cat.faces = append(cat.faces, faces...)
		n += len(faces)
		return nil
	})
	if err != nil {
		observability.Fonts().OnSkip(ctx, dir, err)
	}
	return n
}

// loadFile parses every named face of a font file or collection. Faces
// without a family name are reported as skipped; a file with no named face
// is an error.
func (b *Builder) loadFile(ctx context.Context, path string) ([]*Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	loaders, err := ot.NewLoaders(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var (
		faces = make([]*Face, 0, len(loaders))
		buf   []byte
		desc  font.Description
	)
	for i, ld := range loaders {
		desc, buf = font.Describe(ld, buf)
		if strings.TrimSpace(desc.Family) == "" {
			face := fmt.Sprintf("%s#%d", path, i)
			b.logger().Debug("skipping face without a family name", "face", face)
			observability.Fonts().OnSkip(ctx, face, errUnnamedFace)
			continue
		}
		faces = append(faces, &Face{
			Source:   path,
			Index:    i,
			Families: []Family{{Name: desc.Family, Language: familyLanguage}},
			Style:    styleOf(desc.Aspect.Style),
			Weight:   weightOf(desc.Aspect.Weight),
			Stretch:  stretchFromRatio(float64(desc.Aspect.Stretch)),
		})
	}
	if len(faces) == 0 {
		return nil, errors.New(errors.ErrCodeIOFont, "no usable faces in %s", path)
	}
	return faces, nil
}

func styleOf(s font.Style) Style {
	if s == font.StyleItalic {
		return StyleItalic
	}
	return StyleNormal
}

func weightOf(w font.Weight) uint16 {
	if w <= 0 || w > 1000 {
		return 400
	}
	return uint16(w + 0.5)
}

// DefaultSystemDirs returns the conventional font directories of the
// running platform.
func DefaultSystemDirs() []string {
	home, _ := os.UserHomeDir()
	var dirs []string
	switch runtime.GOOS {
	case "darwin":
		dirs = []string{"/System/Library/Fonts", "/Library/Fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Fonts"))
		}
	case "windows":
		root := os.Getenv("WINDIR")
		if root == "" {
			root = `C:\Windows`
		}
		dirs = []string{filepath.Join(root, "Fonts")}
	default:
		dirs = []string{"/usr/share/fonts", "/usr/local/share/fonts"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".local", "share", "fonts"), filepath.Join(home, ".fonts"))
		}
	}
	return dirs
}
