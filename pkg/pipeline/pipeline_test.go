package pipeline

import (
	"bytes"
	"context"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/fontdb"
	"github.com/matzehuels/svgpng/pkg/observability"
	"github.com/matzehuels/svgpng/pkg/options"
)

const redSquare = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10" fill="red"/></svg>`

const withText = `<svg width="40" height="20"><text x="2" y="16" font-family="Go">Hi</text></svg>`

// countingFonts records catalog builds.
type countingFonts struct {
	mu    sync.Mutex
	calls int
}

func (c *countingFonts) Build(ctx context.Context, s options.FontSettings) (*fontdb.Catalog, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return fontdb.NewBuilder(nil).Build(ctx, s)
}

func newTestRunner() (*Runner, *countingFonts) {
	fonts := &countingFonts{}
	r := NewRunner(nil)
	r.Fonts = fonts
	return r, fonts
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func u32(v uint32) *uint32    { return &v }
func f64(v float64) *float64 { return &v }

func TestRenderFileToFile(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		data []byte
	}{
		{"svg", []byte(redSquare)},
		{"svgz", gzipped(t, redSquare)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeFile(t, dir, "in."+tt.name, tt.data)
			dst := filepath.Join(dir, tt.name+".png")

			r, fonts := newTestRunner()
			if err := r.RenderFileToFile(context.Background(), src, dst, options.Raw{}); err != nil {
				t.Fatalf("RenderFileToFile() error = %v", err)
			}
			if fonts.calls != 0 {
				t.Errorf("font catalog built %d times for a document without text", fonts.calls)
			}

			f, err := os.Open(dst)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			img, err := png.Decode(f)
			if err != nil {
				t.Fatalf("output is not a PNG: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
				t.Errorf("size = %v, want 10x10", b)
			}
			if r, g, b, a := img.At(5, 5).RGBA(); r != 0xffff || g != 0 || b != 0 || a != 0xffff {
				t.Errorf("pixel = %x %x %x %x, want opaque red", r, g, b, a)
			}
		})
	}
}

func TestRenderTextToBuffer(t *testing.T) {
	r, _ := newTestRunner()
	doc := `<svg width="10" height="20"><rect width="10" height="20"/></svg>`

	out, err := r.RenderTextToBuffer(context.Background(), doc, options.Raw{
		ResourcesDir: t.TempDir(),
		Width:        u32(50),
	})
	if err != nil {
		t.Fatalf("RenderTextToBuffer() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 100 {
		t.Errorf("size = %v, want 50x100", b)
	}
}

func TestRenderTextToFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.png")
	r, _ := newTestRunner()
	if err := r.RenderTextToFile(context.Background(), redSquare, dst, options.Raw{ResourcesDir: dir}); err != nil {
		t.Fatalf("RenderTextToFile() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("output does not start with the PNG signature")
	}
}

func TestRenderBuildsFontsOnlyForText(t *testing.T) {
	dir := t.TempDir()
	font := writeFile(t, dir, "Go-Regular.ttf", goregular.TTF)
	raw := options.Raw{ResourcesDir: dir, SkipSystemFonts: true, FontFiles: []string{font}}

	tests := []struct {
		name  string
		doc   string
		calls int
	}{
		{"shapes only", redSquare, 0},
		{"blank text", `<svg width="10" height="10"><text>  </text></svg>`, 0},
		{"text", withText, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fonts := newTestRunner()
			if _, err := r.RenderTextToBuffer(context.Background(), tt.doc, raw); err != nil {
				t.Fatalf("RenderTextToBuffer() error = %v", err)
			}
			if fonts.calls != tt.calls {
				t.Errorf("catalog builds = %d, want %d", fonts.calls, tt.calls)
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	badFont := writeFile(t, dir, "broken.ttf", []byte("nope"))

	tests := []struct {
		name string
		data []byte
		raw  options.Raw
		dst  string
		code errors.Code
	}{
		{"bad gzip", []byte{0x1f, 0x8b, 0x00, 0x01}, options.Raw{}, "", errors.ErrCodeFormatDecompress},
		{"not utf8", []byte("<svg>\xff</svg>"), options.Raw{}, "", errors.ErrCodeFormatEncoding},
		{"not svg", []byte("<html/>"), options.Raw{}, "", errors.ErrCodeFormatParse},
		{"malformed", []byte("<svg><g></svg>"), options.Raw{}, "", errors.ErrCodeFormatParse},
		{"zero width document", []byte(`<svg width="0" height="10"/>`), options.Raw{}, "", errors.ErrCodeGeometryZeroSize},
		{"zero target width", []byte(redSquare), options.Raw{Width: u32(0)}, "", errors.ErrCodeGeometryZeroSize},
		{"huge document", []byte(`<svg width="100000" height="100000"/>`), options.Raw{}, "", errors.ErrCodeGeometryTooLarge},
		{"huge zoom", []byte(redSquare), options.Raw{Zoom: f64(1e6)}, "", errors.ErrCodeGeometryTooLarge},
		{"bad background", []byte(redSquare), options.Raw{Background: "nope"}, "", errors.ErrCodeConfigColor},
		{"bad font file", []byte(withText), options.Raw{SkipSystemFonts: true, FontFiles: []string{badFont}}, "", errors.ErrCodeIOFont},
		{"unwritable output", []byte(redSquare), options.Raw{}, filepath.Join(dir, "missing", "out.png"), errors.ErrCodeEncode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeFile(t, dir, "in.svg", tt.data)
			dst := tt.dst
			if dst == "" {
				dst = filepath.Join(dir, "out.png")
			}
			r, _ := newTestRunner()
			err := r.RenderFileToFile(context.Background(), src, dst, tt.raw)
			if !errors.Is(err, tt.code) {
				t.Errorf("RenderFileToFile() error = %v, want %s", err, tt.code)
			}
		})
	}

	t.Run("missing source", func(t *testing.T) {
		r, _ := newTestRunner()
		src := filepath.Join(dir, "nope.svg")
		err := r.RenderFileToFile(context.Background(), src, filepath.Join(dir, "out.png"), options.Raw{})
		if !errors.Is(err, errors.ErrCodeIORead) {
			t.Fatalf("error = %v, want %s", err, errors.ErrCodeIORead)
		}
		if !strings.Contains(err.Error(), src) {
			t.Errorf("error %q does not name the source", err)
		}
	})
}

func TestRenderTooLarge(t *testing.T) {
	tests := []struct {
		name string
		raw  options.Raw
	}{
		{"max box", options.Raw{Width: u32(math.MaxUint32), Height: u32(math.MaxUint32)}},
		{"max width", options.Raw{Width: u32(math.MaxUint32)}},
		{"just over", options.Raw{Width: u32(32768), Height: u32(16384)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRunner()
			tt.raw.ResourcesDir = t.TempDir()
			out, err := r.RenderTextToBuffer(context.Background(), redSquare, tt.raw)
			if !errors.Is(err, errors.ErrCodeGeometryTooLarge) {
				t.Fatalf("RenderTextToBuffer() error = %v, want %s", err, errors.ErrCodeGeometryTooLarge)
			}
			if out != nil {
				t.Errorf("RenderTextToBuffer() returned %d bytes on failure", len(out))
			}
		})
	}
}

func TestRenderTextRequiresResourcesDir(t *testing.T) {
	r, fonts := newTestRunner()
	dst := filepath.Join(t.TempDir(), "out.png")

	if _, err := r.RenderTextToBuffer(context.Background(), withText, options.Raw{}); !errors.Is(err, errors.ErrCodeConfigResourcesDir) {
		t.Errorf("RenderTextToBuffer() error = %v, want %s", err, errors.ErrCodeConfigResourcesDir)
	}
	if err := r.RenderTextToFile(context.Background(), withText, dst, options.Raw{}); !errors.Is(err, errors.ErrCodeConfigResourcesDir) {
		t.Errorf("RenderTextToFile() error = %v, want %s", err, errors.ErrCodeConfigResourcesDir)
	}
	if fonts.calls != 0 {
		t.Errorf("catalog built before configuration was rejected")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Errorf("output written despite configuration error")
	}
}

func TestListFonts(t *testing.T) {
	r, _ := newTestRunner()

	got, err := r.ListFonts(context.Background(), options.Raw{SkipSystemFonts: true})
	if err != nil {
		t.Fatalf("ListFonts() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListFonts() = %v, want empty", got)
	}

	font := writeFile(t, t.TempDir(), "Go-Regular.ttf", goregular.TTF)
	got, err = r.ListFonts(context.Background(), options.Raw{SkipSystemFonts: true, FontFiles: []string{font}})
	if err != nil {
		t.Fatalf("ListFonts() error = %v", err)
	}
	if len(got) != 1 || !strings.HasPrefix(got[0], font+": 'Go (") {
		t.Errorf("ListFonts() = %v", got)
	}

	if _, err := r.ListFonts(context.Background(), options.Raw{SkipSystemFonts: true, FontFiles: []string{font + ".missing"}}); !errors.Is(err, errors.ErrCodeIOFont) {
		t.Errorf("ListFonts() error = %v, want %s", err, errors.ErrCodeIOFont)
	}
}

func TestQuery(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "q.svg", []byte(`<svg width="200" height="100" viewBox="0 0 100 50">
  <rect id="a" x="10" y="10" width="20" height="10"/>
  <g><rect id="nested" width="1" height="1"/></g>
  <rect width="5" height="5"/>
  <g id="empty"/>
  <circle id="c" cx="50" cy="25" r="5" stroke="black" stroke-width="2"/>
  <g id="group" transform="translate(5,5)"><rect width="1" height="1"/><rect x="4" y="4" width="1" height="1"/></g>
</svg>`))

	r, _ := newTestRunner()
	got, err := r.Query(context.Background(), src, options.Raw{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	want := []NodeBox{
		{ID: "a", X: 20, Y: 20, Width: 40, Height: 20},
		{ID: "c", X: 88, Y: 38, Width: 24, Height: 24},
		{ID: "group", X: 10, Y: 10, Width: 10, Height: 10},
	}
	if !slices.Equal(got, want) {
		t.Errorf("Query() = %+v, want %+v", got, want)
	}
}

func TestQueryRounding(t *testing.T) {
	src := writeFile(t, t.TempDir(), "q.svg", []byte(`<svg width="10" height="10"><rect id="p" x="1.0005" width="1" height="1"/></svg>`))

	r, _ := newTestRunner()
	got, err := r.Query(context.Background(), src, options.Raw{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("Query() = %+v", got)
	}
	// 1.0005 is not exactly representable; either neighbor is a correct
	// three-decimal rounding.
	if x := got[0].X; x != 1.0 && x != 1.001 {
		t.Errorf("X = %v, want 1.0 or 1.001", x)
	}
}

func TestQueryErrors(t *testing.T) {
	r, _ := newTestRunner()
	if _, err := r.Query(context.Background(), filepath.Join(t.TempDir(), "none.svg"), options.Raw{}); !errors.Is(err, errors.ErrCodeIORead) {
		t.Errorf("Query() error = %v, want %s", err, errors.ErrCodeIORead)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	stages []string
}

func (h *recordingHooks) OnStageComplete(_ context.Context, _, stage string, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages = append(h.stages, stage)
}

func TestStageHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	r, _ := newTestRunner()
	if _, err := r.RenderTextToBuffer(context.Background(), redSquare, options.Raw{ResourcesDir: t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	want := []string{StageOptions, StageLoad, StageDecode, StageParse, StageTree, StageRasterize, StageEncode}
	if !slices.Equal(hooks.stages, want) {
		t.Errorf("stages = %v, want %v", hooks.stages, want)
	}
}
