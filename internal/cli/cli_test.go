package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/host"
	"github.com/matzehuels/svgpng/pkg/pipeline"
)

const square = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect id="a" x="2" y="2" width="6" height="6" fill="red"/></svg>`

type result struct {
	out  string
	logs string
	err  error
}

// isolate points the default config lookup at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut, logs bytes.Buffer
	c := New(&logs, LogInfo)
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return result{out: out.String(), logs: logs.String(), err: err}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func pngSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestRenderCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "in.svg", square)

	t.Run("file to file", func(t *testing.T) {
		dst := filepath.Join(dir, "out.png")
		res := execute(t, "", "render", in, dst, "--width", "20")
		if res.err != nil {
			t.Fatalf("render error = %v", res.err)
		}
		if !strings.Contains(res.out, "Rendered") || !strings.Contains(res.out, dst) {
			t.Errorf("output = %q", res.out)
		}
		data, err := os.ReadFile(dst)
		if err != nil {
			t.Fatal(err)
		}
		if w, h := pngSize(t, data); w != 20 || h != 20 {
			t.Errorf("size = %dx%d, want 20x20", w, h)
		}
	})

	t.Run("stdin to stdout", func(t *testing.T) {
		res := execute(t, square, "render", "-", "-", "--zoom", "3")
		if res.err != nil {
			t.Fatalf("render error = %v", res.err)
		}
		if w, h := pngSize(t, []byte(res.out)); w != 30 || h != 30 {
			t.Errorf("size = %dx%d, want 30x30", w, h)
		}
	})

	t.Run("stdin to file", func(t *testing.T) {
		dst := filepath.Join(dir, "stdin.png")
		if res := execute(t, square, "render", "-", dst); res.err != nil {
			t.Fatalf("render error = %v", res.err)
		}
		if _, err := os.Stat(dst); err != nil {
			t.Error(err)
		}
	})

	t.Run("file to stdout", func(t *testing.T) {
		res := execute(t, "", "render", in, "-")
		if res.err != nil {
			t.Fatalf("render error = %v", res.err)
		}
		if w, h := pngSize(t, []byte(res.out)); w != 10 || h != 10 {
			t.Errorf("size = %dx%d, want 10x10", w, h)
		}
	})

	t.Run("missing input", func(t *testing.T) {
		res := execute(t, "", "render", filepath.Join(dir, "none.svg"), filepath.Join(dir, "none.png"))
		if !errors.Is(res.err, errors.ErrCodeIORead) {
			t.Errorf("render error = %v, want %s", res.err, errors.ErrCodeIORead)
		}
	})

	t.Run("bad flag value", func(t *testing.T) {
		res := execute(t, "", "render", in, filepath.Join(dir, "bad.png"), "--shape-rendering", "blurry")
		if !errors.Is(res.err, errors.ErrCodeConfigRenderingMode) {
			t.Errorf("render error = %v, want %s", res.err, errors.ErrCodeConfigRenderingMode)
		}
	})
}

func TestConfigFile(t *testing.T) {
	home := isolate(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "in.svg", square)
	cfg := writeFile(t, dir, "svgpng.toml", "width = 6\nbackground = \"white\"\ncolour = \"blue\"\n")

	res := execute(t, "", "render", "--config", cfg, in, "-")
	if res.err != nil {
		t.Fatalf("render error = %v", res.err)
	}
	img, err := png.Decode(strings.NewReader(res.out))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 6 {
		t.Errorf("width = %d, want 6 from config", b.Dx())
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0xffff {
		t.Error("background from config not applied")
	}
	if !strings.Contains(res.logs, "colour") {
		t.Errorf("unknown key not reported: %q", res.logs)
	}

	t.Run("flag overrides file", func(t *testing.T) {
		res := execute(t, "", "render", "--config", cfg, "--width", "4", in, "-")
		if res.err != nil {
			t.Fatalf("render error = %v", res.err)
		}
		if w, _ := pngSize(t, []byte(res.out)); w != 4 {
			t.Errorf("width = %d, want 4", w)
		}
	})

	t.Run("default location", func(t *testing.T) {
		if err := os.MkdirAll(filepath.Join(home, appName), 0o755); err != nil {
			t.Fatal(err)
		}
		writeFile(t, filepath.Join(home, appName), configFileName, "zoom = 2.0\n")
		res := execute(t, "", "render", in, "-")
		if res.err != nil {
			t.Fatalf("render error = %v", res.err)
		}
		if w, _ := pngSize(t, []byte(res.out)); w != 20 {
			t.Errorf("width = %d, want 20", w)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.toml", "width = [")
		res := execute(t, "", "render", "--config", bad, in, "-")
		if !errors.Is(res.err, errors.ErrCodeConfigInvalid) {
			t.Errorf("render error = %v, want %s", res.err, errors.ErrCodeConfigInvalid)
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		res := execute(t, "", "render", "--config", filepath.Join(dir, "nope.toml"), in, "-")
		if !errors.Is(res.err, errors.ErrCodeConfigInvalid) {
			t.Errorf("render error = %v, want %s", res.err, errors.ErrCodeConfigInvalid)
		}
	})
}

func TestConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/custom-config")
	dir, err := configDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/custom-config", appName); dir != want {
		t.Errorf("configDir() = %q, want %q", dir, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	dir, err = configDir()
	if err != nil {
		t.Fatal(err)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".config", appName); dir != want {
		t.Errorf("configDir() = %q, want %q", dir, want)
	}
}

func TestFontsCommand(t *testing.T) {
	isolate(t)
	font := filepath.Join(t.TempDir(), "Go-Regular.ttf")
	if err := os.WriteFile(font, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}

	res := execute(t, "", "fonts", "--skip-system-fonts", "--font-file", font, "--json")
	if res.err != nil {
		t.Fatalf("fonts error = %v", res.err)
	}
	var fonts []string
	if err := json.Unmarshal([]byte(res.out), &fonts); err != nil {
		t.Fatalf("bad JSON %q: %v", res.out, err)
	}
	if len(fonts) != 1 || !strings.HasPrefix(fonts[0], font+": 'Go") {
		t.Errorf("fonts = %v", fonts)
	}

	res = execute(t, "", "fonts", "--skip-system-fonts", "--font-file", font)
	if res.err != nil {
		t.Fatalf("fonts error = %v", res.err)
	}
	if !strings.Contains(res.out, "1 font faces") || !strings.Contains(res.out, font) {
		t.Errorf("output = %q", res.out)
	}

	res = execute(t, "", "fonts", "--skip-system-fonts", "--font-file", font+".missing")
	if !errors.Is(res.err, errors.ErrCodeIOFont) {
		t.Errorf("fonts error = %v, want %s", res.err, errors.ErrCodeIOFont)
	}
}

func TestQueryCommand(t *testing.T) {
	isolate(t)
	in := writeFile(t, t.TempDir(), "in.svg", square)

	res := execute(t, "", "query", in, "--json")
	if res.err != nil {
		t.Fatalf("query error = %v", res.err)
	}
	var boxes []pipeline.NodeBox
	if err := json.Unmarshal([]byte(res.out), &boxes); err != nil {
		t.Fatalf("bad JSON %q: %v", res.out, err)
	}
	want := pipeline.NodeBox{ID: "a", X: 2, Y: 2, Width: 6, Height: 6}
	if len(boxes) != 1 || boxes[0] != want {
		t.Errorf("boxes = %+v, want [%+v]", boxes, want)
	}

	res = execute(t, "", "query", in)
	if res.err != nil {
		t.Fatalf("query error = %v", res.err)
	}
	for _, s := range []string{"ID", "Width", "a", "6"} {
		if !strings.Contains(res.out, s) {
			t.Errorf("table missing %q:\n%s", s, res.out)
		}
	}

	empty := writeFile(t, t.TempDir(), "empty.svg", `<svg width="5" height="5"/>`)
	res = execute(t, "", "query", empty)
	if res.err != nil || !strings.Contains(res.out, "no elements") {
		t.Errorf("query = %q, %v", res.out, res.err)
	}
}

func TestServeCommand(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "in.svg", square)
	dst := filepath.Join(dir, "out.png")

	req, _ := json.Marshal(host.Request{ID: "r1", Op: host.OpRenderFile, Source: in, Dest: dst})
	stdin := string(req) + "\n" + `{"id":"r2","op":"nope"}` + "\n"

	res := execute(t, stdin, "serve", "--workers", "1")
	if res.err != nil {
		t.Fatalf("serve error = %v", res.err)
	}

	got := map[string]host.Response{}
	for _, line := range strings.Split(strings.TrimSpace(res.out), "\n") {
		var resp host.Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("bad response %q: %v", line, err)
		}
		got[resp.ID] = resp
	}
	if !got["r1"].OK() {
		t.Errorf("r1 = %v", got["r1"])
	}
	if got["r2"].Code != string(errors.ErrCodeConfigInvalid) {
		t.Errorf("r2 = %v", got["r2"])
	}
	if _, err := os.Stat(dst); err != nil {
		t.Error(err)
	}
}

func TestServeHTTP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}

	c := New(&bytes.Buffer{}, LogInfo)
	ctx, cancel := context.WithCancel(withLogger(context.Background(), c.Logger))
	done := make(chan error, 1)
	go func() { done <- c.serveHTTP(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serveHTTP() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestVersionAndCompletion(t *testing.T) {
	isolate(t)
	res := execute(t, "", "--version")
	if res.err != nil || !strings.Contains(res.out, "svgpng version") {
		t.Errorf("version = %q, %v", res.out, res.err)
	}

	res = execute(t, "", "completion", "bash")
	if res.err != nil || !strings.Contains(res.out, "svgpng") {
		t.Errorf("completion error = %v", res.err)
	}
}
