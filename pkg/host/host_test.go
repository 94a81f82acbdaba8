package host

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/options"
	"github.com/matzehuels/svgpng/pkg/pipeline"
)

const redSquare = `<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4"><rect width="4" height="4" fill="red"/></svg>`

// fakeRunner records calls and answers with canned values.
type fakeRunner struct {
	mu    sync.Mutex
	calls []string

	err   error
	delay time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeRunner) enter(op string) func() {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	f.mu.Unlock()

	n := f.active.Add(1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(f.delay)
	return func() { f.active.Add(-1) }
}

func (f *fakeRunner) RenderFileToFile(_ context.Context, src, dst string, _ options.Raw) error {
	defer f.enter(OpRenderFile)()
	if src == "panic" {
		panic("boom")
	}
	return f.err
}

func (f *fakeRunner) RenderTextToFile(context.Context, string, string, options.Raw) error {
	defer f.enter(OpRenderTextToFile)()
	return f.err
}

func (f *fakeRunner) RenderTextToBuffer(context.Context, string, options.Raw) ([]byte, error) {
	defer f.enter(OpRenderText)()
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png"), nil
}

func (f *fakeRunner) ListFonts(context.Context, options.Raw) ([]string, error) {
	defer f.enter(OpListFonts)()
	return []string{"a.ttf: 'A', 0, Normal, 400, Normal"}, f.err
}

func (f *fakeRunner) Query(context.Context, string, options.Raw) ([]pipeline.NodeBox, error) {
	defer f.enter(OpQuery)()
	return []pipeline.NodeBox{{ID: "a", Width: 1, Height: 1}}, f.err
}

func TestCall(t *testing.T) {
	d := NewDispatcher(&fakeRunner{}, nil)

	tests := []struct {
		name     string
		req      Request
		wantCode string
		check    func(t *testing.T, v any)
	}{
		{name: "render file", req: Request{ID: "1", Op: OpRenderFile, Source: "in.svg", Dest: "out.png"}},
		{name: "render text to file", req: Request{ID: "2", Op: OpRenderTextToFile, Text: redSquare, Dest: "out.png"}},
		{
			name: "render text",
			req:  Request{ID: "3", Op: OpRenderText, Text: redSquare},
			check: func(t *testing.T, v any) {
				if b, _ := v.([]byte); string(b) != "png" {
					t.Errorf("value = %v", v)
				}
			},
		},
		{
			name: "list fonts",
			req:  Request{ID: "4", Op: OpListFonts},
			check: func(t *testing.T, v any) {
				if l, _ := v.([]string); len(l) != 1 {
					t.Errorf("value = %v", v)
				}
			},
		},
		{
			name: "query",
			req:  Request{ID: "5", Op: OpQuery, Source: "in.svg"},
			check: func(t *testing.T, v any) {
				if l, _ := v.([]pipeline.NodeBox); len(l) != 1 || l[0].ID != "a" {
					t.Errorf("value = %v", v)
				}
			},
		},
		{name: "unknown op", req: Request{ID: "6", Op: "explode"}, wantCode: string(errors.ErrCodeConfigInvalid)},
		{name: "panic", req: Request{ID: "7", Op: OpRenderFile, Source: "panic", Dest: "out.png"}, wantCode: string(errors.ErrCodeInternal)},
		{name: "missing source", req: Request{ID: "8", Op: OpQuery}, wantCode: string(errors.ErrCodeConfigInvalid)},
		{name: "missing dest", req: Request{ID: "9", Op: OpRenderTextToFile, Text: redSquare}, wantCode: string(errors.ErrCodeConfigInvalid)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := d.Call(context.Background(), tt.req)
			if resp.ID != tt.req.ID {
				t.Errorf("ID = %q, want %q", resp.ID, tt.req.ID)
			}
			if tt.wantCode != "" {
				if resp.Status != StatusError || resp.Code != tt.wantCode {
					t.Errorf("response = %v, want code %s", resp, tt.wantCode)
				}
				return
			}
			if !resp.OK() {
				t.Fatalf("response = %v", resp)
			}
			if tt.check != nil {
				tt.check(t, resp.Value)
			}
		})
	}
}

func TestCallError(t *testing.T) {
	d := NewDispatcher(&fakeRunner{err: errors.New(errors.ErrCodeIORead, "failed to read %s", "in.svg")}, nil)

	resp := d.Call(context.Background(), Request{ID: "x", Op: OpRenderFile, Source: "in.svg", Dest: "out.png"})
	if resp.Status != StatusError || resp.Code != string(errors.ErrCodeIORead) {
		t.Fatalf("response = %v", resp)
	}
	if resp.Message != "failed to read in.svg" {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestCallAssignsID(t *testing.T) {
	d := NewDispatcher(&fakeRunner{}, nil)
	resp := d.Call(context.Background(), Request{Op: OpListFonts})
	if resp.ID == "" {
		t.Error("response has no id")
	}
}

func TestCallWithRunner(t *testing.T) {
	d := NewDispatcher(pipeline.NewRunner(nil), nil)

	resp := d.Call(context.Background(), Request{ID: "r", Op: OpRenderText, Text: redSquare, Config: options.Raw{ResourcesDir: t.TempDir()}})
	if !resp.OK() {
		t.Fatalf("response = %v", resp)
	}
	if b, _ := resp.Value.([]byte); !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Errorf("value is not a PNG")
	}

	resp = d.Call(context.Background(), Request{ID: "r", Op: OpRenderText, Text: redSquare})
	if resp.Code != string(errors.ErrCodeConfigResourcesDir) {
		t.Errorf("Code = %q, want %s", resp.Code, errors.ErrCodeConfigResourcesDir)
	}
}

func readResponses(t *testing.T, out *bytes.Buffer) map[string]Response {
	t.Helper()
	got := map[string]Response{}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var resp Response
		if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
			t.Fatalf("bad response line %q: %v", sc.Text(), err)
		}
		got[resp.ID] = resp
	}
	return got
}

func TestServeStdio(t *testing.T) {
	in := strings.Join([]string{
		`{"id":"a","op":"list_fonts"}`,
		``,
		`{"id":"b","op":"render_text","text":"<svg/>"}`,
		`{"id":"c","op":"nope"}`,
		`{"id":"d","op":"query","config":{"width":"wide"}}`,
		`{not json`,
	}, "\n")

	var out bytes.Buffer
	d := NewDispatcher(&fakeRunner{}, nil)
	if err := d.ServeStdio(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("ServeStdio() error = %v", err)
	}

	got := readResponses(t, &out)
	if len(got) != 5 {
		t.Fatalf("got %d responses, want 5: %v", len(got), got)
	}
	if !got["a"].OK() || !got["b"].OK() {
		t.Errorf("responses a, b = %v, %v", got["a"], got["b"])
	}
	if v, _ := got["b"].Value.(string); v != "cG5n" {
		t.Errorf("render_text value = %v, want base64 PNG bytes", got["b"].Value)
	}
	for _, id := range []string{"c", "d", ""} {
		if got[id].Code != string(errors.ErrCodeConfigInvalid) {
			t.Errorf("response %q = %v, want %s", id, got[id], errors.ErrCodeConfigInvalid)
		}
	}
}

func TestServeStdioPool(t *testing.T) {
	f := &fakeRunner{delay: 20 * time.Millisecond}
	d := NewDispatcher(f, nil)
	d.Workers = 2

	var in strings.Builder
	for i := 0; i < 6; i++ {
		in.WriteString(`{"op":"list_fonts"}` + "\n")
	}

	var out bytes.Buffer
	if err := d.ServeStdio(context.Background(), strings.NewReader(in.String()), &out); err != nil {
		t.Fatalf("ServeStdio() error = %v", err)
	}
	if got := len(readResponses(t, &out)); got != 6 {
		t.Errorf("got %d responses, want 6", got)
	}
	if m := f.maxActive.Load(); m > 2 {
		t.Errorf("%d calls ran at once, limit is 2", m)
	}
}

func TestServeStdioLongLine(t *testing.T) {
	long := `{"id":"big","op":"render_text","text":"` + strings.Repeat("x", 500) + `"}`
	in := strings.Join([]string{
		`{"id":"a","op":"list_fonts"}`,
		long,
		strings.Repeat(" ", 300),
		`{"id":"b","op":"list_fonts"}`,
	}, "\n")

	f := &fakeRunner{}
	d := NewDispatcher(f, nil)
	d.MaxLine = 128

	var out bytes.Buffer
	if err := d.ServeStdio(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("ServeStdio() error = %v", err)
	}
	got := readResponses(t, &out)
	if len(got) != 4 {
		t.Fatalf("got %d responses, want 4: %v", len(got), got)
	}
	if !got["a"].OK() || !got["b"].OK() {
		t.Errorf("responses around the long line = %v, %v", got["a"], got["b"])
	}
	for _, id := range []string{"big", ""} {
		if got[id].Code != string(errors.ErrCodeConfigInvalid) {
			t.Errorf("response %q = %v, want %s", id, got[id], errors.ErrCodeConfigInvalid)
		}
	}
	if !strings.Contains(got["big"].Message, "exceeds 128 bytes") {
		t.Errorf("message = %q", got["big"].Message)
	}
}

func TestPeekID(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{`{"id":"a","op":1}`, "a"},
		{`{"id":"tr\"unc`, ""},
		{`{ "id" : "tr\"unc", "text":"<svg`, `tr"unc`},
		{`{"op":"query","id":"late`, ""},
		{`not json`, ""},
	}
	for _, tt := range tests {
		if got := peekID([]byte(tt.line)); got != tt.want {
			t.Errorf("peekID(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestServeStdioCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	d := NewDispatcher(&fakeRunner{}, nil)
	err := d.ServeStdio(ctx, strings.NewReader(`{"id":"a","op":"list_fonts"}`+"\n"), &out)
	if err != context.Canceled {
		t.Errorf("ServeStdio() error = %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("canceled loop answered: %s", out.String())
	}
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	h := NewRouter(NewDispatcher(pipeline.NewRunner(nil), nil))
	dir := t.TempDir()

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"version"`) {
			t.Errorf("healthz = %d %s", rec.Code, rec.Body)
		}
		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("no request id assigned")
		}
	})

	t.Run("render", func(t *testing.T) {
		body, _ := json.Marshal(Request{Text: redSquare, Config: options.Raw{ResourcesDir: dir}})
		rec := post(t, h, "/v1/render", string(body))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("Content-Type = %q", ct)
		}
		if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
			t.Error("body is not a PNG")
		}
	})

	t.Run("render error", func(t *testing.T) {
		body, _ := json.Marshal(Request{Text: redSquare})
		rec := post(t, h, "/v1/render", string(body))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Code != string(errors.ErrCodeConfigResourcesDir) {
			t.Errorf("Code = %q", resp.Code)
		}
		if resp.ID != rec.Header().Get(RequestIDHeader) {
			t.Errorf("response id %q does not match header", resp.ID)
		}
	})

	t.Run("fonts", func(t *testing.T) {
		rec := post(t, h, "/v1/fonts", `{"config":{"skip_system_fonts":true}}`)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d: %s", rec.Code, rec.Body)
		}
	})

	t.Run("query missing file", func(t *testing.T) {
		rec := post(t, h, "/v1/query", `{"source":"/does/not/exist.svg"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d: %s", rec.Code, rec.Body)
		}
	})

	t.Run("call unknown op", func(t *testing.T) {
		rec := post(t, h, "/v1/call", `{"id":"z","op":"nope"}`)
		if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"id":"z"`) {
			t.Errorf("call = %d %s", rec.Code, rec.Body)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := post(t, h, "/v1/call", `{`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("caller request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get(RequestIDHeader); got != "abc" {
			t.Errorf("request id = %q, want abc", got)
		}
	})

	t.Run("wrong content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/call", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d", rec.Code)
		}
	})
}
