package host

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/svgpng/pkg/buildinfo"
	"github.com/matzehuels/svgpng/pkg/errors"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// MaxBodySize bounds HTTP request bodies.
const MaxBodySize = MaxLineSize

// NewRouter mounts the dispatcher on a chi router:
//
//	GET  /healthz     build information
//	POST /v1/render   {text, config} -> image/png
//	POST /v1/fonts    {config} -> Response with descriptors
//	POST /v1/query    {source, config} -> Response with boxes
//	POST /v1/call     Request -> Response
//
// Paths in requests are resolved on the server's filesystem.
func NewRouter(d *Dispatcher) http.Handler {
	h := &handler{d: d}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/render", h.render)
		r.Post("/fonts", h.op(OpListFonts))
		r.Post("/query", h.op(OpQuery))
		r.Post("/call", h.call)
	})
	return r
}

type ctxKey struct{}

// requestID reuses the caller's id or assigns a fresh one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the id assigned to an HTTP request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type handler struct {
	d *Dispatcher
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (h *handler) render(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	req.Op = OpRenderText

	resp := h.d.Call(r.Context(), req)
	if !resp.OK() {
		writeJSON(w, statusOf(resp), resp)
		return
	}
	png, _ := resp.Value.([]byte)
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *handler) op(op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := h.decode(w, r)
		if !ok {
			return
		}
		req.Op = op
		resp := h.d.Call(r.Context(), req)
		writeJSON(w, statusOf(resp), resp)
	}
}

func (h *handler) call(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	resp := h.d.Call(r.Context(), req)
	writeJSON(w, statusOf(resp), resp)
}

// decode reads a Request body. The HTTP request id stands in for a missing
// request id.
func (h *handler) decode(w http.ResponseWriter, r *http.Request) (Request, bool) {
	id := RequestID(r.Context())

	var req Request
	body := http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		resp := failure(id, errors.Wrap(errors.ErrCodeConfigInvalid, err, "malformed request"))
		writeJSON(w, http.StatusBadRequest, resp)
		return Request{}, false
	}
	if req.ID == "" {
		req.ID = id
	}
	return req, true
}

// statusOf maps a response onto an HTTP status by error category.
func statusOf(resp Response) int {
	if resp.OK() {
		return http.StatusOK
	}
	switch errors.CategoryOf(errors.Code(resp.Code)) {
	case errors.CategoryConfig, errors.CategoryFormat, errors.CategoryGeometry:
		return http.StatusBadRequest
	case errors.CategoryIO:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
