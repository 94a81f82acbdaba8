// Package host exposes the pipeline to external processes.
//
// A host sends tagged requests and receives tagged responses. Failures never
// escape as Go errors or panics: every call produces exactly one Response,
// either "ok" with a value or "error" with a code and message.
//
// Two transports share the same Dispatcher:
//
//   - ServeStdio reads JSON-lines requests and writes JSON-lines responses,
//     running calls concurrently on a bounded pool.
//   - NewRouter mounts the operations on a chi router.
//
// Usage:
//
//	d := host.NewDispatcher(pipeline.NewRunner(logger), logger)
//	resp := d.Call(ctx, host.Request{ID: "1", Op: host.OpListFonts})
package host

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/observability"
	"github.com/matzehuels/svgpng/pkg/options"
	"github.com/matzehuels/svgpng/pkg/pipeline"
)

// Operations accepted in Request.Op.
const (
	OpRenderFile       = pipeline.OpRenderFile
	OpRenderTextToFile = pipeline.OpRenderTextToFile
	OpRenderText       = pipeline.OpRenderText
	OpListFonts        = pipeline.OpListFonts
	OpQuery            = pipeline.OpQuery
)

// Response statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// DefaultWorkers is the pool size used when Dispatcher.Workers is not set.
const DefaultWorkers = 4

// Request is one tagged call. Source is the input path of render_file and
// query, Dest the output path of the *_to_file operations and Text the
// inline document of the text operations.
type Request struct {
	ID     string      `json:"id"`
	Op     string      `json:"op"`
	Source string      `json:"source,omitempty"`
	Dest   string      `json:"dest,omitempty"`
	Text   string      `json:"text,omitempty"`
	Config options.Raw `json:"config"`
}

// Response answers the Request with the same ID.
//
// Value depends on the operation: nothing for the *_to_file operations, the
// PNG bytes (base64 in JSON) for render_text, a list of descriptors for
// list_fonts and a list of boxes for query.
type Response struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Value   any    `json:"value,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the call succeeded.
func (r Response) OK() bool { return r.Status == StatusOK }

// Converter is the set of operations a Dispatcher forwards to.
// *pipeline.Runner is the production implementation.
type Converter interface {
	RenderFileToFile(ctx context.Context, src, dst string, raw options.Raw) error
	RenderTextToFile(ctx context.Context, text, dst string, raw options.Raw) error
	RenderTextToBuffer(ctx context.Context, text string, raw options.Raw) ([]byte, error)
	ListFonts(ctx context.Context, raw options.Raw) ([]string, error)
	Query(ctx context.Context, src string, raw options.Raw) ([]pipeline.NodeBox, error)
}

// Dispatcher turns requests into Converter calls.
// It is safe for concurrent use.
type Dispatcher struct {
	Runner  Converter
	Logger  *log.Logger
	Workers int

	// MaxLine bounds one ServeStdio request line; MaxLineSize when zero.
	MaxLine int
}

// NewDispatcher creates a dispatcher over runner.
// If logger is nil, logging is discarded.
func NewDispatcher(runner Converter, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Dispatcher{Runner: runner, Logger: logger, Workers: DefaultWorkers}
}

func (d *Dispatcher) workers() int {
	if d.Workers <= 0 {
		return DefaultWorkers
	}
	return d.Workers
}

// Call runs one request synchronously. Requests without an ID get a fresh
// one so the response can still be correlated.
func (d *Dispatcher) Call(ctx context.Context, req Request) (resp Response) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	hooks := observability.Host()
	hooks.OnCall(ctx, req.ID, req.Op)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			d.Logger.Error("call panicked", "id", req.ID, "op", req.Op, "panic", p)
			resp = failure(req.ID, errors.New(errors.ErrCodeInternal, "internal error: %v", p))
		}
		elapsed := time.Since(start)
		hooks.OnCallComplete(ctx, req.ID, req.Op, elapsed, resp.Code)
		d.Logger.Debug("call done", "id", req.ID, "op", req.Op, "status", resp.Status, "duration", elapsed)
	}()

	value, err := d.dispatch(ctx, req)
	if err != nil {
		return failure(req.ID, err)
	}
	return Response{ID: req.ID, Status: StatusOK, Value: value}
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) (any, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	switch req.Op {
	case OpRenderFile:
		return nil, d.Runner.RenderFileToFile(ctx, req.Source, req.Dest, req.Config)
	case OpRenderTextToFile:
		return nil, d.Runner.RenderTextToFile(ctx, req.Text, req.Dest, req.Config)
	case OpRenderText:
		return d.Runner.RenderTextToBuffer(ctx, req.Text, req.Config)
	case OpListFonts:
		return d.Runner.ListFonts(ctx, req.Config)
	case OpQuery:
		return d.Runner.Query(ctx, req.Source, req.Config)
	default:
		return nil, errors.New(errors.ErrCodeConfigInvalid, "unknown operation %q", req.Op)
	}
}

// validate checks the paths an operation needs before any work starts.
func validate(req Request) error {
	switch req.Op {
	case OpRenderFile:
		if err := errors.ValidatePath("source", req.Source); err != nil {
			return err
		}
		return errors.ValidatePath("dest", req.Dest)
	case OpRenderTextToFile:
		return errors.ValidatePath("dest", req.Dest)
	case OpQuery:
		return errors.ValidatePath("source", req.Source)
	}
	return nil
}

func failure(id string, err error) Response {
	return Response{
		ID:      id,
		Status:  StatusError,
		Code:    string(errors.GetCode(err)),
		Message: errors.UserMessage(err),
	}
}

func (r Response) String() string {
	if r.OK() {
		return fmt.Sprintf("%s: ok", r.ID)
	}
	return fmt.Sprintf("%s: %s: %s", r.ID, r.Code, r.Message)
}
