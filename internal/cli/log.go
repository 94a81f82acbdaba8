// Package cli implements the svgpng command-line interface.
//
// The commands are thin wrappers over pipeline.Runner and host.Dispatcher.
// The CLI is built using cobra and logs via charmbracelet/log.
//
// # Commands
//
//   - render: Render an SVG or SVGZ file (or stdin) to PNG
//   - fonts: List the fonts a configuration makes available
//   - query: Print the bounding boxes of top-level elements
//   - serve: Answer JSON-lines requests on stdin/stdout
//   - http: Serve the same operations over HTTP
//
// # Configuration
//
// Every command accepts the rendering flags (--width, --zoom, --background,
// --font-dir, ...). Values are read from a TOML file first (--config, or
// config.toml in the user config directory) and flags override them.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns the CLI logger: timestamps as "15:04:05.00", messages
// below level dropped.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one command. Not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at info level with keyvals and the elapsed time, e.g.
//
//	INFO Rendered input=logo.svg output=logo.png elapsed=12ms
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger set by the root command, or
// log.Default() outside a command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
