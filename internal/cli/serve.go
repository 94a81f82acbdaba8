package cli

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/svgpng/pkg/errors"
	"github.com/matzehuels/svgpng/pkg/host"
)

const (
	defaultAddr     = "127.0.0.1:8080"
	shutdownTimeout = 10 * time.Second
)

// serveCommand creates the serve command for the stdio port.
func (c *CLI) serveCommand() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer JSON-lines requests on stdin and stdout",
		Long: `Read one JSON request per line from stdin and write one JSON response per
line to stdout, until stdin is closed.

Request:  {"id": "1", "op": "render_file", "source": "in.svg", "dest": "out.png", "config": {...}}
Response: {"id": "1", "status": "ok"} or {"id": "1", "status": "error", "code": "...", "message": "..."}

Operations: render_file, render_text_to_file, render_text, list_fonts, query.
Responses may arrive out of order; match them by id. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := c.newDispatcher(workers)
			loggerFromContext(ctx).Info("Serving on stdio", "workers", d.Workers)
			return d.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&workers, "workers", host.DefaultWorkers, "maximum concurrent calls")
	return cmd
}

// httpCommand creates the http command.
func (c *CLI) httpCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the operations over HTTP",
		Long: `Serve the operations over HTTP until interrupted.

  GET  /healthz     build information
  POST /v1/render   {"text": "<svg ...>", "config": {...}} returns image/png
  POST /v1/fonts    {"config": {...}}
  POST /v1/query    {"source": "in.svg", "config": {...}}
  POST /v1/call     any request accepted by serve

Paths in requests refer to the server's filesystem.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return errors.Wrap(errors.ErrCodeConfigInvalid, err, "cannot listen on %s", addr)
			}
			return c.serveHTTP(cmd.Context(), ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	return cmd
}

// serveHTTP serves on ln until ctx is done, then shuts down gracefully.
func (c *CLI) serveHTTP(ctx context.Context, ln net.Listener) error {
	logger := loggerFromContext(ctx)
	srv := &http.Server{
		Handler:           host.NewRouter(c.newDispatcher(0)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("Serving HTTP", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != http.ErrServerClosed {
		return err
	}
	return nil
}
