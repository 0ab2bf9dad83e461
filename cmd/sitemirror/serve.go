package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitemirror/internal/log"
	"github.com/nao1215/sitemirror/internal/report"
)

// Serve defaults.
const (
	defaultServeAddr = "127.0.0.1:8080"
	reportPath       = "/_report"
	shutdownTimeout  = 5 * time.Second
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <dir>",
		Short: "Serve a mirror directory over HTTP",
		Long: `Serve exposes a mirror directory on a local HTTP server for browsing.

The run summary is available at /_report as Markdown.

Examples:
  sitemirror serve ./example.com
  sitemirror serve --addr :9000 ./example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runServeCmd,
	}
	cmd.Flags().String("addr", defaultServeAddr, "Listen address")
	return cmd
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("mirror directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mirror directory: %s is not a directory", dir)
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), getVerboseFlag(cmd))
	srv := &http.Server{
		Addr:              addr,
		Handler:           newServeHandler(dir, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s (Ctrl+C to stop)\n", dir, addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newServeHandler returns the router for a mirror directory.
func newServeHandler(dir string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.CleanPath)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get(reportPath, func(w http.ResponseWriter, _ *http.Request) {
		m, err := report.ReadManifest(dir)
		if err != nil {
			logger.Warn("failed to read manifest", "dir", dir, "error", err)
			http.Error(w, "no manifest in this mirror", http.StatusNotFound)
			return
		}
		var buf bytes.Buffer
		if err := report.NewMarkdownWriter(&buf).Write(m); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})

	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("served request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
