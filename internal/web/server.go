package web

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/logging"
	"github.com/hpungsan/kin/internal/ops"
	"github.com/hpungsan/kin/internal/widget"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

//go:embed about.md
var aboutMarkdown string

// SurfaceHost is what the web surface needs from the surface host.
// *widget.Host implements it.
type SurfaceHost interface {
	ops.Host
	View(surfaceID string) (widget.View, bool)
}

// Deps holds the dependencies the web handlers use.
type Deps struct {
	DB     *sql.DB
	Host   SurfaceHost
	Source contact.Source
	Logger *slog.Logger
}

// NewServer creates and configures the HTTP server for the kin web widget.
func NewServer(deps Deps, version, bind string, port int) (*http.Server, error) {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("template sub-FS: %w", err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}

	h := &Handlers{
		deps:     deps,
		renderer: NewRenderer(templateSub, version, deps.Logger),
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(h.routes(staticSub)),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func (h *Handlers) routes(static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/surfaces/"+widget.DefaultSurface, http.StatusFound)
	})
	mux.HandleFunc("GET /surfaces/{surface}", h.HandleSurface)
	mux.HandleFunc("POST /surfaces/{surface}/refresh", h.HandleRefresh)
	mux.HandleFunc("POST /surfaces/{surface}/engage", h.HandleEngage)
	mux.HandleFunc("GET /stats", h.HandleStats)
	mux.HandleFunc("GET /about", h.HandleAbout)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return mux
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' https: http:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is done, then shuts the server down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("kin widget running", "url", "http://"+srv.Addr)
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
