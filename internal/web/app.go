// Package web serves the browser client: a feed of post previews and a
// form for creating posts. It talks to the API over HTTP.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"blogd/internal/api"
	"blogd/internal/metrics"
	"blogd/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	flashKey          = "flash"
	sessionCookieName = "blogd_session"
	sweepInterval     = time.Minute
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Backend is the subset of the API the web client uses.
type Backend interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id string) (models.Post, error)
	CreatePost(ctx context.Context, in api.PostInput) (models.Post, error)
}

var _ Backend = (*api.Client)(nil)

// Options wires the web client.
type Options struct {
	Backend        Backend
	Logger         *slog.Logger
	MaxUploadBytes int64
	PreviewTTL     time.Duration
}

// App is the web client.
type App struct {
	backend        Backend
	logger         *slog.Logger
	sessions       *scs.SessionManager
	previews       *PreviewRegistry
	pages          map[string]*template.Template
	maxUploadBytes int64
}

func New(opts Options) (*App, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = models.MaxImageBytes
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	sessions := scs.New()
	sessions.Lifetime = 12 * time.Hour
	sessions.Cookie.Name = sessionCookieName
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	return &App{
		backend:        opts.Backend,
		logger:         logger,
		sessions:       sessions,
		previews:       NewPreviewRegistry(opts.PreviewTTL),
		pages:          pages,
		maxUploadBytes: maxUpload,
	}, nil
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{"safeImage": safeImage}
	pages := make(map[string]*template.Template)
	for _, name := range []string{"feed", "post", "create"} {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// safeImage lets inline image data URIs through html/template's URL filter.
func safeImage(uri string) template.URL {
	if !strings.HasPrefix(uri, "data:image/") {
		return ""
	}
	return template.URL(uri)
}

// Previews exposes the registry so callers can run its sweeper.
func (a *App) Previews() *PreviewRegistry {
	return a.previews
}

// Handler returns the fully wrapped web handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", a.handleFeed)
	mux.HandleFunc("GET /posts/{id}", a.handlePost)
	mux.HandleFunc("GET /create", a.handleCreateForm)
	mux.HandleFunc("POST /create", a.handleCreateSubmit)
	mux.HandleFunc("GET /previews/{id}", a.handlePreview)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	var handler http.Handler = metrics.Middleware(mux)
	handler = a.sessions.LoadAndSave(handler)
	return otelhttp.NewHandler(handler, "blogd-web",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + metrics.NormalizePath(r.URL.Path)
		}),
	)
}

// ListenAndServe serves until ctx is canceled and sweeps expired previews
// in the background.
func (a *App) ListenAndServe(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.previews.Run(ctx, sweepInterval)

	a.logger.Info("starting web client", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) render(w http.ResponseWriter, status int, page string, data pageData) {
	tmpl, ok := a.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	var buf strings.Builder
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		a.logger.Error("render page", "page", page, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}
