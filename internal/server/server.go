package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"blogd/internal/blobstore"
	"blogd/internal/events"
	"blogd/internal/models"
	"blogd/internal/store"
)

const (
	allowRemoteEnvKey = "BLOGD_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Options wires the server's collaborators.
type Options struct {
	Store store.Store
	// Images keeps image bytes outside the post row. Nil stores them inline.
	Images blobstore.BlobStore
	// Events receives post lifecycle notifications. Nil disables publishing.
	Events         events.Publisher
	MaxUploadBytes int64
	// ImageGCInterval is how often unreferenced image blobs are swept.
	// Zero disables the background sweep.
	ImageGCInterval time.Duration
	// ImageGCGrace protects recently written blobs. Zero means DefaultImageGCGrace.
	ImageGCGrace time.Duration
	Logger       *slog.Logger
}

// Server wraps HTTP handlers for the blogd API.
type Server struct {
	addr           string
	posts          *PostService
	auth           *AuthService
	logger         *slog.Logger
	maxUploadBytes int64
	gcInterval     time.Duration
	gcGrace        time.Duration
}

// New creates a new server instance.
func New(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = models.MaxImageBytes
	}
	publisher := opts.Events
	if publisher == nil {
		publisher = events.Noop{}
	}
	gcGrace := opts.ImageGCGrace
	if gcGrace <= 0 {
		gcGrace = DefaultImageGCGrace
	}

	return &Server{
		addr:           addr,
		posts:          NewPostService(opts.Store, opts.Images, publisher, logger),
		auth:           NewAuthService(opts.Store),
		logger:         logger,
		maxUploadBytes: maxUpload,
		gcInterval:     opts.ImageGCInterval,
		gcGrace:        gcGrace,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// ListenAndServe serves until ctx is canceled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.posts.images != nil && s.gcInterval > 0 {
		go s.runImageGC(ctx)
	}

	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
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

	s.log().Info("shutting down server", "addr", s.addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runImageGC sweeps unreferenced image blobs on every tick until ctx is done.
func (s *Server) runImageGC(ctx context.Context) {
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepImages(ctx)
		}
	}
}

func (s *Server) sweepImages(ctx context.Context) {
	result, err := s.posts.GCImages(ctx, s.gcGrace, true)
	if err != nil {
		s.log().Warn("image sweep failed", "error", err)
		return
	}
	if result.DeletedCount > 0 || result.FailedCount > 0 {
		s.log().Info("image sweep", "scanned", result.Scanned, "deleted", result.DeletedCount,
			"failed", result.FailedCount, "reclaimed_bytes", result.ReclaimedBytes)
	}
}

// ListenAddr converts a base URL into a listen address.
func ListenAddr(baseURL string) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("listen url is required")
	}
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(baseURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return baseURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
