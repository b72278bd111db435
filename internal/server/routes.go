package server

import (
	"net/http"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"blogd/internal/metrics"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Operational.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	// Accounts.
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)

	// Posts.
	mux.HandleFunc("GET /posts", s.handleListPosts)
	mux.HandleFunc("POST /posts", s.handleCreatePost)
	mux.HandleFunc("GET /posts/{id}", s.handleGetPost)
	mux.HandleFunc("PUT /edit/{id}", s.handleUpdatePost)
	mux.HandleFunc("DELETE /delete/{id}", s.handleDeletePost)

	// Maintenance.
	mux.HandleFunc("POST /admin/images/gc", s.handleImageGC)

	var handler http.Handler = mux
	handler = s.withRequestLogging(handler)
	handler = metrics.Middleware(handler)
	handler = cors.AllowAll().Handler(handler)
	return otelhttp.NewHandler(handler, "blogd-api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + metrics.NormalizePath(r.URL.Path)
		}),
	)
}
