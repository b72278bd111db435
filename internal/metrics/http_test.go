package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "/"},
		{"/posts", "/posts"},
		{"/posts/3f2504e0-4f89-11d3-9a0c-0305e82c3301", "/posts/{param}"},
		{"/delete/42", "/delete/{param}"},
		{"/edit/not-an-id", "/edit/not-an-id"},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.path); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMiddlewareUsesMuxPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics-test/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := Middleware(mux)

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/metrics-test/{id}", "418"))

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-test/"+id, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("expected 418, got %d", rec.Code)
		}
	}

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/metrics-test/{id}", "418"))
	if after-before != 3 {
		t.Fatalf("expected 3 counted requests, got %v", after-before)
	}
}

func TestMiddlewareBoundsUnmatchedPaths(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /bounded/{id}", func(w http.ResponseWriter, r *http.Request) {})
	handler := Middleware(mux)

	before := testutil.CollectAndCount(HTTPRequestsTotal)
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/scan-%d/x", i), nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	}
	if added := testutil.CollectAndCount(HTTPRequestsTotal) - before; added > 1 {
		t.Fatalf("expected at most one new series for unmatched paths, got %d", added)
	}
	if got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", UnmatchedRoute, "404")); got < 50 {
		t.Fatalf("expected unmatched requests to be counted, got %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	PostOperationsTotal.WithLabelValues("create", ResultOK).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "blogd_post_operations_total") {
		t.Fatal("expected post operations counter in exposition")
	}
}
