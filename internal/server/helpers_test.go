package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"blogd/internal/api"
	"blogd/internal/events"
	"blogd/internal/models"
	"blogd/internal/store"
)

var errTest = errors.New("store exploded")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "blog.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	if opts.Store == nil {
		opts.Store = openTestStore(t)
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	return New("127.0.0.1:0", opts)
}

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("write field %s: %v", name, err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile(api.ImageFormField, "image.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("write image: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, message string) api.ErrorResponse {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	resp := decodeBody[api.ErrorResponse](t, w)
	if message != "" && resp.Error != message {
		t.Fatalf("expected error %q, got %q", message, resp.Error)
	}
	return resp
}

func createPost(t *testing.T, h http.Handler, title, author, content string, image []byte) models.Post {
	t.Helper()
	req := multipartRequest(t, http.MethodPost, "/posts", map[string]string{
		"title":   title,
		"author":  author,
		"content": content,
	}, image)
	w := do(t, h, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create post: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	return decodeBody[models.Post](t, w)
}

// pngBytes is a tiny PNG-looking payload.
func pngBytes(extra string) []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), extra...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PostEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.PostEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// failingStore fails every call it overrides.
type failingStore struct {
	store.Store
	err error
}

func (f failingStore) CreatePost(context.Context, *models.Post) error { return f.err }

func (f failingStore) GetPost(context.Context, string) (*models.Post, error) { return nil, f.err }

func (f failingStore) ListPosts(context.Context) ([]models.Post, error) { return nil, f.err }

func (f failingStore) UpdatePost(context.Context, string, models.PostUpdate, time.Time) (*models.Post, error) {
	return nil, f.err
}

func (f failingStore) DeletePost(context.Context, string) (*models.Post, error) { return nil, f.err }

func (f failingStore) CreateUser(context.Context, *models.User) error { return f.err }

func (f failingStore) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, f.err
}

func (f failingStore) Close() error { return nil }
