package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blogd/internal/api"
	"blogd/internal/blobstore"
	"blogd/internal/config"
	"blogd/internal/models"
	"blogd/internal/server"
	"blogd/internal/store"
)

func startTestAPI(t *testing.T) *config.Config {
	t.Helper()
	return startTestAPIWith(t, server.Options{})
}

func startTestAPIWith(t *testing.T, opts server.Options) *config.Config {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "blog.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	opts.Store = st
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := server.New("127.0.0.1:0", opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.APIURL = ts.URL
	cfg.DBPath = dbPath
	return &cfg
}

// runCLI executes the root command and returns what it wrote to stdout.
func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	prevLogger := slog.Default()
	prevFormatter := outputFormatter
	t.Cleanup(func() {
		slog.SetDefault(prevLogger)
		outputFormatter = prevFormatter
	})

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	stdout := os.Stdout
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	cmd := newRootCmd(cfg)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	runErr := cmd.Execute()

	os.Stdout = stdout
	_ = w.Close()
	out := <-done
	_ = r.Close()
	return out, runErr
}

func TestCLIPostLifecycle(t *testing.T) {
	cfg := startTestAPI(t)

	out, err := runCLI(t, cfg, "register", "--username", "ann", "--email", "ann@example.com", "--password", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(out, "registered ann <ann@example.com>") {
		t.Fatalf("unexpected register output %q", out)
	}

	out, err = runCLI(t, cfg, "login", "--email", "ann@example.com", "--password", "s3cret")
	if err != nil || strings.TrimSpace(out) != api.LoginSuccessMessage {
		t.Fatalf("login: %q %v", out, err)
	}

	out, err = runCLI(t, cfg, "posts", "create", "--title", "First", "--author", "ann", "--content", "<p>Hello <b>World</b></p>")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := strings.TrimSpace(out)
	if !store.ValidID(id) {
		t.Fatalf("expected post id, got %q", out)
	}

	out, err = runCLI(t, cfg, "posts", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "First") || !strings.Contains(out, "Hello World") {
		t.Fatalf("list should show stripped excerpt, got %q", out)
	}

	if _, err := runCLI(t, cfg, "posts", "edit", id, "--title", "Renamed"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	out, err = runCLI(t, cfg, "posts", "show", id, "--json")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var post models.Post
	if err := json.Unmarshal([]byte(out), &post); err != nil {
		t.Fatalf("decode show output %q: %v", out, err)
	}
	if post.Title != "Renamed" || post.Author != "ann" || post.Content != "<p>Hello <b>World</b></p>" {
		t.Fatalf("edit should keep unset fields, got %+v", post)
	}

	out, err = runCLI(t, cfg, "posts", "show", id, "-o", "yaml")
	if err != nil || !strings.Contains(out, "title: Renamed") {
		t.Fatalf("yaml show: %q %v", out, err)
	}

	out, err = runCLI(t, cfg, "posts", "delete", id)
	if err != nil || strings.TrimSpace(out) != api.PostDeletedMessage {
		t.Fatalf("delete: %q %v", out, err)
	}

	_, err = runCLI(t, cfg, "posts", "show", id)
	if !api.IsStatus(err, 404) {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}

func TestCLIRegisterDuplicateEmail(t *testing.T) {
	cfg := startTestAPI(t)
	args := []string{"register", "--username", "ann", "--email", "ann@example.com", "--password", "pw"}
	if _, err := runCLI(t, cfg, args...); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := runCLI(t, cfg, args...)
	if !api.IsStatus(err, 409) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !containsLine(formatCLIError(err), "hint: that email is taken; log in instead with: blogd login") {
		t.Fatalf("expected duplicate hint, got %v", formatCLIError(err))
	}
}

func TestCLISeed(t *testing.T) {
	cfg := startTestAPI(t)
	out, err := runCLI(t, cfg, "seed", "--users", "2", "--posts", "3", "--seed", "7", "--json")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	var result seedResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode seed output %q: %v", out, err)
	}
	if len(result.Users) != 2 || len(result.Posts) != 3 {
		t.Fatalf("unexpected seed result %+v", result)
	}

	out, err = runCLI(t, cfg, "posts", "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var posts []models.Post
	if err := json.Unmarshal([]byte(out), &posts); err != nil || len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d (%v)", len(posts), err)
	}
}

func TestCLIRejectsUnknownOutputFormat(t *testing.T) {
	cfg := startTestAPI(t)
	if _, err := runCLI(t, cfg, "posts", "list", "-o", "xml"); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestCLIMigrate(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(t.TempDir(), "fresh.db")

	out, err := runCLI(t, &cfg, "migrate", "--inspect", "--json")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var before store.MigrationStatus
	if err := json.Unmarshal([]byte(out), &before); err != nil {
		t.Fatalf("decode plan %q: %v", out, err)
	}
	if before.CurrentVersion != 0 || len(before.Pending) == 0 {
		t.Fatalf("fresh db should have pending migrations, got %+v", before)
	}

	out, err = runCLI(t, &cfg, "migrate", "--json")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	var after store.MigrationStatus
	if err := json.Unmarshal([]byte(out), &after); err != nil {
		t.Fatalf("decode plan %q: %v", out, err)
	}
	if after.CurrentVersion != after.AvailableVersion || len(after.Pending) != 0 {
		t.Fatalf("expected fully migrated db, got %+v", after)
	}

	cfg.Store.Driver = config.StoreDriverPostgres
	if _, err := runCLI(t, &cfg, "migrate"); err == nil {
		t.Fatal("expected migrate to refuse non-sqlite stores")
	}
}

func TestCLIImagesGC(t *testing.T) {
	images, err := blobstore.NewLocalCAS(t.TempDir())
	if err != nil {
		t.Fatalf("new local cas: %v", err)
	}
	cfg := startTestAPIWith(t, server.Options{Images: images, ImageGCGrace: time.Nanosecond})

	imagePath := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(imagePath, []byte("\x89PNG\r\n\x1a\ncover"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	out, err := runCLI(t, cfg, "posts", "create", "--title", "T", "--author", "A", "--content", "C", "--image", imagePath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := strings.TrimSpace(out)
	if _, err := runCLI(t, cfg, "posts", "delete", id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var resp api.ImageGCResponse
	out, err = runCLI(t, cfg, "images", "gc", "--json")
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !resp.DryRun || resp.CandidateCount != 1 || resp.DeletedCount != 0 {
		t.Fatalf("unexpected dry run %+v", resp)
	}

	out, err = runCLI(t, cfg, "images", "gc", "--apply")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, "applied:") || !strings.Contains(out, "deleted=1") {
		t.Fatalf("unexpected apply output %q", out)
	}

	blobs, err := images.List(t.Context())
	if err != nil || len(blobs) != 0 {
		t.Fatalf("expected empty image store, got %d (%v)", len(blobs), err)
	}

	if _, err := runCLI(t, cfg, "images", "gc", "--apply", "--dry-run"); err == nil {
		t.Fatal("expected conflicting flags to fail")
	}
}
