package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestParseMarkdown(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantTitle   string
		wantAuthor  string
		wantContent string
		wantErr     bool
	}{
		{
			name:        "front matter and body",
			input:       "---\ntitle: Hello\nauthor: Ann\n---\n\n<p>Body</p>\n",
			wantTitle:   "Hello",
			wantAuthor:  "Ann",
			wantContent: "<p>Body</p>",
		},
		{name: "body only", input: "just text\n", wantContent: "just text"},
		{name: "unclosed header", input: "---\ntitle: Hello\nbody", wantErr: true},
		{name: "bad yaml", input: "---\ntitle: [unterminated\n---\nbody", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			front, content, err := parseMarkdown(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if front.Title != tt.wantTitle || front.Author != tt.wantAuthor || content != tt.wantContent {
				t.Fatalf("got title=%q author=%q content=%q", front.Title, front.Author, content)
			}
		})
	}
}

func TestPostInputFromFileResolvesImage(t *testing.T) {
	dir := t.TempDir()
	image := []byte("\x89PNG\r\n\x1a\ndata")
	if err := os.WriteFile(filepath.Join(dir, "cover.png"), image, 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "post.md")
	body := "---\ntitle: With image\nauthor: Ann\nimage: cover.png\n---\nText"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	in, err := postInputFromFile(path)
	if err != nil {
		t.Fatalf("read post file: %v", err)
	}
	if in.Title != "With image" || in.Content != "Text" {
		t.Fatalf("unexpected input %+v", in)
	}
	if !bytes.Equal(in.Image, image) || in.ImageName != "cover.png" {
		t.Fatalf("expected cover image, got %d bytes named %q", len(in.Image), in.ImageName)
	}
}

func TestPostInputFromFileMissingImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.md")
	if err := os.WriteFile(path, []byte("---\ntitle: T\nimage: nope.png\n---\nx"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := postInputFromFile(path); err == nil {
		t.Fatal("expected missing image error")
	}
}
