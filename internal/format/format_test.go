package format

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"blogd/internal/models"
)

func TestFormatters(t *testing.T) {
	post := models.Post{
		ID:        "p1",
		Title:     "Hello",
		Author:    "Ann",
		Content:   "Body",
		ImageKey:  "sha256:abc",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	tests := []struct {
		name    string
		format  string
		want    []string
		notWant []string
	}{
		{name: "json", format: "json", want: []string{`"title": "Hello"`, `"createdAt": "2026-01-02T03:04:05Z"`}, notWant: []string{"sha256", `"image"`}},
		{name: "yaml", format: "yaml", want: []string{"title: Hello", "author: Ann"}, notWant: []string{"sha256", "image:"}},
		{name: "yml alias", format: "YML", want: []string{"id: p1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ForName(tt.format)
			if err != nil {
				t.Fatalf("ForName: %v", err)
			}
			var buf bytes.Buffer
			if err := f.Write(&buf, post); err != nil {
				t.Fatalf("write: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Fatalf("expected %q in %s", want, buf.String())
				}
			}
			for _, bad := range tt.notWant {
				if strings.Contains(buf.String(), bad) {
					t.Fatalf("unexpected %q in %s", bad, buf.String())
				}
			}
		})
	}
}

func TestUserHashNeverRendered(t *testing.T) {
	user := models.User{ID: "u1", Username: "ann", Email: "ann@example.com", PasswordHash: "$2a$10$secret"}
	for _, name := range []string{NameJSON, NameYAML} {
		f, _ := ForName(name)
		var buf bytes.Buffer
		if err := f.Write(&buf, user); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if strings.Contains(buf.String(), "secret") {
			t.Fatalf("%s output leaked the hash: %s", name, buf.String())
		}
	}
}

func TestForNameRejectsUnknown(t *testing.T) {
	if _, err := ForName("xml"); err == nil {
		t.Fatal("expected error")
	}
}
