package models

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// MaxImageBytes caps one uploaded post image (10 MiB).
const MaxImageBytes int64 = 10 * 1024 * 1024

// Post is one blog entry.
//
// Image holds the base64 text of the image bytes. When an object-storage
// backend keeps the bytes, ImageKey points at the blob and Image is filled
// on read.
type Post struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Author    string    `json:"author" yaml:"author"`
	Content   string    `json:"content" yaml:"content"`
	Image     string    `json:"image,omitempty" yaml:"image,omitempty"`
	ImageKey  string    `json:"-" yaml:"-"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// HasImage reports whether the post carries an image in any form.
func (p *Post) HasImage() bool {
	if p == nil {
		return false
	}
	return p.Image != "" || p.ImageKey != ""
}

// EncodeImage returns the stored text form of raw image bytes.
func EncodeImage(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeImage returns the raw bytes of a stored base64 image.
func DecodeImage(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}

// PostUpdate holds the editable fields of a post.
//
// Image and ImageKey are nil when the update keeps the current image.
type PostUpdate struct {
	Title    string
	Author   string
	Content  string
	Image    *string
	ImageKey *string
}
