// Package feed turns stored posts into feed previews.
package feed

import (
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"blogd/internal/models"
)

// PreviewLength is the number of characters kept from a post body.
const PreviewLength = 340

const fallbackImageType = "image/jpeg"

// Item is one rendered feed entry.
type Item struct {
	ID       string
	Title    string
	Author   string
	Excerpt  string
	ImageURI string
	Post     models.Post
}

// Build renders posts in the order given.
func Build(posts []models.Post) []Item {
	items := make([]Item, 0, len(posts))
	for _, post := range posts {
		items = append(items, NewItem(post))
	}
	return items
}

// NewItem renders one post.
func NewItem(post models.Post) Item {
	return Item{
		ID:       post.ID,
		Title:    post.Title,
		Author:   post.Author,
		Excerpt:  Truncate(StripMarkup(post.Content), PreviewLength),
		ImageURI: ImageDataURI(post.Image),
		Post:     post,
	}
}

// StripMarkup returns the text content of an HTML fragment.
func StripMarkup(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return content
	}
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return content
	}
	body := findBody(doc)
	if body == nil {
		body = doc
	}
	var b strings.Builder
	collectText(body, &b)
	return b.String()
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findBody(c); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// Truncate keeps the first limit characters and appends "..." when text was cut.
func Truncate(text string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

// ImageDataURI renders a stored base64 image as an inline data URI.
func ImageDataURI(encoded string) string {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return ""
	}
	return "data:" + imageMediaType(encoded) + ";base64," + encoded
}

func imageMediaType(encoded string) string {
	// 512 sniffed bytes need at most 684 base64 characters.
	head := encoded
	if len(head) > 684 {
		head = head[:684]
	}
	head = head[:len(head)-len(head)%4]
	data, err := models.DecodeImage(head)
	if err != nil || len(data) == 0 {
		return fallbackImageType
	}
	mediaType := http.DetectContentType(data)
	if !strings.HasPrefix(mediaType, "image/") {
		return fallbackImageType
	}
	return mediaType
}
