package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"blogd/internal/feed"
	"blogd/internal/format"
	"blogd/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeStructured(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writePostList(posts []models.Post) error {
	if len(posts) == 0 {
		return writePlain("no posts\n")
	}
	for i, item := range feed.Build(posts) {
		if i > 0 {
			if err := writePlain("\n"); err != nil {
				return err
			}
		}
		if err := writePlain("%s\n", formatPostItem(item)); err != nil {
			return err
		}
	}
	return nil
}

func formatPostItem(item feed.Item) string {
	header := fmt.Sprintf("%s  %s  by %s", item.ID, item.Title, item.Author)
	if item.Post.HasImage() {
		header += "  [image]"
	}
	if item.Excerpt == "" {
		return header
	}
	return header + "\n  " + item.Excerpt
}

func writePostDetail(post models.Post) error {
	lines := []string{
		fmt.Sprintf("id: %s", post.ID),
		fmt.Sprintf("title: %s", post.Title),
		fmt.Sprintf("author: %s", post.Author),
		fmt.Sprintf("created_at: %s", formatTime(post.CreatedAt)),
		fmt.Sprintf("updated_at: %s", formatTime(post.UpdatedAt)),
	}
	if post.Image != "" {
		data, err := models.DecodeImage(post.Image)
		if err == nil {
			lines = append(lines, fmt.Sprintf("image: %d bytes", len(data)))
		}
	}
	lines = append(lines, "", feed.StripMarkup(post.Content))
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func writeUser(user models.User) error {
	return writePlain("registered %s <%s> (%s)\n", user.Username, user.Email, user.ID)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
