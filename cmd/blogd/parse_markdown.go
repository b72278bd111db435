package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"blogd/internal/api"
)

// postFrontMatter is the YAML header accepted by posts create --file.
type postFrontMatter struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
	Image  string `yaml:"image"`
}

// parseMarkdown splits an optional "---" delimited YAML header from the body.
func parseMarkdown(input string) (postFrontMatter, string, error) {
	var front postFrontMatter
	content := input

	lines := strings.Split(input, "\n")
	if len(lines) >= 2 && strings.TrimSpace(lines[0]) == "---" {
		end := -1
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				end = i
				break
			}
		}
		if end == -1 {
			return front, "", fmt.Errorf("front matter not closed")
		}
		frontText := strings.Join(lines[1:end], "\n")
		if err := yaml.Unmarshal([]byte(frontText), &front); err != nil {
			return front, "", fmt.Errorf("parse front matter: %w", err)
		}
		content = strings.Join(lines[end+1:], "\n")
	}

	return front, strings.TrimSpace(content), nil
}

// postInputFromFile reads a post file. A relative image path resolves
// against the file's directory.
func postInputFromFile(path string) (api.PostInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.PostInput{}, err
	}
	front, content, err := parseMarkdown(string(data))
	if err != nil {
		return api.PostInput{}, fmt.Errorf("%s: %w", path, err)
	}

	in := api.PostInput{
		Title:   strings.TrimSpace(front.Title),
		Author:  strings.TrimSpace(front.Author),
		Content: content,
	}
	if image := strings.TrimSpace(front.Image); image != "" {
		if !filepath.IsAbs(image) {
			image = filepath.Join(filepath.Dir(path), image)
		}
		if err := attachImage(&in, image); err != nil {
			return api.PostInput{}, err
		}
	}
	return in, nil
}

func attachImage(in *api.PostInput, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("image %s is empty", path)
	}
	in.Image = data
	in.ImageName = filepath.Base(path)
	return nil
}
