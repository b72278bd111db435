package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"blogd/internal/api"
	"blogd/internal/server"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "invalid_credentials":
			lines = append(lines, "hint: check the email and password; register first with: blogd register")
		case "invalid_id", "not_found":
			lines = append(lines, "hint: list post ids with: blogd posts list")
		case "payload_too_large":
			lines = append(lines, "hint: raise images.max_upload_bytes on the server or upload a smaller image.")
		}
		if apiErr.ErrorCode == server.ErrCodeEmailExists {
			lines = append(lines, "hint: that email is taken; log in instead with: blogd login")
		}
		if apiErr.Code == "" && apiErr.Status == http.StatusNotFound {
			lines = append(lines, "hint: verify BLOGD_API_URL points to a blogd server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase BLOGD_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a blogd server is running at BLOGD_API_URL.",
			"hint: start local server manually with: blogd srv",
		)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
