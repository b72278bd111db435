package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"blogd/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "BLOGD_HTTP_TIMEOUT"
)

// Client is a simple HTTP client for the blogd API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   httpTimeoutFromEnv(),
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (models.User, error) {
	var resp models.User
	err := c.do(ctx, http.MethodPost, "/register", req, &resp)
	return resp, err
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/login", req, &resp)
	return resp, err
}

func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var resp []models.Post
	err := c.do(ctx, http.MethodGet, "/posts", nil, &resp)
	return resp, err
}

func (c *Client) GetPost(ctx context.Context, id string) (models.Post, error) {
	var resp models.Post
	err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// CreatePost sends a multipart create request.
func (c *Client) CreatePost(ctx context.Context, in PostInput) (models.Post, error) {
	var resp models.Post
	err := c.doMultipart(ctx, http.MethodPost, "/posts", in, &resp)
	return resp, err
}

// UpdatePost sends a multipart edit request. A nil image keeps the current one.
func (c *Client) UpdatePost(ctx context.Context, id string, in PostInput) (models.Post, error) {
	var resp models.Post
	err := c.doMultipart(ctx, http.MethodPut, "/edit/"+url.PathEscape(id), in, &resp)
	return resp, err
}

func (c *Client) DeletePost(ctx context.Context, id string) (MessageResponse, error) {
	var resp MessageResponse
	err := c.do(ctx, http.MethodDelete, "/delete/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// GCImages asks the server to sweep unreferenced image blobs. Applying a
// sweep sends the confirm header.
func (c *Client) GCImages(ctx context.Context, req ImageGCRequest) (ImageGCResponse, error) {
	var resp ImageGCResponse
	payload, err := json.Marshal(req)
	if err != nil {
		return resp, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/images/gc", bytes.NewReader(payload))
	if err != nil {
		return resp, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if !req.DryRun {
		httpReq.Header.Set(ConfirmHeader, "true")
	}
	err = c.send(httpReq, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, in PostInput, out any) error {
	payload, contentType, err := encodeMultipart(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func encodeMultipart(in PostInput) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := []struct{ name, value string }{
		{"title", in.Title},
		{"author", in.Author},
		{"content", in.Content},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if len(in.Image) > 0 {
		name := strings.TrimSpace(in.ImageName)
		if name == "" {
			name = DefaultImageFileName
		}
		part, err := w.CreateFormFile(ImageFormField, name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(in.Image); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		apiErr.Code = errResp.Code
		apiErr.ErrorCode = errResp.ErrorCode
		apiErr.Message = errResp.Error
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("api error: %s", resp.Status)
	return apiErr
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
