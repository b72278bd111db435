package api

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Msg string `json:"msg"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// PostJSONRequest is the JSON form of a create or edit body.
// Image is the base64 text of the image bytes.
type PostJSONRequest struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Content string `json:"content"`
	Image   string `json:"image,omitempty"`
}

// PostInput is what the client sends for a create or edit.
type PostInput struct {
	Title     string
	Author    string
	Content   string
	Image     []byte
	ImageName string
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ImageGCRequest is the body of POST /admin/images/gc.
type ImageGCRequest struct {
	DryRun bool `json:"dry_run"`
	// GraceSeconds overrides the server's grace window when positive.
	GraceSeconds int `json:"grace_seconds,omitempty"`
}

// ImageGCResponse summarizes one image sweep.
type ImageGCResponse struct {
	Scanned        int   `json:"scanned" yaml:"scanned"`
	SkippedRecent  int   `json:"skipped_recent" yaml:"skipped_recent"`
	CandidateCount int   `json:"candidate_count" yaml:"candidate_count"`
	DeletedCount   int   `json:"deleted_count" yaml:"deleted_count"`
	FailedCount    int   `json:"failed_count" yaml:"failed_count"`
	ReclaimedBytes int64 `json:"reclaimed_bytes" yaml:"reclaimed_bytes"`
	DryRun         bool  `json:"dry_run" yaml:"dry_run"`
}

// ConfirmHeader must be "true" on an applying image sweep.
const ConfirmHeader = "X-Confirm"

// Fixed response messages.
const (
	LoginSuccessMessage  = "Login Successful"
	PostDeletedMessage   = "Post deleted successfully"
	PostNotFoundMessage  = "Post not found"
	InvalidCredsMessage  = "Invalid credentials"
	ImageFormField       = "image"
	DefaultImageFileName = "image"
)
