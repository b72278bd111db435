package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"blogd/internal/api"
	"blogd/internal/store"
)

const defaultJSONMaxBody = 1 << 20 // 1 MiB

// Public messages for failures the client cannot act on.
const (
	msgFetchPostsFailed  = "An error occurred while fetching posts"
	msgFetchPostFailed   = "An error occurred while fetching the post"
	msgCreatePostFailed  = "An error occurred while creating the post"
	msgUpdatePostFailed  = "An error occurred while updating the post"
	msgDeletePostFailed  = "An error occurred while deleting the post"
	msgRegisterFailed    = "An error occurred while registering the user"
	msgLoginFailed       = "An error occurred while logging in"
	msgImageGCFailed     = "An error occurred while collecting images"
	msgInternalError     = "internal error"
	msgRequestTooLarge   = "request body too large"
	msgImageTooLargeTmpl = "image exceeds %d bytes"
)

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	code := errorCode(status, err)
	numericCode := errorNumericCode(status, err)
	message := err.Error()

	fields := []any{"status", status, "code", code, "error_code", numericCode, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}

	switch {
	case status >= 500:
		s.log().Error("request error", fields...)
		message = publicMessage(err)
	case status == http.StatusRequestEntityTooLarge:
		s.log().Warn("request rejected", fields...)
	case status >= 400:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: code, ErrorCode: numericCode})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

// apiError carries the HTTP mapping of a failure. public replaces the
// message of 5xx responses; the wrapped error is only logged.
type apiError struct {
	status  int
	code    string
	errCode int
	public  string
	err     error
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	var existing apiError
	if errors.As(err, &existing) {
		if existing.status != 0 {
			return existing
		}
	}

	return apiError{status: status, code: code, errCode: errCode, err: err}
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func notFoundCode(err error, code int) error {
	return makeAPIError(http.StatusNotFound, "not_found", code, err)
}

func conflictCode(err error, code int) error {
	return makeAPIError(http.StatusConflict, "conflict", code, err)
}

func tooLarge(err error) error {
	return makeAPIError(http.StatusRequestEntityTooLarge, "payload_too_large", ErrCodeRequestTooLarge, err)
}

func postNotFound() error {
	return notFoundCode(errors.New(api.PostNotFoundMessage), ErrCodePostNotFound)
}

func invalidPostID() error {
	return apiError{
		status:  http.StatusNotFound,
		code:    "invalid_id",
		errCode: ErrCodeInvalidID,
		err:     errors.New(api.PostNotFoundMessage),
	}
}

func invalidCredentials() error {
	return apiError{
		status:  http.StatusBadRequest,
		code:    "invalid_credentials",
		errCode: ErrCodeInvalidCredentials,
		err:     errors.New(api.InvalidCredsMessage),
	}
}

func storeFailure(err error, public string) error {
	return withPublic(makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStoreFailure, err), public)
}

func imageFailure(err error, public string) error {
	return withPublic(makeAPIError(http.StatusInternalServerError, "internal", ErrCodeImageFailure, err), public)
}

func withPublic(err error, public string) error {
	var apiErr apiError
	if !errors.As(err, &apiErr) || apiErr.status < 500 || apiErr.public != "" {
		return err
	}
	apiErr.public = public
	return apiErr
}

func publicMessage(err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.public != "" {
		return apiErr.public
	}
	return msgInternalError
}

func httpStatusFromError(err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorCode(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.code != "" {
		return apiErr.code
	}
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusInternalServerError:
		return "internal"
	default:
		return ""
	}
}

func errorNumericCode(status int, err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.errCode > 0 {
		return apiErr.errCode
	}
	return defaultErrorCodeByStatus(status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func classifyDecodeJSONError(err error) error {
	if err == nil {
		return nil
	}

	if isBodyTooLarge(err) {
		return tooLarge(errors.New(msgRequestTooLarge))
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return badRequestCode(fmt.Errorf("invalid JSON payload"), ErrCodeInvalidJSON)
	}

	return badRequestCode(err, ErrCodeInvalidJSON)
}

func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst, defaultJSONMaxBody); err != nil {
		err = classifyDecodeJSONError(err)
		s.writeErrorReq(w, r, httpStatusFromError(err), err)
		return false
	}
	return true
}

func isBodyTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}

// pathPostID returns the {id} path value, rejecting ids no store could hold.
func pathPostID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !store.ValidID(id) {
		return "", invalidPostID()
	}
	return id, nil
}

func (s *Server) pathPostIDOrNotFound(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := pathPostID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return "", false
	}
	return id, true
}
