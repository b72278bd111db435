package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"blogd/internal/api"
	"blogd/internal/models"
)

const (
	// formOverheadBytes is the slack above the image limit for text fields
	// and multipart framing.
	formOverheadBytes = 1 << 20
	multipartMemory   = 8 << 20
)

// readPostInput decodes a multipart, urlencoded or JSON post body.
func (s *Server) readPostInput(w http.ResponseWriter, r *http.Request) (postInput, error) {
	mediaType := ""
	if raw := r.Header.Get("Content-Type"); raw != "" {
		parsed, _, err := mime.ParseMediaType(raw)
		if err != nil {
			return postInput{}, badRequestCode(fmt.Errorf("invalid content type"), ErrCodeUnsupportedBody)
		}
		mediaType = parsed
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit(mediaType))

	switch mediaType {
	case "multipart/form-data":
		return s.readMultipartPost(r)
	case "application/x-www-form-urlencoded":
		return s.readURLEncodedPost(r)
	case "application/json", "":
		return s.readJSONPost(r)
	default:
		return postInput{}, badRequestCode(fmt.Errorf("unsupported content type %q", mediaType), ErrCodeUnsupportedBody)
	}
}

func (s *Server) readMultipartPost(r *http.Request) (postInput, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return postInput{}, classifyFormError(err)
	}

	in := postInput{
		Title:   r.PostFormValue("title"),
		Author:  r.PostFormValue("author"),
		Content: r.PostFormValue("content"),
	}

	file, header, err := r.FormFile(api.ImageFormField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return postInput{}, badRequestCode(fmt.Errorf("read image: %w", err), ErrCodeInvalidImage)
	}
	defer file.Close()

	if header.Size > s.maxUploadBytes {
		return postInput{}, s.imageTooLarge()
	}
	data, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		return postInput{}, classifyFormError(err)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return postInput{}, s.imageTooLarge()
	}
	if len(data) > 0 {
		in.Image = data
	}
	return in, nil
}

func (s *Server) readURLEncodedPost(r *http.Request) (postInput, error) {
	if err := r.ParseForm(); err != nil {
		return postInput{}, classifyFormError(err)
	}
	return s.postInputFromText(r.PostFormValue("title"), r.PostFormValue("author"), r.PostFormValue("content"), r.PostFormValue(api.ImageFormField))
}

func (s *Server) readJSONPost(r *http.Request) (postInput, error) {
	var req api.PostJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return postInput{}, classifyDecodeJSONError(err)
	}
	return s.postInputFromText(req.Title, req.Author, req.Content, req.Image)
}

// postInputFromText builds input from fields where the image is base64 text.
func (s *Server) postInputFromText(title, author, content, image string) (postInput, error) {
	in := postInput{Title: title, Author: author, Content: content}
	data, err := models.DecodeImage(image)
	if err != nil {
		return postInput{}, badRequestCode(fmt.Errorf("image must be base64 encoded"), ErrCodeInvalidImage)
	}
	if int64(len(data)) > s.maxUploadBytes {
		return postInput{}, s.imageTooLarge()
	}
	if len(data) > 0 {
		in.Image = data
	}
	return in, nil
}

// bodyLimit caps the request body. Text encodings carry the image as
// base64, which is a third larger than the raw bytes.
func (s *Server) bodyLimit(mediaType string) int64 {
	if mediaType == "multipart/form-data" {
		return s.maxUploadBytes + formOverheadBytes
	}
	return int64(base64.StdEncoding.EncodedLen(int(s.maxUploadBytes))) + formOverheadBytes
}

func (s *Server) imageTooLarge() error {
	return tooLarge(fmt.Errorf(msgImageTooLargeTmpl, s.maxUploadBytes))
}

func classifyFormError(err error) error {
	if isBodyTooLarge(err) {
		return tooLarge(errors.New(msgRequestTooLarge))
	}
	if strings.Contains(err.Error(), "no multipart boundary") {
		return badRequestCode(fmt.Errorf("multipart boundary is missing"), ErrCodeUnsupportedBody)
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}
