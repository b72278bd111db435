package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
)

const imageField = "image"

// createSubmission is a decoded create form. On a read error it still holds
// every field read before the failure.
type createSubmission struct {
	form   formData
	action string
	image  []byte
	name   string
}

// readCreateForm streams the request body part by part so the text fields
// survive an oversized image. Only body fields are read, never the query.
func (a *App) readCreateForm(w http.ResponseWriter, r *http.Request) (createSubmission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes+formOverheadBytes)

	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		if err := r.ParseForm(); err != nil {
			return createSubmission{}, err
		}
		return submissionFromValues(r.PostForm), nil
	}
	if err != nil {
		return createSubmission{}, err
	}

	values := url.Values{}
	var image []byte
	var name string
	var imageErr error
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return submissionFromValues(values), err
		}

		if part.FormName() == imageField && part.FileName() != "" {
			if image != nil || imageErr != nil {
				_, err = io.Copy(io.Discard, part)
			} else {
				image, err = a.readImagePart(part)
				name = part.FileName()
				if errors.Is(err, errTooLarge) {
					imageErr, image = err, nil
					_, err = io.Copy(io.Discard, part)
				}
			}
		} else if part.FormName() != "" {
			var data []byte
			data, err = io.ReadAll(io.LimitReader(part, formOverheadBytes))
			values.Add(part.FormName(), string(data))
		}
		_ = part.Close()
		if err != nil {
			return submissionFromValues(values), firstErr(imageErr, err)
		}
	}

	sub := submissionFromValues(values)
	if imageErr != nil {
		return sub, imageErr
	}
	if len(image) > 0 {
		sub.image, sub.name = image, name
	}
	return sub, nil
}

func (a *App) readImagePart(part io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(part, a.maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > a.maxUploadBytes {
		return nil, a.imageTooLarge()
	}
	return data, nil
}

func submissionFromValues(values url.Values) createSubmission {
	return createSubmission{
		form: formData{
			Token:   values.Get("token"),
			Title:   values.Get("title"),
			Author:  values.Get("author"),
			Content: values.Get("content"),
		},
		action: values.Get("action"),
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
