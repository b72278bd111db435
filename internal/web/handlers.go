package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"blogd/internal/api"
	"blogd/internal/feed"
)

// Notifications shown to the user.
const (
	flashPostCreated    = "Post created"
	noticeLoadFailed    = "Could not load posts"
	noticeSubmitNetwork = "An error occurred while submitting the post"
	noticeSubmitPrefix  = "Failed to create post: "
	formOverheadBytes   = 1 << 20
)

type pageData struct {
	Title  string
	Flash  string
	Notice string
	Items  []feed.Item
	Item   *detailItem
	Form   formData
}

type detailItem struct {
	feed.Item
	Text string
}

type formData struct {
	Token      string
	Title      string
	Author     string
	Content    string
	PreviewURL string
}

func (a *App) handleFeed(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Posts", Flash: a.sessions.PopString(r.Context(), flashKey)}

	posts, err := a.backend.ListPosts(r.Context())
	if err != nil {
		a.logger.Warn("list posts", "error", err)
		data.Notice = noticeLoadFailed
		a.render(w, http.StatusBadGateway, "feed", data)
		return
	}

	data.Items = feed.Build(posts)
	a.render(w, http.StatusOK, "feed", data)
}

func (a *App) handlePost(w http.ResponseWriter, r *http.Request) {
	post, err := a.backend.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		status := http.StatusBadGateway
		notice := noticeLoadFailed
		if apiErr, ok := api.AsAPIError(err); ok && apiErr.Status == http.StatusNotFound {
			status = http.StatusNotFound
			notice = apiErr.Message
		}
		a.render(w, status, "post", pageData{Title: "Post", Notice: notice})
		return
	}

	item := feed.NewItem(post)
	a.render(w, http.StatusOK, "post", pageData{
		Title: post.Title,
		Item:  &detailItem{Item: item, Text: feed.StripMarkup(post.Content)},
	})
}

func (a *App) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	a.render(w, http.StatusOK, "create", pageData{
		Title: "New post",
		Form:  formData{Token: uuid.NewString()},
	})
}

func (a *App) handleCreateSubmit(w http.ResponseWriter, r *http.Request) {
	sub, err := a.readCreateForm(w, r)
	form := sub.form
	form.Token = formToken(form.Token)
	if err != nil {
		a.previews.Revoke(form.Token)
		a.renderForm(w, uploadErrorStatus(err), form, noticeSubmitPrefix+uploadErrorMessage(err))
		return
	}

	if sub.action == "preview" {
		a.handlePreviewAction(w, form, sub.image, sub.name)
		return
	}
	a.submit(w, r, form, sub.image, sub.name)
}

func (a *App) handlePreviewAction(w http.ResponseWriter, form formData, image []byte, name string) {
	if image != nil {
		form.PreviewURL = a.previews.Replace(form.Token, image, name).URL()
	} else if current, ok := a.previews.Current(form.Token); ok {
		form.PreviewURL = current.URL()
	}
	a.renderForm(w, http.StatusOK, form, "")
}

// submit creates the post with the chosen image, else the previewed one.
// The preview is revoked whatever the outcome.
func (a *App) submit(w http.ResponseWriter, r *http.Request, form formData, image []byte, name string) {
	defer a.previews.Revoke(form.Token)

	if image == nil {
		if preview, ok := a.previews.Current(form.Token); ok {
			image, name = preview.Data, preview.Name
		}
	}

	_, err := a.backend.CreatePost(r.Context(), api.PostInput{
		Title:     form.Title,
		Author:    form.Author,
		Content:   form.Content,
		Image:     image,
		ImageName: name,
	})
	if err != nil {
		a.logger.Warn("create post", "error", err)
		status, notice := submitFailure(err)
		a.renderForm(w, status, form, notice)
		return
	}

	a.sessions.Put(r.Context(), flashKey, flashPostCreated)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handlePreview(w http.ResponseWriter, r *http.Request) {
	preview, ok := a.previews.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", preview.MediaType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(preview.Data)
}

func (a *App) renderForm(w http.ResponseWriter, status int, form formData, notice string) {
	a.render(w, status, "create", pageData{Title: "New post", Notice: notice, Form: form})
}

func (a *App) imageTooLarge() error {
	return fmt.Errorf("%w: image exceeds %d bytes", errTooLarge, a.maxUploadBytes)
}

func submitFailure(err error) (int, string) {
	if apiErr, ok := api.AsAPIError(err); ok {
		status := apiErr.Status
		if status < 400 || status >= 600 {
			status = http.StatusBadGateway
		}
		return status, noticeSubmitPrefix + apiErr.Message
	}
	return http.StatusBadGateway, noticeSubmitNetwork
}

func formToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if _, err := uuid.Parse(raw); err != nil {
		return uuid.NewString()
	}
	return raw
}

var errTooLarge = errors.New("upload too large")

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.Is(err, errTooLarge) || errors.As(err, &maxBytesErr) ||
		strings.Contains(err.Error(), "request body too large")
}

func uploadErrorStatus(err error) int {
	if isTooLarge(err) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func uploadErrorMessage(err error) string {
	if isTooLarge(err) && !errors.Is(err, errTooLarge) {
		return "request body too large"
	}
	return err.Error()
}
