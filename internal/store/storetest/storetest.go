// Package storetest holds the behavior every store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"blogd/internal/models"
	"blogd/internal/store"
)

// Factory returns a fresh, empty store. The factory registers its own cleanup.
type Factory func(t *testing.T) store.Store

// Run exercises a backend against the shared post and user contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, st store.Store)
	}{
		{"CreateAndGetPost", testCreateAndGetPost},
		{"GetMissingPost", testGetMissingPost},
		{"ListPostsNewestFirst", testListPostsNewestFirst},
		{"ListPostsEmpty", testListPostsEmpty},
		{"MillisecondTimestamps", testMillisecondTimestamps},
		{"UpdatePost", testUpdatePost},
		{"UpdatePostImage", testUpdatePostImage},
		{"UpdateMissingPost", testUpdateMissingPost},
		{"DeletePost", testDeletePost},
		{"CountPostsByImageKey", testCountPostsByImageKey},
		{"CreateAndGetUser", testCreateAndGetUser},
		{"DuplicateEmail", testDuplicateEmail},
		{"GetMissingUser", testGetMissingUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// baseTime is millisecond aligned so every backend round-trips it exactly.
var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newPost(title string, createdAt time.Time) *models.Post {
	return &models.Post{
		ID:        store.NewID(),
		Title:     title,
		Author:    "ada",
		Content:   "<p>hello " + title + "</p>",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func mustCreatePost(t *testing.T, st store.Store, post *models.Post) {
	t.Helper()
	if err := st.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("create post: %v", err)
	}
}

func testCreateAndGetPost(t *testing.T, st store.Store) {
	ctx := context.Background()
	post := newPost("first", baseTime)
	post.Image = models.EncodeImage([]byte("fake-jpeg"))
	mustCreatePost(t, st, post)

	got, err := st.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got == nil {
		t.Fatal("expected post")
	}
	if got.Title != "first" || got.Author != "ada" || got.Content != post.Content {
		t.Fatalf("unexpected fields: %+v", got)
	}
	if got.Image != post.Image {
		t.Fatalf("expected image %q, got %q", post.Image, got.Image)
	}
	if !got.CreatedAt.Equal(baseTime) || !got.UpdatedAt.Equal(baseTime) {
		t.Fatalf("unexpected timestamps: created=%v updated=%v", got.CreatedAt, got.UpdatedAt)
	}
}

func testGetMissingPost(t *testing.T, st store.Store) {
	got, err := st.GetPost(context.Background(), store.NewID())
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil post, got %+v", got)
	}
}

func testListPostsNewestFirst(t *testing.T, st store.Store) {
	ctx := context.Background()
	oldest := newPost("oldest", baseTime)
	middle := newPost("middle", baseTime.Add(time.Minute))
	newest := newPost("newest", baseTime.Add(2*time.Minute))
	for _, post := range []*models.Post{middle, oldest, newest} {
		mustCreatePost(t, st, post)
	}

	posts, err := st.ListPosts(ctx)
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}
	want := []string{"newest", "middle", "oldest"}
	for i, title := range want {
		if posts[i].Title != title {
			t.Fatalf("position %d: expected %q, got %q", i, title, posts[i].Title)
		}
	}
}

func testListPostsEmpty(t *testing.T, st store.Store) {
	posts, err := st.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("list posts: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("expected no posts, got %d", len(posts))
	}
}

// Millisecond precision is the finest every backend keeps, and the post
// service truncates to it before writing.
func testMillisecondTimestamps(t *testing.T, st store.Store) {
	ctx := context.Background()
	created := baseTime.Add(123 * time.Millisecond)
	post := newPost("precise", created)
	mustCreatePost(t, st, post)

	got, err := st.GetPost(ctx, post.ID)
	if err != nil || got == nil {
		t.Fatalf("get post: %v", err)
	}
	if !got.CreatedAt.Equal(created) || !got.UpdatedAt.Equal(created) {
		t.Fatalf("expected %v, got created=%v updated=%v", created, got.CreatedAt, got.UpdatedAt)
	}

	edited := created.Add(1456 * time.Millisecond)
	updated, err := st.UpdatePost(ctx, post.ID, models.PostUpdate{Title: "t", Author: "a", Content: "c"}, edited)
	if err != nil || updated == nil {
		t.Fatalf("update post: %v", err)
	}
	if !updated.CreatedAt.Equal(created) || !updated.UpdatedAt.Equal(edited) {
		t.Fatalf("expected created=%v updated=%v, got %v / %v", created, edited, updated.CreatedAt, updated.UpdatedAt)
	}

	posts, err := st.ListPosts(ctx)
	if err != nil || len(posts) != 1 {
		t.Fatalf("list posts: %v (%d)", err, len(posts))
	}
	if !posts[0].CreatedAt.Equal(created) {
		t.Fatalf("list createdAt %v, want %v", posts[0].CreatedAt, created)
	}
}

func testUpdatePost(t *testing.T, st store.Store) {
	ctx := context.Background()
	post := newPost("draft", baseTime)
	post.Image = models.EncodeImage([]byte("keep-me"))
	mustCreatePost(t, st, post)

	later := baseTime.Add(time.Hour)
	updated, err := st.UpdatePost(ctx, post.ID, models.PostUpdate{
		Title:   "final",
		Author:  "grace",
		Content: "<p>done</p>",
	}, later)
	if err != nil {
		t.Fatalf("update post: %v", err)
	}
	if updated == nil {
		t.Fatal("expected updated post")
	}
	if updated.Title != "final" || updated.Author != "grace" || updated.Content != "<p>done</p>" {
		t.Fatalf("unexpected fields: %+v", updated)
	}
	if updated.Image != post.Image {
		t.Fatal("expected image to be kept")
	}
	if !updated.CreatedAt.Equal(baseTime) {
		t.Fatalf("expected createdAt unchanged, got %v", updated.CreatedAt)
	}
	if !updated.UpdatedAt.Equal(later) {
		t.Fatalf("expected updatedAt %v, got %v", later, updated.UpdatedAt)
	}

	reloaded, err := st.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if reloaded == nil || reloaded.Title != "final" {
		t.Fatalf("expected persisted update, got %+v", reloaded)
	}
}

func testUpdatePostImage(t *testing.T, st store.Store) {
	ctx := context.Background()
	post := newPost("pic", baseTime)
	post.ImageKey = "sha256/old"
	mustCreatePost(t, st, post)

	newKey := "sha256/new"
	updated, err := st.UpdatePost(ctx, post.ID, models.PostUpdate{
		Title:    post.Title,
		Author:   post.Author,
		Content:  post.Content,
		ImageKey: &newKey,
	}, baseTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("update post: %v", err)
	}
	if updated == nil || updated.ImageKey != newKey {
		t.Fatalf("expected image key %q, got %+v", newKey, updated)
	}

	cleared := ""
	updated, err = st.UpdatePost(ctx, post.ID, models.PostUpdate{
		Title:    post.Title,
		Author:   post.Author,
		Content:  post.Content,
		ImageKey: &cleared,
	}, baseTime.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("clear image key: %v", err)
	}
	if updated == nil || updated.ImageKey != "" {
		t.Fatalf("expected cleared image key, got %+v", updated)
	}
}

func testUpdateMissingPost(t *testing.T, st store.Store) {
	updated, err := st.UpdatePost(context.Background(), store.NewID(), models.PostUpdate{
		Title:   "x",
		Author:  "y",
		Content: "z",
	}, baseTime)
	if err != nil {
		t.Fatalf("update post: %v", err)
	}
	if updated != nil {
		t.Fatalf("expected nil for missing post, got %+v", updated)
	}
}

func testDeletePost(t *testing.T, st store.Store) {
	ctx := context.Background()
	post := newPost("doomed", baseTime)
	mustCreatePost(t, st, post)

	deleted, err := st.DeletePost(ctx, post.ID)
	if err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if deleted == nil || deleted.ID != post.ID {
		t.Fatalf("expected deleted post %s, got %+v", post.ID, deleted)
	}

	got, err := st.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if got != nil {
		t.Fatal("expected post to be gone")
	}

	again, err := st.DeletePost(ctx, post.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if again != nil {
		t.Fatalf("expected nil on second delete, got %+v", again)
	}
}

func testCountPostsByImageKey(t *testing.T, st store.Store) {
	ctx := context.Background()
	a := newPost("a", baseTime)
	a.ImageKey = "sha256/shared"
	b := newPost("b", baseTime.Add(time.Second))
	b.ImageKey = "sha256/shared"
	c := newPost("c", baseTime.Add(2*time.Second))
	for _, post := range []*models.Post{a, b, c} {
		mustCreatePost(t, st, post)
	}

	count, err := st.CountPostsByImageKey(ctx, "sha256/shared")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 references, got %d", count)
	}

	count, err = st.CountPostsByImageKey(ctx, "")
	if err != nil {
		t.Fatalf("count empty key: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 for empty key, got %d", count)
	}
}

func testCreateAndGetUser(t *testing.T, st store.Store) {
	ctx := context.Background()
	user := &models.User{
		Username:     "ada",
		Email:        "Ada@Example.com",
		PasswordHash: "hash-1",
		CreatedAt:    baseTime,
	}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected id to be assigned")
	}

	got, err := st.GetUserByEmail(ctx, " ADA@example.COM ")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil {
		t.Fatal("expected user")
	}
	if got.ID != user.ID || got.Username != "ada" || got.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.PasswordHash != "hash-1" {
		t.Fatalf("expected stored hash, got %q", got.PasswordHash)
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Fatalf("unexpected createdAt %v", got.CreatedAt)
	}
}

func testDuplicateEmail(t *testing.T, st store.Store) {
	ctx := context.Background()
	first := &models.User{Username: "ada", Email: "ada@example.com", PasswordHash: "h1"}
	if err := st.CreateUser(ctx, first); err != nil {
		t.Fatalf("create first user: %v", err)
	}
	second := &models.User{Username: "other", Email: "ADA@example.com", PasswordHash: "h2"}
	err := st.CreateUser(ctx, second)
	if !errors.Is(err, store.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func testGetMissingUser(t *testing.T, st store.Store) {
	got, err := st.GetUserByEmail(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil user, got %+v", got)
	}
}
