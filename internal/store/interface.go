package store

import (
	"context"
	"errors"
	"time"

	"blogd/internal/models"
)

// ErrDuplicateEmail is returned when a user with the same email already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// PostStore abstracts post storage backends.
//
// Lookups and deletes report a missing post as (nil, nil).
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	UpdatePost(ctx context.Context, id string, update models.PostUpdate, now time.Time) (*models.Post, error)
	DeletePost(ctx context.Context, id string) (*models.Post, error)
	CountPostsByImageKey(ctx context.Context, key string) (int, error)
}

// UserStore abstracts account storage backends.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Store is the full content store used by the API server.
type Store interface {
	PostStore
	UserStore
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
