// Package pgstore is the PostgreSQL store backend.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"blogd/internal/models"
	"blogd/internal/store"
)

const (
	defaultMaxConns = 10
	uniqueViolation = "23505"
	postColumns     = "id, title, author, content, image, image_key, created_at, updated_at"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS posts (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  author TEXT NOT NULL,
  content TEXT NOT NULL,
  image TEXT,
  image_key TEXT,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at_desc ON posts (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_posts_image_key ON posts (image_key);

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);
`

// Store keeps posts and users in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and makes sure the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns == 0 || cfg.MaxConns > defaultMaxConns {
		cfg.MaxConns = defaultMaxConns
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap postgres schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// CreatePost inserts a new post.
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil {
		return fmt.Errorf("post is required")
	}
	if post.ID == "" {
		post.ID = store.NewID()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = store.Now()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		post.ID,
		post.Title,
		post.Author,
		post.Content,
		nullIfEmpty(post.Image),
		nullIfEmpty(post.ImageKey),
		post.CreatedAt.UTC(),
		post.UpdatedAt.UTC(),
	)
	return err
}

// GetPost returns a post by id.
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, "SELECT "+postColumns+" FROM posts WHERE id = $1", id)
	return scanPost(row)
}

// ListPosts returns all posts, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+postColumns+" FROM posts ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		if post != nil {
			posts = append(posts, *post)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdatePost overwrites the editable fields of a post and returns the result.
func (s *Store) UpdatePost(ctx context.Context, id string, update models.PostUpdate, now time.Time) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	set := []string{"title = $1", "author = $2", "content = $3"}
	args := []any{update.Title, update.Author, update.Content}
	if update.Image != nil {
		args = append(args, nullIfEmpty(*update.Image))
		set = append(set, fmt.Sprintf("image = $%d", len(args)))
	}
	if update.ImageKey != nil {
		args = append(args, nullIfEmpty(*update.ImageKey))
		set = append(set, fmt.Sprintf("image_key = $%d", len(args)))
	}
	args = append(args, now.UTC())
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE posts SET %s WHERE id = $%d RETURNING %s", strings.Join(set, ", "), len(args), postColumns)
	return scanPost(s.pool.QueryRow(ctx, query, args...))
}

// DeletePost removes a post and returns the removed record.
func (s *Store) DeletePost(ctx context.Context, id string) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx, "DELETE FROM posts WHERE id = $1 RETURNING "+postColumns, id)
	return scanPost(row)
}

// CountPostsByImageKey returns how many posts reference an image blob.
func (s *Store) CountPostsByImageKey(ctx context.Context, key string) (int, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, nil
	}
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM posts WHERE image_key = $1", key).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	user.Email = store.NormalizeEmail(user.Email)
	if user.Email == "" {
		return fmt.Errorf("email is required")
	}
	if strings.TrimSpace(user.PasswordHash) == "" {
		return fmt.Errorf("password hash is required")
	}
	if user.ID == "" {
		user.ID = store.NewID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = store.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetUserByEmail returns an account by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = store.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var user models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var post models.Post
	var image, imageKey *string
	if err := row.Scan(&post.ID, &post.Title, &post.Author, &post.Content, &image, &imageKey, &post.CreatedAt, &post.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if image != nil {
		post.Image = *image
	}
	if imageKey != nil {
		post.ImageKey = *imageKey
	}
	post.CreatedAt = post.CreatedAt.UTC()
	post.UpdatedAt = post.UpdatedAt.UTC()
	return &post, nil
}

func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
