package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"blogd/internal/models"
)

const postColumns = "id, title, author, content, image, image_key, created_at, updated_at"

// CreatePost inserts a new post. ID and timestamps are filled when empty.
func (s *SQLiteStore) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil {
		return fmt.Errorf("post is required")
	}
	if post.ID == "" {
		post.ID = NewID()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = Now()
	}
	if post.UpdatedAt.IsZero() {
		post.UpdatedAt = post.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		post.ID,
		post.Title,
		post.Author,
		post.Content,
		nullIfEmpty(post.Image),
		nullIfEmpty(post.ImageKey),
		dbFormatTime(post.CreatedAt),
		dbFormatTime(post.UpdatedAt),
	)
	return err
}

// GetPost returns a post by id.
func (s *SQLiteStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id)
	return scanPost(row)
}

// ListPosts returns all posts, newest first.
func (s *SQLiteStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+postColumns+" FROM posts ORDER BY created_at DESC, id DESC")
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
		if post == nil {
			continue
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdatePost overwrites the editable fields of a post and returns the result.
func (s *SQLiteStore) UpdatePost(ctx context.Context, id string, update models.PostUpdate, now time.Time) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	set := []string{"title = ?", "author = ?", "content = ?"}
	args := []any{update.Title, update.Author, update.Content}
	if update.Image != nil {
		set = append(set, "image = ?")
		args = append(args, nullIfEmpty(*update.Image))
	}
	if update.ImageKey != nil {
		set = append(set, "image_key = ?")
		args = append(args, nullIfEmpty(*update.ImageKey))
	}
	set = append(set, "updated_at = ?")
	args = append(args, dbFormatTime(now))
	args = append(args, id)

	query := fmt.Sprintf("UPDATE posts SET %s WHERE id = ?", strings.Join(set, ", "))
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	post, err := scanPost(tx.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes a post and returns the removed record.
func (s *SQLiteStore) DeletePost(ctx context.Context, id string) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	post, err := scanPost(tx.QueryRowContext(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return post, nil
}

// CountPostsByImageKey returns how many posts reference an image blob.
func (s *SQLiteStore) CountPostsByImageKey(ctx context.Context, key string) (int, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, nil
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts WHERE image_key = ?", key).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanPost(scanner interface {
	Scan(dest ...any) error
}) (*models.Post, error) {
	var post models.Post
	var image sql.NullString
	var imageKey sql.NullString
	var createdAt string
	var updatedAt string
	if err := scanner.Scan(&post.ID, &post.Title, &post.Author, &post.Content, &image, &imageKey, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	post.Image = image.String
	post.ImageKey = imageKey.String

	parsedCreated, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	parsedUpdated, err := dbParseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	post.CreatedAt = parsedCreated
	post.UpdatedAt = parsedUpdated
	return &post, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
