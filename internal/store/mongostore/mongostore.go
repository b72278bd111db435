// Package mongostore is the MongoDB store backend.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blogd/internal/models"
	"blogd/internal/store"
)

// DefaultDatabase is used when the configuration names none.
const DefaultDatabase = "blogd"

const (
	postsCollection = "posts"
	usersCollection = "users"
	connectTimeout  = 10 * time.Second
)

type postDocument struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Author    string    `bson:"author"`
	Content   string    `bson:"content"`
	Image     string    `bson:"image,omitempty"`
	ImageKey  string    `bson:"imageKey,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

// Store keeps posts and users in MongoDB collections.
type Store struct {
	client *mongo.Client
	posts  *mongo.Collection
	users  *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Open connects to uri, selects database and ensures indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if strings.TrimSpace(database) == "" {
		database = DefaultDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	st := &Store{
		client: client,
		posts:  db.Collection(postsCollection),
		users:  db.Collection(usersCollection),
	}
	if err := st.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return st, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "imageKey", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
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
	_, err := s.posts.InsertOne(ctx, postDocument{
		ID:        post.ID,
		Title:     post.Title,
		Author:    post.Author,
		Content:   post.Content,
		Image:     post.Image,
		ImageKey:  post.ImageKey,
		CreatedAt: post.CreatedAt.UTC(),
		UpdatedAt: post.UpdatedAt.UTC(),
	})
	return err
}

// GetPost returns a post by id.
func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	return decodePost(s.posts.FindOne(ctx, bson.M{"_id": id}))
}

// ListPosts returns all posts, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	posts := make([]models.Post, 0)
	for cursor.Next(ctx) {
		var doc postDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		posts = append(posts, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
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
	set := bson.M{
		"title":     update.Title,
		"author":    update.Author,
		"content":   update.Content,
		"updatedAt": now.UTC(),
	}
	unset := bson.M{}
	if update.Image != nil {
		if *update.Image == "" {
			unset["image"] = ""
		} else {
			set["image"] = *update.Image
		}
	}
	if update.ImageKey != nil {
		if *update.ImageKey == "" {
			unset["imageKey"] = ""
		} else {
			set["imageKey"] = *update.ImageKey
		}
	}
	change := bson.M{"$set": set}
	if len(unset) > 0 {
		change["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodePost(s.posts.FindOneAndUpdate(ctx, bson.M{"_id": id}, change, opts))
}

// DeletePost removes a post and returns the removed record.
func (s *Store) DeletePost(ctx context.Context, id string) (*models.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	return decodePost(s.posts.FindOneAndDelete(ctx, bson.M{"_id": id}))
}

// CountPostsByImageKey returns how many posts reference an image blob.
func (s *Store) CountPostsByImageKey(ctx context.Context, key string) (int, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return 0, nil
	}
	count, err := s.posts.CountDocuments(ctx, bson.M{"imageKey": key})
	if err != nil {
		return 0, err
	}
	return int(count), nil
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

	_, err := s.users.InsertOne(ctx, userDocument{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
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
	var doc userDocument
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &models.User{
		ID:           doc.ID,
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}

func decodePost(result *mongo.SingleResult) (*models.Post, error) {
	var doc postDocument
	if err := result.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	post := doc.toModel()
	return &post, nil
}

func (d postDocument) toModel() models.Post {
	return models.Post{
		ID:        d.ID,
		Title:     d.Title,
		Author:    d.Author,
		Content:   d.Content,
		Image:     d.Image,
		ImageKey:  d.ImageKey,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}
