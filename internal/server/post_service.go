package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"blogd/internal/blobstore"
	"blogd/internal/events"
	"blogd/internal/metrics"
	"blogd/internal/models"
	"blogd/internal/store"
)

const (
	publishTimeout = 5 * time.Second
	// DefaultImageGCGrace protects blobs written this recently from a sweep.
	DefaultImageGCGrace = time.Hour
)

// postInput is a decoded create or edit body.
type postInput struct {
	Title   string
	Author  string
	Content string
	// Image is nil when the request carried no image.
	Image []byte
}

// PostService runs post operations against the store, the optional image
// store and the event publisher.
//
// Image blobs are never deleted inline. GCImages sweeps blobs no post
// references, and imageMu keeps a sweep out of the window between a blob
// Put and the row that references it.
type PostService struct {
	store   store.PostStore
	images  blobstore.BlobStore
	events  events.Publisher
	logger  *slog.Logger
	now     func() time.Time
	imageMu sync.RWMutex
}

// ImageGCResult summarizes one image sweep.
type ImageGCResult struct {
	Scanned        int
	SkippedRecent  int
	CandidateCount int
	DeletedCount   int
	FailedCount    int
	ReclaimedBytes int64
	DryRun         bool
}

func NewPostService(postStore store.PostStore, images blobstore.BlobStore, publisher events.Publisher, logger *slog.Logger) *PostService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		store:  postStore,
		images: images,
		events: publisher,
		logger: logger,
		now:    time.Now,
	}
}

func (p *PostService) List(ctx context.Context) ([]models.Post, error) {
	posts, err := p.store.ListPosts(ctx)
	if err != nil {
		p.record("list", err)
		return nil, storeFailure(fmt.Errorf("list posts: %w", err), msgFetchPostsFailed)
	}
	for i := range posts {
		p.hydrate(ctx, &posts[i])
	}
	if posts == nil {
		posts = []models.Post{}
	}
	p.record("list", nil)
	return posts, nil
}

func (p *PostService) Get(ctx context.Context, id string) (*models.Post, error) {
	post, err := p.store.GetPost(ctx, id)
	if err != nil {
		p.record("get", err)
		return nil, storeFailure(fmt.Errorf("get post %s: %w", id, err), msgFetchPostFailed)
	}
	if post == nil {
		return nil, postNotFound()
	}
	p.hydrate(ctx, post)
	p.record("get", nil)
	return post, nil
}

func (p *PostService) Create(ctx context.Context, in postInput) (*models.Post, error) {
	if err := validatePostInput(&in); err != nil {
		return nil, err
	}

	now := store.Truncate(p.now())
	post := &models.Post{
		Title:     in.Title,
		Author:    in.Author,
		Content:   in.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	unlock := p.holdImages(in.Image != nil)
	defer unlock()
	if in.Image != nil {
		image, key, err := p.storeImage(ctx, in.Image)
		if err != nil {
			p.record("create", err)
			return nil, imageFailure(err, msgCreatePostFailed)
		}
		post.Image = image
		post.ImageKey = key
	}

	if err := p.store.CreatePost(ctx, post); err != nil {
		p.record("create", err)
		return nil, storeFailure(fmt.Errorf("create post: %w", err), msgCreatePostFailed)
	}
	unlock()

	p.hydrateFrom(post, in.Image)
	p.record("create", nil)
	p.publish(ctx, events.PostCreated, post)
	return post, nil
}

// Update overwrites the text fields and, when in carries one, the image.
func (p *PostService) Update(ctx context.Context, id string, in postInput) (*models.Post, error) {
	if err := validatePostInput(&in); err != nil {
		return nil, err
	}

	update := models.PostUpdate{Title: in.Title, Author: in.Author, Content: in.Content}
	unlock := p.holdImages(in.Image != nil)
	defer unlock()
	if in.Image != nil {
		current, err := p.store.GetPost(ctx, id)
		if err != nil {
			p.record("update", err)
			return nil, storeFailure(fmt.Errorf("get post %s: %w", id, err), msgUpdatePostFailed)
		}
		if current == nil {
			return nil, postNotFound()
		}

		image, key, err := p.storeImage(ctx, in.Image)
		if err != nil {
			p.record("update", err)
			return nil, imageFailure(err, msgUpdatePostFailed)
		}
		update.Image = &image
		update.ImageKey = &key
	}

	post, err := p.store.UpdatePost(ctx, id, update, store.Truncate(p.now()))
	if err != nil {
		p.record("update", err)
		return nil, storeFailure(fmt.Errorf("update post %s: %w", id, err), msgUpdatePostFailed)
	}
	if post == nil {
		return nil, postNotFound()
	}
	unlock()

	if in.Image != nil {
		p.hydrateFrom(post, in.Image)
	} else {
		p.hydrate(ctx, post)
	}
	p.record("update", nil)
	p.publish(ctx, events.PostUpdated, post)
	return post, nil
}

func (p *PostService) Delete(ctx context.Context, id string) (*models.Post, error) {
	post, err := p.store.DeletePost(ctx, id)
	if err != nil {
		p.record("delete", err)
		return nil, storeFailure(fmt.Errorf("delete post %s: %w", id, err), msgDeletePostFailed)
	}
	if post == nil {
		return nil, postNotFound()
	}

	p.record("delete", nil)
	p.publish(ctx, events.PostDeleted, post)
	return post, nil
}

func validatePostInput(in *postInput) error {
	trimFields(&in.Title, &in.Author)
	return validateRequest(postFields{
		Title:   in.Title,
		Author:  in.Author,
		Content: strings.TrimSpace(in.Content),
	})
}

// storeImage returns the inline base64 form, or the blob key when an image
// store is configured.
func (p *PostService) storeImage(ctx context.Context, data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", nil
	}
	metrics.ImageBytesUploaded.Add(float64(len(data)))
	if p.images == nil {
		return models.EncodeImage(data), "", nil
	}
	res, err := p.images.Put(ctx, data)
	if err != nil {
		return "", "", fmt.Errorf("store image: %w", err)
	}
	return "", res.Key, nil
}

// holdImages blocks sweeps until the returned func first runs. It is a
// no-op when no blob is about to be written.
func (p *PostService) holdImages(writing bool) func() {
	if !writing || p.images == nil {
		return func() {}
	}
	p.imageMu.RLock()
	var once sync.Once
	return func() { once.Do(p.imageMu.RUnlock) }
}

// GCImages removes image blobs no post references. Blobs put within grace
// are skipped, which also covers writers in other processes. With apply
// false it only reports what would be removed.
func (p *PostService) GCImages(ctx context.Context, grace time.Duration, apply bool) (ImageGCResult, error) {
	result := ImageGCResult{DryRun: !apply}
	if p.images == nil {
		return result, badRequestCode(errors.New("images are stored inline; nothing to collect"), ErrCodeInvalidArgument)
	}
	if grace < 0 {
		grace = 0
	}

	blobs, err := p.images.List(ctx)
	if err != nil {
		return result, imageFailure(fmt.Errorf("list images: %w", err), msgImageGCFailed)
	}
	cutoff := p.now().Add(-grace)
	for _, blob := range blobs {
		result.Scanned++
		if blob.ModifiedAt.After(cutoff) {
			result.SkippedRecent++
			continue
		}

		unreferenced, err := p.collectBlob(ctx, blob.Key, apply)
		if unreferenced {
			result.CandidateCount++
		}
		switch {
		case err != nil:
			result.FailedCount++
			p.logger.Warn("collect image", "key", blob.Key, "error", err)
		case !unreferenced:
		case apply:
			result.DeletedCount++
			result.ReclaimedBytes += blob.SizeBytes
		default:
			result.ReclaimedBytes += blob.SizeBytes
		}
	}

	metrics.ImagesCollectedTotal.Add(float64(result.DeletedCount))
	return result, nil
}

// collectBlob deletes key when no post references it and reports whether
// it was unreferenced.
func (p *PostService) collectBlob(ctx context.Context, key string, apply bool) (bool, error) {
	p.imageMu.Lock()
	defer p.imageMu.Unlock()

	refs, err := p.store.CountPostsByImageKey(ctx, key)
	if err != nil {
		return false, fmt.Errorf("count references: %w", err)
	}
	if refs > 0 {
		return false, nil
	}
	if !apply {
		return true, nil
	}
	return true, p.images.Delete(ctx, key)
}

// hydrate fills Image from the image store for posts that only hold a key.
func (p *PostService) hydrate(ctx context.Context, post *models.Post) {
	if post == nil || post.Image != "" || post.ImageKey == "" || p.images == nil {
		return
	}
	data, err := blobstore.ReadAll(ctx, p.images, post.ImageKey)
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, blobstore.ErrNotFound) {
			level = slog.LevelWarn
		}
		p.logger.Log(ctx, level, "load image", "post_id", post.ID, "key", post.ImageKey, "error", err)
		return
	}
	post.Image = models.EncodeImage(data)
}

func (p *PostService) hydrateFrom(post *models.Post, data []byte) {
	if post.Image == "" && len(data) > 0 {
		post.Image = models.EncodeImage(data)
	}
}

func (p *PostService) record(operation string, err error) {
	result := metrics.ResultOK
	if err != nil {
		result = metrics.ResultError
	}
	metrics.PostOperationsTotal.WithLabelValues(operation, result).Inc()
}

// publish hands the event to the broker. Failures are logged only.
func (p *PostService) publish(ctx context.Context, eventType events.Type, post *models.Post) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := events.NewPostEvent(eventType, post, p.now())
	if err := p.events.Publish(ctx, event); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(eventType), metrics.ResultError).Inc()
		p.logger.Warn("publish post event", "type", eventType, "post_id", post.ID, "error", err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(eventType), metrics.ResultOK).Inc()
}
