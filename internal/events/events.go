// Package events publishes post lifecycle notifications.
package events

import (
	"context"
	"time"

	"blogd/internal/models"
)

// Type names a post lifecycle change.
type Type string

const (
	PostCreated Type = "post.created"
	PostUpdated Type = "post.updated"
	PostDeleted Type = "post.deleted"
)

// PostEvent is the message body written for each change.
type PostEvent struct {
	Type       Type      `json:"type"`
	PostID     string    `json:"post_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewPostEvent builds the event for post at now.
func NewPostEvent(eventType Type, post *models.Post, now time.Time) PostEvent {
	event := PostEvent{Type: eventType, OccurredAt: now.UTC()}
	if post != nil {
		event.PostID = post.ID
		event.Title = post.Title
		event.Author = post.Author
	}
	return event
}

// Publisher delivers post events.
type Publisher interface {
	Publish(ctx context.Context, event PostEvent) error
	Close() error
}

// Noop drops every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, PostEvent) error { return nil }

func (Noop) Close() error { return nil }
