package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"blogd/internal/metrics"
)

// DefaultPreviewTTL bounds how long an abandoned preview is kept.
const DefaultPreviewTTL = 30 * time.Minute

// Preview is an uploaded image held for display before the post exists.
type Preview struct {
	ID        string
	FormToken string
	Name      string
	MediaType string
	Data      []byte
	expiresAt time.Time
}

// URL is the local address the browser loads the preview from.
func (p Preview) URL() string {
	return "/previews/" + p.ID
}

// PreviewRegistry maps form tokens to their current preview. Each form has
// at most one live preview; a newer image revokes the older URL.
type PreviewRegistry struct {
	mu      sync.Mutex
	byID    map[string]*Preview
	current map[string]string
	ttl     time.Duration
	now     func() time.Time
}

func NewPreviewRegistry(ttl time.Duration) *PreviewRegistry {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	return &PreviewRegistry{
		byID:    make(map[string]*Preview),
		current: make(map[string]string),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Replace stores data as the preview of formToken and revokes the previous one.
func (r *PreviewRegistry) Replace(formToken string, data []byte, name string) Preview {
	preview := &Preview{
		ID:        uuid.NewString(),
		FormToken: formToken,
		Name:      name,
		MediaType: http.DetectContentType(data),
		Data:      data,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.current[formToken]; ok {
		delete(r.byID, old)
	}
	preview.expiresAt = r.now().Add(r.ttl)
	r.byID[preview.ID] = preview
	r.current[formToken] = preview.ID
	r.updateGauge()
	return *preview
}

// Get returns a live preview by id.
func (r *PreviewRegistry) Get(id string) (Preview, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	preview, ok := r.byID[id]
	if !ok || !r.now().Before(preview.expiresAt) {
		return Preview{}, false
	}
	return *preview, true
}

// Current returns the live preview attached to a form.
func (r *PreviewRegistry) Current(formToken string) (Preview, bool) {
	r.mu.Lock()
	id, ok := r.current[formToken]
	r.mu.Unlock()
	if !ok {
		return Preview{}, false
	}
	return r.Get(id)
}

// Revoke drops the preview attached to a form. Unknown tokens are ignored.
func (r *PreviewRegistry) Revoke(formToken string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.current[formToken]; ok {
		delete(r.byID, id)
		delete(r.current, formToken)
		r.updateGauge()
	}
}

// Sweep removes expired previews and reports how many were dropped.
func (r *PreviewRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	removed := 0
	for id, preview := range r.byID {
		if now.Before(preview.expiresAt) {
			continue
		}
		delete(r.byID, id)
		if r.current[preview.FormToken] == id {
			delete(r.current, preview.FormToken)
		}
		removed++
	}
	if removed > 0 {
		r.updateGauge()
	}
	return removed
}

// Len reports the number of stored previews, expired ones included.
func (r *PreviewRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Run sweeps on every tick until ctx is done.
func (r *PreviewRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *PreviewRegistry) updateGauge() {
	metrics.PreviewsActive.Set(float64(len(r.byID)))
}
