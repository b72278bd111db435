package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"blogd/internal/store"
	"blogd/internal/store/storetest"
)

const mongoURIEnvKey = "BLOGD_TEST_MONGO_URI"

func TestMongoStoreConformance(t *testing.T) {
	uri := os.Getenv(mongoURIEnvKey)
	if uri == "" {
		t.Skipf("%s not set", mongoURIEnvKey)
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		database := fmt.Sprintf("blogd_test_%d", time.Now().UnixNano())
		st, err := Open(ctx, uri, database)
		if err != nil {
			t.Fatalf("open mongo store: %v", err)
		}
		t.Cleanup(func() {
			_ = st.client.Database(database).Drop(context.Background())
			_ = st.Close()
		})
		return st
	})
}

func TestOpenRequiresURI(t *testing.T) {
	if _, err := Open(context.Background(), "", "blogd"); err == nil {
		t.Fatal("expected error for empty uri")
	}
}

func TestPostDocumentToModel(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("x", 7200))
	doc := postDocument{
		ID:        "id-1",
		Title:     "t",
		Author:    "a",
		Content:   "c",
		ImageKey:  "sha256/abc",
		CreatedAt: created,
		UpdatedAt: created,
	}
	post := doc.toModel()
	if post.ID != "id-1" || post.ImageKey != "sha256/abc" {
		t.Fatalf("unexpected post: %+v", post)
	}
	if post.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC createdAt, got %v", post.CreatedAt.Location())
	}
	if !post.CreatedAt.Equal(created) {
		t.Fatalf("expected %v, got %v", created, post.CreatedAt)
	}
}
