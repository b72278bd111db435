package pgstore

import (
	"context"
	"os"
	"testing"

	"blogd/internal/store"
	"blogd/internal/store/storetest"
)

const postgresDSNEnvKey = "BLOGD_TEST_POSTGRES_DSN"

func TestPostgresStoreConformance(t *testing.T) {
	dsn := os.Getenv(postgresDSNEnvKey)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnvKey)
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		st, err := Open(ctx, dsn)
		if err != nil {
			t.Fatalf("open postgres store: %v", err)
		}
		if _, err := st.pool.Exec(ctx, "TRUNCATE posts, users"); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}

func TestOpenRejectsMalformedDSN(t *testing.T) {
	if _, err := Open(context.Background(), "postgres://%zz"); err == nil {
		t.Fatal("expected parse error")
	}
}
