package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"qtumor/internal/jobs"
	"qtumor/internal/migrate"
)

// These tests run against real services when QTUMOR_TEST_DATABASE_URL or
// QTUMOR_TEST_REDIS_URL are set.

func exerciseStore(t *testing.T, st jobs.HandleStore) {
	t.Helper()
	ctx := context.Background()
	id := "itest-" + time.Now().Format("150405.000000000")

	h := jobs.Handle{ID: id, Backend: "ibm_test", Features: 108, SubmittedAt: time.Now().UTC().Truncate(time.Second)}
	if err := st.Put(ctx, h); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	got, ok, err := st.Get(ctx, id)
	if err != nil || !ok {
		t.Fatalf("expected handle, got ok=%v err=%v", ok, err)
	}
	if got.Backend != h.Backend || got.Features != h.Features || !got.SubmittedAt.Equal(h.SubmittedAt) {
		t.Fatalf("unexpected handle: %+v", got)
	}

	if rr, ok := st.(jobs.ResultRecorder); ok {
		if err := rr.RecordResult(ctx, id, jobs.StatusDone, json.RawMessage(`{"status":"complete"}`)); err != nil {
			t.Fatalf("RecordResult error: %v", err)
		}
	}

	if err := st.Delete(ctx, id); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok, err := st.Get(ctx, id); err != nil || ok {
		t.Fatalf("expected handle to be gone, got ok=%v err=%v", ok, err)
	}
	if err := st.Delete(ctx, id); !errors.Is(err, jobs.ErrHandleNotFound) {
		t.Fatalf("expected ErrHandleNotFound on second Delete, got %v", err)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("QTUMOR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("QTUMOR_TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := migrate.Up(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	exerciseStore(t, New(db))
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("QTUMOR_TEST_REDIS_URL")
	if url == "" {
		t.Skip("QTUMOR_TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	exerciseStore(t, NewRedis(rdb, time.Minute))
}
