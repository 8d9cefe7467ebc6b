package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, "", ttl)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreSaveLoad(t *testing.T) {
	store, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	state := sampleState("t1")
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.ThreadID != "t1" || loaded.Status != StatusAwaitingInfo {
		t.Errorf("unexpected state: %+v", loaded)
	}
	if len(loaded.History) != 1 || loaded.History[0].Content != "hi" {
		t.Errorf("history not preserved: %+v", loaded.History)
	}
	if !loaded.UpdatedAt.Equal(state.UpdatedAt) {
		t.Errorf("timestamps not preserved: got %v want %v", loaded.UpdatedAt, state.UpdatedAt)
	}
}

func TestRedisStoreLoadMissing(t *testing.T) {
	store, _ := newTestRedisStore(t, 0)

	_, err := store.Load(context.Background(), "nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	if err := store.Save(ctx, sampleState("t1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Load(ctx, "t1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}

	ids, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected empty index after delete, got %v", ids)
	}
}

func TestRedisStoreList(t *testing.T) {
	store, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.Save(ctx, sampleState(id)); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	ids, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("expected sorted ids, got %v", ids)
	}

	page, err := store.List(ctx, ListOptions{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 2 || page[0] != "b" || page[1] != "c" {
		t.Errorf("expected [b c], got %v", page)
	}
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, sampleState("t1")); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Load(ctx, "t1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected expired session to be gone, got %v", err)
	}

	// The index entry is cleaned up lazily on List.
	ids, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected stale index entries to be dropped, got %v", ids)
	}
}

func TestRedisStoreClosed(t *testing.T) {
	store, _ := newTestRedisStore(t, 0)
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := store.Save(ctx, sampleState("t1")); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed on save, got %v", err)
	}
	if _, err := store.List(ctx, ListOptions{}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed on list, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}
