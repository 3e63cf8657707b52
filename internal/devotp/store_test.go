package devotp

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Put(ctx, "sig-1", "123456", time.Now().UTC().Add(time.Minute))

	code, ok := s.Get(ctx, "sig-1")
	if !ok {
		t.Fatal("Get should find a fresh entry")
	}
	if code != "123456" {
		t.Errorf("code = %q, want 123456", code)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, ok := s.Get(context.Background(), "nope"); ok {
		t.Fatal("Get should miss for unknown signature")
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Put(ctx, "sig-1", "123456", time.Now().UTC().Add(time.Minute))
	s.nowF = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }

	if _, ok := s.Get(ctx, "sig-1"); ok {
		t.Fatal("Get should miss after expiry")
	}
	// Entry is dropped on expired read.
	s.nowF = time.Now().UTC
	if _, ok := s.Get(ctx, "sig-1"); ok {
		t.Fatal("expired entry should have been deleted")
	}
}

func TestMemoryStore_Overwrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Put(ctx, "sig-1", "111111", time.Now().UTC().Add(time.Minute))
	s.Put(ctx, "sig-1", "222222", time.Now().UTC().Add(time.Minute))

	code, ok := s.Get(ctx, "sig-1")
	if !ok || code != "222222" {
		t.Fatalf("Get = %q, %v; want 222222, true", code, ok)
	}
}
