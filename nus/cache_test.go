package nus

import (
	"bytes"
	"testing"
)

func TestCachePutGetRoundTrip(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	want := []byte("some downloaded content bytes")
	if err := cache.Put("0001000148414141/content/00000000", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := cache.Get("0001000148414141/content/00000000")
	if !ok {
		t.Fatalf("expected a cache hit")
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCacheGetMissReturnsFalse(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	if _, ok := cache.Get("nonexistent/key"); ok {
		t.Fatalf("expected a cache miss")
	}
}
