package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatalf("hit on empty cache")
	}

	c.Set(ctx, "k", []byte("v"))

	got, ok := c.Get(ctx, "k")

	if !ok || string(got) != "v" {
		t.Fatalf("got %q %v", got, ok)
	}

	c.Delete(ctx, "k")

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("hit after delete")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10 * time.Millisecond)

	c.Set(ctx, "k", []byte("v"))

	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("entry survived its TTL")
	}
}

func TestMemoryDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	c.Set(ctx, "recipes:7:a", []byte("1"))
	c.Set(ctx, "recipes:7:b", []byte("2"))
	c.Set(ctx, "recipes:8:a", []byte("3"))

	c.DeletePrefix(ctx, "recipes:7:")

	if _, ok := c.Get(ctx, "recipes:7:a"); ok {
		t.Fatalf("prefix delete missed recipes:7:a")
	}

	if _, ok := c.Get(ctx, "recipes:7:b"); ok {
		t.Fatalf("prefix delete missed recipes:7:b")
	}

	if _, ok := c.Get(ctx, "recipes:8:a"); !ok {
		t.Fatalf("prefix delete took out another user's entry")
	}
}
