package cache_test

import (
	"testing"
	"time"

	"github.com/cardpilot/cardpilot-go/internal/infra/cache"
)

func TestSetGet(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get = %q, %v; want v, true", got, ok)
	}
}

func TestGetMissing(t *testing.T) {
	c := cache.New[int](time.Minute)
	defer c.Close()

	if _, ok := c.Get("nope"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestExpiry(t *testing.T) {
	c := cache.New[string](10 * time.Millisecond)
	defer c.Close()

	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}
}

func TestSetWithTTLOverridesDefault(t *testing.T) {
	c := cache.New[string](10 * time.Millisecond)
	defer c.Close()

	c.SetWithTTL("k", "v", time.Minute)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Error("expected longer TTL to keep entry alive")
	}
}

func TestDelete(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	c.Set("k", "v")
	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected key deleted")
	}
}
