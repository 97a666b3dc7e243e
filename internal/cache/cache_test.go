package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/snonux/imageserver/internal/image"
	"codeberg.org/snonux/imageserver/internal/keys"
)

var (
	_ image.Cache = (*Memory)(nil)
	_ image.Cache = (*Redis)(nil)
)

func samplePage() *image.Page {
	return &image.Page{
		Results: []image.Descriptor{
			{ID: "pexels-1", URL: "https://p/1.jpg", Alt: "desk", Provider: keys.Pexels},
		},
		Total:      1,
		TotalPages: 1,
	}
}

func TestMemory_GetSet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Error("Expected miss for unknown key")
	}

	if err := m.Set(ctx, "k", samplePage(), time.Minute); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	page, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if page.Results[0].ID != "pexels-1" {
		t.Errorf("Unexpected page %+v", page)
	}

	// Returned pages are copies
	page.Results[0].ID = "changed"
	again, _, _ := m.Get(ctx, "k")
	if again.Results[0].ID != "pexels-1" {
		t.Error("Expected cached page to be unaffected by caller changes")
	}
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	m.Set(ctx, "short", samplePage(), time.Minute)
	m.Set(ctx, "forever", samplePage(), 0)

	now = now.Add(2 * time.Minute)

	if _, ok, _ := m.Get(ctx, "short"); ok {
		t.Error("Expected expired entry to miss")
	}
	if _, ok, _ := m.Get(ctx, "forever"); !ok {
		t.Error("Expected entry without ttl to stay")
	}
	if m.Len() != 1 {
		t.Errorf("Expected expired entry to be dropped, got %d entries", m.Len())
	}
}

func TestRedis_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	r := NewRedis(client)
	defer r.Close()

	ctx := context.Background()
	if _, _, err := r.Get(ctx, "k"); err == nil {
		t.Error("Expected error from unreachable server")
	}
	if err := r.Set(ctx, "k", samplePage(), time.Minute); err == nil {
		t.Error("Expected error from unreachable server")
	}
}

// TestRedis_RoundTrip runs against a real server when REDIS_ADDR is set
func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	r, err := Dial(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	defer r.Close()

	key := "test:" + t.Name()
	if err := r.Set(ctx, key, samplePage(), 10*time.Second); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	page, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if len(page.Results) != 1 || page.Results[0].Provider != keys.Pexels {
		t.Errorf("Unexpected page %+v", page)
	}

	if _, ok, _ := r.Get(ctx, key+":missing"); ok {
		t.Error("Expected miss for unknown key")
	}
}
