package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewRedisCache(rdb, time.Hour), mr
}

func TestRedisCache_StoreQRAndFetch(t *testing.T) {
	t.Parallel()

	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.StoreQR(ctx, "inst-1", "data:image/png;base64,AAA", time.Minute); err != nil {
		t.Fatalf("StoreQR() error: %v", err)
	}

	if !mr.Exists("qr:inst-1") {
		t.Fatalf("expected key qr:inst-1 to exist")
	}
	if ttl := mr.TTL("qr:inst-1"); ttl <= 0 {
		t.Fatalf("expected TTL to be set, got %v", ttl)
	}

	got, err := cache.QR(ctx, "inst-1")
	if err != nil {
		t.Fatalf("QR() error: %v", err)
	}
	if got != "data:image/png;base64,AAA" {
		t.Fatalf("unexpected QR value: %q", got)
	}
}

func TestRedisCache_QRMissReturnsEmpty(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t)

	got, err := cache.QR(context.Background(), "inst-unknown")
	if err != nil {
		t.Fatalf("QR() error on miss: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty string on miss, got %q", got)
	}
}

func TestRedisCache_QRExpires(t *testing.T) {
	t.Parallel()

	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.StoreQR(ctx, "inst-1", "qr-payload", time.Second); err != nil {
		t.Fatalf("StoreQR() error: %v", err)
	}

	mr.FastForward(2 * time.Second)

	got, err := cache.QR(ctx, "inst-1")
	if err != nil {
		t.Fatalf("QR() error after expiry: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty string after expiry, got %q", got)
	}
}

func TestRedisCache_FirstSeen(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t)
	ctx := context.Background()

	first, err := cache.FirstSeen(ctx, "gwmsg:ABC123")
	if err != nil {
		t.Fatalf("FirstSeen() error: %v", err)
	}
	if !first {
		t.Fatalf("expected first call to report true")
	}

	again, err := cache.FirstSeen(ctx, "gwmsg:ABC123")
	if err != nil {
		t.Fatalf("FirstSeen() repeat error: %v", err)
	}
	if again {
		t.Fatalf("expected repeat call to report false")
	}

	other, err := cache.FirstSeen(ctx, "gwmsg:DEF456")
	if err != nil {
		t.Fatalf("FirstSeen() other key error: %v", err)
	}
	if !other {
		t.Fatalf("expected distinct key to report true")
	}
}

func TestRedisCache_FirstSeenWindowExpires(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	cache := NewRedisCache(rdb, time.Second)
	ctx := context.Background()

	if _, err := cache.FirstSeen(ctx, "gwmsg:ABC123"); err != nil {
		t.Fatalf("FirstSeen() error: %v", err)
	}

	mr.FastForward(2 * time.Second)

	first, err := cache.FirstSeen(ctx, "gwmsg:ABC123")
	if err != nil {
		t.Fatalf("FirstSeen() after expiry error: %v", err)
	}
	if !first {
		t.Fatalf("expected key to count as first seen again after the window")
	}
}

func TestRedisCache_ContextCanceled(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := cache.StoreQR(ctx, "inst-1", "x", time.Minute); err == nil {
		t.Fatalf("expected error due to canceled context, got nil")
	}
	if _, err := cache.FirstSeen(ctx, "gwmsg:x"); err == nil {
		t.Fatalf("expected error due to canceled context, got nil")
	}
}

func TestNoop_Defaults(t *testing.T) {
	t.Parallel()

	var c Cache = Noop{}
	ctx := context.Background()

	if err := c.StoreQR(ctx, "inst-1", "x", time.Minute); err != nil {
		t.Fatalf("Noop StoreQR() error: %v", err)
	}
	got, err := c.QR(ctx, "inst-1")
	if err != nil || got != "" {
		t.Fatalf("Noop QR() = (%q, %v), want (\"\", nil)", got, err)
	}
	first, err := c.FirstSeen(ctx, "k")
	if err != nil || !first {
		t.Fatalf("Noop FirstSeen() = (%v, %v), want (true, nil)", first, err)
	}
}
