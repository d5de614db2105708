package cache

import (
	"context"
	"time"
)

// Cache holds short-lived gateway state: the latest pairing QR snapshot per
// instance, and first-seen markers used to suppress duplicate inbound events.
type Cache interface {
	StoreQR(ctx context.Context, instanceID, qr string, ttl time.Duration) error
	QR(ctx context.Context, instanceID string) (string, error)
	FirstSeen(ctx context.Context, key string) (bool, error)
}

// Noop is the fallback when no Redis address is configured. QR lookups always
// miss and every event counts as first seen.
type Noop struct{}

func (Noop) StoreQR(ctx context.Context, instanceID, qr string, ttl time.Duration) error {
	return nil
}

func (Noop) QR(ctx context.Context, instanceID string) (string, error) {
	return "", nil
}

func (Noop) FirstSeen(ctx context.Context, key string) (bool, error) {
	return true, nil
}
