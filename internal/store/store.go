// Package store is the persistent key-value layer of a checkin profile.
//
// Values are opaque bytes (JSON in practice). Get reports a missing key as
// (nil, nil). Write failures are classified as ErrStoreUnavailable or
// ErrStoreQuotaExceeded so callers can keep their previous state and tell the
// user the save did not happen.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrStoreQuotaExceeded = errors.New("store quota exceeded")
)

// KV is a synchronous, string-keyed store.
type KV interface {
	// Get returns the value for key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// DefaultQuota mirrors the usual per-origin browser storage limit.
const DefaultQuota = 5 << 20

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

// Unavailable wraps a failed read or write as ErrStoreUnavailable unless err
// already carries a store error class.
func Unavailable(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrStoreQuotaExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
