// Package storage provides the durable key/value primitive the recency cache
// persists to, and the change feeds used to tell other contexts that a key was
// rewritten.
//
// Backends:
//   - Memory: process-local, for tests and throwaway sessions
//   - SQLite: single-device durable store (default)
//   - Redis: shared store, also a pub/sub Feed
//   - Postgres: shared store, also a LISTEN/NOTIFY Feed
//
// NATSFeed is a Feed only and can be paired with any Store.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store is a string key/value store with no transactional guarantees.
type Store interface {
	// Get returns found=false, err=nil when the key does not exist.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	// Remove is a no-op for a missing key.
	Remove(ctx context.Context, key string) error
}

// Change announces that Key was rewritten by the context identified by Origin.
type Change struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Feed carries Change events between contexts. Delivery is best effort.
type Feed interface {
	Publish(ctx context.Context, change Change) error
	// Subscribe registers fn until unsubscribe is called or ctx is done.
	// The subscription is active once Subscribe returns.
	Subscribe(ctx context.Context, fn func(Change)) (unsubscribe func(), err error)
}

func encodeChange(change Change) ([]byte, error) {
	b, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal change: %w", err)
	}
	return b, nil
}

func decodeChange(data []byte) (Change, bool) {
	var change Change
	if err := json.Unmarshal(data, &change); err != nil || change.Key == "" {
		return Change{}, false
	}
	return change, true
}
