// Package cache implements the durable transcript cache. Writes are
// deduplicating: a put removes every existing entry for the key before
// inserting, so at most one live entry exists per source at any time.
package cache

import (
	"context"
	"sync"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

// Store is the transcript cache contract. Get returns (nil, nil) on a miss
// or when the entry has aged past the retention window.
type Store interface {
	Get(ctx context.Context, sourceID string) (*entities.Transcript, error)
	Put(ctx context.Context, sourceID string, transcript entities.Transcript) error
	Invalidate(ctx context.Context, sourceID string) error

	// Purge physically removes expired entries and returns how many were
	// deleted. Not required for read correctness; reads already apply the
	// retention window.
	Purge(ctx context.Context) (int, error)

	Close() error
}

// keyLocks serializes writes per cache key so concurrent puts for the same
// source cannot race into two live entries.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLocks) lock(key string) *sync.Mutex {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m
}
