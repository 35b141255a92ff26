package cache

import (
	"context"
	"sync"
	"time"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

type memoryEntry struct {
	transcript entities.Transcript
	storedAt   time.Time
}

// MemoryStore is an in-memory cache implementation used for text-only runs
// and tests. Same semantics as the SQLite store, nothing survives a restart.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   map[string][]memoryEntry
	retention time.Duration
	writes    *keyLocks
	now       func() time.Time
}

// NewMemoryStore creates an in-memory store with the given retention window
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:   make(map[string][]memoryEntry),
		retention: retention,
		writes:    newKeyLocks(),
		now:       time.Now,
	}
}

// Get returns the live entry for sourceID, or nil when absent or expired
func (ms *MemoryStore) Get(_ context.Context, sourceID string) (*entities.Transcript, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entries := ms.entries[sourceID]
	if len(entries) == 0 {
		return nil, nil
	}

	// Newest entry wins; older duplicates are ignored
	latest := entries[len(entries)-1]
	if ms.now().Sub(latest.storedAt) > ms.retention {
		return nil, nil
	}

	tr := latest.transcript
	tr.SourceKind = entities.TranscriptSourceCache
	return &tr, nil
}

// Put replaces any existing entries for sourceID with the given transcript
func (ms *MemoryStore) Put(_ context.Context, sourceID string, transcript entities.Transcript) error {
	lock := ms.writes.lock(sourceID)
	defer lock.Unlock()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.entries, sourceID)
	ms.entries[sourceID] = []memoryEntry{{transcript: transcript, storedAt: ms.now()}}
	return nil
}

// Invalidate removes all entries for sourceID
func (ms *MemoryStore) Invalidate(_ context.Context, sourceID string) error {
	lock := ms.writes.lock(sourceID)
	defer lock.Unlock()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.entries, sourceID)
	return nil
}

// Purge removes expired entries
func (ms *MemoryStore) Purge(_ context.Context) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	removed := 0
	cutoff := ms.now().Add(-ms.retention)
	for key, entries := range ms.entries {
		kept := entries[:0]
		for _, e := range entries {
			if e.storedAt.After(cutoff) {
				kept = append(kept, e)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(ms.entries, key)
		} else {
			ms.entries[key] = kept
		}
	}
	return removed, nil
}

// Close is a no-op for the memory store
func (ms *MemoryStore) Close() error { return nil }

// liveCount reports the number of live entries for a key (test helper)
func (ms *MemoryStore) liveCount(sourceID string) int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.entries[sourceID])
}
