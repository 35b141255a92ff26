// Package generation coordinates text-generation providers: a priority
// pool, persistent daily quota accounting, bounded fallback, and tolerant
// JSON extraction from model output.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// QuotaState is the persisted daily quota snapshot. Date is the calendar
// day the remaining counts belong to; a new day resets every provider to
// its configured limit.
type QuotaState struct {
	Date      string         `json:"date"`
	Remaining map[string]int `json:"remaining"`
}

// QuotaStore persists quota state across restarts
type QuotaStore interface {
	Load() (QuotaState, error)
	Save(state QuotaState) error
}

// QuotaManager owns the mutable quota state. All mutations happen under
// one mutex so concurrent generation phases cannot race a decrement.
type QuotaManager struct {
	mu     sync.Mutex
	store  QuotaStore
	limits map[string]int
	state  QuotaState
	logger *zap.Logger
	now    func() time.Time
}

// NewQuotaManager loads persisted state, resetting it when the stored date
// is not today.
func NewQuotaManager(store QuotaStore, limits map[string]int, logger *zap.Logger) *QuotaManager {
	qm := &QuotaManager{
		store:  store,
		limits: limits,
		logger: logger,
		now:    time.Now,
	}

	state, err := store.Load()
	if err != nil {
		if logger != nil {
			logger.Warn("quota state load failed, starting fresh", zap.Error(err))
		}
		state = QuotaState{}
	}
	qm.state = state
	qm.resetIfNewDay()
	return qm
}

func (qm *QuotaManager) today() string {
	return qm.now().Format("2006-01-02")
}

// resetIfNewDay must be called under qm.mu (or before the manager is shared)
func (qm *QuotaManager) resetIfNewDay() {
	today := qm.today()
	if qm.state.Date == today && qm.state.Remaining != nil {
		// Providers added since the last persist still need an entry
		for name, limit := range qm.limits {
			if _, ok := qm.state.Remaining[name]; !ok {
				qm.state.Remaining[name] = limit
			}
		}
		return
	}

	remaining := make(map[string]int, len(qm.limits))
	for name, limit := range qm.limits {
		remaining[name] = limit
	}
	qm.state = QuotaState{Date: today, Remaining: remaining}
	qm.persist()
}

// Remaining reports the provider's remaining daily quota
func (qm *QuotaManager) Remaining(provider string) int {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	qm.resetIfNewDay()
	return qm.state.Remaining[provider]
}

// Decrement consumes one unit of quota. Decrementing a provider already at
// zero is a no-op; the count never goes negative.
func (qm *QuotaManager) Decrement(provider string) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	qm.resetIfNewDay()

	if qm.state.Remaining[provider] <= 0 {
		return
	}
	qm.state.Remaining[provider]--
	qm.persist()
}

// Zero exhausts the provider's quota for the rest of the day
func (qm *QuotaManager) Zero(provider string) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	qm.resetIfNewDay()

	qm.state.Remaining[provider] = 0
	qm.persist()
}

// Snapshot returns a copy of the current state for reporting
func (qm *QuotaManager) Snapshot() QuotaState {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	qm.resetIfNewDay()

	remaining := make(map[string]int, len(qm.state.Remaining))
	for k, v := range qm.state.Remaining {
		remaining[k] = v
	}
	return QuotaState{Date: qm.state.Date, Remaining: remaining}
}

// persist must be called under qm.mu. A failed save is logged and ignored;
// quota accounting degrades to process-lifetime accuracy.
func (qm *QuotaManager) persist() {
	if qm.store == nil {
		return
	}
	if err := qm.store.Save(qm.state); err != nil && qm.logger != nil {
		qm.logger.Warn("quota state save failed", zap.Error(err))
	}
}

// FileQuotaStore persists quota state as a JSON file. Writes go to a temp
// file in the same directory followed by a rename so a crash mid-write
// never leaves a truncated state file.
type FileQuotaStore struct {
	path string
}

// NewFileQuotaStore creates a file-backed store at path
func NewFileQuotaStore(path string) *FileQuotaStore {
	return &FileQuotaStore{path: path}
}

// Load reads the persisted state. A missing file is an empty state, not
// an error.
func (f *FileQuotaStore) Load() (QuotaState, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return QuotaState{}, nil
		}
		return QuotaState{}, fmt.Errorf("read quota state: %w", err)
	}

	var state QuotaState
	if err := json.Unmarshal(data, &state); err != nil {
		return QuotaState{}, fmt.Errorf("parse quota state: %w", err)
	}
	return state, nil
}

// Save writes the state atomically
func (f *FileQuotaStore) Save(state QuotaState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".quota-*")
	if err != nil {
		return fmt.Errorf("create quota temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write quota state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close quota temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace quota state: %w", err)
	}
	return nil
}

// RedisQuotaStore persists quota state in Redis so multiple instances can
// share one daily budget.
type RedisQuotaStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisQuotaStore creates a Redis-backed store under key
func NewRedisQuotaStore(client *redis.Client, key string) *RedisQuotaStore {
	return &RedisQuotaStore{
		client: client,
		key:    key,
		// State is date-stamped, a 48h TTL just keeps stale keys from
		// accumulating.
		ttl: 48 * time.Hour,
	}
}

// Load reads the persisted state. A missing key is an empty state.
func (r *RedisQuotaStore) Load() (QuotaState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return QuotaState{}, nil
	}
	if err != nil {
		return QuotaState{}, fmt.Errorf("read quota state: %w", err)
	}

	var state QuotaState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return QuotaState{}, fmt.Errorf("parse quota state: %w", err)
	}
	return state, nil
}

// Save writes the state
func (r *RedisQuotaStore) Save(state QuotaState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal quota state: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("write quota state: %w", err)
	}
	return nil
}
