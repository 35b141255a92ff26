package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id  TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_source ON transcripts(source_id, created_at);
`

// SQLiteStore is the durable transcript cache backed by a local SQLite file.
type SQLiteStore struct {
	db        *sql.DB
	retention time.Duration
	writes    *keyLocks
	logger    *zap.Logger
	now       func() time.Time
}

// NewSQLiteStore opens (creating if needed) the cache database at path
func NewSQLiteStore(path string, retention time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &SQLiteStore{
		db:        db,
		retention: retention,
		writes:    newKeyLocks(),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Get returns the newest unexpired entry for sourceID, or nil
func (s *SQLiteStore) Get(ctx context.Context, sourceID string) (*entities.Transcript, error) {
	cutoff := s.now().Add(-s.retention).Unix()

	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM transcripts
		 WHERE source_id = ? AND created_at > ?
		 ORDER BY created_at DESC LIMIT 1`,
		sourceID, cutoff)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("cache read: %w", err)
	}

	var tr entities.Transcript
	if err := json.Unmarshal([]byte(payload), &tr); err != nil {
		// A corrupt row is treated as a miss; the next put overwrites it
		if s.logger != nil {
			s.logger.Warn("dropping corrupt cache entry",
				zap.String("source_id", sourceID), zap.Error(err))
		}
		return nil, nil
	}

	tr.SourceKind = entities.TranscriptSourceCache
	return &tr, nil
}

// Put stores transcript under sourceID. Existing entries for the key are
// deleted first inside one transaction, keeping the at-most-one-live-entry
// invariant even across prior duplicate accumulation.
func (s *SQLiteStore) Put(ctx context.Context, sourceID string, transcript entities.Transcript) error {
	lock := s.writes.lock(sourceID)
	defer lock.Unlock()

	payload, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transcripts WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("cache dedup delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transcripts (source_id, payload, created_at) VALUES (?, ?, ?)`,
		sourceID, string(payload), s.now().Unix()); err != nil {
		return fmt.Errorf("cache insert: %w", err)
	}

	return tx.Commit()
}

// Invalidate removes all entries for sourceID
func (s *SQLiteStore) Invalidate(ctx context.Context, sourceID string) error {
	lock := s.writes.lock(sourceID)
	defer lock.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM transcripts WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Purge physically deletes entries older than the retention window
func (s *SQLiteStore) Purge(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention).Unix()
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM transcripts WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error { return s.db.Close() }

// liveCount reports the number of rows for a key regardless of expiry
// (test helper).
func (s *SQLiteStore) liveCount(ctx context.Context, sourceID string) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transcripts WHERE source_id = ?`, sourceID)
	var n int
	err := row.Scan(&n)
	return n, err
}
