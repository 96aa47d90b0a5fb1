package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Change is one row of the change log written alongside every kv mutation.
type Change struct {
	Seq     int64
	Key     string
	Writer  string
	Deleted bool
}

// SQLiteStore implements Store on a SQLite kv table.
// Every write appends to kv_changes so other processes sharing the file can observe it.
type SQLiteStore struct {
	db       *sql.DB
	writerID string
	quota    Quota
}

// NewSQLiteStore creates a store over an opened and migrated database.
// Each store instance gets its own writer ID.
func NewSQLiteStore(db *sql.DB, quota Quota) *SQLiteStore {
	return &SQLiteStore{
		db:       db,
		writerID: uuid.New().String(),
		quota:    quota,
	}
}

// WriterID identifies writes made through this store in the change log.
func (s *SQLiteStore) WriterID() string {
	return s.writerID
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

// Get returns the entry for key, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, error) {
	var entry Entry
	err := s.db.QueryRowContext(ctx,
		"SELECT value, revision FROM kv WHERE key = ?",
		key,
	).Scan(&entry.Value, &entry.Revision)

	if err == sql.ErrNoRows {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, unavailable("get", err)
	}
	return entry, nil
}

// Set writes value and returns the new revision.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("empty key")
	}
	var rev int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		rev, err = s.apply(ctx, tx, Put(key, value))
		return err
	})
	if err != nil {
		return 0, err
	}
	return rev, nil
}

// Remove deletes key.
func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	return s.Apply(ctx, Delete(key))
}

// Keys lists keys with the given prefix in byte order. The prefix is compared as
// bytes, since substr counts characters on TEXT.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM kv WHERE substr(CAST(key AS BLOB), 1, ?) = CAST(? AS BLOB) ORDER BY key",
		len(prefix), prefix,
	)
	if err != nil {
		return nil, unavailable("keys", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, unavailable("keys", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("keys", err)
	}
	return keys, nil
}

// Apply performs ops in a single transaction.
func (s *SQLiteStore) Apply(ctx context.Context, ops ...Op) error {
	if err := validateOps(ops); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, op := range ops {
			if _, err := s.apply(ctx, tx, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if s.quota.MaxTotalBytes > 0 {
		var total int64
		err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(LENGTH(CAST(key AS BLOB)) + LENGTH(CAST(value AS BLOB))), 0) FROM kv",
		).Scan(&total)
		if err != nil {
			return unavailable("quota", err)
		}
		if err := s.quota.checkTotal(total); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// apply executes one op inside tx and returns the revision it produced (0 for deletes).
func (s *SQLiteStore) apply(ctx context.Context, tx *sql.Tx, op Op) (int64, error) {
	if op.CheckRevision {
		var actual int64
		err := tx.QueryRowContext(ctx, "SELECT revision FROM kv WHERE key = ?", op.Key).Scan(&actual)
		if err != nil && err != sql.ErrNoRows {
			return 0, unavailable("check revision", err)
		}
		if actual != op.Revision {
			return 0, &ConflictError{Key: op.Key, Expected: op.Revision, Actual: actual}
		}
	}

	if !op.Delete {
		if err := s.quota.checkValue(op.Key, op.Value); err != nil {
			return 0, err
		}
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO kv_changes (key, writer, deleted) VALUES (?, ?, ?)",
		op.Key, s.writerID, op.Delete,
	)
	if err != nil {
		return 0, unavailable("log change", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return 0, unavailable("log change", err)
	}

	if op.Delete {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", op.Key); err != nil {
			return 0, unavailable("delete", err)
		}
		return 0, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO kv (key, value, revision, writer, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET
		 value = excluded.value, revision = excluded.revision, writer = excluded.writer, updated_at = CURRENT_TIMESTAMP`,
		op.Key, op.Value, seq, s.writerID,
	)
	if err != nil {
		return 0, unavailable("put", err)
	}
	return seq, nil
}

// LatestSeq returns the highest change sequence written so far.
func (s *SQLiteStore) LatestSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM kv_changes").Scan(&seq); err != nil {
		return 0, unavailable("latest seq", err)
	}
	return seq, nil
}

// ChangesSince returns change log rows with seq greater than after, oldest first.
func (s *SQLiteStore) ChangesSince(ctx context.Context, after int64) ([]Change, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, key, writer, deleted FROM kv_changes WHERE seq > ? ORDER BY seq",
		after,
	)
	if err != nil {
		return nil, unavailable("changes", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.Seq, &c.Key, &c.Writer, &c.Deleted); err != nil {
			return nil, unavailable("changes", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("changes", err)
	}
	return changes, nil
}

// PruneChanges drops change log rows older than maxAge.
func (s *SQLiteStore) PruneChanges(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format("2006-01-02 15:04:05")
	result, err := s.db.ExecContext(ctx, "DELETE FROM kv_changes WHERE changed_at < ?", cutoff)
	if err != nil {
		return 0, unavailable("prune", err)
	}
	return result.RowsAffected()
}
