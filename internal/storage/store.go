// Package storage is the key-value store adapter underneath the entity repositories.
// Stores hold raw strings only; encoding and decoding happen one layer up.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the key has never been written or was removed.
	ErrNotFound = errors.New("key not found")
	// ErrStorageUnavailable wraps failures of the underlying store.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageQuotaExceeded is returned when a write would exceed the configured quota.
	ErrStorageQuotaExceeded = errors.New("storage quota exceeded")
	// ErrRevisionConflict is matched by *ConflictError.
	ErrRevisionConflict = errors.New("revision conflict")
)

// ConflictError reports a revision-checked write whose key changed underneath it.
type ConflictError struct {
	Key      string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict on %s: expected %d, actual %d", e.Key, e.Expected, e.Actual)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrRevisionConflict
}

// Entry is a stored value with its revision.
// Revisions increase monotonically across the whole store; 0 means the key is absent.
type Entry struct {
	Value    string
	Revision int64
}

// Op is one write in an Apply batch.
type Op struct {
	Key    string
	Value  string
	Delete bool
	// CheckRevision fails the batch unless the key's current revision equals Revision.
	CheckRevision bool
	Revision      int64
}

// Put writes value unconditionally.
func Put(key, value string) Op {
	return Op{Key: key, Value: value}
}

// PutIf writes value only if the key is still at revision rev.
func PutIf(key, value string, rev int64) Op {
	return Op{Key: key, Value: value, CheckRevision: true, Revision: rev}
}

// Delete removes key unconditionally.
func Delete(key string) Op {
	return Op{Key: key, Delete: true}
}

// DeleteIf removes key only if it is still at revision rev.
func DeleteIf(key string, rev int64) Op {
	return Op{Key: key, Delete: true, CheckRevision: true, Revision: rev}
}

// Store is a persistent key-value store of raw strings.
type Store interface {
	// Get returns the entry for key, or ErrNotFound.
	Get(ctx context.Context, key string) (Entry, error)
	// Set writes value and returns the new revision.
	Set(ctx context.Context, key, value string) (int64, error)
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Apply performs all ops atomically: either every op is applied or none is.
	Apply(ctx context.Context, ops ...Op) error
}

// Quota limits the size of stored data. Zero fields mean unlimited.
type Quota struct {
	MaxValueBytes int
	MaxTotalBytes int
}

func (q Quota) checkValue(key, value string) error {
	if q.MaxValueBytes > 0 && len(key)+len(value) > q.MaxValueBytes {
		return fmt.Errorf("%w: %s needs %d bytes, limit %d", ErrStorageQuotaExceeded, key, len(key)+len(value), q.MaxValueBytes)
	}
	return nil
}

func (q Quota) checkTotal(total int64) error {
	if q.MaxTotalBytes > 0 && total > int64(q.MaxTotalBytes) {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrStorageQuotaExceeded, total, q.MaxTotalBytes)
	}
	return nil
}

func validateOps(ops []Op) error {
	for _, op := range ops {
		if op.Key == "" {
			return fmt.Errorf("empty key in batch")
		}
	}
	return nil
}
