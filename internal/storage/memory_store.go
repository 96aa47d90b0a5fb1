package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and STORE_BACKEND=memory.
type MemoryStore struct {
	mu          sync.Mutex
	entries     map[string]Entry
	revision    int64
	total       int64
	quota       Quota
	unavailable error
}

// NewMemoryStore creates an empty MemoryStore with the given quota.
func NewMemoryStore(quota Quota) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		quota:   quota,
	}
}

// SetUnavailable makes every subsequent call fail with ErrStorageUnavailable wrapping cause.
// Passing nil restores normal operation.
func (s *MemoryStore) SetUnavailable(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = cause
}

func (s *MemoryStore) check() error {
	if s.unavailable != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, s.unavailable)
	}
	return nil
}

// Get returns the entry for key, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, key string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return Entry{}, err
	}
	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Set writes value and returns the new revision.
func (s *MemoryStore) Set(ctx context.Context, key, value string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("empty key")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyLocked(ctx, []Op{Put(key, value)}); err != nil {
		return 0, err
	}
	return s.entries[key].Revision, nil
}

// Remove deletes key.
func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	return s.Apply(ctx, Delete(key))
}

// Keys lists keys with the given prefix in lexical order.
func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(); err != nil {
		return nil, err
	}
	keys := make([]string, 0)
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Apply performs ops atomically.
func (s *MemoryStore) Apply(ctx context.Context, ops ...Op) error {
	if err := validateOps(ops); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyLocked(ctx, ops)
}

func (s *MemoryStore) applyLocked(ctx context.Context, ops []Op) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Validate the whole batch against a staged view before touching anything
	staged := make(map[string]*Entry, len(ops))
	total := s.total
	for _, op := range ops {
		current, seen := staged[op.Key]
		if !seen {
			if e, ok := s.entries[op.Key]; ok {
				e := e
				current = &e
			}
		}

		if op.CheckRevision {
			var actual int64
			if current != nil {
				actual = current.Revision
			}
			if actual != op.Revision {
				return &ConflictError{Key: op.Key, Expected: op.Revision, Actual: actual}
			}
		}

		if current != nil {
			total -= int64(len(op.Key) + len(current.Value))
		}
		if op.Delete {
			staged[op.Key] = nil
			continue
		}
		if err := s.quota.checkValue(op.Key, op.Value); err != nil {
			return err
		}
		total += int64(len(op.Key) + len(op.Value))
		// Revision is assigned at commit; a non-zero placeholder keeps later checks in the batch honest
		staged[op.Key] = &Entry{Value: op.Value, Revision: -1}
	}
	if err := s.quota.checkTotal(total); err != nil {
		return err
	}

	for _, op := range ops {
		entry := staged[op.Key]
		if entry == nil {
			delete(s.entries, op.Key)
			continue
		}
		s.revision++
		s.entries[op.Key] = Entry{Value: entry.Value, Revision: s.revision}
	}
	s.total = total
	return nil
}
