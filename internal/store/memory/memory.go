// Package memory provides an in-memory record store for tests and for
// serving straight from a parsed file without SQLite.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"fahrzeugdaten/internal/record"
	"fahrzeugdaten/internal/sentinel"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = sentinel.ErrNotFound

// InMemory stores records in memory, preserving file order.
type InMemory struct {
	mu         sync.RWMutex
	records    []record.Record
	byCode     map[string]int
	loaded     bool
	updated    time.Time
	replaceErr error
}

// FailNextReplace makes the next ReplaceAll call fail with err. Test hook.
func (s *InMemory) FailNextReplace(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceErr = err
}

// NewInMemory creates an empty in-memory store. Reads fail with
// sentinel.ErrStoreMissing until the first ReplaceAll.
func NewInMemory() *InMemory {
	return &InMemory{byCode: make(map[string]int)}
}

// ReplaceAll swaps the whole store content for the snapshot.
func (s *InMemory) ReplaceAll(_ context.Context, snap *record.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replaceErr != nil {
		err := s.replaceErr
		s.replaceErr = nil
		return err
	}

	records := make([]record.Record, len(snap.Records))
	copy(records, snap.Records)
	byCode := make(map[string]int, len(records))
	for i, r := range records {
		byCode[r.Code] = i
	}

	s.records = records
	s.byCode = byCode
	s.loaded = true
	s.updated = time.Now()
	return nil
}

// FindByCode retrieves a record by its exact TG-Code.
func (s *InMemory) FindByCode(_ context.Context, code string) (*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, sentinel.ErrStoreMissing
	}
	if i, ok := s.byCode[code]; ok {
		r := s.records[i]
		return &r, nil
	}
	return nil, ErrNotFound
}

// SearchByPrefix returns records whose TG-Code starts with prefix, in file order.
func (s *InMemory) SearchByPrefix(_ context.Context, prefix string, limit int) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, sentinel.ErrStoreMissing
	}

	var out []record.Record
	for _, r := range s.records {
		if strings.HasPrefix(r.Code, prefix) {
			out = append(out, r)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return 0, sentinel.ErrStoreMissing
	}
	return len(s.records), nil
}

// LastUpdated returns the time of the last ReplaceAll.
func (s *InMemory) LastUpdated(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return time.Time{}, sentinel.ErrStoreMissing
	}
	return s.updated, nil
}

// Ping reports whether data has been loaded.
func (s *InMemory) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return sentinel.ErrStoreMissing
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemory) Close() error { return nil }
