package store

import (
	"fmt"
	"sync"

	"github.com/msilvprog7/receipt/internal/core"
)

// Owned partitions records by owner id. A partition is created lazily
// on the first successful Add; an absent partition reads as empty and
// only becomes an error when a mutation requires the record to exist.
//
// The maps are guarded by a single RWMutex so concurrent requests do
// not corrupt them. Two same-owner writers racing on one record still
// resolve last-write-wins with no lost-update detection.
type Owned[T Identifiable] struct {
	mu     sync.RWMutex
	owners map[string]*Keyed[T]
}

// NewOwned returns an empty owner-partitioned store.
func NewOwned[T Identifiable]() *Owned[T] {
	return &Owned[T]{owners: make(map[string]*Keyed[T])}
}

// Add inserts rec into ownerID's partition, creating the partition if
// this is the owner's first record. Returns core.ErrAlreadyExists when
// the record id is already taken within that partition.
func (s *Owned[T]) Add(ownerID string, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	partition, ok := s.owners[ownerID]
	if !ok {
		partition = NewKeyed[T]()
		s.owners[ownerID] = partition
	}
	if !partition.Add(rec.Key(), rec) {
		return fmt.Errorf("add %q for owner %q: %w", rec.Key(), ownerID, core.ErrAlreadyExists)
	}
	return nil
}

// All returns every record in ownerID's partition. An unknown owner
// yields an empty slice, never an error.
func (s *Owned[T]) All(ownerID string) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partition, ok := s.owners[ownerID]
	if !ok {
		return []T{}
	}
	return partition.Values()
}

// Get returns the record with the given id from ownerID's partition.
// Returns core.ErrNotFound when the owner or the record is absent.
func (s *Owned[T]) Get(ownerID, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	partition, ok := s.owners[ownerID]
	if !ok {
		return zero, fmt.Errorf("get %q for owner %q: %w", id, ownerID, core.ErrNotFound)
	}
	rec, ok := partition.Get(id)
	if !ok {
		return zero, fmt.Errorf("get %q for owner %q: %w", id, ownerID, core.ErrNotFound)
	}
	return rec, nil
}

// Edit replaces the record sharing rec's id in ownerID's partition.
// Returns core.ErrNotFound when the owner or the record is absent.
func (s *Owned[T]) Edit(ownerID string, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	partition, ok := s.owners[ownerID]
	if !ok || !partition.Edit(rec.Key(), rec) {
		return fmt.Errorf("edit %q for owner %q: %w", rec.Key(), ownerID, core.ErrNotFound)
	}
	return nil
}

// Remove deletes the record with the given id from ownerID's partition.
// Returns core.ErrNotFound when the owner or the record is absent.
func (s *Owned[T]) Remove(ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	partition, ok := s.owners[ownerID]
	if !ok || !partition.Remove(id) {
		return fmt.Errorf("remove %q for owner %q: %w", id, ownerID, core.ErrNotFound)
	}
	return nil
}

// Count returns the number of records held for ownerID.
func (s *Owned[T]) Count(ownerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partition, ok := s.owners[ownerID]
	if !ok {
		return 0
	}
	return partition.Count()
}
