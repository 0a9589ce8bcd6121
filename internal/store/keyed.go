// Package store provides the in-memory record storage backing the
// receipt API: a string-keyed collection and an owner-partitioned
// two-level store built on top of it. Contents do not survive a
// process restart.
package store

// Identifiable is any record carrying its own unique string key.
type Identifiable interface {
	Key() string
}

// Keyed maps unique string keys to values. Add inserts only when the
// key is absent and Edit replaces only when it is present; neither ever
// upserts. The zero value is not usable; construct with NewKeyed.
//
// Keyed does no locking of its own. Owned serializes access to the
// partitions it hands out; a standalone Keyed assumes a single caller.
type Keyed[T any] struct {
	items map[string]T
}

// NewKeyed returns an empty collection.
func NewKeyed[T any]() *Keyed[T] {
	return &Keyed[T]{items: make(map[string]T)}
}

// Add inserts value under key and reports whether it was inserted.
// An existing key is left untouched.
func (k *Keyed[T]) Add(key string, value T) bool {
	if _, ok := k.items[key]; ok {
		return false
	}
	k.items[key] = value
	return true
}

// Get returns the value stored under key, if any.
func (k *Keyed[T]) Get(key string) (T, bool) {
	v, ok := k.items[key]
	return v, ok
}

// Edit replaces the value under key and reports whether the key was
// present. An absent key stays absent.
func (k *Keyed[T]) Edit(key string, value T) bool {
	if _, ok := k.items[key]; !ok {
		return false
	}
	k.items[key] = value
	return true
}

// Remove deletes the value under key and reports whether it was present.
func (k *Keyed[T]) Remove(key string) bool {
	if _, ok := k.items[key]; !ok {
		return false
	}
	delete(k.items, key)
	return true
}

// IDs returns all keys. Order is unspecified.
func (k *Keyed[T]) IDs() []string {
	ids := make([]string, 0, len(k.items))
	for id := range k.items {
		ids = append(ids, id)
	}
	return ids
}

// Values returns all stored values. Order is unspecified.
func (k *Keyed[T]) Values() []T {
	values := make([]T, 0, len(k.items))
	for _, v := range k.items {
		values = append(values, v)
	}
	return values
}

// Count returns the number of stored values.
func (k *Keyed[T]) Count() int {
	return len(k.items)
}

// Any reports whether the collection holds anything at all.
func (k *Keyed[T]) Any() bool {
	return k.Count() > 0
}
