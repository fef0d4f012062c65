// Package collection keeps an in-memory snapshot of a persisted record set
// and diffs incoming saves against it, so that resubmitting an unchanged
// collection costs no database writes.
package collection

import (
	gocache "github.com/patrickmn/go-cache"
)

// Snapshot caches the last known state of a record collection. Lookups and
// replacement go through the underlying cache; the snapshot is replaced
// wholesale after a successful save rather than patched per record, so a
// concurrent save may briefly observe a stale snapshot and re-upsert rows
// that are already current. Upserts are idempotent, so this is harmless.
type Snapshot[T any] struct {
	cache *gocache.Cache
	keyFn func(T) string
	eqFn  func(a, b T) bool
}

// New builds a snapshot keyed by keyFn. Records never expire; the snapshot
// is only ever replaced explicitly.
func New[T any](keyFn func(T) string, eqFn func(a, b T) bool) *Snapshot[T] {
	return &Snapshot[T]{
		cache: gocache.New(gocache.NoExpiration, 0),
		keyFn: keyFn,
		eqFn:  eqFn,
	}
}

// Replace swaps the entire snapshot for the given records.
func (s *Snapshot[T]) Replace(records []T) {
	s.cache.Flush()
	for _, r := range records {
		s.cache.Set(s.keyFn(r), r, gocache.NoExpiration)
	}
}

// Diff returns the subset of incoming records that differ from the
// snapshot. A record whose key is absent from the snapshot counts as
// changed; a record equal to its cached counterpart is skipped.
func (s *Snapshot[T]) Diff(incoming []T) []T {
	var changed []T
	for _, r := range incoming {
		cached, found := s.cache.Get(s.keyFn(r))
		if !found {
			changed = append(changed, r)
			continue
		}
		prev, ok := cached.(T)
		if !ok || !s.eqFn(prev, r) {
			changed = append(changed, r)
		}
	}
	return changed
}

// Put inserts or overwrites individual records without touching the rest
// of the snapshot.
func (s *Snapshot[T]) Put(records ...T) {
	for _, r := range records {
		s.cache.Set(s.keyFn(r), r, gocache.NoExpiration)
	}
}

// Remove drops records by key. Unknown keys are ignored.
func (s *Snapshot[T]) Remove(keys ...string) {
	for _, k := range keys {
		s.cache.Delete(k)
	}
}

// Get returns the cached record for key, if present.
func (s *Snapshot[T]) Get(key string) (T, bool) {
	var zero T
	cached, found := s.cache.Get(key)
	if !found {
		return zero, false
	}
	r, ok := cached.(T)
	if !ok {
		return zero, false
	}
	return r, true
}

// Records returns all cached records in unspecified order.
func (s *Snapshot[T]) Records() []T {
	items := s.cache.Items()
	records := make([]T, 0, len(items))
	for _, item := range items {
		if r, ok := item.Object.(T); ok {
			records = append(records, r)
		}
	}
	return records
}

// Len reports the number of cached records.
func (s *Snapshot[T]) Len() int {
	return s.cache.ItemCount()
}
