package template

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for single-process deployments and testing.
// The zero value is ready to use.
type MemStore struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{defs: make(map[string]Definition)}
}

// Create implements [Store.Create].
func (s *MemStore) Create(ctx context.Context, def Definition) error {
	if err := Validate(def); err != nil {
		return err
	}
	if def.Kind == "" {
		def.Kind = KindTemplate
	}
	now := time.Now()
	def.CreatedAt = now
	def.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defs == nil {
		s.defs = make(map[string]Definition)
	}
	if _, exists := s.defs[def.Key]; exists {
		return ErrDuplicateKey
	}
	s.defs[def.Key] = def
	return nil
}

// Lookup returns the definition for key without an error return. It is the
// read view the render path uses; misses are an expected outcome there, not
// a failure.
func (s *MemStore) Lookup(key string) (Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.defs[key]
	return d, ok
}

// Count returns the number of registered definitions.
func (s *MemStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.defs)
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, key string) (Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.defs[key]
	if !ok {
		return Definition{}, ErrNotFound
	}
	return d, nil
}

// List implements [Store.List]. Definitions are returned in key order.
func (s *MemStore) List(ctx context.Context) ([]Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Definition, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Upsert implements [Store.Upsert].
func (s *MemStore) Upsert(ctx context.Context, def Definition) error {
	if err := Validate(def); err != nil {
		return err
	}
	if def.Kind == "" {
		def.Kind = KindTemplate
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defs == nil {
		s.defs = make(map[string]Definition)
	}
	if existing, ok := s.defs[def.Key]; ok {
		def.CreatedAt = existing.CreatedAt
	} else {
		def.CreatedAt = now
	}
	def.UpdatedAt = now
	s.defs[def.Key] = def
	return nil
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.defs, key)
	return nil
}
