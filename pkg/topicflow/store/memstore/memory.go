package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/topicflow/pkg/topicflow/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu       sync.RWMutex
	tokens   map[int]store.Token
	counters *store.Counters
	runs     map[string]store.Run
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		tokens: make(map[int]store.Token),
		runs:   make(map[string]store.Run),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// LoadTokens returns all tokens ordered by id.
func (s *Store) LoadTokens(ctx context.Context) ([]store.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Token, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Counters returns the saved totals, if any.
func (s *Store) Counters(ctx context.Context) (store.Counters, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.counters == nil {
		return store.Counters{}, false, nil
	}
	return *s.counters, true, nil
}

// SaveDictionary upserts tokens by id and replaces the totals.
func (s *Store) SaveDictionary(ctx context.Context, changed []store.Token, c store.Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range changed {
		s.tokens[t.ID] = t
	}
	s.counters = &c
	return nil
}

// RecordRun inserts or replaces a run.
func (s *Store) RecordRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
	return nil
}

// Runs returns runs newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
