// Package pmi is a co-occurrence model over dictionary ids. Counter learns
// from bag-of-words batches and Calculator scores pairs by PMI.
package pmi

import (
	"context"
	"sort"
	"sync"

	"github.com/cognicore/topicflow/pkg/topicflow/dictionary"
)

// Pair is an unordered pair of token ids stored with A < B.
type Pair struct {
	A, B int
}

func makePair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Counter maintains sentence co-occurrence counts. It implements
// model.Updater and is safe for concurrent use.
type Counter struct {
	mu  sync.RWMutex
	n   int64          // sentences seen
	nx  map[int]int64  // sentences containing each id
	nxy map[Pair]int64 // sentences containing both ids
}

// NewCounter creates an empty counter
func NewCounter() *Counter {
	return &Counter{
		nx:  make(map[int]int64),
		nxy: make(map[Pair]int64),
	}
}

// Update adds every sentence of batch.
func (c *Counter) Update(ctx context.Context, batch [][]dictionary.Pair) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, bow := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.add(bow)
	}
	return nil
}

// add counts one sentence. Bags are sorted by id with one entry per id, so
// every pair is visited once. Caller holds the lock.
func (c *Counter) add(bow []dictionary.Pair) {
	c.n++
	for i, p := range bow {
		c.nx[p.ID]++
		for _, q := range bow[i+1:] {
			c.nxy[makePair(p.ID, q.ID)]++
		}
	}
}

// PairCount returns the number of sentences containing both a and b.
func (c *Counter) PairCount(a, b int) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nxy[makePair(a, b)]
}

// TokenCount returns the number of sentences containing id.
func (c *Counter) TokenCount(id int) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nx[id]
}

// Total returns the number of sentences seen.
func (c *Counter) Total() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.n
}

// UniquePairs returns the number of distinct co-occurring pairs.
func (c *Counter) UniquePairs() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nxy)
}

// Scored is a pair with its association strength.
type Scored struct {
	Pair
	Count int64
	NPMI  float64
}

// TopPairs returns the k pairs with the highest NPMI among those seen in at
// least minCount sentences. Ties are broken by count, then by ids.
func (c *Counter) TopPairs(calc *Calculator, k int, minCount int64) []Scored {
	c.mu.RLock()
	out := make([]Scored, 0, len(c.nxy))
	for p, nab := range c.nxy {
		if nab < minCount {
			continue
		}
		out = append(out, Scored{
			Pair:  p,
			Count: nab,
			NPMI:  calc.NPMI(nab, c.nx[p.A], c.nx[p.B], c.n),
		})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].NPMI != out[j].NPMI {
			return out[i].NPMI > out[j].NPMI
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
