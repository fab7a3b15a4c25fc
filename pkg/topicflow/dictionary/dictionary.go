// Package dictionary maps tokens to integer ids and turns token lists into
// bag-of-words vectors. A dictionary grows as documents are converted with
// updates allowed and can be persisted to a store.Store between runs.
package dictionary

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"

	"github.com/goccy/go-json"

	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/store"
)

// Pair is one bag-of-words entry. It encodes as the JSON array [id, count].
type Pair struct {
	ID    int
	Count int
}

func (p Pair) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 16)
	b = append(b, '[')
	b = strconv.AppendInt(b, int64(p.ID), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, int64(p.Count), 10)
	return append(b, ']'), nil
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var v []int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 2 {
		return fmt.Errorf("%w: pair must have 2 elements, got %d", internalerr.ErrInvalidInput, len(v))
	}
	p.ID, p.Count = v[0], v[1]
	return nil
}

// Dictionary is safe for concurrent use.
type Dictionary struct {
	mu       sync.RWMutex
	token2id map[string]int
	id2token []string
	dfs      []int64
	counters store.Counters

	dirty map[int]struct{}
	st    store.Store
}

// New creates an empty dictionary that is not backed by a store.
func New() *Dictionary {
	return &Dictionary{
		token2id: make(map[string]int),
		dirty:    make(map[int]struct{}),
	}
}

// OpenOrCreate loads the dictionary saved in st, or creates an empty one
// bound to st when nothing has been saved yet. The decision is logged once.
func OpenOrCreate(ctx context.Context, st store.Store, logger *log.Logger) (*Dictionary, error) {
	if logger == nil {
		logger = log.Default()
	}
	d := New()
	d.st = st

	counters, ok, err := st.Counters(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	if !ok {
		logger.Printf("dictionary: no saved dictionary found, creating a new one")
		return d, nil
	}

	tokens, err := st.LoadTokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	for i, t := range tokens {
		if t.ID != i {
			return nil, &internalerr.StorageError{
				Op:  "load dictionary",
				Err: fmt.Errorf("%w: token ids not contiguous at %q (id %d, want %d)", internalerr.ErrInvalidInput, t.Token, t.ID, i),
			}
		}
		d.token2id[t.Token] = t.ID
		d.id2token = append(d.id2token, t.Token)
		d.dfs = append(d.dfs, t.DF)
	}
	d.counters = counters
	logger.Printf("dictionary: loaded %d tokens from %d documents", len(tokens), counters.NumDocs)
	return d, nil
}

// Doc2Bow converts tokens to a bag of words sorted by id. Tokens unknown to
// the dictionary are dropped unless allowUpdate is set, in which case they
// are assigned the next free ids (in lexical order) and the document counts
// towards the frequency statistics.
func (d *Dictionary) Doc2Bow(tokens []string, allowUpdate bool) []Pair {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}

	if allowUpdate {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.addMissing(counts)
	} else {
		d.mu.RLock()
		defer d.mu.RUnlock()
	}

	bow := make([]Pair, 0, len(counts))
	for tok, n := range counts {
		if id, ok := d.token2id[tok]; ok {
			bow = append(bow, Pair{ID: id, Count: n})
		}
	}
	sort.Slice(bow, func(i, j int) bool { return bow[i].ID < bow[j].ID })

	if allowUpdate {
		d.counters.NumDocs++
		d.counters.NumPos += int64(len(tokens))
		d.counters.NumNNZ += int64(len(counts))
		for _, p := range bow {
			d.dfs[p.ID]++
			d.dirty[p.ID] = struct{}{}
		}
	}
	return bow
}

// addMissing assigns ids to unseen tokens. Caller holds the write lock.
func (d *Dictionary) addMissing(counts map[string]int) {
	var missing []string
	for tok := range counts {
		if _, ok := d.token2id[tok]; !ok {
			missing = append(missing, tok)
		}
	}
	sort.Strings(missing)
	for _, tok := range missing {
		id := len(d.id2token)
		d.token2id[tok] = id
		d.id2token = append(d.id2token, tok)
		d.dfs = append(d.dfs, 0)
		d.dirty[id] = struct{}{}
	}
}

// ID returns the id of token.
func (d *Dictionary) ID(token string) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.token2id[token]
	return id, ok
}

// Token returns the token with the given id.
func (d *Dictionary) Token(id int) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id < 0 || id >= len(d.id2token) {
		return "", false
	}
	return d.id2token[id], true
}

// DF returns the number of documents containing the token with id.
func (d *Dictionary) DF(id int) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id < 0 || id >= len(d.dfs) {
		return 0
	}
	return d.dfs[id]
}

// Len returns the number of distinct tokens.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.id2token)
}

// Counters returns the document, position and non-zero totals.
func (d *Dictionary) Counters() store.Counters {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.counters
}

// Entries returns every token with its document frequency, ordered by id.
func (d *Dictionary) Entries() []store.Token {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]store.Token, len(d.id2token))
	for id, tok := range d.id2token {
		out[id] = store.Token{ID: id, Token: tok, DF: d.dfs[id]}
	}
	return out
}

// Save persists the tokens changed since the last save together with the
// totals. A dictionary created with New has nowhere to save to and Save is
// a no-op.
func (d *Dictionary) Save(ctx context.Context) error {
	if d.st == nil {
		return nil
	}

	d.mu.Lock()
	changed := make([]store.Token, 0, len(d.dirty))
	for id := range d.dirty {
		changed = append(changed, store.Token{ID: id, Token: d.id2token[id], DF: d.dfs[id]})
	}
	counters := d.counters
	d.mu.Unlock()

	sort.Slice(changed, func(i, j int) bool { return changed[i].ID < changed[j].ID })
	if err := d.st.SaveDictionary(ctx, changed, counters); err != nil {
		return fmt.Errorf("save dictionary: %w", err)
	}

	d.mu.Lock()
	for _, t := range changed {
		// A token touched again after the snapshot keeps its newer df dirty.
		if d.dfs[t.ID] == t.DF {
			delete(d.dirty, t.ID)
		}
	}
	d.mu.Unlock()
	return nil
}
