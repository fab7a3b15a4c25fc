package store

import (
	"context"
	"time"
)

// Store persists the token dictionary and the ledger of pipeline runs.
type Store interface {
	Close() error

	// Dictionary
	LoadTokens(ctx context.Context) ([]Token, error)
	Counters(ctx context.Context) (Counters, bool, error)
	SaveDictionary(ctx context.Context, changed []Token, c Counters) error

	// Runs
	RecordRun(ctx context.Context, r Run) error
	Runs(ctx context.Context, limit int) ([]Run, error)
}

// Token is one dictionary entry
type Token struct {
	ID    int
	Token string
	DF    int64 // number of documents containing the token
}

// Counters are the dictionary-wide totals. A store with no saved counters
// holds no dictionary.
type Counters struct {
	NumDocs int64 // documents processed
	NumPos  int64 // total token occurrences
	NumNNZ  int64 // total distinct (document, token) pairs
}

// Run records one driver invocation
type Run struct {
	ID        string // ULID
	Command   string
	Partition string
	Processed int
	Skipped   int
	State     string
	Started   time.Time
	Finished  time.Time
}
