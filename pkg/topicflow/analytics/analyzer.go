package analytics

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/cognicore/topicflow/pkg/topicflow/ingest"
	"github.com/cognicore/topicflow/pkg/topicflow/stoplist"
)

// Analyzer aggregates document-level token statistics. It is a terminal
// sink for token documents and is safe for concurrent use.
type Analyzer struct {
	mu          sync.Mutex
	totalDocs   int64
	totalTokens int64
	sentences   int64
	tokenDF     map[string]int64 // documents containing the token
	tokenTF     map[string]int64 // occurrences across the corpus
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		tokenDF: make(map[string]int64),
		tokenTF: make(map[string]int64),
	}
}

// Process consumes one document's tokens.
func (a *Analyzer) Process(_ context.Context, doc ingest.Document[[][]string]) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalDocs++
	a.sentences += int64(len(doc.Text))
	seen := make(map[string]struct{})
	for _, sentence := range doc.Text {
		for _, tok := range sentence {
			if tok == "" {
				continue
			}
			a.totalTokens++
			a.tokenTF[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			a.tokenDF[tok]++
		}
	}
	return nil
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalDocs   int64
	TotalTokens int64
	Sentences   int64
	TokenDF     map[string]int64
	TokenTF     map[string]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	copyDF := make(map[string]int64, len(a.tokenDF))
	for tok, count := range a.tokenDF {
		copyDF[tok] = count
	}
	copyTF := make(map[string]int64, len(a.tokenTF))
	for tok, count := range a.tokenTF {
		copyTF[tok] = count
	}
	return Stats{
		TotalDocs:   a.totalDocs,
		TotalTokens: a.totalTokens,
		Sentences:   a.sentences,
		TokenDF:     copyDF,
		TokenTF:     copyTF,
	}
}

// StopwordStats converts corpus stats into the format expected by
// stoplist.SuggestCandidates, ordered by token.
func (s Stats) StopwordStats() []stoplist.Stats {
	var out []stoplist.Stats
	if s.TotalDocs == 0 {
		return out
	}
	for tok, df := range s.TokenDF {
		out = append(out, stoplist.Stats{
			Token:     tok,
			DF:        df,
			DFPercent: float64(df) / float64(s.TotalDocs) * 100,
			IDF:       math.Log(float64(s.TotalDocs) / float64(df)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// Term is a token with its corpus frequencies.
type Term struct {
	Token string
	TF    int64
	DF    int64
}

// TopTerms returns the k most frequent tokens by occurrence count, ties
// broken alphabetically. k <= 0 returns every token.
func (s Stats) TopTerms(k int) []Term {
	out := make([]Term, 0, len(s.TokenTF))
	for tok, tf := range s.TokenTF {
		out = append(out, Term{Token: tok, TF: tf, DF: s.TokenDF[tok]})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TF != out[j].TF {
			return out[i].TF > out[j].TF
		}
		return out[i].Token < out[j].Token
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}
