// Package model connects bag-of-words documents to a trainable model.
package model

import (
	"context"
	"fmt"
	"iter"

	"github.com/cognicore/topicflow/pkg/topicflow/dictionary"
	"github.com/cognicore/topicflow/pkg/topicflow/ingest"
	"github.com/cognicore/topicflow/pkg/topicflow/stage"
)

// DefaultBatchSize is the number of sentences Train hands to Update at once.
const DefaultBatchSize = 2000

// Updater is anything that learns from batches of bag-of-words sentences.
// The return value carries no information beyond failure.
type Updater interface {
	Update(ctx context.Context, batch [][]dictionary.Pair) error
}

// UpdaterFunc adapts a function to Updater.
type UpdaterFunc func(ctx context.Context, batch [][]dictionary.Pair) error

func (f UpdaterFunc) Update(ctx context.Context, batch [][]dictionary.Pair) error {
	return f(ctx, batch)
}

// Sink calls u once per document with the document's sentences and forwards
// the document unchanged.
func Sink(u Updater, downstream ...stage.Sink[ingest.Document[[][]dictionary.Pair]]) *stage.Stage[ingest.Document[[][]dictionary.Pair], ingest.Document[[][]dictionary.Pair]] {
	return stage.New("model", func(ctx context.Context, doc ingest.Document[[][]dictionary.Pair]) (ingest.Document[[][]dictionary.Pair], error) {
		if err := u.Update(ctx, doc.Text); err != nil {
			return doc, err
		}
		return doc, nil
	}, downstream...)
}

// Train feeds sentences to u in batches of batchSize and returns the number
// of sentences consumed. A short final batch is flushed.
func Train(ctx context.Context, u Updater, sentences iter.Seq2[[]dictionary.Pair, error], batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	batch := make([][]dictionary.Pair, 0, batchSize)
	n := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := u.Update(ctx, batch); err != nil {
			return fmt.Errorf("update after %d sentences: %w", n, err)
		}
		batch = make([][]dictionary.Pair, 0, batchSize)
		return nil
	}

	for sentence, err := range sentences {
		if err != nil {
			return n, err
		}
		batch = append(batch, sentence)
		n++
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	return n, flush()
}
