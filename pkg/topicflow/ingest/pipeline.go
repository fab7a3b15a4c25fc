package ingest

import (
	"context"

	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/source"
	"github.com/cognicore/topicflow/pkg/topicflow/stage"
)

// Chain is the standard prefix every corpus build shares:
// read → sentences → words → normalized tokens
type Chain struct {
	reader     *Reader
	normalizer *Normalizer
}

// NewChain creates the prefix from its two configurable parts
func NewChain(reader *Reader, normalizer *Normalizer) *Chain {
	return &Chain{reader: reader, normalizer: normalizer}
}

// Graph builds the prefix as a stage graph feeding downstream.
func (c *Chain) Graph(downstream ...stage.Sink[Document[[][]string]]) *stage.Stage[source.Item, Document[string]] {
	return c.reader.Stage(SentenceStage(WordStage(c.normalizer.Stage(downstream...))))
}

// Tokens runs the whole prefix on one item in a single call. It holds no
// state between calls, so it can be spread over a worker pool.
func (c *Chain) Tokens(ctx context.Context, item source.Item) (Document[[][]string], error) {
	doc, err := c.reader.Read(ctx, item)
	if err != nil {
		return Document[[][]string]{}, &internalerr.StageError{Stage: "read", Item: item, Err: err}
	}

	sentences := Sentences(doc.Text)
	words := make([][]string, len(sentences))
	for i, s := range sentences {
		words[i] = Words(s)
	}

	return Document[[][]string]{
		Label: doc.Label,
		Path:  doc.Path,
		Text:  c.normalizer.NormalizeAll(words),
	}, nil
}
