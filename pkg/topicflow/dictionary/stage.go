package dictionary

import (
	"context"

	"github.com/cognicore/topicflow/pkg/topicflow/ingest"
	"github.com/cognicore/topicflow/pkg/topicflow/stage"
)

// Builder converts every sentence of a token document to a bag of words,
// growing the dictionary, and saves the dictionary after each document.
func (d *Dictionary) Builder(downstream ...stage.Sink[ingest.Document[[][]Pair]]) *stage.Stage[ingest.Document[[][]string], ingest.Document[[][]Pair]] {
	return stage.New("dictionary", func(ctx context.Context, doc ingest.Document[[][]string]) (ingest.Document[[][]Pair], error) {
		out := d.convert(doc, true)
		if err := d.Save(ctx); err != nil {
			return out, err
		}
		return out, nil
	}, downstream...)
}

// Lookup converts token documents with the dictionary as it stands. Unknown
// tokens are dropped.
func (d *Dictionary) Lookup(downstream ...stage.Sink[ingest.Document[[][]Pair]]) *stage.Stage[ingest.Document[[][]string], ingest.Document[[][]Pair]] {
	return stage.New("bow", func(_ context.Context, doc ingest.Document[[][]string]) (ingest.Document[[][]Pair], error) {
		return d.convert(doc, false), nil
	}, downstream...)
}

func (d *Dictionary) convert(doc ingest.Document[[][]string], allowUpdate bool) ingest.Document[[][]Pair] {
	bows := make([][]Pair, len(doc.Text))
	for i, sentence := range doc.Text {
		bows[i] = d.Doc2Bow(sentence, allowUpdate)
	}
	return ingest.Document[[][]Pair]{Label: doc.Label, Path: doc.Path, Text: bows}
}
