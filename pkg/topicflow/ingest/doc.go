package ingest

import (
	"context"

	"github.com/cognicore/topicflow/pkg/topicflow/split"
	"github.com/cognicore/topicflow/pkg/topicflow/stage"
)

// Document is the record flowing through the pipeline after the read stage.
// Text narrows stage by stage: raw string, sentences, words per sentence,
// tokens per sentence, bag-of-words per sentence. Label and Path are set
// once at read time and carried unchanged.
type Document[T any] struct {
	Label split.Label
	Path  string
	Text  T
}

// ID identifies the document in diagnostics.
func (d Document[T]) ID() string { return d.Path }

// MapText lifts a text transform to a document transform that keeps the
// label and path.
func MapText[A, B any](fn func(A) B) stage.Func[Document[A], Document[B]] {
	return func(_ context.Context, d Document[A]) (Document[B], error) {
		return Document[B]{Label: d.Label, Path: d.Path, Text: fn(d.Text)}, nil
	}
}

// SentenceStage splits raw text into sentences.
func SentenceStage(downstream ...stage.Sink[Document[[]string]]) *stage.Stage[Document[string], Document[[]string]] {
	return stage.New("sentences", MapText(Sentences), downstream...)
}

// WordStage splits every sentence into words.
func WordStage(downstream ...stage.Sink[Document[[][]string]]) *stage.Stage[Document[[]string], Document[[][]string]] {
	return stage.New("words", MapText(func(sentences []string) [][]string {
		out := make([][]string, len(sentences))
		for i, s := range sentences {
			out[i] = Words(s)
		}
		return out
	}), downstream...)
}

// JoinStage joins each sentence's tokens with spaces.
func JoinStage(downstream ...stage.Sink[Document[[]string]]) *stage.Stage[Document[[][]string], Document[[]string]] {
	return stage.New("join", MapText(Join), downstream...)
}

// TagStage attaches a part-of-speech tag to every word.
func TagStage(downstream ...stage.Sink[Document[[][]Tagged]]) *stage.Stage[Document[[][]string], Document[[][]Tagged]] {
	return stage.New("tag", MapText(func(sentences [][]string) [][]Tagged {
		out := make([][]Tagged, len(sentences))
		for i, s := range sentences {
			out[i] = Tag(s)
		}
		return out
	}), downstream...)
}
