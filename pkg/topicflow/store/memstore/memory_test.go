package memstore

import (
	"context"
	"testing"

	"github.com/cognicore/topicflow/pkg/topicflow/store"
)

var _ store.Store = (*Store)(nil)

func TestDictionaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, _ := s.Counters(ctx); ok {
		t.Fatal("new store should hold no dictionary")
	}
	s.SaveDictionary(ctx, []store.Token{{ID: 1, Token: "b", DF: 1}, {ID: 0, Token: "a", DF: 2}}, store.Counters{NumDocs: 2})
	s.SaveDictionary(ctx, []store.Token{{ID: 1, Token: "b", DF: 3}}, store.Counters{NumDocs: 3})

	tokens, _ := s.LoadTokens(ctx)
	if len(tokens) != 2 || tokens[0].Token != "a" || tokens[1].DF != 3 {
		t.Errorf("tokens = %+v", tokens)
	}
	c, ok, _ := s.Counters(ctx)
	if !ok || c.NumDocs != 3 {
		t.Errorf("counters = %+v ok=%v", c, ok)
	}
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"01A", "01C", "01B"} {
		s.RecordRun(ctx, store.Run{ID: id})
	}
	runs, _ := s.Runs(ctx, 2)
	if len(runs) != 2 || runs[0].ID != "01C" || runs[1].ID != "01B" {
		t.Errorf("runs = %+v", runs)
	}
}
