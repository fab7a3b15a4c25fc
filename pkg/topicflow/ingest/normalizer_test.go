package ingest

import (
	"reflect"
	"testing"

	"github.com/cognicore/topicflow/pkg/topicflow/lexicon"
	"github.com/cognicore/topicflow/pkg/topicflow/stoplist"
)

func testNormalizer(parser *PhraseParser) *Normalizer {
	lex := lexicon.New()
	lex.AddLemmas("company", "report", "rate", "interest", "cafe", "market")
	return NewNormalizer(stoplist.NewManager(stoplist.English()), lex, parser)
}

func TestNormalize(t *testing.T) {
	n := testNormalizer(nil)
	words := []string{"The", "Companies", "reported", "higher", "rates", "in", "2023", "Q4s", "(", "...", "Café", "markets", "!!!!"}
	got := n.Normalize(words)
	want := []string{"company", "report", "higher", "rate", "cafe", "market"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalizeDropsShortWords(t *testing.T) {
	n := NewNormalizer(nil, nil, nil)
	got := n.Normalize([]string{"tax", "risk", "ab", "équipe"})
	want := []string{"risk", "equipe"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalizeAllKeepsShape(t *testing.T) {
	n := testNormalizer(nil)
	got := n.NormalizeAll([][]string{{"the", "of"}, {"markets"}, {}})
	if len(got) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(got))
	}
	if got[0] == nil || len(got[0]) != 0 {
		t.Errorf("sentence of stopwords should be empty, not nil: %#v", got[0])
	}
	if got[2] == nil {
		t.Error("empty sentence must stay an empty slice")
	}
	if len(got[1]) != 1 || got[1][0] != "market" {
		t.Errorf("second sentence = %q", got[1])
	}
}

func TestPhraseParserMergesAfterLemmas(t *testing.T) {
	parser := NewPhraseParser([]Phrase{
		{Canonical: "interest_rate", Variants: []string{"interest rate"}},
		{Canonical: "federal_reserve_bank", Variants: []string{"federal reserve bank", "federal  reserve"}},
	})
	n := testNormalizer(parser)

	got := n.Normalize([]string{"Interest", "rates", "rose"})
	want := []string{"interest_rate", "rose"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %q, want %q", got, want)
	}

	got = parser.Parse([]string{"federal", "reserve", "bank", "federal", "reserve", "policy"})
	want = []string{"federal_reserve_bank", "federal_reserve_bank", "policy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Parse = %q, want %q", got, want)
	}
}

func TestPhraseParserWithoutPhrases(t *testing.T) {
	p := NewPhraseParser(nil)
	in := []string{"alpha", "beta"}
	if got := p.Parse(in); !reflect.DeepEqual(got, in) {
		t.Errorf("Parse = %q", got)
	}
}
