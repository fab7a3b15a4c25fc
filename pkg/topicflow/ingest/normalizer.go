package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/topicflow/pkg/topicflow/lexicon"
	"github.com/cognicore/topicflow/pkg/topicflow/stage"
	"github.com/cognicore/topicflow/pkg/topicflow/stoplist"
)

// MinTokenLen is the shortest token the normalizer keeps, in runes.
const MinTokenLen = 4

// Normalizer turns words into topic-model tokens: lowercase, diacritics
// folded, short words, stopwords, words with digits and punctuation dropped,
// then reduced to their lemma.
type Normalizer struct {
	stops   *stoplist.Manager
	lexicon *lexicon.Lexicon // optional
	parser  *PhraseParser    // optional
}

// NewNormalizer creates a normalizer. lex and parser may be nil.
func NewNormalizer(stops *stoplist.Manager, lex *lexicon.Lexicon, parser *PhraseParser) *Normalizer {
	if stops == nil {
		stops = stoplist.NewManager(nil)
	}
	return &Normalizer{stops: stops, lexicon: lex, parser: parser}
}

// Normalize processes the words of one sentence. The result is never nil.
func (n *Normalizer) Normalize(words []string) []string {
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if tok := n.processToken(w); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	if n.parser != nil {
		tokens = n.parser.Parse(tokens)
	}
	return tokens
}

// NormalizeAll processes every sentence of a document, keeping empty
// sentences so the shape follows the input.
func (n *Normalizer) NormalizeAll(sentences [][]string) [][]string {
	out := make([][]string, len(sentences))
	for i, s := range sentences {
		out[i] = n.Normalize(s)
	}
	return out
}

// Stage wraps NormalizeAll.
func (n *Normalizer) Stage(downstream ...stage.Sink[Document[[][]string]]) *stage.Stage[Document[[][]string], Document[[][]string]] {
	return stage.New("normalize", MapText(n.NormalizeAll), downstream...)
}

func (n *Normalizer) processToken(word string) string {
	word = strings.ToLower(foldDiacritics(word))
	word = strings.Trim(word, "-'’")
	if utf8.RuneCountInString(word) < MinTokenLen {
		return ""
	}
	if n.stops.IsStop(word) {
		return ""
	}
	if !hasLetter(word) || hasDigit(word) {
		return ""
	}
	if n.lexicon != nil {
		word = n.lexicon.Lemma(word)
	}
	return word
}

// foldDiacritics decomposes s and strips combining marks: "café" -> "cafe".
func foldDiacritics(s string) string {
	if isASCII(s) {
		return s
	}
	decomposed := norm.NFD.String(s)
	stripped := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, decomposed)
	return norm.NFC.String(stripped)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
