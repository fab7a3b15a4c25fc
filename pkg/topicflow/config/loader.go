package config

import (
	"fmt"

	"github.com/cognicore/topicflow/pkg/topicflow/ingest"
	"github.com/cognicore/topicflow/pkg/topicflow/lexicon"
	"github.com/cognicore/topicflow/pkg/topicflow/stoplist"
)

// Loader loads the word lists named in Resources and constructs the
// normalizer components.
type Loader struct {
	StoplistPath string
	LexiconPath  string
	PhrasesPath  string
}

// Components holds all loaded text resources.
type Components struct {
	Stoplist   *stoplist.Manager
	Lexicon    *lexicon.Lexicon
	Parser     *ingest.PhraseParser
	Normalizer *ingest.Normalizer
}

// NewLoader returns a loader for the resources configured in c.
func (c Config) NewLoader() *Loader {
	return &Loader{
		StoplistPath: c.Resources.Stoplist,
		LexiconPath:  c.Resources.Lexicon,
		PhrasesPath:  c.Resources.Phrases,
	}
}

// Load reads all configured files and returns initialized components. The
// built-in English stopwords are always included.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	comp.Stoplist = stoplist.NewManager(stoplist.English())
	if l.StoplistPath != "" {
		terms, err := stoplist.LoadYAML(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		for _, t := range terms {
			comp.Stoplist.Add(t, stoplist.Reason{Builtin: true})
		}
	}

	if l.LexiconPath != "" {
		lex, err := lexicon.LoadFromYAML(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.New()
	}

	if l.PhrasesPath != "" {
		phrases, err := ingest.LoadPhrases(l.PhrasesPath)
		if err != nil {
			return nil, fmt.Errorf("load phrases: %w", err)
		}
		comp.Parser = ingest.NewPhraseParser(phrases)
	} else {
		comp.Parser = ingest.NewPhraseParser(nil)
	}

	comp.Normalizer = ingest.NewNormalizer(comp.Stoplist, comp.Lexicon, comp.Parser)
	return comp, nil
}
