package lexicon

import (
	"os"
	"strings"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
)

// Lexicon maps inflected word forms to their lemma.
//
// Lookup order for Lemma:
//   - an explicit form listed under a lemma group
//   - the word itself when it is a known lemma
//   - suffix rules (plural nouns, verb inflections, comparatives), accepted
//     only when the stripped base is a known lemma
//   - otherwise the word unchanged
//
// Results are memoised; the memo is flushed whenever the lexicon changes.
type Lexicon struct {
	mu     sync.RWMutex
	lemmas map[string]struct{}
	forms  map[string]string
	memo   *gocache.Cache
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		lemmas: make(map[string]struct{}),
		forms:  make(map[string]string),
		memo:   gocache.New(gocache.NoExpiration, 0),
	}
}

// LoadFromYAML loads lemma groups from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - lemma: be
//	    forms: [is, are, was, were, been]
//	  - lemma: child
//	    forms: [children]
//	words: [company, risk, market]
//
// words lists extra known lemmas with no irregular forms; the suffix rules
// use them as targets.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Lemmas []struct {
			Lemma string   `yaml:"lemma"`
			Forms []string `yaml:"forms"`
		} `yaml:"lemmas"`
		Words []string `yaml:"words"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, group := range config.Lemmas {
		lex.AddGroup(group.Lemma, group.Forms)
	}
	lex.AddLemmas(config.Words...)
	return lex, nil
}

// AddGroup registers lemma and its irregular forms.
func (l *Lexicon) AddGroup(lemma string, forms []string) {
	lemma = strings.ToLower(lemma)
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lemmas[lemma] = struct{}{}
	for _, f := range forms {
		f = strings.ToLower(f)
		if f != lemma {
			l.forms[f] = lemma
		}
	}
	l.memo.Flush()
}

// AddLemmas registers known base forms.
func (l *Lexicon) AddLemmas(words ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range words {
		l.lemmas[strings.ToLower(w)] = struct{}{}
	}
	l.memo.Flush()
}

type rule struct{ suffix, replace string }

// Tried in order; the first rule yielding a known lemma wins.
var rules = []rule{
	// nouns
	{"ses", "s"}, {"xes", "x"}, {"zes", "z"}, {"ches", "ch"}, {"shes", "sh"},
	{"men", "man"}, {"ies", "y"},
	// verbs
	{"es", "e"}, {"es", ""}, {"ed", "e"}, {"ed", ""}, {"ing", "e"}, {"ing", ""},
	{"s", ""},
	// adjectives
	{"est", "e"}, {"est", ""}, {"er", "e"}, {"er", ""},
}

// Lemma returns the lemma of a lowercase word.
func (l *Lexicon) Lemma(word string) string {
	if v, ok := l.memo.Get(word); ok {
		return v.(string)
	}

	l.mu.RLock()
	lemma := l.lookup(word)
	l.mu.RUnlock()

	l.memo.SetDefault(word, lemma)
	return lemma
}

func (l *Lexicon) lookup(word string) string {
	if lemma, ok := l.forms[word]; ok {
		return lemma
	}
	if _, ok := l.lemmas[word]; ok {
		return word
	}
	for _, r := range rules {
		if !strings.HasSuffix(word, r.suffix) || len(word) <= len(r.suffix) {
			continue
		}
		base := word[:len(word)-len(r.suffix)] + r.replace
		if _, ok := l.lemmas[base]; ok {
			return base
		}
		// doubled consonant: "running" -> "runn" -> "run"
		if n := len(base); r.replace == "" && n >= 2 && base[n-1] == base[n-2] {
			if _, ok := l.lemmas[base[:n-1]]; ok {
				return base[:n-1]
			}
		}
	}
	return word
}

// Stats summarises the lexicon contents.
type Stats struct {
	Lemmas int
	Forms  int
}

// Stats returns counts of known lemmas and irregular forms.
func (l *Lexicon) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{Lemmas: len(l.lemmas), Forms: len(l.forms)}
}
