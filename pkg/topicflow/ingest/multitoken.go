package ingest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PhraseParser merges known multi-word phrases into single tokens
type PhraseParser struct {
	dict   map[string]string // phrase → canonical token
	maxLen int
}

// Phrase is one dictionary entry. Variants are written in normalized form,
// since the parser runs after lemmatization.
type Phrase struct {
	Canonical string   `yaml:"canonical"`
	Variants  []string `yaml:"variants"`
}

// NewPhraseParser creates a parser with the given phrases
func NewPhraseParser(phrases []Phrase) *PhraseParser {
	p := &PhraseParser{dict: make(map[string]string), maxLen: 1}
	for _, ph := range phrases {
		canonical := strings.ToLower(ph.Canonical)
		for _, v := range ph.Variants {
			variant := strings.ToLower(strings.Join(strings.Fields(v), " "))
			p.dict[variant] = canonical
			if l := len(strings.Fields(variant)); l > p.maxLen {
				p.maxLen = l
			}
		}
	}
	return p
}

// LoadPhrases reads a phrase file.
//
//	phrases:
//	  - canonical: interest_rate
//	    variants: [interest rate, interest rates]
func LoadPhrases(path string) ([]Phrase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f struct {
		Phrases []Phrase `yaml:"phrases"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse phrases: %w", err)
	}
	return f.Phrases, nil
}

// Parse applies greedy longest-match over tokens
func (p *PhraseParser) Parse(tokens []string) []string {
	if p.maxLen < 2 {
		return tokens
	}
	result := make([]string, 0, len(tokens))
	i := 0

	for i < len(tokens) {
		maxPhrase := p.maxLen
		if remaining := len(tokens) - i; maxPhrase > remaining {
			maxPhrase = remaining
		}

		matchLen := 0
		for n := maxPhrase; n >= 2; n-- {
			if canonical, ok := p.dict[strings.Join(tokens[i:i+n], " ")]; ok {
				result = append(result, canonical)
				matchLen = n
				break
			}
		}

		if matchLen == 0 {
			result = append(result, tokens[i])
			matchLen = 1
		}
		i += matchLen
	}

	return result
}
