package ingest

import (
	"strings"
	"unicode"
)

// Tagged is a word with its part-of-speech tag.
type Tagged struct {
	Word string `json:"word"`
	Tag  string `json:"tag"`
}

var closedClass = map[string]string{
	"the": "DT", "a": "DT", "an": "DT", "this": "DT", "that": "DT", "these": "DT", "those": "DT",
	"and": "CC", "or": "CC", "but": "CC", "nor": "CC",
	"in": "IN", "on": "IN", "at": "IN", "of": "IN", "for": "IN", "with": "IN", "from": "IN",
	"by": "IN", "about": "IN", "into": "IN", "over": "IN", "under": "IN",
	"i": "PRP", "you": "PRP", "he": "PRP", "she": "PRP", "it": "PRP", "we": "PRP", "they": "PRP",
	"is": "VBZ", "are": "VBP", "was": "VBD", "were": "VBD", "be": "VB", "been": "VBN",
	"to": "TO", "not": "RB",
	"will": "MD", "would": "MD", "can": "MD", "could": "MD", "may": "MD", "might": "MD",
	"shall": "MD", "should": "MD", "must": "MD",
}

var suffixTags = []struct{ suffix, tag string }{
	{"ing", "VBG"},
	{"ed", "VBD"},
	{"ly", "RB"},
	{"ous", "JJ"}, {"ful", "JJ"}, {"ive", "JJ"}, {"able", "JJ"}, {"ible", "JJ"}, {"al", "JJ"},
	{"tion", "NN"}, {"ment", "NN"}, {"ness", "NN"}, {"ity", "NN"},
	{"s", "NNS"},
}

// Tag assigns a coarse Penn-style tag to each word of a sentence using
// closed-class lookups and suffix rules.
func Tag(words []string) []Tagged {
	out := make([]Tagged, len(words))
	for i, w := range words {
		out[i] = Tagged{Word: w, Tag: tagWord(w, i == 0)}
	}
	return out
}

func tagWord(w string, first bool) string {
	lower := strings.ToLower(w)
	if tag, ok := closedClass[lower]; ok {
		return tag
	}
	if !hasLetter(w) {
		if hasDigit(w) {
			return "CD"
		}
		return "."
	}
	r := []rune(w)
	if !first && unicode.IsUpper(r[0]) {
		return "NNP"
	}
	for _, st := range suffixTags {
		if len(lower) > len(st.suffix)+2 && strings.HasSuffix(lower, st.suffix) {
			return st.tag
		}
	}
	return "NN"
}
