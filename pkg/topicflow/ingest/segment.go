package ingest

import (
	"strings"
	"unicode"
)

const terminators = ".!?"

// closers may follow a terminator and still belong to the sentence.
const closers = ".!?\"')]’”"

var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {}, "st": {},
	"vs": {}, "etc": {}, "inc": {}, "ltd": {}, "co": {}, "corp": {}, "no": {}, "fig": {},
	"e.g": {}, "i.e": {}, "u.s": {}, "approx": {}, "dept": {}, "est": {},
	"jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {}, "jul": {}, "aug": {},
	"sep": {}, "sept": {}, "oct": {}, "nov": {}, "dec": {},
}

// Sentences splits text at sentence terminators followed by whitespace.
// Newlines inside a sentence are kept, trailing text without a terminator
// forms the last sentence, and whitespace between sentences is dropped.
// Empty text gives an empty, non-nil slice.
func Sentences(text string) []string {
	out := []string{}
	runes := []rune(text)
	start := 0

	emit := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		if !strings.ContainsRune(terminators, runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && strings.ContainsRune(closers, runes[end]) {
			end++
		}
		next := i
		i = end - 1
		if end < len(runes) && !unicode.IsSpace(runes[end]) {
			continue // "3.14", "example.com"
		}
		if runes[next] == '.' && isAbbreviation(runes[start:next]) {
			continue
		}
		emit(end)
	}
	emit(len(runes))

	return out
}

// isAbbreviation reports whether the word ending the span is a known
// abbreviation or a single-letter initial.
func isAbbreviation(span []rune) bool {
	j := len(span)
	for j > 0 && !unicode.IsSpace(span[j-1]) {
		j--
	}
	word := span[j:]
	if len(word) == 1 && unicode.IsUpper(word[0]) {
		return true
	}
	_, ok := abbreviations[strings.ToLower(string(word))]
	return ok
}

// Words splits a sentence into word and punctuation tokens. Letters, digits
// and inner hyphens or apostrophes form words; every other non-space rune is
// a token of its own.
func Words(sentence string) []string {
	tokens := []string{}
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.Trim(current.String(), "-'’"))
			current.Reset()
		}
	}

	for _, r := range sentence {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			current.WriteRune(r)
		case (r == '-' || r == '\'' || r == '’') && current.Len() > 0:
			current.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		default:
			flush()
			tokens = append(tokens, string(r))
		}
	}
	flush()

	return dropEmpty(tokens)
}

func dropEmpty(tokens []string) []string {
	out := tokens[:0]
	for _, t := range tokens {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Join joins each sentence's tokens with single spaces.
func Join(sentences [][]string) []string {
	out := make([]string, len(sentences))
	for i, s := range sentences {
		out[i] = strings.Join(s, " ")
	}
	return out
}
