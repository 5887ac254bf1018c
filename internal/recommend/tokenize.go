// ABOUTME: Tokenizer and keyword ranking for podcast text
// ABOUTME: Casefolds, splits on anything that is not a letter or digit and drops stopwords

package recommend

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// minTokenLen drops short tokens, which are mostly articles and noise.
const minTokenLen = 3

// Tokenize casefolds text and splits it into tokens of at least three characters.
func Tokenize(text string) []string {
	folded := cases.Fold().String(text)
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

type termCount struct {
	term  string
	count int
	first int
}

// countTerms counts non-stopword tokens, most frequent first and ties by first appearance.
func countTerms(text, lang string) []termCount {
	stop := stopwords[lang]
	index := make(map[string]int)
	var terms []termCount
	for i, tok := range Tokenize(text) {
		if _, ok := stop[tok]; ok {
			continue
		}
		if j, ok := index[tok]; ok {
			terms[j].count++
			continue
		}
		index[tok] = len(terms)
		terms = append(terms, termCount{term: tok, count: 1, first: i})
	}
	slices.SortStableFunc(terms, func(a, b termCount) int {
		if a.count != b.count {
			return b.count - a.count
		}
		return a.first - b.first
	})
	return terms
}

// Keywords returns the n most frequent non-stopword tokens of text. Stopwords are
// removed only for languages with a list; other languages keep every token.
func Keywords(text, lang string, n int) []string {
	terms := countTerms(text, lang)
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.term
	}
	return out
}
