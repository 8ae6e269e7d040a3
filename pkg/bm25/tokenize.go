// Package bm25 provides the tokenizer, term/doc-length indexes, and BM25
// scorer used by the query engine's text_search and hybrid_search
// operations.
//
// Grounded on the teacher's hand-rolled pkg/search/fulltext_index.go: no
// stemming, no language model, just lowercase word splitting with a small
// stopword filter — exactly what spec §4.5 asks for.
package bm25

import (
	"strings"
	"unicode"
)

// stopwords is the fixed list of tiny, semantically empty English words
// dropped before indexing or querying. It is unexported and is not
// configurable from outside this package.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "if": {}, "in": {}, "into": {}, "is": {},
	"it": {}, "no": {}, "not": {}, "of": {}, "on": {}, "or": {}, "such": {},
	"that": {}, "the": {}, "their": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "to": {}, "was": {}, "with": {},
}

// MinTokenLength is the minimum token length kept after splitting, per
// spec §4.5.
const MinTokenLength = 2

// Tokenize lowercases text, splits on runs of non-alphanumeric characters,
// and drops stopwords and tokens shorter than MinTokenLength.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if len(f) < MinTokenLength {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}
