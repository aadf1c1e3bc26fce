// Package tokenize splits page text into keyword tokens for similarity
// checks. Words are case folded with golang.org/x/text/cases, stripped of
// punctuation, and kept only when purely alphabetic. Optionally they are
// reduced to their Snowball English stems.
package tokenize

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
)

// Tokenizer splits text into words. It is safe for concurrent use once
// built.
type Tokenizer struct {
	StopWords map[string]bool // folded words to drop
	Stem      bool            // reduce words to English stems after stop word removal
}

// New creates a Tokenizer that drops the given stop words.
func New(stopWords []string) *Tokenizer {
	t := &Tokenizer{StopWords: make(map[string]bool, len(stopWords))}
	fold := cases.Fold()
	for _, w := range stopWords {
		t.StopWords[fold.String(strings.TrimSpace(w))] = true
	}
	return t
}

// Words returns the folded alphabetic words of text in order.
func (t *Tokenizer) Words(text string) []string {
	// Casers carry state, so each call gets its own.
	fold := cases.Fold()
	fields := strings.FieldsFunc(text, unicode.IsSpace)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.Map(func(r rune) rune {
			if unicode.IsPunct(r) || unicode.IsSymbol(r) {
				return -1
			}
			return r
		}, f)
		if w == "" || !alphabetic(w) {
			continue
		}
		w = fold.String(w)
		if t.StopWords[w] {
			continue
		}
		if t.Stem {
			w = english.Stem(w, false)
		}
		words = append(words, w)
	}
	return words
}

func alphabetic(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Keyword is a word and how often it occurs.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// MostCommon returns the n most frequent words of text. Ties keep the
// order of first occurrence.
func (t *Tokenizer) MostCommon(text string, n int) []Keyword {
	words := t.Words(text)
	if len(words) == 0 || n <= 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, w := range words {
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	keywords := make([]Keyword, len(order))
	for i, w := range order {
		keywords[i] = Keyword{Word: w, Count: counts[w]}
	}
	sort.SliceStable(keywords, func(i, j int) bool { return keywords[i].Count > keywords[j].Count })
	if len(keywords) > n {
		keywords = keywords[:n]
	}
	return keywords
}

// Missing returns the keywords whose word does not occur in text.
func (t *Tokenizer) Missing(keywords []Keyword, text string) []string {
	present := make(map[string]bool)
	for _, w := range t.Words(text) {
		present[w] = true
	}
	var missing []string
	for _, k := range keywords {
		if !present[k.Word] {
			missing = append(missing, k.Word)
		}
	}
	return missing
}
