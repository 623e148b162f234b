package corpus

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
	"github.com/kljensen/snowball/english"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer turns raw document text into vocabulary candidate terms
type Tokenizer struct {
	// Common stop words to filter out
	stopWords map[string]bool
	// Minimum term length in runes
	minLength int
	stem      bool
}

// TokenizerOption configures a Tokenizer
type TokenizerOption func(*Tokenizer)

// WithStemming reduces every term to its snowball English stem
func WithStemming(stem bool) TokenizerOption {
	return func(t *Tokenizer) { t.stem = stem }
}

// WithMinLength sets the shortest term kept
func WithMinLength(n int) TokenizerOption {
	return func(t *Tokenizer) { t.minLength = n }
}

// WithStopWords adds stop words on top of the built-in list
func WithStopWords(words ...string) TokenizerOption {
	return func(t *Tokenizer) {
		for _, w := range words {
			t.stopWords[strings.ToLower(w)] = true
		}
	}
}

// NewTokenizer creates a tokenizer with the default English stop list
func NewTokenizer(opts ...TokenizerOption) *Tokenizer {
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
		"be": true, "been": true, "have": true, "has": true, "had": true, "do": true,
		"does": true, "did": true, "will": true, "would": true, "could": true, "should": true,
		"this": true, "that": true, "these": true, "those": true, "i": true, "you": true,
		"he": true, "she": true, "it": true, "we": true, "they": true, "my": true,
		"your": true, "his": true, "her": true, "its": true, "our": true, "their": true,
		"me": true, "him": true, "them": true, "us": true, "not": true, "no": true,
		"so": true, "if": true, "as": true, "from": true, "there": true, "what": true,
		"which": true, "who": true, "when": true, "where": true, "than": true, "then": true,
		"can": true, "just": true, "about": true, "all": true, "any": true, "also": true,
		"n't": true, "'s": true, "'m": true, "'re": true, "'ve": true, "'ll": true, "'d": true,
	}

	t := &Tokenizer{
		stopWords: stopWords,
		minLength: 2,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// foldAccents strips combining marks so "café" and "cafe" share a term
func foldAccents(s string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(chain, s)
	if err != nil {
		return s
	}
	return out
}

// Tokenize returns the document's terms in order of appearance
func (t *Tokenizer) Tokenize(text string) ([]string, error) {
	text = strings.ToLower(foldAccents(text))

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithSegmentation(false),
	)
	if err != nil {
		return nil, err
	}

	tokens := doc.Tokens()
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		word := strings.TrimSpace(tok.Text)
		if t.shouldSkipWord(word) {
			continue
		}
		if t.stem {
			word = english.Stem(word, false)
			if t.shouldSkipWord(word) {
				continue
			}
		}
		terms = append(terms, word)
	}
	return terms, nil
}

// shouldSkipWord determines if a word should be filtered out
func (t *Tokenizer) shouldSkipWord(word string) bool {
	if utf8.RuneCountInString(word) < t.minLength {
		return true
	}
	if t.stopWords[word] {
		return true
	}
	return isPureNumber(word) || isPunctuation(word)
}

// isPureNumber checks if string contains only digits
func isPureNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// isPunctuation checks if string contains only punctuation
func isPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return len(s) > 0
}
