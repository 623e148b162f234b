package models

import "fmt"

// Vocabulary is a bijection between token strings and dense indices 0..V-1.
// Index order is stable and fixes the row/column order of every matrix.
type Vocabulary struct {
	words []string
	index map[string]int
}

// NewVocabulary builds a vocabulary from an ordered, duplicate-free word list
func NewVocabulary(words []string) (*Vocabulary, error) {
	v := &Vocabulary{
		words: make([]string, len(words)),
		index: make(map[string]int, len(words)),
	}
	for i, w := range words {
		if _, dup := v.index[w]; dup {
			return nil, fmt.Errorf("duplicate vocabulary word %q at index %d", w, i)
		}
		v.words[i] = w
		v.index[w] = i
	}
	return v, nil
}

// MustVocabulary is NewVocabulary for literals in tests and examples
func MustVocabulary(words ...string) *Vocabulary {
	v, err := NewVocabulary(words)
	if err != nil {
		panic(err)
	}
	return v
}

// Size returns V
func (v *Vocabulary) Size() int { return len(v.words) }

// Index looks up a token
func (v *Vocabulary) Index(word string) (int, bool) {
	i, ok := v.index[word]
	return i, ok
}

// Word returns the token at index i
func (v *Vocabulary) Word(i int) string { return v.words[i] }

// Words returns a copy of the ordered token list
func (v *Vocabulary) Words() []string {
	out := make([]string, len(v.words))
	copy(out, v.words)
	return out
}

// Corpus is an ordered sequence of documents over a fixed vocabulary.
// It is immutable once loaded.
type Corpus struct {
	Name       string
	Vocabulary *Vocabulary
	Documents  []Document
}

// Doc returns the document at position id
func (c *Corpus) Doc(id int) *Document {
	return &c.Documents[id]
}

// Len returns the number of documents
func (c *Corpus) Len() int { return len(c.Documents) }

// Subset returns the documents at the given positions, in order. The
// documents are shared with the corpus and must not be modified.
func (c *Corpus) Subset(ids []int) []*Document {
	docs := make([]*Document, len(ids))
	for i, id := range ids {
		docs[i] = &c.Documents[id]
	}
	return docs
}

// DocumentFrequency counts, per vocabulary word, the documents among ids containing it.
// A nil ids slice means every document.
func (c *Corpus) DocumentFrequency(ids []int) []int {
	df := make([]int, c.Vocabulary.Size())
	visit := func(d *Document) {
		for _, tc := range d.Tokens {
			df[tc.Index]++
		}
	}
	if ids == nil {
		for i := range c.Documents {
			visit(&c.Documents[i])
		}
		return df
	}
	for _, id := range ids {
		visit(&c.Documents[id])
	}
	return df
}

// Validate checks every document against the vocabulary
func (c *Corpus) Validate() error {
	if c.Vocabulary == nil {
		return &ValidationError{Field: "vocabulary", Message: "vocabulary is required"}
	}
	for i := range c.Documents {
		if err := c.Documents[i].Validate(c.Vocabulary.Size()); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}
