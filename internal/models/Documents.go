package models

import (
	"fmt"
	"sort"
	"strconv"
)

// TokenCount is one vocabulary word and how often it occurs in a document
type TokenCount struct {
	Index int `json:"i"`
	Count int `json:"c"`
}

// Document is a bag of vocabulary-indexed token counts with its metadata
type Document struct {
	ID       string            `json:"id"`
	Tokens   []TokenCount      `json:"tokens"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Length returns the number of token occurrences in the document
func (d *Document) Length() int {
	n := 0
	for _, tc := range d.Tokens {
		n += tc.Count
	}
	return n
}

// Label returns the metadata value stored under attr, if present and non-empty
func (d *Document) Label(attr string) (string, bool) {
	if d.Metadata == nil {
		return "", false
	}
	v, ok := d.Metadata[attr]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Validate checks the document against a vocabulary of size vocabSize
func (d *Document) Validate(vocabSize int) error {
	if d.ID == "" {
		return &ValidationError{Field: "id", Message: "document ID is required"}
	}
	prev := -1
	for _, tc := range d.Tokens {
		if tc.Index < 0 || tc.Index >= vocabSize {
			return &ValidationError{Field: "tokens", Message: fmt.Sprintf("token index %d outside vocabulary of size %d", tc.Index, vocabSize)}
		}
		if tc.Index <= prev {
			return &ValidationError{Field: "tokens", Message: "token indices must be strictly increasing"}
		}
		if tc.Count <= 0 {
			return &ValidationError{Field: "tokens", Message: fmt.Sprintf("token %d has non-positive count %d", tc.Index, tc.Count)}
		}
		prev = tc.Index
	}
	return nil
}

// NewDocument builds a document from a word index -> count map, sorting tokens by index
func NewDocument(id string, counts map[int]int, metadata map[string]string) Document {
	tokens := make([]TokenCount, 0, len(counts))
	for idx, c := range counts {
		if c > 0 {
			tokens = append(tokens, TokenCount{Index: idx, Count: c})
		}
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Index < tokens[j].Index })
	return Document{ID: id, Tokens: tokens, Metadata: metadata}
}

// MetadataString normalises a decoded JSON metadata value into the string form
// used for label comparison
func MetadataString(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
