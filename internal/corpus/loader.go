// Package corpus turns a JSON-lines text collection into an immutable
// bag-of-words corpus over a fixed vocabulary, and splits it into training
// and held-out documents.
package corpus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/emilykay2/tbuie/internal/models"
	"github.com/emilykay2/tbuie/internal/workers"
)

// maxLineBytes bounds a single JSON line; long reviews and newsgroup posts fit comfortably
const maxLineBytes = 16 << 20

// RawDocument is one line of a corpus file
type RawDocument struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Options control vocabulary construction
type Options struct {
	// MinDocFreq drops terms appearing in fewer documents
	MinDocFreq int
	// Stem applies snowball stemming to every term
	Stem bool
}

// ReadRawDocuments decodes a JSON-lines stream. Blank lines are skipped and
// documents without an id are named after their line number.
func ReadRawDocuments(r io.Reader) ([]RawDocument, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var docs []RawDocument
	seen := make(map[string]int)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var doc RawDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if doc.ID == "" {
			doc.ID = strconv.Itoa(line)
		}
		if prev, dup := seen[doc.ID]; dup {
			return nil, fmt.Errorf("line %d: duplicate document id %q (first seen on line %d)", line, doc.ID, prev)
		}
		seen[doc.ID] = line
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// LoadFile reads and builds the corpus stored at path
func LoadFile(ctx context.Context, name, path string, opts Options, pool *workers.Pool) (*models.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raws, err := ReadRawDocuments(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Build(ctx, name, raws, opts, pool)
}

// Build tokenizes raw documents, constructs the vocabulary and indexes every
// document against it. Document order is preserved.
func Build(ctx context.Context, name string, raws []RawDocument, opts Options, pool *workers.Pool) (*models.Corpus, error) {
	if opts.MinDocFreq < 1 {
		opts.MinDocFreq = 1
	}
	tokenizer := NewTokenizer(WithStemming(opts.Stem))

	terms := make([][]string, len(raws))
	err := pool.Map(ctx, len(raws), func(i int) error {
		t, err := tokenizer.Tokenize(raws[i].Text)
		if err != nil {
			return fmt.Errorf("document %q: %w", raws[i].ID, err)
		}
		terms[i] = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	vocab, err := buildVocabulary(terms, opts.MinDocFreq)
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, len(raws))
	for i, raw := range raws {
		counts := make(map[int]int)
		for _, term := range terms[i] {
			if idx, ok := vocab.Index(term); ok {
				counts[idx]++
			}
		}
		docs[i] = models.NewDocument(raw.ID, counts, normaliseMetadata(raw.Metadata))
	}

	return &models.Corpus{
		Name:       name,
		Vocabulary: vocab,
		Documents:  docs,
	}, nil
}

// buildVocabulary keeps terms whose document frequency reaches minDocFreq,
// in lexicographic order
func buildVocabulary(terms [][]string, minDocFreq int) (*models.Vocabulary, error) {
	docFreq := make(map[string]int)
	for _, doc := range terms {
		seen := make(map[string]bool, len(doc))
		for _, term := range doc {
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}

	words := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df >= minDocFreq {
			words = append(words, term)
		}
	}
	sort.Strings(words)
	return models.NewVocabulary(words)
}

func normaliseMetadata(meta map[string]interface{}) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if s, ok := models.MetadataString(v); ok {
			out[k] = s
		}
	}
	return out
}
