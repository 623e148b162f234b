// Package anchor holds the co-occurrence space and everything that operates
// in it: labeled co-occurrence construction, Gram-Schmidt anchor selection,
// anchor resolution and topic recovery.
package anchor

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/emilykay2/tbuie/internal/models"
	"github.com/emilykay2/tbuie/internal/workers"
)

// Store is the labeled co-occurrence matrix Q with its bookkeeping.
// Q has V rows and V+L columns; every row with training mass sums to 1.
// A Store is read-only once built.
type Store struct {
	Q        *mat.Dense
	WordFreq []float64
	Labels   []string
	Vocab    *models.Vocabulary
}

// CooccurrenceConfig parameterises BuildLabeledCooccurrence
type CooccurrenceConfig struct {
	LabelAttribute string
	LabelWeight    float64
	Smoothing      float64
}

// NewStore wraps a precomputed Q. WordFreq may be nil, in which case every
// word gets equal frequency.
func NewStore(vocab *models.Vocabulary, labels []string, q *mat.Dense, wordFreq []float64) (*Store, error) {
	r, c := q.Dims()
	if r != vocab.Size() || c != vocab.Size()+len(labels) {
		return nil, fmt.Errorf("%w: Q is %dx%d, want %dx%d", ErrDimensionMismatch, r, c, vocab.Size(), vocab.Size()+len(labels))
	}
	if wordFreq == nil {
		wordFreq = make([]float64, r)
		for i := range wordFreq {
			wordFreq[i] = 1 / float64(r)
		}
	}
	if len(wordFreq) != r {
		return nil, fmt.Errorf("%w: %d word frequencies for %d rows", ErrDimensionMismatch, len(wordFreq), r)
	}
	return &Store{Q: q, WordFreq: wordFreq, Labels: labels, Vocab: vocab}, nil
}

// VocabSize returns V
func (s *Store) VocabSize() int { return s.Vocab.Size() }

// Width returns V+L, the dimension of an anchor vector
func (s *Store) Width() int {
	_, c := s.Q.Dims()
	return c
}

// Row returns a copy of Q's row for word index i
func (s *Store) Row(i int) []float64 {
	return mat.Row(nil, i, s.Q)
}

// LabelIndex returns the label's position among the label columns
func (s *Store) LabelIndex(label string) (int, bool) {
	i := sort.SearchStrings(s.Labels, label)
	if i < len(s.Labels) && s.Labels[i] == label {
		return i, true
	}
	return 0, false
}

// Marginal returns the corpus-wide context distribution, the frequency-weighted
// sum of Q's rows
func (s *Store) Marginal() []float64 {
	out := make([]float64, s.Width())
	for i, f := range s.WordFreq {
		if f == 0 {
			continue
		}
		floats.AddScaled(out, f, s.Q.RawRowView(i))
	}
	return out
}

type trainDoc struct {
	tokens []models.TokenCount
	// pairNorm is 1/(n(n-1)), zero for documents too short to form pairs
	pairNorm float64
	invLen   float64
	label    int
}

type posting struct {
	doc   int
	count float64
}

// BuildLabeledCooccurrence computes Q over the training documents. Word-word
// mass counts ordered token pairs within a document; word-label mass adds
// labelWeight*c/n to the document's label column. Documents without the label
// attribute contribute word-word statistics only. Labels are sorted
// lexicographically. Rows are filled in parallel; each row is owned by one worker.
func BuildLabeledCooccurrence(ctx context.Context, c *models.Corpus, trainIDs []int, cfg CooccurrenceConfig, pool *workers.Pool) (*Store, error) {
	V := c.Vocabulary.Size()
	if V == 0 {
		return nil, fmt.Errorf("corpus %q has an empty vocabulary", c.Name)
	}

	labelSet := make(map[string]bool)
	for _, id := range trainIDs {
		if l, ok := c.Doc(id).Label(cfg.LabelAttribute); ok {
			labelSet[l] = true
		}
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	labelIdx := make(map[string]int, len(labels))
	for i, l := range labels {
		labelIdx[l] = i
	}

	docs := make([]trainDoc, len(trainIDs))
	postings := make([][]posting, V)
	for d, id := range trainIDs {
		doc := c.Doc(id)
		n := float64(doc.Length())
		td := trainDoc{tokens: doc.Tokens, label: -1}
		if n >= 2 {
			td.pairNorm = 1 / (n * (n - 1))
		}
		if n > 0 {
			td.invLen = 1 / n
		}
		if l, ok := doc.Label(cfg.LabelAttribute); ok {
			td.label = labelIdx[l]
		}
		docs[d] = td
		for _, tc := range doc.Tokens {
			postings[tc.Index] = append(postings[tc.Index], posting{doc: d, count: float64(tc.Count)})
		}
	}

	width := V + len(labels)
	q := mat.NewDense(V, width, nil)
	mass := make([]float64, V)

	err := pool.MapRanges(ctx, V, func(ctx context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			row := q.RawRowView(i)
			for _, p := range postings[i] {
				td := docs[p.doc]
				if td.pairNorm > 0 {
					for _, tc := range td.tokens {
						if tc.Index == i {
							row[i] += p.count * (p.count - 1) * td.pairNorm
						} else {
							row[tc.Index] += p.count * float64(tc.Count) * td.pairNorm
						}
					}
				}
				if td.label >= 0 {
					row[V+td.label] += cfg.LabelWeight * p.count * td.invLen
				}
			}

			total := floats.Sum(row)
			mass[i] = total
			if total == 0 {
				continue
			}
			if cfg.Smoothing > 0 {
				floats.AddConst(cfg.Smoothing, row)
				total = floats.Sum(row)
			}
			floats.Scale(1/total, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	wordFreq := make([]float64, V)
	if total := floats.Sum(mass); total > 0 {
		floats.ScaleTo(wordFreq, 1/total, mass)
	}

	return &Store{Q: q, WordFreq: wordFreq, Labels: labels, Vocab: c.Vocabulary}, nil
}
