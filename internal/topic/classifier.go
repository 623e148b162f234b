package topic

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/emilykay2/tbuie/internal/models"
)

// ErrNoTrainingLabels is returned when no training document carries a known label
var ErrNoTrainingLabels = errors.New("no labeled training documents")

// Classifier predicts a label from a document's topic mixture. Each topic
// carries a distribution over labels learned from training documents.
type Classifier struct {
	labels []string
	// labelGivenTopic is K x L, each row P(label | topic)
	labelGivenTopic *mat.Dense
	coefficients    *mat.Dense
	majority        int
}

// BuildClassifier estimates every labeled training document's topic mixture
// as the count-weighted mean of its words' coefficient rows, then accumulates
// those mixtures per gold label. Topics no training document touches fall back
// to the training label prior.
func BuildClassifier(c *models.Corpus, labelAttr string, trainIDs []int, coefficients *mat.Dense, labels []string) (*Classifier, error) {
	V, K := coefficients.Dims()
	if V != c.Vocabulary.Size() {
		return nil, fmt.Errorf("coefficient matrix has %d rows for a vocabulary of %d", V, c.Vocabulary.Size())
	}
	L := len(labels)
	if L == 0 {
		return nil, ErrNoTrainingLabels
	}
	labelIdx := make(map[string]int, L)
	for i, l := range labels {
		labelIdx[l] = i
	}

	cl := &Classifier{
		labels:          labels,
		labelGivenTopic: mat.NewDense(K, L, nil),
		coefficients:    coefficients,
	}

	prior := make([]float64, L)
	mixture := make([]float64, K)
	for _, id := range trainIDs {
		doc := c.Doc(id)
		gold, ok := doc.Label(labelAttr)
		if !ok {
			continue
		}
		l, ok := labelIdx[gold]
		if !ok {
			continue
		}
		prior[l]++
		if !cl.mixture(mixture, doc) {
			continue
		}
		for k, m := range mixture {
			cl.labelGivenTopic.Set(k, l, cl.labelGivenTopic.At(k, l)+m)
		}
	}

	total := floats.Sum(prior)
	if total == 0 {
		return nil, ErrNoTrainingLabels
	}
	cl.majority = floats.MaxIdx(prior)
	floats.Scale(1/total, prior)

	for k := 0; k < K; k++ {
		row := cl.labelGivenTopic.RawRowView(k)
		if s := floats.Sum(row); s > 0 {
			floats.Scale(1/s, row)
		} else {
			copy(row, prior)
		}
	}
	return cl, nil
}

// mixture writes the count-weighted mean coefficient row of doc into dst and
// reports false for documents without tokens
func (cl *Classifier) mixture(dst []float64, doc *models.Document) bool {
	for k := range dst {
		dst[k] = 0
	}
	n := 0
	for _, tc := range doc.Tokens {
		floats.AddScaled(dst, float64(tc.Count), cl.coefficients.RawRowView(tc.Index))
		n += tc.Count
	}
	if n == 0 {
		return false
	}
	floats.Scale(1/float64(n), dst)
	return true
}

// Labels returns the label set in column order
func (cl *Classifier) Labels() []string { return cl.labels }

// Majority returns the most frequent training label
func (cl *Classifier) Majority() string { return cl.labels[cl.majority] }

// Predict scores every label as sum_k theta_k P(label|k) and returns the best,
// ties to the earlier label. An empty or all-zero mixture gets the majority label.
func (cl *Classifier) Predict(theta []float64) string {
	K, L := cl.labelGivenTopic.Dims()
	if len(theta) != K || floats.Sum(theta) == 0 {
		return cl.Majority()
	}
	scores := make([]float64, L)
	for k, t := range theta {
		if t == 0 {
			continue
		}
		floats.AddScaled(scores, t, cl.labelGivenTopic.RawRowView(k))
	}
	return cl.labels[floats.MaxIdx(scores)]
}

// Classify predicts a document's label from its coefficient mixture
func (cl *Classifier) Classify(doc *models.Document) string {
	_, K := cl.coefficients.Dims()
	mixture := make([]float64, K)
	if !cl.mixture(mixture, doc) {
		return cl.Majority()
	}
	return cl.Predict(mixture)
}
