package topic

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"

	"github.com/emilykay2/tbuie/internal/models"
	"github.com/emilykay2/tbuie/internal/workers"
)

// AssignConfig controls per-document variational inference
type AssignConfig struct {
	// Alpha is the symmetric Dirichlet prior on topic mixtures
	Alpha float64
	// MaxIterations bounds the work spent on a single document
	MaxIterations int
	// Tolerance stops iterating once the mean absolute change of theta drops below it
	Tolerance float64
}

// DefaultAssignConfig returns the interactive defaults
func DefaultAssignConfig() AssignConfig {
	return AssignConfig{Alpha: 0.1, MaxIterations: 50, Tolerance: 1e-4}
}

// Assignment is the inferred topic mixture of one document
type Assignment struct {
	DocID      string    `json:"doc_id"`
	Position   int       `json:"position"`
	Theta      []float64 `json:"theta"`
	Iterations int       `json:"iterations"`
	// Empty marks a document without in-vocabulary tokens; its Theta is uniform
	Empty bool `json:"empty,omitempty"`
}

// Assign infers a topic mixture for each document given the topic matrix A
// (V x K, columns are topics). Documents are independent and run across the
// pool; the returned slice follows the order of ids. Documents are not modified.
func Assign(ctx context.Context, c *models.Corpus, ids []int, A *mat.Dense, cfg AssignConfig, pool *workers.Pool) ([]Assignment, error) {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultAssignConfig().MaxIterations
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = DefaultAssignConfig().Alpha
	}

	out := make([]Assignment, len(ids))
	err := pool.MapRanges(ctx, len(ids), func(ctx context.Context, lo, hi int) error {
		_, K := A.Dims()
		inf := newInference(K, cfg)
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc := c.Doc(ids[i])
			theta, iters := inf.run(doc, A)
			out[i] = Assignment{DocID: doc.ID, Position: ids[i], Theta: theta, Iterations: iters, Empty: doc.Length() == 0}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type inference struct {
	cfg                         AssignConfig
	gamma, next, expPsi, phi, t []float64
}

func newInference(K int, cfg AssignConfig) *inference {
	return &inference{
		cfg:    cfg,
		gamma:  make([]float64, K),
		next:   make([]float64, K),
		expPsi: make([]float64, K),
		phi:    make([]float64, K),
		t:      make([]float64, K),
	}
}

// run alternates token responsibilities phi and the Dirichlet posterior gamma
// and returns the normalised gamma
func (inf *inference) run(doc *models.Document, A *mat.Dense) ([]float64, int) {
	K := len(inf.gamma)
	theta := make([]float64, K)
	n := float64(doc.Length())
	if n == 0 {
		for k := range theta {
			theta[k] = 1 / float64(K)
		}
		return theta, 0
	}

	for k := range inf.gamma {
		inf.gamma[k] = inf.cfg.Alpha + n/float64(K)
	}
	floats.ScaleTo(theta, 1/floats.Sum(inf.gamma), inf.gamma)

	iters := 0
	for iters < inf.cfg.MaxIterations {
		iters++
		for k, g := range inf.gamma {
			inf.expPsi[k] = math.Exp(mathext.Digamma(g))
		}
		for k := range inf.next {
			inf.next[k] = inf.cfg.Alpha
		}
		for _, tc := range doc.Tokens {
			floats.MulTo(inf.phi, A.RawRowView(tc.Index), inf.expPsi)
			if s := floats.Sum(inf.phi); s > 0 {
				floats.AddScaled(inf.next, float64(tc.Count)/s, inf.phi)
			} else {
				floats.AddConst(float64(tc.Count)/float64(K), inf.next)
			}
		}
		inf.gamma, inf.next = inf.next, inf.gamma

		floats.ScaleTo(inf.t, 1/floats.Sum(inf.gamma), inf.gamma)
		delta := floats.Distance(inf.t, theta, 1) / float64(K)
		copy(theta, inf.t)
		if delta < inf.cfg.Tolerance {
			break
		}
	}
	return theta, iters
}
