package anchor

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/emilykay2/tbuie/internal/workers"
)

// line search constants for the exponentiated gradient solver
const (
	armijoC1 = 1e-4
	curveC2  = 0.75
)

// RecoverConfig bounds the per-row solves
type RecoverConfig struct {
	// Epsilon is the duality gap at which a row counts as converged
	Epsilon float64
	// MaxIterations caps the solver steps per row, including rejected steps
	MaxIterations int
}

// DefaultRecoverConfig returns the interactive defaults
func DefaultRecoverConfig() RecoverConfig {
	return RecoverConfig{Epsilon: 1e-5, MaxIterations: 1000}
}

// Recovery is the outcome of one topic recovery
type Recovery struct {
	// C is V x K; row w is word w's convex combination of the anchors
	C *mat.Dense
	// A is V x K; column k is topic k's distribution over the vocabulary
	A *mat.Dense
	// Warnings lists rows that stopped at the iteration cap
	Warnings []*RecoveryNonConvergenceError
}

// Recover expresses every row of Q as a convex combination of the anchor rows,
// minimising squared reconstruction error, then turns the coefficients into
// topic-word distributions by weighting with word frequency. Rows are solved
// independently across the pool.
func Recover(ctx context.Context, s *Store, anchors *mat.Dense, cfg RecoverConfig, pool *workers.Pool) (*Recovery, error) {
	K, width := anchors.Dims()
	if K == 0 {
		return nil, ErrNoAnchors
	}
	if width != s.Width() {
		return nil, fmt.Errorf("%w: anchors have width %d, Q has %d", ErrDimensionMismatch, width, s.Width())
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultRecoverConfig().MaxIterations
	}

	X := mat.DenseCopyOf(anchors)
	for k := 0; k < K; k++ {
		row := X.RawRowView(k)
		if sum := floats.Sum(row); sum > 0 {
			floats.Scale(1/sum, row)
		}
	}
	var XX mat.Dense
	XX.Mul(X, X.T())

	V := s.VocabSize()
	C := mat.NewDense(V, K, nil)
	warnings := make([]*RecoveryNonConvergenceError, V)

	err := pool.MapRanges(ctx, V, func(ctx context.Context, lo, hi int) error {
		solver := newEGSolver(X, &XX, cfg)
		for w := lo; w < hi; w++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst := C.RawRowView(w)
			y := s.Q.RawRowView(w)
			if floats.Sum(y) == 0 {
				floats.AddConst(1/float64(K), dst)
				continue
			}
			iters, gap, converged := solver.solve(dst, y)
			if hasNaN(dst) {
				for k := range dst {
					dst[k] = 1 / float64(K)
				}
				continue
			}
			if !converged {
				warnings[w] = &RecoveryNonConvergenceError{Row: w, Iterations: iters, Gap: gap}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Recovery{C: C, A: topicMatrix(C, s.WordFreq)}
	for _, w := range warnings {
		if w != nil {
			result.Warnings = append(result.Warnings, w)
		}
	}
	return result, nil
}

// topicMatrix computes A[w,k] = C[w,k]*p(w) with every column normalised.
// A column with no mass becomes uniform.
func topicMatrix(C *mat.Dense, wordFreq []float64) *mat.Dense {
	V, K := C.Dims()
	A := mat.NewDense(V, K, nil)
	colSums := make([]float64, K)
	for w := 0; w < V; w++ {
		dst := A.RawRowView(w)
		floats.ScaleTo(dst, wordFreq[w], C.RawRowView(w))
		floats.Add(colSums, dst)
	}
	for k := 0; k < K; k++ {
		if colSums[k] > 0 {
			for w := 0; w < V; w++ {
				A.Set(w, k, A.At(w, k)/colSums[k])
			}
			continue
		}
		for w := 0; w < V; w++ {
			A.Set(w, k, 1/float64(V))
		}
	}
	return A
}

// egSolver minimises ||y - alpha X||^2 over the simplex with exponentiated
// gradient steps. One solver is reused for every row of a worker's range.
type egSolver struct {
	X   *mat.Dense
	XX  *mat.Dense
	cfg RecoverConfig

	// initial line search step
	step float64

	xy, grad, oldGrad, alpha, oldAlpha, logAlpha, oldLogAlpha, axx, lam, diff []float64
}

func newEGSolver(X, XX *mat.Dense, cfg RecoverConfig) *egSolver {
	K, _ := X.Dims()
	buf := func() []float64 { return make([]float64, K) }
	return &egSolver{
		X: X, XX: XX, cfg: cfg, step: 1,
		xy: buf(), grad: buf(), oldGrad: buf(), alpha: buf(), oldAlpha: buf(),
		logAlpha: buf(), oldLogAlpha: buf(), axx: buf(), lam: buf(), diff: buf(),
	}
}

// objective returns alpha XX alpha - 2 alpha.xy + yy and leaves alpha XX in axx
func (e *egSolver) objective(yy float64) float64 {
	xxMulVec(e.axx, e.XX, e.alpha)
	return floats.Dot(e.axx, e.alpha) - 2*floats.Dot(e.alpha, e.xy) + yy
}

// solve writes the coefficients for y into dst and reports iterations used,
// the final duality gap and whether the gap fell below epsilon
func (e *egSolver) solve(dst, y []float64) (int, float64, bool) {
	K := len(e.alpha)
	if K == 1 {
		dst[0] = 1
		return 0, 0, true
	}
	mulVec(e.xy, e.X, y)
	yy := floats.Dot(y, y)

	for k := range e.alpha {
		e.alpha[k] = 1 / float64(K)
		e.logAlpha[k] = math.Log(e.alpha[k])
	}
	newObj := e.objective(yy)
	for k := range e.grad {
		e.grad[k] = 2 * (e.axx[k] - e.xy[k])
	}

	step := e.step
	decreased := false
	stalled := false
	gap := math.Inf(1)
	iters := 0
	for gap >= e.cfg.Epsilon {
		if newObj == 0 {
			gap = 0
			break
		}
		// the line search underflowed; keep the iterate but not the claim
		if step == 0 {
			gap = e.gap()
			stalled = true
			break
		}
		if iters >= e.cfg.MaxIterations {
			break
		}
		iters++

		oldObj := newObj
		copy(e.oldAlpha, e.alpha)
		copy(e.oldLogAlpha, e.logAlpha)

		floats.AddScaled(e.logAlpha, -step, e.grad)
		floats.AddConst(-floats.LogSumExp(e.logAlpha), e.logAlpha)
		for k, v := range e.logAlpha {
			e.alpha[k] = math.Exp(v)
		}
		newObj = e.objective(yy)
		floats.SubTo(e.diff, e.alpha, e.oldAlpha)

		// sufficient decrease, otherwise halve the step
		if newObj >= oldObj+armijoC1*step*floats.Dot(e.grad, e.diff) {
			step /= 2
			copy(e.alpha, e.oldAlpha)
			copy(e.logAlpha, e.oldLogAlpha)
			newObj = oldObj
			decreased = true
			continue
		}

		copy(e.oldGrad, e.grad)
		for k := range e.grad {
			e.grad[k] = 2 * (e.axx[k] - e.xy[k])
		}

		// curvature too flat, retry with a doubled step
		if !decreased && floats.Dot(e.grad, e.diff) < curveC2*floats.Dot(e.oldGrad, e.diff) {
			step *= 2
			copy(e.alpha, e.oldAlpha)
			copy(e.logAlpha, e.oldLogAlpha)
			copy(e.grad, e.oldGrad)
			newObj = oldObj
			continue
		}

		decreased = false
		gap = e.gap()
	}

	copy(dst, e.alpha)
	return iters, gap, !stalled && gap < e.cfg.Epsilon
}

// gap is the duality gap of the current iterate; grad must match alpha
func (e *egSolver) gap() float64 {
	copy(e.lam, e.grad)
	floats.AddConst(-floats.Min(e.lam), e.lam)
	return floats.Dot(e.alpha, e.lam)
}

// mulVec sets dst = X y for a K x W matrix X
func mulVec(dst []float64, X *mat.Dense, y []float64) {
	for k := range dst {
		dst[k] = floats.Dot(X.RawRowView(k), y)
	}
}

// xxMulVec sets dst = alpha XX; XX is symmetric
func xxMulVec(dst []float64, XX *mat.Dense, alpha []float64) {
	for k := range dst {
		dst[k] = floats.Dot(XX.RawRowView(k), alpha)
	}
}

func hasNaN(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
