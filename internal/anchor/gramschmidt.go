package anchor

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// GramSchmidtConfig parameterises initial anchor selection
type GramSchmidtConfig struct {
	// DocThreshold is the minimum training document frequency of a candidate
	DocThreshold int
	// ProjectDim reduces rows to this many random directions first; zero disables it
	ProjectDim int
	Seed       int64
}

// GramSchmidtAnchors greedily picks k mutually independent rows of Q.
// Candidates are words whose document frequency reaches DocThreshold; when
// fewer than k qualify, every word with training mass is a candidate.
// The result is deterministic for fixed Q, k, document frequencies and seed.
func GramSchmidtAnchors(s *Store, docFreq []int, k int, cfg GramSchmidtConfig) ([]int, error) {
	V := s.VocabSize()
	if k < 1 {
		return nil, ErrNoAnchors
	}
	if len(docFreq) != V {
		return nil, fmt.Errorf("%w: %d document frequencies for %d words", ErrDimensionMismatch, len(docFreq), V)
	}

	candidates := candidateRows(s, docFreq, cfg.DocThreshold)
	if len(candidates) < k {
		candidates = candidateRows(s, docFreq, 0)
	}
	if len(candidates) < k {
		return nil, fmt.Errorf("cannot choose %d anchors from %d candidate words", k, len(candidates))
	}

	points := projectRows(s.Q, cfg.ProjectDim, cfg.Seed)
	_, dim := points.Dims()

	anchors := make([]int, 0, k)
	chosen := make(map[int]bool, k)
	pick := func(score func(i int) float64) int {
		best, bestDist := -1, 0.0
		for _, i := range candidates {
			if chosen[i] {
				continue
			}
			d := score(i)
			if best < 0 || d > bestDist {
				best, bestDist = i, d
			}
		}
		chosen[best] = true
		anchors = append(anchors, best)
		return best
	}
	sqNorm := func(i int) float64 {
		r := points.RawRowView(i)
		return floats.Dot(r, r)
	}

	// farthest point from the origin
	first := pick(sqNorm)
	if k == 1 {
		return anchors, nil
	}

	// translate so the first anchor is the origin
	origin := mat.Row(nil, first, points)
	for _, i := range candidates {
		floats.Sub(points.RawRowView(i), origin)
	}

	basis := make([]float64, dim)
	next := pick(sqNorm)
	setBasis(basis, points.RawRowView(next))

	for len(anchors) < k {
		for _, i := range candidates {
			r := points.RawRowView(i)
			floats.AddScaled(r, -floats.Dot(r, basis), basis)
		}
		next = pick(sqNorm)
		setBasis(basis, points.RawRowView(next))
	}
	return anchors, nil
}

func candidateRows(s *Store, docFreq []int, threshold int) []int {
	var out []int
	for i, df := range docFreq {
		if df > 0 && df >= threshold && s.WordFreq[i] > 0 {
			out = append(out, i)
		}
	}
	return out
}

// setBasis stores the unit vector along v, or zero when v vanishes
func setBasis(basis, v []float64) {
	n := floats.Norm(v, 2)
	if n == 0 {
		for i := range basis {
			basis[i] = 0
		}
		return
	}
	floats.ScaleTo(basis, 1/n, v)
}

// projectRows returns a working copy of Q's rows, multiplied by a sparse
// {-1, 0, 0, 0, 0, +1} random matrix when dim is below Q's width
func projectRows(q *mat.Dense, dim int, seed int64) *mat.Dense {
	r, c := q.Dims()
	if dim <= 0 || dim >= c {
		return mat.DenseCopyOf(q)
	}

	rng := rand.New(rand.NewSource(seed))
	scale := math.Sqrt(3 / float64(dim))
	proj := mat.NewDense(c, dim, nil)
	for i := 0; i < c; i++ {
		for j := 0; j < dim; j++ {
			switch rng.Intn(6) {
			case 0:
				proj.Set(i, j, -scale)
			case 1:
				proj.Set(i, j, scale)
			}
		}
	}

	out := mat.NewDense(r, dim, nil)
	out.Mul(q, proj)
	return out
}
