package anchor

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Combiner names how a multi-token anchor group collapses into one vector
type Combiner string

const (
	// CombineWeighted averages member rows weighted by word frequency
	CombineWeighted Combiner = "weighted"
	// CombineMean is the plain arithmetic mean of member rows
	CombineMean Combiner = "mean"
	// CombineHarmonic is the tandem harmonic mean of member rows
	CombineHarmonic Combiner = "harmonic"
)

// harmonicEpsilon keeps the harmonic mean finite on zero entries
const harmonicEpsilon = 1e-10

// ParseCombiner validates a combiner name; empty means weighted
func ParseCombiner(name string) (Combiner, error) {
	switch c := Combiner(strings.ToLower(strings.TrimSpace(name))); c {
	case "":
		return CombineWeighted, nil
	case CombineWeighted, CombineMean, CombineHarmonic:
		return c, nil
	default:
		return "", fmt.Errorf("unknown anchor combiner %q", name)
	}
}

// Resolver maps anchor groups onto vectors in Q's row space
type Resolver struct {
	store    *Store
	combiner Combiner
}

// NewResolver creates a resolver over a store
func NewResolver(s *Store, combiner Combiner) *Resolver {
	if combiner == "" {
		combiner = CombineWeighted
	}
	return &Resolver{store: s, combiner: combiner}
}

// Normalize trims tokens, drops duplicates within a group and checks every
// token against the vocabulary. It returns the cleaned groups and their
// word indices. The first failing token is reported.
func (r *Resolver) Normalize(groups [][]string) ([][]string, [][]int, error) {
	if len(groups) == 0 {
		return nil, nil, ErrNoAnchors
	}
	vocab := r.store.Vocab
	cleaned := make([][]string, len(groups))
	indices := make([][]int, len(groups))
	for g, group := range groups {
		seen := make(map[string]bool, len(group))
		for _, raw := range group {
			tok := strings.TrimSpace(raw)
			if tok == "" || seen[tok] {
				continue
			}
			idx, ok := vocab.Index(tok)
			if !ok {
				return nil, nil, &UnknownTokenError{Token: tok, Group: g}
			}
			seen[tok] = true
			cleaned[g] = append(cleaned[g], tok)
			indices[g] = append(indices[g], idx)
		}
		if len(cleaned[g]) == 0 {
			return nil, nil, &EmptyAnchorGroupError{Group: g}
		}
	}
	return cleaned, indices, nil
}

// Resolve returns the K x (V+L) anchor matrix for the groups, along with the
// cleaned groups in request order
func (r *Resolver) Resolve(groups [][]string) (*mat.Dense, [][]string, error) {
	cleaned, indices, err := r.Normalize(groups)
	if err != nil {
		return nil, nil, err
	}
	return r.Vectors(indices), cleaned, nil
}

// Vectors combines already validated index groups
func (r *Resolver) Vectors(indices [][]int) *mat.Dense {
	out := mat.NewDense(len(indices), r.store.Width(), nil)
	for g, members := range indices {
		r.combine(out.RawRowView(g), members)
	}
	return out
}

func (r *Resolver) combine(dst []float64, members []int) {
	q := r.store.Q
	if len(members) == 1 {
		copy(dst, q.RawRowView(members[0]))
		return
	}

	switch r.combiner {
	case CombineHarmonic:
		for _, m := range members {
			for j, v := range q.RawRowView(m) {
				dst[j] += 1 / (v + harmonicEpsilon)
			}
		}
		n := float64(len(members))
		for j, v := range dst {
			dst[j] = n / v
		}
		if s := floats.Sum(dst); s > 0 {
			floats.Scale(1/s, dst)
		}

	case CombineMean:
		r.mean(dst, members)

	default:
		var total float64
		for _, m := range members {
			total += r.store.WordFreq[m]
		}
		if total == 0 {
			r.mean(dst, members)
			return
		}
		for _, m := range members {
			floats.AddScaled(dst, r.store.WordFreq[m]/total, q.RawRowView(m))
		}
	}
}

func (r *Resolver) mean(dst []float64, members []int) {
	for _, m := range members {
		floats.Add(dst, r.store.Q.RawRowView(m))
	}
	floats.Scale(1/float64(len(members)), dst)
}
