// Package topic turns recovered topics into something an analyst can read and
// score: top-word summaries, a label classifier and per-document topic mixtures.
package topic

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/emilykay2/tbuie/internal/models"
)

type wordWeight struct {
	index  int
	weight float64
}

// Summarize returns the n most probable words of every topic column of A.
// Only the first V rows are ranked. Ties go to the lower vocabulary index.
func Summarize(A mat.Matrix, vocab *models.Vocabulary, n int) [][]string {
	rows, K := A.Dims()
	V := vocab.Size()
	if rows < V {
		V = rows
	}
	if n > V {
		n = V
	}
	if n < 0 {
		n = 0
	}

	summary := make([][]string, K)
	ws := make([]wordWeight, V)
	for k := 0; k < K; k++ {
		for w := 0; w < V; w++ {
			ws[w] = wordWeight{index: w, weight: A.At(w, k)}
		}
		sort.Slice(ws, func(i, j int) bool {
			if ws[i].weight != ws[j].weight {
				return ws[i].weight > ws[j].weight
			}
			return ws[i].index < ws[j].index
		})

		top := make([]string, n)
		for i := 0; i < n; i++ {
			top[i] = vocab.Word(ws[i].index)
		}
		summary[k] = top
	}
	return summary
}
