// Package validate scores predicted labels against gold labels
package validate

import (
	"math"
	"sort"
	"sync"
)

// EmptyHeldOutSetError is returned by Accuracy when nothing was tabulated
type EmptyHeldOutSetError struct{}

func (e *EmptyHeldOutSetError) Error() string {
	return "accuracy is undefined: no held-out documents were scored"
}

// Contingency counts (gold, predicted) label pairs. It is safe for
// concurrent use.
type Contingency struct {
	mu      sync.RWMutex
	counts  map[string]map[string]int
	total   int
	correct int
}

// NewContingency returns an empty table
func NewContingency() *Contingency {
	return &Contingency{counts: make(map[string]map[string]int)}
}

// Add records one prediction
func (c *Contingency) Add(gold, predicted string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row, ok := c.counts[gold]
	if !ok {
		row = make(map[string]int)
		c.counts[gold] = row
	}
	row[predicted]++
	c.total++
	if gold == predicted {
		c.correct++
	}
}

// Count returns how often gold was predicted as predicted
func (c *Contingency) Count(gold, predicted string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[gold][predicted]
}

// Total returns the number of recorded predictions
func (c *Contingency) Total() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// Correct returns the diagonal sum
func (c *Contingency) Correct() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.correct
}

// Accuracy returns correct/total. With an empty table it returns NaN and an
// *EmptyHeldOutSetError.
func (c *Contingency) Accuracy() (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.total == 0 {
		return math.NaN(), &EmptyHeldOutSetError{}
	}
	return float64(c.correct) / float64(c.total), nil
}

// Labels returns every gold or predicted label seen, sorted
func (c *Contingency) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	set := make(map[string]bool)
	for gold, row := range c.counts {
		set[gold] = true
		for pred := range row {
			set[pred] = true
		}
	}
	labels := make([]string, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Table returns a copy of the counts keyed by gold then predicted label
func (c *Contingency) Table() map[string]map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]int, len(c.counts))
	for gold, row := range c.counts {
		cp := make(map[string]int, len(row))
		for pred, n := range row {
			cp[pred] = n
		}
		out[gold] = cp
	}
	return out
}
