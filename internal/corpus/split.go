package corpus

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/emilykay2/tbuie/internal/models"
)

// Split is a train/test partition of corpus positions
type Split struct {
	Train []int `json:"train"`
	Test  []int `json:"test"`
}

// TrainSet returns the training ids as a set
func (s Split) TrainSet() map[int]bool {
	set := make(map[int]bool, len(s.Train))
	for _, id := range s.Train {
		set[id] = true
	}
	return set
}

// TrainTestSplit draws disjoint train and test samples. The draw is a seeded
// Fisher-Yates shuffle, so equal seeds give equal splits. Ids inside each part
// are returned in corpus order.
func TrainTestSplit(c *models.Corpus, numTrain, numTest int, seed int64) (Split, error) {
	if numTrain < 0 || numTest < 0 {
		return Split{}, fmt.Errorf("split sizes must not be negative (train=%d, test=%d)", numTrain, numTest)
	}
	if numTrain+numTest > c.Len() {
		return Split{}, fmt.Errorf("requested %d train + %d test documents but corpus %q has %d",
			numTrain, numTest, c.Name, c.Len())
	}

	order := make([]int, c.Len())
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	split := Split{
		Train: append([]int(nil), order[:numTrain]...),
		Test:  append([]int(nil), order[numTrain:numTrain+numTest]...),
	}
	sort.Ints(split.Train)
	sort.Ints(split.Test)
	return split, nil
}
