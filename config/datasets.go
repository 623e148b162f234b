package config

import (
	"fmt"
	"sort"
)

// Dataset describes one of the supported corpora and the metadata attribute
// holding its gold label.
type Dataset struct {
	Name           string `json:"name"`
	LabelAttribute string `json:"label_attribute"`
	// File is the corpus file name inside the data directory.
	File string `json:"file"`
}

var datasets = map[string]Dataset{}

// Register adds a dataset to the enumerated set. It panics on duplicates so a
// misconfigured registry fails at init time.
func Register(d Dataset) {
	if _, exists := datasets[d.Name]; exists {
		panic(fmt.Sprintf("config: dataset %q registered twice", d.Name))
	}
	if d.File == "" {
		d.File = d.Name + ".jsonl"
	}
	datasets[d.Name] = d
}

func init() {
	Register(Dataset{Name: "newsgroups", LabelAttribute: "coarse_newsgroup"})
	Register(Dataset{Name: "yelp", LabelAttribute: "binary_rating"})
	Register(Dataset{Name: "tripadvisor", LabelAttribute: "label"})
}

// LookupDataset returns the registered dataset with the given name.
func LookupDataset(name string) (Dataset, error) {
	d, ok := datasets[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownDataset, name, DatasetNames())
	}
	return d, nil
}

// DatasetNames returns the registered dataset names in sorted order.
func DatasetNames() []string {
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
