package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CacheKey identifies a cached startup state. Two processes started with equal
// keys compute identical corpora, splits, co-occurrence matrices and anchors.
type CacheKey struct {
	Dataset        string  `json:"dataset"`
	TrainSize      int     `json:"train_size"`
	TestSize       int     `json:"test_size"`
	Topics         int     `json:"topics"`
	LabelWeight    float64 `json:"label_weight"`
	Smoothing      float64 `json:"smoothing"`
	Seed           int64   `json:"seed"`
	MinDocFreq     int     `json:"min_doc_freq"`
	Stem           bool    `json:"stem"`
	GSDocThreshold int     `json:"gs_doc_threshold"`
	GSProjectDim   int     `json:"gs_project_dim"`
}

// Digest is a stable content address for the key
func (k CacheKey) Digest() string {
	// struct field order is fixed, so the JSON encoding is canonical
	raw, err := json.Marshal(k)
	if err != nil {
		panic(fmt.Sprintf("config: cannot encode cache key: %v", err))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:16])
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s_train%d_test%d_k%d_lw%g_smoothing%g_seed%d_df%d_stem%t_gs%d_proj%d",
		k.Dataset, k.TrainSize, k.TestSize, k.Topics, k.LabelWeight, k.Smoothing,
		k.Seed, k.MinDocFreq, k.Stem, k.GSDocThreshold, k.GSProjectDim)
}
