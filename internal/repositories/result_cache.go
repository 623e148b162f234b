package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/emilykay2/tbuie/config"
	"github.com/emilykay2/tbuie/internal/models"
)

// ErrCacheMiss is returned when no snapshot is stored for a key
var ErrCacheMiss = errors.New("cache miss")

// ResultCache stores the startup state so a restart with identical
// parameters skips corpus loading and co-occurrence construction
type ResultCache interface {
	Load(ctx context.Context, key config.CacheKey) (*Snapshot, error)
	Save(ctx context.Context, key config.CacheKey, snap *Snapshot) error
	Name() string
}

// Snapshot is everything the startup pipeline computes. Q travels in gonum's
// binary matrix encoding, the rest as JSON.
type Snapshot struct {
	Key       config.CacheKey   `json:"key"`
	Vocab     []string          `json:"vocab"`
	Documents []models.Document `json:"documents"`
	Train     []int             `json:"train"`
	Test      []int             `json:"test"`
	Labels    []string          `json:"labels"`
	WordFreq  []float64         `json:"word_freq"`
	Anchors   []int             `json:"anchors"`
	CreatedAt time.Time         `json:"created_at"`

	Q *mat.Dense `json:"-"`
}

// Corpus rebuilds the corpus stored in the snapshot
func (s *Snapshot) Corpus() (*models.Corpus, error) {
	vocab, err := models.NewVocabulary(s.Vocab)
	if err != nil {
		return nil, err
	}
	c := &models.Corpus{Name: s.Key.Dataset, Vocabulary: vocab, Documents: s.Documents}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func encodeSnapshot(snap *Snapshot) (meta, q []byte, err error) {
	if snap.Q == nil {
		return nil, nil, errors.New("snapshot has no co-occurrence matrix")
	}
	if meta, err = json.Marshal(snap); err != nil {
		return nil, nil, err
	}
	if q, err = snap.Q.MarshalBinary(); err != nil {
		return nil, nil, err
	}
	return meta, q, nil
}

func decodeSnapshot(key config.CacheKey, meta, q []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(meta, &snap); err != nil {
		return nil, err
	}
	if snap.Key != key {
		return nil, errors.New("stored key " + snap.Key.String() + " does not match " + key.String())
	}
	snap.Q = &mat.Dense{}
	if err := snap.Q.UnmarshalBinary(q); err != nil {
		return nil, err
	}
	rows, _ := snap.Q.Dims()
	if rows != len(snap.Vocab) {
		return nil, errors.New("co-occurrence rows do not match the stored vocabulary")
	}
	return &snap, nil
}

// NopResultCache never stores anything
type NopResultCache struct{}

func (NopResultCache) Load(context.Context, config.CacheKey) (*Snapshot, error) {
	return nil, ErrCacheMiss
}

func (NopResultCache) Save(context.Context, config.CacheKey, *Snapshot) error { return nil }

func (NopResultCache) Name() string { return config.CacheNone }

// CacheError represents errors from a result cache
type CacheError struct {
	Operation string
	Key       string
	Err       error
	Message   string
}

func (e *CacheError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.Operation
	if e.Key != "" {
		prefix += " (key: " + e.Key + ")"
	}
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// NewCacheError creates a new cache error
func NewCacheError(operation string, key config.CacheKey, err error, message string) *CacheError {
	return &CacheError{
		Operation: operation,
		Key:       key.Digest(),
		Err:       err,
		Message:   message,
	}
}
