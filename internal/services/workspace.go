package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/emilykay2/tbuie/config"
	"github.com/emilykay2/tbuie/internal/anchor"
	"github.com/emilykay2/tbuie/internal/corpus"
	"github.com/emilykay2/tbuie/internal/models"
	"github.com/emilykay2/tbuie/internal/repositories"
	"github.com/emilykay2/tbuie/internal/workers"
)

// Workspace is the process-wide state built once at startup and shared,
// read-only, by every request
type Workspace struct {
	Config  config.Config
	Dataset config.Dataset
	Corpus  *models.Corpus
	Split   corpus.Split
	Store   *anchor.Store

	// InitialAnchors are the Gram-Schmidt anchors as single-token groups
	InitialAnchors [][]string
	initialIndices [][]int

	FromCache bool
	BuiltAt   time.Time
}

// NewWorkspace assembles a workspace from already computed parts
func NewWorkspace(cfg config.Config, c *models.Corpus, split corpus.Split, store *anchor.Store, anchors []int) (*Workspace, error) {
	ds, err := cfg.DatasetInfo()
	if err != nil {
		return nil, err
	}
	if store.VocabSize() != c.Vocabulary.Size() {
		return nil, fmt.Errorf("%w: store covers %d words, corpus %d", anchor.ErrDimensionMismatch, store.VocabSize(), c.Vocabulary.Size())
	}
	for _, ids := range [][]int{split.Train, split.Test} {
		for _, id := range ids {
			if id < 0 || id >= c.Len() {
				return nil, fmt.Errorf("split references document %d of %d", id, c.Len())
			}
		}
	}

	ws := &Workspace{
		Config:         cfg,
		Dataset:        ds,
		Corpus:         c,
		Split:          split,
		Store:          store,
		InitialAnchors: make([][]string, len(anchors)),
		initialIndices: make([][]int, len(anchors)),
		BuiltAt:        time.Now(),
	}
	for i, idx := range anchors {
		if idx < 0 || idx >= c.Vocabulary.Size() {
			return nil, fmt.Errorf("initial anchor %d outside vocabulary", idx)
		}
		ws.InitialAnchors[i] = []string{c.Vocabulary.Word(idx)}
		ws.initialIndices[i] = []int{idx}
	}
	return ws, nil
}

// BuildWorkspace loads the startup state from the cache or computes it:
// corpus, train/test split, labeled co-occurrence and Gram-Schmidt anchors.
// Cache failures are logged and fall back to computing.
func BuildWorkspace(ctx context.Context, cfg config.Config, cache repositories.ResultCache, pool *workers.Pool, logger *log.Logger) (*Workspace, error) {
	p := message.NewPrinter(language.English)
	key := cfg.CacheKey()

	snap, err := cache.Load(ctx, key)
	switch {
	case err == nil:
		ws, err := workspaceFromSnapshot(cfg, snap)
		if err == nil {
			logger.Print(p.Sprintf("✅ Loaded %s from %s cache (%d documents, %d words, %d labels)",
				key, cache.Name(), ws.Corpus.Len(), ws.Corpus.Vocabulary.Size(), len(ws.Store.Labels)))
			return ws, nil
		}
		logger.Printf("⚠️  Cached state for %s is unusable, recomputing: %v", key, err)
	case errors.Is(err, repositories.ErrCacheMiss):
		logger.Printf("Cache miss for %s (%s), computing startup state", key, cache.Name())
	default:
		logger.Printf("⚠️  Cache lookup failed, computing startup state: %v", err)
	}

	ws, snap, err := computeWorkspace(ctx, cfg, pool, logger)
	if err != nil {
		return nil, err
	}

	if err := cache.Save(ctx, key, snap); err != nil {
		logger.Printf("⚠️  Failed to cache startup state: %v", err)
	} else {
		logger.Printf("✅ Cached startup state as %s", key.Digest())
	}
	return ws, nil
}

func computeWorkspace(ctx context.Context, cfg config.Config, pool *workers.Pool, logger *log.Logger) (*Workspace, *repositories.Snapshot, error) {
	p := message.NewPrinter(language.English)
	ds, err := cfg.DatasetInfo()
	if err != nil {
		return nil, nil, err
	}
	path, err := cfg.CorpusPath()
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	c, err := corpus.LoadFile(ctx, ds.Name, path, corpus.Options{MinDocFreq: cfg.MinDocFreq, Stem: cfg.Stem}, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load corpus %s: %w", ds.Name, err)
	}
	logger.Print(p.Sprintf("✅ Loaded corpus %s: %d documents, %d words in %v",
		ds.Name, c.Len(), c.Vocabulary.Size(), time.Since(start).Round(time.Millisecond)))

	split, err := corpus.TrainTestSplit(c, cfg.TrainSize, cfg.TestSize, cfg.Seed)
	if err != nil {
		return nil, nil, err
	}

	start = time.Now()
	store, err := anchor.BuildLabeledCooccurrence(ctx, c, split.Train, anchor.CooccurrenceConfig{
		LabelAttribute: ds.LabelAttribute,
		LabelWeight:    cfg.LabelWeight,
		Smoothing:      cfg.Smoothing,
	}, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build co-occurrence: %w", err)
	}
	logger.Print(p.Sprintf("✅ Built co-occurrence %d x %d (%d labels) in %v",
		store.VocabSize(), store.Width(), len(store.Labels), time.Since(start).Round(time.Millisecond)))

	start = time.Now()
	anchors, err := anchor.GramSchmidtAnchors(store, c.DocumentFrequency(split.Train), cfg.Topics, anchor.GramSchmidtConfig{
		DocThreshold: cfg.GSDocThreshold,
		ProjectDim:   cfg.GSProjectDim,
		Seed:         cfg.Seed,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select initial anchors: %w", err)
	}
	logger.Printf("✅ Selected %d initial anchors in %v", len(anchors), time.Since(start).Round(time.Millisecond))

	ws, err := NewWorkspace(cfg, c, split, store, anchors)
	if err != nil {
		return nil, nil, err
	}

	snap := &repositories.Snapshot{
		Key:       cfg.CacheKey(),
		Vocab:     c.Vocabulary.Words(),
		Documents: c.Documents,
		Train:     split.Train,
		Test:      split.Test,
		Labels:    store.Labels,
		WordFreq:  store.WordFreq,
		Anchors:   anchors,
		CreatedAt: time.Now().UTC(),
		Q:         store.Q,
	}
	return ws, snap, nil
}

func workspaceFromSnapshot(cfg config.Config, snap *repositories.Snapshot) (*Workspace, error) {
	c, err := snap.Corpus()
	if err != nil {
		return nil, err
	}
	store, err := anchor.NewStore(c.Vocabulary, snap.Labels, snap.Q, snap.WordFreq)
	if err != nil {
		return nil, err
	}
	ws, err := NewWorkspace(cfg, c, corpus.Split{Train: snap.Train, Test: snap.Test}, store, snap.Anchors)
	if err != nil {
		return nil, err
	}
	ws.FromCache = true
	return ws, nil
}
