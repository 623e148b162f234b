package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/emilykay2/tbuie/internal/anchor"
	"github.com/emilykay2/tbuie/internal/repositories"
	"github.com/emilykay2/tbuie/internal/topic"
	"github.com/emilykay2/tbuie/internal/validate"
	"github.com/emilykay2/tbuie/internal/workers"
)

// ErrInvalidPayload is returned when a finalized-anchor body is not JSON
var ErrInvalidPayload = errors.New("request body must be a JSON document")

// TopicService runs the interactive recover-and-classify cycle against a workspace
type TopicService struct {
	ws       *Workspace
	anchors  repositories.AnchorRepository
	pool     *workers.Pool
	resolver *anchor.Resolver
	logger   *log.Logger

	// one analyst request is computed to completion before the next starts
	mu sync.Mutex
}

// NewTopicService creates a new topic service
func NewTopicService(ws *Workspace, anchors repositories.AnchorRepository, pool *workers.Pool, logger *log.Logger) (*TopicService, error) {
	combiner, err := anchor.ParseCombiner(ws.Config.AnchorCombiner)
	if err != nil {
		return nil, err
	}
	return &TopicService{
		ws:       ws,
		anchors:  anchors,
		pool:     pool,
		resolver: anchor.NewResolver(ws.Store, combiner),
		logger:   logger,
	}, nil
}

// StageTiming is the wall-clock time of one pipeline stage
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// TopicsResult is the outcome of one Topics call
type TopicsResult struct {
	// Anchors are the groups as the analyst submitted them
	Anchors [][]string
	Topics  [][]string
	// Accuracy is nil when no held-out document could be scored
	Accuracy    *float64
	Warnings    []*anchor.RecoveryNonConvergenceError
	Contingency *validate.Contingency
	Timings     []StageTiming
}

// Vocab returns the vocabulary in index order
func (s *TopicService) Vocab() []string {
	return s.ws.Corpus.Vocabulary.Words()
}

// InitialAnchors returns the startup anchors
func (s *TopicService) InitialAnchors() [][]string {
	return s.ws.InitialAnchors
}

// Topics recovers topics for the anchor groups and scores the resulting
// classifier on the held-out documents. A nil groups slice uses the initial
// anchors. Invalid anchors fail before any computation.
func (s *TopicService) Topics(ctx context.Context, groups [][]string) (*TopicsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.ws.Config
	result := &TopicsResult{}
	stage := func(name string, start time.Time) {
		d := time.Since(start)
		result.Timings = append(result.Timings, StageTiming{Stage: name, Duration: d})
		s.logger.Printf("[timing] %s: %v", name, d.Round(time.Microsecond))
	}

	start := time.Now()
	var vectors *mat.Dense
	if groups == nil {
		vectors = s.resolver.Vectors(s.ws.initialIndices)
		result.Anchors = s.ws.InitialAnchors
	} else {
		var err error
		vectors, _, err = s.resolver.Resolve(groups)
		if err != nil {
			return nil, err
		}
		// echoed as submitted, before trimming and de-duplication
		result.Anchors = make([][]string, len(groups))
		for i, g := range groups {
			result.Anchors[i] = append([]string(nil), g...)
		}
	}
	stage("resolve", start)

	start = time.Now()
	rec, err := anchor.Recover(ctx, s.ws.Store, vectors, anchor.RecoverConfig{
		Epsilon:       cfg.Epsilon,
		MaxIterations: cfg.RecoverMaxIter,
	}, s.pool)
	if err != nil {
		return nil, err
	}
	result.Warnings = rec.Warnings
	if len(rec.Warnings) > 0 {
		first := rec.Warnings[0]
		s.logger.Printf("⚠️  %d of %d rows did not converge (first: %v)", len(rec.Warnings), s.ws.Store.VocabSize(), first)
	}
	stage("recover", start)

	start = time.Now()
	result.Topics = topic.Summarize(rec.A, s.ws.Corpus.Vocabulary, cfg.TopN)
	stage("summarize", start)

	start = time.Now()
	classifier, err := topic.BuildClassifier(s.ws.Corpus, s.ws.Dataset.LabelAttribute, s.ws.Split.Train, rec.C, s.ws.Store.Labels)
	if errors.Is(err, topic.ErrNoTrainingLabels) {
		s.logger.Printf("⚠️  No labeled training documents for %q, accuracy is undefined", s.ws.Dataset.LabelAttribute)
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	stage("classifier", start)

	start = time.Now()
	assignments, err := topic.Assign(ctx, s.ws.Corpus, s.ws.Split.Test, rec.A, topic.AssignConfig{
		Alpha:         cfg.AssignAlpha,
		MaxIterations: cfg.AssignMaxIter,
		Tolerance:     cfg.AssignTolerance,
	}, s.pool)
	if err != nil {
		return nil, err
	}
	stage("assign", start)

	start = time.Now()
	result.Contingency = validate.NewContingency()
	topic.Evaluate(s.ws.Corpus, s.ws.Dataset.LabelAttribute, assignments, classifier, result.Contingency)
	acc, err := result.Contingency.Accuracy()
	var empty *validate.EmptyHeldOutSetError
	switch {
	case errors.As(err, &empty):
		s.logger.Printf("⚠️  %v", err)
	case err != nil:
		return nil, err
	default:
		result.Accuracy = &acc
		s.logger.Printf("accuracy: %.4f (%d/%d)", acc, result.Contingency.Correct(), result.Contingency.Total())
	}
	stage("classify", start)

	return result, nil
}

// Finish stores a finalized anchor configuration and returns where it went
func (s *TopicService) Finish(ctx context.Context, payload []byte) (string, error) {
	if !json.Valid(payload) {
		return "", ErrInvalidPayload
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return "", ErrInvalidPayload
	}

	path, err := s.anchors.Save(ctx, s.ws.Dataset.Name, buf.Bytes())
	if err != nil {
		return "", err
	}
	s.logger.Printf("✅ Saved finalized anchors to %s", path)
	return path, nil
}
