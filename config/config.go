package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Cache backends
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Anchor combination policies for multi-token anchor groups
const (
	CombinerWeighted = "weighted"
	CombinerMean     = "mean"
	CombinerHarmonic = "harmonic"
)

// Config holds everything the server needs at startup
type Config struct {
	Dataset string
	DataDir string
	Port    int

	// Split and model hyperparameters
	TrainSize   int
	TestSize    int
	Topics      int
	LabelWeight float64
	Smoothing   float64
	Seed        int64

	// Vocabulary construction
	MinDocFreq int
	Stem       bool

	// Anchors
	AnchorCombiner  string
	GSDocThreshold  int
	GSProjectDim    int
	Epsilon         float64
	RecoverMaxIter  int
	TopN            int
	AssignMaxIter   int
	AssignTolerance float64
	AssignAlpha     float64

	Workers int

	// Persistence
	Cache      string
	CacheDir   string
	CacheTTL   time.Duration
	FinalDir   string
	Redis      RedisConfig
	EnvFile    string
	LoadedFrom string
}

// RedisConfig mirrors db.RedisConfig without importing it, so config stays a leaf package
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		Dataset:         "newsgroups",
		DataDir:         "data",
		Port:            5000,
		TrainSize:       10000,
		TestSize:        500,
		Topics:          50,
		LabelWeight:     1,
		Smoothing:       0,
		Seed:            0,
		MinDocFreq:      2,
		AnchorCombiner:  CombinerWeighted,
		GSDocThreshold:  500,
		GSProjectDim:    1000,
		Epsilon:         1e-5,
		RecoverMaxIter:  1000,
		TopN:            10,
		AssignMaxIter:   50,
		AssignTolerance: 1e-4,
		AssignAlpha:     0.1,
		Workers:         runtime.GOMAXPROCS(0),
		Cache:           CacheFile,
		CacheDir:        "cache",
		FinalDir:        "FinalAnchors",
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
		},
		EnvFile: ".env",
	}
}

// Load builds a Config from defaults, an optional .env file and environment variables
func Load() (Config, error) {
	cfg := DefaultConfig()

	envFile := cfg.EnvFile
	if f := os.Getenv("TBUIE_ENV_FILE"); f != "" {
		envFile = f
	}
	if _, err := os.Stat(envFile); err == nil {
		// godotenv.Load does not override variables already set in the environment
		if err := godotenv.Load(envFile); err != nil {
			return cfg, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		cfg.LoadedFrom = envFile
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}

	str("TBUIE_DATASET", &c.Dataset)
	str("TBUIE_DATA_DIR", &c.DataDir)
	integer("PORT", &c.Port)
	integer("TBUIE_TRAIN_SIZE", &c.TrainSize)
	integer("TBUIE_TEST_SIZE", &c.TestSize)
	integer("TBUIE_TOPICS", &c.Topics)
	float("TBUIE_LABEL_WEIGHT", &c.LabelWeight)
	float("TBUIE_SMOOTHING", &c.Smoothing)
	integer("TBUIE_MIN_DOC_FREQ", &c.MinDocFreq)
	str("TBUIE_ANCHOR_COMBINER", &c.AnchorCombiner)
	integer("TBUIE_GS_DOC_THRESHOLD", &c.GSDocThreshold)
	integer("TBUIE_GS_PROJECT_DIM", &c.GSProjectDim)
	float("TBUIE_EPSILON", &c.Epsilon)
	integer("TBUIE_RECOVER_MAX_ITER", &c.RecoverMaxIter)
	integer("TBUIE_TOP_N", &c.TopN)
	integer("TBUIE_ASSIGN_MAX_ITER", &c.AssignMaxIter)
	float("TBUIE_ASSIGN_TOLERANCE", &c.AssignTolerance)
	float("TBUIE_ASSIGN_ALPHA", &c.AssignAlpha)
	integer("TBUIE_WORKERS", &c.Workers)
	str("TBUIE_CACHE", &c.Cache)
	str("TBUIE_CACHE_DIR", &c.CacheDir)
	str("TBUIE_FINAL_DIR", &c.FinalDir)

	if v := os.Getenv("TBUIE_SEED"); v != "" {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TBUIE_SEED: %w", err))
		} else {
			c.Seed = seed
		}
	}
	if v := os.Getenv("TBUIE_STEM"); v != "" {
		stem, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("TBUIE_STEM: %w", err))
		} else {
			c.Stem = stem
		}
	}
	if v := os.Getenv("TBUIE_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("TBUIE_CACHE_TTL: %w", err))
		} else {
			c.CacheTTL = ttl
		}
	}

	str("REDIS_HOST", &c.Redis.Host)
	integer("REDIS_PORT", &c.Redis.Port)
	str("REDIS_PASSWORD", &c.Redis.Password)
	integer("REDIS_DB", &c.Redis.DB)
	integer("REDIS_POOL_SIZE", &c.Redis.PoolSize)

	return errors.Join(errs...)
}

// Validate checks the dataset against the registry and every numeric range
func (c Config) Validate() error {
	var errs []error
	if _, err := LookupDataset(c.Dataset); err != nil {
		errs = append(errs, err)
	}
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
		}
	}
	check(c.Port > 0 && c.Port < 65536, "port %d out of range", c.Port)
	check(c.TrainSize > 0, "train size must be positive, got %d", c.TrainSize)
	check(c.TestSize >= 0, "test size must not be negative, got %d", c.TestSize)
	check(c.Topics > 1, "topic count must be at least 2, got %d", c.Topics)
	check(c.LabelWeight >= 0, "label weight must not be negative, got %g", c.LabelWeight)
	check(c.Smoothing >= 0, "smoothing must not be negative, got %g", c.Smoothing)
	check(c.MinDocFreq >= 1, "min doc frequency must be at least 1, got %d", c.MinDocFreq)
	check(c.Epsilon > 0, "epsilon must be positive, got %g", c.Epsilon)
	check(c.RecoverMaxIter > 0, "recover max iterations must be positive, got %d", c.RecoverMaxIter)
	check(c.TopN > 0, "top-N must be positive, got %d", c.TopN)
	check(c.AssignMaxIter > 0, "assign max iterations must be positive, got %d", c.AssignMaxIter)
	check(c.AssignTolerance > 0, "assign tolerance must be positive, got %g", c.AssignTolerance)
	check(c.AssignAlpha > 0, "assign alpha must be positive, got %g", c.AssignAlpha)
	check(c.Workers > 0, "worker count must be positive, got %d", c.Workers)
	check(c.GSProjectDim >= 0, "projection dimension must not be negative, got %d", c.GSProjectDim)

	switch c.AnchorCombiner {
	case CombinerWeighted, CombinerMean, CombinerHarmonic:
	default:
		check(false, "unknown anchor combiner %q", c.AnchorCombiner)
	}
	switch c.Cache {
	case CacheNone, CacheFile, CacheRedis:
	default:
		check(false, "unknown cache backend %q", c.Cache)
	}
	return errors.Join(errs...)
}

// DatasetInfo returns the registry entry for the configured dataset
func (c Config) DatasetInfo() (Dataset, error) {
	return LookupDataset(c.Dataset)
}

// CorpusPath is the on-disk location of the configured dataset
func (c Config) CorpusPath() (string, error) {
	d, err := c.DatasetInfo()
	if err != nil {
		return "", err
	}
	return filepath.Join(c.DataDir, d.File), nil
}

// CacheKey returns the structured key covering every parameter that shapes the startup state
func (c Config) CacheKey() CacheKey {
	return CacheKey{
		Dataset:        c.Dataset,
		TrainSize:      c.TrainSize,
		TestSize:       c.TestSize,
		Topics:         c.Topics,
		LabelWeight:    c.LabelWeight,
		Smoothing:      c.Smoothing,
		Seed:           c.Seed,
		MinDocFreq:     c.MinDocFreq,
		Stem:           c.Stem,
		GSDocThreshold: c.GSDocThreshold,
		GSProjectDim:   c.GSProjectDim,
	}
}
