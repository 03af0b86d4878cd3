// Package options implements the engine's tunables (spec §6, component
// C11), loaded the way the teacher's internal/config package does:
// Default() baseline, optional YAML file overlay, environment variable
// overrides, then Validate().
package options

import (
	"fmt"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	arxerrors "github.com/arx-os/arxquery/internal/errors"
)

// Options holds the engine's tunables. Collection reads ChunkSize,
// CacheCapacity, ParallelThreshold and ResultCacheSize;
// ParallelChunkSpan, SmallCardinalityThreshold and StrictMode are loaded and
// validated but no query path reads them. Logger and Registry are runtime
// collaborators, not YAML-serializable fields, and are left nil by
// Load/LoadFromEnv.
type Options struct {
	ChunkSize                 int  `yaml:"chunk_size"`
	CacheCapacity             int  `yaml:"cache_capacity"`
	ParallelThreshold         int  `yaml:"parallel_threshold"`
	ParallelChunkSpan         int  `yaml:"parallel_chunk_span"`
	SmallCardinalityThreshold int  `yaml:"small_cardinality_threshold"`
	StrictMode                bool `yaml:"strict_mode"`
	ResultCacheSize           int  `yaml:"result_cache_size"`

	Logger   *zap.Logger          `yaml:"-"`
	Registry *prometheus.Registry `yaml:"-"`
}

// Default returns the engine's baseline configuration (spec §6's defaults).
func Default() *Options {
	return &Options{
		ChunkSize:                 16384,
		CacheCapacity:             256,
		ParallelThreshold:         10000,
		ParallelChunkSpan:         4096,
		SmallCardinalityThreshold: 256,
		StrictMode:                true,
		ResultCacheSize:           0,
	}
}

// Load builds Options by layering a YAML file (if path is non-empty) over
// Default(), then environment variables, then validating (spec §6, same
// three-step shape as the teacher's config.Load).
func Load(path string) (*Options, error) {
	o := Default()
	if path != "" {
		if err := o.loadFromFile(path); err != nil {
			return nil, err
		}
	}
	o.LoadFromEnv()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Options) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("options: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return fmt.Errorf("options: parse %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv overlays ARXQUERY_* environment variables onto o, matching
// the teacher's env-override convention.
func (o *Options) LoadFromEnv() {
	if v := os.Getenv("ARXQUERY_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.ChunkSize = n
		}
	}
	if v := os.Getenv("ARXQUERY_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.CacheCapacity = n
		}
	}
	if v := os.Getenv("ARXQUERY_PARALLEL_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.ParallelThreshold = n
		}
	}
	if v := os.Getenv("ARXQUERY_PARALLEL_CHUNK_SPAN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.ParallelChunkSpan = n
		}
	}
	if v := os.Getenv("ARXQUERY_STRICT_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			o.StrictMode = b
		}
	}
	if v := os.Getenv("ARXQUERY_RESULT_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			o.ResultCacheSize = n
		}
	}
}

// Validate checks every tunable is in a usable range.
func (o *Options) Validate() error {
	if o.ChunkSize <= 0 {
		return arxerrors.NewInternal("options.Validate", "chunk_size must be positive")
	}
	if o.CacheCapacity < 0 {
		return arxerrors.NewInternal("options.Validate", "cache_capacity must not be negative")
	}
	if o.ParallelThreshold <= 0 {
		return arxerrors.NewInternal("options.Validate", "parallel_threshold must be positive")
	}
	if o.ParallelChunkSpan <= 0 {
		return arxerrors.NewInternal("options.Validate", "parallel_chunk_span must be positive")
	}
	if o.SmallCardinalityThreshold <= 0 {
		return arxerrors.NewInternal("options.Validate", "small_cardinality_threshold must be positive")
	}
	if o.ResultCacheSize < 0 {
		return arxerrors.NewInternal("options.Validate", "result_cache_size must not be negative")
	}
	return nil
}
