// Package config loads and validates docfind configuration.
// Values come from defaults, an optional YAML file, and DOCFIND_* environment
// overrides, in that order. Invalid parameter combinations fail fast at
// load time so that indexing and search never see a bad configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/docyard/docfind/internal/errors"
)

// OrphanScopeGlobal matches orphan indexes by logical name across the whole
// store. Any other value namespaces logical names with that scope prefix, so
// cleanup only ever touches documents indexed under the same scope.
const OrphanScopeGlobal = "global"

// Config is the complete docfind configuration.
type Config struct {
	// DataDir holds the index store, lock file, and logs.
	DataDir string `yaml:"data_dir"`

	// Chunking parameters. A chunk never exceeds ChunkMaxSize characters
	// except a merged trailing remainder; chunks shorter than ChunkMinSize
	// are merged into their predecessor.
	ChunkMaxSize int `yaml:"chunk_max_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	ChunkMinSize int `yaml:"chunk_min_size"`

	// SentenceTerminators is the set of sentence-ending runes used by the
	// sentence tier, covering both Latin and CJK punctuation.
	SentenceTerminators string `yaml:"sentence_terminators"`

	// UseCJKSegmentation enables dictionary-based word segmentation for CJK
	// runs. When disabled, a CJK run is emitted as a single token.
	UseCJKSegmentation bool `yaml:"use_cjk_segmentation"`

	// RemoveStopwords enables stopword filtering for both token columns.
	RemoveStopwords bool `yaml:"remove_stopwords"`

	// Stopwords adds user-supplied words to the built-in lists.
	Stopwords StopwordsConfig `yaml:"stopwords"`

	// BM25 ranking parameters.
	BM25K1 float64 `yaml:"bm25_k1"`
	BM25B  float64 `yaml:"bm25_b"`

	// StaleThresholdHours is the age after which an index is rebuilt.
	StaleThresholdHours int `yaml:"stale_threshold_hours"`

	// SearchMaxResults is the default result cap for search.
	SearchMaxResults int `yaml:"search_max_results_default"`

	// OrphanScope controls orphan-cleanup scope (see OrphanScopeGlobal).
	OrphanScope string `yaml:"orphan_scope"`

	// WatchDebounce is the settle window for the filesystem watcher.
	WatchDebounce string `yaml:"watch_debounce"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// StopwordsConfig holds extra stopwords partitioned by language.
type StopwordsConfig struct {
	English []string `yaml:"english"`
	Chinese []string `yaml:"chinese"`
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DataDir:             filepath.Join(home, ".docfind"),
		ChunkMaxSize:        400,
		ChunkOverlap:        80,
		ChunkMinSize:        50,
		SentenceTerminators: ".!?。！？",
		UseCJKSegmentation:  true,
		RemoveStopwords:     true,
		BM25K1:              1.2,
		BM25B:               0.75,
		StaleThresholdHours: 24,
		SearchMaxResults:    5,
		OrphanScope:         OrphanScopeGlobal,
		WatchDebounce:       "500ms",
		LogLevel:            "info",
	}
}

// Load reads configuration from path (optional), applies environment
// overrides, and validates the result. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.New(errors.ErrCodeConfigNotFound,
					fmt.Sprintf("config file not found: %s", path), err)
			}
			return nil, errors.ConfigError("failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.ConfigError("failed to parse config file", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies DOCFIND_* environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("DOCFIND_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("DOCFIND_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DOCFIND_STALE_THRESHOLD_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.StaleThresholdHours = n
		}
	}
	if v := os.Getenv("DOCFIND_CHUNK_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkMaxSize = n
		}
	}
}

// Validate checks parameter combinations. It returns a ConfigError for the
// first violation found; the engine is never constructed from an invalid
// configuration.
func (c *Config) Validate() error {
	if c.ChunkMaxSize <= 0 {
		return errors.ConfigError(
			fmt.Sprintf("chunk_max_size must be positive, got %d", c.ChunkMaxSize), nil)
	}
	if c.ChunkMinSize < 0 {
		return errors.ConfigError(
			fmt.Sprintf("chunk_min_size must be non-negative, got %d", c.ChunkMinSize), nil)
	}
	if c.ChunkMinSize > c.ChunkMaxSize {
		return errors.ConfigError(
			fmt.Sprintf("chunk_min_size (%d) must not exceed chunk_max_size (%d)",
				c.ChunkMinSize, c.ChunkMaxSize), nil)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkMaxSize {
		return errors.ConfigError(
			fmt.Sprintf("chunk_overlap (%d) must be in [0, chunk_max_size)", c.ChunkOverlap), nil)
	}
	if c.SentenceTerminators == "" {
		return errors.ConfigError("sentence_terminators must not be empty", nil)
	}
	if c.BM25K1 < 0 {
		return errors.ConfigError(
			fmt.Sprintf("bm25_k1 must be non-negative, got %g", c.BM25K1), nil)
	}
	if c.BM25B < 0 || c.BM25B > 1 {
		return errors.ConfigError(
			fmt.Sprintf("bm25_b must be in [0, 1], got %g", c.BM25B), nil)
	}
	if c.StaleThresholdHours <= 0 {
		return errors.ConfigError(
			fmt.Sprintf("stale_threshold_hours must be positive, got %d", c.StaleThresholdHours), nil)
	}
	if c.SearchMaxResults <= 0 {
		return errors.ConfigError(
			fmt.Sprintf("search_max_results_default must be positive, got %d", c.SearchMaxResults), nil)
	}
	if c.OrphanScope == "" {
		return errors.ConfigError("orphan_scope must not be empty", nil)
	}
	if _, err := time.ParseDuration(c.WatchDebounce); err != nil {
		return errors.ConfigError(
			fmt.Sprintf("watch_debounce is not a valid duration: %s", c.WatchDebounce), err)
	}
	return nil
}

// StaleThreshold returns the staleness threshold as a duration.
func (c *Config) StaleThreshold() time.Duration {
	return time.Duration(c.StaleThresholdHours) * time.Hour
}

// DebounceWindow returns the watcher debounce window. Validate guarantees
// the value parses.
func (c *Config) DebounceWindow() time.Duration {
	d, _ := time.ParseDuration(c.WatchDebounce)
	return d
}
