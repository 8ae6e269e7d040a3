// Package config handles AgenticMemory configuration via environment
// variables or an optional YAML file.
//
// AgenticMemory is an embedded library, not a server, so configuration has
// no networking or auth sections: it covers graph construction limits, the
// decay model's tuning knobs, BM25 scoring parameters, and the optional
// journal's location. Configuration is loaded from environment variables
// using LoadFromEnv(), or from a YAML file using LoadFromYAML(), and should
// be validated with Validate() before use.
//
// No other package in this module imports config: the graph, bm25, decay and
// clustering code use their own constants, and a caller passes values on
// explicitly (for example DecayConfig.Weights() to WriteEngine.RunDecay).
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//
// Environment Variables:
//
//   - AMEM_DIMENSION
//   - AMEM_MAX_CONTENT_SIZE
//   - AMEM_MAX_EDGES_PER_NODE
//   - AMEM_DECAY_ENABLED
//   - AMEM_DECAY_ARCHIVE_THRESHOLD
//   - AMEM_DECAY_WEIGHT_RECENCY / _FREQUENCY / _IMPORTANCE
//   - AMEM_BM25_K1 / AMEM_BM25_B
//   - AMEM_JOURNAL_ENABLED / AMEM_JOURNAL_DIR
//   - AMEM_CLUSTER_K
//   - AMEM_LOG_LEVEL / AMEM_LOG_FORMAT
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agenticmemory/amem/pkg/decay"
	"github.com/agenticmemory/amem/pkg/event"
)

// Config holds all AgenticMemory configuration.
//
// Use LoadFromEnv() or LoadFromYAML() to build one, then Validate() it.
type Config struct {
	Graph     GraphConfig     `yaml:"graph"`
	Decay     DecayConfig     `yaml:"decay"`
	BM25      BM25Config      `yaml:"bm25"`
	Journal   JournalConfig   `yaml:"journal"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GraphConfig bounds a MemoryGraph's shape.
type GraphConfig struct {
	// Dimension is the feature-vector width new graphs are constructed with.
	Dimension int `yaml:"dimension"`
	// MaxContentSize bounds a single node's content in bytes.
	MaxContentSize int `yaml:"max_content_size"`
	// MaxEdgesPerNode bounds outgoing edges per node.
	MaxEdgesPerNode int `yaml:"max_edges_per_node"`
}

// DecayConfig tunes WriteEngine.RunDecay.
type DecayConfig struct {
	Enabled          bool    `yaml:"enabled"`
	ArchiveThreshold float32 `yaml:"archive_threshold"`
	WeightRecency    float64 `yaml:"weight_recency"`
	WeightFrequency  float64 `yaml:"weight_frequency"`
	WeightImportance float64 `yaml:"weight_importance"`
}

// Weights converts the configured decay weights into decay.Weights.
func (d DecayConfig) Weights() decay.Weights {
	return decay.Weights{
		Recency:    d.WeightRecency,
		Frequency:  d.WeightFrequency,
		Importance: d.WeightImportance,
	}
}

// BM25Config holds BM25 k1/b values. pkg/bm25 scores with its own K1 and B
// constants and does not read this struct.
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// JournalConfig controls the optional Badger-backed mutation journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// ClusterConfig holds a k-means cluster count.
type ClusterConfig struct {
	// K is a configured cluster count. graph.BuildClusterMap chooses k from
	// the node count itself and does not read this field.
	K int `yaml:"k"`
}

// LoggingConfig holds log level and format settings. No package in this
// module reads them.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// DefaultConfig returns the configuration AgenticMemory uses when nothing
// else is specified, matching the defaults documented in spec §3 and §9.
func DefaultConfig() *Config {
	return &Config{
		Graph: GraphConfig{
			Dimension:       event.DefaultDimension,
			MaxContentSize:  event.MaxContentSize,
			MaxEdgesPerNode: event.MaxEdgesPerNode,
		},
		Decay: DecayConfig{
			Enabled:          true,
			ArchiveThreshold: decay.ArchiveThreshold,
			WeightRecency:    decay.DefaultWeights().Recency,
			WeightFrequency:  decay.DefaultWeights().Frequency,
			WeightImportance: decay.DefaultWeights().Importance,
		},
		BM25: BM25Config{K1: 1.2, B: 0.75},
		Journal: JournalConfig{
			Enabled: false,
			Dir:     "./amem-journal",
		},
		Cluster: ClusterConfig{K: 0},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// LoadFromEnv builds a Config starting from DefaultConfig and overriding
// each field present in the environment.
func LoadFromEnv() *Config {
	c := DefaultConfig()

	c.Graph.Dimension = getEnvInt("AMEM_DIMENSION", c.Graph.Dimension)
	c.Graph.MaxContentSize = getEnvInt("AMEM_MAX_CONTENT_SIZE", c.Graph.MaxContentSize)
	c.Graph.MaxEdgesPerNode = getEnvInt("AMEM_MAX_EDGES_PER_NODE", c.Graph.MaxEdgesPerNode)

	c.Decay.Enabled = getEnvBool("AMEM_DECAY_ENABLED", c.Decay.Enabled)
	c.Decay.ArchiveThreshold = float32(getEnvFloat("AMEM_DECAY_ARCHIVE_THRESHOLD", float64(c.Decay.ArchiveThreshold)))
	c.Decay.WeightRecency = getEnvFloat("AMEM_DECAY_WEIGHT_RECENCY", c.Decay.WeightRecency)
	c.Decay.WeightFrequency = getEnvFloat("AMEM_DECAY_WEIGHT_FREQUENCY", c.Decay.WeightFrequency)
	c.Decay.WeightImportance = getEnvFloat("AMEM_DECAY_WEIGHT_IMPORTANCE", c.Decay.WeightImportance)

	c.BM25.K1 = getEnvFloat("AMEM_BM25_K1", c.BM25.K1)
	c.BM25.B = getEnvFloat("AMEM_BM25_B", c.BM25.B)

	c.Journal.Enabled = getEnvBool("AMEM_JOURNAL_ENABLED", c.Journal.Enabled)
	c.Journal.Dir = getEnv("AMEM_JOURNAL_DIR", c.Journal.Dir)

	c.Cluster.K = getEnvInt("AMEM_CLUSTER_K", c.Cluster.K)

	c.Logging.Level = getEnv("AMEM_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("AMEM_LOG_FORMAT", c.Logging.Format)

	return c
}

// LoadFromYAML reads a YAML file into a Config seeded with DefaultConfig,
// so a file only needs to specify the fields it overrides.
func LoadFromYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c := DefaultConfig()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c, nil
}

// Validate checks that the configuration describes a graph/engine that can
// actually be constructed, returning the first violation found.
func (c *Config) Validate() error {
	if c.Graph.Dimension <= 0 {
		return fmt.Errorf("config: graph.dimension must be positive, got %d", c.Graph.Dimension)
	}
	if c.Graph.MaxContentSize <= 0 {
		return fmt.Errorf("config: graph.max_content_size must be positive, got %d", c.Graph.MaxContentSize)
	}
	if c.Graph.MaxEdgesPerNode <= 0 || c.Graph.MaxEdgesPerNode > event.MaxEdgesPerNode {
		return fmt.Errorf("config: graph.max_edges_per_node must be in (0, %d], got %d", event.MaxEdgesPerNode, c.Graph.MaxEdgesPerNode)
	}
	if c.Decay.ArchiveThreshold < 0 || c.Decay.ArchiveThreshold > 1 {
		return fmt.Errorf("config: decay.archive_threshold must be in [0,1], got %f", c.Decay.ArchiveThreshold)
	}
	if c.BM25.K1 <= 0 {
		return fmt.Errorf("config: bm25.k1 must be positive, got %f", c.BM25.K1)
	}
	if c.BM25.B < 0 || c.BM25.B > 1 {
		return fmt.Errorf("config: bm25.b must be in [0,1], got %f", c.BM25.B)
	}
	if c.Journal.Enabled && c.Journal.Dir == "" {
		return fmt.Errorf("config: journal.dir is required when journal.enabled is true")
	}
	if c.Cluster.K < 0 {
		return fmt.Errorf("config: cluster.k must be non-negative, got %d", c.Cluster.K)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("config: logging.format must be \"json\" or \"console\", got %q", c.Logging.Format)
	}
	return nil
}

// String returns a compact, log-safe representation of the Config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{dim=%d decay=%v bm25(k1=%.2f,b=%.2f) journal=%v cluster.k=%d}",
		c.Graph.Dimension, c.Decay.Enabled, c.BM25.K1, c.BM25.B, c.Journal.Enabled, c.Cluster.K,
	)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
