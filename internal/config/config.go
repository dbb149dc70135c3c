package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the semgraph API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for the write path.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	GraphTTLHours int `yaml:"graph_ttl_hours"` // 0 = keep forever
}

// EmbeddingConfig holds embedding settings. Default names the vectorizer
// the pipeline uses; with a single vectorizer configured it may be omitted.
type EmbeddingConfig struct {
	Default     string                      `yaml:"default"`
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"` // openai, ollama
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
}

// PipelineConfig holds visualization pipeline settings. DefaultHue is a
// pointer so a configured hue of 0 is distinguishable from unset.
type PipelineConfig struct {
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Projection ProjectionConfig `yaml:"projection"`
	Graph      GraphConfig      `yaml:"graph"`
	DefaultHue *float64         `yaml:"default_hue"`
}

// SegmenterConfig holds segmentation settings.
type SegmenterConfig struct {
	MinChars   int `yaml:"min_chars"`    // fragments below this merge into the previous segment
	MaxTextLen int `yaml:"max_text_len"` // node text truncation length in runes
}

// ProjectionConfig holds 2-D layout settings.
type ProjectionConfig struct {
	Neighbors  int     `yaml:"neighbors"`
	MinDist    float64 `yaml:"min_dist"`
	Iterations int     `yaml:"iterations"`
}

// GraphConfig holds edge selection settings. MinSimilarity is a pointer so
// a configured floor of 0 is distinguishable from unset.
type GraphConfig struct {
	NeighborsPerNode int      `yaml:"neighbors_per_node"`
	MinSimilarity    *float64 `yaml:"min_similarity"`
	MaxEdges         int      `yaml:"max_edges"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Pipeline.Segmenter.MinChars <= 0 {
		c.Pipeline.Segmenter.MinChars = 20
	}
	if c.Pipeline.Segmenter.MaxTextLen <= 0 {
		c.Pipeline.Segmenter.MaxTextLen = 100
	}
	if c.Pipeline.Projection.Neighbors <= 0 {
		c.Pipeline.Projection.Neighbors = 15
	}
	if c.Pipeline.Projection.MinDist <= 0 {
		c.Pipeline.Projection.MinDist = 0.1
	}
	if c.Pipeline.Projection.Iterations <= 0 {
		c.Pipeline.Projection.Iterations = 300
	}
	if c.Pipeline.Graph.NeighborsPerNode <= 0 {
		c.Pipeline.Graph.NeighborsPerNode = 3
	}
	if c.Pipeline.Graph.MinSimilarity == nil {
		minSim := 0.5
		c.Pipeline.Graph.MinSimilarity = &minSim
	}
	if c.Pipeline.Graph.MaxEdges <= 0 {
		c.Pipeline.Graph.MaxEdges = 200
	}
	if c.Pipeline.DefaultHue == nil {
		h := 200.0
		c.Pipeline.DefaultHue = &h
	}
	if c.Embedding.Default == "" && len(c.Embedding.Vectorizers) == 1 {
		for name := range c.Embedding.Vectorizers {
			c.Embedding.Default = name
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "memory":
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if len(c.Embedding.Vectorizers) == 0 {
		return fmt.Errorf("embedding.vectorizers is required")
	}
	for name, v := range c.Embedding.Vectorizers {
		switch v.Provider {
		case "openai", "ollama":
		default:
			return fmt.Errorf(
				"embedding.vectorizers.%s.provider must be \"openai\" or \"ollama\", got %q",
				name, v.Provider,
			)
		}
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s references unknown provider %q", name, v.Provider)
		}
	}
	if c.Embedding.Default == "" {
		if len(c.Embedding.Vectorizers) > 1 {
			return fmt.Errorf("embedding.default is required when multiple vectorizers are configured")
		}
	} else if _, ok := c.Embedding.Vectorizers[c.Embedding.Default]; !ok {
		return fmt.Errorf("embedding.default references unknown vectorizer %q", c.Embedding.Default)
	}
	if c.Pipeline.Graph.MinSimilarity != nil && *c.Pipeline.Graph.MinSimilarity > 1 {
		return fmt.Errorf("pipeline.graph.min_similarity must not exceed 1, got %v", *c.Pipeline.Graph.MinSimilarity)
	}
	if c.Pipeline.DefaultHue != nil && (*c.Pipeline.DefaultHue < 0 || *c.Pipeline.DefaultHue >= 360) {
		return fmt.Errorf("pipeline.default_hue must lie in [0,360), got %v", *c.Pipeline.DefaultHue)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
