// Package config loads the agentic CLI configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order:
// ./agentic.yaml, ~/.config/agentic/agentic.yaml, /etc/agentic/agentic.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"agentic.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "agentic", "agentic.yaml"))
	}

	paths = append(paths, "/etc/agentic/agentic.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise the first existing DefaultSearchPaths entry is returned, or ""
// when there is none.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// Config holds all agentic configuration.
type Config struct {
	Objective       string   `yaml:"objective"`
	Provider        string   `yaml:"provider"`
	Model           string   `yaml:"model"`
	APIKey          string   `yaml:"api_key"`
	Temperature     float64  `yaml:"temperature"`
	MaxTokens       int      `yaml:"max_tokens"`
	Stop            []string `yaml:"stop"`
	MaxSteps        int      `yaml:"max_steps"`
	MaxContextChars int      `yaml:"max_context_chars"` // 0 = from the model catalog
	Verbose         bool     `yaml:"verbose"`
	LogLevel        string   `yaml:"log_level"`
	LogFormat       string   `yaml:"log_format"` // text or json

	Memory        MemoryConfig        `yaml:"memory"`
	Retry         RetryConfig         `yaml:"retry"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Actions       ActionsConfig       `yaml:"actions"`
	Clarify       ClarifyConfig       `yaml:"clarify"`
	LoopDetection LoopDetectionConfig `yaml:"loop_detection"`
	Tracing       TracingConfig       `yaml:"tracing"`
}

// MemoryConfig configures the document store.
type MemoryConfig struct {
	DBPath           string           `yaml:"db_path"` // ":memory:" keeps the index in process
	ChunkSize        int              `yaml:"chunk_size"`
	TopK             int              `yaml:"top_k"`
	SummaryCacheSize int              `yaml:"summary_cache_size"`
	Documents        []DocumentConfig `yaml:"documents"`
}

// DocumentConfig seeds memory with a document read from Path or given inline
// as Text.
type DocumentConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
	Text string `yaml:"text"`
}

// Content returns the document text.
func (d DocumentConfig) Content() (string, error) {
	if d.Path == "" {
		return d.Text, nil
	}
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return "", fmt.Errorf("read document %q: %w", d.Name, err)
	}
	return string(data), nil
}

// RetryConfig mirrors unifiedllm.RetryPolicy.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Multiplier float64       `yaml:"multiplier"`
}

// RateLimitConfig throttles completion requests. Zero disables the limit.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// ActionsConfig enables the optional action bundles.
type ActionsConfig struct {
	Filesystem FilesystemConfig `yaml:"filesystem"`
	HTTP       HTTPConfig       `yaml:"http"`
	Browser    BrowserConfig    `yaml:"browser"`
}

type FilesystemConfig struct {
	Enabled bool   `yaml:"enabled"`
	Root    string `yaml:"root"`
}

type HTTPConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

type BrowserConfig struct {
	Enabled  bool `yaml:"enabled"`
	Headless bool `yaml:"headless"`
}

// ClarifyConfig controls the ask_user_to_clarify action.
type ClarifyConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

type LoopDetectionConfig struct {
	Enabled bool `yaml:"enabled"`
	Window  int  `yaml:"window"`
}

// TracingConfig configures the OTLP trace exporter. An empty Endpoint
// disables tracing.
type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Protocol    string `yaml:"protocol"` // http or grpc
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file, expanding ${VAR} references
// from the environment. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Provider:  "openai",
		Model:     "gpt-4",
		MaxTokens: 4000,
		Stop:      []string{"```"},
		MaxSteps:  100,
		LogLevel:  "info",
		LogFormat: "text",
		Memory: MemoryConfig{
			DBPath:           ":memory:",
			ChunkSize:        1000,
			TopK:             4,
			SummaryCacheSize: 256,
		},
		Retry: RetryConfig{
			MaxRetries: 5,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
			Multiplier: 2,
		},
		Actions: ActionsConfig{
			Filesystem: FilesystemConfig{Root: "."},
			HTTP:       HTTPConfig{Timeout: 30 * time.Second},
			Browser:    BrowserConfig{Headless: true},
		},
		Clarify:       ClarifyConfig{Timeout: 5 * time.Minute},
		LoopDetection: LoopDetectionConfig{Enabled: true, Window: 6},
		Tracing:       TracingConfig{Protocol: "http", ServiceName: "agentic"},
	}
}

// ResolvedAPIKey returns APIKey, falling back to <PROVIDER>_API_KEY from the
// environment.
func (c *Config) ResolvedAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return os.Getenv(strings.ToUpper(c.Provider) + "_API_KEY")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Provider == "" {
		add("provider is required")
	}
	if c.Model == "" {
		add("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		add("temperature must be between 0 and 2, got %v", c.Temperature)
	}
	if c.MaxTokens <= 0 {
		add("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxSteps <= 0 {
		add("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.MaxContextChars < 0 {
		add("max_context_chars must not be negative, got %d", c.MaxContextChars)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		add("%v", err)
	}
	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		add("log_format must be text or json, got %q", c.LogFormat)
	}

	if c.Memory.ChunkSize <= 0 {
		add("memory.chunk_size must be positive, got %d", c.Memory.ChunkSize)
	}
	if c.Memory.TopK <= 0 {
		add("memory.top_k must be positive, got %d", c.Memory.TopK)
	}
	if c.Memory.SummaryCacheSize <= 0 {
		add("memory.summary_cache_size must be positive, got %d", c.Memory.SummaryCacheSize)
	}
	seen := make(map[string]bool)
	for i, d := range c.Memory.Documents {
		switch {
		case d.Name == "":
			add("memory.documents[%d] needs a name", i)
		case seen[d.Name]:
			add("memory.documents[%d]: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true
		if (d.Path == "") == (d.Text == "") {
			add("memory.documents[%d] needs exactly one of path or text", i)
		}
	}

	if c.Retry.MaxRetries < 0 {
		add("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		add("retry delays must satisfy 0 <= base_delay <= max_delay")
	}
	if c.Retry.Multiplier < 1 {
		add("retry.multiplier must be at least 1, got %v", c.Retry.Multiplier)
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		add("rate_limit values must not be negative")
	}
	if c.LoopDetection.Enabled && c.LoopDetection.Window < 2 {
		add("loop_detection.window must be at least 2, got %d", c.LoopDetection.Window)
	}
	if c.Clarify.Timeout < 0 {
		add("clarify.timeout must not be negative")
	}
	if c.Tracing.Endpoint != "" && c.Tracing.Protocol != "http" && c.Tracing.Protocol != "grpc" {
		add("tracing.protocol must be http or grpc, got %q", c.Tracing.Protocol)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
