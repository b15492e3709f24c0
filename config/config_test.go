package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFindConfig_Explicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	os.WriteFile(path, []byte("model: gpt-4\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	if _, err := FindConfig("/nonexistent/agentic.yaml"); err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "agentic.yaml"), []byte("model: gpt-4\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "agentic.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "agentic.yaml")
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("AGENTIC_TEST_KEY", "sk-secret")
	path := filepath.Join(t.TempDir(), "agentic.yaml")
	content := `objective: Say hi
provider: anthropic
model: claude-sonnet-4-5
api_key: ${AGENTIC_TEST_KEY}
max_steps: 12
retry:
  base_delay: 250ms
memory:
  db_path: /tmp/agentic.db
  documents:
    - name: readme
      text: hello
actions:
  http:
    enabled: true
    timeout: 5s
`
	os.WriteFile(path, []byte(content), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "sk-secret" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.APIKey)
	}
	if cfg.MaxSteps != 12 || cfg.Provider != "anthropic" {
		t.Errorf("unexpected values %+v", cfg)
	}
	if cfg.Retry.BaseDelay != 250*time.Millisecond || cfg.Retry.MaxRetries != 5 {
		t.Errorf("retry = %+v, want base_delay override and default max_retries", cfg.Retry)
	}
	if !cfg.Actions.HTTP.Enabled || cfg.Actions.HTTP.Timeout != 5*time.Second {
		t.Errorf("http = %+v", cfg.Actions.HTTP)
	}
	if cfg.MaxTokens != 4000 || len(cfg.Stop) != 1 || cfg.Stop[0] != "```" {
		t.Errorf("defaults lost: max_tokens=%d stop=%v", cfg.MaxTokens, cfg.Stop)
	}
	if len(cfg.Memory.Documents) != 1 || cfg.Memory.ChunkSize != 1000 {
		t.Errorf("memory = %+v", cfg.Memory)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("max_steps: [1, 2\n"), 0600)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no model", func(c *Config) { c.Model = "" }, "model is required"},
		{"temperature", func(c *Config) { c.Temperature = 3 }, "temperature"},
		{"steps", func(c *Config) { c.MaxSteps = 0 }, "max_steps"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "unknown log level"},
		{"document source", func(c *Config) {
			c.Memory.Documents = []DocumentConfig{{Name: "a", Path: "x", Text: "y"}}
		}, "exactly one of path or text"},
		{"duplicate document", func(c *Config) {
			c.Memory.Documents = []DocumentConfig{{Name: "a", Text: "x"}, {Name: "a", Text: "y"}}
		}, "duplicate name"},
		{"retry delays", func(c *Config) { c.Retry.MaxDelay = time.Millisecond }, "retry delays"},
		{"loop window", func(c *Config) { c.LoopDetection.Window = 1 }, "loop_detection.window"},
		{"tracing protocol", func(c *Config) {
			c.Tracing.Endpoint = "localhost:4317"
			c.Tracing.Protocol = "udp"
		}, "tracing.protocol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestDocumentContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	os.WriteFile(path, []byte("from file"), 0600)

	got, err := DocumentConfig{Name: "d", Path: path}.Content()
	if err != nil || got != "from file" {
		t.Errorf("Content() = %q, %v", got, err)
	}
	got, err = DocumentConfig{Name: "d", Text: "inline"}.Content()
	if err != nil || got != "inline" {
		t.Errorf("Content() = %q, %v", got, err)
	}
	if _, err := (DocumentConfig{Name: "d", Path: "/nonexistent"}).Content(); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolvedAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "from-env")
	cfg := Default()
	cfg.Provider = "anthropic"
	if got := cfg.ResolvedAPIKey(); got != "from-env" {
		t.Errorf("ResolvedAPIKey() = %q, want env fallback", got)
	}
	cfg.APIKey = "explicit"
	if got := cfg.ResolvedAPIKey(); got != "explicit" {
		t.Errorf("ResolvedAPIKey() = %q, want explicit key", got)
	}
}
