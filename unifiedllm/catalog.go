package unifiedllm

// DefaultMaxContextChars is the running-context budget for models missing
// from the catalog.
const DefaultMaxContextChars = 5000

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	DisplayName   string `json:"display_name"`
	ContextWindow int    `json:"context_window"` // tokens
	// MaxContextChars bounds the free-text context section shown to the
	// model. It is a character heuristic, not the context window.
	MaxContextChars int      `json:"max_context_chars"`
	Aliases         []string `json:"aliases,omitempty"`
}

// Models is the built-in model catalog. The first entry per provider is its default.
var Models = []ModelInfo{
	// OpenAI
	{
		ID: "gpt-4", Provider: "openai", DisplayName: "GPT-4",
		ContextWindow: 8192, MaxContextChars: 50000,
	},
	{
		ID: "gpt-3.5-turbo-16k", Provider: "openai", DisplayName: "GPT-3.5 Turbo 16k",
		ContextWindow: 16385, MaxContextChars: 100000,
	},
	{
		ID: "gpt-3.5-turbo", Provider: "openai", DisplayName: "GPT-3.5 Turbo",
		ContextWindow: 4096, MaxContextChars: 5000,
		Aliases: []string{"gpt-3.5"},
	},
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, MaxContextChars: 200000,
	},
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o mini",
		ContextWindow: 128000, MaxContextChars: 200000,
	},

	// Anthropic
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, MaxContextChars: 300000,
		Aliases: []string{"sonnet", "claude-sonnet"},
	},
	{
		ID: "claude-haiku-4-5", Provider: "anthropic", DisplayName: "Claude Haiku 4.5",
		ContextWindow: 200000, MaxContextChars: 300000,
		Aliases: []string{"haiku", "claude-haiku"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}

// GetLatestModel returns the default model for a provider.
func GetLatestModel(provider string) *ModelInfo {
	for i := range Models {
		if Models[i].Provider == provider {
			return &Models[i]
		}
	}
	return nil
}

// MaxContextChars returns the context budget for a model, falling back to
// DefaultMaxContextChars for unknown models.
func MaxContextChars(modelID string) int {
	if info := GetModelInfo(modelID); info != nil && info.MaxContextChars > 0 {
		return info.MaxContextChars
	}
	return DefaultMaxContextChars
}
