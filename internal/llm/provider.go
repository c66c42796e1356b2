package llm

import (
	"strings"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/settings"
)

// ProviderConfig is the resolved wire configuration for one provider call.
type ProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
}

const (
	defaultOpenAIBase   = "https://api.openai.com"
	defaultMistralBase  = "https://api.mistral.ai"
	defaultDeepSeekBase = "https://api.deepseek.com"
)

// ResolveProvider maps a provider name to its credential and base URL.
// Unknown names resolve to an empty config; the caller decides how to fail.
// A configured base URL override wins over the built-in default, and any
// trailing slash is stripped so path joining stays uniform.
func ResolveProvider(name string, effective settings.EffectiveSettings) ProviderConfig {
	var cfg ProviderConfig
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		cfg = ProviderConfig{Name: "openai", BaseURL: defaultOpenAIBase, APIKey: effective.Providers.OpenAI.APIKey}
		if effective.Providers.OpenAI.BaseURL != "" {
			cfg.BaseURL = effective.Providers.OpenAI.BaseURL
		}
	case "mistral":
		cfg = ProviderConfig{Name: "mistral", BaseURL: defaultMistralBase, APIKey: effective.Providers.Mistral.APIKey}
		if effective.Providers.Mistral.BaseURL != "" {
			cfg.BaseURL = effective.Providers.Mistral.BaseURL
		}
	case "deepseek":
		cfg = ProviderConfig{Name: "deepseek", BaseURL: defaultDeepSeekBase, APIKey: effective.Providers.DeepSeek.APIKey}
		if effective.Providers.DeepSeek.BaseURL != "" {
			cfg.BaseURL = effective.Providers.DeepSeek.BaseURL
		}
	default:
		return ProviderConfig{}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}
