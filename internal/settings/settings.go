package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/config"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
)

// UISettings holds non-secret chat defaults used by the UI layer.
type UISettings struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	ToolsEnabled bool    `json:"toolsEnabled"`
}

// MaximoSettings holds the global (non tenant-specific) backend configuration.
// APIKey is never written back to disk; it survives only in memory after the
// environment overlay or a hand-provisioned settings file.
type MaximoSettings struct {
	BaseURL      string `json:"baseUrl"`
	APIKey       string `json:"apiKey,omitempty"`
	Site         string `json:"site"`
	Organization string `json:"organization"`
}

// MCPSettings configures the tool broker connection.
type MCPSettings struct {
	ServerURL string `json:"serverUrl"`
	Enabled   bool   `json:"enabled"`
}

// ProviderSettings holds per-provider credential and base URL overrides.
type ProviderSettings struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseUrl,omitempty"`
}

// Providers groups the supported LLM providers.
type Providers struct {
	OpenAI   ProviderSettings `json:"openai"`
	Mistral  ProviderSettings `json:"mistral"`
	DeepSeek ProviderSettings `json:"deepseek"`
}

// Tenant is one named backend scope. The registry preserves insertion order,
// which doubles as display order.
type Tenant struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	BaseURL      string `json:"baseUrl"`
	Organization string `json:"organization"`
	Site         string `json:"site"`
	APIKey       string `json:"apiKey,omitempty"`
}

// EffectiveSettings is the merged view of persisted settings and environment
// overrides, constructed fresh per request. It is a value object: callers
// pass it down the call chain and never mutate shared state.
type EffectiveSettings struct {
	UI        UISettings     `json:"ui"`
	Maximo    MaximoSettings `json:"maximo"`
	MCP       MCPSettings    `json:"mcp"`
	Providers Providers      `json:"providers"`
	Tenants   []Tenant       `json:"tenants"`
}

// SavePayload carries a partial settings update. Nil sections are left
// untouched. Credential fields inside any section are discarded on save.
type SavePayload struct {
	UI      *UISettings     `json:"ui,omitempty"`
	Maximo  *MaximoSettings `json:"maximo,omitempty"`
	MCP     *MCPSettings    `json:"mcp,omitempty"`
	Tenants *[]Tenant       `json:"tenants,omitempty"`
}

const secretMask = "********"

// Store is the file-backed settings store.
type Store struct {
	mu     sync.Mutex
	path   string
	logger logging.Logger
}

// NewStore creates a store reading and writing the given JSON file.
// An empty path falls back to SETTINGS_PATH, then "settings.json".
func NewStore(path string, logger logging.Logger) *Store {
	if path == "" {
		path = config.GetEnv("SETTINGS_PATH", "settings.json")
	}
	return &Store{path: path, logger: logger}
}

func defaults() EffectiveSettings {
	return EffectiveSettings{
		UI: UISettings{
			Provider:     config.GetEnv("CHAT_PROVIDER", "openai"),
			Model:        config.GetEnv("CHAT_MODEL", "gpt-4o-mini"),
			Temperature:  config.GetEnvFloat("CHAT_TEMPERATURE", 0.2),
			ToolsEnabled: true,
		},
	}
}

// LoadEffective reads the persisted settings fresh from disk and applies the
// environment overlay. Credentials from the environment always win; other
// environment values only fill fields the persisted file left empty, so a
// credential rotation takes effect on the next request without a restart.
func (s *Store) LoadEffective() EffectiveSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.readLocked()
	applyEnvOverlay(&settings)
	return settings
}

func (s *Store) readLocked() EffectiveSettings {
	settings := defaults()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) && s.logger != nil {
			s.logger.WithError(err).WithField("path", s.path).Warn("Failed to read settings file")
		}
		return settings
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		if s.logger != nil {
			s.logger.WithError(err).WithField("path", s.path).Warn("Settings file is not valid JSON; using defaults")
		}
		return defaults()
	}
	return settings
}

func applyEnvOverlay(settings *EffectiveSettings) {
	// Secrets: environment wins over persisted values.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		settings.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("MISTRAL_API_KEY"); v != "" {
		settings.Providers.Mistral.APIKey = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		settings.Providers.DeepSeek.APIKey = v
	}
	if v := os.Getenv("MAXIMO_APIKEY"); v != "" {
		settings.Maximo.APIKey = v
	}

	// Provider base URL overrides are explicit opt-ins, so environment wins too.
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		settings.Providers.OpenAI.BaseURL = v
	}
	if v := os.Getenv("MISTRAL_BASE_URL"); v != "" {
		settings.Providers.Mistral.BaseURL = v
	}
	if v := os.Getenv("DEEPSEEK_BASE_URL"); v != "" {
		settings.Providers.DeepSeek.BaseURL = v
	}

	// Non-secret backend fields: the persisted value stays authoritative,
	// the environment only fills gaps.
	if settings.Maximo.BaseURL == "" {
		settings.Maximo.BaseURL = os.Getenv("MAXIMO_BASE_URL")
	}
	if settings.Maximo.Site == "" {
		settings.Maximo.Site = os.Getenv("MAXIMO_SITE")
	}
	if settings.Maximo.Organization == "" {
		settings.Maximo.Organization = os.Getenv("MAXIMO_ORG")
	}
	if settings.MCP.ServerURL == "" {
		settings.MCP.ServerURL = os.Getenv("MCP_SERVER_URL")
	}
	settings.MCP.Enabled = config.GetEnvBool("CHAT_TOOLS_ENABLED", settings.MCP.Enabled)
}

// Save applies a partial update and persists the non-secret result. Any
// credential present in the payload (or already in the file) is stripped
// before the write: API keys never reach disk through this path. The merged
// effective settings are returned so callers see the post-save state.
func (s *Store) Save(payload SavePayload) (EffectiveSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	persisted := s.readLocked()

	if payload.UI != nil {
		persisted.UI = *payload.UI
	}
	if payload.Maximo != nil {
		persisted.Maximo = *payload.Maximo
	}
	if payload.MCP != nil {
		persisted.MCP = *payload.MCP
	}
	if payload.Tenants != nil {
		for i, tenant := range *payload.Tenants {
			if strings.TrimSpace(tenant.ID) == "" {
				return EffectiveSettings{}, fmt.Errorf("tenant %d: id is required", i)
			}
		}
		persisted.Tenants = *payload.Tenants
	}

	stripSecrets(&persisted)

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return EffectiveSettings{}, fmt.Errorf("marshal settings: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return EffectiveSettings{}, fmt.Errorf("create settings dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return EffectiveSettings{}, fmt.Errorf("write settings: %w", err)
	}

	applyEnvOverlay(&persisted)
	return persisted, nil
}

func stripSecrets(settings *EffectiveSettings) {
	settings.Maximo.APIKey = ""
	settings.Providers.OpenAI.APIKey = ""
	settings.Providers.Mistral.APIKey = ""
	settings.Providers.DeepSeek.APIKey = ""
	for i := range settings.Tenants {
		settings.Tenants[i].APIKey = ""
	}
}

// Masked returns a copy safe for returning to clients: every non-empty
// credential is replaced with a fixed mask.
func Masked(settings EffectiveSettings) EffectiveSettings {
	mask := func(v string) string {
		if v == "" {
			return ""
		}
		return secretMask
	}
	settings.Maximo.APIKey = mask(settings.Maximo.APIKey)
	settings.Providers.OpenAI.APIKey = mask(settings.Providers.OpenAI.APIKey)
	settings.Providers.Mistral.APIKey = mask(settings.Providers.Mistral.APIKey)
	settings.Providers.DeepSeek.APIKey = mask(settings.Providers.DeepSeek.APIKey)
	tenants := make([]Tenant, len(settings.Tenants))
	copy(tenants, settings.Tenants)
	for i := range tenants {
		tenants[i].APIKey = mask(tenants[i].APIKey)
	}
	settings.Tenants = tenants
	return settings
}

// FindTenant returns the tenant with the given id and whether it exists.
func FindTenant(settings EffectiveSettings, id string) (Tenant, bool) {
	for _, tenant := range settings.Tenants {
		if tenant.ID == id {
			return tenant, true
		}
	}
	return Tenant{}, false
}
