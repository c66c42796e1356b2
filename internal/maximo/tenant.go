package maximo

import (
	"os"
	"strings"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/settings"
)

// ResolvedTenant is the fully merged backend scope for one request.
type ResolvedTenant struct {
	ID           string
	BaseURL      string
	APIBase      string
	APIKey       string
	Site         string
	Organization string
}

// NormalizeBaseURL trims whitespace and trailing slashes and guarantees the
// URL ends in the /maximo context root. Only the exact terminal segment is
// checked, so the operation is idempotent.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/maximo") {
		base += "/maximo"
	}
	return base
}

// ResolveTenant merges the tenant registry, global settings, and environment
// into one backend scope. Lookup order is exact id, then the "default"
// registry entry, then an empty record. The credential follows env over
// settings over tenant record; site and organization follow tenant over
// settings over env, with site upper-cased.
func ResolveTenant(tenantID string, effective settings.EffectiveSettings) ResolvedTenant {
	record, ok := settings.FindTenant(effective, tenantID)
	if !ok {
		record, _ = settings.FindTenant(effective, "default")
	}

	resolved := ResolvedTenant{ID: record.ID}

	baseURL := record.BaseURL
	if baseURL == "" {
		baseURL = effective.Maximo.BaseURL
	}
	resolved.BaseURL = NormalizeBaseURL(baseURL)
	if resolved.BaseURL != "" {
		resolved.APIBase = resolved.BaseURL + "/api"
	}

	switch {
	case os.Getenv("MAXIMO_APIKEY") != "":
		resolved.APIKey = os.Getenv("MAXIMO_APIKEY")
	case effective.Maximo.APIKey != "":
		resolved.APIKey = effective.Maximo.APIKey
	default:
		resolved.APIKey = record.APIKey
	}

	resolved.Site = strings.ToUpper(firstNonEmpty(record.Site, effective.Maximo.Site, os.Getenv("MAXIMO_SITE")))
	resolved.Organization = firstNonEmpty(record.Organization, effective.Maximo.Organization, os.Getenv("MAXIMO_ORG"))

	return resolved
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
