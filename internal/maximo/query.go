package maximo

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/config"
)

// BackendQuery is one list/filter request against an object type.
type BackendQuery struct {
	ObjectType string
	Filter     string
	Projection []string
	Ordering   string
	PageSize   int
}

// QueryOverrides are caller-supplied replacements for the query defaults.
type QueryOverrides struct {
	Filter     string   `json:"filter,omitempty"`
	Projection []string `json:"projection,omitempty"`
	Ordering   string   `json:"ordering,omitempty"`
	PageSize   int      `json:"pageSize,omitempty"`
}

const defaultPageSize = 20

// defaultProjection is the field list returned when the caller does not ask
// for specific fields. It covers the columns the chat UI renders for work
// orders, which is the dominant object type in practice.
var defaultProjection = []string{
	"wonum", "description", "status", "siteid", "location", "assetnum", "changedate",
}

// BuildQuery fills a BackendQuery from overrides and tenant defaults. With no
// filter override and a tenant that has a site, records are scoped to that
// site.
func BuildQuery(objectType string, overrides QueryOverrides, tenant ResolvedTenant) BackendQuery {
	q := BackendQuery{
		ObjectType: objectType,
		Filter:     overrides.Filter,
		Projection: overrides.Projection,
		Ordering:   NormalizeOrderBy(overrides.Ordering),
		PageSize:   overrides.PageSize,
	}
	if q.Filter == "" && tenant.Site != "" {
		q.Filter = fmt.Sprintf("siteid=%q", tenant.Site)
	}
	if len(q.Projection) == 0 {
		q.Projection = defaultProjection
	}
	if q.PageSize <= 0 {
		q.PageSize = config.GetEnvInt("QUERY_PAGE_SIZE", defaultPageSize)
	}
	return q
}

// NormalizeOrderBy rewrites an ordering token into the +field/-field wire
// form. Already prefixed tokens pass through, "field asc" and "field desc"
// (any case) become prefixed, and any other non-empty token is passed
// through whole with a "+" prefix. The rewrite is idempotent and total: no
// input is rejected.
func NormalizeOrderBy(ordering string) string {
	token := strings.TrimSpace(ordering)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(token, "+") || strings.HasPrefix(token, "-") {
		return token
	}
	fields := strings.Fields(token)
	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "asc":
			return "+" + fields[0]
		case "desc":
			return "-" + fields[0]
		}
	}
	return "+" + token
}

// Encode serializes the query as OSLC parameters in a fixed key order, with
// empty values omitted.
func (q BackendQuery) Encode() string {
	var sb strings.Builder
	add := func(key, value string) {
		if value == "" {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(value))
	}
	add("oslc.where", q.Filter)
	add("oslc.select", strings.Join(q.Projection, ","))
	add("oslc.orderBy", q.Ordering)
	if q.PageSize > 0 {
		add("oslc.pageSize", fmt.Sprintf("%d", q.PageSize))
	}
	return sb.String()
}
