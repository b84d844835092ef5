package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key identifies a cached catalog response.
type Key struct {
	// Endpoint is the request path (e.g. "/animes")
	Endpoint string

	// Query holds the query parameters (e.g. {"genre": "Action", "page": "1"})
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: catalog:endpoint:param1=val1:param2=val2
//
// Example:
//
//	catalog:animes:genre=Action:page=1:per_page=36:query=
func (k Key) String() string {
	parts := []string{"catalog"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Query params sorted for determinism
	if len(k.Query) > 0 {
		names := make([]string, 0, len(k.Query))
		for name := range k.Query {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, url.QueryEscape(k.Query.Get(name))))
		}
	}

	return strings.Join(parts, ":")
}
