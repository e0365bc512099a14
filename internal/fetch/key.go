package fetch

import (
	"sort"
	"strings"
)

// Key builds a cache key from a request path and its query parameters.
// Parameters are sorted alphabetically so equivalent queries collide in
// cache regardless of argument order.
func Key(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(path)
	sb.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(params[name])
	}
	return sb.String()
}

// NormalizeKey rewrites a raw "path?query" string into canonical form
// with query parameters sorted alphabetically.
func NormalizeKey(raw string) string {
	path, query, found := strings.Cut(raw, "?")
	if !found || query == "" {
		return path
	}

	pairs := strings.Split(query, "&")
	sort.Strings(pairs)
	return path + "?" + strings.Join(pairs, "&")
}
