package deferred

import "strings"

// TokenPrefix marks a loader-data value as a deferred placeholder. The
// remainder of the string is the deferred key within the owning route.
const TokenPrefix = "__deferred_promise:"

// Token builds the placeholder embedded in loader data for key.
func Token(key string) string {
	return TokenPrefix + key
}

// ParseToken reports whether value is a placeholder token and extracts its
// key.
func ParseToken(value any) (key string, ok bool) {
	s, isString := value.(string)
	if !isString || !strings.HasPrefix(s, TokenPrefix) {
		return "", false
	}
	return s[len(TokenPrefix):], true
}

// ResolveLoaderData exchanges every placeholder token in a route's loader
// data for the live registry entry, installing fresh pending entries on
// first reference. Non-token values pass through unchanged.
func ResolveLoaderData(reg *Registry, routeID string, data map[string]any) map[string]any {
	if reg == nil || len(data) == 0 {
		return data
	}
	out := make(map[string]any, len(data))
	for name, value := range data {
		if key, ok := ParseToken(value); ok {
			out[name] = reg.Install(routeID, key)
			continue
		}
		out[name] = value
	}
	return out
}
