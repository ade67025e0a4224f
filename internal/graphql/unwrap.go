// Package graphql provides typed executors for GitHub GraphQL queries, paged queries and
// mutations on top of a single raw request transport.
package graphql

import "slices"

// UnwrapSingles peels single-key object wrappers off a decoded JSON value.
// While value is an object with exactly one key outside of drop, it descends into that
// key's value. Any other value is returned as is.
func UnwrapSingles(value any, drop ...string) any {
	for {
		obj, ok := value.(map[string]any)
		if !ok {
			return value
		}
		next, ok := singleKey(obj, drop)
		if !ok {
			return value
		}
		value = next
	}
}

func singleKey(obj map[string]any, drop []string) (any, bool) {
	var (
		found any
		count int
	)
	for key, val := range obj {
		if slices.Contains(drop, key) {
			continue
		}
		found = val
		count++
		if count > 1 {
			return nil, false
		}
	}
	return found, count == 1
}
