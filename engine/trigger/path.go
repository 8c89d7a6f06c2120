package trigger

import "strings"

const pathPrefix = "$."

// IsPath reports whether s is a context reference rather than a literal.
func IsPath(s string) bool {
	return strings.HasPrefix(s, pathPrefix)
}

// ResolvePath resolves a "$."-prefixed dotted path against ctx. Strings without the
// prefix are literals and come back verbatim. ok is false when any segment is
// missing, nil, or not a map.
func ResolvePath(path string, ctx map[string]any) (any, bool) {
	if !IsPath(path) {
		return path, true
	}
	var current any = ctx
	for _, segment := range strings.Split(strings.TrimPrefix(path, pathPrefix), ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		next, exists := m[segment]
		if !exists || next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, m != nil
	case EventContext:
		return m, m != nil
	case Conditions:
		return m, m != nil
	}
	return nil, false
}
