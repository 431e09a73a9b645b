package params

import (
	"fmt"
	"sort"
)

// DefaultSeparator joins nested keys.
const DefaultSeparator = "."

// Flatten converts a nested mapping into a single level mapping whose keys
// are the separator-joined paths to each leaf. Lists and all other non-map
// values are leaves. An empty nested mapping is kept as a leaf. Keys are
// visited in sorted order, so when a literal key such as "a.b" collides with
// a nested path a -> b the literal key wins.
func Flatten(m map[string]any, sep string) map[string]any {
	if sep == "" {
		sep = DefaultSeparator
	}
	out := make(map[string]any, len(m))
	flattenInto(out, "", m, sep)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any, sep string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := m[k]
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}
		if nested, ok := asMap(v); ok && len(nested) > 0 {
			flattenInto(out, key, nested, sep)
			continue
		}
		out[key] = v
	}
}

// asMap accepts the mapping shapes produced by callers and by YAML decoding.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
