// File: lixenwraith/layerconf/helper.go
package layerconf

import (
	"sort"
	"strings"
)

// joinPath appends key to a dot-notation prefix.
func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// flattenMap converts a nested map to a flat map with dot-notation paths.
// Empty nested maps are kept as leaves so that they are not lost.
func flattenMap(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)

	for key, value := range nested {
		newPath := joinPath(prefix, key)

		if nestedMap, isMap := value.(map[string]any); isMap && len(nestedMap) > 0 {
			for subPath, subValue := range flattenMap(nestedMap, newPath) {
				flat[subPath] = subValue
			}
		} else {
			flat[newPath] = value
		}
	}

	return flat
}

// allPaths returns every dotted path in nested, intermediate maps included, sorted.
func allPaths(nested map[string]any, prefix string) []string {
	var paths []string
	var walk func(m map[string]any, prefix string)
	walk = func(m map[string]any, prefix string) {
		for key, value := range m {
			p := joinPath(prefix, key)
			paths = append(paths, p)
			if sub, ok := value.(map[string]any); ok {
				walk(sub, p)
			}
		}
	}
	walk(nested, prefix)
	sort.Strings(paths)
	return paths
}

// setNestedValue sets a value in a nested map following segments, creating
// intermediate maps. It reports a MergeTypeError when a segment already
// holds a non-map value.
func setNestedValue(nested map[string]any, segments []string, value any) error {
	current := nested

	for i := 0; i < len(segments)-1; i++ {
		segment := segments[i]

		next, exists := current[segment]
		if !exists {
			newMap := make(map[string]any)
			current[segment] = newMap
			current = newMap
			continue
		}

		nextMap, isMap := next.(map[string]any)
		if !isMap {
			return &MergeTypeError{Path: strings.Join(segments[:i+1], "."), Existing: next, Incoming: map[string]any{}}
		}
		current = nextMap
	}

	last := segments[len(segments)-1]
	if existing, exists := current[last]; exists {
		if _, isMap := existing.(map[string]any); isMap {
			return &MergeTypeError{Path: strings.Join(segments, "."), Existing: existing, Incoming: value}
		}
	}
	current[last] = value
	return nil
}

// navigateToPath traverses nested map to reach the specified segments.
func navigateToPath(nested map[string]any, segments []string) (any, bool) {
	var current any = nested

	for _, segment := range segments {
		currentMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		value, exists := currentMap[segment]
		if !exists {
			return nil, false
		}
		current = value
	}

	return current, true
}

// splitPath turns a dotted path into snapshot segments: root upper-case, the rest lower-case.
func splitPath(path string) []string {
	path = strings.Trim(path, ".")
	if path == "" {
		return nil
	}
	segments := strings.Split(path, ".")
	for i, s := range segments {
		if i == 0 {
			segments[i] = strings.ToUpper(s)
		} else {
			segments[i] = strings.ToLower(s)
		}
	}
	return segments
}

// displayPath renders snapshot segments in the lower-case dotted form used in messages.
func displayPath(segments []string) string {
	return strings.ToLower(strings.Join(segments, "."))
}

// checkKey enforces the document key rules: the path rules of checkSegment,
// and no hyphens unless the key is private.
func checkKey(key, source string) error {
	if err := checkSegment(key, source); err != nil {
		return err
	}
	if strings.Contains(key, "-") && !strings.HasPrefix(key, PrivatePrefix) {
		return &InvalidKeyError{Source: source, Key: key, Reason: "names with hyphen are not allowed"}
	}
	return nil
}

// checkSegment enforces the rules every key needs to survive flattening into
// "__"-joined variable names and dotted paths. A trailing underscore would
// merge into the separator before a child key.
func checkSegment(key, source string) error {
	switch {
	case key == "":
		return &InvalidKeyError{Source: source, Key: key, Reason: "empty names are not allowed"}
	case strings.Contains(key, "."):
		return &InvalidKeyError{Source: source, Key: key, Reason: "dotted names are not allowed"}
	case strings.Contains(key, PathSeparator):
		return &InvalidKeyError{Source: source, Key: key, Reason: "double underscores names are not allowed"}
	case strings.HasSuffix(key, "_"):
		return &InvalidKeyError{Source: source, Key: key, Reason: "names ending with an underscore are not allowed"}
	}
	return nil
}
