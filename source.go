// FILE: lixenwraith/layerconf/source.go
package layerconf

import (
	"fmt"
	"sort"
	"strings"
)

// Source names a layer of the configuration, used for reporting
type Source string

const (
	// SourceEnv represents values loaded from environment variables
	SourceEnv Source = "env"
	// SourceCLI represents values loaded from command-line arguments
	SourceCLI Source = "command_line"
	// SourceYAML represents values loaded from YAML documents
	SourceYAML Source = "yaml"
)

// PathSeparator joins key segments in flattened variable and argument names.
const PathSeparator = "__"

var processSettings = map[string]bool{
	EnvConfigPath:      true,
	EnvDataPath:        true,
	EnvResourcesPath:   true,
	EnvVariablePrefix:  true,
	EnvLoadEnv:         true,
	EnvLoadYAML:        true,
	EnvLoadCommandLine: true,
}

// sourceEntry is one flattened key and its raw token.
type sourceEntry struct {
	origin string // variable or argument name, for messages
	key    string // "__"-joined key path without prefix
	token  string
}

// envEntries returns variables named <PREFIX>_<path>, sorted by name.
// Process settings and the dimension family are never configuration entries.
func envEntries(environ []string, variablePrefix string) []sourceEntry {
	prefix := strings.ToUpper(variablePrefix) + "_"

	var entries []sourceEntry
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) || strings.HasPrefix(name, DefaultDimensionEnvPrefix) || processSettings[name] {
			continue
		}
		entries = append(entries, sourceEntry{origin: name, key: name[len(prefix):], token: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].origin < entries[j].origin })
	return entries
}

// argEntries returns "--<prefix>_<path> <value>" pairs from args and any parse warnings.
func argEntries(args []string, variablePrefix string) ([]sourceEntry, []string) {
	prefix := argPrefix(variablePrefix)
	pairs, warnings := ParseKeywordArgs(args, prefix)

	entries := make([]sourceEntry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, sourceEntry{origin: prefix + p.Key, key: p.Key, token: p.Value})
	}
	return entries, warnings
}

func argPrefix(variablePrefix string) string {
	return "--" + strings.ToLower(variablePrefix) + "_"
}

// buildSource parses every entry and nests it under its key path.
// Later entries replace earlier ones with the same path.
func buildSource(entries []sourceEntry, parser *Parser) (map[string]any, error) {
	result := make(map[string]any)
	for _, e := range entries {
		segments, err := keySegments(e.key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.origin, err)
		}
		value, err := parser.Parse(e.token)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.origin, err)
		}
		if err := setNestedValue(result, segments, value); err != nil {
			return nil, fmt.Errorf("%s: %w", e.origin, err)
		}
	}
	return result, nil
}

// keySegments splits a flattened key on "__" into snapshot segments.
func keySegments(key string) ([]string, error) {
	if key == "" {
		return nil, &InvalidKeyError{Key: key, Reason: "empty names are not allowed"}
	}
	parts := strings.Split(key, PathSeparator)
	for i, p := range parts {
		if p == "" || strings.Contains(p, ".") || strings.HasSuffix(p, "_") {
			return nil, &InvalidKeyError{Key: key, Reason: "malformed key path"}
		}
		if i == 0 {
			parts[i] = strings.ToUpper(p)
		} else {
			parts[i] = strings.ToLower(p)
		}
	}
	return parts, nil
}
