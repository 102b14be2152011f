// FILE: lixenwraith/layerconf/export.go
package layerconf

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

// ExportFormat selects the key form of exported entries.
type ExportFormat int

const (
	// FormatEnvironment produces APP_ROOT__NESTED variable names.
	FormatEnvironment ExportFormat = iota
	// FormatCommandLine produces --app_root__nested argument names.
	FormatCommandLine
)

func (f ExportFormat) String() string {
	switch f {
	case FormatEnvironment:
		return "env"
	case FormatCommandLine:
		return "args"
	}
	return fmt.Sprintf("ExportFormat(%d)", int(f))
}

// ParseExportFormat maps "env" and "args" to their formats.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(s) {
	case "env", "environment":
		return FormatEnvironment, nil
	case "args", "cli", "command_line":
		return FormatCommandLine, nil
	}
	return 0, fmt.Errorf("unsupported export format %q", s)
}

// Exporter flattens snapshots into tokens that Parser reads back as the
// same values, for handing configuration to child processes.
type Exporter struct {
	Prefix string       // defaults to DefaultVariablePrefix
	Parser *Parser      // used for the round-trip check; defaults to the standard parser
	Logger *slog.Logger // optional
}

// Export returns one token per leaf of s, keyed by variable or argument name.
// When entries is given only those root keys are exported (case-insensitive).
func (e *Exporter) Export(s *Snapshot, format ExportFormat, entries ...string) (map[string]string, error) {
	if format != FormatEnvironment && format != FormatCommandLine {
		return nil, fmt.Errorf("unsupported export format %v", format)
	}

	selected := make(map[string]bool, len(entries))
	for _, name := range entries {
		selected[strings.ToUpper(name)] = true
	}

	out := make(map[string]string)
	for _, root := range s.Keys() {
		if s.loaded && (root == KeyLoadedSources || root == KeyLoadedFiles) {
			continue
		}
		if len(selected) > 0 && !selected[root] {
			continue
		}
		if err := e.export(out, format, []string{root}, s.data[root]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *Exporter) export(out map[string]string, format ExportFormat, path []string, value any) error {
	if m, ok := value.(map[string]any); ok && len(m) > 0 {
		for k, v := range m {
			if err := e.export(out, format, append(path[:len(path):len(path)], k), v); err != nil {
				return err
			}
		}
		return nil
	}

	token, err := e.FormatValue(displayPath(path), value)
	if err != nil {
		return err
	}
	out[e.key(format, path)] = token
	return nil
}

func (e *Exporter) key(format ExportFormat, path []string) string {
	name := e.prefix() + "_" + strings.Join(path, PathSeparator)
	if format == FormatCommandLine {
		return "--" + strings.ToLower(name)
	}
	return strings.ToUpper(name)
}

// Environ returns the export as sorted NAME=token pairs, suitable for exec.Cmd.Env.
func (e *Exporter) Environ(s *Snapshot, entries ...string) ([]string, error) {
	vars, err := e.Export(s, FormatEnvironment, entries...)
	if err != nil {
		return nil, err
	}
	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}

// Args returns the export as a flat argument list sorted by argument name.
func (e *Exporter) Args(s *Snapshot, entries ...string) ([]string, error) {
	vars, err := e.Export(s, FormatCommandLine, entries...)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, vars[k])
	}
	return args, nil
}

// FormatValue returns the token for a single value, verified to parse back
// to an equal value of the same kind. path is used in errors only.
func (e *Exporter) FormatValue(path string, value any) (string, error) {
	var candidates []string

	switch v := value.(type) {
	case nil:
		candidates = []string{"@json null"}
	case bool:
		candidates = []string{strconv.FormatBool(v)}
	case int64:
		s := strconv.FormatInt(v, 10)
		candidates = []string{s, "@int " + s}
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		candidates = []string{s, "@float " + s}
	case string:
		if !strings.HasPrefix(v, "@") {
			candidates = append(candidates, v)
		}
		candidates = append(candidates, quoteJSON(v), "@json "+quoteJSON(v))
	case []any, map[string]any:
		payload, err := encodeJSON(v)
		if err != nil {
			return "", &ExportError{Path: path, Value: value, Parsed: err.Error()}
		}
		candidates = []string{"@json " + payload}
	default:
		candidates = []string{fmt.Sprint(v)}
	}

	var parsed string
	for i, token := range candidates {
		ok, got := e.roundTrips(token, value)
		if ok {
			return token, nil
		}
		parsed = got
		if i < len(candidates)-1 {
			e.logger().Debug("Invalid round-trip, escalating",
				"path", path, "token", token, "next", candidates[i+1])
		}
	}

	token := candidates[len(candidates)-1]
	e.logger().Error("Internal error exporting configuration value",
		"path", path, "value", value, "type", typeName(value), "token", token, "parsed", parsed)
	return "", &ExportError{Path: path, Value: value, Token: token, Parsed: parsed}
}

// roundTrips parses token and compares it with want.
// The second result describes what the token parsed as.
func (e *Exporter) roundTrips(token string, want any) (bool, string) {
	got, err := e.parser().Parse(token)
	if err != nil {
		return false, fmt.Sprintf("<FAILED: %v>", err)
	}
	return valuesEqual(got, want), fmt.Sprintf("%#v (type %s)", got, typeName(got))
}

func (e *Exporter) prefix() string {
	if e.Prefix == "" {
		return DefaultVariablePrefix
	}
	return e.Prefix
}

func (e *Exporter) parser() *Parser {
	if e.Parser == nil {
		return defaultParser
	}
	return e.Parser
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger == nil {
		return discardLogger
	}
	return e.Logger
}
