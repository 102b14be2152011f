// FILE: lixenwraith/layerconf/document.go
package layerconf

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// RefKey is the inclusion directive: its value names a document, relative
	// to the including one, whose top-level entries are merged in place.
	RefKey = "$ref"
	// PrivatePrefix marks annotation keys that are stripped on load.
	PrivatePrefix = "x-"
)

// DocumentLoader reads YAML documents and resolves $ref inclusions.
//
// Keys of the including mapping take precedence over entries merged from
// the referenced document. Reference cycles are reported as
// ErrCyclicReference.
type DocumentLoader struct {
	Logger *slog.Logger
}

// LoadDocument loads a single YAML document with the default loader.
func LoadDocument(path string) (map[string]any, error) {
	return (&DocumentLoader{}).Load(path)
}

// Load reads path and returns its processed top-level mapping.
func (l *DocumentLoader) Load(path string) (map[string]any, error) {
	return l.load(path, nil)
}

func (l *DocumentLoader) load(path string, chain []string) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path '%s': %w", path, err)
	}
	for _, seen := range chain {
		if seen == abs {
			return nil, fmt.Errorf("%w: %s", ErrCyclicReference, strings.Join(append(chain, abs), " -> "))
		}
	}
	chain = append(chain, abs)

	fileData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var raw any
	if err := yaml.Unmarshal(fileData, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file '%s': %w", path, err)
	}
	if raw == nil {
		return map[string]any{}, nil
	}

	l.logger().Debug("loaded configuration document", "path", path)

	processed, err := l.process(raw, path, chain)
	if err != nil {
		return nil, err
	}
	doc, ok := processed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config file '%s' must contain a mapping, got %s", path, typeName(processed))
	}
	return doc, nil
}

// process applies the key rules, resolves $ref and strips private keys at every depth.
func (l *DocumentLoader) process(data any, path string, chain []string) (any, error) {
	switch t := data.(type) {
	case map[string]any:
		return l.processMap(t, path, chain)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, v := range t {
			m[fmt.Sprint(k)] = v
		}
		return l.processMap(m, path, chain)
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			pe, err := l.process(elem, path, chain)
			if err != nil {
				return nil, err
			}
			out[i] = pe
		}
		return out, nil
	}
	return data, nil
}

func (l *DocumentLoader) processMap(m map[string]any, path string, chain []string) (map[string]any, error) {
	out := make(map[string]any, len(m))
	var ref string
	hasRef := false

	for key, value := range m {
		if err := checkKey(key, path); err != nil {
			return nil, err
		}
		switch {
		case key == RefKey:
			s, ok := value.(string)
			if !ok || s == "" {
				return nil, fmt.Errorf("%s in '%s' must be a non-empty file name, got %v", RefKey, path, value)
			}
			ref, hasRef = s, true
		case strings.HasPrefix(key, PrivatePrefix):
			// discarded with its whole subtree
		default:
			pv, err := l.process(value, path, chain)
			if err != nil {
				return nil, err
			}
			out[key] = pv
		}
	}

	if !hasRef {
		return out, nil
	}

	target := ref
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), ref)
	}
	l.logger().Debug("resolving reference", "from", path, "ref", target)

	included, err := l.load(target, chain)
	if err != nil {
		return nil, fmt.Errorf("resolving %s %q in '%s': %w", RefKey, ref, path, err)
	}
	for key, value := range included {
		if _, local := out[key]; !local {
			out[key] = value
		}
	}
	return out, nil
}

func (l *DocumentLoader) logger() *slog.Logger {
	if l.Logger == nil {
		return discardLogger
	}
	return l.Logger
}
