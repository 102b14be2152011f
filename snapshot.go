// FILE: lixenwraith/layerconf/snapshot.go
package layerconf

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// Observational root keys added by a verbose build. Sources may not define
// them, and the exporter skips them on snapshots that carry them.
const (
	KeyLoadedSources = "LOADED_SOURCES"
	KeyLoadedFiles   = "LOADED_FILES"
)

// Snapshot is an immutable resolved configuration tree.
// Root keys are upper-case, nested keys lower-case. Paths given to its
// methods are dotted and case-insensitive ("logging.level", "LOGGING.Level").
type Snapshot struct {
	data    map[string]any
	sources []Source
	files   []string
	loaded  bool // holds KeyLoadedSources and KeyLoadedFiles
}

// NewSnapshot normalizes programmatic data into a snapshot.
func NewSnapshot(data map[string]any) (*Snapshot, error) {
	canonical, err := canonicalize(data)
	if err != nil {
		return nil, err
	}
	return &Snapshot{data: canonical}, nil
}

// newSnapshot wraps an already canonical tree without copying it.
func newSnapshot(data map[string]any, sources []Source, files []string) *Snapshot {
	return &Snapshot{data: data, sources: sources, files: files}
}

// Get returns a copy of the value at path.
func (s *Snapshot) Get(path string) (any, error) {
	val, found := s.Lookup(path)
	if !found {
		return nil, &KeyNotFoundError{Path: path}
	}
	return val, nil
}

// Lookup returns a copy of the value at path and whether it exists.
func (s *Snapshot) Lookup(path string) (any, bool) {
	val, found := s.lookup(path)
	if !found {
		return nil, false
	}
	return deepCopy(val), true
}

func (s *Snapshot) lookup(path string) (any, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}
	return navigateToPath(s.data, segments)
}

// Has reports whether path exists, including paths holding null.
func (s *Snapshot) Has(path string) bool {
	_, found := s.lookup(path)
	return found
}

// Sub returns the mapping at path as its own snapshot.
func (s *Snapshot) Sub(path string) (*Snapshot, error) {
	val, found := s.lookup(path)
	if !found {
		return nil, &KeyNotFoundError{Path: path}
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("path %q refers to non-map value (type %s)", path, typeName(val))
	}
	sub, err := canonicalize(m)
	if err != nil {
		return nil, err
	}
	return newSnapshot(sub, s.Sources(), s.Files()), nil
}

// AsMap returns a deep copy of the tree with every key lower-case.
func (s *Snapshot) AsMap() map[string]any {
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		out[strings.ToLower(k)] = deepCopy(v)
	}
	return out
}

// tree returns a deep copy of the canonical tree.
func (s *Snapshot) tree() map[string]any {
	return deepCopy(s.data).(map[string]any)
}

// Keys returns the sorted root keys.
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Paths returns every dotted path in the snapshot, sorted.
func (s *Snapshot) Paths() []string {
	return allPaths(s.data, "")
}

// Len returns the number of root keys.
func (s *Snapshot) Len() int {
	return len(s.data)
}

// Sources returns the layers the snapshot was built from, in merge order.
func (s *Snapshot) Sources() []Source {
	return append([]Source(nil), s.sources...)
}

// Files returns the YAML documents the snapshot was built from, in merge order.
func (s *Snapshot) Files() []string {
	return append([]string(nil), s.files...)
}

// Digest returns the hex BLAKE3 hash of the snapshot's canonical
// environment export. Equal configurations have equal digests regardless
// of the sources they were built from.
func (s *Snapshot) Digest() (string, error) {
	exporter := &Exporter{Prefix: DefaultVariablePrefix}
	env, err := exporter.Environ(s)
	if err != nil {
		return "", fmt.Errorf("digest failed: %w", err)
	}
	sort.Strings(env)

	hasher := blake3.New()
	for _, kv := range env {
		hasher.Write([]byte(kv))
		hasher.Write([]byte{0})
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Debug returns a formatted listing of every leaf value and the snapshot origin.
func (s *Snapshot) Debug() string {
	var b strings.Builder
	b.WriteString("Configuration Debug Info:\n")
	b.WriteString(fmt.Sprintf("Sources: %v\n", s.sources))
	b.WriteString("Files:\n")
	for _, f := range s.files {
		b.WriteString(fmt.Sprintf("  %s\n", f))
	}
	b.WriteString("Current values:\n")

	flat := flattenMap(s.data, "")
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		b.WriteString(fmt.Sprintf("  %s: %v (%s)\n", p, flat[p], KindOf(flat[p])))
	}

	return b.String()
}
