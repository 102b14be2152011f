// File: lixenwraith/layerconf/io.go
package layerconf

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DumpFormat selects the serialization of Dump and Save.
type DumpFormat string

const (
	DumpYAML DumpFormat = "yaml"
	DumpTOML DumpFormat = "toml"
)

// DumpFileName is the conventional file name of a dumped configuration in the data directory.
const DumpFileName = "dumped_config.yml"

// ParseDumpFormat accepts "yaml", "yml" and "toml".
func ParseDumpFormat(s string) (DumpFormat, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return DumpYAML, nil
	case "toml":
		return DumpTOML, nil
	}
	return "", fmt.Errorf("unsupported dump format %q", s)
}

// Dump writes the snapshot with lower-case keys to w.
// YAML output starts with a document marker. TOML has no null, so null
// values are omitted from TOML output.
func (s *Snapshot) Dump(w io.Writer, format DumpFormat) error {
	data, err := s.marshal(format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (s *Snapshot) marshal(format DumpFormat) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case DumpYAML, "":
		buf.WriteString("---\n")
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(yamlFloats(s.AsMap())); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to YAML: %w", err)
		}
	case DumpTOML:
		if err := toml.NewEncoder(&buf).Encode(dropNulls(s.AsMap())); err != nil {
			return nil, fmt.Errorf("failed to marshal config data to TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dump format %q", format)
	}
	return buf.Bytes(), nil
}

// yamlFloat is an integral float written with a fractional part ("2.0"),
// so that it reloads as a float.
type yamlFloat float64

func (f yamlFloat) MarshalYAML() (any, error) {
	v := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if !strings.ContainsAny(v, ".e") {
		v += ".0"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: v}, nil
}

// yamlFloats wraps the finite integral floats of v in yamlFloat, in place.
func yamlFloats(v any) any {
	switch t := v.(type) {
	case float64:
		if !math.IsInf(t, 0) && !math.IsNaN(t) && t == math.Trunc(t) {
			return yamlFloat(t)
		}
	case map[string]any:
		for k, e := range t {
			t[k] = yamlFloats(e)
		}
	case []any:
		for i, e := range t {
			t[i] = yamlFloats(e)
		}
	}
	return v
}

func dropNulls(m map[string]any) map[string]any {
	for k, v := range m {
		switch t := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			dropNulls(t)
		case []any:
			for _, e := range t {
				if em, ok := e.(map[string]any); ok {
					dropNulls(em)
				}
			}
		}
	}
	return m
}

// Save writes the snapshot to path atomically.
func (s *Snapshot) Save(path string, format DumpFormat) error {
	data, err := s.marshal(format)
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data)
}

// LoadSnapshot reads a YAML document, such as one written by Save, into a snapshot.
// $ref entries are resolved as for any other document.
func LoadSnapshot(path string) (*Snapshot, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	snap, err := NewSnapshot(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	snap.files = []string{path}
	snap.sources = []Source{SourceYAML}
	return snap, nil
}

// atomicWriteFile performs atomic file write
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	tempPath := tempFile.Name()
	defer os.Remove(tempPath) // Clean up on any error

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
