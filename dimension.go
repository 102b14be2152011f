// FILE: lixenwraith/layerconf/dimension.go
package layerconf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DimensionWorkspace selects config/workspace-<value>.yml
	DimensionWorkspace = "workspace"
	// DimensionLogging selects config/logging-<value>.yml
	DimensionLogging = "logging"

	// DefaultDimensionEnvPrefix introduces dimension overrides in the environment,
	// e.g. PROJECT_DIMENSION_WORKSPACE=dev.
	DefaultDimensionEnvPrefix = "PROJECT_DIMENSION_"

	// ProjectFile is always loaded first from the config directory.
	ProjectFile = "project.yml"
)

// Dimension is a named axis whose value selects one configuration document.
type Dimension struct {
	Name  string
	Value string
}

// RequiredDimensions returns the dimensions every YAML resolution must resolve.
func RequiredDimensions() []string {
	return []string{DimensionWorkspace, DimensionLogging}
}

// FileResolver computes the ordered list of documents for a set of dimensions.
type FileResolver struct {
	ConfigDir string
	EnvPrefix string          // defaults to DefaultDimensionEnvPrefix
	Required  []string        // defaults to RequiredDimensions()
	Environ   func() []string // defaults to os.Environ
}

// ResolveFiles resolves documents in configDir for explicit dims, with
// environment overrides taken from the process environment.
func ResolveFiles(configDir string, dims ...Dimension) ([]string, error) {
	r := &FileResolver{ConfigDir: configDir}
	return r.Resolve(dims...)
}

// Resolve returns the project file followed by one file per dimension:
// required dimensions first, in declared order, then the others in
// registration order. Explicit dims override environment values.
func (r *FileResolver) Resolve(dims ...Dimension) ([]string, error) {
	info, err := os.Stat(r.ConfigDir)
	switch {
	case err != nil && os.IsNotExist(err):
		return nil, &FileNotFoundError{Path: r.ConfigDir, Reason: "config path does not exist"}
	case err != nil:
		return nil, fmt.Errorf("failed to check config path '%s': %w", r.ConfigDir, err)
	case !info.IsDir():
		return nil, &FileNotFoundError{Path: r.ConfigDir, Reason: "config path is not a dir"}
	}

	var order []string
	values := make(map[string]string)
	register := func(d Dimension) {
		if d.Value == "" {
			return
		}
		if _, seen := values[d.Name]; !seen {
			order = append(order, d.Name)
		}
		values[d.Name] = d.Value
	}

	envDims, err := r.environmentDimensions()
	if err != nil {
		return nil, err
	}
	for _, d := range envDims {
		register(d)
	}
	for _, d := range dims {
		if err := checkDimension(d); err != nil {
			return nil, err
		}
		register(d)
	}

	required := r.Required
	if required == nil {
		required = RequiredDimensions()
	}
	isRequired := make(map[string]bool, len(required))
	for _, name := range required {
		isRequired[name] = true
		if values[name] == "" {
			return nil, &MissingDimensionError{Name: name}
		}
	}

	files := []string{filepath.Join(r.ConfigDir, ProjectFile)}
	for _, name := range required {
		files = append(files, r.dimensionFile(name, values[name]))
	}
	for _, name := range order {
		if !isRequired[name] {
			files = append(files, r.dimensionFile(name, values[name]))
		}
	}

	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil, &FileNotFoundError{Path: path}
		}
	}
	return files, nil
}

func (r *FileResolver) dimensionFile(name, value string) string {
	return filepath.Join(r.ConfigDir, name+"-"+value+".yml")
}

// environmentDimensions collects PROJECT_DIMENSION_<NAME>=<value> pairs, sorted by name.
func (r *FileResolver) environmentDimensions() ([]Dimension, error) {
	prefix := r.EnvPrefix
	if prefix == "" {
		prefix = DefaultDimensionEnvPrefix
	}
	environ := r.Environ
	if environ == nil {
		environ = os.Environ
	}

	var dims []Dimension
	for _, kv := range environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		d := Dimension{Name: strings.ToLower(strings.TrimPrefix(key, prefix)), Value: value}
		if err := checkDimension(d); err != nil {
			return nil, fmt.Errorf("environment variable %s: %w", key, err)
		}
		dims = append(dims, d)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].Name < dims[j].Name })
	return dims, nil
}

// checkDimension rejects names and values that are not plain file name parts.
// An empty value means the dimension is unset.
func checkDimension(d Dimension) error {
	for i, s := range []string{d.Name, d.Value} {
		if i == 1 && s == "" {
			continue
		}
		if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
			return &InvalidKeyError{Source: "dimension", Key: d.Name + "=" + d.Value,
				Reason: "dimension names and values must be non-empty file name parts"}
		}
	}
	return nil
}
