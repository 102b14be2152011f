// FILE: lixenwraith/layerconf/convenience.go
package layerconf

import (
	"fmt"
)

// Load resolves the project configuration with the process settings and
// the given dimensions: YAML documents, then environment overrides,
// validated with DefaultRules.
func Load(dims ...Dimension) (*Snapshot, error) {
	return NewBuilder().
		FromEnvironment().
		WithDimensions(dims...).
		Build()
}

// MustLoad is like Load but panics on error
func MustLoad(dims ...Dimension) *Snapshot {
	snap, err := Load(dims...)
	if err != nil {
		panic(fmt.Sprintf("config load failed: %v", err))
	}
	return snap
}

// LoadFromCommandLine resolves the configuration the way command-line tools
// do: dimensions harvested from args ("--project_workspace dev") and
// command-line overrides ("--app_storage__temp_bucket tmp") on top of the
// environment, with sources recorded in the snapshot.
func LoadFromCommandLine(args []string, dims ...Dimension) (*Snapshot, error) {
	return NewBuilder().
		WithArgs(args).
		FromEnvironment().
		WithCommandLine(true).
		WithCommandLineDimensions(true).
		WithVerbose(true).
		WithDimensions(dims...).
		Build()
}
