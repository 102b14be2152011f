// FILE: lixenwraith/layerconf/discovery.go
package layerconf

import (
	"os"
	"path/filepath"
	"strings"
)

// DirDiscoveryOptions configures how the configuration directory is located
type DirDiscoveryOptions struct {
	// Relative name of the config directory (e.g., "config")
	Name string

	// CLI flag holding an explicit directory (e.g., "--config-dir")
	CLIFlag string

	// Environment variable holding the relative directory name
	EnvVar string

	// Directory the upward search starts from; empty means the working directory
	StartDir string

	// Whether to walk up parent directories looking for <Name>/project.yml
	WalkUp bool

	// Reads EnvVar; nil means os.LookupEnv
	LookupEnv func(string) (string, bool)
}

// DefaultDirDiscoveryOptions returns the standard discovery settings
func DefaultDirDiscoveryOptions() DirDiscoveryOptions {
	return DirDiscoveryOptions{
		Name:    DefaultConfigPath,
		CLIFlag: "--config-dir",
		EnvVar:  EnvConfigPath,
		WalkUp:  true,
	}
}

// DiscoverConfigDir returns the first directory that holds project.yml:
// an explicit CLI flag wins, then the environment variable name, then the
// configured name searched from StartDir upwards. When nothing is found the
// unresolved candidate is returned so that the resolver can report it.
func DiscoverConfigDir(args []string, opts DirDiscoveryOptions) string {
	if opts.CLIFlag != "" {
		for i, arg := range args {
			if arg == opts.CLIFlag && i+1 < len(args) {
				return args[i+1]
			}
			if strings.HasPrefix(arg, opts.CLIFlag+"=") {
				return strings.TrimPrefix(arg, opts.CLIFlag+"=")
			}
		}
	}

	name := opts.Name
	if opts.EnvVar != "" {
		lookup := opts.LookupEnv
		if lookup == nil {
			lookup = os.LookupEnv
		}
		if v, ok := lookup(opts.EnvVar); ok && v != "" {
			name = v
		}
	}
	if name == "" {
		name = DefaultConfigPath
	}
	if filepath.IsAbs(name) {
		return name
	}

	start := opts.StartDir
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return name
		}
		start = cwd
	}

	candidate := filepath.Join(start, name)
	if !opts.WalkUp {
		return candidate
	}

	for dir := start; ; {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(filepath.Join(path, ProjectFile)); err == nil && info.Mode().IsRegular() {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return candidate
}
