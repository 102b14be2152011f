// FILE: lixenwraith/layerconf/environment.go
package layerconf

import (
	"fmt"
	"os"
	"path/filepath"
)

// Process-level settings read from the environment. They steer where and
// how configuration is loaded and are never part of the configuration itself.
const (
	EnvConfigPath      = "PROJECT_CONFIG_PATH"
	EnvDataPath        = "PROJECT_DATA_PATH"
	EnvResourcesPath   = "PROJECT_RESOURCES_PATH"
	EnvVariablePrefix  = "PROJECT_VARIABLE_PREFIX"
	EnvLoadEnv         = "PROJECT_LOAD_ENV"
	EnvLoadYAML        = "PROJECT_LOAD_YAML"
	EnvLoadCommandLine = "PROJECT_LOAD_COMMAND_LINE"

	DefaultConfigPath     = "config"
	DefaultDataPath       = "data"
	DefaultResourcesPath  = "resources"
	DefaultVariablePrefix = "app"
)

// Environment holds the PROJECT_* process settings.
// Load flags are nil when the corresponding variable is unset.
type Environment struct {
	ConfigPath      string
	DataPath        string
	ResourcesPath   string
	VariablePrefix  string
	LoadEnv         *bool
	LoadYAML        *bool
	LoadCommandLine *bool
}

// ReadEnvironment reads the settings from the process environment.
func ReadEnvironment() (Environment, error) {
	return readEnvironment(os.LookupEnv)
}

func readEnvironment(lookup func(string) (string, bool)) (Environment, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}

	env := Environment{
		ConfigPath:     get(EnvConfigPath, DefaultConfigPath),
		DataPath:       get(EnvDataPath, DefaultDataPath),
		ResourcesPath:  get(EnvResourcesPath, DefaultResourcesPath),
		VariablePrefix: get(EnvVariablePrefix, DefaultVariablePrefix),
	}

	flags := []struct {
		key    string
		target **bool
	}{
		{EnvLoadEnv, &env.LoadEnv},
		{EnvLoadYAML, &env.LoadYAML},
		{EnvLoadCommandLine, &env.LoadCommandLine},
	}
	for _, f := range flags {
		v, ok := lookup(f.key)
		if !ok {
			continue
		}
		b, err := envAsBool(v)
		if err != nil {
			return Environment{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.target = &b
	}

	return env, nil
}

// ConfigDir returns ConfigPath resolved against the working directory.
func (e Environment) ConfigDir() (string, error) {
	return absFromCwd(e.ConfigPath)
}

// DataDir returns DataPath resolved against the working directory.
func (e Environment) DataDir() (string, error) {
	return absFromCwd(e.DataPath)
}

// ResourcesDir returns ResourcesPath resolved against the working directory.
func (e Environment) ResourcesDir() (string, error) {
	return absFromCwd(e.ResourcesPath)
}

func absFromCwd(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, p), nil
}

// envAsBool only accepts the exact literals "true" and "false".
func envAsBool(value string) (bool, error) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("boolean must be \"false\" or \"true\", got %q", value)
}
