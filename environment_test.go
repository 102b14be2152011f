// FILE: lixenwraith/layerconf/environment_test.go
package layerconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestReadEnvironment(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		env, err := readEnvironment(lookupFrom(nil))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfigPath, env.ConfigPath)
		assert.Equal(t, DefaultDataPath, env.DataPath)
		assert.Equal(t, DefaultResourcesPath, env.ResourcesPath)
		assert.Equal(t, DefaultVariablePrefix, env.VariablePrefix)
		assert.Nil(t, env.LoadEnv)
		assert.Nil(t, env.LoadYAML)
		assert.Nil(t, env.LoadCommandLine)
	})

	t.Run("Overrides", func(t *testing.T) {
		env, err := readEnvironment(lookupFrom(map[string]string{
			EnvConfigPath:      "etc/conf",
			EnvVariablePrefix:  "svc",
			EnvDataPath:        "",
			EnvLoadYAML:        "false",
			EnvLoadCommandLine: "true",
		}))
		require.NoError(t, err)
		assert.Equal(t, "etc/conf", env.ConfigPath)
		assert.Equal(t, "svc", env.VariablePrefix)
		assert.Equal(t, DefaultDataPath, env.DataPath)
		require.NotNil(t, env.LoadYAML)
		assert.False(t, *env.LoadYAML)
		require.NotNil(t, env.LoadCommandLine)
		assert.True(t, *env.LoadCommandLine)
		assert.Nil(t, env.LoadEnv)
	})

	t.Run("StrictBooleans", func(t *testing.T) {
		for _, v := range []string{"1", "True", "yes", ""} {
			_, err := readEnvironment(lookupFrom(map[string]string{EnvLoadEnv: v}))
			assert.Error(t, err, v)
		}
	})

	t.Run("Directories", func(t *testing.T) {
		cwd, err := os.Getwd()
		require.NoError(t, err)

		env := Environment{ConfigPath: "conf", DataPath: "/var/data", ResourcesPath: "res"}
		dir, err := env.ConfigDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cwd, "conf"), dir)

		dir, err = env.DataDir()
		require.NoError(t, err)
		assert.Equal(t, "/var/data", dir)

		dir, err = env.ResourcesDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cwd, "res"), dir)
	})
}
