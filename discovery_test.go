// FILE: lixenwraith/layerconf/discovery_test.go
package layerconf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscoverConfigDir(t *testing.T) {
	t.Run("CLIFlag", func(t *testing.T) {
		opts := DefaultDirDiscoveryOptions()
		assert.Equal(t, "/etc/app", DiscoverConfigDir([]string{"--config-dir", "/etc/app"}, opts))
		assert.Equal(t, "/etc/app", DiscoverConfigDir([]string{"--x", "--config-dir=/etc/app"}, opts))
	})

	t.Run("WalkUp", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, map[string]string{"config/project.yml": "{}\n"})
		start := filepath.Join(root, "a", "b")
		writeFiles(t, start, map[string]string{"placeholder": ""})

		opts := DefaultDirDiscoveryOptions()
		opts.EnvVar = ""
		opts.StartDir = start
		assert.Equal(t, filepath.Join(root, "config"), DiscoverConfigDir(nil, opts))

		opts.WalkUp = false
		assert.Equal(t, filepath.Join(start, "config"), DiscoverConfigDir(nil, opts))
	})

	t.Run("EnvironmentName", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, map[string]string{"settings/project.yml": "{}\n"})
		t.Setenv(EnvConfigPath, "settings")

		opts := DefaultDirDiscoveryOptions()
		opts.StartDir = root
		assert.Equal(t, filepath.Join(root, "settings"), DiscoverConfigDir(nil, opts))

		t.Setenv(EnvConfigPath, "/abs/conf")
		assert.Equal(t, "/abs/conf", DiscoverConfigDir(nil, opts))
	})

	t.Run("LookupEnv", func(t *testing.T) {
		root := t.TempDir()
		writeFiles(t, root, map[string]string{"conf/project.yml": "{}\n"})
		t.Setenv(EnvConfigPath, "ignored")

		opts := DefaultDirDiscoveryOptions()
		opts.StartDir = root
		opts.LookupEnv = lookupFrom(map[string]string{EnvConfigPath: "conf"})
		assert.Equal(t, filepath.Join(root, "conf"), DiscoverConfigDir(nil, opts))
	})

	t.Run("NotFound", func(t *testing.T) {
		start := t.TempDir()
		opts := DefaultDirDiscoveryOptions()
		opts.EnvVar = ""
		opts.StartDir = start
		assert.Equal(t, filepath.Join(start, "config"), DiscoverConfigDir(nil, opts))
	})
}
