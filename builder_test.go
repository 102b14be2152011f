// FILE: lixenwraith/layerconf/builder_test.go
package layerconf_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lixenwraith/layerconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var projectDocuments = map[string]string{
	"project.yml": `
storage:
  scopes:
    - https://www.googleapis.com/auth/devstorage.read_only
  temp_bucket: project-tmp
  cache_bucket: project-cache
  authentication: default
pipeline:
  workers: 2
  tags: [a]
x-notes: stripped
`,
	"workspace-dev.yml": `
storage:
  temp_bucket: dev-tmp
pipeline:
  tags: [b]
`,
	"workspace-prod.yml": `
storage:
  temp_bucket: prod-tmp
`,
	"logging-local.yml": `
logging:
  type: default
  level: INFO
  message_format: "%(levelname)s %(message)s"
  timestamp_format: "%H:%M:%S"
  loggers:
    pipeline: DEBUG
`,
}

// writeConfig creates a config directory holding the given documents
func writeConfig(t *testing.T, documents map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range documents {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

// newTestBuilder returns a hermetic builder over dir with the dev/local dimensions
func newTestBuilder(dir string, environ ...string) *layerconf.Builder {
	if environ == nil {
		environ = []string{}
	}
	return layerconf.NewBuilder().
		WithConfigDir(dir).
		WithEnviron(environ).
		WithArgs(nil).
		WithErrorOutput(&bytes.Buffer{}).
		WithDimension(layerconf.DimensionWorkspace, "dev").
		WithDimension(layerconf.DimensionLogging, "local")
}

func TestBuilderResolution(t *testing.T) {
	dir := writeConfig(t, projectDocuments)

	t.Run("DocumentsMergedInOrder", func(t *testing.T) {
		snap, err := newTestBuilder(dir).Build()
		require.NoError(t, err)

		bucket, err := snap.String("storage.temp_bucket")
		require.NoError(t, err)
		assert.Equal(t, "dev-tmp", bucket)

		tags, err := snap.StringSlice("pipeline.tags")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, tags)

		assert.False(t, snap.Has("x-notes"))
		assert.Equal(t, []string{
			filepath.Join(dir, "project.yml"),
			filepath.Join(dir, "workspace-dev.yml"),
			filepath.Join(dir, "logging-local.yml"),
		}, snap.Files())
		assert.Equal(t, []layerconf.Source{layerconf.SourceYAML, layerconf.SourceEnv}, snap.Sources())
	})

	t.Run("Precedence", func(t *testing.T) {
		snap, err := newTestBuilder(dir,
			"APP_PIPELINE__WORKERS=8",
			"APP_PIPELINE__TAGS=['c']",
			"APP_STORAGE__TEMP_BUCKET=env-tmp",
		).
			WithCommandLine(true).
			WithArgs([]string{"run", "--app_pipeline__workers", "16"}).
			Build()
		require.NoError(t, err)

		workers, err := snap.Int64("pipeline.workers")
		require.NoError(t, err)
		assert.Equal(t, int64(16), workers)

		tags, err := snap.StringSlice("pipeline.tags")
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, tags, "override layers replace lists")

		bucket, err := snap.String("storage.temp_bucket")
		require.NoError(t, err)
		assert.Equal(t, "env-tmp", bucket)

		assert.Equal(t, []layerconf.Source{layerconf.SourceYAML, layerconf.SourceEnv, layerconf.SourceCLI}, snap.Sources())
	})

	t.Run("EnvironmentDimensions", func(t *testing.T) {
		snap, err := layerconf.NewBuilder().
			WithConfigDir(dir).
			WithEnviron([]string{"PROJECT_DIMENSION_WORKSPACE=prod", "PROJECT_DIMENSION_LOGGING=local"}).
			WithArgs(nil).
			Build()
		require.NoError(t, err)

		bucket, _ := snap.String("storage.temp_bucket")
		assert.Equal(t, "prod-tmp", bucket)
	})

	t.Run("CommandLineDimensions", func(t *testing.T) {
		snap, err := layerconf.NewBuilder().
			WithConfigDir(dir).
			WithEnviron([]string{"PROJECT_DIMENSION_WORKSPACE=dev"}).
			WithArgs([]string{"--project_workspace", "prod", "--project_logging", "local"}).
			WithCommandLineDimensions(true).
			WithDimension(layerconf.DimensionWorkspace, "dev").
			Build()
		require.NoError(t, err)

		bucket, _ := snap.String("storage.temp_bucket")
		assert.Equal(t, "prod-tmp", bucket, "command-line dimensions override explicit ones")
	})

	t.Run("VerboseKeys", func(t *testing.T) {
		snap, err := newTestBuilder(dir).WithVerbose(true).Build()
		require.NoError(t, err)

		sources, err := snap.StringSlice(layerconf.KeyLoadedSources)
		require.NoError(t, err)
		assert.Equal(t, []string{"yaml", "env"}, sources)

		files, err := snap.StringSlice(layerconf.KeyLoadedFiles)
		require.NoError(t, err)
		assert.Len(t, files, 3)
	})

	t.Run("Defaults", func(t *testing.T) {
		type pipelineDefaults struct {
			Workers int    `yaml:"workers"`
			Retries int    `yaml:"retries"`
			Queue   string `yaml:"queue"`
		}
		type defaults struct {
			Pipeline pipelineDefaults `yaml:"pipeline"`
		}

		snap, err := newTestBuilder(dir).
			WithDefaults(defaults{Pipeline: pipelineDefaults{Workers: 1, Retries: 3, Queue: "jobs"}}).
			Build()
		require.NoError(t, err)

		workers, _ := snap.Int64("pipeline.workers")
		retries, _ := snap.Int64("pipeline.retries")
		queue, _ := snap.String("pipeline.queue")
		assert.Equal(t, int64(2), workers)
		assert.Equal(t, int64(3), retries)
		assert.Equal(t, "jobs", queue)
		assert.Equal(t, layerconf.SourceDefault, snap.Sources()[0])
	})

	t.Run("EnvironmentOnly", func(t *testing.T) {
		snap, err := layerconf.NewBuilder().
			WithYAML(false).
			WithRules().
			WithEnviron([]string{"APP_SERVICE__NAME=api", "APP_SERVICE__PORT=8080"}).
			WithArgs(nil).
			Build()
		require.NoError(t, err)

		assert.Equal(t, []string{"SERVICE"}, snap.Keys())
		assert.Empty(t, snap.Files())
		port, _ := snap.Int64("service.port")
		assert.Equal(t, int64(8080), port)
	})

	t.Run("BuildAndScan", func(t *testing.T) {
		var cfg struct {
			Storage struct {
				TempBucket string   `yaml:"temp_bucket"`
				Scopes     []string `yaml:"scopes"`
			} `yaml:"storage"`
			Pipeline struct {
				Workers int `yaml:"workers"`
			} `yaml:"pipeline"`
		}

		require.NoError(t, newTestBuilder(dir, "APP_PIPELINE__WORKERS=6").BuildAndScan(&cfg))
		assert.Equal(t, "dev-tmp", cfg.Storage.TempBucket)
		assert.Equal(t, []string{"https://www.googleapis.com/auth/devstorage.read_only"}, cfg.Storage.Scopes)
		assert.Equal(t, 6, cfg.Pipeline.Workers)
	})
}

func TestBuilderFromEnvironment(t *testing.T) {
	dir := writeConfig(t, projectDocuments)

	snap, err := layerconf.NewBuilder().
		WithEnviron([]string{
			"PROJECT_CONFIG_PATH=" + dir,
			"PROJECT_VARIABLE_PREFIX=svc",
			"PROJECT_LOAD_COMMAND_LINE=true",
			"PROJECT_DIMENSION_WORKSPACE=dev",
			"PROJECT_DIMENSION_LOGGING=local",
			"SVC_PIPELINE__WORKERS=5",
			"APP_PIPELINE__WORKERS=99",
		}).
		WithArgs([]string{"--svc_pipeline__retries", "2"}).
		FromEnvironment().
		Build()
	require.NoError(t, err)

	workers, _ := snap.Int64("pipeline.workers")
	retries, _ := snap.Int64("pipeline.retries")
	assert.Equal(t, int64(5), workers)
	assert.Equal(t, int64(2), retries)
	assert.Equal(t, []layerconf.Source{layerconf.SourceYAML, layerconf.SourceEnv, layerconf.SourceCLI}, snap.Sources())

	t.Run("DiscoveredConfigDir", func(t *testing.T) {
		root := t.TempDir()
		configDir := filepath.Join(root, "config")
		workDir := filepath.Join(root, "services", "worker")
		require.NoError(t, os.MkdirAll(configDir, 0755))
		require.NoError(t, os.MkdirAll(workDir, 0755))
		for name, content := range projectDocuments {
			require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0644))
		}
		t.Chdir(workDir)

		snap, err := layerconf.NewBuilder().
			WithEnviron([]string{
				"PROJECT_DIMENSION_WORKSPACE=dev",
				"PROJECT_DIMENSION_LOGGING=local",
			}).
			WithArgs(nil).
			WithErrorOutput(&bytes.Buffer{}).
			FromEnvironment().
			Build()
		require.NoError(t, err)

		files := snap.Files()
		require.NotEmpty(t, files)
		assert.True(t, strings.HasSuffix(files[0], filepath.Join("config", "project.yml")), files[0])
		bucket, _ := snap.String("storage.temp_bucket")
		assert.Equal(t, "dev-tmp", bucket)
	})

	t.Run("InvalidSetting", func(t *testing.T) {
		var errOut bytes.Buffer
		_, err := layerconf.NewBuilder().
			WithEnviron([]string{"PROJECT_LOAD_ENV=yes"}).
			WithErrorOutput(&errOut).
			FromEnvironment().
			Build()
		require.Error(t, err)
		assert.Contains(t, errOut.String(), "PROJECT_LOAD_ENV")
	})
}

func TestBuilderFailures(t *testing.T) {
	dir := writeConfig(t, projectDocuments)

	t.Run("MissingDimension", func(t *testing.T) {
		var errOut bytes.Buffer
		b := layerconf.NewBuilder().
			WithConfigDir(dir).
			WithEnviron([]string{}).
			WithArgs(nil).
			WithErrorOutput(&errOut).
			WithDimension(layerconf.DimensionWorkspace, "dev")

		_, err := b.Build()
		require.Error(t, err)
		assert.True(t, errors.Is(err, layerconf.ErrMissingDimension))
		assert.Equal(t, layerconf.StateFailed, b.State())

		var resolveErr *layerconf.ResolveError
		require.True(t, errors.As(err, &resolveErr))
		assert.Equal(t, []string{"yaml", "env"}, resolveErr.Sources)
		assert.True(t, strings.HasPrefix(errOut.String(), "CRITICAL: failed to read configuration [yaml, env]: "))
		assert.True(t, strings.HasSuffix(errOut.String(), ".\n"))
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		var errOut bytes.Buffer
		_, err := newTestBuilder(dir, "APP_LOGGING__LEVEL=TRACE").WithErrorOutput(&errOut).Build()
		require.Error(t, err)

		var validationErr *layerconf.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "logging.level", validationErr.Path)
		assert.Equal(t, "TRACE", validationErr.Value)
		assert.Contains(t, errOut.String(), filepath.Join(dir, "project.yml"))

		snap, err := newTestBuilder(dir, "APP_LOGGING__LEVEL=TRACE").WithValidation(false).Build()
		require.NoError(t, err)
		level, _ := snap.String("logging.level")
		assert.Equal(t, "TRACE", level)
	})

	t.Run("TypeMismatchAcrossLayers", func(t *testing.T) {
		_, err := newTestBuilder(dir, "APP_PIPELINE=5").Build()
		assert.True(t, errors.Is(err, layerconf.ErrMergeType))
	})

	t.Run("MalformedToken", func(t *testing.T) {
		_, err := newTestBuilder(dir, "APP_PIPELINE__WORKERS=@int many").Build()
		assert.True(t, errors.Is(err, layerconf.ErrParse))
	})

	t.Run("MissingConfigDir", func(t *testing.T) {
		_, err := newTestBuilder(filepath.Join(dir, "absent")).Build()
		assert.True(t, errors.Is(err, layerconf.ErrFileNotFound))
	})

	t.Run("CustomValidator", func(t *testing.T) {
		errTooFew := errors.New("too few workers")
		_, err := newTestBuilder(dir).
			WithValidator(func(s *layerconf.Snapshot) error {
				if n, _ := s.Int64("pipeline.workers"); n < 4 {
					return errTooFew
				}
				return nil
			}).
			Build()
		assert.True(t, errors.Is(err, errTooFew))
	})

	t.Run("SingleUse", func(t *testing.T) {
		b := newTestBuilder(dir)
		assert.Equal(t, layerconf.StateUninitialized, b.State())

		_, err := b.Build()
		require.NoError(t, err)
		assert.Equal(t, layerconf.StateValidated, b.State())

		_, err = b.Build()
		assert.ErrorIs(t, err, layerconf.ErrBuilderUsed)
	})

	t.Run("ReservedKey", func(t *testing.T) {
		for _, verbose := range []bool{false, true} {
			_, err := newTestBuilder(dir, "APP_LOADED_SOURCES=mine").WithVerbose(verbose).Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, layerconf.ErrInvalidKey), "got %v", err)
		}
	})

	t.Run("MustBuildPanics", func(t *testing.T) {
		assert.Panics(t, func() {
			newTestBuilder(filepath.Join(dir, "absent")).MustBuild()
		})
	})
}

func TestLoadFromCommandLine(t *testing.T) {
	dir := writeConfig(t, projectDocuments)
	t.Setenv(layerconf.EnvConfigPath, dir)
	t.Setenv("APP_PIPELINE__WORKERS", "7")

	snap, err := layerconf.LoadFromCommandLine([]string{
		"--project_workspace", "dev",
		"--project_logging", "local",
		"--app_storage__temp_bucket", "cli-tmp",
	})
	require.NoError(t, err)

	bucket, _ := snap.String("storage.temp_bucket")
	workers, _ := snap.Int64("pipeline.workers")
	assert.Equal(t, "cli-tmp", bucket)
	assert.Equal(t, int64(7), workers)
	assert.True(t, snap.Has(layerconf.KeyLoadedFiles))
}
