// FILE: lixenwraith/layerconf/validate_test.go
package layerconf_test

import (
	"errors"
	"testing"

	"github.com/lixenwraith/layerconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() map[string]any {
	return map[string]any{
		"logging": map[string]any{
			"type":             "colored",
			"level":            "INFO",
			"message_format":   "%(message)s",
			"timestamp_format": "%H:%M:%S",
			"loggers":          map[string]any{"pipeline": "DEBUG", "storage": "WARNING"},
		},
		"storage": map[string]any{
			"scopes": []any{
				"https://www.googleapis.com/auth/devstorage.read_only",
				"https://www.googleapis.com/auth/devstorage.read_write",
			},
			"temp_bucket":    "tmp",
			"cache_bucket":   "cache",
			"authentication": "metadata",
		},
	}
}

func snapshotOf(t *testing.T, data map[string]any) *layerconf.Snapshot {
	t.Helper()
	snap, err := layerconf.NewSnapshot(data)
	require.NoError(t, err)
	return snap
}

func TestDefaultRules(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		assert.NoError(t, layerconf.Validate(snapshotOf(t, validConfig()), layerconf.DefaultRules()))
	})

	tests := []struct {
		name   string
		mutate func(cfg map[string]any)
		path   string
		reason string
	}{
		{
			"UnknownLevel",
			func(cfg map[string]any) { cfg["logging"].(map[string]any)["level"] = "TRACE" },
			"logging.level", "value not allowed",
		},
		{
			"UnknownType",
			func(cfg map[string]any) { cfg["logging"].(map[string]any)["type"] = "syslog" },
			"logging.type", "value not allowed",
		},
		{
			"MissingMessageFormat",
			func(cfg map[string]any) { delete(cfg["logging"].(map[string]any), "message_format") },
			"logging.message_format", "must exist",
		},
		{
			"MissingLoggingSection",
			func(cfg map[string]any) { delete(cfg, "logging") },
			"logging.type", "must exist",
		},
		{
			"UnknownLoggerLevel",
			func(cfg map[string]any) {
				cfg["logging"].(map[string]any)["loggers"] = map[string]any{"pipeline": "VERBOSE"}
			},
			"logging.loggers.pipeline", "value not allowed",
		},
		{
			"ScopesNotAList",
			func(cfg map[string]any) {
				cfg["storage"].(map[string]any)["scopes"] = "https://www.googleapis.com/auth/devstorage.read_only"
			},
			"storage.scopes", "wrong type",
		},
		{
			"UnknownScope",
			func(cfg map[string]any) {
				cfg["storage"].(map[string]any)["scopes"] = []any{
					"https://www.googleapis.com/auth/devstorage.read_only",
					"https://www.googleapis.com/auth/cloud-platform",
				}
			},
			"storage.scopes", "value not allowed",
		},
		{
			"NonStringBucket",
			func(cfg map[string]any) { cfg["storage"].(map[string]any)["temp_bucket"] = 5 },
			"storage.temp_bucket", "wrong type",
		},
		{
			"MissingCacheBucket",
			func(cfg map[string]any) { delete(cfg["storage"].(map[string]any), "cache_bucket") },
			"storage.cache_bucket", "must exist",
		},
		{
			"UnknownAuthentication",
			func(cfg map[string]any) { cfg["storage"].(map[string]any)["authentication"] = "google_default" },
			"storage.authentication", "value not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := layerconf.Validate(snapshotOf(t, cfg), layerconf.DefaultRules())
			require.Error(t, err)
			assert.True(t, errors.Is(err, layerconf.ErrValidation))

			var validationErr *layerconf.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.path, validationErr.Path)
			assert.Equal(t, tt.reason, validationErr.Reason)
		})
	}

	t.Run("ErrorMessage", func(t *testing.T) {
		cfg := validConfig()
		cfg["logging"].(map[string]any)["level"] = "TRACE"
		err := layerconf.Validate(snapshotOf(t, cfg), layerconf.DefaultRules())
		assert.EqualError(t, err, "logging.level: value not allowed (expected one of [DEBUG, INFO, WARNING, ERROR, CRITICAL], got TRACE)")
	})

	t.Run("MissingStorageSection", func(t *testing.T) {
		cfg := validConfig()
		delete(cfg, "storage")
		err := layerconf.Validate(snapshotOf(t, cfg), layerconf.DefaultRules())

		var validationErr *layerconf.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "storage.temp_bucket", validationErr.Path)
	})
}

func TestCustomRules(t *testing.T) {
	snap := snapshotOf(t, map[string]any{
		"service": map[string]any{
			"ports":   []any{80, 443},
			"ratio":   1.0,
			"mode":    nil,
			"regions": map[string]any{"eu": "on", "us": "off"},
		},
	})

	tests := []struct {
		name  string
		rules []layerconf.Rule
		fails bool
	}{
		{"ElementType", []layerconf.Rule{{Path: "service.ports", Type: layerconf.KindInt}}, false},
		{"ElementTypeMismatch", []layerconf.Rule{{Path: "service.ports", Type: layerconf.KindString}}, true},
		{"ElementDomain", []layerconf.Rule{{Path: "service.ports", OneOf: []any{80, 443, 8080}}}, false},
		{"ElementOutsideDomain", []layerconf.Rule{{Path: "service.ports", OneOf: []any{80}}}, true},
		{"FloatDomain", []layerconf.Rule{{Path: "service.ratio", OneOf: []any{0.5, 1.0}}}, false},
		{"NoCrossKindEquality", []layerconf.Rule{{Path: "service.ratio", OneOf: []any{1}}}, true},
		{"NullExists", []layerconf.Rule{{Path: "service.mode", MustExist: true}}, false},
		{"NullType", []layerconf.Rule{{Path: "service.mode", Type: layerconf.KindNull}}, false},
		{"AbsentOptional", []layerconf.Rule{{Path: "service.absent", Type: layerconf.KindString}}, false},
		{"CaseInsensitivePath", []layerconf.Rule{{Path: "SERVICE.Ratio", MustExist: true}}, false},
		{"PatternDomain", []layerconf.Rule{{Path: `^service\.regions\.`, OneOf: []any{"on", "off"}}}, false},
		{"PatternViolation", []layerconf.Rule{{Path: `^service\.regions\.`, OneOf: []any{"on"}}}, true},
		{"PatternMustMatch", []layerconf.Rule{{Path: `^service\.zones\.`, MustExist: true}}, true},
		{"PatternNoMatch", []layerconf.Rule{{Path: `^service\.zones\.`, OneOf: []any{"on"}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := layerconf.Validate(snap, tt.rules)
			if tt.fails {
				assert.True(t, errors.Is(err, layerconf.ErrValidation), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("InvalidPattern", func(t *testing.T) {
		err := layerconf.Validate(snap, []layerconf.Rule{{Path: `^service\.(`}})
		require.Error(t, err)
		assert.False(t, errors.Is(err, layerconf.ErrValidation))
	})

	t.Run("FirstViolationWins", func(t *testing.T) {
		err := layerconf.Validate(snap, []layerconf.Rule{
			{Path: "service.absent", MustExist: true},
			{Path: "service.ratio", Type: layerconf.KindString},
		})
		var validationErr *layerconf.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "service.absent", validationErr.Path)
		assert.EqualError(t, err, "service.absent: must exist")
	})
}
