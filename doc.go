// File: lixenwraith/layerconf/doc.go

// Package layerconf resolves a project configuration from layered sources:
// YAML documents selected by dimensions, environment variables and
// command-line arguments, merged into one immutable, validated Snapshot.
//
// Features:
//   - Dimension-based document selection (config/workspace-dev.yml, config/logging-local.yml)
//   - Cross-file references with $ref and private x- annotation keys
//   - Per-kind merge policies (FIRST, LAST, UNION) with strict type checks
//   - Tagged value tokens (@int, @float, @bool, @str, @none, @json, @yaml_file)
//   - Rule validation with element-wise domains for lists
//   - Lossless export back to environment variables or arguments for child processes
//   - Typed access and struct decoding with yaml tags
//
// Quick Start:
//
//	snap, err := layerconf.NewBuilder().
//	    WithConfigDir("config").
//	    WithDimension("workspace", "dev").
//	    WithDimension("logging", "local").
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	level, _ := snap.String("logging.level")
//	bucket, _ := snap.String("storage.temp_bucket")
//
// Precedence (highest to lowest):
//  1. Command-line arguments (--app_storage__temp_bucket tmp), when enabled
//  2. Environment variables (APP_STORAGE__TEMP_BUCKET=tmp)
//  3. Dimension documents, in order, over project.yml
//  4. Struct defaults, when given
//
// Dimensions come from PROJECT_DIMENSION_<NAME> variables, explicit builder
// values and, when enabled, --project_<name> arguments, in increasing
// priority. The workspace and logging dimensions are required.
//
// Exporting:
//
//	env, err := (&layerconf.Exporter{}).Environ(snap)
//	cmd := exec.Command("worker")
//	cmd.Env = append(os.Environ(), env...)
//
// Thread Safety:
// A Snapshot is never modified after Build returns and may be shared freely.
// A Builder is single-use and not safe for concurrent use.
package layerconf
