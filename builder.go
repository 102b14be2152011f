// File: lixenwraith/layerconf/builder.go
package layerconf

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ValidatorFunc defines the signature for a function that can validate a Snapshot.
// It receives the merged snapshot and should return an error if validation fails.
type ValidatorFunc func(s *Snapshot) error

// State is the lifecycle position of a Builder.
type State int

const (
	StateUninitialized State = iota
	StateSourcesCollected
	StateMerged
	StateValidated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateSourcesCollected:
		return "SOURCES_COLLECTED"
	case StateMerged:
		return "MERGED"
	case StateValidated:
		return "VALIDATED"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DefaultDimensionArgPrefix introduces dimensions on the command line,
// e.g. --project_workspace dev.
const DefaultDimensionArgPrefix = "--project_"

// Builder provides a fluent interface for resolving a configuration.
// YAML documents form the base layer, environment variables override
// them and command-line arguments override both. Optional struct defaults
// sit below YAML. A Builder is single-use.
type Builder struct {
	loadEnv           bool
	loadYAML          bool
	loadCommandLine   bool
	loadCLIDimensions bool
	validate          bool
	verbose           bool

	configDir          string
	variablePrefix     string
	dimensionArgPrefix string
	dims               []Dimension
	defaults           any
	args               []string
	environ            []string
	rules              []Rule
	validators         []ValidatorFunc
	merger             Merger
	overrideMerger     Merger
	parser             *Parser
	logger             *slog.Logger
	errOut             io.Writer

	state State
	used  bool
	err   error
}

// NewBuilder creates a builder with env and YAML loading and validation enabled
func NewBuilder() *Builder {
	return &Builder{
		loadEnv:            true,
		loadYAML:           true,
		validate:           true,
		variablePrefix:     DefaultVariablePrefix,
		dimensionArgPrefix: DefaultDimensionArgPrefix,
		args:               os.Args[1:],
		merger:             DefaultMerger(),
		overrideMerger:     OverrideMerger(),
		parser:             defaultParser,
		logger:             discardLogger,
		errOut:             os.Stderr,
	}
}

// WithEnv enables or disables environment variable loading
func (b *Builder) WithEnv(enabled bool) *Builder {
	b.loadEnv = enabled
	return b
}

// WithYAML enables or disables YAML document loading
func (b *Builder) WithYAML(enabled bool) *Builder {
	b.loadYAML = enabled
	return b
}

// WithCommandLine enables or disables command-line argument loading
func (b *Builder) WithCommandLine(enabled bool) *Builder {
	b.loadCommandLine = enabled
	return b
}

// WithCommandLineDimensions enables harvesting dimensions from the command line
func (b *Builder) WithCommandLineDimensions(enabled bool) *Builder {
	b.loadCLIDimensions = enabled
	return b
}

// WithValidation enables or disables rule validation
func (b *Builder) WithValidation(enabled bool) *Builder {
	b.validate = enabled
	return b
}

// WithVerbose records loaded sources and files in the snapshot
func (b *Builder) WithVerbose(enabled bool) *Builder {
	b.verbose = enabled
	return b
}

// WithDimension sets one dimension value, replacing an earlier one of the same name
func (b *Builder) WithDimension(name, value string) *Builder {
	b.dims = append(b.dims, Dimension{Name: name, Value: value})
	return b
}

// WithDimensions appends dimensions in order
func (b *Builder) WithDimensions(dims ...Dimension) *Builder {
	b.dims = append(b.dims, dims...)
	return b
}

// WithConfigDir sets the directory holding project.yml and dimension documents
func (b *Builder) WithConfigDir(dir string) *Builder {
	b.configDir = dir
	return b
}

// WithVariablePrefix sets the prefix of environment variables and arguments
func (b *Builder) WithVariablePrefix(prefix string) *Builder {
	b.variablePrefix = prefix
	return b
}

// WithDimensionArgPrefix sets the command-line prefix dimensions are harvested from
func (b *Builder) WithDimensionArgPrefix(prefix string) *Builder {
	b.dimensionArgPrefix = prefix
	return b
}

// WithArgs sets the command-line arguments
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithEnviron replaces the process environment as "KEY=value" pairs
func (b *Builder) WithEnviron(environ []string) *Builder {
	b.environ = environ
	return b
}

// WithRules replaces DefaultRules
func (b *Builder) WithRules(rules ...Rule) *Builder {
	b.rules = append([]Rule{}, rules...)
	return b
}

// WithValidator adds a validation function that runs after the rules.
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// WithMerger sets the policy used between YAML documents
func (b *Builder) WithMerger(m Merger) *Builder {
	b.merger = m
	return b
}

// WithOverrideMerger sets the policy used to apply env and command-line layers
func (b *Builder) WithOverrideMerger(m Merger) *Builder {
	b.overrideMerger = m
	return b
}

// WithParser sets the parser for environment and command-line tokens
func (b *Builder) WithParser(p *Parser) *Builder {
	if p != nil {
		b.parser = p
	}
	return b
}

// WithLogger sets the logger for load progress and warnings
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithErrorOutput sets where the critical failure line is written; nil disables it
func (b *Builder) WithErrorOutput(w io.Writer) *Builder {
	b.errOut = w
	return b
}

// FromEnvironment applies the PROJECT_* process settings: config path,
// variable prefix and the load flags that are set. Without PROJECT_CONFIG_PATH
// the config directory is left to discovery at build time.
func (b *Builder) FromEnvironment() *Builder {
	lookup := os.LookupEnv
	if b.environ != nil {
		lookup = environLookup(b.environ)
	}
	env, err := readEnvironment(lookup)
	if err != nil {
		b.err = fmt.Errorf("failed to read process settings: %w", err)
		return b
	}

	if v, ok := lookup(EnvConfigPath); ok && v != "" {
		dir, err := env.ConfigDir()
		if err != nil {
			b.err = err
			return b
		}
		b.configDir = dir
	}
	b.variablePrefix = env.VariablePrefix
	if env.LoadEnv != nil {
		b.loadEnv = *env.LoadEnv
	}
	if env.LoadYAML != nil {
		b.loadYAML = *env.LoadYAML
	}
	if env.LoadCommandLine != nil {
		b.loadCommandLine = *env.LoadCommandLine
	}
	return b
}

func environLookup(environ []string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		for i := len(environ) - 1; i >= 0; i-- {
			if k, v, ok := strings.Cut(environ[i], "="); ok && k == key {
				return v, true
			}
		}
		return "", false
	}
}

// State returns the lifecycle position of the builder
func (b *Builder) State() State {
	return b.state
}

// Build resolves, merges and validates the configuration.
// Any failure is written to the error output and returned as *ResolveError.
func (b *Builder) Build() (*Snapshot, error) {
	if b.used {
		return nil, ErrBuilderUsed
	}
	b.used = true

	sources := b.sources()
	if b.err != nil {
		return nil, b.fail(sources, nil, b.err)
	}

	layers, files, err := b.collect()
	if err != nil {
		return nil, b.fail(sources, files, err)
	}
	b.state = StateSourcesCollected

	merged, err := b.merge(layers)
	if err != nil {
		return nil, b.fail(sources, files, err)
	}
	for _, key := range []string{KeyLoadedSources, KeyLoadedFiles} {
		if _, ok := merged[key]; ok {
			return nil, b.fail(sources, files, &InvalidKeyError{Key: strings.ToLower(key), Reason: "reserved for the sources and files of a verbose build"})
		}
	}
	b.state = StateMerged

	snap := newSnapshot(merged, sources, files)
	if b.validate {
		if err := b.runValidation(snap); err != nil {
			return nil, b.fail(sources, files, err)
		}
	}
	b.state = StateValidated

	if b.verbose {
		merged[KeyLoadedSources] = stringList(sourceNames(sources))
		merged[KeyLoadedFiles] = stringList(files)
		snap.loaded = true
		b.logger.Info("Configuration loaded", "sources", sourceNames(sources), "files", files)
	} else {
		b.logger.Debug("Configuration loaded", "sources", sourceNames(sources), "files", files)
	}

	return snap, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Snapshot {
	snap, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return snap
}

// BuildAndScan builds and decodes the whole configuration into the target struct pointer
func (b *Builder) BuildAndScan(target any) error {
	snap, err := b.Build()
	if err != nil {
		return err
	}
	if err := snap.Scan("", target); err != nil {
		return fmt.Errorf("failed to scan final config into target: %w", err)
	}
	return nil
}

// sources lists the enabled layers in merge order.
func (b *Builder) sources() []Source {
	var sources []Source
	if b.defaults != nil {
		sources = append(sources, SourceDefault)
	}
	if b.loadYAML {
		sources = append(sources, SourceYAML)
	}
	if b.loadEnv {
		sources = append(sources, SourceEnv)
	}
	if b.loadCommandLine {
		sources = append(sources, SourceCLI)
	}
	return sources
}

// collect loads every enabled layer in merge order.
func (b *Builder) collect() ([]map[string]any, []string, error) {
	environ := b.environ
	if environ == nil {
		environ = os.Environ()
	}

	var layers []map[string]any
	var files []string

	if b.defaults != nil {
		doc, err := StructDefaults(b.defaults)
		if err != nil {
			return nil, nil, fmt.Errorf("loading defaults: %w", err)
		}
		layers = append(layers, doc)
	}

	if b.loadYAML {
		docs, paths, err := b.collectYAML(environ)
		files = paths
		if err != nil {
			return nil, files, err
		}
		merged, err := b.withLogger(b.merger).Apply(docs...)
		if err != nil {
			return nil, files, fmt.Errorf("merging YAML documents: %w", err)
		}
		layers = append(layers, merged)
	}

	if b.loadEnv {
		doc, err := buildSource(envEntries(environ, b.variablePrefix), b.parser)
		if err != nil {
			return nil, files, fmt.Errorf("loading environment: %w", err)
		}
		layers = append(layers, doc)
	}

	if b.loadCommandLine {
		entries, warnings := argEntries(b.args, b.variablePrefix)
		for _, w := range warnings {
			b.logger.Warn(w)
		}
		doc, err := buildSource(entries, b.parser)
		if err != nil {
			return nil, files, fmt.Errorf("loading command line: %w", err)
		}
		layers = append(layers, doc)
	}

	return layers, files, nil
}

func (b *Builder) collectYAML(environ []string) ([]map[string]any, []string, error) {
	dims := append([]Dimension(nil), b.dims...)
	if b.loadCLIDimensions {
		pairs, warnings := ParseKeywordArgs(b.args, b.dimensionArgPrefix)
		for _, w := range warnings {
			b.logger.Warn(w)
		}
		for _, p := range pairs {
			dims = append(dims, Dimension{Name: strings.ToLower(p.Key), Value: p.Value})
		}
	}

	configDir := b.configDir
	if configDir == "" {
		opts := DefaultDirDiscoveryOptions()
		opts.LookupEnv = environLookup(environ)
		configDir = DiscoverConfigDir(b.args, opts)
	}

	resolver := &FileResolver{
		ConfigDir: configDir,
		Environ:   func() []string { return environ },
	}
	files, err := resolver.Resolve(dims...)
	if err != nil {
		return nil, nil, err
	}

	loader := &DocumentLoader{Logger: b.logger}
	docs := make([]map[string]any, 0, len(files))
	for _, path := range files {
		doc, err := loader.Load(path)
		if err != nil {
			return nil, files, err
		}
		canonical, err := canonicalize(doc)
		if err != nil {
			return nil, files, fmt.Errorf("%s: %w", path, err)
		}
		b.logger.Debug("Loaded configuration document", "path", path)
		docs = append(docs, canonical)
	}
	return docs, files, nil
}

// merge applies the YAML base, then env and command-line layers, over the defaults.
func (b *Builder) merge(layers []map[string]any) (map[string]any, error) {
	merged, err := b.withLogger(b.overrideMerger).Apply(layers...)
	if err != nil {
		return nil, fmt.Errorf("merging configuration sources: %w", err)
	}
	return merged, nil
}

func (b *Builder) runValidation(snap *Snapshot) error {
	rules := b.rules
	if rules == nil {
		rules = DefaultRules()
	}
	if err := Validate(snap, rules); err != nil {
		return err
	}
	for _, validator := range b.validators {
		if err := validator(snap); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return nil
}

func (b *Builder) withLogger(m Merger) Merger {
	if m.Logger == nil {
		m.Logger = b.logger
	}
	return m
}

// fail records the failure, writes the critical line and wraps err.
func (b *Builder) fail(sources []Source, files []string, err error) error {
	b.state = StateFailed
	names := sourceNames(sources)

	attempted := files
	if len(attempted) == 0 {
		attempted = names
	}
	if b.errOut != nil {
		fmt.Fprintf(b.errOut, "CRITICAL: failed to read configuration [%s]: %v.\n", strings.Join(attempted, ", "), err)
	}
	b.logger.Error("Failed to read configuration", "sources", names, "files", files, "error", err)

	return &ResolveError{Sources: names, Files: files, Err: err}
}

func sourceNames(sources []Source) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return names
}

func stringList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
