// FILE: lixenwraith/layerconf/cmd/layerconf/main.go
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/lixenwraith/layerconf"
	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	configDir  string
	prefix     string
	logLevel   string
	noValidate bool
	rawArgs    []string // argv without the program name and anything after "--"
}

func main() {
	opts := &rootOptions{rawArgs: keywordArgs(os.Args[1:])}

	if err := newRootCommand(opts).Execute(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

// keywordArgs returns args up to a "--" separator.
func keywordArgs(args []string) []string {
	for i, a := range args {
		if a == "--" {
			return args[:i]
		}
	}
	return args
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "layerconf",
		Short: "Resolve, dump and export layered project configuration",
		Long: `layerconf resolves the project configuration from config/project.yml,
the dimension documents, APP_* environment variables and --app_* arguments.

Dimensions are selected with PROJECT_DIMENSION_<NAME> variables or
--project_<name> <value> arguments, e.g.

  layerconf dump --project_workspace dev --project_logging local`,
		SilenceUsage: true,
		// --project_* and --app_* arguments are read by the resolver itself
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "Configuration directory (default $PROJECT_CONFIG_PATH, else the nearest ./config holding project.yml)")
	rootCmd.PersistentFlags().StringVar(&opts.prefix, "prefix", "", "Variable prefix (default $PROJECT_VARIABLE_PREFIX or app)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "WARNING", "Resolver log level (DEBUG, INFO, WARNING, ERROR)")
	rootCmd.PersistentFlags().BoolVar(&opts.noValidate, "no-validate", false, "Skip rule validation")

	for _, sub := range []*cobra.Command{
		newDumpCommand(opts),
		newExportCommand(opts),
		newExecCommand(opts),
		newDigestCommand(opts),
	} {
		sub.FParseErrWhitelist = rootCmd.FParseErrWhitelist
		rootCmd.AddCommand(sub)
	}

	return rootCmd
}

func newDumpCommand(opts *rootOptions) *cobra.Command {
	var format, output string
	var toData bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the resolved configuration as YAML or TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			dumpFormat, err := layerconf.ParseDumpFormat(format)
			if err != nil {
				return err
			}
			snap, err := opts.load(true)
			if err != nil {
				return err
			}

			if toData {
				env, err := layerconf.ReadEnvironment()
				if err != nil {
					return err
				}
				dataDir, err := env.DataDir()
				if err != nil {
					return err
				}
				output = filepath.Join(dataDir, layerconf.DumpFileName)
			}

			if output == "" || output == "-" {
				return snap.Dump(cmd.OutOrStdout(), dumpFormat)
			}
			if err := snap.Save(output, dumpFormat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Loaded files: %s\nWrote %s\n", strings.Join(snap.Files(), ", "), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format (yaml, toml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&toData, "data", false, "Write to <data dir>/"+layerconf.DumpFileName)
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var format string
	var entries []string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the configuration as environment variables or arguments",
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := layerconf.ParseExportFormat(format)
			if err != nil {
				return err
			}
			snap, err := opts.load(false)
			if err != nil {
				return err
			}

			exporter := opts.exporter()
			out := cmd.OutOrStdout()
			switch exportFormat {
			case layerconf.FormatEnvironment:
				env, err := exporter.Environ(snap, entries...)
				if err != nil {
					return err
				}
				for _, kv := range env {
					name, value, _ := strings.Cut(kv, "=")
					fmt.Fprintf(out, "export %s=%s\n", name, shellQuote(value))
				}
			case layerconf.FormatCommandLine:
				argv, err := exporter.Args(snap, entries...)
				if err != nil {
					return err
				}
				quoted := make([]string, len(argv))
				for i, a := range argv {
					quoted[i] = shellQuote(a)
				}
				fmt.Fprintln(out, strings.Join(quoted, " "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "env", "Export format (env, args)")
	cmd.Flags().StringSliceVar(&entries, "entries", nil, "Root keys to export (default all)")
	return cmd
}

func newExecCommand(opts *rootOptions) *cobra.Command {
	var entries []string

	cmd := &cobra.Command{
		Use:   "exec [flags] -- command [args...]",
		Short: "Run a command with the configuration exported to its environment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := opts.load(false)
			if err != nil {
				return err
			}
			env, err := opts.exporter().Environ(snap, entries...)
			if err != nil {
				return err
			}

			logger := opts.logger()
			if snap.Has("logging") {
				if l, err := layerconf.NewLogger(snap, cmd.ErrOrStderr()); err == nil {
					logger = layerconf.Named(l, "layerconf")
				}
			}
			logger.Info("Running command", "command", args[0], "variables", len(env))

			child := exec.CommandContext(cmd.Context(), args[0], args[1:]...)
			child.Env = append(os.Environ(), env...)
			child.Stdin = cmd.InOrStdin()
			child.Stdout = cmd.OutOrStdout()
			child.Stderr = cmd.ErrOrStderr()
			return child.Run()
		},
	}

	cmd.Flags().StringSliceVar(&entries, "entries", nil, "Root keys to export (default all)")
	return cmd
}

func newDigestCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Print the BLAKE3 digest of the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := opts.load(false)
			if err != nil {
				return err
			}
			digest, err := snap.Digest()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}
}

// load resolves the configuration with command-line dimensions and overrides
func (o *rootOptions) load(verbose bool) (*layerconf.Snapshot, error) {
	b := layerconf.NewBuilder().
		WithArgs(o.rawArgs).
		FromEnvironment().
		WithCommandLine(true).
		WithCommandLineDimensions(true).
		WithVerbose(verbose).
		WithLogger(o.logger())

	if o.configDir != "" {
		b.WithConfigDir(o.configDir)
	}
	if o.prefix != "" {
		b.WithVariablePrefix(o.prefix)
	}
	if o.noValidate {
		b.WithValidation(false)
	}
	return b.Build()
}

func (o *rootOptions) exporter() *layerconf.Exporter {
	prefix := o.prefix
	if prefix == "" {
		if env, err := layerconf.ReadEnvironment(); err == nil {
			prefix = env.VariablePrefix
		}
	}
	return &layerconf.Exporter{Prefix: prefix, Logger: o.logger()}
}

func (o *rootOptions) logger() *slog.Logger {
	level, err := layerconf.ParseLevel(o.logLevel)
	if err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// shellQuote wraps s in single quotes unless it only holds safe characters
func shellQuote(s string) string {
	if s != "" && strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=@+,", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
