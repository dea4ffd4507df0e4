// Package cmd wires the matrad command line interface.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Copani/matRad/cmd/config"
	"github.com/Copani/matRad/cmd/version"
	"github.com/Copani/matRad/internal/buildinfo"
	"github.com/Copani/matRad/internal/conf"
	"github.com/Copani/matRad/internal/logger"
	"github.com/Copani/matRad/internal/observability"
	"github.com/Copani/matRad/internal/secrets"
	"github.com/Copani/matRad/internal/telemetry"
)

// Options configures RootCommand.
type Options struct {
	Fs     afero.Fs
	Stdout io.Writer
	Stderr io.Writer
	Build  buildinfo.BuildInfo
	// NewConfig constructs the configuration, conf.Init when nil.
	NewConfig func(...conf.Option) (*conf.Config, error)
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	opts    Options
	v       *viper.Viper
	config  *conf.Config
	metrics *observability.Metrics
}

// Config returns the configuration built by the root pre-run hook.
func (a *app) Config() *conf.Config {
	return a.config
}

// RootCommand creates and returns the root command
func RootCommand(opts Options) *cobra.Command {
	rootCmd, _ := newRootCommand(opts)
	return rootCmd
}

// Execute runs the command line in args and releases the configuration
// afterwards, also when the command failed.
func Execute(opts Options, args []string) error {
	rootCmd, a := newRootCommand(opts)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	return err
}

func newRootCommand(opts Options) (*cobra.Command, *app) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Build == nil {
		opts.Build = buildinfo.Default()
	}
	if opts.NewConfig == nil {
		opts.NewConfig = conf.Init
	}

	a := &app{opts: opts, v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "matrad",
		Short:         "matRad configuration and logging tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(opts.Stdout)
	rootCmd.SetErr(opts.Stderr)

	if err := setupFlags(rootCmd, a.v); err != nil {
		// Flag names are static; binding only fails on programming errors
		panic(err)
	}

	rootCmd.AddCommand(
		version.Command(opts.Build, a.Config),
		config.Command(opts.Fs, a.Config),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.initialize()
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return a.finish(cmd.OutOrStdout())
	}

	return rootCmd, a
}

// setupFlags defines the global flags and binds them to MATRAD_* variables
func setupFlags(rootCmd *cobra.Command, v *viper.Viper) error {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "Console verbosity, 1 (errors) to 5 (debug) or a kind name")
	flags.Bool("keep-log", false, "Keep every message in memory")
	flags.Bool("write-log", false, "Append every message to <root>/matRad.log")
	flags.String("root", ".", "matRad installation root")
	flags.String("dump-log", "", "Write the kept messages to this file on exit")
	flags.Bool("print-metrics", false, "Print Prometheus metrics on exit")
	flags.String("sentry-dsn", "", "Report fatal errors to this Sentry DSN, ${VAR} references are expanded")
	flags.String("sentry-dsn-file", "", "Read the Sentry DSN from this file")

	v.SetEnvPrefix(conf.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// initialize builds the configuration before any subcommand runs
func (a *app) initialize() error {
	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	a.metrics = m

	c, err := a.opts.NewConfig(
		conf.WithFs(a.opts.Fs),
		conf.WithStdout(a.opts.Stdout),
		conf.WithStderr(a.opts.Stderr),
		conf.WithBuildInfo(a.opts.Build),
		conf.WithRoot(a.v.GetString("root")),
		conf.WithKeepLog(a.v.GetBool("keep-log") || a.v.GetString("dump-log") != ""),
		conf.WithWriteLog(a.v.GetBool("write-log")),
		conf.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	a.config = c

	if raw := a.v.GetString("log-level"); raw != "" {
		level, err := logger.ParseLevel(raw)
		if err != nil {
			return c.Error("Invalid log level %q: %v", raw, err)
		}
		if err := c.SetLogLevel(level); err != nil {
			return err
		}
	}

	dsn, err := secrets.Resolve(a.opts.Fs, a.v.GetString("sentry-dsn-file"), a.v.GetString("sentry-dsn"))
	if err != nil {
		c.Warn("Error reporting disabled: %v", err)
	}
	if dsn != "" {
		if _, err := telemetry.Init(telemetry.Options{
			DSN:   dsn,
			Build: a.opts.Build,
			Host:  c.Environment(),
		}); err != nil {
			c.Warn("Error reporting disabled: %v", err)
		}
	}

	c.Debug("matRad %s on %s", c.Version(), c.Environment())
	return nil
}

// finish dumps the kept messages and prints metrics when requested
func (a *app) finish(out io.Writer) error {
	if a.config == nil {
		return nil
	}

	if path := a.v.GetString("dump-log"); path != "" {
		if err := a.config.DumpLog(path); err != nil {
			return err
		}
	}
	if a.v.GetBool("print-metrics") {
		if err := a.metrics.WriteText(out); err != nil {
			return err
		}
	}
	return nil
}

// close flushes telemetry and releases the log file
func (a *app) close() error {
	telemetry.Shutdown(2 * time.Second)
	if a.config == nil {
		return nil
	}
	return a.config.Close()
}
