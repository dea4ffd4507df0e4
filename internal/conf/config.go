package conf

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/Copani/matRad/internal/buildinfo"
	"github.com/Copani/matRad/internal/hostenv"
	"github.com/Copani/matRad/internal/logger"
	"github.com/Copani/matRad/internal/observability"
	"github.com/Copani/matRad/internal/observability/metrics"
)

// Config is the matRad configuration store. The default groups are plain
// fields read and written directly by the computation modules; that access
// is not synchronized and must stay on one goroutine or be guarded by the
// caller. Logging goes through the embedded dispatcher.
type Config struct {
	Defaults
	DisableGUI bool

	*logger.Dispatcher

	env     hostenv.Environment
	version string
	root    string
	profile Profile
	metrics *metrics.ConfigMetrics
}

type options struct {
	descriptor hostenv.Descriptor
	build      buildinfo.BuildInfo
	root       string
	writeLog   bool
	keepLog    bool
	profile    Profile
	fs         afero.Fs
	stdout     io.Writer
	stderr     io.Writer
	metrics    *observability.Metrics
}

// Option configures New and Init.
type Option func(*options)

// WithHostRuntime sets the host runtime descriptor used to detect the environment.
func WithHostRuntime(d hostenv.Descriptor) Option {
	return func(o *options) { o.descriptor = d }
}

// WithBuildInfo sets the source of the version tag.
func WithBuildInfo(b buildinfo.BuildInfo) Option {
	return func(o *options) { o.build = b }
}

// WithRoot sets the installation root holding matRad.log.
func WithRoot(root string) Option {
	return func(o *options) { o.root = root }
}

// WithWriteLog opens the log file during construction.
func WithWriteLog(enabled bool) Option {
	return func(o *options) { o.writeLog = enabled }
}

// WithKeepLog starts with memory capture switched on.
func WithKeepLog(enabled bool) Option {
	return func(o *options) { o.keepLog = enabled }
}

// WithProfile selects the profile applied at construction.
func WithProfile(p Profile) Option {
	return func(o *options) { o.profile = p }
}

// WithFs sets the filesystem for the log file, dumps and snapshots.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithStdout redirects info and debug console output.
func WithStdout(w io.Writer) Option {
	return func(o *options) { o.stdout = w }
}

// WithStderr redirects warning, deprecation and error console output.
func WithStderr(w io.Writer) Option {
	return func(o *options) { o.stderr = w }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New builds a configuration service. Construction detects the host
// environment, assigns the version tag, opens the log file when requested
// and finally applies the selected profile (production by default).
func New(opts ...Option) (*Config, error) {
	o := options{
		descriptor: hostenv.Default(),
		root:       ".",
		profile:    ProfileProduction,
		fs:         afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.build == nil {
		o.build = buildinfo.Default()
	}

	dispatcherOpts := []logger.Option{
		logger.WithFs(o.fs),
		logger.WithStdout(o.stdout),
		logger.WithStderr(o.stderr),
	}
	c := &Config{root: o.root}
	if o.metrics != nil {
		dispatcherOpts = append(dispatcherOpts, logger.WithRecorder(o.metrics.Logging))
		c.metrics = o.metrics.Config
	}

	d, err := logger.NewDispatcher(logger.Config{Level: logger.DefaultLevel, KeepLog: o.keepLog}, dispatcherOpts...)
	if err != nil {
		return nil, err
	}
	c.Dispatcher = d

	env, err := o.descriptor.Detect(context.Background())
	if err != nil && env.Name == "" {
		env = hostenv.Environment{Name: hostenv.NameUnknown}
	}
	c.env = env
	if err != nil {
		c.Warn("Could not detect host environment, continuing as %s: %v", env, err)
	}

	c.version = o.build.GetVersion()

	if o.writeLog {
		if err := c.EnableFileLogging(); err != nil {
			return nil, err
		}
	}

	if err := c.ApplyProfile(o.profile); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Environment returns the host runtime detected at construction.
func (c *Config) Environment() hostenv.Environment {
	return c.env
}

// IsEnvironment reports whether the host runtime is name (case-insensitive).
func (c *Config) IsEnvironment(name string) bool {
	return c.env.Is(name)
}

// Version returns the version tag assigned at construction.
func (c *Config) Version() string {
	return c.version
}

// Root returns the installation root.
func (c *Config) Root() string {
	return c.root
}

// Profile returns the last applied profile.
func (c *Config) Profile() Profile {
	return c.profile
}

// LogLevel returns the console verbosity threshold.
func (c *Config) LogLevel() logger.Level {
	return c.Level()
}

// SetLogLevel changes the verbosity threshold. Out-of-range values are
// rejected through the fatal dispatch path and the old level is kept.
func (c *Config) SetLogLevel(level logger.Level) error {
	if err := c.SetLevel(level); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.SetLogLevel(int(level))
	}
	return nil
}

// WriteLog reports whether the log file is open.
func (c *Config) WriteLog() bool {
	return c.FileLogging()
}

// LogFilePath is where file logging writes: <root>/matRad.log.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.root, logger.LogFileName)
}

// EnableFileLogging opens <root>/matRad.log in append mode.
func (c *Config) EnableFileLogging() error {
	return c.Dispatcher.EnableFileLogging(c.LogFilePath())
}

// ApplyProfile overwrites the log level, GUI flag and every default group
// with the values of p. Capture flags and captured entries are left alone.
// An unknown profile is a fatal configuration error.
func (c *Config) ApplyProfile(p Profile) error {
	values, ok := p.Lookup()
	if !ok {
		return c.Error("Unknown default profile %q", p)
	}

	if err := c.SetLogLevel(values.LogLevel); err != nil {
		return err
	}
	c.DisableGUI = values.DisableGUI
	c.Defaults = values.Defaults
	c.profile = p

	if c.metrics != nil {
		c.metrics.RecordProfile(string(p))
	}
	return nil
}

// Reset re-applies the production profile, discarding manual overrides.
func (c *Config) Reset() {
	// The production profile always exists
	_ = c.ApplyProfile(ProfileProduction)
}

// Snapshot returns the current state in its persisted form.
func (c *Config) Snapshot() Settings {
	return Settings{
		Version:    c.version,
		LogLevel:   int(c.LogLevel()),
		KeepLog:    c.KeepLog(),
		WriteLog:   c.WriteLog(),
		DisableGUI: c.DisableGUI,
		Defaults:   c.Defaults,
	}
}

// freshSettings is the state of a newly constructed instance: production
// values, no capture, the current version.
func (c *Config) freshSettings() Settings {
	values, _ := ProfileProduction.Lookup()
	return Settings{
		Version:    c.version,
		LogLevel:   int(values.LogLevel),
		DisableGUI: values.DisableGUI,
		Defaults:   values.Defaults,
	}
}

// Restore merges a persisted snapshot into fresh defaults and applies the
// result. A version mismatch is a warning. A result failing validation is
// rejected through the fatal path and nothing is applied.
func (c *Config) Restore(snapshot Snapshot) (Migration, error) {
	start := time.Now()
	m, err := c.merge(snapshot)
	if err == nil {
		err = c.apply(m.Settings)
	}
	c.recordMigration(m, err, start)
	return m, err
}

// Migrate merges a persisted snapshot into fresh defaults and validates the
// result without touching the live configuration. It reports the same
// warnings as Restore.
func (c *Config) Migrate(snapshot Snapshot) (Migration, error) {
	start := time.Now()
	m, err := c.merge(snapshot)
	c.recordMigration(m, err, start)
	return m, err
}

func (c *Config) merge(snapshot Snapshot) (Migration, error) {
	m, err := Migrate(c.freshSettings(), snapshot)
	if err != nil {
		return m, err
	}

	if m.VersionMismatch {
		persisted := m.PersistedVersion
		if persisted == "" {
			persisted = buildinfo.UnknownValue
		}
		c.Warn("Configuration snapshot was saved by matRad %s, current version is %s. Merging into current defaults", persisted, c.version)
	}
	for _, key := range m.Ignored {
		c.Debug("Ignoring unknown configuration field %q", key)
	}
	for _, key := range m.Invalid {
		c.Warn("Configuration field %q has an incompatible value, keeping default", key)
	}

	if err := ValidateSettings(&m.Settings); err != nil {
		return m, c.Error("Restored configuration is invalid: %v", err)
	}
	return m, nil
}

// apply installs validated settings. The version tag is never changed.
func (c *Config) apply(s Settings) error {
	if err := c.SetLogLevel(logger.Level(s.LogLevel)); err != nil {
		return err
	}
	c.SetKeepLog(s.KeepLog)
	c.DisableGUI = s.DisableGUI
	c.Defaults = s.Defaults

	if s.WriteLog {
		return c.EnableFileLogging()
	}
	return c.DisableFileLogging()
}

func (c *Config) recordMigration(m Migration, err error, start time.Time) {
	if c.metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	c.metrics.RecordMigration(result, m.VersionMismatch, len(m.Kept), len(m.Overwritten), len(m.Ignored), time.Since(start))
}

// Close releases the log file.
func (c *Config) Close() error {
	if c == nil || c.Dispatcher == nil {
		return nil
	}
	return c.Dispatcher.Close()
}
