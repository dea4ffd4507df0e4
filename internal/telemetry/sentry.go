// Package telemetry provides privacy-compliant error tracking for matRad.
// Errors built through internal/errors are forwarded to Sentry once Init
// has installed the reporter.
package telemetry

import (
	"fmt"
	"runtime"
	"slices"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Copani/matRad/internal/buildinfo"
	"github.com/Copani/matRad/internal/errors"
	"github.com/Copani/matRad/internal/hostenv"
	"github.com/Copani/matRad/internal/privacy"
)

// Options configures Init.
type Options struct {
	// DSN is the Sentry project endpoint. An empty DSN disables telemetry
	// unless a Transport is given.
	DSN string
	// Environment is reported as the Sentry environment, e.g. "production".
	Environment string
	Build       buildinfo.BuildInfo
	Host        hostenv.Environment
	// Transport overrides the HTTP transport, used by tests.
	Transport sentry.Transport
}

var initialized atomic.Bool

// PlatformInfo holds privacy-safe platform information for telemetry
type PlatformInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"arch"`
	NumCPU       int    `json:"num_cpu"`
	GoVersion    string `json:"go_version"`
	Host         string `json:"host"`
}

func collectPlatformInfo(host hostenv.Environment) PlatformInfo {
	return PlatformInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
		Host:         host.String(),
	}
}

// Init initializes the Sentry SDK and installs the error reporter. It is a
// no-op returning false when neither a DSN nor a transport is configured.
func Init(opts Options) (bool, error) {
	if opts.DSN == "" && opts.Transport == nil {
		return false, nil
	}
	if opts.Build == nil {
		opts.Build = buildinfo.Default()
	}
	if opts.Environment == "" {
		opts.Environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Transport:        opts.Transport,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      opts.Environment,
		ServerName:       "", // Keep the hostname out of events
		Release:          fmt.Sprintf("matRad@%s", opts.Build.GetVersion()),
		BeforeSend:       beforeSend,
	})
	if err != nil {
		return false, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	configureScope(opts)
	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)
	return true, nil
}

// Enabled reports whether Init installed the reporter.
func Enabled() bool {
	return initialized.Load()
}

// Shutdown uninstalls the reporter and flushes buffered events.
func Shutdown(timeout time.Duration) {
	if !initialized.Swap(false) {
		return
	}
	errors.SetTelemetryReporter(nil)
	sentry.Flush(timeout)
}

// reportedLevels are the event levels worth sending; configuration and
// validation noise stays local.
var reportedLevels = []sentry.Level{sentry.LevelError, sentry.LevelFatal}

func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if !slices.Contains(reportedLevels, event.Level) {
		return nil
	}
	return applyPrivacyFilters(event)
}

// applyPrivacyFilters applies privacy filters to a Sentry event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		for _, key := range []string{"device", "os", "runtime"} {
			delete(event.Contexts, key)
		}
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// configureScope tags every event with the application and platform
func configureScope(opts Options) {
	platform := collectPlatformInfo(opts.Host)

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("system_id", opts.Build.GetSystemID())
		scope.SetTag("os", platform.OS)
		scope.SetTag("arch", platform.Architecture)
		scope.SetTag("host_runtime", platform.Host)

		scope.SetContext("application", map[string]any{
			"name":      "matRad",
			"version":   opts.Build.GetVersion(),
			"system_id": opts.Build.GetSystemID(),
		})
		scope.SetContext("platform", map[string]any{
			"os":           platform.OS,
			"architecture": platform.Architecture,
			"num_cpu":      platform.NumCPU,
			"go_version":   platform.GoVersion,
			"host_runtime": platform.Host,
		})
	})
}
