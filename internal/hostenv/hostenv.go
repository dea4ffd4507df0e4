// Package hostenv describes the runtime environment the application is hosted in.
//
// A Descriptor is queried exactly once, when the configuration service is
// constructed. Several variants are provided so that callers choose the
// environment model explicitly instead of probing for it at startup:
//
//   - GoRuntime reports the Go toolchain that built the binary ("go", "go1.26.0")
//   - Host reports the operating system platform via gopsutil ("ubuntu", "24.04")
//   - Static reports a fixed pair, typically used in tests
package hostenv

import (
	"context"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/Copani/matRad/internal/errors"
)

// Environment names reported by the built-in descriptors.
const (
	NameGo      = "go"
	NameUnknown = "unknown"
)

// Environment is an immutable (name, version) pair describing the host.
type Environment struct {
	Name    string
	Version string
}

// String returns "name version".
func (e Environment) String() string {
	if e.Version == "" {
		return e.Name
	}
	return e.Name + " " + e.Version
}

// Is reports whether the environment name matches, ignoring case.
func (e Environment) Is(name string) bool {
	return strings.EqualFold(e.Name, name)
}

// Descriptor detects the host environment.
type Descriptor interface {
	Detect(ctx context.Context) (Environment, error)
}

// GoRuntime describes the Go runtime the binary was built with.
type GoRuntime struct{}

// Detect implements Descriptor.
func (GoRuntime) Detect(context.Context) (Environment, error) {
	return Environment{Name: NameGo, Version: strings.TrimPrefix(runtime.Version(), NameGo)}, nil
}

// Host describes the operating system platform.
type Host struct{}

// Detect implements Descriptor.
func (Host) Detect(ctx context.Context) (Environment, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return Environment{}, errors.New(err).
			Component("hostenv").
			Category(errors.CategorySystem).
			Context("operation", "host-info").
			Build()
	}

	name := info.Platform
	if name == "" {
		name = info.OS
	}
	if name == "" {
		name = runtime.GOOS
	}
	return Environment{Name: name, Version: info.PlatformVersion}, nil
}

// Static always reports the wrapped environment.
type Static Environment

// Detect implements Descriptor.
func (s Static) Detect(context.Context) (Environment, error) {
	return Environment(s), nil
}

// Fallback tries each descriptor in order and returns the first successful
// detection. When every descriptor fails, the joined errors are returned
// together with an "unknown" environment.
type Fallback []Descriptor

// Detect implements Descriptor.
func (f Fallback) Detect(ctx context.Context) (Environment, error) {
	var errs []error
	for _, d := range f {
		if d == nil {
			continue
		}
		env, err := d.Detect(ctx)
		if err == nil {
			return env, nil
		}
		errs = append(errs, err)
	}
	return Environment{Name: NameUnknown}, errors.Join(errs...)
}

// Default returns the descriptor used when none is configured.
func Default() Descriptor {
	return GoRuntime{}
}
