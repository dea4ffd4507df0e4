// Package buildinfo contains build-time metadata kept separate from user configuration
package buildinfo

import (
	"runtime/debug"

	"github.com/google/uuid"
)

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// DefaultVersion is the application version used when the binary carries no
// module version, e.g. for `go run` and test builds.
const DefaultVersion = "3.1.0"

// BuildInfo provides an interface for accessing build-time metadata.
// The configuration service depends on this interface to obtain the
// application version tag once at construction.
type BuildInfo interface {
	// GetVersion returns the build version string
	GetVersion() string
	// GetBuildDate returns the build date string
	GetBuildDate() string
	// GetSystemID returns the unique system identifier
	GetSystemID() string
}

// Context contains build-time metadata that is not user-configurable.
// This data is injected at application startup and is never part of a
// persisted configuration snapshot.
type Context struct {
	// Version holds the application semantic version
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string

	// SystemID identifies this process in logs and error reports
	SystemID string
}

// NewContext creates a build context. An empty systemID is replaced with a
// freshly generated UUID.
func NewContext(version, buildDate, systemID string) *Context {
	if systemID == "" {
		systemID = uuid.NewString()
	}
	return &Context{
		Version:   version,
		BuildDate: buildDate,
		SystemID:  systemID,
	}
}

// Default returns a context derived from the module information embedded in
// the running binary, falling back to DefaultVersion.
func Default() *Context {
	version := DefaultVersion
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			version = trimVersionPrefix(v)
		}
	}
	return NewContext(version, "", "")
}

// trimVersionPrefix strips the leading "v" of a Go module version.
func trimVersionPrefix(v string) string {
	if len(v) > 1 && v[0] == 'v' {
		return v[1:]
	}
	return v
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// GetSystemID implements BuildInfo.GetSystemID
func (c *Context) GetSystemID() string {
	if c == nil || c.SystemID == "" {
		return UnknownValue
	}
	return c.SystemID
}
