// Package buildinfo holds build-time metadata injected with -ldflags.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata the build did not set
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable
type Context struct {
	Version   string // git version tag
	BuildDate string
}

// NewContext creates build metadata, typically from -ldflags variables of package main
func NewContext(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the version or UnknownValue
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate returns the build date or UnknownValue
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// String formats the metadata for the version command
func (c *Context) String() string {
	return fmt.Sprintf("surveygen %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
