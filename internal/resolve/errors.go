package resolve

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a build configuration value that is missing or malformed.
type ConfigurationError struct {
	File   string
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	source := "build configuration"
	if e.File != "" {
		source += " " + e.File
	}
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", source, e.Reason)
	}
	return fmt.Sprintf("%s: %s is %s", source, e.Key, e.Reason)
}

// DiscoveryError reports that the build output directory for the target does not exist.
type DiscoveryError struct {
	Dir string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("build output directory %s does not exist; build the project first", e.Dir)
}

// UsageError reports conflicting or invalid --profile values.
type UsageError struct {
	Values []string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Reason != "" {
		return "usage: " + e.Reason
	}
	return fmt.Sprintf("usage: multiple build profiles specified %s; pass only one of --profile=<name> or -p=<name>", formatSet(e.Values))
}

// NoBuildsError reports that no profile directory holds the package binary.
type NoBuildsError struct {
	Dir     string
	Package string
}

func (e *NoBuildsError) Error() string {
	if e.Dir == "" {
		return "no build outputs found; run `cargo build` first"
	}
	return fmt.Sprintf("no build outputs for %q found in %s; run `cargo build` first", e.Package, e.Dir)
}

// AmbiguousSelectionError reports several candidate builds and no profile hint.
type AmbiguousSelectionError struct {
	Profiles []string
}

func (e *AmbiguousSelectionError) Error() string {
	return fmt.Sprintf("multiple build profiles found: %s; choose one with --profile=<name> (example: --profile=release)", formatSet(e.Profiles))
}

// UnknownProfileError reports a profile hint that matches no candidate build.
type UnknownProfileError struct {
	Profile  string
	Profiles []string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("build profile %q not found; build the project with that profile first (found %s)", e.Profile, formatSet(e.Profiles))
}

func formatSet(values []string) string {
	return "{" + strings.Join(values, ", ") + "}"
}
