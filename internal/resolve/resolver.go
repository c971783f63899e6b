// Package resolve locates the firmware binary to upload among the build
// outputs of a cross-compiled project.
//
// Build outputs live at <target-dir>/<triple>/<profile>/<package>. Every
// profile directory holding a regular file named after the package is a
// candidate; Select then picks one of them given an optional profile hint.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/logging"
)

// BuildConfig exposes the two build configuration values discovery needs.
type BuildConfig interface {
	TargetTriple() (string, error)
	PackageName() (string, error)
}

// Build is one candidate build output.
type Build struct {
	Profile string
	Path    string // artifact location on the host filesystem
}

// Builds maps profile names to their build output.
type Builds map[string]Build

// Profiles returns the profile names in sorted order.
func (b Builds) Profiles() []string {
	return slices.Sorted(maps.Keys(b))
}

// Discovery is the outcome of scanning the build output directory.
type Discovery struct {
	Triple  string
	Package string
	Dir     string // <target-dir>/<triple> on the host
	Builds  Builds
}

// Resolver discovers build outputs below a target directory.
//
// Outputs is the target directory as a filesystem and TargetDir is the same
// directory on the host, used to form artifact paths.
type Resolver struct {
	Config    BuildConfig
	Outputs   fs.FS
	TargetDir string
	Logger    *slog.Logger
}

func (r *Resolver) logger() *slog.Logger {
	if r != nil {
		return logging.Ensure(r.Logger)
	}
	return slog.Default()
}

// Discover returns every candidate build for the configured target.
func (r *Resolver) Discover() (Discovery, error) {
	if r.Config == nil || r.Outputs == nil {
		return Discovery{}, errors.New("resolver is not configured")
	}

	triple, err := r.Config.TargetTriple()
	if err != nil {
		return Discovery{}, err
	}
	pkg, err := r.Config.PackageName()
	if err != nil {
		return Discovery{}, err
	}
	if triple == "." || !fs.ValidPath(triple) || strings.Contains(triple, "/") {
		return Discovery{}, &ConfigurationError{Key: "build.target", Reason: fmt.Sprintf("not a valid target triple: %q", triple)}
	}
	if pkg == "." || !fs.ValidPath(pkg) || strings.Contains(pkg, "/") {
		return Discovery{}, &ConfigurationError{Key: "package.name", Reason: fmt.Sprintf("not a valid package name: %q", pkg)}
	}

	root := filepath.Join(r.TargetDir, triple)
	logger := r.logger().With("triple", triple, "package", pkg)

	info, err := fs.Stat(r.Outputs, triple)
	if err != nil || !info.IsDir() {
		return Discovery{}, &DiscoveryError{Dir: root}
	}

	entries, err := fs.ReadDir(r.Outputs, triple)
	if err != nil {
		return Discovery{}, fmt.Errorf("list build profiles in %s: %w", root, err)
	}

	builds := Builds{}
	for _, entry := range entries {
		profileDir := path.Join(triple, entry.Name())
		if info, err := fs.Stat(r.Outputs, profileDir); err != nil || !info.IsDir() {
			continue
		}
		binary, err := fs.Stat(r.Outputs, path.Join(profileDir, pkg))
		if err != nil || !binary.Mode().IsRegular() {
			logger.Debug("skipping profile without package binary", "profile", entry.Name())
			continue
		}
		builds[entry.Name()] = Build{
			Profile: entry.Name(),
			Path:    filepath.Join(root, entry.Name(), pkg),
		}
	}

	logger.Debug("discovered build outputs", "dir", root, "profiles", strings.Join(builds.Profiles(), ","))
	return Discovery{Triple: triple, Package: pkg, Dir: root, Builds: builds}, nil
}

// Resolve discovers the candidate builds and selects one using hint.
// An empty hint means the caller did not ask for a profile.
func (r *Resolver) Resolve(hint string) (Build, error) {
	found, err := r.Discover()
	if err != nil {
		return Build{}, err
	}
	if len(found.Builds) == 0 {
		return Build{}, &NoBuildsError{Dir: found.Dir, Package: found.Package}
	}

	build, err := Select(found.Builds, hint)
	if err != nil {
		return Build{}, err
	}
	if hint == "" {
		r.logger().Info("auto-selected the only build profile", "profile", build.Profile)
	}
	return build, nil
}

// Select applies the selection policy to a set of candidate builds.
//
// A single candidate is chosen automatically only when no hint is given; a
// hint that names no candidate is an error even if exactly one exists.
func Select(builds Builds, hint string) (Build, error) {
	switch {
	case len(builds) == 0:
		return Build{}, &NoBuildsError{}
	case hint == "" && len(builds) == 1:
		for _, build := range builds {
			return build, nil
		}
	case hint == "":
		return Build{}, &AmbiguousSelectionError{Profiles: builds.Profiles()}
	}

	build, ok := builds[hint]
	if !ok {
		return Build{}, &UnknownProfileError{Profile: hint, Profiles: builds.Profiles()}
	}
	return build, nil
}

// HintFromFlags validates the values collected for --profile/-p and returns
// the requested profile, or "" when none was given.
func HintFromFlags(values []string) (string, error) {
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		if strings.TrimSpace(values[0]) == "" {
			return "", &UsageError{Values: values, Reason: "--profile requires a non-empty profile name"}
		}
		return values[0], nil
	default:
		return "", &UsageError{Values: values}
	}
}
