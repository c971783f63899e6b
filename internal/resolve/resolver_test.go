package resolve

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

const testTriple = "thumbv7em-none-eabihf"

type staticConfig struct {
	triple, pkg string
	err         error
}

func (c staticConfig) TargetTriple() (string, error) { return c.triple, c.err }
func (c staticConfig) PackageName() (string, error) { return c.pkg, c.err }

func newResolver(files fstest.MapFS) *Resolver {
	return &Resolver{
		Config:    staticConfig{triple: testTriple, pkg: "myapp"},
		Outputs:   files,
		TargetDir: "target",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func binary(data string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(data), Mode: 0o755}
}

func TestDiscoverKeepsOnlyProfilesWithPackageBinary(t *testing.T) {
	t.Parallel()

	resolver := newResolver(fstest.MapFS{
		testTriple + "/debug/myapp":            binary("debug"),
		testTriple + "/release/myapp":          binary("release"),
		testTriple + "/release/myapp.d":        binary("deps"),
		testTriple + "/examples/blinky":        binary("example"),
		testTriple + "/build/myapp/out/lib.rs": binary("dir named like the package"),
		testTriple + "/CACHEDIR.TAG":           binary("tag"),
		"thumbv6m-none-eabi/release/myapp":     binary("other target"),
	})

	found, err := resolver.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if got, want := found.Builds.Profiles(), []string{"debug", "release"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Discover() profiles = %v, want %v", got, want)
	}
	wantPath := filepath.Join("target", testTriple, "release", "myapp")
	if found.Builds["release"].Path != wantPath {
		t.Fatalf("release path = %q, want %q", found.Builds["release"].Path, wantPath)
	}
	if found.Dir != filepath.Join("target", testTriple) {
		t.Fatalf("unexpected discovery dir %q", found.Dir)
	}
}

func TestDiscoverMissingOutputRoot(t *testing.T) {
	t.Parallel()

	resolver := newResolver(fstest.MapFS{
		"debug/myapp": binary("host build"),
	})

	_, err := resolver.Discover()
	var discoveryErr *DiscoveryError
	if !errors.As(err, &discoveryErr) {
		t.Fatalf("expected discovery error, got %T (%v)", err, err)
	}
	if discoveryErr.Dir != filepath.Join("target", testTriple) {
		t.Fatalf("unexpected dir %q", discoveryErr.Dir)
	}
}

func TestDiscoverPropagatesConfigurationErrors(t *testing.T) {
	t.Parallel()

	cfgErr := &ConfigurationError{File: "Cargo.toml", Key: "package.name", Reason: "missing"}
	resolver := newResolver(fstest.MapFS{})
	resolver.Config = staticConfig{err: cfgErr}

	if _, err := resolver.Discover(); !errors.Is(err, cfgErr) {
		t.Fatalf("Discover() error = %v, want %v", err, cfgErr)
	}
}

func TestDiscoverRejectsPathLikeTriple(t *testing.T) {
	t.Parallel()

	resolver := newResolver(fstest.MapFS{})
	resolver.Config = staticConfig{triple: "../escape", pkg: "myapp"}

	var cfgErr *ConfigurationError
	if _, err := resolver.Discover(); !errors.As(err, &cfgErr) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestResolveSingleCandidateWithoutHint(t *testing.T) {
	t.Parallel()

	resolver := newResolver(fstest.MapFS{
		testTriple + "/release/myapp": binary("release"),
	})

	build, err := resolver.Resolve("")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if build.Profile != "release" {
		t.Fatalf("Resolve() profile = %q, want release", build.Profile)
	}
}

func TestResolveEmptyOutputRoot(t *testing.T) {
	t.Parallel()

	resolver := newResolver(fstest.MapFS{
		testTriple + "/release/.fingerprint/x": binary("fp"),
	})

	_, err := resolver.Resolve("")
	var noBuilds *NoBuildsError
	if !errors.As(err, &noBuilds) {
		t.Fatalf("expected no builds error, got %T (%v)", err, err)
	}
	if noBuilds.Package != "myapp" || !strings.Contains(err.Error(), "cargo build") {
		t.Fatalf("unexpected error %q", err)
	}
}

func TestResolveAmbiguousWithoutHint(t *testing.T) {
	t.Parallel()

	resolver := newResolver(fstest.MapFS{
		testTriple + "/release/myapp": binary("release"),
		testTriple + "/debug/myapp":   binary("debug"),
	})

	_, err := resolver.Resolve("")
	var ambiguous *AmbiguousSelectionError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected ambiguous selection error, got %T (%v)", err, err)
	}
	if !strings.Contains(err.Error(), "{debug, release}") {
		t.Fatalf("error %q does not list candidates", err)
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	one := Builds{"release": {Profile: "release", Path: "r"}}
	many := Builds{
		"debug":   {Profile: "debug", Path: "d"},
		"release": {Profile: "release", Path: "r"},
		"bench":   {Profile: "bench", Path: "b"},
	}

	cases := []struct {
		name    string
		builds  Builds
		hint    string
		want    string
		wantErr any
	}{
		{name: "none", builds: Builds{}, wantErr: &NoBuildsError{}},
		{name: "none with hint", builds: Builds{}, hint: "release", wantErr: &NoBuildsError{}},
		{name: "single auto", builds: one, want: "release"},
		{name: "single matching hint", builds: one, hint: "release", want: "release"},
		{name: "single wrong hint", builds: one, hint: "debug", wantErr: &UnknownProfileError{}},
		{name: "many no hint", builds: many, wantErr: &AmbiguousSelectionError{}},
		{name: "many hint", builds: many, hint: "debug", want: "debug"},
		{name: "many unknown hint", builds: many, hint: "dev", wantErr: &UnknownProfileError{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			build, err := Select(tc.builds, tc.hint)
			if tc.wantErr != nil {
				if err == nil {
					t.Fatalf("Select() error = nil, want %T", tc.wantErr)
				}
				if reflect.TypeOf(err) != reflect.TypeOf(tc.wantErr) {
					t.Fatalf("Select() error type = %T, want %T", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if build.Profile != tc.want {
				t.Fatalf("Select() = %q, want %q", build.Profile, tc.want)
			}
		})
	}
}

func TestSelectErrorsListCandidates(t *testing.T) {
	t.Parallel()

	builds := Builds{"release": {Profile: "release"}, "debug": {Profile: "debug"}}

	_, err := Select(builds, "")
	var ambiguous *AmbiguousSelectionError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected ambiguous selection error, got %v", err)
	}
	if !reflect.DeepEqual(ambiguous.Profiles, []string{"debug", "release"}) {
		t.Fatalf("ambiguous profiles = %v", ambiguous.Profiles)
	}

	_, err = Select(builds, "dev")
	var unknown *UnknownProfileError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected unknown profile error, got %v", err)
	}
	if unknown.Profile != "dev" || !reflect.DeepEqual(unknown.Profiles, []string{"debug", "release"}) {
		t.Fatalf("unexpected unknown profile error %+v", unknown)
	}
}

func TestHintFromFlags(t *testing.T) {
	t.Parallel()

	if hint, err := HintFromFlags(nil); err != nil || hint != "" {
		t.Fatalf("HintFromFlags(nil) = %q, %v", hint, err)
	}
	if hint, err := HintFromFlags([]string{"release"}); err != nil || hint != "release" {
		t.Fatalf("HintFromFlags(release) = %q, %v", hint, err)
	}

	var usage *UsageError
	if _, err := HintFromFlags([]string{"debug", "release"}); !errors.As(err, &usage) {
		t.Fatalf("expected usage error for two hints, got %v", err)
	}
	if !strings.Contains(usage.Error(), "{debug, release}") {
		t.Fatalf("usage error %q does not list the values", usage)
	}
	if _, err := HintFromFlags([]string{""}); !errors.As(err, &usage) {
		t.Fatalf("expected usage error for empty hint, got %v", err)
	}
}
