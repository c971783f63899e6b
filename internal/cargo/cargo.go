// Package cargo reads the two values the uploader needs from a Cargo project:
// the cross-compilation target triple and the package name.
package cargo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/resolve"
)

const (
	// ConfigFile holds the [build] table with the default target triple.
	ConfigFile = ".cargo/config.toml"
	// ManifestFile holds the [package] table.
	ManifestFile = "Cargo.toml"
)

// Ensure Project satisfies the resolver's configuration source.
var _ resolve.BuildConfig = (*Project)(nil)

// Project is a Cargo project rooted at Dir.
type Project struct {
	Dir string
}

// TargetTriple returns build.target from .cargo/config.toml.
func (p *Project) TargetTriple() (string, error) {
	doc, err := p.load(ConfigFile)
	if err != nil {
		return "", err
	}
	build, ok := doc["build"].(map[string]any)
	if !ok {
		return "", &resolve.ConfigurationError{File: ConfigFile, Key: "build", Reason: describeMissing(doc["build"], "table")}
	}
	return stringField(build, ConfigFile, "build", "target")
}

// PackageName returns package.name from Cargo.toml.
func (p *Project) PackageName() (string, error) {
	doc, err := p.load(ManifestFile)
	if err != nil {
		return "", err
	}
	pkg, ok := doc["package"].(map[string]any)
	if !ok {
		return "", &resolve.ConfigurationError{File: ManifestFile, Key: "package", Reason: describeMissing(doc["package"], "table")}
	}
	return stringField(pkg, ManifestFile, "package", "name")
}

func (p *Project) load(name string) (map[string]any, error) {
	path := filepath.Join(p.Dir, filepath.FromSlash(name))
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &resolve.ConfigurationError{File: name, Reason: "file not found"}
		}
		return nil, &resolve.ConfigurationError{File: name, Reason: err.Error()}
	}

	doc := map[string]any{}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, &resolve.ConfigurationError{File: name, Reason: fmt.Sprintf("parse: %v", err)}
	}
	return doc, nil
}

func stringField(table map[string]any, file, tableName, key string) (string, error) {
	raw, present := table[key]
	if !present {
		return "", &resolve.ConfigurationError{File: file, Key: tableName + "." + key, Reason: "missing"}
	}
	value, ok := raw.(string)
	if !ok {
		return "", &resolve.ConfigurationError{File: file, Key: tableName + "." + key, Reason: fmt.Sprintf("not a string, found %T", raw)}
	}
	if value == "" {
		return "", &resolve.ConfigurationError{File: file, Key: tableName + "." + key, Reason: "empty"}
	}
	return value, nil
}

func describeMissing(value any, want string) string {
	if value == nil {
		return "missing"
	}
	return fmt.Sprintf("not a %s, found %T", want, value)
}
