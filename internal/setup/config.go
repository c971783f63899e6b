package setup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/flash"
)

// DefaultConfigFile is looked up in the project directory when no --config is given.
const DefaultConfigFile = ".dfu-upload.yaml"

// DefaultProgrammers lists where STM32CubeProgrammer installs its CLI on each host OS.
// The macOS binary has to stay inside the application bundle, it loads files
// relative to its own location.
var DefaultProgrammers = map[string]string{
	"darwin":  "/Applications/STMicroelectronics/STM32Cube/STM32CubeProgrammer/STM32CubeProgrammer.app/Contents/MacOs/bin/STM32_Programmer_CLI",
	"linux":   "/usr/local/STMicroelectronics/STM32Cube/STM32CubeProgrammer/bin/STM32_Programmer_CLI",
	"windows": `C:\Program Files\STMicroelectronics\STM32Cube\STM32CubeProgrammer\bin\STM32_Programmer_CLI.exe`,
}

// Config controls how firmware is located, staged and flashed.
type Config struct {
	// Programmers maps a GOOS value to the STM32_Programmer_CLI path on that host.
	Programmers map[string]string `yaml:"programmers"`

	// ProgrammerPath, when set, is used regardless of the host OS.
	ProgrammerPath string `yaml:"programmer_path" env:"STM32_PROGRAMMER_CLI"`

	Port       string `yaml:"port" env:"DFU_UPLOAD_PORT"`
	Extension  string `yaml:"extension" env:"DFU_UPLOAD_EXTENSION"`
	TargetDir  string `yaml:"target_dir" env:"CARGO_TARGET_DIR"`
	StagingDir string `yaml:"staging_dir" env:"DFU_UPLOAD_STAGING_DIR"`

	// GOOS is the host platform used for the Programmers lookup.
	GOOS string `yaml:"-"`
}

// Default returns the built-in configuration for the running host.
func Default() Config {
	return Config{
		Programmers: maps.Clone(DefaultProgrammers),
		Port:        flash.DefaultPort,
		Extension:   "elf",
		TargetDir:   "target",
		GOOS:        runtime.GOOS,
	}
}

// Load builds the configuration for the project in projectDir.
//
// path names a YAML file; when empty, DefaultConfigFile in projectDir is used
// if it exists. Environment variables override both. A relative TargetDir is
// taken relative to projectDir.
func Load(projectDir, path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(projectDir, DefaultConfigFile)
	}

	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
		getLogger().Debug("no config file", "path", path)
	} else {
		getLogger().Debug("loaded config file", "path", path)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if !filepath.IsAbs(cfg.TargetDir) {
		cfg.TargetDir = filepath.Join(projectDir, cfg.TargetDir)
	}
	return cfg, nil
}

// Programmer returns the programmer path for the configured host, failing
// with a *flash.PlatformUnsupportedError when the host has no entry.
func (c Config) Programmer() (string, error) {
	if c.ProgrammerPath != "" {
		return c.ProgrammerPath, nil
	}
	return flash.LookupProgrammer(c.Programmers, c.GOOS)
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	maps.Copy(c.Programmers, file.Programmers)
	for _, field := range []struct {
		dst *string
		src string
	}{
		{&c.ProgrammerPath, file.ProgrammerPath},
		{&c.Port, file.Port},
		{&c.Extension, file.Extension},
		{&c.TargetDir, file.TargetDir},
		{&c.StagingDir, file.StagingDir},
	} {
		if field.src != "" {
			*field.dst = field.src
		}
	}
	return nil
}
