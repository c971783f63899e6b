// Package flash hands staged firmware to STM32CubeProgrammer's command line
// tool, which writes it to the board over USB DFU.
package flash

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/logging"
)

// DefaultPort is the DFU connection used by --connect.
const DefaultPort = "usb1"

// LookupProgrammer returns the programmer path registered for goos.
func LookupProgrammer(table map[string]string, goos string) (string, error) {
	path := strings.TrimSpace(table[goos])
	if path == "" {
		return "", &PlatformUnsupportedError{GOOS: goos}
	}
	return path, nil
}

// Args builds the programmer argument list: connect over port, write the
// file, then start the application.
func Args(port, file string) []string {
	return []string{
		"--connect", "port=" + port,
		"--write", file,
		"--start",
	}
}

// Programmer uploads firmware with STM32_Programmer_CLI.
type Programmer struct {
	Path   string
	Port   string
	Runner Runner
	Logger *slog.Logger
}

func (p *Programmer) logger() *slog.Logger {
	if p != nil {
		return logging.Ensure(p.Logger)
	}
	return slog.Default()
}

// Command returns the full command line Upload would run for staged.
func (p *Programmer) Command(staged string) ([]string, error) {
	abs, err := filepath.Abs(staged)
	if err != nil {
		return nil, fmt.Errorf("resolve staged path: %w", err)
	}
	port := p.Port
	if port == "" {
		port = DefaultPort
	}
	return append([]string{p.Path}, Args(port, abs)...), nil
}

// Upload runs the programmer against staged and returns its exit status
// unchanged.
func (p *Programmer) Upload(ctx context.Context, staged string) (int, error) {
	if p.Runner == nil || p.Path == "" {
		return -1, errors.New("programmer is not configured")
	}

	info, err := os.Stat(staged)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return -1, &StagingError{Path: staged, Reason: "does not exist"}
	case err != nil:
		return -1, &StagingError{Path: staged, Reason: err.Error()}
	case !info.Mode().IsRegular():
		return -1, &StagingError{Path: staged, Reason: "is not a regular file"}
	}

	command, err := p.Command(staged)
	if err != nil {
		return -1, err
	}

	logger := p.logger().With("programmer", p.Path)
	logger.Info("uploading firmware", "file", filepath.Base(staged), "command", strings.Join(command, " "))

	status, err := p.Runner.Run(ctx, command[0], command[1:]...)
	if err != nil {
		return -1, err
	}
	logger.Info("programmer exited", "status", status)
	return status, nil
}
