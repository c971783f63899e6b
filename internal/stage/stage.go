// Package stage copies a build artifact into a private temporary directory
// under the file name the flashing tool expects.
package stage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/logging"
)

// IOError reports a failure to read the artifact or write its staged copy.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("stage artifact: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Stager places staged copies in fresh directories below BaseDir, or below
// the OS temporary directory when BaseDir is empty. Staged files are left for
// the OS to clean up.
type Stager struct {
	BaseDir string
	Logger  *slog.Logger
}

func (s *Stager) logger() *slog.Logger {
	if s != nil {
		return logging.Ensure(s.Logger)
	}
	return slog.Default()
}

// FileName returns the staged name for artifactPath: its base name with
// "."+extension appended when extension is not empty.
func FileName(artifactPath, extension string) string {
	name := filepath.Base(artifactPath)
	extension = strings.TrimPrefix(extension, ".")
	if extension == "" {
		return name
	}
	return name + "." + extension
}

// Stage copies artifactPath byte for byte into a new, uniquely named
// directory and returns the path of the copy.
func (s *Stager) Stage(artifactPath, extension string) (string, error) {
	src, err := os.Open(artifactPath)
	if err != nil {
		return "", &IOError{Op: "open", Path: artifactPath, Err: err}
	}
	defer src.Close()

	dir, err := os.MkdirTemp(s.BaseDir, "dfu-upload-*")
	if err != nil {
		return "", &IOError{Op: "create staging directory in", Path: s.BaseDir, Err: err}
	}

	destination := filepath.Join(dir, FileName(artifactPath, extension))
	dst, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", &IOError{Op: "create", Path: destination, Err: err}
	}

	written, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return "", &IOError{Op: "copy to", Path: destination, Err: err}
	}
	if err := dst.Close(); err != nil {
		return "", &IOError{Op: "close", Path: destination, Err: err}
	}

	s.logger().Info("staged artifact", "source", artifactPath, "destination", destination, "bytes", written)
	return destination, nil
}
