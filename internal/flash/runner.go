package flash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

//go:generate mockgen -destination=mocks/mock_runner.go -package=mocks . Runner

// Runner starts an external program and waits for it to exit.
type Runner interface {
	// Run returns the exit status of the program. An error means the
	// program could not be run at all.
	Run(ctx context.Context, name string, args ...string) (int, error)
}

// ExecRunner runs programs with os/exec, attaching the given streams.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Ensure ExecRunner satisfies the Runner interface.
var _ Runner = (*ExecRunner)(nil)

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}
	return -1, fmt.Errorf("run %s: %w", name, err)
}
