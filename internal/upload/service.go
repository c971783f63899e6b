package upload

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/resolve"
)

// BuildResolver picks the build output to upload.
type BuildResolver interface {
	Resolve(hint string) (resolve.Build, error)
}

// ArtifactStager copies an artifact to where the programmer can take it.
type ArtifactStager interface {
	Stage(artifactPath, extension string) (string, error)
}

// Backend flashes a staged artifact and reports the tool's exit status.
type Backend interface {
	Command(staged string) ([]string, error)
	Upload(ctx context.Context, staged string) (int, error)
}

// Request describes one upload.
type Request struct {
	// Profiles holds every --profile/-p value given on the command line.
	Profiles  []string
	Extension string
	DryRun    bool
}

// Result reports what was uploaded and how the programmer exited.
type Result struct {
	RunID   string
	Build   resolve.Build
	Staged  string
	Command []string
	Status  int
}

// Service runs the resolve, stage and flash steps in order.
type Service struct {
	Logger   *slog.Logger
	Resolver BuildResolver
	Stager   ArtifactStager
	Backend  Backend
}

func (s *Service) Run(ctx context.Context, request Request) (Result, error) {
	if s.Resolver == nil || s.Stager == nil || s.Backend == nil {
		return Result{}, errors.New("upload service is not configured")
	}

	result := Result{RunID: uuid.NewString()}
	logger := s.logger().With("run", result.RunID)

	hint, err := resolve.HintFromFlags(request.Profiles)
	if err != nil {
		return result, err
	}

	result.Build, err = s.Resolver.Resolve(hint)
	if err != nil {
		return result, err
	}
	logger = logger.With("profile", result.Build.Profile)
	logger.Info("uploading build profile", "artifact", result.Build.Path)

	result.Staged, err = s.Stager.Stage(result.Build.Path, request.Extension)
	if err != nil {
		return result, err
	}

	result.Command, err = s.Backend.Command(result.Staged)
	if err != nil {
		return result, err
	}

	if request.DryRun {
		logger.Info("dry run; programmer not invoked", "command", strings.Join(result.Command, " "))
		return result, nil
	}

	result.Status, err = s.Backend.Upload(ctx, result.Staged)
	if err != nil {
		return result, err
	}
	if result.Status != 0 {
		logger.Warn("programmer reported failure", "status", result.Status)
	}
	return result, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
