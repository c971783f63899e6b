// Command dfu-upload flashes the firmware built by Cargo onto an STM32 board.
//
// It finds the binary under target/<triple>/<profile>/<package>, copies it to
// a temporary directory with an .elf extension, and runs
//
//	STM32_Programmer_CLI --connect port=usb1 --write <file> --start
//
// exiting with the programmer's status.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/cargo"
	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/flash"
	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/logging"
	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/resolve"
	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/setup"
	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/stage"
	"github.com/TG-Techie/rs-stm32wb5mmg-examples/internal/upload"
)

const defaultLogLevel = "info"

// environment is what the command takes from the process it runs in.
type environment struct {
	goos   string
	runner flash.Runner
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := execute(ctx, os.Args[1:], environment{
		goos:   runtime.GOOS,
		runner: &flash.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr},
		stdout: os.Stdout,
		stderr: os.Stderr,
	})

	stop()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, env environment) int {
	c := &cli{env: env, levelVar: new(slog.LevelVar)}
	c.logger = logging.New(logging.FormatText, env.stderr, c.levelVar)

	root := newRootCommand(c)
	root.SetArgs(args)
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			c.logger.Warn("upload interrupted", "error", err)
			return 130
		}
		c.logger.Error("dfu-upload failed", "error", err)
		return 1
	}
	return c.status
}

type cli struct {
	env      environment
	levelVar *slog.LevelVar
	logger   *slog.Logger
	config   setup.Config
	status   int

	projectDir string
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand(c *cli) *cobra.Command {
	var (
		profiles  []string
		extension string
		dryRun    bool
	)

	root := &cobra.Command{
		Use:           "dfu-upload",
		Short:         "Upload a Cargo-built firmware binary to an STM32 board over USB DFU",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Checked first so an unsupported host fails before any build lookup.
			programmerPath, err := c.config.Programmer()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("extension") {
				extension = c.config.Extension
			}

			logger := c.logger.With("command", "upload")
			service := upload.Service{
				Logger:   logger,
				Resolver: c.resolver(logger),
				Stager: &stage.Stager{
					BaseDir: c.config.StagingDir,
					Logger:  logger.With("component", "stage"),
				},
				Backend: &flash.Programmer{
					Path:   programmerPath,
					Port:   c.config.Port,
					Runner: c.env.runner,
					Logger: logger.With("component", "flash"),
				},
			}

			result, err := service.Run(cmd.Context(), upload.Request{
				Profiles:  profiles,
				Extension: extension,
				DryRun:    dryRun,
			})
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(result.Command, " "))
			}
			c.status = result.Status
			return nil
		},
	}

	persistent := root.PersistentFlags()
	persistent.StringVar(&c.logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warning, error)")
	persistent.StringVar(&c.logFormat, "log-format", string(logging.FormatText), "Set log format (text, json)")
	persistent.StringVarP(&c.projectDir, "project-dir", "C", ".", "Cargo project directory")
	persistent.StringVar(&c.configPath, "config", "", "YAML config file (default <project-dir>/"+setup.DefaultConfigFile+" if present)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.configure()
	}

	flags := root.Flags()
	flags.StringArrayVarP(&profiles, "profile", "p", nil, "Build profile to upload, e.g. --profile=release (required when several exist)")
	flags.StringVar(&extension, "extension", "", "Extension appended to the staged file name; empty for none (default from config, \"elf\")")
	flags.BoolVar(&dryRun, "dry-run", false, "Resolve and stage the firmware, print the programmer command, but do not run it")

	root.AddCommand(newListCommand(c))
	return root
}

func newListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List build profiles that have a firmware binary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := c.logger.With("command", "list")

			found, err := c.resolver(logger).Discover()
			if err != nil {
				return err
			}
			if len(found.Builds) == 0 {
				logger.Warn("no build outputs found", "dir", found.Dir, "package", found.Package)
				return nil
			}

			out := cmd.OutOrStdout()
			for _, profile := range found.Builds.Profiles() {
				fmt.Fprintf(out, "%s\t%s\n", profile, found.Builds[profile].Path)
			}
			return nil
		},
	}
}

// configure applies the logging flags and loads the configuration. It runs
// before every command.
func (c *cli) configure() error {
	level, err := logging.ParseLevel(c.logLevel)
	if err != nil {
		return err
	}
	c.levelVar.Set(level)

	format, err := logging.ParseFormat(c.logFormat)
	if err != nil {
		return err
	}
	c.logger = logging.New(format, c.env.stderr, c.levelVar)
	setup.SetLogger(c.logger.With("component", "setup"))

	c.config, err = setup.Load(c.projectDir, c.configPath)
	if err != nil {
		return err
	}
	c.config.GOOS = c.env.goos
	return nil
}

func (c *cli) resolver(logger *slog.Logger) *resolve.Resolver {
	return &resolve.Resolver{
		Config:    &cargo.Project{Dir: c.projectDir},
		Outputs:   os.DirFS(c.config.TargetDir),
		TargetDir: c.config.TargetDir,
		Logger:    logger.With("component", "resolve"),
	}
}
