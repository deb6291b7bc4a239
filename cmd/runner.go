package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytune/internal/shared"
	"github.com/desertthunder/ytune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The config and engine are loaded on first use so that `setup` can run before a
// config file exists.
type Runner struct {
	config     *shared.Config
	engine     *tasks.Engine
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	ownsEngine bool
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // Nil loads --config on first use
	Engine     *tasks.Engine  // Nil opens the storage described by the config on first use
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		engine:     opts.Engine,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "ytune",
		Usage:   "Search, cache and organise music from the terminal",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output JSON instead of tables",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: r.register(),
		After: func(ctx context.Context, cmd *cli.Command) error {
			return r.close()
		},
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, searchCommand, playCommand, favoriteCommand, cacheCommand, playlistCommand, quotaCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads --config, falling back to defaults when the file does not exist.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	path := cmd.String("config")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", path)
		r.config = shared.DefaultConfig()
	} else {
		cfg, err := shared.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		r.config = cfg
	}

	if r.config.Logging.File != "" || r.config.Logging.Level != "" {
		r.logger = shared.ConfiguredLogger(r.config.Logging)
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return r.config, nil
}

// open returns the engine, opening it from the config on first use.
func (r *Runner) open(ctx context.Context, cmd *cli.Command) (*tasks.Engine, error) {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if r.engine != nil {
		return r.engine, nil
	}

	e, err := tasks.OpenConfig(ctx, cfg, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	r.engine, r.ownsEngine = e, true
	return e, nil
}

func (r *Runner) close() error {
	if r.engine == nil || !r.ownsEngine {
		return nil
	}
	err := r.engine.Close()
	r.engine, r.ownsEngine = nil, false
	return err
}

// printProgress writes progress updates until the channel closes.
func (r *Runner) printProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	for u := range progress {
		r.logger.Debug("progress", "phase", u.Phase, "step", u.Step, "total", u.Total)
		r.writePlain("%s\n", u.Message)
	}
	close(done)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
