package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/unison/internal/formatter"
	"github.com/desertthunder/unison/internal/services"
	"github.com/desertthunder/unison/internal/shared"
	"github.com/desertthunder/unison/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    services.Service
	youtube    services.Service
	logger     *log.Logger
	output     io.Writer
	engine     *tasks.Engine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    services.Service
	YouTube    services.Service
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		youtube:    opts.YouTube,
		logger:     opts.Logger,
		output:     opts.Output,
		engine:     tasks.NewEngine(opts.Logger, opts.Config.PageSize()),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, libraryCommand, serveCommand, demoCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// connectServices builds the remote services the config has credentials for. A service that
// cannot authenticate is left out and its core is skipped.
func (r *Runner) connectServices(ctx context.Context) {
	creds := r.config.Credentials

	if r.spotify == nil && creds.Spotify.AccessToken != "" {
		svc, err := services.NewSpotifyService(creds.Spotify.Map())
		if err != nil {
			r.logger.Warn("spotify core disabled", "error", err)
		} else {
			svc.SetTokenRefreshCallback(r.saveSpotifyToken)
			if err := svc.Authenticate(ctx, creds.Spotify.Map()); err != nil {
				r.logger.Warn("spotify core disabled", "error", err)
			} else {
				r.spotify = svc
			}
		}
	}

	if r.youtube == nil && creds.YouTube.ProxyURL != "" {
		svc := services.NewYouTubeService(creds.YouTube.ProxyURL)
		if creds.YouTube.HeadersPath != "" {
			if err := svc.Authenticate(ctx, map[string]string{"auth_file": creds.YouTube.HeadersPath}); err != nil {
				r.logger.Warn("youtube core disabled", "error", err)
				return
			}
		}
		r.youtube = svc
	}
}

// saveSpotifyToken persists a refreshed token so the next run starts with it.
func (r *Runner) saveSpotifyToken(token *oauth2.Token) {
	r.config.Credentials.Spotify.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		r.config.Credentials.Spotify.RefreshToken = token.RefreshToken
	}
	if r.configPath == "" {
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to save refreshed spotify token", "error", err)
		return
	}
	r.logger.Debug("saved refreshed spotify token", "path", r.configPath)
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
	r.writePlain("%v\n", formatter.Styles.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
