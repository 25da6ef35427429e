package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/specialistvlad/madxpgo/internal/config"
	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/engine"
	"github.com/specialistvlad/madxpgo/internal/engine/remote"
	"github.com/specialistvlad/madxpgo/internal/engine/sandbox"
	"github.com/specialistvlad/madxpgo/internal/render"
	"github.com/specialistvlad/madxpgo/internal/script"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	factory engine.Factory

	progress   progress
	httpServer *http.Server
}

// NewApp builds an App from a validated Config. Results go to outW, logs
// to logW.
func NewApp(outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg, logW)
	logger.Debug("Logger configured successfully.")

	factory, err := engineFactory(cfg.Engine)
	if err != nil {
		return nil, err
	}
	logger.Debug("Engine factory ready.", "kind", cfg.Engine.Kind)

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		factory: factory,
	}, nil
}

func engineFactory(cfg EngineConfig) (engine.Factory, error) {
	switch cfg.Kind {
	case config.EngineRemote:
		return remote.Factory(remote.Options{
			URL:                cfg.URL,
			Namespace:          cfg.Namespace,
			Timeout:            cfg.Timeout,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}), nil
	default:
		var fixture *sandbox.Fixture
		if cfg.Fixture != "" {
			f, err := sandbox.LoadFixtureFile(cfg.Fixture)
			if err != nil {
				return nil, fmt.Errorf("failed to load fixture: %w", err)
			}
			fixture = f
		}
		var opts []sandbox.Option
		if cfg.Seed != nil {
			opts = append(opts, sandbox.WithSeed(*cfg.Seed))
		}
		return sandbox.Factory(fixture, opts...), nil
	}
}

func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// loadScript reads and indexes the configured script.
func (a *App) loadScript(ctx context.Context) (*script.Script, error) {
	if a.config.ScriptPath == "" {
		return nil, fmt.Errorf("no script given")
	}
	text, err := os.ReadFile(a.config.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return script.Parse(ctx, string(text), a.config.DuplicateTitles)
}

// emit writes markdown to the output, through the terminal renderer when
// configured.
func (a *App) emit(markdown string) error {
	if a.config.Terminal {
		out, err := render.Terminal(markdown, a.config.Style, a.config.Width)
		if err != nil {
			return err
		}
		markdown = out
	}
	_, err := io.WriteString(a.outW, markdown)
	return err
}
