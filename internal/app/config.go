package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/madxpgo/internal/config"
	"github.com/specialistvlad/madxpgo/internal/script"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScriptPath string // .madx script, or a directory of them for Render

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	Engine EngineConfig

	DuplicateTitles    script.DuplicatePolicy
	ResolveEachSection bool
	CommandLogPath     string
	ProfilePath        string

	// Terminal renders markdown output with Style instead of printing it raw.
	Terminal bool
	Style    string
	Width    int
}

// EngineConfig selects the engine sessions are opened on.
type EngineConfig struct {
	Kind string

	Fixture string
	Seed    *uint64

	URL                string
	Namespace          string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	var errs []error

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat))
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort))
	}

	policy, err := script.ParseDuplicatePolicy(string(cfg.DuplicateTitles))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.DuplicateTitles = policy

	switch cfg.Engine.Kind {
	case "":
		cfg.Engine.Kind = config.EngineSandbox
	case config.EngineSandbox:
	case config.EngineRemote:
		if cfg.Engine.URL == "" {
			errs = append(errs, errors.New("the remote engine requires a URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown engine kind %q", cfg.Engine.Kind))
	}

	if cfg.Width < 0 {
		errs = append(errs, fmt.Errorf("invalid width %d", cfg.Width))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Apply fills the settings cfg leaves unset from a configuration file.
// Values already present in cfg, usually command line flags, win.
func (cfg Config) Apply(f *config.File) (Config, error) {
	if f == nil {
		return cfg, nil
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = f.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = f.LogFormat
	}
	if e := f.Engine; e != nil && cfg.Engine.Kind == "" {
		timeout, err := e.TimeoutDuration()
		if err != nil {
			return cfg, err
		}
		cfg.Engine = EngineConfig{
			Kind:               e.Kind,
			Fixture:            e.Fixture,
			URL:                e.URL,
			Namespace:          e.Namespace,
			Timeout:            timeout,
			InsecureSkipVerify: e.InsecureSkipVerify,
		}
		if e.Seed != nil {
			seed := uint64(*e.Seed)
			cfg.Engine.Seed = &seed
		}
	}
	if s := f.Script; s != nil {
		if cfg.DuplicateTitles == "" {
			cfg.DuplicateTitles = script.DuplicatePolicy(s.DuplicateTitles)
		}
		cfg.ResolveEachSection = cfg.ResolveEachSection || s.ResolveEachSection
		if cfg.CommandLogPath == "" {
			cfg.CommandLogPath = s.CommandLog
		}
	}
	if f.Profile != nil && cfg.ProfilePath == "" {
		cfg.ProfilePath = f.Profile.Path
	}
	return cfg, nil
}
