package cli

import (
	"github.com/spf13/cobra"

	"github.com/specialistvlad/madxpgo/internal/app"
	"github.com/specialistvlad/madxpgo/internal/config"
)

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	configPaths []string

	logFormat string
	logLevel  string

	engine   string
	fixture  string
	seed     uint64
	url      string
	ns       string
	timeout  string
	insecure bool
}

func (o *globalOptions) bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringSliceVarP(&o.configPaths, "config", "c", nil, "HCL configuration file or directory (repeatable).")
	f.StringVar(&o.logFormat, "log-format", "", "Log output format. Options: 'text' or 'json'.")
	f.StringVar(&o.logLevel, "log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	f.StringVar(&o.engine, "engine", "", "Engine to drive. Options: 'sandbox' or 'remote'.")
	f.StringVar(&o.fixture, "fixture", "", "YAML lattice fixture for the sandbox engine.")
	f.Uint64Var(&o.seed, "seed", 0, "Seed of the sandbox random functions.")
	f.StringVar(&o.url, "url", "", "socket.io URL of the remote engine.")
	f.StringVar(&o.ns, "namespace", "", "socket.io namespace of the remote engine.")
	f.StringVar(&o.timeout, "timeout", "", "Per request timeout of the remote engine, e.g. 30s.")
	f.BoolVar(&o.insecure, "insecure", false, "Skip TLS verification for the remote engine.")
}

// config merges the flags with the configuration files. Flags win. base
// carries the command specific settings.
func (o *globalOptions) config(cmd *cobra.Command, base app.Config) (*app.Config, error) {
	var file *config.File
	if len(o.configPaths) > 0 {
		f, err := config.Load(cmd.Context(), o.configPaths...)
		if err != nil {
			return nil, usageError(err)
		}
		file = f
	}

	base.LogFormat = o.logFormat
	base.LogLevel = o.logLevel
	if o.engine != "" {
		engine := &config.EngineBlock{
			Kind:               o.engine,
			Fixture:            o.fixture,
			URL:                o.url,
			Namespace:          o.ns,
			Timeout:            o.timeout,
			InsecureSkipVerify: o.insecure,
		}
		if err := (&config.File{Engine: engine}).Validate(); err != nil {
			return nil, usageError(err)
		}
		timeout, _ := engine.TimeoutDuration()
		base.Engine = app.EngineConfig{
			Kind:               engine.Kind,
			Fixture:            engine.Fixture,
			URL:                engine.URL,
			Namespace:          engine.Namespace,
			Timeout:            timeout,
			InsecureSkipVerify: engine.InsecureSkipVerify,
		}
	}

	cfg, err := base.Apply(file)
	if err != nil {
		return nil, usageError(err)
	}
	if o.engine == "" && o.fixture != "" && (cfg.Engine.Kind == "" || cfg.Engine.Kind == config.EngineSandbox) {
		cfg.Engine.Kind = config.EngineSandbox
		cfg.Engine.Fixture = o.fixture
	}
	if cmd.Flags().Changed("seed") {
		seed := o.seed
		cfg.Engine.Seed = &seed
	}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return validated, nil
}

// renderOptions are the markdown output flags.
type renderOptions struct {
	terminal bool
	style    string
	width    int
}

func (o *renderOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.terminal, "terminal", false, "Render markdown for the terminal.")
	f.StringVar(&o.style, "style", "dark", "Terminal style: 'dark', 'light', 'notty', ...")
	f.IntVar(&o.width, "width", 80, "Terminal word wrap width.")
}

func (o *renderOptions) apply(cfg app.Config) app.Config {
	cfg.Terminal = o.terminal
	cfg.Style = o.style
	cfg.Width = o.width
	return cfg
}
