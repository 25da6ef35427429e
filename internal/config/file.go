package config

import (
	"errors"
	"fmt"
	"time"
)

// Engine kinds accepted in an engine block label.
const (
	EngineSandbox = "sandbox"
	EngineRemote  = "remote"
)

// File is the decoded form of one configuration file.
type File struct {
	LogLevel  string        `hcl:"log_level,optional"`
	LogFormat string        `hcl:"log_format,optional"`
	Engine    *EngineBlock  `hcl:"engine,block"`
	Script    *ScriptBlock  `hcl:"script,block"`
	Profile   *ProfileBlock `hcl:"profile,block"`
}

// EngineBlock selects and configures the engine, e.g.
//
//	engine "sandbox" { fixture = "lattice.yaml" }
//	engine "remote"  { url = "http://localhost:8080/socket.io/" }
type EngineBlock struct {
	Kind string `hcl:"kind,label"`

	// sandbox
	Fixture string `hcl:"fixture,optional"`
	Seed    *int64 `hcl:"seed,optional"`

	// remote
	URL                string `hcl:"url,optional"`
	Namespace          string `hcl:"namespace,optional"`
	Timeout            string `hcl:"timeout,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// ScriptBlock holds the script execution policies.
type ScriptBlock struct {
	DuplicateTitles    string `hcl:"duplicate_titles,optional"`
	ResolveEachSection bool   `hcl:"resolve_each_section,optional"`
	CommandLog         string `hcl:"command_log,optional"`
}

// ProfileBlock names the profile output file. The format follows the
// extension.
type ProfileBlock struct {
	Path string `hcl:"path"`
}

// TimeoutDuration parses the remote timeout. An empty value yields zero.
func (e *EngineBlock) TimeoutDuration() (time.Duration, error) {
	if e.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil {
		return 0, fmt.Errorf("engine %q: invalid timeout %q: %w", e.Kind, e.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("engine %q: timeout must not be negative", e.Kind)
	}
	return d, nil
}

// Validate checks the settings that decoding alone cannot.
func (f *File) Validate() error {
	var errs []error
	if e := f.Engine; e != nil {
		switch e.Kind {
		case EngineSandbox:
			if e.URL != "" || e.Namespace != "" || e.Timeout != "" {
				errs = append(errs, errors.New(`engine "sandbox" does not accept url, namespace or timeout`))
			}
		case EngineRemote:
			if e.URL == "" {
				errs = append(errs, errors.New(`engine "remote" requires url`))
			}
			if e.Fixture != "" || e.Seed != nil {
				errs = append(errs, errors.New(`engine "remote" does not accept fixture or seed`))
			}
			if _, err := e.TimeoutDuration(); err != nil {
				errs = append(errs, err)
			}
		default:
			errs = append(errs, fmt.Errorf("unknown engine kind %q: must be %q or %q", e.Kind, EngineSandbox, EngineRemote))
		}
	}
	if f.Profile != nil && f.Profile.Path == "" {
		errs = append(errs, errors.New("profile path must not be empty"))
	}
	return errors.Join(errs...)
}

// merge overlays the settings present in o onto f.
func (f *File) merge(o *File) {
	if o.LogLevel != "" {
		f.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		f.LogFormat = o.LogFormat
	}
	if o.Engine != nil {
		f.Engine = o.Engine
	}
	if o.Script != nil {
		f.Script = o.Script
	}
	if o.Profile != nil {
		f.Profile = o.Profile
	}
}
