// Package runner executes a script section by section against one engine
// session and records a profiling row after every section.
package runner

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/engine"
	"github.com/specialistvlad/madxpgo/internal/hostcode"
	"github.com/specialistvlad/madxpgo/internal/profile"
	"github.com/specialistvlad/madxpgo/internal/script"
	"github.com/specialistvlad/madxpgo/internal/vars"
)

// Options tunes a Runner.
type Options struct {
	// RunID identifies the run in logs and in the profile. A random UUID is
	// used when empty.
	RunID string

	// ResolveEachSection adds the knob set of every dependent variable to
	// each profiling record.
	ResolveEachSection bool

	// CommandLog, when set, receives every engine submission.
	CommandLog io.Writer

	// OnSection, when set, is called before each section starts.
	OnSection func(index, total int, title string)
}

// Runner drives one engine session through scripts.
type Runner struct {
	eng     engine.Engine
	exports *hostcode.Exports
	opts    Options
}

// New returns a Runner for eng.
func New(eng engine.Engine, opts Options) *Runner {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.CommandLog != nil {
		eng = &commandLog{Engine: eng, w: opts.CommandLog}
	}
	return &Runner{eng: eng, exports: hostcode.NewExports(), opts: opts}
}

// RunID returns the identifier of the run.
func (r *Runner) RunID() string { return r.opts.RunID }

// Exports returns the export table of the latest Run. Each Run starts
// with an empty table.
func (r *Runner) Exports() *hostcode.Exports { return r.exports }

// Validate rejects sections mixing host code and engine code.
func Validate(sections []script.Section) error {
	for i, sec := range sections {
		if host, eng := sec.Executable(); host && eng {
			return &MixedContentError{Title: sec.Title, Index: i}
		}
	}
	return nil
}

// Run validates then executes every section in order. The first failure
// stops the run; the returned profile holds the sections completed before
// it. Engine state is not rolled back.
func (r *Runner) Run(ctx context.Context, s *script.Script) (*profile.Profile, error) {
	ctx = ctxlog.With(ctx, "run_id", r.opts.RunID)
	logger := ctxlog.FromContext(ctx)

	if err := Validate(s.Sections); err != nil {
		return nil, err
	}

	r.exports = hostcode.NewExports()
	prof := profile.New(r.opts.RunID, time.Now())
	logger.Info("Run started.", "sections", len(s.Sections))
	for i, sec := range s.Sections {
		if r.opts.OnSection != nil {
			r.opts.OnSection(i, len(s.Sections), sec.Title)
		}
		rec, err := r.runSection(ctx, i, sec)
		if err != nil {
			logger.Error("Section failed.", "index", i, "title", sec.Title, "error", err)
			return prof, &SectionError{Title: sec.Title, Index: i, Err: err}
		}
		prof.Add(rec)
	}
	logger.Info("Run finished.", "sections", len(prof.Records), "elapsed", prof.Total())
	return prof, nil
}

func (r *Runner) runSection(ctx context.Context, index int, sec script.Section) (profile.Record, error) {
	logger := ctxlog.FromContext(ctx).With("section", sec.Title, "index", index)
	ctx = ctxlog.WithLogger(ctx, logger)

	start := time.Now()
	if err := r.execute(ctx, sec); err != nil {
		return profile.Record{}, err
	}
	elapsed := time.Since(start)

	values, err := r.eng.Globals(ctx)
	if err != nil {
		return profile.Record{}, err
	}
	rec := profile.Record{
		Title:                sec.Title,
		Values:               values,
		ExecutionTimeSeconds: elapsed.Seconds(),
		Exports:              r.exports.Snapshot(),
	}
	if r.opts.ResolveEachSection {
		ns, err := vars.Snapshot(ctx, r.eng)
		if err != nil {
			return profile.Record{}, err
		}
		rec.Knobs = ns.KnobsOf()
	}
	logger.Debug("Section finished.", "elapsed", elapsed, "names", len(values))
	return rec, nil
}

// execute runs the blocks of one section inside an engine scope. The scope
// is closed whatever the outcome.
func (r *Runner) execute(ctx context.Context, sec script.Section) (err error) {
	logger := ctxlog.FromContext(ctx)

	scope, err := r.eng.OpenScope(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := scope.Close(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	// One interpreter per section: host blocks split by commentary share
	// their locals.
	host := hostcode.New(r.eng, r.exports)
	for _, b := range sec.Blocks {
		switch b.Kind {
		case script.Commentary:
			continue
		case script.HostCode:
			logger.Debug("Running host code.")
			if err := host.Run(ctx, b.Text); err != nil {
				return err
			}
		case script.EngineCode:
			logger.Debug("Submitting engine code.")
			if err := r.eng.Input(ctx, b.Text); err != nil {
				return err
			}
		}
	}
	return nil
}
