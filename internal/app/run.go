package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/specialistvlad/madxpgo/internal/profile"
	"github.com/specialistvlad/madxpgo/internal/render"
	"github.com/specialistvlad/madxpgo/internal/runner"
)

// Run executes the configured script on a fresh engine session, saves the
// profile when a path is configured and prints a timing summary. A failed
// run still saves the sections that completed.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Run method started.")

	s, err := a.loadScript(ctx)
	if err != nil {
		return err
	}

	if _, err := a.startHealthCheckServer(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.closeHealthCheckServer(ctx))
	}()

	eng, err := a.factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to open engine session: %w", err)
	}
	defer func() {
		err = errors.Join(err, eng.Close(ctx))
	}()

	opts := runner.Options{ResolveEachSection: a.config.ResolveEachSection}
	if a.config.CommandLogPath != "" {
		f, err := os.Create(a.config.CommandLogPath)
		if err != nil {
			return fmt.Errorf("failed to create command log: %w", err)
		}
		defer f.Close()
		opts.CommandLog = f
	}
	var r *runner.Runner
	opts.OnSection = func(index, total int, title string) {
		a.progress.set(r.RunID(), index, total, title)
	}
	r = runner.New(eng, opts)

	prof, runErr := r.Run(ctx, s)
	a.progress.finish()

	if prof != nil && a.config.ProfilePath != "" {
		if err := profile.Save(a.config.ProfilePath, prof); err != nil {
			return errors.Join(runErr, err)
		}
		a.logger.Info("Profile saved.", "path", a.config.ProfilePath, "records", len(prof.Records))
	}
	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	if err := a.emit(summary(prof)); err != nil {
		return err
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

func summary(p *profile.Profile) string {
	rows := make([][]string, 0, len(p.Records))
	for _, r := range p.Records {
		rows = append(rows, []string{
			r.Title,
			strconv.FormatFloat(r.ExecutionTimeSeconds, 'f', 6, 64),
			strconv.Itoa(len(r.Values)),
		})
	}
	return "## Run " + p.RunID + "\n\n" + render.Table([]string{"section", "seconds", "names"}, rows)
}
