package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/fsutil"
	"github.com/specialistvlad/madxpgo/internal/render"
	"github.com/specialistvlad/madxpgo/internal/script"
)

// ScriptExtension is the suffix of scripts found in directories.
const ScriptExtension = ".madx"

// Render prints the markdown rendition of the configured script. When the
// path is a directory every script under it is rendered, each under a
// level one heading named after the file.
func (a *App) Render(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	if a.config.ScriptPath == "" {
		return fmt.Errorf("no script given")
	}

	info, err := os.Stat(a.config.ScriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	if !info.IsDir() {
		md, err := renderFile(a.config.ScriptPath)
		if err != nil {
			return err
		}
		return a.emit(md)
	}

	files, err := fsutil.FindFiles(a.config.ScriptPath, ScriptExtension)
	if err != nil {
		return fmt.Errorf("failed to find scripts in %s: %w", a.config.ScriptPath, err)
	}
	if len(files) == 0 {
		a.logger.Warn("No scripts found in path.", "path", a.config.ScriptPath)
	}

	var sb strings.Builder
	for _, path := range files {
		md, err := renderFile(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(&sb, "# %s\n\n%s\n", filepath.Base(path), md)
	}
	ctxlog.FromContext(ctx).Debug("Scripts rendered.", "count", len(files))
	return a.emit(sb.String())
}

func renderFile(path string) (string, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	sections, err := script.Split(string(text))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return render.Markdown(sections), nil
}

// Format prints the configured script in canonical form.
func (a *App) Format(ctx context.Context) error {
	s, err := a.loadScript(a.withLogger(ctx))
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.outW, s.String())
	return err
}
