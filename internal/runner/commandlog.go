package runner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/madxpgo/internal/engine"
)

// commandLog mirrors every engine submission to a writer, including the
// ones host snippets make.
type commandLog struct {
	engine.Engine
	w io.Writer
}

func (c *commandLog) Input(ctx context.Context, code string) error {
	text := strings.TrimRight(code, "\n")
	if _, err := fmt.Fprintln(c.w, text); err != nil {
		return fmt.Errorf("failed to write command log: %w", err)
	}
	return c.Engine.Input(ctx, code)
}
