// Package render turns a script into a markdown document.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/specialistvlad/madxpgo/internal/script"
)

// HostCodeHeader is the first line of every host code fence.
const HostCodeHeader = "// host code"

// Markdown renders one heading per section. Commentary becomes prose, host
// code a go fence and engine code a fortran fence.
func Markdown(sections []script.Section) string {
	var sb strings.Builder
	for _, sec := range sections {
		sb.WriteString("## ")
		sb.WriteString(sec.Title)
		sb.WriteString("\n")
		for _, b := range sec.Blocks {
			switch b.Kind {
			case script.Commentary:
				sb.WriteString(b.Text)
				sb.WriteString("\n")
			case script.HostCode:
				fence(&sb, "go", HostCodeHeader+"\n"+b.Text)
			case script.EngineCode:
				fence(&sb, "fortran", b.Text)
			}
		}
	}
	return sb.String()
}

func fence(sb *strings.Builder, lang, text string) {
	sb.WriteString("```")
	sb.WriteString(lang)
	sb.WriteString("\n")
	sb.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
}

// Write renders sections to w.
func Write(w io.Writer, sections []script.Section) error {
	if _, err := io.WriteString(w, Markdown(sections)); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}

// Terminal renders markdown for a terminal with the given glamour style
// ("dark", "light", "notty", ...) wrapped at width columns.
func Terminal(markdown, style string, width int) (string, error) {
	if style == "" {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create terminal renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
