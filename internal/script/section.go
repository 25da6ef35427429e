package script

import (
	"strings"
)

// Marker opens a section. The rest of its line is the section title.
const Marker = "! ## "

// Kind classifies a sub-block.
type Kind int

const (
	// Commentary is free-form prose, never executed.
	Commentary Kind = iota
	// HostCode is evaluated by the host-language interpreter.
	HostCode
	// EngineCode is submitted verbatim to the engine.
	EngineCode
)

func (k Kind) String() string {
	switch k {
	case Commentary:
		return "commentary"
	case HostCode:
		return "host"
	case EngineCode:
		return "engine"
	default:
		return "unknown"
	}
}

// Block is a maximal run of same-kind lines inside a section body, with the
// kind's line marker stripped.
type Block struct {
	Kind Kind
	Text string
}

// Section is one titled unit of a script.
type Section struct {
	Title string
	// Body is the raw text after the title line, without a trailing newline.
	Body   string
	Blocks []Block
}

// Executable reports which executable kinds appear in the section.
func (s Section) Executable() (host, engine bool) {
	for _, b := range s.Blocks {
		switch b.Kind {
		case HostCode:
			host = true
		case EngineCode:
			engine = true
		}
	}
	return host, engine
}

// Split partitions text into sections. It fails with a MalformedScriptError
// when text does not start with Marker. Title uniqueness is not checked
// here; see Parse.
func Split(text string) ([]Section, error) {
	if !strings.HasPrefix(text, Marker) {
		prefix := text
		if len(prefix) > len(Marker) {
			prefix = prefix[:len(Marker)]
		}
		return nil, &MalformedScriptError{Prefix: prefix}
	}

	var sections []Section
	for _, fragment := range splitFragments(text) {
		title, body, _ := strings.Cut(fragment, "\n")
		sections = append(sections, Section{
			Title:  title,
			Body:   body,
			Blocks: Classify(body),
		})
	}
	return sections, nil
}

// splitFragments cuts text at every line that starts with Marker and
// returns the fragments with the marker removed.
func splitFragments(text string) []string {
	var fragments []string
	rest := text[len(Marker):]
	for {
		idx := strings.Index(rest, "\n"+Marker)
		if idx < 0 {
			return append(fragments, rest)
		}
		fragments = append(fragments, rest[:idx])
		rest = rest[idx+1+len(Marker):]
	}
}

// Classify splits a section body into typed sub-blocks. Blank lines count
// as engine code, and engine blocks holding only whitespace are dropped.
func Classify(body string) []Block {
	var blocks []Block
	for _, line := range strings.Split(body, "\n") {
		kind, text := classifyLine(line)
		if n := len(blocks); n > 0 && blocks[n-1].Kind == kind {
			blocks[n-1].Text += "\n" + text
			continue
		}
		blocks = append(blocks, Block{Kind: kind, Text: text})
	}

	kept := blocks[:0]
	for _, b := range blocks {
		if b.Kind == EngineCode && strings.TrimSpace(b.Text) == "" {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

func classifyLine(line string) (Kind, string) {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "!"):
		return Commentary, trimmed[1:]
	case strings.HasPrefix(trimmed, "//"):
		text := trimmed[2:]
		return HostCode, strings.TrimPrefix(text, " ")
	default:
		return EngineCode, line
	}
}

// Format renders sections back into script text. It is the inverse of
// Split except that a section whose title line is followed only by a bare
// newline loses that newline.
func Format(sections []Section) string {
	var sb strings.Builder
	for i, s := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(Marker)
		sb.WriteString(s.Title)
		if s.Body != "" {
			sb.WriteString("\n")
			sb.WriteString(s.Body)
		}
	}
	return sb.String()
}
