package sandbox

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/specialistvlad/madxpgo/internal/params"
)

var (
	assignRe = regexp.MustCompile(`^(?:(?:real\s+)?(const)\s+)?([A-Za-z_][A-Za-z0-9_.]*)\s*(:?=)\s*(.+)$`)
)

// splitStatements strips "!" and "//" comments and splits code on ";".
func splitStatements(code string) []string {
	var sb strings.Builder
	for _, line := range strings.Split(code, "\n") {
		if i := strings.Index(line, "!"); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(sb.String(), ";") {
		stmt = strings.Join(strings.Fields(stmt), " ")
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func (s *Sandbox) exec(ctx context.Context, stmt string) error {
	if m := assignRe.FindStringSubmatch(stmt); m != nil {
		constant := m[1] != ""
		name, op, expr := strings.ToLower(m[2]), m[3], strings.ToLower(m[4])
		s.logger.Debug("Assignment.", "name", name, "op", op, "expr", expr)
		return s.assign(name, expr, op == ":=", constant)
	}

	command, args := parseCommand(stmt)
	switch command {
	case "use":
		return s.use(args)
	case "beam":
		s.beam(args)
		return nil
	default:
		s.logger.Debug("Statement recorded, not executed.", "statement", stmt)
		s.commands = append(s.commands, stmt)
		return nil
	}
}

// parseCommand splits "cmd, key=value, flag" into the command name and its
// arguments. Flags without a value map to "true".
func parseCommand(stmt string) (string, map[string]string) {
	parts := strings.Split(stmt, ",")
	args := make(map[string]string, len(parts)-1)
	for _, part := range parts[1:] {
		key, value, found := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		if !found {
			args[key] = "true"
			continue
		}
		args[key] = strings.TrimSpace(strings.TrimPrefix(value, ":"))
	}
	return strings.ToLower(strings.TrimSpace(parts[0])), args
}

func (s *Sandbox) use(args map[string]string) error {
	name := strings.ToLower(args["sequence"])
	if name == "" {
		name = strings.ToLower(args["period"])
	}
	seq, ok := s.sequences[name]
	if !ok {
		return fmt.Errorf("use: unknown sequence %q", name)
	}
	seq.expanded = true
	if beam, ok := s.pendingBeams[name]; ok {
		seq.beam = beam
	} else if beam, ok := s.pendingBeams[""]; ok && seq.beam == nil {
		seq.beam = beam
	}

	// Expanding a sequence defines the names its expressions reference.
	for _, el := range seq.elements {
		for _, text := range el.exprs {
			for _, p := range params.Extract(text) {
				if _, ok := s.vars[p]; !ok {
					s.vars[p] = &variable{}
				}
			}
		}
	}
	s.logger.Debug("Sequence expanded.", "sequence", name, "beam", seq.beam != nil)
	return nil
}

func (s *Sandbox) beam(args map[string]string) {
	target := strings.ToLower(args["sequence"])
	attrs := make(map[string]any, len(args))
	for k, v := range args {
		if k == "sequence" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			attrs[k] = f
		} else {
			attrs[k] = v
		}
	}
	attrs["sequence"] = target
	s.pendingBeams[target] = attrs
	if seq, ok := s.sequences[target]; ok && seq.expanded {
		seq.beam = attrs
	}
}
