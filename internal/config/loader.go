package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/madxpgo/internal/ctxlog"
	"github.com/specialistvlad/madxpgo/internal/fsutil"
)

// Extension is the suffix of configuration files found in directories.
const Extension = ".hcl"

// Load decodes every configuration file under the given paths, which may
// be files or directories, and merges them in order. No paths yields an
// empty File.
func Load(ctx context.Context, paths ...string) (*File, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, p := range paths {
		found, err := fsutil.FindFiles(p, Extension)
		if err != nil {
			return nil, fmt.Errorf("failed to find config files in %s: %w", p, err)
		}
		if len(found) == 0 {
			logger.Warn("No config files found in path.", "path", p)
		}
		files = append(files, found...)
	}

	merged := &File{}
	parser := hclparse.NewParser()
	for _, path := range files {
		f, err := decodeFile(parser, path)
		if err != nil {
			return nil, err
		}
		logger.Debug("Config file decoded.", "path", path)
		merged.merge(f)
	}

	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return merged, nil
}

// Parse decodes a single configuration held in memory. filename only
// appears in diagnostics.
func Parse(src []byte, filename string) (*File, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &f, nil
}

func decodeFile(parser *hclparse.Parser, path string) (*File, error) {
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	var f File
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	return &f, nil
}
