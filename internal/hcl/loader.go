package hcl

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/devdag/internal/config"
	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/fsutil"
	"github.com/vk/devdag/internal/vocab"
)

const (
	extHCL  = ".hcl"
	extJSON = ".json"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

func newModel() *config.Model {
	return &config.Model{
		NodeDecorations: make(map[vocab.NodeType]map[string]*config.FieldSpec),
		Persistent:      make(map[string][][]string),
	}
}

// Load reads every configuration file named by paths, walking directories
// for .hcl and .json files, and merges them in order. When no file sets the
// graph types, the default builder set is used.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Config loader started.", "path_count", len(paths))

	files, err := l.findConfigFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered config files.", "count", len(files))

	parser := hclparse.NewParser()
	model := newModel()
	for _, file := range files {
		var part *config.Model
		if filepath.Ext(file) == extJSON {
			part, err = l.loadJSON(ctx, parser, file)
		} else {
			part, err = l.loadHCL(ctx, parser, file)
		}
		if err != nil {
			return nil, err
		}
		model.Merge(part)
	}
	if len(model.GraphTypes) == 0 {
		model.GraphTypes = slices.Clone(config.DefaultGraphTypes)
	}

	logger.Debug("Config loading complete.",
		"decorated_types", len(model.NodeDecorations),
		"persistent_types", len(model.Persistent),
		"graph_types", model.GraphTypes,
	)
	return model, nil
}

// findConfigFiles expands directories and checks that every named file
// exists and has a supported extension.
func (l *Loader) findConfigFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, config.Errorf(path, "no such file or directory")
		}
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if ext := filepath.Ext(path); ext != extHCL && ext != extJSON {
				return nil, config.Errorf(path, "unsupported file type %q, want .hcl or .json", ext)
			}
			add(path)
			continue
		}

		found, err := fsutil.FindFiles(path, extHCL, extJSON)
		if err != nil {
			return nil, fmt.Errorf("searching %s: %w", path, err)
		}
		for _, f := range found {
			add(f)
		}
	}
	return all, nil
}

func diagError(file, msg string, diags hcl.Diagnostics) error {
	return &config.Error{Source: file, Msg: msg, Err: diags}
}

func (l *Loader) loadHCL(ctx context.Context, parser *hclparse.Parser, file string) (*config.Model, error) {
	f, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return nil, diagError(file, "failed to parse HCL", diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return nil, diagError(file, "failed to decode HCL", diags)
	}
	return l.translateRoot(ctx, file, &root), nil
}

// translateRoot converts the decoded HCL schema into the agnostic model.
func (l *Loader) translateRoot(ctx context.Context, file string, root *fileRoot) *config.Model {
	model := newModel()
	for _, d := range root.Decorations {
		fields := make(map[string]*config.FieldSpec, len(d.Fields))
		for _, f := range d.Fields {
			fields[f.Name] = &config.FieldSpec{Name: f.Name, Args: f.Args}
		}
		l.addDecorations(ctx, file, model, d.NodeType, fields)
	}
	for _, p := range root.Persistent {
		model.Persistent[p.NodeType] = p.Paths
	}
	model.GraphTypes = root.GraphTypes
	return model
}

// addDecorations records fields for the named node type. Unknown type names
// are skipped.
func (l *Loader) addDecorations(ctx context.Context, file string, model *config.Model, typeName string, fields map[string]*config.FieldSpec) {
	nt, ok := vocab.ParseNodeType(typeName)
	if !ok {
		ctxlog.FromContext(ctx).Warn("Ignoring decorations for unknown node type.", "file", file, "nodetype", typeName)
		return
	}
	if model.NodeDecorations[nt] == nil {
		model.NodeDecorations[nt] = make(map[string]*config.FieldSpec)
	}
	for name, spec := range fields {
		model.NodeDecorations[nt][name] = spec
	}
}
