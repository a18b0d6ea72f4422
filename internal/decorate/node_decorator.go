package decorate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/config"
	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/device"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

// field computes one decoration field of a device node.
type field interface {
	name() string
	value(d device.Device) attr.Value
}

// udevField records the requested udev properties; absent ones are null.
type udevField struct{ keys []string }

func (udevField) name() string { return config.FieldUdev }

func (f udevField) value(d device.Device) attr.Value {
	out := make(attr.Map, len(f.keys))
	for _, k := range f.keys {
		if v, ok := d.Property(k); ok {
			out[k] = attr.String(v)
		} else {
			out[k] = attr.Nil
		}
	}
	return out
}

// sysfsField records the requested sysfs attributes; unreadable ones are
// null.
type sysfsField struct{ names []string }

func (sysfsField) name() string { return config.FieldSysfs }

func (f sysfsField) value(d device.Device) attr.Value {
	out := make(attr.Map, len(f.names))
	for _, n := range f.names {
		if v, err := d.Attribute(n); err == nil {
			out[n] = attr.String(v)
		} else {
			out[n] = attr.Nil
		}
	}
	return out
}

// devlinkField groups the device links by category. Every requested
// category is present; one without links is null.
type devlinkField struct{ categories []string }

func (devlinkField) name() string { return config.FieldDevlink }

func (f devlinkField) value(d device.Device) attr.Value {
	grouped := make(map[string]attr.Seq)
	for _, link := range d.Links() {
		if cat, ok := device.LinkCategory(link); ok {
			grouped[cat] = append(grouped[cat], attr.String(device.LinkValue(link)))
		}
	}
	out := make(attr.Map, len(f.categories))
	for _, c := range f.categories {
		if links, ok := grouped[c]; ok {
			out[c] = links
		} else {
			out[c] = attr.Nil
		}
	}
	return out
}

type sysnameField struct{}

func (sysnameField) name() string { return config.FieldSysname }

func (sysnameField) value(d device.Device) attr.Value { return attr.String(d.SysName()) }

func newField(spec *config.FieldSpec) (field, error) {
	args := slices.Clone(spec.Args)
	switch spec.Name {
	case config.FieldUdev:
		return udevField{keys: args}, nil
	case config.FieldSysfs:
		return sysfsField{names: args}, nil
	case config.FieldDevlink:
		return devlinkField{categories: args}, nil
	case config.FieldSysname:
		return sysnameField{}, nil
	}
	return nil, config.Errorf("", "unknown decoration field %q", spec.Name)
}

// NodeDecorator decorates device nodes with information read from a device
// source, as configured per node type.
type NodeDecorator struct {
	src    device.Source
	fields map[vocab.NodeType][]field
}

// NewNodeDecorator builds a decorator for the given per-type field
// configuration. Unknown field names are a configuration error.
func NewNodeDecorator(src device.Source, decorations map[vocab.NodeType]map[string]*config.FieldSpec) (*NodeDecorator, error) {
	nd := &NodeDecorator{src: src, fields: make(map[vocab.NodeType][]field)}
	for nt, specs := range decorations {
		for _, name := range slices.Sorted(maps.Keys(specs)) {
			spec := specs[name]
			if spec == nil {
				spec = &config.FieldSpec{}
			}
			if spec.Name == "" {
				spec = &config.FieldSpec{Name: name, Args: spec.Args}
			}
			f, err := newField(spec)
			if err != nil {
				return nil, err
			}
			nd.fields[nt] = append(nd.fields[nt], f)
		}
	}
	return nd, nil
}

// decoratable reports whether a node with these attributes names a device.
func decoratable(attrs attr.Map) bool {
	return vocab.DevicePath.Equal(attrs[vocab.KeyNodeType])
}

// Table computes the decorations of g's nodes without applying them.
// Nodes whose device cannot be found are left out.
func (nd *NodeDecorator) Table(ctx context.Context, g *graph.Graph) (NodeTable, error) {
	logger := ctxlog.FromContext(ctx)
	table := make(NodeTable)
	for _, id := range g.Nodes() {
		attrs, _ := g.Node(id)
		if !decoratable(attrs) {
			continue
		}
		fields := nd.fields[vocab.DevicePath]
		if len(fields) == 0 {
			continue
		}
		d, err := nd.src.FromPath(ctx, id)
		if errors.Is(err, device.ErrNotFound) {
			logger.Debug("Skipping node with no device.", "node", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decorating %s: %w", id, err)
		}
		row := make(attr.Map, len(fields))
		for _, f := range fields {
			row[f.name()] = f.value(d)
		}
		table[id] = row
	}
	return table, nil
}

// Decorate computes and applies the decorations of g's nodes.
func (nd *NodeDecorator) Decorate(ctx context.Context, g *graph.Graph) error {
	table, err := nd.Table(ctx, g)
	if err != nil {
		return err
	}
	Nodes(g, table)
	return nil
}
