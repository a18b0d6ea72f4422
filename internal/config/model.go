package config

import (
	"maps"
	"slices"

	"github.com/vk/devdag/internal/vocab"
)

// AnyNodeType keys persistent attribute paths that apply to every node type.
const AnyNodeType = "*"

// Decoration field names.
const (
	FieldUdev    = "UDEV"
	FieldSysfs   = "SYSFS"
	FieldDevlink = "DEVLINK"
	FieldSysname = "SYSNAME"
)

// FieldSpec is one decoration field with its arguments, e.g. the udev
// property names for UDEV or the link categories for DEVLINK.
type FieldSpec struct {
	Name string
	Args []string
}

// Model is the unified, format-agnostic representation of the devdag
// configuration.
type Model struct {
	// NodeDecorations maps a node type to its decoration fields by name.
	NodeDecorations map[vocab.NodeType]map[string]*FieldSpec
	// Persistent maps a node type name, or AnyNodeType, to the attribute
	// paths that must agree for two nodes of that type to be equivalent.
	// Names that are not node types are kept so they can be reported.
	Persistent map[string][][]string
	// GraphTypes names the builders the aggregate graph is composed of.
	GraphTypes []string
}

// DefaultGraphTypes is the builder set used when none is configured.
var DefaultGraphTypes = []string{"DMPartitionGraphs", "PartitionGraphs", "SpindleGraphs", "SysfsBlockGraphs"}

// Default returns the configuration devdag uses when no file is given.
func Default() *Model {
	return &Model{
		NodeDecorations: map[vocab.NodeType]map[string]*FieldSpec{
			vocab.DevicePath: {
				FieldUdev: {Name: FieldUdev, Args: []string{
					"DEVNAME", "DEVPATH", "DEVTYPE", "DM_NAME", "DM_UUID", "SUBSYSTEM",
				}},
				FieldSysfs:   {Name: FieldSysfs, Args: []string{"size", "dm/name"}},
				FieldDevlink: {Name: FieldDevlink, Args: []string{"by-path"}},
				FieldSysname: {Name: FieldSysname},
			},
		},
		Persistent: map[string][][]string{
			vocab.WWN.String(): {{vocab.KeyIdentifier}},
		},
		GraphTypes: slices.Clone(DefaultGraphTypes),
	}
}

// Merge overlays other onto m. Decoration fields and persistent paths are
// replaced per key; a non-empty GraphTypes list replaces m's.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	if m.NodeDecorations == nil {
		m.NodeDecorations = make(map[vocab.NodeType]map[string]*FieldSpec)
	}
	for nt, fields := range other.NodeDecorations {
		if m.NodeDecorations[nt] == nil {
			m.NodeDecorations[nt] = make(map[string]*FieldSpec)
		}
		maps.Copy(m.NodeDecorations[nt], fields)
	}
	if m.Persistent == nil {
		m.Persistent = make(map[string][][]string)
	}
	maps.Copy(m.Persistent, other.Persistent)
	if len(other.GraphTypes) > 0 {
		m.GraphTypes = slices.Clone(other.GraphTypes)
	}
}
