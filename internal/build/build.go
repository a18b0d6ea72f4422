// Package build constructs device topology graphs from a device.Source.
//
// Each Builder inspects one kind of relationship and returns a fresh graph
// of it:
//
//   - **SysfsGraphs**: SLAVE edges from every device to the devices it is
//     built on, as listed by sysfs slaves and holders.
//   - **PartitionGraphs**: PARTITION edges from a partition to its disk.
//   - **SpindleGraphs**: SPINDLE edges from a disk to the WWN of the drive
//     behind it.
//   - **DMPartitionGraphs**: CONGRUENCE edges from a disk, typically a
//     device-mapper device, to a partition with the same partition entry UUID.
//   - **EnclosureGraphs**: ENCLOSUREBAY edges from an enclosure to the
//     device in each of its bays.
//
// Aggregate composes the graphs of several builders into one, and Generate
// does so for a configuration and decorates the result.
//
// Every node a builder creates carries its node type and an identifier equal
// to its key; every edge carries its edge type.
package build

import (
	"context"
	"fmt"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/config"
	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/decorate"
	"github.com/vk/devdag/internal/device"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

// Builder produces one kind of topology graph.
type Builder interface {
	// Name is the configuration name of the builder.
	Name() string
	// Complete builds the graph covering every relevant device of src.
	Complete(ctx context.Context, src device.Source) (*graph.Graph, error)
}

func nodeAttrs(id string, nt vocab.NodeType) attr.Map {
	return attr.Map{vocab.KeyNodeType: nt, vocab.KeyIdentifier: attr.String(id)}
}

// AddNodes adds ids to g as nodes of type nt.
func AddNodes(g *graph.Graph, ids []string, nt vocab.NodeType) {
	for _, id := range ids {
		g.AddNode(id, nodeAttrs(id, nt))
	}
}

// AddEdges adds an edge of type et from every source to every target.
// Each edge also receives a copy of edgeAttrs, which may be nil.
func AddEdges(g *graph.Graph, sources, targets []string, et vocab.EdgeType, sourceType, targetType vocab.NodeType, edgeAttrs attr.Map) {
	AddNodes(g, sources, sourceType)
	AddNodes(g, targets, targetType)
	for _, s := range sources {
		for _, t := range targets {
			attrs := edgeAttrs.Clone()
			if attrs == nil {
				attrs = make(attr.Map, 1)
			}
			attrs[vocab.KeyEdgeType] = et
			g.AddEdge(s, t, attrs)
		}
	}
}

func named(g *graph.Graph, name string) *graph.Graph {
	g.Attrs()[vocab.KeyName] = attr.String(name)
	return g
}

func devicePaths(devs []device.Device) []string {
	out := make([]string, len(devs))
	for i, d := range devs {
		out[i] = d.Path()
	}
	return out
}

// Aggregate composes the graphs of builders and names the result.
func Aggregate(ctx context.Context, src device.Source, name string, builders ...Builder) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)
	graphs := make([]*graph.Graph, 0, len(builders))
	for _, b := range builders {
		g, err := b.Complete(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", b.Name(), err)
		}
		logger.Debug("Built graph.", "builder", b.Name(), "nodes", g.Len(), "edges", g.EdgeCount())
		graphs = append(graphs, g)
	}
	return named(graph.ComposeAll(graphs...), name), nil
}

// Generate builds the graph named name from the builders the configuration
// selects and decorates its nodes as the configuration describes.
func Generate(ctx context.Context, src device.Source, name string, model *config.Model, reg *Registry) (*graph.Graph, error) {
	builders, err := reg.Resolve(model.GraphTypes)
	if err != nil {
		return nil, err
	}
	decorator, err := decorate.NewNodeDecorator(src, model.NodeDecorations)
	if err != nil {
		return nil, err
	}

	g, err := Aggregate(ctx, src, name, builders...)
	if err != nil {
		return nil, err
	}
	if err := decorator.Decorate(ctx, g); err != nil {
		return nil, fmt.Errorf("decorating graph: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Generated device graph.", "name", name, "nodes", g.Len(), "edges", g.EdgeCount())
	return g, nil
}
