// Package decorate attaches attributes to the nodes and edges of a graph.
//
// A decoration table maps elements to attribute maps; applying it merges
// each map into the element's attributes, new values winning. Elements the
// graph does not contain are skipped. Tables come from difference markers,
// from the device-backed NodeDecorator, or from callers directly.
package decorate

import (
	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

// NodeTable maps node keys to the attributes to merge into them.
type NodeTable map[string]attr.Map

// EdgeTable maps edges to the attributes to merge into them.
type EdgeTable map[graph.Edge]attr.Map

// Nodes merges table into the nodes of g.
func Nodes(g *graph.Graph, table NodeTable) {
	for id, attrs := range table {
		if existing, ok := g.Node(id); ok {
			existing.Update(attrs)
		}
	}
}

// Edges merges table into the edges of g.
func Edges(g *graph.Graph, table EdgeTable) {
	for e, attrs := range table {
		if existing, ok := g.Edge(e.Source, e.Target); ok {
			existing.Update(attrs)
		}
	}
}

// NodeMarkers returns a table marking every node of diff with status.
func NodeMarkers(diff *graph.Graph, status vocab.DiffStatus) NodeTable {
	table := make(NodeTable, diff.Len())
	for _, id := range diff.Nodes() {
		table[id] = attr.Map{vocab.KeyDiffStatus: status}
	}
	return table
}

// EdgeMarkers returns a table marking every edge of diff with status.
func EdgeMarkers(diff *graph.Graph, status vocab.DiffStatus) EdgeTable {
	table := make(EdgeTable, diff.EdgeCount())
	for _, e := range diff.Edges() {
		table[e] = attr.Map{vocab.KeyDiffStatus: status}
	}
	return table
}
