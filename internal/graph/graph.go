package graph

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/vk/devdag/internal/attr"
)

// Edge identifies a directed edge by its endpoints.
type Edge struct {
	Source string
	Target string
}

func (e Edge) String() string { return fmt.Sprintf("%s -> %s", e.Source, e.Target) }

// Compare orders edges by source, then target.
func (e Edge) Compare(o Edge) int {
	if c := cmp.Compare(e.Source, o.Source); c != 0 {
		return c
	}
	return cmp.Compare(e.Target, o.Target)
}

type node struct {
	id    string
	attrs attr.Map
	succ  map[string]*edge
	pred  map[string]*edge
}

type edge struct {
	source string
	target string
	attrs  attr.Map
}

// Graph is a directed graph with at most one edge per ordered node pair.
// Nodes, edges and the graph itself each carry an attribute map.
//
// Structural changes are safe for concurrent use. Attribute maps returned by
// Node, Edge and Attrs are live: writes through them show up in the graph and
// must not race with other readers.
type Graph struct {
	mutex sync.RWMutex
	attrs attr.Map
	nodes map[string]*node
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		attrs: attr.Map{},
		nodes: make(map[string]*node),
	}
}

// Attrs returns the graph-level attribute map.
func (g *Graph) Attrs() attr.Map {
	return g.attrs
}

// Name returns the "name" graph attribute, or "" when unset.
func (g *Graph) Name() string {
	if s, ok := g.attrs["name"].(attr.String); ok {
		return string(s)
	}
	return ""
}

// AddNode adds the node id. If it already exists, attrs is merged into its
// attributes with the new values winning.
func (g *Graph) AddNode(id string, attrs attr.Map) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	g.ensure(id).attrs.Update(attrs)
}

func (g *Graph) ensure(id string) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{
		id:    id,
		attrs: attr.Map{},
		succ:  make(map[string]*edge),
		pred:  make(map[string]*edge),
	}
	g.nodes[id] = n
	return n
}

// AddEdge adds the edge source -> target, creating either endpoint if it is
// missing. If the edge already exists, attrs is merged into its attributes.
func (g *Graph) AddEdge(source, target string, attrs attr.Map) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	from := g.ensure(source)
	to := g.ensure(target)
	e, ok := from.succ[target]
	if !ok {
		e = &edge{source: source, target: target, attrs: attr.Map{}}
		from.succ[target] = e
		to.pred[source] = e
	}
	e.attrs.Update(attrs)
}

// RemoveNode deletes a node together with its incident edges.
func (g *Graph) RemoveNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return
	}
	for target := range n.succ {
		delete(g.nodes[target].pred, id)
	}
	for source := range n.pred {
		delete(g.nodes[source].succ, id)
	}
	delete(g.nodes, id)
}

// HasNode reports whether id is a node of g.
func (g *Graph) HasNode(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether source -> target is an edge of g.
func (g *Graph) HasEdge(source, target string) bool {
	_, ok := g.Edge(source, target)
	return ok
}

// Node returns the attributes of node id.
func (g *Graph) Node(id string) (attr.Map, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.attrs, true
}

// Edge returns the attributes of edge source -> target.
func (g *Graph) Edge(source, target string) (attr.Map, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[source]
	if !ok {
		return nil, false
	}
	e, ok := n.succ[target]
	if !ok {
		return nil, false
	}
	return e.attrs, true
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	count := 0
	for _, n := range g.nodes {
		count += len(n.succ)
	}
	return count
}

// Nodes returns every node id in sorted order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	return slices.Sorted(maps.Keys(g.nodes))
}

// Edges returns every edge ordered by source, then target.
func (g *Graph) Edges() []Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var out []Edge
	for _, n := range g.nodes {
		for target := range n.succ {
			out = append(out, Edge{Source: n.id, Target: target})
		}
	}
	slices.SortFunc(out, Edge.Compare)
	return out
}

// Successors returns the targets of id's out-edges in sorted order.
func (g *Graph) Successors(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(n.succ))
}

// Predecessors returns the sources of id's in-edges in sorted order.
func (g *Graph) Predecessors(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(n.pred))
}

// OutEdges returns id's out-edges ordered by target.
func (g *Graph) OutEdges(id string) []Edge {
	succ := g.Successors(id)
	out := make([]Edge, len(succ))
	for i, t := range succ {
		out[i] = Edge{Source: id, Target: t}
	}
	return out
}

// InEdges returns id's in-edges ordered by source.
func (g *Graph) InEdges(id string) []Edge {
	pred := g.Predecessors(id)
	out := make([]Edge, len(pred))
	for i, s := range pred {
		out[i] = Edge{Source: s, Target: id}
	}
	return out
}

// InDegree returns the number of in-edges of id.
func (g *Graph) InDegree(id string) int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if n, ok := g.nodes[id]; ok {
		return len(n.pred)
	}
	return 0
}

// OutDegree returns the number of out-edges of id.
func (g *Graph) OutDegree(id string) int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if n, ok := g.nodes[id]; ok {
		return len(n.succ)
	}
	return 0
}

// NodeAttributes extracts the value stored under key for every node that
// has it.
func (g *Graph) NodeAttributes(key string) map[string]attr.Value {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make(map[string]attr.Value, len(g.nodes))
	for id, n := range g.nodes {
		if v, ok := n.attrs[key]; ok {
			out[id] = v
		}
	}
	return out
}

// EdgeAttributes extracts the value stored under key for every edge that
// has it.
func (g *Graph) EdgeAttributes(key string) map[Edge]attr.Value {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make(map[Edge]attr.Value)
	for _, n := range g.nodes {
		for _, e := range n.succ {
			if v, ok := e.attrs[key]; ok {
				out[Edge{Source: e.source, Target: e.target}] = v
			}
		}
	}
	return out
}

// Copy returns a deep copy of g. Attribute maps are cloned.
func (g *Graph) Copy() *Graph {
	out := New()
	out.merge(g)
	return out
}

// merge adds every node and edge of h to g. On collisions, h's attribute
// values win key by key.
func (g *Graph) merge(h *Graph) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	g.attrs.Update(h.attrs.Clone())
	for _, id := range slices.Sorted(maps.Keys(h.nodes)) {
		g.AddNode(id, h.nodes[id].attrs.Clone())
	}
	for _, n := range h.nodes {
		for _, e := range n.succ {
			g.AddEdge(e.source, e.target, e.attrs.Clone())
		}
	}
}

// Compose returns a new graph holding the union of g and h. Where both carry
// the same node, edge or graph attribute key, h's value wins.
func Compose(g, h *Graph) *Graph {
	return ComposeAll(g, h)
}

// ComposeAll folds Compose over graphs from left to right.
func ComposeAll(graphs ...*Graph) *Graph {
	out := New()
	for _, g := range graphs {
		out.merge(g)
	}
	return out
}

// Reverse returns a copy of g with every edge flipped.
func Reverse(g *Graph) *Graph {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := New()
	out.attrs.Update(g.attrs.Clone())
	for id, n := range g.nodes {
		out.AddNode(id, n.attrs.Clone())
	}
	for _, n := range g.nodes {
		for _, e := range n.succ {
			out.AddEdge(e.target, e.source, e.attrs.Clone())
		}
	}
	return out
}
