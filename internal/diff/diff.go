// Package diff computes what changed between two device graphs.
//
// Equality of elements across the two graphs is decided by caller-supplied
// predicate factories. Each factory sees both graphs once, so it can
// extract whatever attributes it needs up front, and returns the pairwise
// predicate. Every element of one graph is checked against every element of
// the other, so the cost is proportional to the product of their sizes.
//
// A diff graph is ordinary: elements present on only one side carry a
// "diffstatus" attribute of ADDED or REMOVED and everything else is
// unmarked.
package diff

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/decorate"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/match"
	"github.com/vk/devdag/internal/vocab"
)

// NodeEqual builds the node predicate for a pair of graphs.
type NodeEqual func(g1, g2 *graph.Graph) func(n1, n2 string) bool

// EdgeEqual builds the edge predicate for a pair of graphs.
type EdgeEqual func(g1, g2 *graph.Graph) func(e1, e2 graph.Edge) bool

// AnyNode treats every pair of nodes as equal.
func AnyNode(_, _ *graph.Graph) func(n1, n2 string) bool {
	return func(string, string) bool { return true }
}

// AnyEdge treats every pair of edges as equal.
func AnyEdge(_, _ *graph.Graph) func(e1, e2 graph.Edge) bool {
	return func(graph.Edge, graph.Edge) bool { return true }
}

// SameEdge treats two edges as equal when their endpoints have the same keys.
func SameEdge(_, _ *graph.Graph) func(e1, e2 graph.Edge) bool {
	return func(e1, e2 graph.Edge) bool { return e1 == e2 }
}

// NodesByKeys compares nodes on the given top-level attribute keys.
func NodesByKeys(keys ...string) NodeEqual {
	return match.New(keys, vocab.Node).NodeMatch
}

func orDefault(nodeEq NodeEqual, edgeEq EdgeEqual) (NodeEqual, EdgeEqual) {
	if nodeEq == nil {
		nodeEq = AnyNode
	}
	if edgeEq == nil {
		edgeEq = AnyEdge
	}
	return nodeEq, edgeEq
}

// NodeDifferences returns the nodes of g1 with no equal in g2 and the nodes
// of g2 with no equal in g1, each as a graph without edges or attributes.
func NodeDifferences(g1, g2 *graph.Graph, nodeEq NodeEqual) (left, right *graph.Graph, err error) {
	defer attr.Recover(&err)

	equal := nodeEq(g1, g2)
	nodes1, nodes2 := g1.Nodes(), g2.Nodes()

	left, right = graph.New(), graph.New()
	for _, n := range nodes1 {
		if !anyOf(nodes2, func(o string) bool { return equal(n, o) }) {
			left.AddNode(n, nil)
		}
	}
	for _, n := range nodes2 {
		if !anyOf(nodes1, func(o string) bool { return equal(o, n) }) {
			right.AddNode(n, nil)
		}
	}
	return left, right, nil
}

// EdgeDifferences returns the edges of g1 with no equal in g2 and the edges
// of g2 with no equal in g1, each as a graph without attributes.
func EdgeDifferences(g1, g2 *graph.Graph, edgeEq EdgeEqual) (left, right *graph.Graph, err error) {
	defer attr.Recover(&err)

	equal := edgeEq(g1, g2)
	edges1, edges2 := g1.Edges(), g2.Edges()

	left, right = graph.New(), graph.New()
	for _, e := range edges1 {
		if !anyOf(edges2, func(o graph.Edge) bool { return equal(e, o) }) {
			left.AddEdge(e.Source, e.Target, nil)
		}
	}
	for _, e := range edges2 {
		if !anyOf(edges1, func(o graph.Edge) bool { return equal(o, e) }) {
			right.AddEdge(e.Source, e.Target, nil)
		}
	}
	return left, right, nil
}

func anyOf[T any](items []T, pred func(T) bool) bool {
	for _, it := range items {
		if pred(it) {
			return true
		}
	}
	return false
}

// differences runs both difference computations.
func differences(g1, g2 *graph.Graph, nodeEq NodeEqual, edgeEq EdgeEqual) (nl, nr, el, er *graph.Graph, err error) {
	nodeEq, edgeEq = orDefault(nodeEq, edgeEq)
	if nl, nr, err = NodeDifferences(g1, g2, nodeEq); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("node differences: %w", err)
	}
	if el, er, err = EdgeDifferences(g1, g2, edgeEq); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("edge differences: %w", err)
	}
	return nl, nr, el, er, nil
}

func mark(g, nodes, edges *graph.Graph, status vocab.DiffStatus) {
	decorate.Nodes(g, decorate.NodeMarkers(nodes, status))
	decorate.Edges(g, decorate.EdgeMarkers(edges, status))
}

// Full composes g1 and g2 and marks what only g1 has as REMOVED and what
// only g2 has as ADDED. Where both graphs hold the same key, g2's attributes
// win. Nil predicates treat everything as equal.
func Full(g1, g2 *graph.Graph, nodeEq NodeEqual, edgeEq EdgeEqual) (*graph.Graph, error) {
	nl, nr, el, er, err := differences(g1, g2, nodeEq, edgeEq)
	if err != nil {
		return nil, err
	}
	out := graph.Compose(g1, g2)
	out.Attrs()[vocab.KeyName] = attr.String("union")
	mark(out, nl, el, vocab.Removed)
	mark(out, nr, er, vocab.Added)
	return out, nil
}

// Left returns a copy of g1 with what g2 lacks marked REMOVED.
func Left(g1, g2 *graph.Graph, nodeEq NodeEqual, edgeEq EdgeEqual) (*graph.Graph, error) {
	nl, _, el, _, err := differences(g1, g2, nodeEq, edgeEq)
	if err != nil {
		return nil, err
	}
	out := g1.Copy()
	mark(out, nl, el, vocab.Removed)
	return out, nil
}

// Right returns a copy of g2 with what g1 lacks marked ADDED.
func Right(g1, g2 *graph.Graph, nodeEq NodeEqual, edgeEq EdgeEqual) (*graph.Graph, error) {
	_, nr, _, er, err := differences(g1, g2, nodeEq, edgeEq)
	if err != nil {
		return nil, err
	}
	out := g2.Copy()
	mark(out, nr, er, vocab.Added)
	return out, nil
}

// Mode selects which diff to compute.
type Mode int

const (
	ModeFull Mode = iota
	ModeLeft
	ModeRight
)

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeLeft:
		return "left"
	case ModeRight:
		return "right"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode resolves a mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{ModeFull, ModeLeft, ModeRight} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown diff mode %q: want full, left or right", s)
}

// Diff computes the diff selected by mode.
func Diff(ctx context.Context, mode Mode, g1, g2 *graph.Graph, nodeEq NodeEqual, edgeEq EdgeEqual) (*graph.Graph, error) {
	ctxlog.FromContext(ctx).Debug("Computing graph diff", "mode", mode, "left_nodes", g1.Len(), "right_nodes", g2.Len())
	switch mode {
	case ModeFull:
		return Full(g1, g2, nodeEq, edgeEq)
	case ModeLeft:
		return Left(g1, g2, nodeEq, edgeEq)
	case ModeRight:
		return Right(g1, g2, nodeEq, edgeEq)
	}
	return nil, fmt.Errorf("unknown diff mode %v", mode)
}
