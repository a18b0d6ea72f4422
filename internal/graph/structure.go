package graph

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/vk/devdag/internal/attr"
)

// ErrStructure matches every *StructureError via errors.Is.
var ErrStructure = errors.New("unexpected graph structure")

// StructureError reports a graph whose shape violates what an operation
// expects, such as a cycle where a DAG is required.
type StructureError struct {
	Msg string
}

func (e *StructureError) Error() string { return "graph: " + e.Msg }

// Is makes every StructureError match ErrStructure.
func (e *StructureError) Is(target error) bool { return target == ErrStructure }

// DetectCycles checks the graph for any cycles. It returns a
// *StructureError naming the first node found on a cycle.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Depth-first search with three colours:
	// permanent: fully visited and not on a cycle.
	// temporary: on the recursion stack of the current traversal.
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return &StructureError{Msg: fmt.Sprintf("cycle detected involving node '%s'", n.id)}
		}

		temporary[n.id] = true
		for _, target := range sortedKeys(n.succ) {
			if err := visit(g.nodes[target]); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	for _, id := range sortedKeys(g.nodes) {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// Roots returns, in sorted order, the nodes no other node can reach.
// A self-loop alone does not disqualify a node.
func (g *Graph) Roots() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var roots []string
	for _, id := range sortedKeys(g.nodes) {
		n := g.nodes[id]
		if len(n.pred) == 0 || (len(n.pred) == 1 && n.pred[id] != nil) {
			roots = append(roots, id)
		}
	}
	return roots
}

const reversedKey = "reversed"

// Reversed reports whether g's "reversed" graph attribute is set.
func (g *Graph) Reversed() bool {
	b, _ := g.attrs[reversedKey].(attr.Bool)
	return bool(b)
}

// Flip returns a reversed copy of g whose "reversed" graph attribute is
// toggled.
func Flip(g *Graph) *Graph {
	out := Reverse(g)
	out.attrs[reversedKey] = attr.Bool(!g.Reversed())
	return out
}

// SetDirection returns g itself when its direction already matches
// reversed, and a flipped copy otherwise.
func SetDirection(g *Graph, reversed bool) *Graph {
	if g.Reversed() == reversed {
		return g
	}
	return Flip(g)
}

// NodeInfo is one step of a traversal.
type NodeInfo struct {
	Depth int
	Node  string
	// Last is set when Node is the final sibling at its depth under its parent.
	Last bool
	// Parent is the node the walk came from; empty for roots.
	Parent string
}

// KeyFunc maps a node to the string it sorts by among its siblings.
type KeyFunc func(node string) string

func byKey(nodes []string, key KeyFunc) []string {
	out := slices.Clone(nodes)
	if key == nil {
		slices.Sort(out)
		return out
	}
	slices.SortStableFunc(out, func(a, b string) int {
		return cmp.Compare(key(a), key(b))
	})
	return out
}

func infos(depth int, parent string, nodes []string) []NodeInfo {
	out := make([]NodeInfo, len(nodes))
	for i, n := range nodes {
		out[i] = NodeInfo{Depth: depth, Node: n, Last: i == len(nodes)-1, Parent: parent}
	}
	return out
}

// DepthFirst walks g from its roots, visiting siblings in key order. A node
// reachable along several paths is visited once per path, so g must be
// acyclic.
func DepthFirst(g *Graph, key KeyFunc) iter.Seq[NodeInfo] {
	return func(yield func(NodeInfo) bool) {
		var walk func(info NodeInfo) bool
		walk = func(info NodeInfo) bool {
			if !yield(info) {
				return false
			}
			for _, next := range infos(info.Depth+1, info.Node, byKey(g.Successors(info.Node), key)) {
				if !walk(next) {
					return false
				}
			}
			return true
		}
		for _, root := range infos(0, "", byKey(g.Roots(), key)) {
			if !walk(root) {
				return
			}
		}
	}
}

// BreadthFirst walks g level by level from its roots, visiting siblings in
// key order. Like DepthFirst it requires an acyclic graph.
func BreadthFirst(g *Graph, key KeyFunc) iter.Seq[NodeInfo] {
	return func(yield func(NodeInfo) bool) {
		queue := infos(0, "", byKey(g.Roots(), key))
		for len(queue) > 0 {
			info := queue[0]
			queue = queue[1:]
			queue = append(queue, infos(info.Depth+1, info.Node, byKey(g.Successors(info.Node), key))...)
			if !yield(info) {
				return
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
