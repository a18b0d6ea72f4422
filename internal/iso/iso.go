// Package iso finds isomorphisms between device graphs.
//
// The search is VF2 for directed graphs, parameterised by a node predicate
// and an edge predicate over attribute maps. A nil predicate accepts every
// pair. Mappings are produced lazily, so asking whether any isomorphism
// exists costs no more than finding the first one.
//
// Predicates may panic with a *attr.LookupError when an attribute they need
// is absent; the panic is not recovered here.
package iso

import (
	"iter"
	"maps"
	"slices"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
)

// DefaultLimit bounds how many isomorphisms Smallest inspects.
const DefaultLimit = 10

// AttrMatch decides whether two nodes, or two edges, may correspond.
type AttrMatch func(a, b attr.Map) bool

// Mapping sends nodes of the first graph to nodes of the second.
type Mapping map[string]string

// Isomorphisms yields every isomorphism from g1 to g2 that respects the
// predicates. Graphs with different node counts have none, and the
// predicates are then never called.
func Isomorphisms(g1, g2 *graph.Graph, nodeMatch, edgeMatch AttrMatch) iter.Seq[Mapping] {
	return func(yield func(Mapping) bool) {
		if g1.Len() != g2.Len() {
			return
		}
		newMatcher(g1, g2, nodeMatch, edgeMatch).match(yield)
	}
}

// IsEquivalent reports whether at least one isomorphism exists.
func IsEquivalent(g1, g2 *graph.Graph, nodeMatch, edgeMatch AttrMatch) bool {
	for range Isomorphisms(g1, g2, nodeMatch, edgeMatch) {
		return true
	}
	return false
}

// Minimize drops the pairs of m that send a node to a node with the same key.
func Minimize(m Mapping) Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		if k != v {
			out[k] = v
		}
	}
	return out
}

// Smallest inspects at most limit mappings from seq, minimizes each and
// returns the one with the fewest pairs; the earliest wins a tie. It is a
// best-effort answer: a smaller mapping may exist past the limit. ok is
// false when seq is empty.
func Smallest(seq iter.Seq[Mapping], limit int) (best Mapping, ok bool) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	seen := 0
	for m := range seq {
		small := Minimize(m)
		if !ok || len(small) < len(best) {
			best, ok = small, true
		}
		seen++
		if seen >= limit {
			break
		}
	}
	return best, ok
}

// Inverse returns the mapping from g2 back to g1.
func (m Mapping) Inverse() Mapping {
	out := make(Mapping, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// Keys returns the mapped nodes of the first graph in sorted order.
func (m Mapping) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}
