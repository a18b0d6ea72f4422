// Package match builds equality predicates over graph elements from a list
// of top-level attribute keys.
//
// Two elements match when they hold equal values under every key. A missing
// key is a programming or configuration error, not a mismatch: the
// predicate panics with a *attr.LookupError, which the comparison entry
// points recover and return.
package match

import (
	"fmt"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

// Matcher compares graph elements of one kind on a fixed set of keys.
type Matcher struct {
	keys []string
	elem vocab.ElementType
}

// New returns a Matcher on keys for elements of kind elem.
func New(keys []string, elem vocab.ElementType) *Matcher {
	return &Matcher{keys: append([]string(nil), keys...), elem: elem}
}

// Keys returns the keys the matcher compares.
func (m *Matcher) Keys() []string { return append([]string(nil), m.keys...) }

// ElementType returns the kind of element the matcher compares.
func (m *Matcher) ElementType() vocab.ElementType { return m.elem }

func (m *Matcher) require(elem vocab.ElementType) {
	if m.elem != elem {
		panic(fmt.Sprintf("match: %s predicate requested from a %s matcher", elem, m.elem))
	}
}

// NodeMatch returns a predicate comparing node n1 of g1 with node n2 of g2.
// The attributes are extracted from both graphs up front.
func (m *Matcher) NodeMatch(g1, g2 *graph.Graph) func(n1, n2 string) bool {
	m.require(vocab.Node)

	bulk1 := make([]map[string]attr.Value, len(m.keys))
	bulk2 := make([]map[string]attr.Value, len(m.keys))
	for i, k := range m.keys {
		bulk1[i] = g1.NodeAttributes(k)
		bulk2[i] = g2.NodeAttributes(k)
	}
	return func(n1, n2 string) bool {
		for i, k := range m.keys {
			if !attr.Equal(fetch(bulk1[i], n1, k), fetch(bulk2[i], n2, k)) {
				return false
			}
		}
		return true
	}
}

// EdgeMatch returns a predicate comparing edge e1 of g1 with edge e2 of g2.
func (m *Matcher) EdgeMatch(g1, g2 *graph.Graph) func(e1, e2 graph.Edge) bool {
	m.require(vocab.Edge)

	bulk1 := make([]map[graph.Edge]attr.Value, len(m.keys))
	bulk2 := make([]map[graph.Edge]attr.Value, len(m.keys))
	for i, k := range m.keys {
		bulk1[i] = g1.EdgeAttributes(k)
		bulk2[i] = g2.EdgeAttributes(k)
	}
	return func(e1, e2 graph.Edge) bool {
		for i, k := range m.keys {
			if !attr.Equal(fetch(bulk1[i], e1, k), fetch(bulk2[i], e2, k)) {
				return false
			}
		}
		return true
	}
}

// IsoMatch returns a predicate over two attribute maps, the shape the
// isomorphism engine expects for both nodes and edges.
func (m *Matcher) IsoMatch() func(a1, a2 attr.Map) bool {
	return func(a1, a2 attr.Map) bool {
		for _, k := range m.keys {
			if !attr.Equal(attr.MustGet(a1, k), attr.MustGet(a2, k)) {
				return false
			}
		}
		return true
	}
}

func fetch[K comparable](bulk map[K]attr.Value, elem K, key string) attr.Value {
	v, ok := bulk[elem]
	if !ok {
		panic(&attr.LookupError{Path: []string{key}, Reason: attr.KeyNotFound})
	}
	return v
}
