// Package compare classifies a pair of device graphs as IDENTICAL,
// EQUIVALENT or DIFFERENT.
//
// Two graphs are EQUIVALENT when an isomorphism maps every node onto a node
// of the same type whose persistent attributes agree, and every edge onto an
// edge of the same type. Which attributes are persistent is configured per
// node type by an EquivalenceSpec. IDENTICAL ignores that configuration: an
// isomorphism must map every node onto one with the same identifier and
// type.
package compare

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/config"
	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/iso"
	"github.com/vk/devdag/internal/lookup"
	"github.com/vk/devdag/internal/match"
	"github.com/vk/devdag/internal/vocab"
)

// Result is the outcome of comparing two graphs, ordered from most to least
// similar.
type Result int

const (
	Identical Result = iota
	Equivalent
	Different
)

func (r Result) String() string {
	switch r {
	case Identical:
		return "IDENTICAL"
	case Equivalent:
		return "EQUIVALENT"
	case Different:
		return "DIFFERENT"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// EquivalenceSpec lists, per node type, the attribute paths that must agree.
// Paths under Any apply to every node type in addition to its own.
type EquivalenceSpec struct {
	Any    [][]string
	ByType map[vocab.NodeType][][]string
}

// paths returns the combined path list for t.
func (s EquivalenceSpec) paths(t vocab.NodeType) [][]string {
	out := append([][]string(nil), s.Any...)
	return append(out, s.ByType[t]...)
}

// SpecFromConfig builds an EquivalenceSpec from the configuration's
// persistent attributes. Keys that name no node type are skipped.
func SpecFromConfig(ctx context.Context, persistent map[string][][]string) EquivalenceSpec {
	logger := ctxlog.FromContext(ctx)
	spec := EquivalenceSpec{ByType: make(map[vocab.NodeType][][]string)}
	for name, paths := range persistent {
		if name == config.AnyNodeType {
			spec.Any = append(spec.Any, paths...)
			continue
		}
		t, ok := vocab.ParseNodeType(name)
		if !ok {
			logger.Warn("Ignoring persistent attributes for unknown node type", "nodetype", name)
			continue
		}
		spec.ByType[t] = append(spec.ByType[t], paths...)
	}
	return spec
}

// identity matches nodes on identifier and type, whatever is configured.
var identity = match.New([]string{vocab.KeyIdentifier, vocab.KeyNodeType}, vocab.Node)

// Comparator evaluates equivalence under one EquivalenceSpec. The compiled
// lookup for each node type is built on first use and cached; a Comparator
// is safe for concurrent use.
type Comparator struct {
	spec EquivalenceSpec

	mutex   sync.Mutex
	lookups map[vocab.NodeType]*lookup.Lookup
}

// NewComparator validates spec and returns a Comparator for it. Malformed
// path lists are reported here as configuration errors rather than during
// a comparison.
func NewComparator(spec EquivalenceSpec) (*Comparator, error) {
	for _, t := range vocab.NodeTypes() {
		if _, err := lookup.FromPaths(spec.paths(t)); err != nil {
			return nil, fmt.Errorf("persistent attributes for %s: %w", t, err)
		}
	}
	return &Comparator{
		spec:    spec,
		lookups: make(map[vocab.NodeType]*lookup.Lookup),
	}, nil
}

func (c *Comparator) lookupFor(t vocab.NodeType) *lookup.Lookup {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if l, ok := c.lookups[t]; ok {
		return l
	}
	cfg, err := lookup.FromPaths(c.spec.paths(t))
	if err != nil {
		// NewComparator already validated every combination.
		panic(fmt.Sprintf("compare: persistent attributes for %s: %v", t, err))
	}
	l := lookup.New(cfg)
	c.lookups[t] = l
	return l
}

func nodeType(m attr.Map) vocab.NodeType {
	v := attr.MustGet(m, vocab.KeyNodeType)
	t, ok := v.(vocab.NodeType)
	if !ok {
		panic(&attr.LookupError{Path: []string{vocab.KeyNodeType}, Reason: attr.TypeMismatch})
	}
	return t
}

func values(l *lookup.Lookup, m attr.Map) []attr.Value {
	vs, err := l.All(m)
	if err != nil {
		panic(err)
	}
	return vs
}

// NodeMatch returns the node predicate: equal node types and equal values
// at every persistent path for that type. A node lacking a configured path
// makes the predicate panic with a *attr.LookupError.
func (c *Comparator) NodeMatch() iso.AttrMatch {
	return func(a, b attr.Map) bool {
		ta, tb := nodeType(a), nodeType(b)
		if ta != tb {
			return false
		}
		l := c.lookupFor(ta)
		return attr.EqualSeq(values(l, a), values(l, b))
	}
}

// EdgeMatch is the edge predicate: equal edge types.
func EdgeMatch(a, b attr.Map) bool {
	return attr.Equal(attr.MustGet(a, vocab.KeyEdgeType), attr.MustGet(b, vocab.KeyEdgeType))
}

// Isomorphisms yields the isomorphisms that witness equivalence.
func (c *Comparator) Isomorphisms(g1, g2 *graph.Graph) iter.Seq[iso.Mapping] {
	return iso.Isomorphisms(g1, g2, c.NodeMatch(), EdgeMatch)
}

// Equivalent reports whether g1 and g2 are equivalent.
func (c *Comparator) Equivalent(g1, g2 *graph.Graph) (ok bool, err error) {
	defer attr.Recover(&err)
	return iso.IsEquivalent(g1, g2, c.NodeMatch(), EdgeMatch), nil
}

// Identical reports whether g1 and g2 are identical. Persistent attributes
// play no part, so a graph is always identical to a copy of itself.
func (c *Comparator) Identical(g1, g2 *graph.Graph) (ok bool, err error) {
	defer attr.Recover(&err)
	return iso.IsEquivalent(g1, g2, identity.IsoMatch(), EdgeMatch), nil
}

// Compare classifies g1 against g2, trying the strictest relation first.
func (c *Comparator) Compare(ctx context.Context, g1, g2 *graph.Graph) (Result, error) {
	logger := ctxlog.FromContext(ctx)

	identical, err := c.Identical(g1, g2)
	if err != nil {
		return Different, fmt.Errorf("identity check: %w", err)
	}
	if identical {
		logger.Debug("Graphs are identical", "nodes", g1.Len())
		return Identical, nil
	}
	equivalent, err := c.Equivalent(g1, g2)
	if err != nil {
		return Different, fmt.Errorf("equivalence check: %w", err)
	}
	if equivalent {
		logger.Debug("Graphs are equivalent", "nodes", g1.Len())
		return Equivalent, nil
	}
	logger.Debug("Graphs differ", "left_nodes", g1.Len(), "right_nodes", g2.Len())
	return Different, nil
}

// Smallest returns the equivalence-witnessing isomorphism with the fewest
// non-identity pairs among the first limit found. ok is false when the
// graphs are not equivalent.
func (c *Comparator) Smallest(g1, g2 *graph.Graph, limit int) (m iso.Mapping, ok bool, err error) {
	defer attr.Recover(&err)
	m, ok = iso.Smallest(c.Isomorphisms(g1, g2), limit)
	return m, ok, nil
}
