package iso

import (
	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
)

// side is a frozen view of one graph plus that graph's half of the search
// state.
type side struct {
	nodes []string
	succ  map[string][]string
	pred  map[string][]string
	adj   map[string]map[string]bool
	attrs map[string]attr.Map
	edges map[graph.Edge]attr.Map

	core map[string]string
	in   map[string]int
	out  map[string]int
}

func newSide(g *graph.Graph) *side {
	s := &side{
		nodes: g.Nodes(),
		succ:  make(map[string][]string),
		pred:  make(map[string][]string),
		adj:   make(map[string]map[string]bool),
		attrs: make(map[string]attr.Map),
		edges: make(map[graph.Edge]attr.Map),
		core:  make(map[string]string),
		in:    make(map[string]int),
		out:   make(map[string]int),
	}
	for _, n := range s.nodes {
		s.attrs[n], _ = g.Node(n)
		s.succ[n] = g.Successors(n)
		s.pred[n] = g.Predecessors(n)
		s.adj[n] = make(map[string]bool, len(s.succ[n]))
		for _, t := range s.succ[n] {
			s.adj[n][t] = true
			s.edges[graph.Edge{Source: n, Target: t}], _ = g.Edge(n, t)
		}
	}
	return s
}

func (s *side) hasEdge(from, to string) bool { return s.adj[from][to] }

func (s *side) mapped(n string) bool {
	_, ok := s.core[n]
	return ok
}

// terminal lists, in node order, the unmapped nodes of a terminal set.
func (s *side) terminal(set map[string]int) []string {
	var out []string
	for _, n := range s.nodes {
		if _, ok := set[n]; ok && !s.mapped(n) {
			out = append(out, n)
		}
	}
	return out
}

// countIf counts the nodes of ns that are unmapped and satisfy keep.
func (s *side) countIf(ns []string, keep func(n string) bool) int {
	count := 0
	for _, n := range ns {
		if !s.mapped(n) && keep(n) {
			count++
		}
	}
	return count
}

func (s *side) add(n, partner string, depth int) {
	s.core[n] = partner
	if _, ok := s.in[n]; !ok {
		s.in[n] = depth
	}
	if _, ok := s.out[n]; !ok {
		s.out[n] = depth
	}
	for _, p := range s.pred[n] {
		if _, ok := s.in[p]; !ok && !s.mapped(p) {
			s.in[p] = depth
		}
	}
	for _, t := range s.succ[n] {
		if _, ok := s.out[t]; !ok && !s.mapped(t) {
			s.out[t] = depth
		}
	}
}

func (s *side) remove(n string, depth int) {
	delete(s.core, n)
	for _, set := range []map[string]int{s.in, s.out} {
		for k, d := range set {
			if d == depth {
				delete(set, k)
			}
		}
	}
}

// matcher is the VF2 state machine for directed graphs. Its search order
// and feasibility rules follow Cordella et al., "A (sub)graph isomorphism
// algorithm for matching large graphs" (2004), with node order fixed by
// sorted node keys so that results are deterministic.
type matcher struct {
	g1, g2    *side
	nodeMatch AttrMatch
	edgeMatch AttrMatch
}

func newMatcher(g1, g2 *graph.Graph, nodeMatch, edgeMatch AttrMatch) *matcher {
	return &matcher{
		g1:        newSide(g1),
		g2:        newSide(g2),
		nodeMatch: nodeMatch,
		edgeMatch: edgeMatch,
	}
}

type pair struct{ n1, n2 string }

func (m *matcher) candidatePairs() []pair {
	cross := func(n1s []string, n2 string) []pair {
		out := make([]pair, len(n1s))
		for i, n1 := range n1s {
			out[i] = pair{n1, n2}
		}
		return out
	}

	t1out, t2out := m.g1.terminal(m.g1.out), m.g2.terminal(m.g2.out)
	if len(t1out) > 0 && len(t2out) > 0 {
		return cross(t1out, t2out[0])
	}
	t1in, t2in := m.g1.terminal(m.g1.in), m.g2.terminal(m.g2.in)
	if len(t1in) > 0 && len(t2in) > 0 {
		return cross(t1in, t2in[0])
	}

	var unmapped1 []string
	for _, n := range m.g1.nodes {
		if !m.g1.mapped(n) {
			unmapped1 = append(unmapped1, n)
		}
	}
	for _, n := range m.g2.nodes {
		if !m.g2.mapped(n) {
			return cross(unmapped1, n)
		}
	}
	return nil
}

func (m *matcher) syntacticFeasibility(n1, n2 string) bool {
	s1, s2 := m.g1, m.g2

	if s1.hasEdge(n1, n1) != s2.hasEdge(n2, n2) {
		return false
	}

	// Edges into and out of the already mapped region must correspond.
	for _, p := range s1.pred[n1] {
		if p2, ok := s1.core[p]; ok && !s2.hasEdge(p2, n2) {
			return false
		}
	}
	for _, p := range s2.pred[n2] {
		if p1, ok := s2.core[p]; ok && !s1.hasEdge(p1, n1) {
			return false
		}
	}
	for _, t := range s1.succ[n1] {
		if t2, ok := s1.core[t]; ok && !s2.hasEdge(n2, t2) {
			return false
		}
	}
	for _, t := range s2.succ[n2] {
		if t1, ok := s2.core[t]; ok && !s1.hasEdge(n1, t1) {
			return false
		}
	}

	inSet := func(s *side) func(string) bool {
		return func(n string) bool { _, ok := s.in[n]; return ok }
	}
	outSet := func(s *side) func(string) bool {
		return func(n string) bool { _, ok := s.out[n]; return ok }
	}
	neither := func(s *side) func(string) bool {
		return func(n string) bool {
			_, in := s.in[n]
			_, out := s.out[n]
			return !in && !out
		}
	}

	for _, set := range []func(*side) func(string) bool{inSet, outSet, neither} {
		// Terminal-set counts must agree for a bijection to remain possible.
		if s1.countIf(s1.pred[n1], set(s1)) != s2.countIf(s2.pred[n2], set(s2)) {
			return false
		}
		if s1.countIf(s1.succ[n1], set(s1)) != s2.countIf(s2.succ[n2], set(s2)) {
			return false
		}
	}
	return true
}

func (m *matcher) semanticFeasibility(n1, n2 string) bool {
	s1, s2 := m.g1, m.g2

	if m.nodeMatch != nil && !m.nodeMatch(s1.attrs[n1], s2.attrs[n2]) {
		return false
	}
	if m.edgeMatch == nil {
		return true
	}
	for _, t := range s1.succ[n1] {
		t2 := n2
		if t != n1 {
			var ok bool
			if t2, ok = s1.core[t]; !ok {
				continue
			}
		}
		e1 := s1.edges[graph.Edge{Source: n1, Target: t}]
		e2 := s2.edges[graph.Edge{Source: n2, Target: t2}]
		if !m.edgeMatch(e1, e2) {
			return false
		}
	}
	for _, p := range s1.pred[n1] {
		if p == n1 {
			continue
		}
		p2, ok := s1.core[p]
		if !ok {
			continue
		}
		e1 := s1.edges[graph.Edge{Source: p, Target: n1}]
		e2 := s2.edges[graph.Edge{Source: p2, Target: n2}]
		if !m.edgeMatch(e1, e2) {
			return false
		}
	}
	return true
}

// match extends the current partial mapping depth first. It returns false
// once yield asks to stop.
func (m *matcher) match(yield func(Mapping) bool) bool {
	if len(m.g1.core) == len(m.g2.nodes) {
		out := make(Mapping, len(m.g1.core))
		for k, v := range m.g1.core {
			out[k] = v
		}
		return yield(out)
	}
	for _, p := range m.candidatePairs() {
		if !m.syntacticFeasibility(p.n1, p.n2) || !m.semanticFeasibility(p.n1, p.n2) {
			continue
		}
		depth := len(m.g1.core) + 1
		m.g1.add(p.n1, p.n2, depth)
		m.g2.add(p.n2, p.n1, depth)
		more := m.match(yield)
		m.g1.remove(p.n1, depth)
		m.g2.remove(p.n2, depth)
		if !more {
			return false
		}
	}
	return true
}
