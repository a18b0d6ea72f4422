package decorate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

func TestNodesAndEdges(t *testing.T) {
	g := graph.New()
	g.AddNode("a", attr.Map{"x": attr.Int(1), "y": attr.Int(1)})
	g.AddEdge("a", "b", attr.Map{vocab.KeyEdgeType: vocab.Slave})

	Nodes(g, NodeTable{
		"a":       {"y": attr.Int(2), "z": attr.Int(3)},
		"missing": {"y": attr.Int(9)},
	})
	Edges(g, EdgeTable{
		{Source: "a", Target: "b"}: {"w": attr.Bool(true)},
		{Source: "b", Target: "a"}: {"w": attr.Bool(false)},
	})

	attrs, _ := g.Node("a")
	assert.True(t, attrs.Equal(attr.Map{"x": attr.Int(1), "y": attr.Int(2), "z": attr.Int(3)}))
	assert.False(t, g.HasNode("missing"))

	eattrs, _ := g.Edge("a", "b")
	assert.Equal(t, attr.Bool(true), eattrs["w"])
	assert.Equal(t, vocab.Slave, eattrs[vocab.KeyEdgeType])
	assert.False(t, g.HasEdge("b", "a"))
}

func TestMarkers(t *testing.T) {
	diff := graph.New()
	diff.AddEdge("a", "b", nil)

	nodes := NodeMarkers(diff, vocab.Removed)
	require.Len(t, nodes, 2)
	assert.Equal(t, vocab.Removed, nodes["a"][vocab.KeyDiffStatus])

	edges := EdgeMarkers(diff, vocab.Added)
	require.Len(t, edges, 1)
	assert.Equal(t, vocab.Added, edges[graph.Edge{Source: "a", Target: "b"}][vocab.KeyDiffStatus])
}
