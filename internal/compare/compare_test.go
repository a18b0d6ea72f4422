package compare

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/config"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

func disk(g *graph.Graph, id, serial string) {
	g.AddNode(id, attr.Map{
		vocab.KeyIdentifier: attr.String(id),
		vocab.KeyNodeType:   vocab.DevicePath,
		"UDEV":              attr.Map{"ID_SERIAL": attr.String(serial)},
	})
}

func wwn(g *graph.Graph, id string) {
	g.AddNode(id, attr.Map{vocab.KeyIdentifier: attr.String(id), vocab.KeyNodeType: vocab.WWN})
}

func link(g *graph.Graph, s, t string, et vocab.EdgeType) {
	g.AddEdge(s, t, attr.Map{vocab.KeyEdgeType: et})
}

// host builds one disk with a spindle, under device path dev.
func host(dev, serial, drive string) *graph.Graph {
	g := graph.New()
	disk(g, dev, serial)
	wwn(g, drive)
	link(g, dev, drive, vocab.Spindle)
	return g
}

func spec() EquivalenceSpec {
	return EquivalenceSpec{ByType: map[vocab.NodeType][][]string{
		vocab.DevicePath: {{"UDEV", "ID_SERIAL"}},
		vocab.WWN:        {{vocab.KeyIdentifier}},
	}}
}

func newComparator(t *testing.T) *Comparator {
	t.Helper()
	c, err := NewComparator(spec())
	require.NoError(t, err)
	return c
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	base := host("/devices/sda", "S1", "0x5000")

	testCases := []struct {
		name  string
		other *graph.Graph
		want  Result
	}{
		{"same graph", base.Copy(), Identical},
		{"device path renamed", host("/devices/sdb", "S1", "0x5000"), Equivalent},
		{"serial changed in place", host("/devices/sda", "S2", "0x5000"), Identical},
		{"device path renamed and serial changed", host("/devices/sdb", "S2", "0x5000"), Different},
		{"drive swapped", host("/devices/sda", "S1", "0x6000"), Different},
		{"extra node", func() *graph.Graph {
			g := host("/devices/sda", "S1", "0x5000")
			wwn(g, "0x7000")
			return g
		}(), Different},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := newComparator(t).Compare(ctx, base, tc.other)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompare_EdgeTypeMatters(t *testing.T) {
	g1 := host("/devices/sda", "S1", "0x5000")
	g2 := graph.New()
	disk(g2, "/devices/sda", "S1")
	wwn(g2, "0x5000")
	link(g2, "/devices/sda", "0x5000", vocab.Congruence)

	got, err := newComparator(t).Compare(context.Background(), g1, g2)
	require.NoError(t, err)
	assert.Equal(t, Different, got)
}

func TestIdenticalImpliesEquivalent(t *testing.T) {
	c := newComparator(t)
	g := host("/devices/sda", "S1", "0x5000")

	identical, err := c.Identical(g, g.Copy())
	require.NoError(t, err)
	require.True(t, identical)

	equivalent, err := c.Equivalent(g, g.Copy())
	require.NoError(t, err)
	assert.True(t, equivalent)

	other := host("/devices/sdb", "S1", "0x5000")
	identical, err = c.Identical(g, other)
	require.NoError(t, err)
	assert.False(t, identical)
	equivalent, err = c.Equivalent(g, other)
	require.NoError(t, err)
	assert.True(t, equivalent)
}

func TestCompare_IdenticalWithoutPersistentAttributes(t *testing.T) {
	// The configuration asks for UDEV ID_SERIAL, which this disk lacks.
	g := graph.New()
	g.AddNode("/devices/sda1", attr.Map{vocab.KeyIdentifier: attr.String("/devices/sda1"), vocab.KeyNodeType: vocab.DevicePath})
	wwn(g, "0x5000")
	link(g, "/devices/sda1", "0x5000", vocab.Spindle)

	c := newComparator(t)
	got, err := c.Compare(context.Background(), g, g.Copy())
	require.NoError(t, err)
	assert.Equal(t, Identical, got)

	identical, err := c.Identical(g, g)
	require.NoError(t, err)
	assert.True(t, identical)
}

func TestCompare_MissingPersistentAttributeIsAnError(t *testing.T) {
	g1 := host("/devices/sda", "S1", "0x5000")
	g2 := graph.New()
	g2.AddNode("/devices/sdb", attr.Map{vocab.KeyIdentifier: attr.String("/devices/sdb"), vocab.KeyNodeType: vocab.DevicePath})
	wwn(g2, "0x5000")
	link(g2, "/devices/sdb", "0x5000", vocab.Spindle)

	_, err := newComparator(t).Compare(context.Background(), g1, g2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, attr.ErrLookup))
	assert.ErrorContains(t, err, "equivalence check")
}

func TestNewComparator_RejectsConflictingPaths(t *testing.T) {
	_, err := NewComparator(EquivalenceSpec{
		Any:    [][]string{{"UDEV"}},
		ByType: map[vocab.NodeType][][]string{vocab.WWN: {{"UDEV", "ID_WWN"}}},
	})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestSpecFromConfig(t *testing.T) {
	got := SpecFromConfig(context.Background(), map[string][][]string{
		config.AnyNodeType: {{"identifier"}},
		"WWN":              {{"UDEV", "ID_WWN"}},
		"BOGUS":            {{"x"}},
	})
	assert.Equal(t, [][]string{{"identifier"}}, got.Any)
	assert.Equal(t, [][]string{{"UDEV", "ID_WWN"}}, got.ByType[vocab.WWN])
	assert.Len(t, got.ByType, 1)
	assert.Equal(t, [][]string{{"identifier"}, {"UDEV", "ID_WWN"}}, got.paths(vocab.WWN))
}

func TestSmallest(t *testing.T) {
	c := newComparator(t)
	g1 := host("/devices/sda", "S1", "0x5000")
	g2 := host("/devices/sdb", "S1", "0x5000")

	m, ok, err := c.Smallest(g1, g2, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"/devices/sda": "/devices/sdb"}, map[string]string(m))

	_, ok, err = c.Smallest(g1, host("/devices/sda", "S2", "0x5000"), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComparator_ConcurrentUse(t *testing.T) {
	c := newComparator(t)
	g1 := host("/devices/sda", "S1", "0x5000")
	g2 := host("/devices/sdb", "S1", "0x5000")

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.Compare(context.Background(), g1, g2)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, Equivalent, r)
	}
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "IDENTICAL", Identical.String())
	assert.Equal(t, "EQUIVALENT", Equivalent.String())
	assert.Equal(t, "DIFFERENT", Different.String())
}
