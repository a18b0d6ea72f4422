package jsongraph

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

func sample() *graph.Graph {
	g := graph.New()
	g.Attrs()[vocab.KeyName] = attr.String("host")
	g.AddNode("/devices/sda", attr.Map{
		vocab.KeyIdentifier: attr.String("/devices/sda"),
		vocab.KeyNodeType:   vocab.DevicePath,
		vocab.KeyDiffStatus: vocab.Added,
		"UDEV":              attr.Map{"DEVNAME": attr.String("/dev/sda"), "ID_WWN": attr.Nil},
		"DEVLINK":           attr.Map{"by-path": attr.Strings("pci-0000:00:1f.2-ata-1")},
		"SYSFS":             attr.Map{"size": attr.String("976773168")},
	})
	g.AddNode("0x5000", attr.Map{vocab.KeyIdentifier: attr.String("0x5000"), vocab.KeyNodeType: vocab.WWN})
	g.AddEdge("/devices/sda", "0x5000", attr.Map{vocab.KeyEdgeType: vocab.Spindle, "weight": attr.Int(3)})
	return g
}

func assertSameGraph(t *testing.T, want, got *graph.Graph) {
	t.Helper()
	assert.True(t, want.Attrs().Equal(got.Attrs()), "graph attributes: %v != %v", want.Attrs(), got.Attrs())
	require.Equal(t, want.Nodes(), got.Nodes())
	require.Equal(t, want.Edges(), got.Edges())
	for _, n := range want.Nodes() {
		w, _ := want.Node(n)
		g, _ := got.Node(n)
		assert.True(t, w.Equal(g), "node %s: %v != %v", n, w, g)
	}
	for _, e := range want.Edges() {
		w, _ := want.Edge(e.Source, e.Target)
		g, _ := got.Edge(e.Source, e.Target)
		assert.True(t, w.Equal(g), "edge %s: %v != %v", e, w, g)
	}
}

func TestRoundTrip(t *testing.T) {
	g := sample()

	s, err := AsString(g)
	require.NoError(t, err)
	back, err := FromString(s)
	require.NoError(t, err)
	assertSameGraph(t, g, back)

	// enumeration members come back as themselves, not as strings
	attrs, _ := back.Node("0x5000")
	assert.Equal(t, vocab.WWN, attrs[vocab.KeyNodeType])

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g))
	back, err = Read(&buf)
	require.NoError(t, err)
	assertSameGraph(t, g, back)
}

func TestFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.json")
	require.NoError(t, WriteFile(path, sample()))
	back, err := ReadFile(path)
	require.NoError(t, err)
	assertSameGraph(t, sample(), back)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRead_IndexedLinksAndUnknownNames(t *testing.T) {
	doc := `{
	  "directed": true,
	  "multigraph": false,
	  "graph": [["name", "old"], ["reversed", false]],
	  "nodes": [
	    {"id": "a", "nodetype": "DEVICE_PATH"},
	    {"id": "b", "nodetype": "TAPE"}
	  ],
	  "links": [{"source": 0, "target": 1, "edgetype": "SLAVE"}]
	}`
	g, err := FromString(doc)
	require.NoError(t, err)

	assert.Equal(t, "old", g.Name())
	assert.False(t, g.Reversed())
	assert.Equal(t, []graph.Edge{{Source: "a", Target: "b"}}, g.Edges())

	b, _ := g.Node("b")
	assert.Equal(t, attr.Nil, b[vocab.KeyNodeType])
	e, _ := g.Edge("a", "b")
	assert.Equal(t, vocab.Slave, e[vocab.KeyEdgeType])
}

func TestRead_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"not json", `{`, "decoding graph"},
		{"multigraph", `{"multigraph": true}`, "multigraphs"},
		{"bad pair", `{"graph": [["name"]]}`, "pair"},
		{"missing id", `{"nodes": [{"nodetype": "WWN"}]}`, "missing \"id\""},
		{"index out of range", `{"nodes": [{"id": "a"}], "links": [{"source": 0, "target": 5}]}`, "out of range"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromString(tc.doc)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStringize(t *testing.T) {
	in := attr.Map{vocab.KeyEdgeType: vocab.Partition, vocab.KeyDiffStatus: attr.Nil, "other": attr.Int(1)}
	out := Stringize(in)
	assert.Equal(t, attr.String("PARTITION"), out[vocab.KeyEdgeType])
	assert.Equal(t, attr.Nil, out[vocab.KeyDiffStatus])
	assert.Equal(t, vocab.Partition, in[vocab.KeyEdgeType])
	assert.True(t, in.Equal(Destringize(out)))
}

func TestMarshalAttrs(t *testing.T) {
	in := attr.Map{
		vocab.KeyNodeType: vocab.WWN,
		"UDEV":            attr.Map{"DEVNAME": attr.String("/dev/sda"), "MINOR": attr.Int(16)},
	}
	s, err := MarshalAttrs(in)
	require.NoError(t, err)
	assert.Contains(t, s, `"nodetype":"WWN"`)

	back, err := UnmarshalAttrs(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(back), "%v != %v", in, back)

	_, err = UnmarshalAttrs("[1]")
	assert.ErrorContains(t, err, "decoding attributes")
}
