package decorate

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/config"
	"github.com/vk/devdag/internal/device/devicetest"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

const sda = "/devices/pci0000:00/0000:00:1f.2/ata1/host0/target0:0:0/0:0:0:0/block/sda"

func source() *devicetest.Source {
	src := devicetest.NewSource()
	src.Add(&devicetest.Device{
		DevPath: sda,
		Sub:     "block",
		Props:   map[string]string{"DEVNAME": "/dev/sda", "DEVTYPE": "disk"},
		Attrs:   map[string]string{"size": "976773168"},
		DevLinks: []string{
			"/dev/disk/by-id/ata-WDC_1",
			"/dev/disk/by-id/wwn-0x5000",
			"/dev/disk/by-path/pci-0000:00:1f.2-ata-1",
		},
	})
	return src
}

func topology() *graph.Graph {
	g := graph.New()
	g.AddNode(sda, attr.Map{vocab.KeyIdentifier: attr.String(sda), vocab.KeyNodeType: vocab.DevicePath})
	g.AddNode("/devices/virtual/block/gone", attr.Map{vocab.KeyIdentifier: attr.String("gone"), vocab.KeyNodeType: vocab.DevicePath})
	g.AddNode("0x5000", attr.Map{vocab.KeyIdentifier: attr.String("0x5000"), vocab.KeyNodeType: vocab.WWN})
	g.AddEdge(sda, "0x5000", attr.Map{vocab.KeyEdgeType: vocab.Spindle})
	return g
}

func TestNodeDecorator(t *testing.T) {
	nd, err := NewNodeDecorator(source(), map[vocab.NodeType]map[string]*config.FieldSpec{
		vocab.DevicePath: {
			config.FieldUdev:    {Name: config.FieldUdev, Args: []string{"DEVNAME", "ID_WWN"}},
			config.FieldSysfs:   {Name: config.FieldSysfs, Args: []string{"size", "dm/name"}},
			config.FieldDevlink: {Name: config.FieldDevlink, Args: []string{"by-id", "by-uuid"}},
			config.FieldSysname: {},
		},
		vocab.WWN: {config.FieldSysname: {Name: config.FieldSysname}},
	})
	require.NoError(t, err)

	g := topology()
	require.NoError(t, nd.Decorate(context.Background(), g))

	got, _ := g.Node(sda)
	want := attr.Map{
		vocab.KeyIdentifier: attr.String(sda),
		vocab.KeyNodeType:   vocab.DevicePath,
		"UDEV":              attr.Map{"DEVNAME": attr.String("/dev/sda"), "ID_WWN": attr.Nil},
		"SYSFS":             attr.Map{"size": attr.String("976773168"), "dm/name": attr.Nil},
		"DEVLINK": attr.Map{
			"by-id":   attr.Seq{attr.String("ata-WDC_1"), attr.String("wwn-0x5000")},
			"by-uuid": attr.Nil,
		},
		"SYSNAME": attr.String("sda"),
	}
	if !got.Equal(want) {
		t.Errorf("decorated attributes mismatch (-want +got):\n%s", cmp.Diff(want.String(), got.String()))
	}

	// unresolvable devices and non-device nodes are untouched
	gone, _ := g.Node("/devices/virtual/block/gone")
	assert.Len(t, gone, 2)
	spindle, _ := g.Node("0x5000")
	assert.Len(t, spindle, 2)
}

func TestNodeDecorator_UnknownField(t *testing.T) {
	_, err := NewNodeDecorator(source(), map[vocab.NodeType]map[string]*config.FieldSpec{
		vocab.DevicePath: {"HWDB": {Name: "HWDB"}},
	})
	assert.ErrorIs(t, err, config.ErrInvalid)
	assert.ErrorContains(t, err, "HWDB")
}

func TestNodeDecorator_Table(t *testing.T) {
	nd, err := NewNodeDecorator(source(), config.Default().NodeDecorations)
	require.NoError(t, err)

	g := topology()
	table, err := nd.Table(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, attr.Seq{attr.String("pci-0000:00:1f.2-ata-1")}, table[sda]["DEVLINK"].(attr.Map)["by-path"])

	// computing the table does not modify the graph
	attrs, _ := g.Node(sda)
	assert.NotContains(t, attrs, "UDEV")
}
