package query

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

type fixture struct{ g *graph.Graph }

func newFixture() *fixture { return &fixture{g: graph.New()} }

func (f *fixture) device(id string, udev attr.Map) {
	attrs := attr.Map{
		vocab.KeyIdentifier: attr.String(id),
		vocab.KeyNodeType:   vocab.DevicePath,
		"UDEV":              udev,
	}
	f.g.AddNode(id, attrs)
}

func (f *fixture) enclosure(id, sysname string) {
	f.device(id, attr.Map{"SUBSYSTEM": attr.String("enclosure")})
	attrs, _ := f.g.Node(id)
	attrs["SYSNAME"] = attr.String(sysname)
	f.g.AddNode(id, attrs)
}

func (f *fixture) disk(dev, wwn string) {
	f.device(dev, attr.Map{"DEVNAME": attr.String("/dev/" + dev), "SUBSYSTEM": attr.String("block")})
	f.g.AddNode(wwn, attr.Map{vocab.KeyIdentifier: attr.String(wwn), vocab.KeyNodeType: vocab.WWN})
	f.g.AddEdge(dev, wwn, attr.Map{vocab.KeyEdgeType: vocab.Spindle})
}

func (f *fixture) bay(enc, slot, dev string) {
	f.g.AddEdge(enc, dev, attr.Map{vocab.KeyEdgeType: vocab.EnclosureBay, vocab.KeyIdentifier: attr.String(slot)})
}

// shelf is a dual-ported shelf seen through two enclosure devices with a
// multipath device over its first disk, plus a single-ported shelf.
func shelf() *graph.Graph {
	f := newFixture()
	f.enclosure("e1", "0:0:0:0")
	f.enclosure("e2", "1:0:0:0")
	f.enclosure("e3", "2:0:0:0")
	f.disk("sdb", "w1")
	f.disk("sdd", "w1")
	f.disk("sdc", "w2")
	f.disk("sde", "w2")
	f.disk("sdf", "w3")
	f.bay("e1", "Slot 1", "sdb")
	f.bay("e1", "Slot 2", "sdc")
	f.bay("e2", "Slot 1", "sdd")
	f.bay("e2", "Slot 2", "sde")
	f.bay("e3", "Slot 0", "sdf")

	f.device("dm-0", attr.Map{"DM_NAME": attr.String("mpatha"), "DM_UUID": attr.String("mpath-3600")})
	f.g.AddEdge("dm-0", "sdb", attr.Map{vocab.KeyEdgeType: vocab.Slave})
	f.g.AddEdge("dm-0", "sdd", attr.Map{vocab.KeyEdgeType: vocab.Slave})
	return f.g
}

func TestByEnclosures(t *testing.T) {
	report, err := ByEnclosures(shelf())
	require.NoError(t, err)

	want := &EnclosureReport{Enclosures: []Enclosure{
		{
			Names: []string{"2:0:0:0"},
			Disks: []Disk{{Identifier: "Slot 0", Target: "/dev/sdf", Disk: "w3"}},
		},
		{
			Names: []string{"0:0:0:0", "1:0:0:0"},
			Disks: []Disk{
				{Identifier: "Slot 1", Target: "mpatha", Disk: "w1", Devices: []string{"/dev/sdb", "/dev/sdd"}},
				{Identifier: "Slot 2", Disk: "w2", Devices: []string{"/dev/sdc", "/dev/sde"}},
			},
		},
	}}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestByEnclosures_EmptyEnclosureIgnored(t *testing.T) {
	f := newFixture()
	f.enclosure("e1", "0:0:0:0")

	report, err := ByEnclosures(f.g)
	require.NoError(t, err)
	assert.Empty(t, report.Enclosures)
}

func TestByEnclosures_StructureErrors(t *testing.T) {
	testCases := []struct {
		name    string
		build   func(f *fixture)
		wantErr string
	}{
		{
			name: "bay without identifier",
			build: func(f *fixture) {
				f.enclosure("e1", "0:0:0:0")
				f.disk("sdb", "w1")
				f.g.AddEdge("e1", "sdb", attr.Map{vocab.KeyEdgeType: vocab.EnclosureBay})
			},
			wantErr: "no identifier",
		},
		{
			name: "bay device without disk",
			build: func(f *fixture) {
				f.enclosure("e1", "0:0:0:0")
				f.device("sdb", attr.Map{"DEVNAME": attr.String("/dev/sdb")})
				f.bay("e1", "Slot 1", "sdb")
			},
			wantErr: "want exactly one",
		},
		{
			name: "two disks in one slot",
			build: func(f *fixture) {
				f.enclosure("e1", "0:0:0:0")
				f.enclosure("e2", "1:0:0:0")
				f.disk("sdb", "w1")
				f.disk("sdc", "w2")
				f.disk("sdd", "w1")
				f.disk("sde", "w2")
				f.bay("e1", "Slot 1", "sdb")
				f.bay("e1", "Slot 2", "sdc")
				f.bay("e2", "Slot 1", "sde")
				f.bay("e2", "Slot 2", "sdd")
			},
			wantErr: "more than one disk",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			tc.build(f)
			_, err := ByEnclosures(f.g)
			require.Error(t, err)
			assert.ErrorIs(t, err, graph.ErrStructure)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestProcess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Process(context.Background(), &buf, shelf(), ByEnclosuresKey))
	out := buf.String()
	assert.Contains(t, out, "<h2>0:0:0:0, 1:0:0:0</h2>")
	assert.Contains(t, out, "<td>Slot 1</td><td>mpatha</td><td>w1</td><td>/dev/sdb, /dev/sdd</td>")

	buf.Reset()
	require.NoError(t, Process(context.Background(), &buf, graph.New(), ByEnclosuresKey))
	assert.Contains(t, buf.String(), "No enclosures found.")
}

func TestProcess_Errors(t *testing.T) {
	err := Process(context.Background(), &bytes.Buffer{}, graph.New(), "BY_COLOR")
	assert.ErrorIs(t, err, ErrUnknownQuery)
	assert.ErrorContains(t, err, ByEnclosuresKey)

	f := newFixture()
	f.enclosure("e1", "0:0:0:0")
	f.g.AddEdge("e1", "sdb", attr.Map{vocab.KeyEdgeType: vocab.EnclosureBay})
	err = Process(context.Background(), &bytes.Buffer{}, f.g, ByEnclosuresKey)
	assert.ErrorIs(t, err, graph.ErrStructure)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{ByEnclosuresKey}, Keys())
}
