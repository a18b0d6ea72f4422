package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/compare"
	"github.com/vk/devdag/internal/device/devicetest"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/hcl"
	"github.com/vk/devdag/internal/inmemorytopology"
	"github.com/vk/devdag/internal/jsongraph"
	"github.com/vk/devdag/internal/notify"
	"github.com/vk/devdag/internal/present"
	"github.com/vk/devdag/internal/topologystore"
	"github.com/vk/devdag/internal/vocab"
)

// disk is a one-disk topology: the block device and the WWN of its spindle.
func disk(dev, wwn string) *graph.Graph {
	g := graph.New()
	g.Attrs()[vocab.KeyName] = attr.String("host")
	path := "/devices/" + dev
	g.AddNode(path, attr.Map{
		vocab.KeyIdentifier: attr.String(path),
		vocab.KeyNodeType:   vocab.DevicePath,
		"UDEV":              attr.Map{"DEVNAME": attr.String("/dev/" + dev)},
	})
	g.AddNode(wwn, attr.Map{vocab.KeyIdentifier: attr.String(wwn), vocab.KeyNodeType: vocab.WWN})
	g.AddEdge(path, wwn, attr.Map{vocab.KeyEdgeType: vocab.Spindle})
	return g
}

func writeGraph(t *testing.T, name string, g *graph.Graph) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".json")
	require.NoError(t, jsongraph.WriteFile(path, g))
	return path
}

type fixtures struct {
	a, equivalent, different string
}

func newFixtures(t *testing.T) fixtures {
	return fixtures{
		a:          writeGraph(t, "a", disk("sda", "0x5")),
		equivalent: writeGraph(t, "b", disk("sdb", "0x5")),
		different:  writeGraph(t, "c", disk("sda", "0x6")),
	}
}

type fakeEmitter struct {
	events []string
}

func (f *fakeEmitter) Emit(event string, payload any) {
	f.events = append(f.events, event)
}

func TestCompare(t *testing.T) {
	f := newFixtures(t)
	testCases := []struct {
		name  string
		right string
		want  compare.Result
	}{
		{"identical", f.a, compare.Identical},
		{"equivalent", f.equivalent, compare.Equivalent},
		{"different", f.different, compare.Different},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			emitter := &fakeEmitter{}
			a, out, _ := SetupAppTest(t, Config{Command: CmdCompare, Args: []string{f.a, tc.right}},
				WithPublisher(notify.New(emitter)))

			err := a.Run(context.Background())
			if tc.want == compare.Identical {
				require.NoError(t, err)
			} else {
				var resErr *ResultError
				require.True(t, errors.As(err, &resErr), "want a ResultError, got %v", err)
				assert.Equal(t, int(tc.want), resErr.Code())
			}
			assert.Equal(t, tc.want.String()+"\n", out.String())
			assert.Equal(t, []string{notify.EventCompare}, emitter.events)
			assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().Comparisons.WithLabelValues(tc.want.String())))
		})
	}
}

func TestCompare_ConfiguredPersistentAttributes(t *testing.T) {
	f := newFixtures(t)
	// Requiring equal device names makes sda and sdb different.
	cfgPath := filepath.Join(t.TempDir(), "devdag.hcl")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
persistent "WWN" { paths = [["identifier"]] }
persistent "DEVICE_PATH" { paths = [["UDEV", "DEVNAME"]] }
`), 0o600))

	a, out, _ := SetupAppTest(t, Config{Command: CmdCompare, Args: []string{f.a, f.equivalent}, ConfigPath: cfgPath})
	err := a.Run(context.Background())
	var resErr *ResultError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, compare.Different, resErr.Result)
	assert.Equal(t, "DIFFERENT\n", out.String())
}

func TestDiff(t *testing.T) {
	f := newFixtures(t)
	emitter := &fakeEmitter{}
	a, out, _ := SetupAppTest(t, Config{Command: CmdDiff, Args: []string{f.a, f.equivalent}},
		WithPublisher(notify.New(emitter)))

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "DIFFSTATUS")
	assert.Contains(t, out.String(), "/dev/sda")
	assert.Contains(t, out.String(), "/dev/sdb")
	assert.Contains(t, out.String(), "REMOVED")
	assert.Contains(t, out.String(), "ADDED")
	assert.Equal(t, []string{notify.EventDiff}, emitter.events)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().Diffs.WithLabelValues("full")))
}

func TestDiff_ModesToFile(t *testing.T) {
	f := newFixtures(t)
	testCases := []struct {
		mode      string
		wantNodes []string
		marked    string
		status    vocab.DiffStatus
	}{
		{"full", []string{"/devices/sda", "/devices/sdb", "0x5"}, "/devices/sda", vocab.Removed},
		{"left", []string{"/devices/sda", "0x5"}, "/devices/sda", vocab.Removed},
		{"right", []string{"/devices/sdb", "0x5"}, "/devices/sdb", vocab.Added},
	}
	for _, tc := range testCases {
		t.Run(tc.mode, func(t *testing.T) {
			outPath := filepath.Join(t.TempDir(), "diff.json")
			a, out, _ := SetupAppTest(t, Config{
				Command:  CmdDiff,
				Args:     []string{f.a, f.equivalent},
				DiffMode: tc.mode,
				OutPath:  outPath,
			})
			require.NoError(t, a.Run(context.Background()))
			assert.Empty(t, out.String())

			g, err := jsongraph.ReadFile(outPath)
			require.NoError(t, err)
			assert.Equal(t, tc.wantNodes, g.Nodes())
			attrs, _ := g.Node(tc.marked)
			assert.Equal(t, tc.status, attrs[vocab.KeyDiffStatus])
			wwn, _ := g.Node("0x5")
			assert.NotContains(t, wwn, vocab.KeyDiffStatus)
		})
	}
}

func TestIso(t *testing.T) {
	f := newFixtures(t)

	a, out, _ := SetupAppTest(t, Config{Command: CmdIso, Args: []string{f.a, f.equivalent}})
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "GRAPH 1")
	assert.Contains(t, out.String(), "/dev/sda")
	assert.Contains(t, out.String(), "/dev/sdb")
	assert.NotContains(t, out.String(), "0x5", "identity pairs are left out")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().Mappings))

	a, out, _ = SetupAppTest(t, Config{Command: CmdIso, Args: []string{f.a, f.different}})
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, present.NoIsomorphism+"\n", out.String())
	assert.Equal(t, 0.0, testutil.ToFloat64(a.Metrics().Mappings))
}

func TestPrintAndDot(t *testing.T) {
	f := newFixtures(t)

	a, out, _ := SetupAppTest(t, Config{Command: CmdPrint, Args: []string{f.a}})
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "`-0x5")

	a, out, _ = SetupAppTest(t, Config{Command: CmdDot, Args: []string{f.a}})
	require.NoError(t, a.Run(context.Background()))
	assert.True(t, strings.HasPrefix(out.String(), `digraph "host" {`), out.String())
}

func TestQuery(t *testing.T) {
	f := newFixtures(t)
	a, out, _ := SetupAppTest(t, Config{Command: CmdQuery, Args: []string{f.a}})
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "No enclosures found.")
}

func TestGenerate(t *testing.T) {
	src := devicetest.NewSource()
	src.Add(&devicetest.Device{DevPath: "/devices/pci/block/sda", Sub: "block", Props: map[string]string{
		"DEVNAME": "/dev/sda", "DEVTYPE": "disk", "ID_WWN_WITH_EXTENSION": "0x5",
	}})

	a, out, _ := SetupAppTest(t, Config{Command: CmdGenerate}, WithSource(src))
	require.NoError(t, a.Run(context.Background()))

	g, err := jsongraph.FromString(out.String())
	require.NoError(t, err)
	assert.True(t, g.HasEdge("/devices/pci/block/sda", "0x5"))
	attrs, _ := g.Node("/devices/pci/block/sda")
	devname, err := attrs.Get("UDEV", "DEVNAME")
	require.NoError(t, err)
	assert.Equal(t, attr.String("/dev/sda"), devname)
}

func TestGenerate_MissingSysfsRoot(t *testing.T) {
	a, _, _ := SetupAppTest(t, Config{Command: CmdGenerate, SysfsRoot: filepath.Join(t.TempDir(), "nope")})
	assert.ErrorContains(t, a.Run(context.Background()), "sysfs root")
}

func TestSnapshot(t *testing.T) {
	f := newFixtures(t)
	store := inmemorytopology.New(nil)
	neo := Neo4jConfig{URI: "bolt://localhost:7687"}

	a, out, _ := SetupAppTest(t, Config{Command: CmdSnapshot, Args: []string{SnapshotSave, "before", f.a}, Neo4j: neo}, WithStore(store))
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "Saved snapshot before")
	assert.Contains(t, out.String(), "2 nodes, 1 edges")

	a, out, _ = SetupAppTest(t, Config{Command: CmdSnapshot, Args: []string{SnapshotList}, Neo4j: neo}, WithStore(store))
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "before")

	a, out, _ = SetupAppTest(t, Config{Command: CmdSnapshot, Args: []string{SnapshotLoad, "before"}, Neo4j: neo}, WithStore(store))
	require.NoError(t, a.Run(context.Background()))
	g, err := jsongraph.FromString(out.String())
	require.NoError(t, err)
	assert.Equal(t, disk("sda", "0x5").Nodes(), g.Nodes())

	a, _, _ = SetupAppTest(t, Config{Command: CmdSnapshot, Args: []string{SnapshotLoad, "after"}, Neo4j: neo}, WithStore(store))
	assert.ErrorIs(t, a.Run(context.Background()), topologystore.ErrNotFound)
}

func TestSnapshot_EmptyList(t *testing.T) {
	a, out, _ := SetupAppTest(t, Config{
		Command: CmdSnapshot,
		Args:    []string{SnapshotList},
		Neo4j:   Neo4jConfig{URI: "bolt://localhost:7687"},
	}, WithStore(inmemorytopology.New(nil)))
	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, "No snapshots.\n", out.String())
}

func TestRun_MetricsTextfile(t *testing.T) {
	f := newFixtures(t)
	path := filepath.Join(t.TempDir(), "devdag.prom")
	a, _, _ := SetupAppTest(t, Config{Command: CmdCompare, Args: []string{f.a, f.a}, MetricsTextfile: path})
	require.NoError(t, a.Run(context.Background()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `devdag_comparisons_total{result="IDENTICAL"} 1`)
	assert.Contains(t, string(b), `devdag_operation_duration_seconds_count{op="compare"} 1`)
}

func TestRun_ReadError(t *testing.T) {
	a, _, logs := SetupAppTest(t, Config{Command: CmdPrint, Args: []string{filepath.Join(t.TempDir(), "missing.json")}})
	err := a.Run(context.Background())
	assert.ErrorContains(t, err, "failed to read graph")
	assert.Contains(t, logs.String(), "App.Run method started.")
}

func TestNewApp_BadConfigPanics(t *testing.T) {
	cfg, err := NewConfig(Config{Command: CmdPrint, Args: []string{"g.json"}, ConfigPath: filepath.Join(t.TempDir(), "missing.hcl")})
	require.NoError(t, err)
	assert.Panics(t, func() {
		NewApp(&SafeBuffer{}, &SafeBuffer{}, cfg, hcl.NewLoader())
	})
}

func TestNewApp_DefaultModel(t *testing.T) {
	a, _, _ := SetupAppTest(t, Config{Command: CmdGenerate})
	assert.Equal(t, [][]string{{vocab.KeyIdentifier}}, a.Model().Persistent[vocab.WWN.String()])
}
