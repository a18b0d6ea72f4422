package query

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/present"
	"github.com/vk/devdag/internal/vocab"
)

// Disk is one occupied enclosure slot.
type Disk struct {
	// Identifier names the slot.
	Identifier string
	// Target is the device to use for the disk: its multipath or other
	// device-mapper holder when all paths share one, else its only path.
	// It is empty when no single device stands for the disk.
	Target string
	// Disk is the key of the disk's WWN node.
	Disk string
	// Devices are the component paths, empty when Target is the only one.
	Devices []string
}

// Enclosure is a set of enclosure devices that see the same disks, for
// instance the two controllers of one dual-ported shelf.
type Enclosure struct {
	Names []string
	Disks []Disk
}

// EnclosureReport is the result of ByEnclosures.
type EnclosureReport struct {
	Enclosures []Enclosure
}

// bay is a device seen through one slot of one enclosure device.
type bay struct {
	target     string
	identifier string
	disk       string
}

func structural(format string, args ...any) error {
	return &graph.StructureError{Msg: fmt.Sprintf(format, args...)}
}

func enclosureDevices(g *graph.Graph) []string {
	var out []string
	for _, n := range g.Nodes() {
		attrs, _ := g.Node(n)
		if !vocab.DevicePath.Equal(attrs[vocab.KeyNodeType]) {
			continue
		}
		if sub, ok := present.Subsystem(attrs); ok && sub == "enclosure" {
			out = append(out, n)
		}
	}
	return out
}

func edgeType(g *graph.Graph, e graph.Edge) attr.Value {
	attrs, _ := g.Edge(e.Source, e.Target)
	return attrs[vocab.KeyEdgeType]
}

func baysOf(g *graph.Graph, enclosure string) ([]bay, error) {
	var out []bay
	for _, e := range g.OutEdges(enclosure) {
		attrs, _ := g.Edge(e.Source, e.Target)
		if !vocab.EnclosureBay.Equal(attrs[vocab.KeyEdgeType]) {
			continue
		}
		id, ok := attrs[vocab.KeyIdentifier].(attr.String)
		if !ok {
			return nil, structural("enclosure bay edge %s has no identifier", e)
		}
		var disks []string
		for _, de := range g.OutEdges(e.Target) {
			if vocab.Spindle.Equal(edgeType(g, de)) {
				disks = append(disks, de.Target)
			}
		}
		if len(disks) != 1 {
			return nil, structural("device %s in bay %s has %d disks, want exactly one", e.Target, id, len(disks))
		}
		out = append(out, bay{target: e.Target, identifier: string(id), disk: disks[0]})
	}
	return out, nil
}

// groupByDisks groups enclosure devices that see exactly the same set of
// disks. Enclosures seeing no disks are left out.
func groupByDisks(bays map[string][]bay) [][]string {
	groups := make(map[string][]string)
	for _, enc := range slices.Sorted(maps.Keys(bays)) {
		var disks []string
		for _, b := range bays[enc] {
			disks = append(disks, b.disk)
		}
		if len(disks) == 0 {
			continue
		}
		slices.Sort(disks)
		key := strings.Join(slices.Compact(disks), "\x00")
		groups[key] = append(groups[key], enc)
	}

	out := make([][]string, 0, len(groups))
	for _, encs := range groups {
		out = append(out, encs)
	}
	slices.SortFunc(out, func(a, b []string) int {
		return cmp.Or(cmp.Compare(len(a), len(b)), slices.Compare(a, b))
	})
	return out
}

// dmHolder returns the device-mapper device holding device, if any.
func dmHolder(g *graph.Graph, device string) string {
	for _, e := range g.InEdges(device) {
		if !vocab.Slave.Equal(edgeType(g, e)) {
			continue
		}
		attrs, _ := g.Node(e.Source)
		if _, ok := present.Path("UDEV", "DM_UUID")(attrs); ok {
			return e.Source
		}
	}
	return ""
}

// sharedHolder returns the device-mapper device holding every one of
// devices, or "" when they do not all have the same one.
func sharedHolder(g *graph.Graph, devices []string) string {
	holders := make(map[string]bool)
	for _, d := range devices {
		holders[dmHolder(g, d)] = true
	}
	if len(holders) != 1 {
		return ""
	}
	for h := range holders {
		return h
	}
	return ""
}

func combine(g *graph.Graph, encs []string, bays map[string][]bay) ([]Disk, error) {
	bySlot := make(map[string][]bay)
	for _, enc := range encs {
		for _, b := range bays[enc] {
			bySlot[b.identifier] = append(bySlot[b.identifier], b)
		}
	}

	var out []Disk
	for _, slot := range slices.Sorted(maps.Keys(bySlot)) {
		var disks, devices []string
		for _, b := range bySlot[slot] {
			disks = append(disks, b.disk)
			devices = append(devices, b.target)
		}
		slices.Sort(disks)
		if disks = slices.Compact(disks); len(disks) != 1 {
			return nil, structural("enclosure slot %s holds more than one disk", slot)
		}
		slices.Sort(devices)
		devices = slices.Compact(devices)

		disk := Disk{Identifier: slot, Disk: disks[0]}
		target := sharedHolder(g, devices)
		if target == "" && len(devices) == 1 && len(encs) == 1 {
			target = devices[0]
			devices = nil
		}
		if target != "" {
			attrs, _ := g.Node(target)
			disk.Target, _ = present.First(present.DMName, present.Devname)(attrs)
		}
		for _, d := range devices {
			attrs, _ := g.Node(d)
			name, _ := present.Devname(attrs)
			disk.Devices = append(disk.Devices, name)
		}
		out = append(out, disk)
	}
	return out, nil
}

// ByEnclosures groups the disks of g by the enclosures that hold them.
// Enclosure devices are DEVICE_PATH nodes of the "enclosure" subsystem;
// their ENCLOSUREBAY edges lead to the devices in each slot and those
// devices' SPINDLE edges to the disks. It fails with a *graph.StructureError
// when a bay edge has no identifier, a bay device does not lead to exactly
// one disk, or one slot of an enclosure set holds several disks.
func ByEnclosures(g *graph.Graph) (*EnclosureReport, error) {
	bays := make(map[string][]bay)
	for _, enc := range enclosureDevices(g) {
		b, err := baysOf(g, enc)
		if err != nil {
			return nil, err
		}
		bays[enc] = b
	}

	report := &EnclosureReport{Enclosures: []Enclosure{}}
	for _, encs := range groupByDisks(bays) {
		disks, err := combine(g, encs, bays)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(encs))
		for i, enc := range encs {
			attrs, _ := g.Node(enc)
			names[i], _ = present.Sysname(attrs)
		}
		slices.Sort(names)
		report.Enclosures = append(report.Enclosures, Enclosure{Names: names, Disks: disks})
	}
	return report, nil
}
