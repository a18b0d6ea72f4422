package build

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/device"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

var (
	blockDisks      = device.Filter{Subsystem: "block", Properties: map[string]string{"DEVTYPE": "disk"}}
	blockPartitions = device.Filter{Subsystem: "block", Properties: map[string]string{"DEVTYPE": "partition"}}
)

// traversal walks either the slaves or the holders of devices. SLAVE edges
// always point from a holder to its slave.
type traversal struct {
	src       device.Source
	slaves    bool
	recursive bool
	visited   map[string]bool
}

func (t *traversal) level(ctx context.Context, g *graph.Graph, d device.Device) error {
	if t.visited[d.Path()] {
		return nil
	}
	t.visited[d.Path()] = true

	next := t.src.Holders
	if t.slaves {
		next = t.src.Slaves
	}
	devs, err := next(ctx, d)
	if err != nil {
		return err
	}
	if len(devs) == 0 {
		AddNodes(g, []string{d.Path()}, vocab.DevicePath)
		return nil
	}

	sources, targets := devicePaths(devs), []string{d.Path()}
	if t.slaves {
		sources, targets = targets, sources
	}
	AddEdges(g, sources, targets, vocab.Slave, vocab.DevicePath, vocab.DevicePath, nil)

	if !t.recursive {
		return nil
	}
	for _, dev := range devs {
		if err := t.level(ctx, g, dev); err != nil {
			return err
		}
	}
	return nil
}

func traverse(ctx context.Context, src device.Source, d device.Device, slaves, recursive bool) (*graph.Graph, error) {
	t := &traversal{src: src, slaves: slaves, recursive: recursive, visited: make(map[string]bool)}
	g := graph.New()
	if err := t.level(ctx, g, d); err != nil {
		return nil, fmt.Errorf("traversing %s: %w", d.Path(), err)
	}
	return g, nil
}

// Slaves returns the graph of d and the devices it is built on. A device
// without slaves yields a graph of d alone.
func Slaves(ctx context.Context, src device.Source, d device.Device, recursive bool) (*graph.Graph, error) {
	return traverse(ctx, src, d, true, recursive)
}

// Holders returns the graph of d and the devices built on it.
func Holders(ctx context.Context, src device.Source, d device.Device, recursive bool) (*graph.Graph, error) {
	return traverse(ctx, src, d, false, recursive)
}

// SlavesAndHolders composes the slave and holder graphs of d.
func SlavesAndHolders(ctx context.Context, src device.Source, d device.Device, recursive bool) (*graph.Graph, error) {
	slaves, err := Slaves(ctx, src, d, recursive)
	if err != nil {
		return nil, err
	}
	holders, err := Holders(ctx, src, d, recursive)
	if err != nil {
		return nil, err
	}
	return graph.Compose(slaves, holders), nil
}

// SysfsGraphs relates devices through their sysfs slaves and holders. An
// empty Subsystem covers every device.
type SysfsGraphs struct {
	Subsystem string
}

func (b SysfsGraphs) Name() string {
	if b.Subsystem == "block" {
		return "SysfsBlockGraphs"
	}
	return "SysfsGraphs"
}

func (b SysfsGraphs) Complete(ctx context.Context, src device.Source) (*graph.Graph, error) {
	devs, err := src.Devices(ctx, device.Filter{Subsystem: b.Subsystem})
	if err != nil {
		return nil, err
	}
	graphs := make([]*graph.Graph, 0, len(devs))
	for _, d := range devs {
		g, err := SlavesAndHolders(ctx, src, d, false)
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return named(graph.ComposeAll(graphs...), "sysfs"), nil
}

// PartitionGraphs relates each partition to its parent disk.
type PartitionGraphs struct{}

func (PartitionGraphs) Name() string { return "PartitionGraphs" }

func (PartitionGraphs) Complete(ctx context.Context, src device.Source) (*graph.Graph, error) {
	parts, err := src.Devices(ctx, blockPartitions)
	if err != nil {
		return nil, err
	}
	g := graph.New()
	for _, p := range parts {
		parent, err := src.Parent(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("parent of partition %s: %w", p.Path(), err)
		}
		AddEdges(g, []string{p.Path()}, []string{parent.Path()}, vocab.Partition, vocab.DevicePath, vocab.DevicePath, nil)
	}
	return named(g, "partition"), nil
}

// SpindleGraphs relates each disk to the WWN of its drive. Disks without a
// WWN are left out.
type SpindleGraphs struct{}

func (SpindleGraphs) Name() string { return "SpindleGraphs" }

func (SpindleGraphs) Complete(ctx context.Context, src device.Source) (*graph.Graph, error) {
	disks, err := src.Devices(ctx, blockDisks)
	if err != nil {
		return nil, err
	}
	g := graph.New()
	for _, d := range disks {
		wwn, ok := d.Property("ID_WWN_WITH_EXTENSION")
		if !ok {
			continue
		}
		AddEdges(g, []string{d.Path()}, []string{wwn}, vocab.Spindle, vocab.DevicePath, vocab.WWN, nil)
	}
	return named(g, "spindle"), nil
}

// DMPartitionGraphs relates each partition to every disk that carries the
// same partition entry UUID, such as a device-mapper device mapping it.
type DMPartitionGraphs struct{}

func (DMPartitionGraphs) Name() string { return "DMPartitionGraphs" }

func (DMPartitionGraphs) Complete(ctx context.Context, src device.Source) (*graph.Graph, error) {
	parts, err := src.Devices(ctx, blockPartitions)
	if err != nil {
		return nil, err
	}
	disks, err := src.Devices(ctx, blockDisks)
	if err != nil {
		return nil, err
	}

	g := graph.New()
	for _, p := range parts {
		uuid, ok := p.Property("ID_PART_ENTRY_UUID")
		if !ok {
			continue
		}
		var sources []string
		for _, d := range disks {
			if v, ok := d.Property("ID_PART_ENTRY_UUID"); ok && v == uuid {
				sources = append(sources, d.Path())
			}
		}
		AddEdges(g, sources, []string{p.Path()}, vocab.Congruence, vocab.DevicePath, vocab.DevicePath, nil)
	}
	return named(g, "congruence"), nil
}

// EnclosureGraphs relates each enclosure to the devices in its bays. The
// bay name is the edge's identifier.
type EnclosureGraphs struct{}

func (EnclosureGraphs) Name() string { return "EnclosureGraphs" }

func (EnclosureGraphs) Complete(ctx context.Context, src device.Source) (*graph.Graph, error) {
	encs, err := src.Devices(ctx, device.Filter{Subsystem: "enclosure"})
	if err != nil {
		return nil, err
	}
	g := graph.New()
	for _, enc := range encs {
		bays, err := src.Bays(ctx, enc)
		if errors.Is(err, device.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("bays of %s: %w", enc.Path(), err)
		}
		AddNodes(g, []string{enc.Path()}, vocab.DevicePath)
		for _, bay := range bays {
			AddEdges(g, []string{enc.Path()}, []string{bay.Device.Path()}, vocab.EnclosureBay,
				vocab.DevicePath, vocab.DevicePath, attr.Map{vocab.KeyIdentifier: attr.String(bay.Name)})
		}
	}
	return named(g, "enclosure"), nil
}

// All returns one of every builder, in name order.
func All() []Builder {
	out := []Builder{
		DMPartitionGraphs{},
		EnclosureGraphs{},
		PartitionGraphs{},
		SpindleGraphs{},
		SysfsGraphs{Subsystem: "block"},
		SysfsGraphs{},
	}
	slices.SortFunc(out, func(a, b Builder) int { return cmp.Compare(a.Name(), b.Name()) })
	return out
}
