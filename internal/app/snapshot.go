package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/vk/devdag/internal/neo4jstore"
	"github.com/vk/devdag/internal/topologystore"
)

// snapshotStore returns the store snapshot commands work on, connecting to
// Neo4j on first use.
func (a *App) snapshotStore(ctx context.Context) (topologystore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	n := a.cfg.Neo4j
	client, err := neo4jstore.NewClient(ctx, a.logger, n.URI, n.Database, n.User, n.Password)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	store, err := neo4jstore.NewStore(neo4jstore.StoreConfig{Logger: a.logger, Neo4j: client})
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

func (a *App) snapshot(ctx context.Context, sub string, args []string) error {
	store, err := a.snapshotStore(ctx)
	if err != nil {
		return err
	}

	switch sub {
	case SnapshotSave:
		g, err := readGraph(ctx, args[1])
		if err != nil {
			return err
		}
		snap, err := store.Save(ctx, args[0], g)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.outW, "Saved snapshot %s (%s): %d nodes, %d edges\n", snap.Name, snap.ID, snap.Nodes, snap.Edges)
		return nil
	case SnapshotLoad:
		g, err := store.Load(ctx, args[0])
		if err != nil {
			return err
		}
		return a.writeGraph(ctx, g)
	case SnapshotList:
		snaps, err := store.List(ctx)
		if err != nil {
			return err
		}
		a.printSnapshots(snaps)
		return nil
	}
	return fmt.Errorf("snapshot: unknown subcommand %q", sub)
}

func (a *App) printSnapshots(snaps []topologystore.Snapshot) {
	if len(snaps) == 0 {
		fmt.Fprintln(a.outW, "No snapshots.")
		return
	}
	table := tablewriter.NewWriter(a.outW)
	table.SetHeader([]string{"NAME", "ID", "NODES", "EDGES", "CREATED"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	for _, s := range snaps {
		table.Append([]string{
			s.Name,
			s.ID.String(),
			strconv.Itoa(s.Nodes),
			strconv.Itoa(s.Edges),
			humanize.Time(s.CreatedAt),
		})
	}
	table.Render()
}
