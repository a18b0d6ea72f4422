// Package topologystore defines the interface for keeping named snapshots of
// device topology graphs.
//
// # Why Snapshots Exist
//
// Comparing a host against itself over time is the main use of devdag: take
// a snapshot before a reboot or a hardware change, another one after, and
// compare or diff the two. The store gives each snapshot a name so the
// earlier graph can be found again without keeping JSON files around.
//
// # Semantics
//
//   - **Save** stores a copy of the graph under a name. Saving under an
//     existing name replaces the earlier snapshot and gives it a new ID.
//   - **Load** returns a graph equal to the one saved: same nodes, edges and
//     attributes, with enumeration values restored.
//   - **List** returns the snapshots sorted by name.
//
// See internal/inmemorytopology for the in-memory implementation and
// internal/neo4jstore for the Neo4j-backed one.
package topologystore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vk/devdag/internal/graph"
)

// ErrNotFound is returned when no snapshot has the requested name.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot describes one stored graph.
type Snapshot struct {
	ID        uuid.UUID
	Name      string
	Nodes     int
	Edges     int
	CreatedAt time.Time
}

// Store is the interface for saving and retrieving topology snapshots.
//
// Implementations MUST be safe for concurrent use.
type Store interface {
	// Save stores g under name, replacing any snapshot of that name.
	Save(ctx context.Context, name string, g *graph.Graph) (Snapshot, error)

	// Load returns the graph saved under name, or an error wrapping
	// ErrNotFound.
	Load(ctx context.Context, name string) (*graph.Graph, error)

	// List returns every snapshot, sorted by name.
	List(ctx context.Context) ([]Snapshot, error)
}

// NewSnapshot describes g as saved under name at the given time.
func NewSnapshot(name string, g *graph.Graph, at time.Time) Snapshot {
	return Snapshot{
		ID:        uuid.New(),
		Name:      name,
		Nodes:     g.Len(),
		Edges:     g.EdgeCount(),
		CreatedAt: at,
	}
}
