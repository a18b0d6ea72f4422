// Package neo4jstore keeps topology snapshots in Neo4j.
//
// Each snapshot is a (:Snapshot {id, name, created_at, nodes, edges, attrs})
// node. Its graph nodes are (:DevNode {key, attrs}) nodes linked from the
// snapshot by [:CONTAINS], and its edges are [:TOPOLOGY {attrs}]
// relationships between them. Attribute maps are stored as JSON strings,
// since Neo4j properties cannot hold nested maps.
package neo4jstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/jsongraph"
	"github.com/vk/devdag/internal/topologystore"
)

const (
	cypherDeleteSnapshot = `
		MATCH (s:Snapshot {name: $name})
		OPTIONAL MATCH (s)-[:CONTAINS]->(n:DevNode)
		DETACH DELETE s, n
	`
	cypherCreateSnapshot = `
		CREATE (s:Snapshot {
			id: $id,
			name: $name,
			created_at: $created_at,
			nodes: $nodes,
			edges: $edges,
			attrs: $attrs
		})
	`
	cypherCreateNodes = `
		MATCH (s:Snapshot {id: $id})
		UNWIND $items AS item
		CREATE (s)-[:CONTAINS]->(:DevNode {key: item.key, attrs: item.attrs})
	`
	cypherCreateEdges = `
		MATCH (s:Snapshot {id: $id})
		UNWIND $items AS item
		MATCH (s)-[:CONTAINS]->(a:DevNode {key: item.source})
		MATCH (s)-[:CONTAINS]->(b:DevNode {key: item.target})
		CREATE (a)-[:TOPOLOGY {attrs: item.attrs}]->(b)
	`
	cypherLoadSnapshot = `
		MATCH (s:Snapshot {name: $name})
		RETURN s.attrs AS attrs
	`
	cypherLoadNodes = `
		MATCH (:Snapshot {name: $name})-[:CONTAINS]->(n:DevNode)
		RETURN n.key AS key, n.attrs AS attrs
		ORDER BY key
	`
	cypherLoadEdges = `
		MATCH (s:Snapshot {name: $name})-[:CONTAINS]->(a:DevNode)-[r:TOPOLOGY]->(b:DevNode)<-[:CONTAINS]-(s)
		RETURN a.key AS source, b.key AS target, r.attrs AS attrs
		ORDER BY source, target
	`
	cypherListSnapshots = `
		MATCH (s:Snapshot)
		RETURN s.id AS id, s.name AS name, s.nodes AS nodes, s.edges AS edges, s.created_at AS created_at
		ORDER BY name
	`
)

// StoreConfig holds configuration for the Store.
type StoreConfig struct {
	Logger *slog.Logger
	Neo4j  Client
	// Clock stamps new snapshots; nil means the real clock.
	Clock clockwork.Clock
}

func (cfg *StoreConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Neo4j == nil {
		return errors.New("neo4j client is required")
	}
	return nil
}

// Store implements topologystore.Store on a Neo4j database.
type Store struct {
	log   *slog.Logger
	cfg   StoreConfig
	clock clockwork.Clock
}

var _ topologystore.Store = (*Store)(nil)

// NewStore creates a new Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{log: cfg.Logger, cfg: cfg, clock: clock}, nil
}

func run(ctx context.Context, tx Transaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func collect(ctx context.Context, tx Transaction, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

func nodeItems(g *graph.Graph) ([]map[string]any, error) {
	items := make([]map[string]any, 0, g.Len())
	for _, n := range g.Nodes() {
		attrs, _ := g.Node(n)
		s, err := jsongraph.MarshalAttrs(attrs)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n, err)
		}
		items = append(items, map[string]any{"key": n, "attrs": s})
	}
	return items, nil
}

func edgeItems(g *graph.Graph) ([]map[string]any, error) {
	items := make([]map[string]any, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		attrs, _ := g.Edge(e.Source, e.Target)
		s, err := jsongraph.MarshalAttrs(attrs)
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", e, err)
		}
		items = append(items, map[string]any{"source": e.Source, "target": e.Target, "attrs": s})
	}
	return items, nil
}

// Save replaces the snapshot called name with g in a single write
// transaction, so readers see either the old snapshot or the new one.
func (s *Store) Save(ctx context.Context, name string, g *graph.Graph) (topologystore.Snapshot, error) {
	snap := topologystore.NewSnapshot(name, g, s.clock.Now())

	graphAttrs, err := jsongraph.MarshalAttrs(g.Attrs())
	if err != nil {
		return topologystore.Snapshot{}, err
	}
	nodes, err := nodeItems(g)
	if err != nil {
		return topologystore.Snapshot{}, err
	}
	edges, err := edgeItems(g)
	if err != nil {
		return topologystore.Snapshot{}, err
	}

	session, err := s.cfg.Neo4j.Session(ctx)
	if err != nil {
		return topologystore.Snapshot{}, fmt.Errorf("failed to create Neo4j session: %w", err)
	}
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		if err := run(ctx, tx, cypherDeleteSnapshot, map[string]any{"name": name}); err != nil {
			return nil, fmt.Errorf("failed to delete old snapshot: %w", err)
		}
		err := run(ctx, tx, cypherCreateSnapshot, map[string]any{
			"id":         snap.ID.String(),
			"name":       name,
			"created_at": snap.CreatedAt,
			"nodes":      int64(snap.Nodes),
			"edges":      int64(snap.Edges),
			"attrs":      graphAttrs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create snapshot: %w", err)
		}
		if len(nodes) > 0 {
			if err := run(ctx, tx, cypherCreateNodes, map[string]any{"id": snap.ID.String(), "items": nodes}); err != nil {
				return nil, fmt.Errorf("failed to create nodes: %w", err)
			}
		}
		if len(edges) > 0 {
			if err := run(ctx, tx, cypherCreateEdges, map[string]any{"id": snap.ID.String(), "items": edges}); err != nil {
				return nil, fmt.Errorf("failed to create edges: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return topologystore.Snapshot{}, fmt.Errorf("failed to save snapshot %q: %w", name, err)
	}

	s.log.Info("Saved snapshot.", "name", name, "id", snap.ID, "nodes", snap.Nodes, "edges", snap.Edges)
	return snap, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	}
	return 0
}

// Load reads the snapshot called name back into a graph.
func (s *Store) Load(ctx context.Context, name string) (*graph.Graph, error) {
	session, err := s.cfg.Neo4j.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j session: %w", err)
	}
	defer session.Close(ctx)

	params := map[string]any{"name": name}
	result, err := session.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		roots, err := collect(ctx, tx, cypherLoadSnapshot, params)
		if err != nil {
			return nil, err
		}
		if len(roots) == 0 {
			return nil, fmt.Errorf("%w: %q", topologystore.ErrNotFound, name)
		}

		g := graph.New()
		raw, _ := roots[0].Get("attrs")
		attrs, err := jsongraph.UnmarshalAttrs(asString(raw))
		if err != nil {
			return nil, fmt.Errorf("graph attributes: %w", err)
		}
		g.Attrs().Update(attrs)

		nodes, err := collect(ctx, tx, cypherLoadNodes, params)
		if err != nil {
			return nil, err
		}
		for _, record := range nodes {
			key, _ := record.Get("key")
			raw, _ := record.Get("attrs")
			attrs, err := jsongraph.UnmarshalAttrs(asString(raw))
			if err != nil {
				return nil, fmt.Errorf("node %v: %w", key, err)
			}
			g.AddNode(asString(key), attrs)
		}

		edges, err := collect(ctx, tx, cypherLoadEdges, params)
		if err != nil {
			return nil, err
		}
		for _, record := range edges {
			source, _ := record.Get("source")
			target, _ := record.Get("target")
			raw, _ := record.Get("attrs")
			attrs, err := jsongraph.UnmarshalAttrs(asString(raw))
			if err != nil {
				return nil, fmt.Errorf("edge %v -> %v: %w", source, target, err)
			}
			g.AddEdge(asString(source), asString(target), attrs)
		}
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*graph.Graph), nil
}

// List returns the stored snapshots sorted by name.
func (s *Store) List(ctx context.Context) ([]topologystore.Snapshot, error) {
	session, err := s.cfg.Neo4j.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j session: %w", err)
	}
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		records, err := collect(ctx, tx, cypherListSnapshots, nil)
		if err != nil {
			return nil, err
		}

		snaps := make([]topologystore.Snapshot, 0, len(records))
		for _, record := range records {
			id, _ := record.Get("id")
			name, _ := record.Get("name")
			nodes, _ := record.Get("nodes")
			edges, _ := record.Get("edges")
			createdAt, _ := record.Get("created_at")

			parsed, err := uuid.Parse(asString(id))
			if err != nil {
				return nil, fmt.Errorf("snapshot %v: bad id: %w", name, err)
			}
			at, _ := createdAt.(time.Time)
			snaps = append(snaps, topologystore.Snapshot{
				ID:        parsed,
				Name:      asString(name),
				Nodes:     int(asInt64(nodes)),
				Edges:     int(asInt64(edges)),
				CreatedAt: at,
			})
		}
		return snaps, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]topologystore.Snapshot), nil
}
