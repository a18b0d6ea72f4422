// Package inmemorytopology provides a simple, thread-safe, in-memory
// implementation of the topologystore.Store interface.
package inmemorytopology

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/jsongraph"
	"github.com/vk/devdag/internal/topologystore"
)

type entry struct {
	snapshot topologystore.Snapshot
	// data is the graph in node-link JSON, so later changes to the saved
	// graph do not reach the store.
	data string
}

// Store implements the topologystore.Store interface using a map and a
// mutex for thread-safe concurrent access.
type Store struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	entries map[string]entry
}

// New creates a new, empty in-memory snapshot store. A nil clock means the
// real clock.
func New(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock:   clock,
		entries: make(map[string]entry),
	}
}

var _ topologystore.Store = (*Store)(nil)

// Save stores g under name.
func (s *Store) Save(ctx context.Context, name string, g *graph.Graph) (topologystore.Snapshot, error) {
	data, err := jsongraph.AsString(g)
	if err != nil {
		return topologystore.Snapshot{}, fmt.Errorf("saving snapshot %q: %w", name, err)
	}
	snap := topologystore.NewSnapshot(name, g, s.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = entry{snapshot: snap, data: data}
	return snap, nil
}

// Load returns the graph saved under name.
func (s *Store) Load(ctx context.Context, name string) (*graph.Graph, error) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", topologystore.ErrNotFound, name)
	}
	return jsongraph.FromString(e.data)
}

// List returns all snapshots sorted by name.
func (s *Store) List(ctx context.Context) ([]topologystore.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]topologystore.Snapshot, 0, len(s.entries))
	for _, name := range slices.Sorted(maps.Keys(s.entries)) {
		out = append(out, s.entries[name].snapshot)
	}
	return out, nil
}
