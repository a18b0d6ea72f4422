package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

type emitted struct {
	event   string
	payload any
}

type fakeEmitter struct {
	events []emitted
}

func (f *fakeEmitter) Emit(event string, payload any) {
	f.events = append(f.events, emitted{event, payload})
}

func diffGraph() *graph.Graph {
	g := graph.New()
	g.AddNode("a", attr.Map{vocab.KeyDiffStatus: vocab.Added})
	g.AddNode("b", attr.Map{vocab.KeyDiffStatus: vocab.Removed})
	g.AddNode("c", nil)
	g.AddEdge("a", "c", attr.Map{vocab.KeyDiffStatus: vocab.Added})
	g.AddEdge("c", "b", nil)
	return g
}

func TestCount(t *testing.T) {
	added, removed := Count(diffGraph())
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)
}

func TestPublisher(t *testing.T) {
	e := &fakeEmitter{}
	p := New(e)
	ctx := context.Background()

	p.Compare(ctx, "before.json", "after.json", "EQUIVALENT", 1)
	p.Diff(ctx, "before.json", "after.json", "full", diffGraph())
	p.Close()

	require.Len(t, e.events, 2)
	assert.Equal(t, EventCompare, e.events[0].event)
	assert.Equal(t, map[string]any{
		"left": "before.json", "right": "after.json", "result": "EQUIVALENT", "code": 1,
	}, e.events[0].payload)

	assert.Equal(t, EventDiff, e.events[1].event)
	assert.Equal(t, map[string]any{
		"left": "before.json", "right": "after.json", "mode": "full", "added": 2, "removed": 1,
	}, e.events[1].payload)
}

func TestDial_BadURL(t *testing.T) {
	_, err := Dial(context.Background(), Options{URL: "://nope"})
	assert.ErrorContains(t, err, "failed to parse URL")
}
