// Package notify publishes comparison and diff results to a socket.io
// server, so dashboards can follow topology changes as they are detected.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

// Event names.
const (
	EventCompare = "topology.compare"
	EventDiff    = "topology.diff"
)

// ConnectTimeout bounds the wait for the server to accept the connection.
const ConnectTimeout = 15 * time.Second

// Emitter sends one event with its payload.
type Emitter interface {
	Emit(event string, payload any)
}

type socketEmitter struct {
	io *socket.Socket
}

func (s socketEmitter) Emit(event string, payload any) {
	s.io.Emit(event, payload)
}

// Options configure the connection made by Dial.
type Options struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
}

// Publisher emits devdag events.
type Publisher struct {
	emitter Emitter
	close   func()
}

// New returns a Publisher sending through e.
func New(e Emitter) *Publisher {
	return &Publisher{emitter: e, close: func() {}}
}

// Dial connects to the socket.io server at opts.URL and waits until the
// connection is accepted.
func Dial(ctx context.Context, opts Options) (*Publisher, error) {
	logger := ctxlog.FromContext(ctx).With("component", "notify", "url", opts.URL)
	logger.Info("Connecting to notification server...")

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		connectChan <- err
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Publisher{emitter: socketEmitter{io: io}, close: func() { io.Disconnect() }}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection")
	case <-time.After(ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for socket.io connection", ConnectTimeout)
	}
}

// Close disconnects from the server.
func (p *Publisher) Close() {
	p.close()
}

// Compare announces the result of comparing two graphs.
func (p *Publisher) Compare(ctx context.Context, left, right, result string, code int) {
	ctxlog.FromContext(ctx).Debug("Emitting event", "event", EventCompare, "result", result)
	p.emitter.Emit(EventCompare, map[string]any{
		"left":   left,
		"right":  right,
		"result": result,
		"code":   code,
	})
}

// Diff announces a diff graph with counts of its marked elements.
func (p *Publisher) Diff(ctx context.Context, left, right, mode string, g *graph.Graph) {
	added, removed := Count(g)
	ctxlog.FromContext(ctx).Debug("Emitting event", "event", EventDiff, "added", added, "removed", removed)
	p.emitter.Emit(EventDiff, map[string]any{
		"left":    left,
		"right":   right,
		"mode":    mode,
		"added":   added,
		"removed": removed,
	})
}

// Count returns how many nodes and edges of g are marked ADDED and REMOVED.
func Count(g *graph.Graph) (added, removed int) {
	tally := func(v attr.Value) {
		switch {
		case vocab.Added.Equal(v):
			added++
		case vocab.Removed.Equal(v):
			removed++
		}
	}
	for _, v := range g.NodeAttributes(vocab.KeyDiffStatus) {
		tally(v)
	}
	for _, v := range g.EdgeAttributes(vocab.KeyDiffStatus) {
		tally(v)
	}
	return added, removed
}
