// Package jsongraph reads and writes graphs in node-link JSON:
//
//	{
//	  "directed": true,
//	  "multigraph": false,
//	  "graph": [["name", "host"]],
//	  "nodes": [{"id": "/devices/.../sda", "nodetype": "DEVICE_PATH", ...}],
//	  "links": [{"source": "/devices/.../sda", "target": "0x5000...", "edgetype": "SPINDLE"}]
//	}
//
// Enumeration-valued attributes (nodetype, edgetype, diffstatus) are written
// by name and interned again on read, so values read back compare equal to
// the ones written. A name that is not a member reads as null. Links may
// also refer to nodes by their index in "nodes".
package jsongraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

const (
	keyID     = "id"
	keySource = "source"
	keyTarget = "target"
)

// enumKeys are the attribute keys whose values are enumeration members.
var enumKeys = []string{vocab.KeyNodeType, vocab.KeyEdgeType, vocab.KeyDiffStatus}

type document struct {
	Directed   bool             `json:"directed"`
	Multigraph bool             `json:"multigraph"`
	Graph      [][]any          `json:"graph"`
	Nodes      []map[string]any `json:"nodes"`
	Links      []map[string]any `json:"links"`
}

// Stringize returns a shallow copy of attrs with enumeration members
// replaced by their names.
func Stringize(attrs attr.Map) attr.Map {
	out := make(attr.Map, len(attrs))
	for k, v := range attrs {
		if slices.Contains(enumKeys, k) && v != nil {
			if _, isNull := v.(attr.Null); !isNull {
				v = attr.String(v.String())
			}
		}
		out[k] = v
	}
	return out
}

// Destringize returns a shallow copy of attrs with enumeration names under
// the enumeration keys interned. Unknown names become null.
func Destringize(attrs attr.Map) attr.Map {
	out := make(attr.Map, len(attrs))
	for k, v := range attrs {
		if s, isString := v.(attr.String); isString {
			if member, ok, known := vocab.Intern(k, string(s)); ok {
				v = attr.Nil
				if known {
					v = member
				}
			}
		}
		out[k] = v
	}
	return out
}

func encodeAttrs(attrs attr.Map) map[string]any {
	return attr.ToAny(Stringize(attrs)).(map[string]any)
}

func decodeAttrs(raw map[string]any, skip ...string) (attr.Map, error) {
	out := make(attr.Map, len(raw))
	for k, x := range raw {
		if slices.Contains(skip, k) {
			continue
		}
		v, err := attr.FromAny(x)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = v
	}
	return Destringize(out), nil
}

// MarshalAttrs encodes a single attribute map as a JSON object, with
// enumeration members written by name.
func MarshalAttrs(attrs attr.Map) (string, error) {
	b, err := json.Marshal(encodeAttrs(attrs))
	if err != nil {
		return "", fmt.Errorf("encoding attributes: %w", err)
	}
	return string(b), nil
}

// UnmarshalAttrs decodes an attribute map written by MarshalAttrs.
func UnmarshalAttrs(s string) (attr.Map, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding attributes: %w", err)
	}
	return decodeAttrs(raw)
}

func toDocument(g *graph.Graph) *document {
	doc := &document{Directed: true, Graph: [][]any{}, Nodes: []map[string]any{}, Links: []map[string]any{}}

	gattrs := g.Attrs()
	for _, k := range gattrs.Keys() {
		doc.Graph = append(doc.Graph, []any{k, attr.ToAny(gattrs[k])})
	}
	for _, id := range g.Nodes() {
		attrs, _ := g.Node(id)
		rec := encodeAttrs(attrs)
		rec[keyID] = id
		doc.Nodes = append(doc.Nodes, rec)
	}
	for _, e := range g.Edges() {
		attrs, _ := g.Edge(e.Source, e.Target)
		rec := encodeAttrs(attrs)
		rec[keySource] = e.Source
		rec[keyTarget] = e.Target
		doc.Links = append(doc.Links, rec)
	}
	return doc
}

// Write encodes g to w as indented node-link JSON.
func Write(w io.Writer, g *graph.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toDocument(g)); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	return nil
}

// AsString encodes g as compact node-link JSON.
func AsString(g *graph.Graph) (string, error) {
	b, err := json.Marshal(toDocument(g))
	if err != nil {
		return "", fmt.Errorf("encoding graph: %w", err)
	}
	return string(b), nil
}

// Read decodes a node-link JSON graph from r.
func Read(r io.Reader) (*graph.Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	return fromDocument(&doc)
}

// FromString decodes a node-link JSON graph from s.
func FromString(s string) (*graph.Graph, error) {
	return Read(strings.NewReader(s))
}

// ReadFile decodes the node-link JSON graph stored at path.
func ReadFile(path string) (*graph.Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Read(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteFile encodes g to path.
func WriteFile(path string, g *graph.Graph) error {
	var buf bytes.Buffer
	if err := Write(&buf, g); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func fromDocument(doc *document) (*graph.Graph, error) {
	if doc.Multigraph {
		return nil, fmt.Errorf("decoding graph: multigraphs are not supported")
	}
	g := graph.New()

	for i, pair := range doc.Graph {
		if len(pair) != 2 {
			return nil, fmt.Errorf("graph attribute %d: want a [key, value] pair", i)
		}
		k, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("graph attribute %d: key is %T, want string", i, pair[0])
		}
		v, err := attr.FromAny(pair[1])
		if err != nil {
			return nil, fmt.Errorf("graph attribute %q: %w", k, err)
		}
		g.Attrs()[k] = v
	}

	ids := make([]string, len(doc.Nodes))
	for i, rec := range doc.Nodes {
		id, err := nodeKey(rec[keyID])
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		attrs, err := decodeAttrs(rec, keyID)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		ids[i] = id
		g.AddNode(id, attrs)
	}

	for i, rec := range doc.Links {
		source, err := endpoint(rec[keySource], ids)
		if err != nil {
			return nil, fmt.Errorf("link %d source: %w", i, err)
		}
		target, err := endpoint(rec[keyTarget], ids)
		if err != nil {
			return nil, fmt.Errorf("link %d target: %w", i, err)
		}
		attrs, err := decodeAttrs(rec, keySource, keyTarget)
		if err != nil {
			return nil, fmt.Errorf("link %s -> %s: %w", source, target, err)
		}
		g.AddEdge(source, target, attrs)
	}
	return g, nil
}

func nodeKey(x any) (string, error) {
	switch t := x.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case nil:
		return "", fmt.Errorf("missing %q", keyID)
	}
	return "", fmt.Errorf("id is %T, want string", x)
}

// endpoint resolves a link end, given either as a node key or as an index
// into the node list.
func endpoint(x any, ids []string) (string, error) {
	if n, ok := x.(json.Number); ok {
		i, err := strconv.Atoi(n.String())
		if err != nil || i < 0 || i >= len(ids) {
			return "", fmt.Errorf("node index %s out of range", n)
		}
		return ids[i], nil
	}
	return nodeKey(x)
}
