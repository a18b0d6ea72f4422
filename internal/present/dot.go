package present

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

func statusColor(status attr.Value) string {
	switch {
	case vocab.Added.Equal(status):
		return "green"
	case vocab.Removed.Equal(status):
		return "red"
	}
	return ""
}

type dotAttrs []string

func (d *dotAttrs) add(key, value string) {
	if value != "" {
		*d = append(*d, key+"="+strconv.Quote(value))
	}
}

func (d dotAttrs) String() string {
	if len(d) == 0 {
		return ""
	}
	return " [" + strings.Join(d, ", ") + "]"
}

func nodeAttrs(attrs attr.Map) dotAttrs {
	var d dotAttrs
	label, ok := Name(attrs)
	if !ok {
		label, _ = Identifier(attrs)
	}
	d.add("label", label)
	if vocab.WWN.Equal(attrs[vocab.KeyNodeType]) {
		d.add("shape", "box")
	}
	d.add("color", statusColor(attrs[vocab.KeyDiffStatus]))
	return d
}

func edgeAttrs(attrs attr.Map) dotAttrs {
	var d dotAttrs
	switch et := attrs[vocab.KeyEdgeType]; {
	case vocab.Partition.Equal(et):
		d.add("style", "dashed")
	case vocab.Congruence.Equal(et):
		d.add("style", "dotted")
	case vocab.EnclosureBay.Equal(et):
		if id, ok := attrs[vocab.KeyIdentifier].(attr.String); ok {
			d.add("label", string(id))
		}
	}
	d.add("color", statusColor(attrs[vocab.KeyDiffStatus]))
	return d
}

// WriteDOT renders g in the graphviz DOT language, laid out left to right.
// Drives are drawn as boxes, partition edges dashed and congruence edges
// dotted. Added elements are green and removed ones red.
func WriteDOT(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)
	name := g.Name()
	if name == "" {
		name = "G"
	}
	fmt.Fprintf(bw, "digraph %s {\n", strconv.Quote(name))
	fmt.Fprintln(bw, "\trankdir=LR;")
	for _, n := range g.Nodes() {
		attrs, _ := g.Node(n)
		fmt.Fprintf(bw, "\t%s%s;\n", strconv.Quote(n), nodeAttrs(attrs))
	}
	for _, e := range g.Edges() {
		attrs, _ := g.Edge(e.Source, e.Target)
		fmt.Fprintf(bw, "\t%s -> %s%s;\n", strconv.Quote(e.Source), strconv.Quote(e.Target), edgeAttrs(attrs))
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
