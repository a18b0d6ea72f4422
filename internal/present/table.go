package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/vk/devdag/internal/attr"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/vocab"
)

const (
	edgeStr = "|-"
	lastStr = "`-"
	// padding separates adjacent columns.
	padding = "  "
)

// Column is one column of a table.
type Column struct {
	Header string
	Get    Getter
	// Right aligns the column's values to the right.
	Right bool
}

// DefaultColumns are the columns Table prints when none are given.
var DefaultColumns = []Column{
	{Header: "NAME", Get: Name},
	{Header: "DEVTYPE", Get: Devtype},
	{Header: "DIFFSTATUS", Get: DiffStatus},
	{Header: "BY-PATH", Get: ByPath},
	{Header: "SIZE", Get: Size, Right: true},
}

// Line is one row of a tree arrangement.
type Line struct {
	Node string
	// Prefix draws the node's place in the tree.
	Prefix string
	// Status is the diff status of the node itself, nil when unmarked.
	Status attr.Value
	Cells  []string
}

// formatEdge marks an edge string for the diff status of the edge it
// draws: ADDED edges are drawn with '+', REMOVED edges are blanked out.
func formatEdge(s string, status attr.Value) string {
	switch {
	case vocab.Added.Equal(status):
		return strings.ReplaceAll(s, "-", "+")
	case vocab.Removed.Equal(status):
		return strings.ReplaceAll(s, "-", " ")
	}
	return s
}

func prefix(g *graph.Graph, info graph.NodeInfo) string {
	if info.Parent == "" {
		return ""
	}
	// Children of a root share its indentation.
	indent := max(info.Depth-1, 0)
	s := edgeStr
	if info.Last {
		s = lastStr
	}
	var status attr.Value
	if attrs, ok := g.Edge(info.Parent, info.Node); ok {
		status = attrs[vocab.KeyDiffStatus]
	}
	return strings.Repeat(" ", indent*len(edgeStr)) + formatEdge(s, status)
}

// Arrange lays out g as a forest rooted at its roots. Siblings are ordered
// by the first column's value. A node reachable along several paths appears
// once under each parent.
func Arrange(g *graph.Graph, columns []Column) ([]Line, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	sortKey := func(n string) string {
		attrs, _ := g.Node(n)
		v, _ := columns[0].Get(attrs)
		return v
	}

	var lines []Line
	for info := range graph.DepthFirst(g, sortKey) {
		attrs, _ := g.Node(info.Node)
		line := Line{
			Node:   info.Node,
			Prefix: prefix(g, info),
			Status: attrs[vocab.KeyDiffStatus],
			Cells:  make([]string, len(columns)),
		}
		for i, c := range columns {
			line.Cells[i], _ = c.Get(attrs)
		}
		line.Cells[0] = line.Prefix + line.Cells[0]
		lines = append(lines, line)
	}
	return lines, nil
}

// Options control table output.
type Options struct {
	Columns []Column
	// Color paints ADDED rows green and REMOVED rows red.
	Color bool
}

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
)

func paint(cells []string, status attr.Value) []string {
	var c *color.Color
	switch {
	case vocab.Added.Equal(status):
		c = addedColor
	case vocab.Removed.Equal(status):
		c = removedColor
	default:
		return cells
	}
	c.EnableColor()
	out := make([]string, len(cells))
	for i, s := range cells {
		out[i] = c.Sprint(s)
	}
	return out
}

func newTable(w io.Writer, headers []string, right []bool) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding(padding)
	table.SetNoWhiteSpace(true)

	aligns := make([]int, len(right))
	for i, r := range right {
		aligns[i] = tablewriter.ALIGN_LEFT
		if r {
			aligns[i] = tablewriter.ALIGN_RIGHT
		}
	}
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment(aligns)
	return table
}

// Table prints g as an indented tree with one row per line of its
// arrangement.
func Table(w io.Writer, g *graph.Graph, opts Options) error {
	columns := opts.Columns
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	lines, err := Arrange(g, columns)
	if err != nil {
		return fmt.Errorf("arranging graph %q: %w", g.Name(), err)
	}

	headers := make([]string, len(columns))
	right := make([]bool, len(columns))
	for i, c := range columns {
		headers[i] = c.Header
		right[i] = c.Right
	}
	table := newTable(w, headers, right)
	for _, l := range lines {
		cells := l.Cells
		if opts.Color {
			cells = paint(cells, l.Status)
		}
		table.Append(cells)
	}
	table.Render()
	return nil
}
