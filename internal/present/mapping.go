package present

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/iso"
)

// NoIsomorphism is printed in place of a mapping when there is none.
const NoIsomorphism = "No isomorphism discovered."

// MappingRow pairs the display values of a node and its image.
type MappingRow struct {
	Left, Right string
}

// MappingRows renders m with get, sorted by the left value.
func MappingRows(g1, g2 *graph.Graph, m iso.Mapping, get Getter) []MappingRow {
	rows := make([]MappingRow, 0, len(m))
	for _, left := range m.Keys() {
		a1, _ := g1.Node(left)
		a2, _ := g2.Node(m[left])
		l, _ := get(a1)
		r, _ := get(a2)
		rows = append(rows, MappingRow{Left: l, Right: r})
	}
	slices.SortFunc(rows, func(a, b MappingRow) int {
		return cmp.Or(cmp.Compare(a.Left, b.Left), cmp.Compare(a.Right, b.Right))
	})
	return rows
}

// PrintMapping prints the pairs of m as two columns, GRAPH 1 on the left
// and GRAPH 2 on the right. ok false means there was no mapping to print.
func PrintMapping(w io.Writer, g1, g2 *graph.Graph, m iso.Mapping, ok bool) error {
	if !ok {
		_, err := fmt.Fprintln(w, NoIsomorphism)
		return err
	}
	table := newTable(w, []string{"GRAPH 1", "GRAPH 2"}, []bool{false, true})
	for _, row := range MappingRows(g1, g2, m, Name) {
		table.Append([]string{row.Left, row.Right})
	}
	table.Render()
	return nil
}
