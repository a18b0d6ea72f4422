// Package query answers questions about a device topology graph that need
// more than a walk of it, rendering the answers as HTML.
package query

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/graph"
)

// ByEnclosuresKey selects the enclosure grouping query.
const ByEnclosuresKey = "BY_ENCLOSURES"

// ErrUnknownQuery is returned by Process for a key not in Keys.
var ErrUnknownQuery = errors.New("unknown query")

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/*.html.tmpl"),
)

type entry struct {
	run      func(g *graph.Graph) (any, error)
	template string
}

var table = map[string]entry{
	ByEnclosuresKey: {
		run:      func(g *graph.Graph) (any, error) { return ByEnclosures(g) },
		template: "enclosures.html.tmpl",
	},
}

// Keys lists the queries Process knows, sorted.
func Keys() []string {
	return slices.Sorted(maps.Keys(table))
}

// Process runs the query named key on g and writes the result to w as an
// HTML document.
func Process(ctx context.Context, w io.Writer, g *graph.Graph, key string) error {
	e, ok := table[key]
	if !ok {
		return fmt.Errorf("%w %q, want one of %s", ErrUnknownQuery, key, strings.Join(Keys(), ", "))
	}
	ctxlog.FromContext(ctx).Debug("Running query.", "query", key, "graph", g.Name())

	result, err := e.run(g)
	if err != nil {
		return fmt.Errorf("query %s: %w", key, err)
	}
	return templates.ExecuteTemplate(w, e.template, result)
}
