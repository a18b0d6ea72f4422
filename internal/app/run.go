package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vk/devdag/internal/build"
	"github.com/vk/devdag/internal/compare"
	"github.com/vk/devdag/internal/ctxlog"
	"github.com/vk/devdag/internal/device/sysfs"
	"github.com/vk/devdag/internal/diff"
	"github.com/vk/devdag/internal/graph"
	"github.com/vk/devdag/internal/iso"
	"github.com/vk/devdag/internal/jsongraph"
	"github.com/vk/devdag/internal/match"
	"github.com/vk/devdag/internal/present"
	"github.com/vk/devdag/internal/query"
	"github.com/vk/devdag/internal/vocab"
)

// ResultError reports a comparison whose graphs were not identical. Its
// code is the comparison ordinal.
type ResultError struct {
	Result compare.Result
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("graphs are %s", e.Result)
}

// Code is the process exit code for the result.
func (e *ResultError) Code() int {
	return int(e.Result)
}

// Run executes the configured command.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.cfg.Command, "args", a.cfg.Args)

	defer func() {
		if a.cfg.MetricsTextfile == "" {
			return
		}
		if werr := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); werr != nil {
			a.logger.Error("Failed to write metrics.", "path", a.cfg.MetricsTextfile, "error", werr)
			if err == nil {
				err = fmt.Errorf("failed to write metrics: %w", werr)
			}
		}
	}()
	defer a.close(ctx)
	defer a.metrics.Observe(a.cfg.Command, time.Now())

	args := a.cfg.Args
	switch a.cfg.Command {
	case CmdPrint:
		err = a.print(ctx, args[0])
	case CmdDot:
		err = a.dot(ctx, args[0])
	case CmdDiff:
		err = a.diff(ctx, args[0], args[1])
	case CmdCompare:
		err = a.compare(ctx, args[0], args[1])
	case CmdIso:
		err = a.iso(ctx, args[0], args[1])
	case CmdQuery:
		err = a.query(ctx, args[0])
	case CmdGenerate:
		err = a.generate(ctx)
	case CmdSnapshot:
		err = a.snapshot(ctx, args[0], args[1:])
	default:
		err = fmt.Errorf("unknown command %q", a.cfg.Command)
	}

	a.logger.Debug("App.Run method finished.", "command", a.cfg.Command)
	return err
}

func (a *App) color() bool {
	switch a.cfg.Color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	return isTerminal(a.outW)
}

func readGraph(ctx context.Context, path string) (*graph.Graph, error) {
	g, err := jsongraph.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Read graph.", "path", path, "nodes", g.Len(), "edges", g.EdgeCount())
	return g, nil
}

func readPair(ctx context.Context, left, right string) (*graph.Graph, *graph.Graph, error) {
	g1, err := readGraph(ctx, left)
	if err != nil {
		return nil, nil, err
	}
	g2, err := readGraph(ctx, right)
	if err != nil {
		return nil, nil, err
	}
	return g1, g2, nil
}

// writeGraph writes g as JSON to the --out file, or to the output stream
// when none was given.
func (a *App) writeGraph(ctx context.Context, g *graph.Graph) error {
	if a.cfg.OutPath == "" {
		return jsongraph.Write(a.outW, g)
	}
	if err := jsongraph.WriteFile(a.cfg.OutPath, g); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Wrote graph.", "path", a.cfg.OutPath, "nodes", g.Len(), "edges", g.EdgeCount())
	return nil
}

func (a *App) print(ctx context.Context, path string) error {
	g, err := readGraph(ctx, path)
	if err != nil {
		return err
	}
	return present.Table(a.outW, g, present.Options{Color: a.color()})
}

func (a *App) dot(ctx context.Context, path string) error {
	g, err := readGraph(ctx, path)
	if err != nil {
		return err
	}
	return present.WriteDOT(a.outW, g)
}

// nodeIdentity matches nodes that agree on identifier and node type.
var nodeIdentity = match.New([]string{vocab.KeyIdentifier, vocab.KeyNodeType}, vocab.Node)

func (a *App) diff(ctx context.Context, left, right string) error {
	mode, err := diff.ParseMode(a.cfg.DiffMode)
	if err != nil {
		return err
	}
	g1, g2, err := readPair(ctx, left, right)
	if err != nil {
		return err
	}

	out, err := diff.Diff(ctx, mode, g1, g2, nodeIdentity.NodeMatch, diff.SameEdge)
	if err != nil {
		return fmt.Errorf("diff failed: %w", err)
	}
	a.metrics.Diffs.WithLabelValues(mode.String()).Inc()
	if p := a.notifier(ctx); p != nil {
		p.Diff(ctx, left, right, mode.String(), out)
	}

	if a.cfg.OutPath != "" {
		return a.writeGraph(ctx, out)
	}
	return present.Table(a.outW, out, present.Options{Color: a.color()})
}

func (a *App) compare(ctx context.Context, left, right string) error {
	g1, g2, err := readPair(ctx, left, right)
	if err != nil {
		return err
	}

	result, err := a.comparator.Compare(ctx, g1, g2)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}
	a.metrics.Comparisons.WithLabelValues(result.String()).Inc()
	if p := a.notifier(ctx); p != nil {
		p.Compare(ctx, left, right, result.String(), int(result))
	}

	fmt.Fprintln(a.outW, result)
	if result != compare.Identical {
		return &ResultError{Result: result}
	}
	return nil
}

func (a *App) iso(ctx context.Context, left, right string) error {
	g1, g2, err := readPair(ctx, left, right)
	if err != nil {
		return err
	}

	m, ok, err := a.comparator.Smallest(g1, g2, iso.DefaultLimit)
	if err != nil {
		return fmt.Errorf("isomorphism search failed: %w", err)
	}
	if ok {
		a.metrics.Mappings.Inc()
	}
	return present.PrintMapping(a.outW, g1, g2, m, ok)
}

func (a *App) query(ctx context.Context, path string) error {
	g, err := readGraph(ctx, path)
	if err != nil {
		return err
	}
	return query.Process(ctx, a.outW, g, a.cfg.QueryType)
}

func (a *App) generate(ctx context.Context) error {
	src := a.source
	if src == nil {
		s, err := sysfs.New(a.cfg.SysfsRoot, a.cfg.UdevRoot)
		if err != nil {
			return err
		}
		src = s
	}

	name, err := os.Hostname()
	if err != nil {
		name = "localhost"
	}
	g, err := build.Generate(ctx, src, name, a.model, a.builders)
	if err != nil {
		return fmt.Errorf("failed to generate graph: %w", err)
	}
	return a.writeGraph(ctx, g)
}
