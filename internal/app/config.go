package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/devdag/internal/diff"
	"github.com/vk/devdag/internal/query"
)

// Commands understood by App.Run.
const (
	CmdPrint    = "print"
	CmdDot      = "dot"
	CmdDiff     = "diff"
	CmdCompare  = "compare"
	CmdIso      = "iso"
	CmdQuery    = "query"
	CmdGenerate = "generate"
	CmdSnapshot = "snapshot"
)

// Snapshot subcommands.
const (
	SnapshotSave = "save"
	SnapshotLoad = "load"
	SnapshotList = "list"
)

// Color choices.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// arity is the number of positional arguments each command takes.
var arity = map[string]int{
	CmdPrint:    1,
	CmdDot:      1,
	CmdDiff:     2,
	CmdCompare:  2,
	CmdIso:      2,
	CmdQuery:    1,
	CmdGenerate: 0,
}

var snapshotArity = map[string]int{
	SnapshotSave: 2,
	SnapshotLoad: 1,
	SnapshotList: 0,
}

// Neo4jConfig locates the database snapshots are kept in.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command string
	Args    []string

	ConfigPath string // .hcl or .json domain configuration

	LogFormat       string
	LogLevel        string
	MetricsTextfile string
	NotifyURL       string
	Neo4j           Neo4jConfig

	DiffMode  string
	QueryType string
	OutPath   string
	SysfsRoot string
	UdevRoot  string
	Color     string // auto, always or never
}

// Commands lists the command names, sorted.
func Commands() []string {
	names := []string{CmdSnapshot}
	for name := range arity {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Command == "" {
		return nil, errors.New("a command is required")
	}

	if cfg.Command == CmdSnapshot {
		if len(cfg.Args) == 0 {
			return nil, errors.New("snapshot: want a subcommand: save, load or list")
		}
		sub := cfg.Args[0]
		n, ok := snapshotArity[sub]
		if !ok {
			return nil, fmt.Errorf("snapshot: unknown subcommand %q", sub)
		}
		if len(cfg.Args)-1 != n {
			return nil, fmt.Errorf("snapshot %s: want %d arguments, got %d", sub, n, len(cfg.Args)-1)
		}
		if cfg.Neo4j.URI == "" {
			return nil, errors.New("snapshot: --neo4j-uri is required")
		}
	} else {
		n, ok := arity[cfg.Command]
		if !ok {
			return nil, fmt.Errorf("unknown command %q, want one of %s", cfg.Command, strings.Join(Commands(), ", "))
		}
		if len(cfg.Args) != n {
			return nil, fmt.Errorf("%s: want %d arguments, got %d", cfg.Command, n, len(cfg.Args))
		}
	}

	if cfg.DiffMode == "" {
		cfg.DiffMode = diff.ModeFull.String()
	}
	if _, err := diff.ParseMode(cfg.DiffMode); err != nil {
		return nil, err
	}

	if cfg.QueryType == "" {
		cfg.QueryType = query.ByEnclosuresKey
	}
	if !slices.Contains(query.Keys(), cfg.QueryType) {
		return nil, fmt.Errorf("unknown query type %q, want one of %s", cfg.QueryType, strings.Join(query.Keys(), ", "))
	}

	switch cfg.Color {
	case "":
		cfg.Color = ColorAuto
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return nil, fmt.Errorf("invalid color %q: must be 'auto', 'always' or 'never'", cfg.Color)
	}

	return &cfg, nil
}
