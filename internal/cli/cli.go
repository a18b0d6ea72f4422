package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/vk/devdag/internal/app"
	"github.com/vk/devdag/internal/neo4jstore"
)

// Environment variables that supply flag defaults.
const (
	EnvNeo4jURI      = "DEVDAG_NEO4J_URI"
	EnvNeo4jUser     = "DEVDAG_NEO4J_USER"
	EnvNeo4jPassword = "DEVDAG_NEO4J_PASSWORD"
	EnvNotifyURL     = "DEVDAG_NOTIFY_URL"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) *ExitError {
	return &ExitError{Code: 2, Message: err.Error()}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

const usage = `
devdag - storage device topology graphs: build, compare, diff and render.

Usage:
  devdag [options] <command> [args]

Commands:
  print GRAPH                       Print a graph as an indented table.
  dot GRAPH                         Render a graph in Graphviz DOT.
  diff A B                          Print the diff of two graphs (see --mode, --out).
  compare A B                       Print and exit with 0 IDENTICAL, 1 EQUIVALENT, 2 DIFFERENT.
  iso A B                           Print the smallest isomorphism found between two graphs.
  query GRAPH                       Run a query on a graph and print HTML (see --type).
  generate                          Build a graph of this host's devices (see --sysfs-root, --out).
  snapshot save NAME GRAPH          Store a graph in Neo4j under NAME.
  snapshot load NAME                Print the graph stored under NAME.
  snapshot list                     List stored graphs.

GRAPH, A and B are node-link JSON files.

Options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("devdag", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.SortFlags = false

	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.StringP("config", "c", "", "Path to a .hcl or .json configuration file or directory.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	colorFlag := flagSet.String("color", app.ColorAuto, "Color ADDED and REMOVED rows. Options: 'auto', 'always', 'never'.")
	metricsFlag := flagSet.String("metrics-textfile", "", "Write Prometheus metrics to this file when done.")
	notifyFlag := flagSet.String("notify-url", envOr(EnvNotifyURL, ""), "Socket.io server to announce compare and diff results to (or set "+EnvNotifyURL+").")

	neo4jURIFlag := flagSet.String("neo4j-uri", envOr(EnvNeo4jURI, ""), "Neo4j URI for snapshots, e.g. bolt://localhost:7687 (or set "+EnvNeo4jURI+").")
	neo4jUserFlag := flagSet.String("neo4j-user", envOr(EnvNeo4jUser, "neo4j"), "Neo4j username (or set "+EnvNeo4jUser+").")
	neo4jPasswordFlag := flagSet.String("neo4j-password", envOr(EnvNeo4jPassword, ""), "Neo4j password (or set "+EnvNeo4jPassword+").")
	neo4jDatabaseFlag := flagSet.String("neo4j-database", neo4jstore.DefaultDatabase, "Neo4j database name.")

	modeFlag := flagSet.StringP("mode", "m", "full", "diff: which diff to print. Options: 'full', 'left', 'right'.")
	typeFlag := flagSet.StringP("type", "t", "BY_ENCLOSURES", "query: the query to run.")
	outFlag := flagSet.StringP("out", "o", "", "diff, generate, snapshot load: write the graph as JSON to this file.")
	sysfsFlag := flagSet.String("sysfs-root", "/sys", "generate: the sysfs mount to read devices from.")
	udevFlag := flagSet.String("udev-root", "/run/udev/data", "generate: the udev database directory.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError(err)
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:         flagSet.Arg(0),
		Args:            flagSet.Args()[1:],
		ConfigPath:      *configFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		MetricsTextfile: *metricsFlag,
		NotifyURL:       *notifyFlag,
		Neo4j: app.Neo4jConfig{
			URI:      *neo4jURIFlag,
			User:     *neo4jUserFlag,
			Password: *neo4jPasswordFlag,
			Database: *neo4jDatabaseFlag,
		},
		DiffMode:  strings.ToLower(*modeFlag),
		QueryType: strings.ToUpper(*typeFlag),
		OutPath:   *outFlag,
		SysfsRoot: *sysfsFlag,
		UdevRoot:  *udevFlag,
		Color:     strings.ToLower(*colorFlag),
	})
	if err != nil {
		return nil, false, usageError(err)
	}

	slog.Debug("CLI parser finished successfully.", "command", config.Command)
	return config, false, nil
}
