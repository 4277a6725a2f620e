// Package main is the entry point for the actionhistory tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/dshills/actionhistory/internal/app"
	"github.com/dshills/actionhistory/internal/inspect"
	"github.com/dshills/actionhistory/internal/playbook"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// cliOptions are the flags that select what run does.
type cliOptions struct {
	app      app.Options
	playbook string
	dump     bool
	query    string
}

func main() {
	os.Exit(run())
}

func run() int {
	cli := parseFlags()

	// Create application
	application, err := app.New(cli.app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	// Ensure cleanup on all exit paths
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: shutdown: %v\n", err)
		}
	}()

	// Handle signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case cli.playbook != "":
		report, err := application.RunPlaybook(ctx, cli.playbook)
		if report != nil {
			printReport(os.Stdout, report)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	case cli.dump || cli.query != "":
		// Inspect the state left by -script alone.
	default:
		return runInteractive(ctx, application)
	}

	if cli.dump {
		doc, err := application.Snapshot()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("%s\n", inspect.Pretty(doc))
	}
	if cli.query != "" {
		raw, ok, err := application.Query(cli.query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: no match for %q\n", cli.query)
			return 1
		}
		fmt.Println(raw)
	}

	return 0
}

// runInteractive starts the terminal front end.
func runInteractive(ctx context.Context, application *app.Application) int {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal; use -playbook for scripted runs")
		return 1
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}

	if err := application.RunInteractive(ctx, screen); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// printReport writes one line per playbook step.
func printReport(w io.Writer, report *playbook.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "playbook %s (%s)\n", report.Name, report.Duration.Round(time.Microsecond))
	for _, s := range report.Steps {
		status := "ok"
		if s.Err != nil {
			status = s.Err.Error()
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\tsize=%d\tposition=%d\t%s\n",
			s.Index, s.Op, s.Action, s.Size, s.Position, status)
	}
	st := report.Stats
	fmt.Fprintf(tw, "executed=%d undone=%d redone=%d failed=%d evicted=%d\n",
		st.Executed, st.Undone, st.Redone, st.Failed, st.Evicted)
	_ = tw.Flush()
}

func parseFlags() cliOptions {
	var cli cliOptions
	var showVersion bool
	var showHelp bool

	flag.StringVar(&cli.app.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&cli.app.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.BoolVar(&cli.app.Debug, "debug", false, "Enable debug mode")
	flag.BoolVar(&cli.app.Debug, "d", false, "Enable debug mode (shorthand)")
	flag.StringVar(&cli.app.LogLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	flag.BoolVar(&cli.app.LogJSON, "log-json", false, "Write logs as JSON")
	flag.BoolVar(&cli.app.Watch, "watch", false, "Reload the config file when it changes")
	flag.BoolVar(&cli.app.Watch, "w", false, "Reload the config file when it changes (shorthand)")
	flag.StringVar(&cli.app.ScriptPath, "script", "", "Lua file of action definitions to load")
	flag.StringVar(&cli.app.ScriptPath, "s", "", "Lua file of action definitions to load (shorthand)")
	flag.StringVar(&cli.playbook, "playbook", "", "Run a YAML playbook instead of the interactive view")
	flag.StringVar(&cli.playbook, "p", "", "Run a YAML playbook (shorthand)")
	flag.BoolVar(&cli.dump, "dump", false, "Print the history as JSON when done")
	flag.StringVar(&cli.query, "query", "", "Print the result of a JSON path query on the history when done")
	flag.StringVar(&cli.query, "q", "", "JSON path query (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "actionhistory - undo/redo history driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage: actionhistory [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  actionhistory                          Interactive counter demo\n")
		fmt.Fprintf(os.Stderr, "  actionhistory -s actions.lua           Interactive, with scripted actions on keys 1-9\n")
		fmt.Fprintf(os.Stderr, "  actionhistory -p run.yaml -dump        Run a playbook and print the history\n")
		fmt.Fprintf(os.Stderr, "  actionhistory -p run.yaml -q store.count\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("actionhistory %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	// Validate log level
	switch cli.app.LogLevel {
	case "", "debug", "info", "warn", "error":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", cli.app.LogLevel)
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments: %v\n", flag.Args())
		os.Exit(1)
	}

	return cli
}
