package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mgio/mgio-go/cmd/mgio/commands"
)

const logUsage = `mgio log - View and analyze .mlog event captures

Usage:
  mgio log <command> [flags] <file.mlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "mgio log <command> -help" for more information about a command.
`

func runLog(args []string) {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, logUsage)
		os.Exit(1)
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "view":
		runLogView(args)
	case "export":
		runLogExport(args)
	case "filter":
		runLogFilter(args)
	case "stats":
		runLogStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(logUsage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown log command: %s\n", cmd)
		fmt.Fprint(os.Stderr, logUsage)
		os.Exit(1)
	}
}

func logFlagSet(name, help string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, help)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}
	return fs
}

// logPath parses args and returns the log file argument.
func logPath(fs *flag.FlagSet, args []string) string {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

// filterFlags registers the event selection flags shared by view and
// filter.
func filterFlags(fs *flag.FlagSet) *commands.FilterOptions {
	var o commands.FilterOptions
	fs.StringVar(&o.SessionID, "session", "", "Filter by session ID")
	fs.StringVar(&o.Rank, "rank", "", "Filter by partition rank")
	fs.StringVar(&o.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&o.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&o.Layer, "layer", "", "Filter by layer (frame, record, reconcile)")
	fs.StringVar(&o.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&o.Category, "category", "", "Filter by category, comma-separated (data, section, identity, error)")
	return &o
}

func runLogView(args []string) {
	fs := logFlagSet("view", `mgio log view - View log file in human-readable format

Usage:
  mgio log view [flags] <file.mlog>
`)
	opts := filterFlags(fs)
	path := logPath(fs, args)

	if err := commands.RunView(path, *opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runLogExport(args []string) {
	fs := logFlagSet("export", `mgio log export - Export log file to JSON or CSV format

Usage:
  mgio log export [flags] <file.mlog>
`)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	path := logPath(fs, args)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runLogFilter(args []string) {
	fs := logFlagSet("filter", `mgio log filter - Filter log file and write to new file

Usage:
  mgio log filter [flags] <file.mlog>
`)
	opts := filterFlags(fs)
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	path := logPath(fs, args)

	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	n, err := commands.RunFilter(path, *opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, opts.Output)
}

func runLogStats(args []string) {
	fs := logFlagSet("stats", `mgio log stats - Show statistics about the log file

Usage:
  mgio log stats <file.mlog>
`)
	path := logPath(fs, args)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
