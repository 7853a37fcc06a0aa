// Command mgio writes, inspects and loads partitioned multilevel mesh dumps.
//
// A dump is a directory holding one stream per partition and a manifest
// with the digest of every stream.
//
// Usage:
//
//	mgio <command> [flags] <args>
//
// Commands:
//
//	gen      Build a sample mesh and write it as a dump
//	info     Show the manifest and stream headers of a dump
//	verify   Load a dump and check every partition
//	split    Partition a serial dump into a new dump
//	load     Load and reconcile a dump and show what it holds
//	log      View and analyze .mlog event captures
//
// Examples:
//
//	# Write a refined hexahedral sample in four partitions
//	mgio gen -sample hex-hot -levels 2 -parts 4 -axis z -o out/
//
//	# Load it, capturing events
//	mgio load -events load.mlog out/
//
//	# Look at the identity decisions of the load
//	mgio log view -category identity load.mlog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mgio/mgio-go/cmd/mgio/commands"
	"github.com/mgio/mgio-go/pkg/config"
	"github.com/mgio/mgio-go/pkg/examples"
)

const usage = `mgio - Multilevel Mesh Dump Tool

Usage:
  mgio <command> [flags] <args>

Commands:
  gen      Build a sample mesh and write it as a dump
  info     Show the manifest and stream headers of a dump
  verify   Load a dump and check every partition
  split    Partition a serial dump into a new dump
  load     Load and reconcile a dump and show what it holds
  log      View and analyze .mlog event captures

Use "mgio <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "gen":
		runGen(args)
	case "info":
		runInfo(args)
	case "verify":
		runVerify(args)
	case "split":
		runSplit(args)
	case "load":
		runLoad(args)
	case "log":
		runLog(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// common holds the flags every mesh command accepts. Flags that are set
// override the configuration file.
type common struct {
	fs        *flag.FlagSet
	config    *string
	logLevel  *string
	events    *string
	canonical *string
	resolve   *string
	maxFrame  *uint
}

func newCommon(name, help string) *common {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, help)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}
	return &common{
		fs:        fs,
		config:    fs.String("config", "", "YAML configuration file"),
		logLevel:  fs.String("log-level", "", "Log level (debug, info, warn, error)"),
		events:    fs.String("events", "", "Append events to this .mlog file"),
		canonical: fs.String("canonical", "", "Canonicity policy when writing (first-visited, lowest-gid)"),
		resolve:   fs.String("resolution", "", "Resolution mode when reading (strict, deferred)"),
		maxFrame:  fs.Uint("max-frame", 0, "Maximum frame size in bytes"),
	}
}

// env loads the configuration, applies the flags that were set and builds
// the command environment.
func (c *common) env(apply ...func(cfg *config.Config)) *commands.Env {
	cfg, err := config.Load(*c.config)
	if err != nil {
		fail(err)
	}
	c.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.Log.Level = *c.logLevel
		case "events":
			cfg.Log.Events = *c.events
		case "canonical":
			cfg.Codec.Canonical = *c.canonical
		case "resolution":
			cfg.Codec.Resolution = *c.resolve
		case "max-frame":
			cfg.Codec.MaxFrameSize = uint32(*c.maxFrame)
		}
	})
	for _, fn := range apply {
		fn(cfg)
	}
	return newEnv(cfg)
}

func newEnv(cfg *config.Config) *commands.Env {
	if err := cfg.Validate(); err != nil {
		fail(err)
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return &commands.Env{Config: cfg, Logger: logger, Out: os.Stdout}
}

// partitionFlags registers the partition flags on c.
func (c *common) partitionFlags() func(cfg *config.Config) {
	parts := c.fs.Int("parts", 1, "Number of partitions")
	level := c.fs.Int("level", 0, "Refinement level the mesh is cut at")
	axis := c.fs.String("axis", "x", "Axis the partitions are laid out along (x, y, z)")
	return func(cfg *config.Config) {
		c.fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "parts":
				cfg.Partition.Parts = *parts
			case "level":
				cfg.Partition.Level = *level
			case "axis":
				cfg.Partition.Axis = *axis
			}
		})
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runGen(args []string) {
	c := newCommon("gen", fmt.Sprintf(`mgio gen - Build a sample mesh and write it as a dump

Usage:
  mgio gen [flags] -o <dir>

Samples: %v
`, examples.Names()))
	applyPartition := c.partitionFlags()
	sample := c.fs.String("sample", "quad", "Sample mesh")
	cells := c.fs.Int("cells", 2, "Coarse cells per axis")
	levels := c.fs.Int("levels", 1, "Refinement levels")
	output := c.fs.String("o", "", "Output directory (required)")

	if err := c.fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output directory (-o) required")
		c.fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()
	opts := commands.GenOptions{Sample: *sample, Cells: *cells, Levels: *levels, Output: *output}
	if err := commands.RunGen(ctx, c.env(applyPartition), opts); err != nil {
		fail(err)
	}
}

func runInfo(args []string) {
	c := newCommon("info", `mgio info - Show the manifest and stream headers of a dump

Usage:
  mgio info [flags] <dir>
`)
	if err := c.fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if c.fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: dump directory required")
		c.fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunInfo(c.env(), c.fs.Arg(0)); err != nil {
		fail(err)
	}
}

func runVerify(args []string) {
	c := newCommon("verify", `mgio verify - Load a dump and check every partition

Usage:
  mgio verify [flags] <dir>
`)
	if err := c.fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if c.fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: dump directory required")
		c.fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := commands.RunVerify(ctx, c.env(), c.fs.Arg(0)); err != nil {
		fail(err)
	}
}

func runSplit(args []string) {
	c := newCommon("split", `mgio split - Partition a serial dump into a new dump

Usage:
  mgio split [flags] -o <dir> <serial-dir>
`)
	applyPartition := c.partitionFlags()
	output := c.fs.String("o", "", "Output directory (required)")

	if err := c.fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if c.fs.NArg() < 1 || *output == "" {
		fmt.Fprintln(os.Stderr, "Error: input directory and output directory (-o) required")
		c.fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := commands.RunSplit(ctx, c.env(applyPartition), c.fs.Arg(0), *output); err != nil {
		fail(err)
	}
}

func runLoad(args []string) {
	c := newCommon("load", `mgio load - Load and reconcile a dump and show what it holds

Usage:
  mgio load [flags] <dir>
`)
	offset := c.fs.Int64("offset", 0, "First GID given to coarse nodes")
	skip := c.fs.Bool("skip-reconcile", false, "Keep the partitions as decoded")

	if err := c.fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if c.fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: dump directory required")
		c.fs.Usage()
		os.Exit(1)
	}

	env := c.env(func(cfg *config.Config) {
		if *offset != 0 {
			cfg.Codec.NodeGIDOffset = *offset
		}
	})

	ctx, cancel := signalContext()
	defer cancel()
	if err := commands.RunLoad(ctx, env, c.fs.Arg(0), *skip); err != nil {
		fail(err)
	}
}
