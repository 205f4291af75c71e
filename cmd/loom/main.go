// Package main is the entry point for the loom editing core.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dshills/loom/internal/app"
	"github.com/dshills/loom/internal/project/search"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	workspacePath string
	sessionPath   string
	logLevel      string
	grep          string
	files         []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logger := app.NewLogger(app.LoggerConfig{
		Level:  app.ParseLogLevel(opts.logLevel),
		Output: os.Stderr,
		Prefix: "loom",
	})

	editor, err := app.New(app.Config{
		SessionPath: opts.sessionPath,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer editor.Shutdown()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		editor.Shutdown()
		os.Exit(130)
	}()

	if opts.workspacePath != "" {
		if err := editor.AddWorkspaceRoot(opts.workspacePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: workspace %s: %v\n", opts.workspacePath, err)
			return 1
		}
	}

	for _, file := range opts.files {
		buf, err := editor.Open(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: open %s: %v\n", file, err)
			return 1
		}
		eng := buf.Engine()
		fmt.Printf("%s: %d lines, %s, %s\n",
			buf.Path(), eng.LineCount(), buf.Language(), buf.Encoding())
	}

	if opts.grep != "" {
		matches, err := editor.SearchWorkspace(context.Background(), opts.grep,
			search.Options{}, search.ProjectOptions{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: search: %v\n", err)
			return 1
		}
		for _, m := range matches {
			fmt.Printf("%s:%d:%d: %s\n", m.Path, m.Line+1, m.Column+1, m.LineText)
		}
	}

	return 0
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.workspacePath, "workspace", "", "Workspace/project directory")
	flag.StringVar(&opts.workspacePath, "w", "", "Workspace/project directory (shorthand)")
	flag.StringVar(&opts.sessionPath, "session", defaultSessionPath(), "Path to session state file")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.grep, "grep", "", "Search the workspace for a pattern")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Loom - text editing core\n\n")
		fmt.Fprintf(os.Stderr, "Usage: loom [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  loom file.go                 Open a file\n")
		fmt.Fprintf(os.Stderr, "  loom -w ./project            Open a workspace\n")
		fmt.Fprintf(os.Stderr, "  loom -w . -grep TODO         Search the workspace\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if showVersion {
		fmt.Printf("Loom %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.logLevel {
	case "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		os.Exit(1)
	}

	opts.files = flag.Args()

	// Default the workspace to the first file's directory.
	if opts.workspacePath == "" && len(opts.files) > 0 {
		if abs, err := filepath.Abs(opts.files[0]); err == nil {
			opts.workspacePath = filepath.Dir(abs)
		}
	}

	return opts
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "loom", "session.json")
}
