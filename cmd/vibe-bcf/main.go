// Package main provides the vibe-bcf command-line tool.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/inodb/vibe-bcf/internal/bcf"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Global flags
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	// Parse global flags first
	flag.Parse()

	if showVersion {
		fmt.Printf("vibe-bcf version %s (%s) built %s\n", version, commit, date)
		return ExitSuccess
	}

	// Check for subcommand
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		return ExitUsage
	}

	initConfig()

	switch args[0] {
	case "view":
		return runView(args[1:])
	case "stats":
		return runStats(args[1:])
	case "export":
		return runExport(args[1:])
	case "config":
		return runConfig(args[1:])
	case "help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		printUsage()
		return ExitUsage
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `vibe-bcf - BCF decoder and site exporter

Usage:
  vibe-bcf [options] <command> [arguments]

Commands:
  view        Decode a BCF file to VCF text
  stats       Summarize the sites in a BCF file
  export      Export site records to a DuckDB database
  config      Manage vibe-bcf configuration
  help        Show this help message

Global Options:
  --version   Show version information

Examples:
  # Decode a BCF file to VCF on stdout
  vibe-bcf view cohort.bcf

  # Render only the GT and DP FORMAT columns with eight decode workers
  vibe-bcf view --fields GT,DP -j 8 cohort.bcf

  # Site summary counts
  vibe-bcf stats cohort.bcf

  # Export sites for SQL analysis
  vibe-bcf export --db sites.duckdb cohort.bcf

For more information on a command, use:
  vibe-bcf <command> --help
`)
}

// openInput opens a BCF file, or stdin when path is "-". Files may be
// plain or BGZF; stdin must be uncompressed.
func openInput(path string) (*bcf.Reader, error) {
	if path == "-" {
		return bcf.NewReader(os.Stdin)
	}
	return bcf.Open(path)
}

// newLogger builds the decoder log sink: a development logger with
// --verbose, silent otherwise.
func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// drain decodes every record sequentially into writer, reusing one
// record allocation across the stream.
func drain(r *bcf.Reader, w bcf.RecordWriter) error {
	var rec bcf.Record
	for {
		err := r.Read(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read record: %w", err)
		}
		if err := w.Write(&rec, nil); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return w.Flush()
}
