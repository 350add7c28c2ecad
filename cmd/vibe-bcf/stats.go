package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/inodb/vibe-bcf/internal/output"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)

	var (
		outputFile string
		verbose    bool
	)

	fs.StringVar(&outputFile, "o", "", "Output file (default: stdout)")
	fs.StringVar(&outputFile, "output", "", "Output file (default: stdout)")
	fs.BoolVar(&verbose, "verbose", false, "Log decode anomalies to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Summarize the sites in a BCF file.

Counts records, variant classes (SNV, indel, MNV, symbolic), the
transition/transversion ratio and FILTER status, per chromosome and in
total. Only the shared site fields are decoded; per-sample sections are
skipped entirely.

Usage:
  vibe-bcf stats [options] <input-file>

Arguments:
  <input-file>  Input BCF file, plain or BGZF (use '-' for uncompressed stdin)

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  vibe-bcf stats cohort.bcf
  vibe-bcf stats -o summary.txt cohort.bcf
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: input file argument required\n\n")
		fs.Usage()
		return ExitUsage
	}

	r, err := openInput(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Hint: Check that the file path is correct\n")
		}
		return ExitError
	}
	defer r.Close()
	r.SetLogger(newLogger(verbose))

	var out *os.File
	if outputFile == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			return ExitError
		}
		defer out.Close()
	}

	sc := output.NewStatsCollector(r.Header())
	if err := drain(r, sc); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	if err := sc.Report(out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		return ExitError
	}

	return ExitSuccess
}
