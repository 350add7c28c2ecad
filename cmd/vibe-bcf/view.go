package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/inodb/vibe-bcf/internal/output"
)

func runView(args []string) int {
	fs := flag.NewFlagSet("view", flag.ExitOnError)

	var (
		outputFormat string
		outputFile   string
		fields       string
		workers      int
		noHeader     bool
		verbose      bool
	)

	fs.StringVar(&outputFormat, "f", "vcf", "Output format: vcf, tab")
	fs.StringVar(&outputFormat, "output-format", "vcf", "Output format: vcf, tab")
	fs.StringVar(&outputFile, "o", "", "Output file (default: stdout)")
	fs.StringVar(&outputFile, "output", "", "Output file (default: stdout)")
	fs.StringVar(&fields, "fields", "", "Comma-separated FORMAT fields to render (default: all)")
	fs.IntVar(&workers, "j", 0, "Decode workers (default: config view.workers, then all CPUs)")
	fs.IntVar(&workers, "workers", 0, "Decode workers (default: config view.workers, then all CPUs)")
	fs.BoolVar(&noHeader, "H", false, "Suppress the header")
	fs.BoolVar(&verbose, "verbose", false, "Log skipped records to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Decode a BCF file to VCF text.

Usage:
  vibe-bcf view [options] <input-file>

Arguments:
  <input-file>  Input BCF file, plain or BGZF (use '-' for uncompressed stdin)

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  vibe-bcf view cohort.bcf
  vibe-bcf view -o cohort.vcf cohort.bcf
  vibe-bcf view --fields GT,DP -j 8 cohort.bcf
  vibe-bcf view -f tab -H cohort.bcf
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

	if workers <= 0 {
		workers = viper.GetInt("view.workers")
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

	switch outputFormat {
	case "vcf":
		vw := output.NewVCFWriter(out, r.Header())
		if fields != "" {
			vw.SetFields(strings.Split(fields, ","))
		}
		if !noHeader {
			if err := vw.WriteHeader(); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing header: %v\n", err)
				return ExitError
			}
		}
		if err := r.DecodeAll(vw, workers, vw.Render); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitError
		}
	case "tab":
		tw := output.NewTabWriter(out, r.Header())
		if !noHeader {
			if err := tw.WriteHeader(); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing header: %v\n", err)
				return ExitError
			}
		}
		if err := drain(r, tw); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitError
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown output format %q\n", outputFormat)
		return ExitError
	}

	return ExitSuccess
}
