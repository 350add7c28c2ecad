package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/inodb/vibe-bcf/internal/bcf"
	"github.com/inodb/vibe-bcf/internal/duckdb"
)

func runExport(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	var (
		dbPath  string
		batch   int
		force   bool
		verbose bool
	)

	fs.StringVar(&dbPath, "db", "", "Output DuckDB file (default: config export.db, then sites.duckdb)")
	fs.IntVar(&batch, "batch", 0, "Rows per append batch (default: config export.batch, then 1024)")
	fs.BoolVar(&force, "force", false, "Rebuild even when the database is current")
	fs.BoolVar(&verbose, "verbose", false, "Log decode anomalies to stderr")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Export site records from a BCF file to a DuckDB database.

The database holds one sites table for downstream SQL analysis. The input
file's size and modification time are recorded with the export, so running
the command again over an unchanged file is a no-op.

Usage:
  vibe-bcf export [options] <input-file>

Arguments:
  <input-file>  Input BCF file, plain or BGZF

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  vibe-bcf export cohort.bcf
  vibe-bcf export --db cohort.duckdb cohort.bcf
  vibe-bcf export --force --batch 4096 cohort.bcf
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

	inputPath := fs.Arg(0)

	if dbPath == "" {
		dbPath = viper.GetString("export.db")
	}
	if dbPath == "" {
		dbPath = "sites.duckdb"
	}
	if batch <= 0 {
		batch = viper.GetInt("export.batch")
	}
	if batch <= 0 {
		batch = 1024
	}

	// Ensure output has a DuckDB extension
	if filepath.Ext(dbPath) != ".duckdb" && filepath.Ext(dbPath) != ".db" {
		dbPath = dbPath + ".duckdb"
	}

	fp, err := duckdb.StatFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Hint: Check that the file path is correct\n")
		}
		return ExitError
	}

	// An existing database is reused when its export is current,
	// rebuilt from scratch otherwise.
	if _, err := os.Stat(dbPath); err == nil {
		store, err := duckdb.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			return ExitError
		}
		current, cerr := store.Current(fp)
		store.Close()
		if cerr != nil {
			fmt.Fprintf(os.Stderr, "Error checking export state: %v\n", cerr)
			return ExitError
		}
		if current && !force {
			fmt.Fprintf(os.Stderr, "%s is current for %s, nothing to do\n", dbPath, inputPath)
			fmt.Fprintf(os.Stderr, "Hint: use --force to rebuild\n")
			return ExitSuccess
		}
		if err := os.Remove(dbPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error removing existing file: %v\n", err)
			return ExitError
		}
	}

	r, err := bcf.Open(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	defer r.Close()
	r.SetLogger(newLogger(verbose))

	store, err := duckdb.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		return ExitError
	}
	defer store.Close()

	fmt.Fprintf(os.Stderr, "Exporting sites to DuckDB...\n")
	fmt.Fprintf(os.Stderr, "  Input:  %s\n", inputPath)
	fmt.Fprintf(os.Stderr, "  Output: %s\n", dbPath)
	fmt.Fprintf(os.Stderr, "  Samples: %d\n", r.Header().NumSamples())

	total, err := store.ExportAll(r, batch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}

	if err := store.WriteMeta(fp, total); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording export metadata: %v\n", err)
		return ExitError
	}

	// Verify count
	count, err := store.CountSites()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error verifying count: %v\n", err)
		return ExitError
	}

	// Get file size
	stat, err := os.Stat(dbPath)
	var sizeStr string
	if err == nil {
		sizeStr = formatSize(stat.Size())
	} else {
		sizeStr = "unknown"
	}

	fmt.Fprintf(os.Stderr, "\nExport complete!\n")
	fmt.Fprintf(os.Stderr, "  Sites: %d\n", count)
	fmt.Fprintf(os.Stderr, "  Output size: %s\n", sizeStr)
	fmt.Fprintf(os.Stderr, "  Output file: %s\n", dbPath)

	return ExitSuccess
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
