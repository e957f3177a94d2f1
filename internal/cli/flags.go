// Package cli wires flags, configuration and output for the command line
// entrypoints.
package cli

import (
	"errors"
	"flag"
)

// ReconcileFlags are the flags for the reconcile command.
type ReconcileFlags struct {
	ExcelPath  string
	SQLPath    string
	SQLDBPath  string
	SQLTable   string
	Format     string
	OutPath    string
	ConfigPath string
	Verbose    bool
}

// ParseReconcileFlags parses reconcile flags from the command line.
func ParseReconcileFlags() *ReconcileFlags {
	flags := &ReconcileFlags{}
	flag.StringVar(&flags.ExcelPath, "excel", "", "Path to the Excel-side CSV extract (required)")
	flag.StringVar(&flags.SQLPath, "sql", "", "Path to the SQL-side CSV extract")
	flag.StringVar(&flags.SQLDBPath, "sql-db", "", "Path to a SQLite database holding the SQL-side extract")
	flag.StringVar(&flags.SQLTable, "sql-table", "gl_entries", "Table to read when -sql-db is used")
	flag.StringVar(&flags.Format, "format", "json", "Report format: json or csv")
	flag.StringVar(&flags.OutPath, "out", "", "Write the report to a file instead of stdout")
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "Path to the config file")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// Validate checks that the flag combination names both inputs.
func (f *ReconcileFlags) Validate() error {
	if f.ExcelPath == "" {
		return errors.New("missing -excel: path to the Excel-side CSV extract")
	}
	if f.SQLPath == "" && f.SQLDBPath == "" {
		return errors.New("missing SQL-side input: pass -sql or -sql-db")
	}
	if f.SQLPath != "" && f.SQLDBPath != "" {
		return errors.New("-sql and -sql-db are mutually exclusive")
	}
	return nil
}
