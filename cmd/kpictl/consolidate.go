package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"kpi-dashboard/internal/service/consolidate"
	generate_excel "kpi-dashboard/internal/service/generate-excel"
	"kpi-dashboard/internal/service/roster"
	"kpi-dashboard/internal/storage"
)

type consolidateFlags struct {
	roster       string
	files        []string
	export       string
	from         string
	to           string
	updtMax      float64
	maxMissing   float64
	blockOnRange bool
	workers      int
	asJSON       bool
}

func newConsolidateCmd() *cobra.Command {
	f := consolidateFlags{}
	defaults := consolidate.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "consolidate --roster FILE --file MACHINE=PATH [--file ...]",
		Short: "Validate, clean and join indicator files with the roster",
		Example: `  kpictl consolidate --roster roster.csv \
    --file KDF-7=MTBF_kdf7.xlsx --file KDF-7=UPDT_kdf7.csv --export consolidated.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsolidate(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.roster, "roster", "", "roster file (.csv or .xlsx)")
	fl.StringArrayVar(&f.files, "file", nil, "indicator file as MACHINE=PATH, repeatable")
	fl.StringVar(&f.export, "export", "", "write the consolidated dataset to this .xlsx file")
	fl.StringVar(&f.from, "from", "", "expected first date (YYYY-MM-DD)")
	fl.StringVar(&f.to, "to", "", "expected last date (YYYY-MM-DD)")
	fl.Float64Var(&f.updtMax, "updt-max", defaults.UPDTMax, "drop UPDT rows whose cause sum exceeds this")
	fl.Float64Var(&f.maxMissing, "max-missing", defaults.MaxMissing, "largest tolerated share of missing values")
	fl.BoolVar(&f.blockOnRange, "block-on-range", false, "fail files with out-of-range values instead of warning")
	fl.IntVar(&f.workers, "workers", defaults.Workers, "files processed in parallel")
	fl.BoolVar(&f.asJSON, "json", false, "print reports as JSON")
	_ = cmd.MarkFlagRequired("roster")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runConsolidate(cmd *cobra.Command, f consolidateFlags) error {
	uploads, err := readUploads(f.files)
	if err != nil {
		return err
	}

	opts := consolidate.Options{
		UPDTMax:      f.updtMax,
		MaxMissing:   f.maxMissing,
		BlockOnRange: f.blockOnRange,
		Workers:      f.workers,
	}
	if opts.ExpectedFrom, err = parseDate("from", f.from); err != nil {
		return err
	}
	if opts.ExpectedTo, err = parseDate("to", f.to); err != nil {
		return err
	}

	logOut := io.Discard
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logOut = cmd.ErrOrStderr()
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc := consolidate.NewService(log, roster.FileSource{Path: f.roster}, opts)
	ds, err := svc.Consolidate(cmd.Context(), uploads)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			RowCounts map[string]int       `json:"row_counts"`
			Reports   []storage.FileReport `json:"reports"`
		}{ds.RowCounts(), ds.Reports}); err != nil {
			return err
		}
	} else if err := printReports(out, ds); err != nil {
		return err
	}

	if f.export != "" {
		file, err := os.Create(f.export)
		if err != nil {
			return fmt.Errorf("create export: %w", err)
		}
		defer file.Close()
		if err := generate_excel.WriteDataset(file, ds); err != nil {
			return err
		}
		if !f.asJSON {
			fmt.Fprintf(out, "\nexported to %s\n", f.export)
		}
	}

	for _, r := range ds.Reports {
		if !r.Summary.Valid {
			return fmt.Errorf("%d of %d files failed validation", failedCount(ds.Reports), len(ds.Reports))
		}
	}
	return nil
}

// readUploads loads MACHINE=PATH pairs. The indicator is detected from the file name.
func readUploads(pairs []string) ([]consolidate.Upload, error) {
	uploads := make([]consolidate.Upload, 0, len(pairs))
	for _, p := range pairs {
		machine, path, ok := strings.Cut(p, "=")
		if !ok || machine == "" || path == "" {
			return nil, fmt.Errorf("--file %q: expected MACHINE=PATH", p)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("--file %q: %w", p, err)
		}
		uploads = append(uploads, consolidate.Upload{
			Machine:  strings.TrimSpace(machine),
			Filename: filepath.Base(path),
			Content:  content,
		})
	}
	return uploads, nil
}

func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, value)
	}
	return t, nil
}

func printReports(w io.Writer, ds *storage.ConsolidatedDataset) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MACHINE\tINDICATOR\tFILE\tROWS\tDROPPED\tWARNINGS\tSTATUS")
	for _, r := range ds.Reports {
		status := "ok"
		if !r.Summary.Valid {
			status = "FAILED: " + strings.Join(r.Summary.Errors, "; ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.Machine, r.Indicator, r.Filename, r.Rows, r.Dropped, r.Summary.Warnings, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := ds.RowCounts()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %d rows\n", name, counts[name])
	}
	return nil
}

func failedCount(reports []storage.FileReport) int {
	n := 0
	for _, r := range reports {
		if !r.Summary.Valid {
			n++
		}
	}
	return n
}
