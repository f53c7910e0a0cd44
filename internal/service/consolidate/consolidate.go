package consolidate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/service/assign"
	"kpi-dashboard/internal/service/clean"
	"kpi-dashboard/internal/service/loader"
	"kpi-dashboard/internal/service/shift"
	"kpi-dashboard/internal/service/validate"
	"kpi-dashboard/internal/storage"
)

// Upload is one file uploaded for a machine/indicator slot.
// Indicator may be empty, in which case it is detected from the filename.
type Upload struct {
	Machine   string
	Indicator string
	Filename  string
	Content   []byte
}

type RosterSource interface {
	LoadRoster(ctx context.Context) (*storage.Roster, error)
}

type Options struct {
	ExpectedFrom time.Time
	ExpectedTo   time.Time
	UPDTMax      float64
	MaxMissing   float64
	// BlockOnRange turns numeric range violations from warnings into failures.
	BlockOnRange bool
	Workers      int
}

func DefaultOptions() Options {
	return Options{UPDTMax: 50, MaxMissing: 0.5, Workers: 4}
}

type Service struct {
	log    *slog.Logger
	roster RosterSource
	opts   Options
}

func NewService(log *slog.Logger, roster RosterSource, opts Options) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Service{log: log, roster: roster, opts: opts}
}

type fileResult struct {
	records []storage.IndicatorRecord
	report  storage.FileReport
}

// Consolidate validates, cleans and parses every upload, then joins each
// indicator table with the roster. A roster failure aborts the whole run;
// per-file failures only show up in that file's report.
func (s *Service) Consolidate(ctx context.Context, uploads []Upload) (*storage.ConsolidatedDataset, error) {
	const op = "service.consolidate.Consolidate"

	roster, err := s.roster.LoadRoster(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("roster loaded", slog.String("source", roster.Source), slog.Int("rules", len(roster.Rules)))

	results := make([]fileResult, len(uploads))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, u := range uploads {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			records, report := s.ProcessFile(u)
			results[i] = fileResult{records: records, report: report}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ds := &storage.ConsolidatedDataset{Tables: map[string][]storage.IndicatorRecord{}}
	for _, res := range results {
		ds.Reports = append(ds.Reports, res.report)
		if !res.report.Summary.Valid {
			continue
		}
		name := res.report.Indicator
		ds.Tables[name] = append(ds.Tables[name], res.records...)
	}

	resolver := assign.NewResolver(roster.Rules)
	for name, records := range ds.Tables {
		assigned := resolver.Apply(records)
		SortRecords(records)
		s.log.Info("indicator consolidated",
			slog.String("indicator", name),
			slog.Int("rows", len(records)),
			slog.Int("assigned", assigned),
			slog.Int("unassigned", len(records)-assigned),
		)
	}

	return ds, nil
}

// ProcessFile runs every check and cleaning rule on one upload. Records are
// returned only when the report has no failures.
func (s *Service) ProcessFile(u Upload) ([]storage.IndicatorRecord, storage.FileReport) {
	fr := storage.FileReport{Machine: u.Machine, Indicator: u.Indicator, Filename: u.Filename}

	records, err := s.process(u, &fr)
	if err != nil {
		fr.Report.Fail(err.Error())
	}
	fr.Summary = fr.Report.Summary()

	log := s.log.With(
		slog.String("machine", fr.Machine),
		slog.String("indicator", fr.Indicator),
		slog.String("file", fr.Filename),
	)
	if !fr.Summary.Valid {
		log.Warn("file rejected", slog.Int("failed", fr.Summary.Failed), slog.Any("errors", fr.Summary.Errors))
		return nil, fr
	}

	fr.Rows = len(records)
	log.Info("file processed", slog.Int("rows", fr.Rows), slog.Int("dropped", fr.Dropped), slog.Int("warnings", fr.Summary.Warnings))
	return records, fr
}

func (s *Service) process(u Upload, fr *storage.FileReport) ([]storage.IndicatorRecord, error) {
	rep := &fr.Report

	if err := validate.CheckMachine(u.Machine); err != nil {
		return nil, err
	}

	detected, err := validate.DetectIndicator(u.Filename)
	if err != nil {
		return nil, err
	}
	if u.Indicator != "" {
		slot, ok := constants.NormalizeIndicator(u.Indicator)
		if !ok || slot != detected {
			return nil, storage.NewError(storage.KindUnrecognizedIndicator,
				"file identified as '%s' but uploaded as '%s'", detected, u.Indicator)
		}
	}
	fr.Indicator = detected
	rep.Pass(fmt.Sprintf("file identified as '%s'", detected))
	def, _ := constants.Indicator(detected)

	if err := validate.CheckExtension(u.Filename); err != nil {
		return nil, err
	}

	table, err := loader.Read(u.Filename, bytes.NewReader(u.Content), constants.HeaderRowsToSkip)
	if err != nil {
		return nil, storage.WrapError(storage.KindProcessing, err, "error reading file")
	}

	valueColumn, err := validate.CheckStructure(table, detected)
	if err != nil {
		return nil, err
	}
	rep.Pass("valid structure")

	validIdx, rejected := shift.Partition(table.Column(constants.ShiftColumn))
	if len(rejected) > 0 {
		idx := make([]int, len(rejected))
		for i, r := range rejected {
			idx[i] = r.Index
		}
		rep.Warn(fmt.Sprintf("%d rows with malformed shift dropped, rows: %s", len(rejected), validate.RowSample(idx)))
		fr.Dropped += len(rejected)
		table = table.Select(validIdx)
	} else {
		rep.Pass("shift format correct")
	}

	var rows []clean.Row
	if detected == constants.UPDT {
		res, err := clean.UPDT(table, s.opts.UPDTMax)
		if err != nil {
			return nil, err
		}
		rows = res.Rows
		rep.Pass(fmt.Sprintf("UPDT computed as the sum of %d cause columns", len(res.Causes)))
		if len(res.Dropped) > 0 {
			rep.Warn(fmt.Sprintf("%d rows dropped with UPDT above %g", len(res.Dropped), s.opts.UPDTMax))
			fr.Dropped += len(res.Dropped)
		}
		valueColumn = constants.UPDT
	} else {
		rows, err = clean.ValueColumn(table, valueColumn)
		if err != nil {
			return nil, err
		}
	}

	records := make([]storage.IndicatorRecord, 0, len(rows))
	unparsed := 0
	for _, row := range rows {
		info, err := shift.Parse(row.Label)
		if err != nil {
			unparsed++
			continue
		}
		records = append(records, storage.IndicatorRecord{
			ShiftInfo:   info,
			Indicator:   detected,
			ShiftLabel:  row.Label,
			Value:       row.Value,
			Operator:    constants.Unassigned,
			Coordinator: constants.Unassigned,
		})
	}
	if unparsed > 0 {
		rep.Warn(fmt.Sprintf("%d rows with an impossible shift date dropped", unparsed))
		fr.Dropped += unparsed
	}
	if len(records) == 0 {
		return nil, storage.NewError(storage.KindEmptyFile, "no usable rows left after cleaning")
	}
	rep.Pass("shift column parsed")

	if msg, inside := validate.DateRange(records, s.opts.ExpectedFrom, s.opts.ExpectedTo); inside {
		rep.Pass(msg)
	} else {
		rep.Warn(msg)
	}

	if err := validate.ShiftValues(records); err != nil {
		return nil, err
	}
	rep.Pass("shift values correct")

	values := make([]*float64, len(records))
	for i, r := range records {
		values[i] = r.Value
	}
	if err := validate.NumericRange(values, valueColumn, validate.BoundsFor(def), s.opts.MaxMissing); err != nil {
		if s.opts.BlockOnRange || errors.Is(err, validate.ErrTooManyMissing) {
			return nil, err
		}
		rep.Warn(err.Error())
	} else {
		rep.Pass(fmt.Sprintf("numeric values valid in '%s'", valueColumn))
	}

	for i := range records {
		records[i].Machine = u.Machine
	}
	rep.Pass(fmt.Sprintf("data assigned to machine '%s'", u.Machine))

	if clean.NormalizePercent(records, def) {
		rep.Pass(fmt.Sprintf("%s converted to percentage (0-100)", detected))
	}
	if n := clean.ExcludeBoundaries(records, detected); n > 0 {
		rep.Pass(fmt.Sprintf("%d values of exactly 0 or 100 excluded from averages", n))
	}

	SortRecords(records)
	return records, nil
}

// SortRecords orders by date, then shift, then machine. The sort is stable so
// equal keys keep their upload order.
func SortRecords(records []storage.IndicatorRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Shift != b.Shift {
			return a.Shift < b.Shift
		}
		return a.Machine < b.Machine
	})
}

// UploadsFromMap flattens a machine -> indicator -> upload mapping in catalogue order.
func UploadsFromMap(files map[string]map[string]Upload) []Upload {
	machines := make([]string, 0, len(files))
	for m := range files {
		machines = append(machines, m)
	}
	sort.Slice(machines, func(i, j int) bool {
		ri, rj := machineRank(machines[i]), machineRank(machines[j])
		if ri != rj {
			return ri < rj
		}
		return machines[i] < machines[j]
	})

	var out []Upload
	for _, m := range machines {
		for _, name := range constants.IndicatorNames() {
			u, ok := files[m][name]
			if !ok || len(u.Content) == 0 {
				continue
			}
			u.Machine, u.Indicator = m, name
			out = append(out, u)
		}
	}
	return out
}

func machineRank(m string) int {
	for i, known := range constants.Machines {
		if known == m {
			return i
		}
	}
	return len(constants.Machines)
}
