package clean

import (
	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/service/loader"
	"kpi-dashboard/internal/storage"
)

// FractionThreshold: a column whose maximum is at or below it is on a 0-1 scale.
const FractionThreshold = 1.0

// Row is a shift label with its KPI value before shift parsing.
type Row struct {
	Label string
	Value *float64
}

type UPDTResult struct {
	Rows    []Row
	Causes  []string
	Dropped []int
}

// UPDT sums every numeric cause column per row and drops rows whose total exceeds max.
// It must run while the per-cause columns are still present.
func UPDT(t *loader.Table, max float64) (*UPDTResult, error) {
	const op = "service.clean.UPDT"

	causes := t.NumericColumns(constants.ShiftColumn)
	if len(causes) == 0 {
		return nil, storage.NewError(storage.KindProcessing, "%s: no numeric columns found in UPDT file", op)
	}

	shiftIdx := t.Index(constants.ShiftColumn)
	idx := make([]int, len(causes))
	for i, c := range causes {
		idx[i] = t.Index(c)
	}

	res := &UPDTResult{Causes: causes}
	for ri, row := range t.Rows {
		sum := 0.0
		for _, ci := range idx {
			v, ok, _ := loader.ParseNumber(row[ci])
			if ok {
				sum += v
			}
		}
		if sum > max {
			res.Dropped = append(res.Dropped, ri)
			continue
		}
		res.Rows = append(res.Rows, Row{Label: row[shiftIdx], Value: storage.Float(sum)})
	}

	return res, nil
}

// ValueColumn reads the KPI column as numbers; empty cells become missing values.
func ValueColumn(t *loader.Table, column string) ([]Row, error) {
	shiftIdx, valueIdx := t.Index(constants.ShiftColumn), t.Index(column)
	if valueIdx < 0 {
		return nil, storage.NewError(storage.KindMissingColumn, "missing value column %q", column)
	}

	rows := make([]Row, 0, t.Len())
	for ri, row := range t.Rows {
		v, ok, err := loader.ParseNumber(row[valueIdx])
		if err != nil {
			return nil, storage.WrapError(storage.KindProcessing, err, "column %q must be numeric (row %d: %q)", column, ri, row[valueIdx])
		}
		r := Row{Label: row[shiftIdx]}
		if ok {
			r.Value = storage.Float(v)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// NormalizePercent rescales a 0-1 column to 0-100 for fractional indicators.
// It reports whether the column was rescaled.
func NormalizePercent(records []storage.IndicatorRecord, def constants.IndicatorDefinition) bool {
	if !def.Fractional {
		return false
	}

	max, found := 0.0, false
	for _, r := range records {
		if r.Value == nil {
			continue
		}
		if !found || *r.Value > max {
			max, found = *r.Value, true
		}
	}
	if !found || max > FractionThreshold {
		return false
	}

	for i := range records {
		if records[i].Value != nil {
			records[i].Value = storage.Float(*records[i].Value * 100)
		}
	}
	return true
}

// ExcludeBoundaries blanks Strategic PR values of exactly 0 or 100, which the
// source system writes as placeholders. The rows themselves are kept.
func ExcludeBoundaries(records []storage.IndicatorRecord, indicator string) int {
	if indicator != constants.StrategicPR {
		return 0
	}

	n := 0
	for i := range records {
		v := records[i].Value
		if v != nil && (*v == 0 || *v == 100) {
			records[i].Value = nil
			n++
		}
	}
	return n
}
