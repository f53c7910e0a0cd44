package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/service/loader"
	"kpi-dashboard/internal/storage"
)

var ErrTooManyMissing = errors.New("too many missing values")

// DetectIndicator matches the filename prefix against every indicator alias.
func DetectIndicator(filename string) (string, error) {
	base := strings.ToUpper(filepath.Base(filename))
	for _, def := range constants.Indicators {
		for _, alias := range def.Aliases {
			if strings.HasPrefix(base, strings.ToUpper(alias)) {
				return def.Name, nil
			}
		}
	}
	return "", storage.NewError(storage.KindUnrecognizedIndicator,
		"file name must start with one of: %s", strings.Join(constants.IndicatorNames(), ", "))
}

func CheckExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range constants.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return storage.NewError(storage.KindUnsupportedFormat,
		"extension %q not allowed, use: %s", ext, strings.Join(constants.AllowedExtensions, ", "))
}

func CheckMachine(machine string) error {
	if constants.IsMachine(machine) {
		return nil
	}
	return storage.NewError(storage.KindProcessing,
		"invalid machine %q, valid machines: %s", machine, strings.Join(constants.Machines, ", "))
}

// CheckStructure returns the value column for indicator. For UPDT it returns
// the numeric cause columns joined by the caller, so the column name is empty.
func CheckStructure(t *loader.Table, indicator string) (string, error) {
	if !t.HasColumn(constants.ShiftColumn) {
		return "", storage.NewError(storage.KindMissingColumn, "missing required column %q", constants.ShiftColumn)
	}
	if t.Len() == 0 {
		return "", storage.NewError(storage.KindEmptyFile, "file is empty")
	}

	def, ok := constants.Indicator(indicator)
	if !ok {
		return "", storage.NewError(storage.KindUnrecognizedIndicator, "unknown indicator %q", indicator)
	}

	if def.Name == constants.UPDT {
		if len(t.NumericColumns(constants.ShiftColumn)) == 0 {
			return "", storage.NewError(storage.KindMissingColumn, "UPDT file must have numeric cause columns")
		}
		return "", nil
	}

	for _, alias := range def.Aliases {
		if t.HasColumn(alias) {
			return alias, nil
		}
	}
	return "", storage.NewError(storage.KindMissingColumn,
		"missing value column, expected one of: %s", strings.Join(def.Aliases, ", "))
}

// DateRange describes the observed dates against the expected window. It never fails.
// The returned flag is false when some data falls outside the window.
func DateRange(records []storage.IndicatorRecord, from, to time.Time) (string, bool) {
	if len(records) == 0 {
		return "no dates to check", true
	}

	lo, hi := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(lo) {
			lo = r.Date
		}
		if r.Date.After(hi) {
			hi = r.Date
		}
	}

	msg := fmt.Sprintf("date range: %s to %s", lo.Format(time.DateOnly), hi.Format(time.DateOnly))
	if from.IsZero() || to.IsZero() {
		return msg, true
	}
	if lo.Before(from) || hi.After(to) {
		return fmt.Sprintf("%s (outside expected %s to %s)", msg, from.Format(time.DateOnly), to.Format(time.DateOnly)), false
	}
	return msg, true
}

func ShiftValues(records []storage.IndicatorRecord) error {
	seen := map[string]bool{}
	var invalid []string
	for _, r := range records {
		if !constants.IsShift(r.Shift) && !seen[r.Shift] {
			seen[r.Shift] = true
			invalid = append(invalid, r.Shift)
		}
	}
	if len(invalid) > 0 {
		return storage.NewError(storage.KindRowFormat,
			"invalid shift values %v, valid values: %v", invalid, constants.Shifts)
	}
	return nil
}

type Bounds struct {
	Min *float64
	Max *float64
}

func BoundsFor(def constants.IndicatorDefinition) Bounds {
	if def.Percent {
		return Bounds{Min: storage.Float(0), Max: storage.Float(100)}
	}
	return Bounds{Min: storage.Float(0)}
}

// NumericRange fails when more than maxMissing of the values are missing or
// when any value falls outside b. Missing-value failures wrap ErrTooManyMissing.
func NumericRange(values []*float64, column string, b Bounds, maxMissing float64) error {
	if len(values) == 0 {
		return nil
	}

	missing := 0
	for _, v := range values {
		if v == nil {
			missing++
		}
	}
	if ratio := float64(missing) / float64(len(values)); ratio > maxMissing {
		return storage.WrapError(storage.KindRangeViolation, ErrTooManyMissing,
			"too many missing values in %q: %.1f%%", column, ratio*100)
	}

	if b.Min != nil {
		if n := countWhere(values, func(v float64) bool { return v < *b.Min }); n > 0 {
			return storage.NewError(storage.KindRangeViolation, "%d values below %g in %q", n, *b.Min, column)
		}
	}
	if b.Max != nil {
		if n := countWhere(values, func(v float64) bool { return v > *b.Max }); n > 0 {
			return storage.NewError(storage.KindRangeViolation, "%d values above %g in %q", n, *b.Max, column)
		}
	}
	return nil
}

func countWhere(values []*float64, pred func(float64) bool) int {
	n := 0
	for _, v := range values {
		if v != nil && pred(*v) {
			n++
		}
	}
	return n
}

// RowSample formats up to five offending row indices for a report message.
func RowSample(indices []int) string {
	if len(indices) <= 5 {
		return fmt.Sprint(indices)
	}
	return fmt.Sprintf("%v (and %d more)", indices[:5], len(indices)-5)
}
