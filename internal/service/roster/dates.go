package roster

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// columnLayouts are tried for a whole column, in order; the first that parses every cell wins.
var columnLayouts = []string{
	"02/01/2006",
	"01/02/2006",
	"2006-01-02",
	"02-01-2006",
	"01-02-2006",
}

// fallbackLayouts are tried per cell once no column layout fits.
var fallbackLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"2/1/2006",
	"02/01/2006",
	"1/2/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseDateColumn parses every cell of a roster date column.
func ParseDateColumn(column string, cells []string) ([]time.Time, error) {
	for _, layout := range columnLayouts {
		if out, ok := parseAll(cells, func(s string) (time.Time, error) { return time.Parse(layout, s) }); ok {
			return out, nil
		}
	}

	out := make([]time.Time, len(cells))
	for i, cell := range cells {
		t, err := inferDate(cell)
		if err != nil {
			return nil, fmt.Errorf("could not parse date column %q: row %d: %w", column, i+1, err)
		}
		out[i] = t
	}
	return out, nil
}

func parseAll(cells []string, parse func(string) (time.Time, error)) ([]time.Time, bool) {
	out := make([]time.Time, len(cells))
	for i, cell := range cells {
		t, err := parse(strings.TrimSpace(cell))
		if err != nil {
			return nil, false
		}
		out[i] = t
	}
	return out, true
}

func inferDate(cell string) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Workbook date cells arrive as serial day numbers.
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return truncate(t), nil
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
