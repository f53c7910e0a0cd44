package storage

import "time"

// ShiftInfo holds the calendar attributes parsed out of a shift label.
type ShiftInfo struct {
	Shift         string    `json:"shift"`
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Day           int       `json:"day"`
	Month         int       `json:"month"`
	Year          int       `json:"year"`
	Weekday       string    `json:"weekday"`
	Week          int       `json:"week"`
	AssignedMonth int       `json:"assigned_month"`
}

// IndicatorRecord is one machine/shift/date observation of a single KPI.
// Value is nil when missing or excluded from aggregation.
type IndicatorRecord struct {
	ShiftInfo
	Indicator   string   `json:"indicator"`
	ShiftLabel  string   `json:"shift_label"`
	Value       *float64 `json:"value"`
	Machine     string   `json:"machine"`
	Operator    string   `json:"operator"`
	Coordinator string   `json:"coordinator"`
}

// Values returns the non-missing KPI values in record order.
func Values(records []IndicatorRecord) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Value != nil {
			out = append(out, *r.Value)
		}
	}
	return out
}

func Float(v float64) *float64 {
	return &v
}

// ConsolidatedDataset is the terminal artifact of one consolidation run.
type ConsolidatedDataset struct {
	Tables  map[string][]IndicatorRecord `json:"tables"`
	Reports []FileReport                 `json:"reports"`
}

func (d *ConsolidatedDataset) RowCounts() map[string]int {
	counts := make(map[string]int, len(d.Tables))
	for name, rows := range d.Tables {
		counts[name] = len(rows)
	}
	return counts
}
