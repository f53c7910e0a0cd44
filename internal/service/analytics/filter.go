package analytics

import (
	"time"

	"kpi-dashboard/internal/storage"
)

// Filter narrows records the way the dashboard sidebar does. Empty fields match everything.
type Filter struct {
	Machines     []string
	Shifts       []string
	Operators    []string
	Coordinators []string
	From         time.Time
	To           time.Time
}

func (f Filter) Match(r storage.IndicatorRecord) bool {
	if !f.From.IsZero() && r.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.Date.After(f.To) {
		return false
	}
	return in(f.Machines, r.Machine) &&
		in(f.Shifts, r.Shift) &&
		in(f.Operators, r.Operator) &&
		in(f.Coordinators, r.Coordinator)
}

func (f Filter) Apply(records []storage.IndicatorRecord) []storage.IndicatorRecord {
	out := make([]storage.IndicatorRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func in(set []string, v string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
