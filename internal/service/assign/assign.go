package assign

import (
	"time"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/storage"
)

// Resolver buckets roster rules by machine and shift so each lookup only scans
// the rules that can possibly match. Within a bucket table order is kept.
type Resolver struct {
	buckets map[bucketKey][]storage.AssignmentRule
}

type bucketKey struct {
	machine string
	shift   string
}

func NewResolver(rules []storage.AssignmentRule) *Resolver {
	r := &Resolver{buckets: make(map[bucketKey][]storage.AssignmentRule)}
	for _, rule := range rules {
		k := bucketKey{machine: rule.Machine, shift: rule.Shift}
		r.buckets[k] = append(r.buckets[k], rule)
	}
	return r
}

// Resolve returns the first rule covering date, shift and machine.
func (r *Resolver) Resolve(date time.Time, shift, machine string) (storage.AssignmentRule, bool) {
	for _, rule := range r.buckets[bucketKey{machine: machine, shift: shift}] {
		if rule.Covers(date, shift, machine) {
			return rule, true
		}
	}
	return storage.AssignmentRule{}, false
}

// Apply sets operator and coordinator on every record in place. Records with no
// covering rule get UNASSIGNED and are kept. It returns how many were assigned.
func (r *Resolver) Apply(records []storage.IndicatorRecord) int {
	assigned := 0
	for i := range records {
		rule, ok := r.Resolve(records[i].Date, records[i].Shift, records[i].Machine)
		if !ok {
			records[i].Operator = constants.Unassigned
			records[i].Coordinator = constants.Unassigned
			continue
		}
		records[i].Operator = rule.Operator
		records[i].Coordinator = rule.Coordinator
		assigned++
	}
	return assigned
}

type Overlap struct {
	First  int `json:"first"`
	Second int `json:"second"`
}

// Overlaps lists pairs of rule indices that claim the same machine and shift on a common day.
func Overlaps(rules []storage.AssignmentRule) []Overlap {
	var out []Overlap
	for i := range rules {
		for j := i + 1; j < len(rules); j++ {
			if rules[i].Overlaps(rules[j]) {
				out = append(out, Overlap{First: i, Second: j})
			}
		}
	}
	return out
}
