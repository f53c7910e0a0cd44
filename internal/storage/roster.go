package storage

import "time"

// AssignmentRule says operator+coordinator cover Machine during Shift on dates in [Start, End].
type AssignmentRule struct {
	ID          int64     `json:"id,omitempty"`
	Operator    string    `json:"operator" validate:"required"`
	Coordinator string    `json:"coordinator" validate:"required"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required,gtefield=Start"`
	Shift       string    `json:"shift" validate:"required,oneof=S1 S2 S3"`
	Machine     string    `json:"machine" validate:"required"`
}

// Covers reports whether the rule applies to a record on date for shift and machine.
func (r AssignmentRule) Covers(date time.Time, shift, machine string) bool {
	return r.Shift == shift && r.Machine == machine && !date.Before(r.Start) && !date.After(r.End)
}

// Overlaps reports whether two rules claim the same machine and shift on a common day.
func (r AssignmentRule) Overlaps(o AssignmentRule) bool {
	if r.Shift != o.Shift || r.Machine != o.Machine {
		return false
	}
	return !r.Start.After(o.End) && !o.Start.After(r.End)
}

type Roster struct {
	Rules    []AssignmentRule `json:"rules"`
	Source   string           `json:"source"`
	LoadedAt time.Time        `json:"loaded_at"`
}
