package shift

import (
	"regexp"
	"strings"
	"time"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/storage"
)

var labelPattern = regexp.MustCompile(`^S[1-3]\s\d{2}-\d{2}-\d{4}$`)

// ValidLabel reports whether raw has the "S[1-3] DD-MM-YYYY" shape after trimming.
func ValidLabel(raw string) bool {
	return labelPattern.MatchString(strings.TrimSpace(raw))
}

// Parse converts a label such as "S2 07-01-2025" into its calendar attributes.
func Parse(raw string) (storage.ShiftInfo, error) {
	parts := strings.Fields(raw)
	if len(parts) != 2 {
		return storage.ShiftInfo{}, storage.NewError(storage.KindFormat, "invalid shift label %q: expected 'S[1-3] DD-MM-YYYY'", raw)
	}

	code, dateStr := parts[0], parts[1]
	if !constants.IsShift(code) {
		return storage.ShiftInfo{}, storage.NewError(storage.KindFormat, "invalid shift code %q in label %q", code, raw)
	}

	date, err := time.Parse(constants.ShiftDateLayout, dateStr)
	if err != nil || len(dateStr) != len(constants.ShiftDateLayout) {
		return storage.ShiftInfo{}, storage.WrapError(storage.KindFormat, err, "invalid shift date %q in label %q", dateStr, raw)
	}

	week := WeekNumber(date)

	return storage.ShiftInfo{
		Shift:         code,
		Date:          date,
		DateStr:       date.Format(time.DateOnly),
		Day:           date.Day(),
		Month:         int(date.Month()),
		Year:          date.Year(),
		Weekday:       date.Weekday().String(),
		Week:          week,
		AssignedMonth: MonthForWeek(date.Year(), week),
	}, nil
}

type Rejected struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// Partition splits labels into the indices that match the shift pattern and those that do not.
func Partition(labels []string) (valid []int, rejected []Rejected) {
	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			rejected = append(rejected, Rejected{Index: i, Label: l, Reason: "missing shift label"})
			continue
		}
		if !ValidLabel(l) {
			rejected = append(rejected, Rejected{Index: i, Label: l, Reason: "malformed shift label"})
			continue
		}
		valid = append(valid, i)
	}
	return valid, rejected
}
