package shift

import "time"

// Week 1 runs from January 1st to the first Sunday; every later week is Monday..Sunday.

func firstMonday(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (7 - isoWeekday(jan1)) % 7
	if offset == 0 {
		offset = 7
	}
	return jan1.AddDate(0, 0, offset)
}

// isoWeekday maps Monday..Sunday to 0..6.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekNumber returns the custom week number of date.
func WeekNumber(date time.Time) int {
	date = truncateDay(date)
	jan1 := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	if isoWeekday(jan1) == 0 {
		_, week := date.ISOWeek()
		return week
	}

	monday := firstMonday(date.Year())
	if date.Before(monday) {
		return 1
	}
	days := int(date.Sub(monday).Hours() / 24)
	return days/7 + 2
}

// WeekDateRange returns the inclusive first and last day of week in year.
func WeekDateRange(year, week int) (time.Time, time.Time) {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	if isoWeekday(jan1) == 0 {
		start := jan1.AddDate(0, 0, (week-1)*7)
		return start, start.AddDate(0, 0, 6)
	}

	if week <= 1 {
		toSunday := 6 - isoWeekday(jan1)
		return jan1, jan1.AddDate(0, 0, toSunday)
	}

	start := firstMonday(year).AddDate(0, 0, (week-2)*7)
	return start, start.AddDate(0, 0, 6)
}

// MonthForWeek attributes a week to the month holding most of its days.
// Ties go to the month seen first.
func MonthForWeek(year, week int) int {
	start, end := WeekDateRange(year, week)

	counts := make(map[time.Month]int, 2)
	var order []time.Month
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if _, seen := counts[d.Month()]; !seen {
			order = append(order, d.Month())
		}
		counts[d.Month()]++
	}

	best := order[0]
	for _, m := range order[1:] {
		if counts[m] > counts[best] {
			best = m
		}
	}
	return int(best)
}
