package analytics

import (
	"math"
	"sort"
	"time"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/storage"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
	TrendStable    Trend = "stable"
)

type Summary struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	P95    *float64 `json:"p95"`
	CV     *float64 `json:"cv"`
}

func Summarize(values []float64) Summary {
	lo, hi := MinMax(values)
	return Summary{
		Count:  len(values),
		Mean:   round(Mean(values)),
		Median: round(Median(values)),
		Std:    round(Std(values)),
		Min:    round(lo),
		Max:    round(hi),
		P95:    round(Quantile(values, 0.95)),
		CV:     round(CoefficientOfVariation(values)),
	}
}

type WeekAverage struct {
	Year       int      `json:"year"`
	Week       int      `json:"week"`
	Mean       *float64 `json:"mean"`
	FirstDate  string   `json:"first_date"`
	LastDate   string   `json:"last_date"`
	DataPoints int      `json:"data_points"`
}

// WeekAverages groups non-missing values by (year, custom week).
func WeekAverages(records []storage.IndicatorRecord) []WeekAverage {
	type key struct{ year, week int }
	type acc struct {
		values      []float64
		first, last time.Time
	}

	groups := map[key]*acc{}
	for _, r := range records {
		if r.Value == nil {
			continue
		}
		k := key{r.Year, r.Week}
		a, ok := groups[k]
		if !ok {
			a = &acc{first: r.Date, last: r.Date}
			groups[k] = a
		}
		a.values = append(a.values, *r.Value)
		if r.Date.Before(a.first) {
			a.first = r.Date
		}
		if r.Date.After(a.last) {
			a.last = r.Date
		}
	}

	out := make([]WeekAverage, 0, len(groups))
	for k, a := range groups {
		out = append(out, WeekAverage{
			Year:       k.year,
			Week:       k.week,
			Mean:       round(Mean(a.values)),
			FirstDate:  a.first.Format(time.DateOnly),
			LastDate:   a.last.Format(time.DateOnly),
			DataPoints: len(a.values),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Week < out[j].Week
	})
	return out
}

type MonthAverage struct {
	Year       int      `json:"year"`
	Month      int      `json:"month"`
	MonthName  string   `json:"month_name"`
	Mean       *float64 `json:"mean"`
	DataPoints int      `json:"data_points"`
}

// MonthAverages groups by the month each record's week is attributed to.
func MonthAverages(records []storage.IndicatorRecord) []MonthAverage {
	type key struct{ year, month int }

	groups := map[key][]float64{}
	for _, r := range records {
		if r.Value == nil {
			continue
		}
		k := key{r.Year, r.AssignedMonth}
		groups[k] = append(groups[k], *r.Value)
	}

	out := make([]MonthAverage, 0, len(groups))
	for k, values := range groups {
		out = append(out, MonthAverage{
			Year:       k.year,
			Month:      k.month,
			MonthName:  time.Month(k.month).String(),
			Mean:       round(Mean(values)),
			DataPoints: len(values),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out
}

type GroupStat struct {
	Key   string   `json:"key"`
	Mean  *float64 `json:"mean"`
	Std   *float64 `json:"std"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Count int      `json:"count"`
	mean  float64
}

// GroupBy aggregates values per key, best first according to better.
// Records whose key is empty or UNASSIGNED are skipped.
func GroupBy(records []storage.IndicatorRecord, better constants.Direction, keyFn func(storage.IndicatorRecord) string) []GroupStat {
	groups := map[string][]float64{}
	for _, r := range records {
		k := keyFn(r)
		if k == "" || k == constants.Unassigned || r.Value == nil {
			continue
		}
		groups[k] = append(groups[k], *r.Value)
	}

	out := make([]GroupStat, 0, len(groups))
	for k, values := range groups {
		lo, hi := MinMax(values)
		m := Mean(values)
		out = append(out, GroupStat{
			Key:   k,
			Mean:  round(m),
			Std:   round(Std(values)),
			Min:   round(lo),
			Max:   round(hi),
			Count: len(values),
			mean:  m,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].mean != out[j].mean {
			if better == constants.LowerIsBetter {
				return out[i].mean < out[j].mean
			}
			return out[i].mean > out[j].mean
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func ByMachine(r storage.IndicatorRecord) string     { return r.Machine }
func ByShift(r storage.IndicatorRecord) string       { return r.Shift }
func ByOperator(r storage.IndicatorRecord) string    { return r.Operator }
func ByCoordinator(r storage.IndicatorRecord) string { return r.Coordinator }

// BestWorstWeek picks the weeks with the best and worst mean for the direction.
func BestWorstWeek(weeks []WeekAverage, better constants.Direction) (best, worst *WeekAverage) {
	for i := range weeks {
		w := &weeks[i]
		if w.Mean == nil {
			continue
		}
		if best == nil || isBetter(*w.Mean, *best.Mean, better) {
			best = w
		}
		if worst == nil || isBetter(*worst.Mean, *w.Mean, better) {
			worst = w
		}
	}
	return best, worst
}

func isBetter(a, b float64, better constants.Direction) bool {
	if better == constants.LowerIsBetter {
		return a < b
	}
	return a > b
}

// TrendOf correlates date ordinal with value and reads it through the indicator direction.
func TrendOf(records []storage.IndicatorRecord, better constants.Direction) Trend {
	var x, y []float64
	for _, r := range records {
		if r.Value == nil {
			continue
		}
		x = append(x, float64(r.Date.Unix()/86400))
		y = append(y, *r.Value)
	}

	corr := Correlation(x, y)
	if math.IsNaN(corr) || math.Abs(corr) < 0.1 {
		return TrendStable
	}
	if (better == constants.LowerIsBetter) == (corr < 0) {
		return TrendImproving
	}
	return TrendWorsening
}

type Outlier struct {
	Date    string  `json:"date"`
	Shift   string  `json:"shift"`
	Machine string  `json:"machine"`
	Value   float64 `json:"value"`
}

// Outliers flags values outside [Q1-1.5*IQR, Q3+1.5*IQR].
func Outliers(records []storage.IndicatorRecord) []Outlier {
	values := storage.Values(records)
	if len(values) == 0 {
		return nil
	}
	q1, q3 := Quantile(values, 0.25), Quantile(values, 0.75)
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	var out []Outlier
	for _, r := range records {
		if r.Value == nil || (*r.Value >= lower && *r.Value <= upper) {
			continue
		}
		out = append(out, Outlier{Date: r.DateStr, Shift: r.Shift, Machine: r.Machine, Value: *r.Value})
	}
	return out
}

type Completeness struct {
	ExpectedDays    int            `json:"expected_days"`
	DaysWithData    int            `json:"days_with_data"`
	CompletenessPct *float64       `json:"completeness_pct"`
	RecordsPerShift map[string]int `json:"records_per_shift"`
	MinDate         string         `json:"min_date"`
	MaxDate         string         `json:"max_date"`
}

// DataCompleteness measures how many days of [from, to] have at least one record.
func DataCompleteness(records []storage.IndicatorRecord, from, to time.Time) Completeness {
	c := Completeness{RecordsPerShift: map[string]int{}}
	if !to.Before(from) {
		c.ExpectedDays = int(to.Sub(from).Hours()/24) + 1
	}

	days := map[string]bool{}
	var lo, hi time.Time
	for i, r := range records {
		days[r.DateStr] = true
		c.RecordsPerShift[r.Shift]++
		if i == 0 || r.Date.Before(lo) {
			lo = r.Date
		}
		if i == 0 || r.Date.After(hi) {
			hi = r.Date
		}
	}
	c.DaysWithData = len(days)
	if c.ExpectedDays > 0 {
		c.CompletenessPct = round(float64(c.DaysWithData) / float64(c.ExpectedDays) * 100)
	}
	if len(records) > 0 {
		c.MinDate = lo.Format(time.DateOnly)
		c.MaxDate = hi.Format(time.DateOnly)
	}
	return c
}

// Report bundles every aggregate the dashboard pages show for one indicator.
type Report struct {
	Indicator     string         `json:"indicator"`
	Unit          string         `json:"unit"`
	Better        string         `json:"better"`
	Summary       Summary        `json:"summary"`
	Trend         Trend          `json:"trend"`
	Weeks         []WeekAverage  `json:"weeks"`
	Months        []MonthAverage `json:"months"`
	BestWeek      *WeekAverage   `json:"best_week"`
	WorstWeek     *WeekAverage   `json:"worst_week"`
	ByMachine     []GroupStat    `json:"by_machine"`
	ByShift       []GroupStat    `json:"by_shift"`
	ByOperator    []GroupStat    `json:"by_operator"`
	ByCoordinator []GroupStat    `json:"by_coordinator"`
	Outliers      []Outlier      `json:"outliers"`
	Unassigned    int            `json:"unassigned"`
}

func Build(def constants.IndicatorDefinition, records []storage.IndicatorRecord) Report {
	weeks := WeekAverages(records)
	best, worst := BestWorstWeek(weeks, def.Better)

	unassigned := 0
	for _, r := range records {
		if r.Operator == constants.Unassigned {
			unassigned++
		}
	}

	return Report{
		Indicator:     def.Name,
		Unit:          def.Unit,
		Better:        string(def.Better),
		Summary:       Summarize(storage.Values(records)),
		Trend:         TrendOf(records, def.Better),
		Weeks:         weeks,
		Months:        MonthAverages(records),
		BestWeek:      best,
		WorstWeek:     worst,
		ByMachine:     GroupBy(records, def.Better, ByMachine),
		ByShift:       GroupBy(records, def.Better, ByShift),
		ByOperator:    GroupBy(records, def.Better, ByOperator),
		ByCoordinator: GroupBy(records, def.Better, ByCoordinator),
		Outliers:      Outliers(records),
		Unassigned:    unassigned,
	}
}
