package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi-dashboard/internal/constants"
	"kpi-dashboard/internal/service/shift"
	"kpi-dashboard/internal/storage"
)

func rec(t *testing.T, label, machine, operator string, value *float64) storage.IndicatorRecord {
	t.Helper()
	info, err := shift.Parse(label)
	require.NoError(t, err)
	return storage.IndicatorRecord{
		ShiftInfo:   info,
		ShiftLabel:  label,
		Value:       value,
		Machine:     machine,
		Operator:    operator,
		Coordinator: constants.Unassigned,
	}
}

func TestStats(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.Equal(t, 5.0, Mean(values))
	assert.Equal(t, 4.5, Median(values))
	assert.InDelta(t, 2.138, Std(values), 1e-3)
	assert.InDelta(t, 8.3, Quantile(values, 0.95), 1e-9)
	lo, hi := MinMax(values)
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 9.0, hi)

	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Std([]float64{1})))
}

func TestPercentileRank(t *testing.T) {
	assert.Equal(t, 50.0, PercentileRank(nil, 3))
	assert.Equal(t, 50.0, PercentileRank([]float64{1, 2, 3, 4}, 3))
}

func TestCoefficientOfVariation(t *testing.T) {
	assert.Zero(t, CoefficientOfVariation([]float64{0, 0}))
	assert.InDelta(t, 50.0, CoefficientOfVariation([]float64{1, 2, 3}), 1e-9)
}

func TestSummarize_EmptyHasNoNaN(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Count)
	assert.Nil(t, s.Mean)
	assert.Nil(t, s.Std)
}

func TestWeekAndMonthAverages(t *testing.T) {
	records := []storage.IndicatorRecord{
		rec(t, "S1 06-01-2025", "KDF-7", "Ana", storage.Float(10)),
		rec(t, "S2 07-01-2025", "KDF-7", "Ana", storage.Float(20)),
		rec(t, "S1 13-01-2025", "KDF-7", "Ana", storage.Float(40)),
		rec(t, "S1 14-01-2025", "KDF-7", "Ana", nil),
	}

	weeks := WeekAverages(records)
	require.Len(t, weeks, 2)
	assert.Equal(t, 2, weeks[0].Week)
	assert.Equal(t, 15.0, *weeks[0].Mean)
	assert.Equal(t, "2025-01-06", weeks[0].FirstDate)
	assert.Equal(t, "2025-01-07", weeks[0].LastDate)
	assert.Equal(t, 2, weeks[0].DataPoints)
	assert.Equal(t, 3, weeks[1].Week)
	assert.Equal(t, 1, weeks[1].DataPoints)

	best, worst := BestWorstWeek(weeks, constants.HigherIsBetter)
	assert.Equal(t, 3, best.Week)
	assert.Equal(t, 2, worst.Week)
	best, _ = BestWorstWeek(weeks, constants.LowerIsBetter)
	assert.Equal(t, 2, best.Week)

	months := MonthAverages(records)
	require.Len(t, months, 1)
	assert.Equal(t, "January", months[0].MonthName)
	assert.InDelta(t, 23.3333, *months[0].Mean, 1e-4)
	assert.Equal(t, 3, months[0].DataPoints)
}

func TestGroupBy_SkipsUnassignedAndSortsByDirection(t *testing.T) {
	records := []storage.IndicatorRecord{
		rec(t, "S1 06-01-2025", "KDF-7", "Ana", storage.Float(10)),
		rec(t, "S1 07-01-2025", "KDF-7", "Ana", storage.Float(30)),
		rec(t, "S1 06-01-2025", "KDF-8", "Luis", storage.Float(5)),
		rec(t, "S1 07-01-2025", "KDF-8", constants.Unassigned, storage.Float(99)),
	}

	ops := GroupBy(records, constants.HigherIsBetter, ByOperator)
	require.Len(t, ops, 2)
	assert.Equal(t, "Ana", ops[0].Key)
	assert.Equal(t, 20.0, *ops[0].Mean)
	assert.Equal(t, 2, ops[0].Count)
	assert.Equal(t, "Luis", ops[1].Key)
	assert.Nil(t, ops[1].Std)

	machines := GroupBy(records, constants.LowerIsBetter, ByMachine)
	require.Len(t, machines, 2)
	assert.Equal(t, "KDF-7", machines[0].Key)
	assert.Equal(t, 52.0, *machines[1].Mean)
}

func TestTrendOf(t *testing.T) {
	rising := []storage.IndicatorRecord{
		rec(t, "S1 06-01-2025", "KDF-7", "Ana", storage.Float(1)),
		rec(t, "S1 07-01-2025", "KDF-7", "Ana", storage.Float(2)),
		rec(t, "S1 08-01-2025", "KDF-7", "Ana", storage.Float(3)),
	}
	assert.Equal(t, TrendImproving, TrendOf(rising, constants.HigherIsBetter))
	assert.Equal(t, TrendWorsening, TrendOf(rising, constants.LowerIsBetter))

	flat := []storage.IndicatorRecord{
		rec(t, "S1 06-01-2025", "KDF-7", "Ana", storage.Float(2)),
		rec(t, "S1 07-01-2025", "KDF-7", "Ana", storage.Float(2)),
	}
	assert.Equal(t, TrendStable, TrendOf(flat, constants.HigherIsBetter))
}

func TestOutliers(t *testing.T) {
	var records []storage.IndicatorRecord
	for _, v := range []float64{10, 11, 12, 11, 10, 12, 80} {
		records = append(records, rec(t, "S1 06-01-2025", "KDF-9", "Ana", storage.Float(v)))
	}

	out := Outliers(records)
	require.Len(t, out, 1)
	assert.Equal(t, 80.0, out[0].Value)
	assert.Equal(t, "KDF-9", out[0].Machine)
}

func TestDataCompleteness(t *testing.T) {
	records := []storage.IndicatorRecord{
		rec(t, "S1 13-01-2025", "KDF-7", "Ana", storage.Float(1)),
		rec(t, "S2 13-01-2025", "KDF-7", "Ana", storage.Float(1)),
		rec(t, "S1 15-01-2025", "KDF-7", "Ana", storage.Float(1)),
	}
	from := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC)

	c := DataCompleteness(records, from, to)

	assert.Equal(t, 4, c.ExpectedDays)
	assert.Equal(t, 2, c.DaysWithData)
	assert.Equal(t, 50.0, *c.CompletenessPct)
	assert.Equal(t, map[string]int{"S1": 2, "S2": 1}, c.RecordsPerShift)
	assert.Equal(t, "2025-01-13", c.MinDate)
	assert.Equal(t, "2025-01-15", c.MaxDate)
}

func TestBuild(t *testing.T) {
	def, _ := constants.Indicator(constants.MTBF)
	records := []storage.IndicatorRecord{
		rec(t, "S1 06-01-2025", "KDF-7", "Ana", storage.Float(100)),
		rec(t, "S2 06-01-2025", "KDF-7", constants.Unassigned, storage.Float(200)),
	}

	report := Build(def, records)

	assert.Equal(t, constants.MTBF, report.Indicator)
	assert.Equal(t, 2, report.Summary.Count)
	assert.Equal(t, 1, report.Unassigned)
	assert.Len(t, report.ByOperator, 1)
	assert.Len(t, report.ByShift, 2)
	assert.Equal(t, "S2", report.ByShift[0].Key)
}
