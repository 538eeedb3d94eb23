package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

func TestResolveWeekly(t *testing.T) {
	p, err := ResolvePeriod(internal.ReportWeekly, PeriodParams{WeekStart: "2026-01-05"})
	require.NoError(t, err)
	assert.Equal(t, internal.ReportWeekly, p.Type)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC), p.End)
	assert.Equal(t, 7, p.Days())
}

func TestResolveWeeklyRejectsNonMonday(t *testing.T) {
	_, err := ResolvePeriod(internal.ReportWeekly, PeriodParams{WeekStart: "2026-01-06"})
	require.Error(t, err)
	appErr, ok := err.(*internal.AppError)
	require.True(t, ok)
	assert.Equal(t, 400, appErr.Code)
}

func TestResolveWeeklyRejectsBadDate(t *testing.T) {
	for _, input := range []string{"", "2026-13-01", "05-01-2026", "garbage"} {
		_, err := ResolvePeriod(internal.ReportWeekly, PeriodParams{WeekStart: input})
		assert.Error(t, err, "input %q", input)
	}
}

func TestResolveQuarterly(t *testing.T) {
	cases := []struct {
		quarter    int
		start, end time.Time
	}{
		{1, day(2026, 1, 1), day(2026, 3, 31)},
		{2, day(2026, 4, 1), day(2026, 6, 30)},
		{3, day(2026, 7, 1), day(2026, 9, 30)},
		{4, day(2026, 10, 1), day(2026, 12, 31)},
	}
	for _, tc := range cases {
		p, err := ResolvePeriod(internal.ReportQuarterly, PeriodParams{Year: 2026, Quarter: tc.quarter})
		require.NoError(t, err)
		assert.Equal(t, tc.start, p.Start, "Q%d start", tc.quarter)
		assert.Equal(t, tc.end, p.End, "Q%d end", tc.quarter)
	}
}

func TestResolveQuarterlyRejectsBadQuarter(t *testing.T) {
	for _, q := range []int{0, 5, -1} {
		_, err := ResolvePeriod(internal.ReportQuarterly, PeriodParams{Year: 2026, Quarter: q})
		assert.Error(t, err, "quarter %d", q)
	}
}

func TestResolveAnnual(t *testing.T) {
	p, err := ResolvePeriod(internal.ReportAnnual, PeriodParams{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, day(2025, 1, 1), p.Start)
	assert.Equal(t, day(2025, 12, 31), p.End)
	assert.Equal(t, 365, p.Days())
}

func TestResolveLeapYearAnnual(t *testing.T) {
	p, err := ResolvePeriod(internal.ReportAnnual, PeriodParams{Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, 366, p.Days())
}

func TestResolveRejectsYearOutOfRange(t *testing.T) {
	for _, y := range []int{1999, 2101, 0} {
		_, err := ResolvePeriod(internal.ReportAnnual, PeriodParams{Year: y})
		assert.Error(t, err, "year %d", y)
	}
}

func TestResolveUnknownType(t *testing.T) {
	_, err := ResolvePeriod("monthly", PeriodParams{})
	assert.Error(t, err)
}

func TestEndOfDay(t *testing.T) {
	p, err := ResolvePeriod(internal.ReportWeekly, PeriodParams{WeekStart: "2026-01-05"})
	require.NoError(t, err)
	end := p.EndOfDay()
	assert.True(t, end.After(p.End))
	assert.True(t, end.Before(day(2026, 1, 12)))
}

func TestExpectedWeeks(t *testing.T) {
	// Q1 2026: Jan 1 is a Thursday; first full week starts Mon Jan 5 and
	// the last one that fits ends Sun Mar 29.
	p, err := ResolvePeriod(internal.ReportQuarterly, PeriodParams{Year: 2026, Quarter: 1})
	require.NoError(t, err)
	assert.Equal(t, 12, ExpectedWeeks(p))

	// 2026 starts on a Thursday: first full week begins Jan 5, last ends
	// Dec 27, leaving 51 complete weeks.
	annual, err := ResolvePeriod(internal.ReportAnnual, PeriodParams{Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, 51, ExpectedWeeks(annual))

	week, err := ResolvePeriod(internal.ReportWeekly, PeriodParams{WeekStart: "2026-01-05"})
	require.NoError(t, err)
	assert.Equal(t, 1, ExpectedWeeks(week))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
