package report

import (
	"fmt"
	"time"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// Period is a resolved, inclusive [Start, End] date range in UTC.
type Period struct {
	Type  string    `json:"type"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Title string    `json:"title"`
}

// PeriodParams carries the type-specific request parameters.
type PeriodParams struct {
	WeekStart string
	Year      int
	Quarter   int
}

// ResolvePeriod turns a report-type request into a canonical date range and
// title. Weekly weeks run Monday through Sunday; quarters and years are
// calendar-aligned UTC ranges.
func ResolvePeriod(reportType string, p PeriodParams) (Period, error) {
	switch reportType {
	case internal.ReportWeekly:
		start, err := time.ParseInLocation("2006-01-02", p.WeekStart, time.UTC)
		if err != nil {
			return Period{}, internal.NewAppError(400, fmt.Sprintf("week_start %q is not a valid YYYY-MM-DD date", p.WeekStart))
		}
		if start.Weekday() != time.Monday {
			return Period{}, internal.NewAppError(400, fmt.Sprintf("week_start %q must be a Monday", p.WeekStart))
		}
		return Period{
			Type:  internal.ReportWeekly,
			Start: start,
			End:   start.AddDate(0, 0, 6),
			Title: "Week of " + start.Format("Jan 2, 2006"),
		}, nil

	case internal.ReportQuarterly:
		if p.Year < 2000 || p.Year > 2100 {
			return Period{}, internal.NewAppError(400, fmt.Sprintf("year %d is out of range", p.Year))
		}
		if p.Quarter < 1 || p.Quarter > 4 {
			return Period{}, internal.NewAppError(400, fmt.Sprintf("quarter %d must be between 1 and 4", p.Quarter))
		}
		start := time.Date(p.Year, time.Month((p.Quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return Period{
			Type:  internal.ReportQuarterly,
			Start: start,
			End:   start.AddDate(0, 3, 0).AddDate(0, 0, -1),
			Title: fmt.Sprintf("Q%d %d", p.Quarter, p.Year),
		}, nil

	case internal.ReportAnnual:
		if p.Year < 2000 || p.Year > 2100 {
			return Period{}, internal.NewAppError(400, fmt.Sprintf("year %d is out of range", p.Year))
		}
		return Period{
			Type:  internal.ReportAnnual,
			Start: time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(p.Year, time.December, 31, 0, 0, 0, 0, time.UTC),
			Title: fmt.Sprintf("%d", p.Year),
		}, nil
	}
	return Period{}, internal.NewAppError(400, fmt.Sprintf("unknown report type %q", reportType))
}

// Days returns the number of calendar days the period spans.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// EndOfDay is the last instant of the period, for timestamp comparisons.
func (p Period) EndOfDay() time.Time {
	return p.End.Add(24*time.Hour - time.Nanosecond)
}

// ExpectedWeeks counts the Monday-to-Sunday weeks that fit fully inside the
// period; this is the rollup coverage target for quarterly/annual reports.
func ExpectedWeeks(p Period) int {
	n := 0
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Monday && !d.AddDate(0, 0, 6).After(p.End) {
			n++
		}
	}
	return n
}
