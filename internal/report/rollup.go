package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// WeeklyRollup is the per-week summary stored inside a ready weekly report
// and consumed when composing quarterly/annual reports.
type WeeklyRollup struct {
	WeekStart    string              `json:"week_start"`
	EntriesTotal int                 `json:"entries_total"`
	MoodCounts   map[string]int      `json:"mood_counts"`
	Averages     map[string]*float64 `json:"averages"`
	NotesCount   int                 `json:"notes_count"`
	DreamsCount  int                 `json:"dreams_count"`
	MealsCount   int                 `json:"meals_count"`
	Highlights   []string            `json:"highlights"`
	KeywordHits  map[string]int      `json:"keyword_hits"`
	Fortunes     FortuneCounts       `json:"fortunes"`
}

// RollupInputs records the provenance of a composed long-period report:
// which weekly reports fed it and whether the composer had to fall back to
// raw entries.
type RollupInputs struct {
	WeeklyReportsUsed    []string `json:"weekly_reports_used"`
	WeeklyReportsMissing []string `json:"weekly_reports_missing"`
	UsedRawFallback      bool     `json:"used_raw_fallback"`
}

// BuildWeeklyRollup distills a weekly period's aggregates into the rollup
// embedded in its report content.
func BuildWeeklyRollup(agg *Aggregates) *WeeklyRollup {
	return &WeeklyRollup{
		WeekStart:    internal.DateKey(agg.Period.Start),
		EntriesTotal: agg.EntriesTotal,
		MoodCounts:   agg.MoodCounts,
		Averages:     agg.Averages,
		NotesCount:   agg.NotesCount,
		DreamsCount:  agg.DreamsCount,
		MealsCount:   agg.MealsCount,
		Highlights:   agg.Highlights,
		KeywordHits:  agg.KeywordHits,
		Fortunes:     agg.Fortunes,
	}
}

// ComposeFromRollups merges the rollups of a long period's full weeks into a
// single Aggregates. Rollups must be sorted by week start ascending; counts
// sum, averages are entry-weighted and ignore weeks without data for a
// metric. Daily series are not reconstructed; long-period pattern detection
// runs on rollup-level signals instead.
func ComposeFromRollups(period Period, rollups []*WeeklyRollup) *Aggregates {
	agg := &Aggregates{
		Period:      period,
		MoodCounts:  make(map[string]int),
		Averages:    make(map[string]*float64),
		Series:      make(map[string][]SeriesPoint),
		KeywordHits: make(map[string]int),
	}

	weightSum := make(map[string]int)
	weighted := make(map[string]float64)

	for _, r := range rollups {
		agg.EntriesTotal += r.EntriesTotal
		agg.NotesCount += r.NotesCount
		agg.DreamsCount += r.DreamsCount
		agg.MealsCount += r.MealsCount
		for mood, n := range r.MoodCounts {
			agg.MoodCounts[mood] += n
		}
		for name, n := range r.KeywordHits {
			agg.KeywordHits[name] += n
		}
		for metric, avg := range r.Averages {
			if avg == nil || r.EntriesTotal == 0 {
				continue
			}
			weighted[metric] += *avg * float64(r.EntriesTotal)
			weightSum[metric] += r.EntriesTotal
		}
		agg.Highlights = append(agg.Highlights, r.Highlights...)

		// One series point per week at the week-average level so trend
		// detection still has something to look at.
		weekStart, err := time.Parse("2006-01-02", r.WeekStart)
		if err != nil {
			continue
		}
		for metric, avg := range r.Averages {
			point := SeriesPoint{Date: weekStart}
			if avg != nil {
				v := *avg
				point.Value = &v
			}
			agg.Series[metric] = append(agg.Series[metric], point)
		}
	}

	for metric, sum := range weighted {
		if weightSum[metric] == 0 {
			continue
		}
		v := round2(sum / float64(weightSum[metric]))
		agg.Averages[metric] = &v
	}
	for _, metric := range allMetrics {
		if _, ok := agg.Averages[metric]; !ok {
			agg.Averages[metric] = nil
		}
		sort.Slice(agg.Series[metric], func(i, j int) bool {
			return agg.Series[metric][i].Date.Before(agg.Series[metric][j].Date)
		})
	}

	if len(agg.Highlights) > maxHighlights {
		agg.Highlights = agg.Highlights[:maxHighlights]
	}

	// Fortune counts: earliest week supplies the before-period baseline,
	// in-period sums, and the latest week already carries the cumulative.
	if len(rollups) > 0 {
		agg.Fortunes.Before = rollups[0].Fortunes.Before
		for _, r := range rollups {
			agg.Fortunes.InPeriod += r.Fortunes.InPeriod
		}
		agg.Fortunes.Cumulative = rollups[len(rollups)-1].Fortunes.Cumulative
	}

	return agg
}

// DetectRollupPatterns runs the detectors that remain meaningful at weekly
// granularity: trends and keyword accumulation. Daily-resolution detectors
// (anomalies, streaks, cycles) need raw entries and are skipped here.
func DetectRollupPatterns(agg *Aggregates) []Pattern {
	var out []Pattern
	out = append(out, trendPatterns(agg)...)

	// Keyword hits accumulated across many weeks are a signal on their own
	// even without a per-day split.
	type hit struct {
		name string
		n    int
	}
	var hits []hit
	for name, n := range agg.KeywordHits {
		if n >= 3 {
			hits = append(hits, hit{name, n})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].n != hits[j].n {
			return hits[i].n > hits[j].n
		}
		return hits[i].name < hits[j].name
	})
	for _, h := range hits {
		var rule keywordRule
		for _, r := range keywordCatalogue {
			if r.Name == h.name {
				rule = r
				break
			}
		}
		out = append(out, Pattern{
			Pattern:    fmt.Sprintf("recurring theme: %s", h.name),
			Evidence:   []string{fmt.Sprintf("%d mention(s) across the period's weeks", h.n)},
			Confidence: ConfidenceLow,
			Suggestion: rule.Suggestion,
			Why:        fmt.Sprintf("%s came up %d times across the period.", h.name, h.n),
		})
	}

	out = dedupePatterns(out)
	if len(out) > maxPatterns {
		out = out[:maxPatterns]
	}
	if len(out) == 0 {
		out = append(out, insufficientSignalPattern(agg.EntriesTotal))
	}
	return out
}
