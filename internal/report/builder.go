package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// Section ids. The AI merge matches sections by these, so they are part of
// the storage contract.
const (
	SectionOverview   = "overview"
	SectionMood       = "mood"
	SectionMetrics    = "metrics"
	SectionPatterns   = "patterns"
	SectionFortunes   = "fortunes"
	SectionQuests     = "quests"
	SectionHighlights = "highlights"
)

// BuildBaseModel assembles the complete deterministic report. Every number a
// reader sees comes from here; the AI pass only rewrites narrative text.
func BuildBaseModel(agg *Aggregates, patterns []Pattern, quests []Quest, rollup *WeeklyRollup, inputs *RollupInputs) *ReportModel {
	m := &ReportModel{
		SchemaVersion: SchemaVersion,
		ReportType:    agg.Period.Type,
		PeriodStart:   internal.DateKey(agg.Period.Start),
		PeriodEnd:     internal.DateKey(agg.Period.End),
		GeneratedAt:   time.Now().UTC(),
		Title:         agg.Period.Title,
		Dashboard: Dashboard{
			Signature:        Signature(agg, patterns),
			ExecutiveSummary: executiveSummary(agg, patterns),
			Fortunes:         agg.Fortunes,
		},
		Patterns:     patterns,
		Quests:       quests,
		Future:       futureContext(agg, patterns, quests),
		Rollup:       rollup,
		RollupInputs: inputs,
	}

	m.Sections = []Section{
		overviewSection(agg),
		moodSection(agg),
		metricsSection(agg),
		patternsSection(patterns),
		fortunesSection(agg),
		questsSection(quests),
		highlightsSection(agg),
	}
	return m
}

func executiveSummary(agg *Aggregates, patterns []Pattern) string {
	if agg.EntriesTotal == 0 {
		return fmt.Sprintf("No entries were logged for %s. This report carries the structure only; log a few days and regenerate for real insight.", agg.Period.Title)
	}
	parts := []string{
		fmt.Sprintf("You logged %d of %d days in %s.", agg.EntriesTotal, agg.Period.Days(), agg.Period.Title),
	}
	if mood := agg.DominantMood(); mood != "" {
		parts = append(parts, fmt.Sprintf("The most common mood was %s.", mood))
	}
	if avg := agg.Averages[MetricEnergy]; avg != nil {
		parts = append(parts, fmt.Sprintf("Energy averaged %.1f.", *avg))
	}
	if len(patterns) > 0 && patterns[0].Pattern != "insufficient signal" {
		parts = append(parts, fmt.Sprintf("Strongest signal: %s.", patterns[0].Pattern))
	}
	return strings.Join(parts, " ")
}

func futureContext(agg *Aggregates, patterns []Pattern, quests []Quest) FutureContext {
	fc := FutureContext{}
	for _, p := range patterns {
		if p.Pattern == "insufficient signal" {
			continue
		}
		fc.WatchFor = append(fc.WatchFor, p.Pattern)
		if len(fc.WatchFor) == 3 {
			break
		}
	}
	for _, q := range quests {
		fc.NextSteps = append(fc.NextSteps, q.Title)
		if len(fc.NextSteps) == 3 {
			break
		}
	}
	if len(fc.WatchFor) == 0 {
		fc.WatchFor = []string{"logging consistency"}
	}
	return fc
}

func overviewSection(agg *Aggregates) Section {
	coverage := "0%"
	if days := agg.Period.Days(); days > 0 {
		coverage = fmt.Sprintf("%d%%", agg.EntriesTotal*100/days)
	}
	blocks := Blocks{
		StatCardBlock{Label: "Entries", Value: fmt.Sprintf("%d", agg.EntriesTotal)},
		StatCardBlock{Label: "Coverage", Value: coverage},
		StatCardBlock{Label: "Notes", Value: fmt.Sprintf("%d", agg.NotesCount)},
		StatCardBlock{Label: "Dreams", Value: fmt.Sprintf("%d", agg.DreamsCount)},
		StatCardBlock{Label: "Meals", Value: fmt.Sprintf("%d", agg.MealsCount)},
	}
	if agg.EntriesTotal == 0 {
		blocks = append(blocks, CalloutBlock{
			Tone: "info",
			Text: "Nothing was logged this period, so charts and patterns are empty.",
		})
	}
	return Section{
		ID:        SectionOverview,
		Title:     "Overview",
		Narrative: executiveSummary(agg, nil),
		Blocks:    blocks,
	}
}

func moodSection(agg *Aggregates) Section {
	labels := make([]string, 0, len(internal.Moods))
	values := make([]int, 0, len(internal.Moods))
	for _, mood := range internal.Moods {
		labels = append(labels, mood)
		values = append(values, agg.MoodCounts[mood])
	}
	blocks := Blocks{
		BarChartBlock{Title: "Mood distribution", Labels: labels, Values: values},
	}
	if share := agg.NegativeMoodShare(); agg.EntriesTotal > 0 && share >= questNegativeShare {
		blocks = append(blocks, CalloutBlock{
			Tone: "warning",
			Text: fmt.Sprintf("%.0f%% of logged days were low or bad mood.", share*100),
		})
	}
	narrative := "No mood data for this period."
	if mood := agg.DominantMood(); mood != "" {
		narrative = fmt.Sprintf("Your dominant mood was %s across %d logged day(s).", mood, agg.EntriesTotal)
	}
	return Section{ID: SectionMood, Title: "Mood", Narrative: narrative, Blocks: blocks}
}

func metricsSection(agg *Aggregates) Section {
	labels := make([]string, 0, agg.Period.Days())
	for _, p := range agg.Series[MetricEnergy] {
		labels = append(labels, internal.DateKey(p.Date))
	}

	var series []ChartSeries
	for _, metric := range allMetrics {
		points := make([]*float64, 0, len(agg.Series[metric]))
		for _, p := range agg.Series[metric] {
			points = append(points, p.Value)
		}
		series = append(series, ChartSeries{Name: metric, Points: points})
	}

	rows := make([][]string, 0, len(allMetrics))
	for _, metric := range allMetrics {
		avg := "—"
		if v := agg.Averages[metric]; v != nil {
			avg = fmt.Sprintf("%.2f", *v)
		}
		trend := Trend(agg.Series[metric])
		rows = append(rows, []string{metricLabels[metric], avg, trend})
	}

	blocks := Blocks{
		LineChartBlock{Title: "Daily metrics", Labels: labels, Series: series},
		TableBlock{Title: "Averages", Columns: []string{"metric", "average", "trend"}, Rows: rows},
	}
	if from, to, delta, ok := BiggestSwing(agg.Series[MetricEnergy]); ok && math.Abs(delta) >= 2 {
		blocks = append(blocks, CalloutBlock{
			Tone: "info",
			Text: fmt.Sprintf("Biggest energy swing: %s (%.0f) to %s (%.0f).",
				internal.DateKey(from.Date), *from.Value, internal.DateKey(to.Date), *to.Value),
		})
	}
	return Section{
		ID:        SectionMetrics,
		Title:     "Metrics",
		Narrative: "Daily values with period averages and trend direction per metric.",
		Blocks:    blocks,
	}
}

func patternsSection(patterns []Pattern) Section {
	rows := make([][]string, 0, len(patterns))
	for _, p := range patterns {
		rows = append(rows, []string{p.Pattern, p.Confidence, strings.Join(p.Evidence, "; ")})
	}
	return Section{
		ID:        SectionPatterns,
		Title:     "Patterns",
		Narrative: fmt.Sprintf("%d pattern(s) detected this period.", len(patterns)),
		Blocks: Blocks{
			TableBlock{Columns: []string{"pattern", "confidence", "evidence"}, Rows: rows},
		},
	}
}

func fortunesSection(agg *Aggregates) Section {
	f := agg.Fortunes
	return Section{
		ID:        SectionFortunes,
		Title:     "Fortunes",
		Narrative: fmt.Sprintf("You logged %d fortune event(s) this period, bringing your total to %d.", f.InPeriod, f.Cumulative),
		Blocks: Blocks{
			StatCardBlock{Label: "Before period", Value: fmt.Sprintf("%d", f.Before)},
			StatCardBlock{Label: "This period", Value: fmt.Sprintf("%d", f.InPeriod)},
			StatCardBlock{Label: "All time", Value: fmt.Sprintf("%d", f.Cumulative)},
		},
	}
}

func questsSection(quests []Quest) Section {
	narrative := "No quests this period; keep doing what you're doing."
	if len(quests) > 0 {
		narrative = fmt.Sprintf("%d quest(s) proposed from this period's data.", len(quests))
	}
	return Section{
		ID:        SectionQuests,
		Title:     "Quests",
		Narrative: narrative,
		Blocks:    Blocks{QuestListBlock{Quests: quests}},
	}
}

func highlightsSection(agg *Aggregates) Section {
	items := agg.Highlights
	narrative := "Moments worth remembering from your notes."
	if len(items) == 0 {
		items = []string{}
		narrative = "No highlights captured this period."
	}
	// Keyword themes round out the section when present.
	blocks := Blocks{BulletListBlock{Title: "Highlights", Items: items}}
	if len(agg.KeywordHits) > 0 {
		names := make([]string, 0, len(agg.KeywordHits))
		for name := range agg.KeywordHits {
			names = append(names, name)
		}
		sort.Strings(names)
		themed := make([]string, 0, len(names))
		for _, name := range names {
			themed = append(themed, fmt.Sprintf("%s (%d)", name, agg.KeywordHits[name]))
		}
		blocks = append(blocks, BulletListBlock{Title: "Recurring themes", Items: themed})
	}
	return Section{ID: SectionHighlights, Title: "Highlights", Narrative: narrative, Blocks: blocks}
}
