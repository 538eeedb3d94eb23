package report

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// Metric names used across series, averages and rollups.
const (
	MetricEnergy        = "energy"
	MetricDreamQuality  = "dream_quality"
	MetricSickness      = "sickness"
	MetricLibidoMorning = "libido_morning"
	MetricLibidoNight   = "libido_night"
	MetricMoodScore     = "mood_score"
)

// EntryMetrics are the metrics recorded directly on an entry; MetricMoodScore
// is derived from the categorical mood.
var EntryMetrics = []string{MetricEnergy, MetricDreamQuality, MetricSickness, MetricLibidoMorning, MetricLibidoNight}

var allMetrics = append(append([]string{}, EntryMetrics...), MetricMoodScore)

const maxHighlights = 3
const highlightMaxLen = 80

// Embedded structured markers like "[mood: good]" that older clients wrote
// into free text; stripped before any content counting or keyword matching.
var markerPattern = regexp.MustCompile(`\[[a-z_]+:[^\]]*\]`)

// moodScores maps the categorical mood onto a 1–5 scale for trend and
// correlation math.
var moodScores = map[string]float64{
	internal.MoodGreat: 5,
	internal.MoodGood:  4,
	internal.MoodOkay:  3,
	internal.MoodLow:   2,
	internal.MoodBad:   1,
}

// FortuneCounts are the three event aggregates shown on every report.
type FortuneCounts struct {
	Before     int `json:"before"`
	InPeriod   int `json:"in_period"`
	Cumulative int `json:"cumulative"`
}

// DayEntry is the decrypted, analysis-ready view of one entry.
type DayEntry struct {
	Date   time.Time
	Mood   string
	Values map[string]float64
	Text   string // lowercased notes+dream+meals with markers stripped
}

// Aggregates is everything the deterministic detectors and the model builder
// consume. Series maps metric name to a dense daily series covering every
// calendar day of the period.
type Aggregates struct {
	Period       Period
	EntriesTotal int
	MoodCounts   map[string]int
	Averages     map[string]*float64
	NotesCount   int
	DreamsCount  int
	MealsCount   int
	Highlights   []string
	Series       map[string][]SeriesPoint
	Fortunes     FortuneCounts
	KeywordHits  map[string]int
	Days         []DayEntry
}

// StripMarkers removes embedded structured markers from free text.
func StripMarkers(s string) string {
	return strings.TrimSpace(markerPattern.ReplaceAllString(s, ""))
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > highlightMaxLen {
		return strings.TrimSpace(truncateRunes(s, highlightMaxLen)) + "…"
	}
	return s
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// BuildAggregates computes all deterministic aggregates for a period from
// already-decrypted entries. Entries must be sorted ascending by date.
func BuildAggregates(period Period, entries []internal.Entry, counts FortuneCounts) *Aggregates {
	agg := &Aggregates{
		Period:       period,
		EntriesTotal: len(entries),
		MoodCounts:   make(map[string]int),
		Averages:     make(map[string]*float64),
		Series:       make(map[string][]SeriesPoint),
		Fortunes:     counts,
		KeywordHits:  make(map[string]int),
	}

	byDate := make(map[string]*internal.Entry, len(entries))
	for i := range entries {
		e := &entries[i]
		byDate[internal.DateKey(e.Date)] = e

		agg.MoodCounts[e.Mood]++

		notes := StripMarkers(e.Notes)
		dream := StripMarkers(e.DreamText)
		meals := StripMarkers(e.Meals)
		if notes != "" {
			agg.NotesCount++
		}
		if dream != "" {
			agg.DreamsCount++
		}
		if meals != "" {
			agg.MealsCount++
		}
		if len(agg.Highlights) < maxHighlights {
			for _, candidate := range []string{notes, dream, meals} {
				if candidate != "" {
					agg.Highlights = append(agg.Highlights, snippet(candidate))
					break
				}
			}
		}

		values := map[string]float64{
			MetricEnergy:        float64(e.Energy),
			MetricDreamQuality:  float64(e.DreamQuality),
			MetricSickness:      float64(e.Sickness),
			MetricLibidoMorning: float64(e.LibidoMorning),
			MetricLibidoNight:   float64(e.LibidoNight),
		}
		if score, ok := moodScores[e.Mood]; ok {
			values[MetricMoodScore] = score
		}
		agg.Days = append(agg.Days, DayEntry{
			Date:   e.Date,
			Mood:   e.Mood,
			Values: values,
			Text:   strings.ToLower(strings.Join([]string{notes, dream, meals}, " ")),
		})
	}

	// Dense daily series: one point per calendar day, nil where no entry.
	for _, metric := range allMetrics {
		series := make([]SeriesPoint, 0, period.Days())
		for d := period.Start; !d.After(period.End); d = d.AddDate(0, 0, 1) {
			point := SeriesPoint{Date: d}
			if e, ok := byDate[internal.DateKey(d)]; ok {
				switch metric {
				case MetricMoodScore:
					if score, ok := moodScores[e.Mood]; ok {
						point.Value = &score
					}
				case MetricEnergy:
					v := float64(e.Energy)
					point.Value = &v
				case MetricDreamQuality:
					v := float64(e.DreamQuality)
					point.Value = &v
				case MetricSickness:
					v := float64(e.Sickness)
					point.Value = &v
				case MetricLibidoMorning:
					v := float64(e.LibidoMorning)
					point.Value = &v
				case MetricLibidoNight:
					v := float64(e.LibidoNight)
					point.Value = &v
				}
			}
			series = append(series, point)
		}
		agg.Series[metric] = series
	}

	// Averages from the non-nil series values, 2-decimal rounded, nil when
	// there are no samples.
	for _, metric := range allMetrics {
		vals := nonNilValues(agg.Series[metric])
		if len(vals) == 0 {
			agg.Averages[metric] = nil
			continue
		}
		avg := round2(mean(vals))
		agg.Averages[metric] = &avg
	}

	// Signal-keyword hit counts, consumed by weekly rollups.
	for _, rule := range keywordCatalogue {
		for _, day := range agg.Days {
			if rule.matches(day.Text) {
				agg.KeywordHits[rule.Name]++
			}
		}
	}

	return agg
}

// NegativeMoodShare is the fraction of entries with a negative mood; zero
// when there are no entries.
func (a *Aggregates) NegativeMoodShare() float64 {
	if a.EntriesTotal == 0 {
		return 0
	}
	neg := 0
	for mood, n := range a.MoodCounts {
		if internal.NegativeMoods[mood] {
			neg += n
		}
	}
	return float64(neg) / float64(a.EntriesTotal)
}

// DominantMood is the most frequent mood, ties broken by the fixed mood
// order; empty when there are no entries.
func (a *Aggregates) DominantMood() string {
	best := ""
	bestN := 0
	for _, mood := range internal.Moods {
		if n := a.MoodCounts[mood]; n > bestN {
			best, bestN = mood, n
		}
	}
	return best
}
