package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// Pattern is an evidenced, confidence-scored behavioral observation. Every
// evidence line references a date/value pair actually present in the
// aggregates.
type Pattern struct {
	Pattern    string   `json:"pattern"`
	Evidence   []string `json:"evidence"`
	Confidence string   `json:"confidence"` // low, medium, high
	Suggestion string   `json:"suggestion"`
	Why        string   `json:"why"`
}

const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

const maxPatterns = 8
const maxEvidence = 3

// Confidence is a deterministic function of evidence count.
func confidenceFor(evidenceCount int) string {
	switch {
	case evidenceCount >= 3:
		return ConfidenceHigh
	case evidenceCount == 2:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// keywordRule links free-text signals to the metrics they tend to move.
type keywordRule struct {
	Name       string
	Keywords   []string
	Metrics    []string
	Suggestion string
	Why        string
}

func (r keywordRule) matches(text string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// The fixed heuristic catalogue. Keyword lists and the 0.6 effect threshold
// are tuned empirically, not derived.
var keywordCatalogue = []keywordRule{
	{
		Name:       "caffeine",
		Keywords:   []string{"coffee", "caffeine", "espresso", "energy drink"},
		Metrics:    []string{MetricEnergy},
		Suggestion: "Try moving caffeine earlier in the day and compare energy.",
		Why:        "Caffeine timing commonly shifts reported energy.",
	},
	{
		Name:       "carbs",
		Keywords:   []string{"pasta", "bread", "pizza", "carbs", "rice"},
		Metrics:    []string{MetricEnergy},
		Suggestion: "Pair heavy-carb meals with protein and note the afternoon dip.",
		Why:        "Carb-heavy days show a different energy average in your log.",
	},
	{
		Name:       "sugar",
		Keywords:   []string{"sugar", "dessert", "cake", "sweets", "candy", "chocolate"},
		Metrics:    []string{MetricMoodScore},
		Suggestion: "Track sugar-free days for a week and compare mood.",
		Why:        "Sugar mentions line up with a mood shift in this period.",
	},
	{
		Name:       "money",
		Keywords:   []string{"money", "rent", "bills", "broke", "salary", "debt"},
		Metrics:    []string{MetricMoodScore},
		Suggestion: "Schedule money admin for one fixed slot instead of letting it bleed into days.",
		Why:        "Days mentioning money read differently in mood.",
	},
	{
		Name:       "relationships",
		Keywords:   []string{"partner", "date", "argument", "friend", "family"},
		Metrics:    []string{MetricMoodScore},
		Suggestion: "Note which interactions precede your better days.",
		Why:        "Relationship mentions track with a mood difference.",
	},
	{
		Name:       "exercise",
		Keywords:   []string{"gym", "run", "workout", "exercise", "yoga", "walk"},
		Metrics:    []string{MetricEnergy},
		Suggestion: "Keep the movement days going; they read differently in your energy.",
		Why:        "Exercise days average a different energy level.",
	},
	{
		Name:       "disruption",
		Keywords:   []string{"dog", "cat", "barking", "noise", "neighbor"},
		Metrics:    []string{MetricDreamQuality},
		Suggestion: "Try earplugs or a white-noise source on disrupted nights.",
		Why:        "Noise/pet mentions coincide with different dream quality.",
	},
	{
		Name:       "alcohol",
		Keywords:   []string{"beer", "wine", "alcohol", "drinks", "hangover", "cocktail"},
		Metrics:    []string{MetricSickness, MetricDreamQuality},
		Suggestion: "Log two alcohol-free evenings and compare how mornings feel.",
		Why:        "Alcohol mentions line up with sickness/dream differences.",
	},
	{
		Name:       "work stress",
		Keywords:   []string{"deadline", "overtime", "boss", "work stress", "meetings"},
		Metrics:    []string{MetricMoodScore, MetricEnergy},
		Suggestion: "Block a hard stop after high-pressure days.",
		Why:        "Work-stress mentions track with mood/energy shifts.",
	},
}

var metricLabels = map[string]string{
	MetricEnergy:        "energy",
	MetricDreamQuality:  "dream quality",
	MetricSickness:      "sickness",
	MetricLibidoMorning: "morning libido",
	MetricLibidoNight:   "night libido",
	MetricMoodScore:     "mood",
}

func evidencePoint(p SeriesPoint) string {
	return fmt.Sprintf("%s: %.1f", internal.DateKey(p.Date), *p.Value)
}

// DetectPatterns runs every deterministic detector over the aggregates.
// Output is de-duplicated, capped at maxPatterns and never empty: when no
// detector fires an explicit "insufficient signal" pattern is emitted.
func DetectPatterns(agg *Aggregates) []Pattern {
	var out []Pattern
	out = append(out, trendPatterns(agg)...)
	out = append(out, correlationPatterns(agg)...)
	out = append(out, anomalyPatterns(agg)...)
	out = append(out, streakPattern(agg)...)
	out = append(out, keywordPatterns(agg)...)
	out = append(out, cyclicalPattern(agg)...)

	out = dedupePatterns(out)
	if len(out) > maxPatterns {
		out = out[:maxPatterns]
	}
	if len(out) == 0 {
		out = append(out, insufficientSignalPattern(agg.EntriesTotal))
	}
	return out
}

func insufficientSignalPattern(entriesTotal int) Pattern {
	why := "Pattern detection needs more data points than this period provides."
	if entriesTotal == 0 {
		why = "No entries were logged this period."
	}
	return Pattern{
		Pattern:    "insufficient signal",
		Evidence:   []string{fmt.Sprintf("entries logged: %d", entriesTotal)},
		Confidence: ConfidenceLow,
		Suggestion: "Log a few more check-ins so the next report can look for real patterns.",
		Why:        why,
	}
}

func dedupePatterns(patterns []Pattern) []Pattern {
	seen := make(map[string]bool, len(patterns))
	out := patterns[:0]
	for _, p := range patterns {
		if len(p.Evidence) == 0 || seen[p.Pattern] {
			continue
		}
		seen[p.Pattern] = true
		out = append(out, p)
	}
	return out
}

func trendPatterns(agg *Aggregates) []Pattern {
	var out []Pattern
	for _, metric := range []string{MetricEnergy, MetricDreamQuality, MetricMoodScore} {
		series := agg.Series[metric]
		label := metricLabels[metric]
		trend := Trend(series)
		if trend == TrendInsufficient || trend == TrendFlat {
			continue
		}

		vals := nonNilValues(series)
		var evidence []string
		for _, p := range series {
			if p.Value != nil {
				evidence = append(evidence, evidencePoint(p))
			}
		}
		if len(evidence) > maxEvidence {
			// First and last points carry the trend; keep the edges.
			evidence = []string{evidence[0], evidence[1], evidence[len(evidence)-1]}
		}

		var why, suggestion string
		switch trend {
		case TrendUp:
			why = fmt.Sprintf("The last days of the period average %.1f against %.1f at the start.", mean(vals[max(0, len(vals)-3):]), mean(vals[:min(3, len(vals))]))
			suggestion = fmt.Sprintf("Whatever changed mid-period helped your %s; note it down.", label)
		case TrendDown:
			why = fmt.Sprintf("The last days of the period average %.1f against %.1f at the start.", mean(vals[max(0, len(vals)-3):]), mean(vals[:min(3, len(vals))]))
			suggestion = fmt.Sprintf("Look at what shifted mid-period; your %s dropped with it.", label)
		case TrendVolatile:
			why = fmt.Sprintf("Standard deviation %.2f across the period.", stdDev(vals))
			suggestion = fmt.Sprintf("Your %s swings a lot day to day; a steadier routine may smooth it.", label)
		}

		out = append(out, Pattern{
			Pattern:    fmt.Sprintf("%s trending %s", label, trend),
			Evidence:   evidence,
			Confidence: confidenceFor(len(evidence)),
			Suggestion: suggestion,
			Why:        why,
		})
	}
	return out
}

var correlationPairs = [][2]string{
	{MetricEnergy, MetricDreamQuality},
	{MetricEnergy, MetricMoodScore},
	{MetricSickness, MetricMoodScore},
	{MetricDreamQuality, MetricMoodScore},
}

func correlationPatterns(agg *Aggregates) []Pattern {
	var out []Pattern
	for _, pair := range correlationPairs {
		a, b := agg.Series[pair[0]], agg.Series[pair[1]]
		r, n := PearsonPaired(a, b)
		if math.Abs(r) < correlationMin || n < 3 {
			continue
		}
		confidence := ConfidenceLow
		if math.Abs(r) >= correlationStrong {
			confidence = ConfidenceMedium
		}

		var evidence []string
		for i := range a {
			if a[i].Value != nil && b[i].Value != nil {
				evidence = append(evidence, fmt.Sprintf("%s: %s=%.1f, %s=%.1f",
					internal.DateKey(a[i].Date), pair[0], *a[i].Value, pair[1], *b[i].Value))
				if len(evidence) == maxEvidence {
					break
				}
			}
		}

		direction := "rise and fall together"
		if r < 0 {
			direction = "move in opposite directions"
		}
		labelA, labelB := metricLabels[pair[0]], metricLabels[pair[1]]
		out = append(out, Pattern{
			Pattern:    fmt.Sprintf("%s and %s are linked", labelA, labelB),
			Evidence:   evidence,
			Confidence: confidence,
			Suggestion: fmt.Sprintf("Treat %s as a lever for %s this period.", labelA, labelB),
			Why:        fmt.Sprintf("%s and %s %s (r=%.2f over %d paired days).", labelA, labelB, direction, r, n),
		})
	}
	return out
}

func anomalyPatterns(agg *Aggregates) []Pattern {
	var out []Pattern
	for _, metric := range []string{MetricEnergy, MetricDreamQuality, MetricMoodScore} {
		anomalies := Anomalies(agg.Series[metric])
		if len(anomalies) == 0 {
			continue
		}
		label := metricLabels[metric]
		var evidence []string
		for _, a := range anomalies {
			evidence = append(evidence, fmt.Sprintf("%s: %.1f (%+.1f vs mean)", internal.DateKey(a.Date), a.Value, a.Delta))
			if len(evidence) == maxEvidence {
				break
			}
		}
		out = append(out, Pattern{
			Pattern:    fmt.Sprintf("outlier days in %s", label),
			Evidence:   evidence,
			Confidence: confidenceFor(len(evidence)),
			Suggestion: fmt.Sprintf("Check what those days had in common; they broke your usual %s range.", label),
			Why:        fmt.Sprintf("%d day(s) sat more than %.1f standard deviations from your period mean.", len(anomalies), anomalySigma),
		})
	}
	return out
}

func streakPattern(agg *Aggregates) []Pattern {
	longest, current := Streaks(agg.Series[MetricEnergy])
	if longest < 3 {
		return nil
	}
	var evidence []string
	run := 0
	for _, p := range agg.Series[MetricEnergy] {
		if p.Value != nil {
			run++
			if run == longest {
				start := p.Date.AddDate(0, 0, -(longest - 1))
				evidence = append(evidence,
					fmt.Sprintf("streak start %s", internal.DateKey(start)),
					fmt.Sprintf("streak end %s", internal.DateKey(p.Date)),
					fmt.Sprintf("%d consecutive days logged", longest))
				break
			}
		} else {
			run = 0
		}
	}
	return []Pattern{{
		Pattern:    fmt.Sprintf("%d-day logging streak", longest),
		Evidence:   evidence,
		Confidence: confidenceFor(len(evidence)),
		Suggestion: "Keep the chain going; streaks are where the correlations come from.",
		Why:        fmt.Sprintf("Longest run of consecutive check-ins this period was %d days (current run: %d).", longest, current),
	}}
}

func keywordPatterns(agg *Aggregates) []Pattern {
	var out []Pattern
	for _, rule := range keywordCatalogue {
		var with, without []DayEntry
		for _, day := range agg.Days {
			if rule.matches(day.Text) {
				with = append(with, day)
			} else {
				without = append(without, day)
			}
		}
		if len(with) < 2 || len(without) < 2 {
			continue
		}
		for _, metric := range rule.Metrics {
			withAvg := dayAverage(with, metric)
			withoutAvg := dayAverage(without, metric)
			diff := withAvg - withoutAvg
			if math.Abs(diff) < keywordEffectMin {
				continue
			}
			label := metricLabels[metric]
			var evidence []string
			for _, day := range with {
				if v, ok := day.Values[metric]; ok {
					evidence = append(evidence, fmt.Sprintf("%s: %s day, %s=%.1f", internal.DateKey(day.Date), rule.Name, metric, v))
					if len(evidence) == maxEvidence {
						break
					}
				}
			}
			direction := "higher"
			if diff < 0 {
				direction = "lower"
			}
			out = append(out, Pattern{
				Pattern:    fmt.Sprintf("%s days shift %s", rule.Name, label),
				Evidence:   evidence,
				Confidence: confidenceFor(len(evidence)),
				Suggestion: rule.Suggestion,
				Why: fmt.Sprintf("%s averages %.2f on %s days vs %.2f otherwise (%s by %.2f). %s",
					label, withAvg, rule.Name, withoutAvg, direction, math.Abs(diff), rule.Why),
			})
		}
	}
	return out
}

func dayAverage(days []DayEntry, metric string) float64 {
	var vals []float64
	for _, d := range days {
		if v, ok := d.Values[metric]; ok {
			vals = append(vals, v)
		}
	}
	return mean(vals)
}

// cyclicalPattern looks for low-mood dates recurring at a 25–35 day spacing.
// Always low confidence; two qualifying pairs is thin evidence by design of
// the detector, not a bug.
func cyclicalPattern(agg *Aggregates) []Pattern {
	var lowDays []DayEntry
	for _, day := range agg.Days {
		if internal.NegativeMoods[day.Mood] {
			lowDays = append(lowDays, day)
		}
	}
	if len(lowDays) < 3 {
		return nil
	}
	var evidence []string
	pairs := 0
	for i := 0; i < len(lowDays); i++ {
		for j := i + 1; j < len(lowDays); j++ {
			gap := int(lowDays[j].Date.Sub(lowDays[i].Date).Hours() / 24)
			if gap >= 25 && gap <= 35 {
				pairs++
				if len(evidence) < maxEvidence {
					evidence = append(evidence, fmt.Sprintf("%s and %s: low mood %d days apart",
						internal.DateKey(lowDays[i].Date), internal.DateKey(lowDays[j].Date), gap))
				}
			}
		}
	}
	if pairs < 2 {
		return nil
	}
	return []Pattern{{
		Pattern:    "possible monthly low-mood cycle",
		Evidence:   evidence,
		Confidence: ConfidenceLow,
		Suggestion: "Mark the next expected window and plan something restorative for it.",
		Why:        fmt.Sprintf("%d pairs of low-mood days sit 25–35 days apart; that spacing can indicate a cycle.", pairs),
	}}
}
