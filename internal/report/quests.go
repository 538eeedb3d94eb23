package report

import (
	"fmt"
	"sort"
	"strings"
)

// Quest difficulty grades. The set is fixed; every rule assigns one.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Quest is a concrete, checkable action suggested from this period's data.
// Target is the numeric goal in the metric's own unit.
type Quest struct {
	Title      string  `json:"title"`
	Why        string  `json:"why"`
	Metric     string  `json:"metric"`
	Target     float64 `json:"target"`
	Difficulty string  `json:"difficulty"`
}

const maxQuests = 6

// Thresholds for the quest rule table.
const (
	questMinEntries    = 4
	questMinDreams     = 3
	questNegativeShare = 0.6
	questLowEnergyAvg  = 2.5
	questStreakMin     = 3
)

// ProposeQuests applies the fixed rule table to the aggregates. Results are
// capped at maxQuests and de-duplicated on (metric, target).
func ProposeQuests(agg *Aggregates, patterns []Pattern) []Quest {
	var out []Quest

	days := agg.Period.Days()
	if agg.EntriesTotal < questMinEntries {
		out = append(out, Quest{
			Title:      "Log at least 4 check-ins next period",
			Why:        fmt.Sprintf("Only %d of %d days had an entry; patterns need more signal.", agg.EntriesTotal, days),
			Metric:     "entries",
			Target:     questMinEntries,
			Difficulty: DifficultyEasy,
		})
	}

	if agg.MealsCount == 0 && agg.EntriesTotal > 0 {
		out = append(out, Quest{
			Title:      "Note one meal per logged day",
			Why:        "No meals were recorded, so food-related patterns can't be checked.",
			Metric:     "meals",
			Target:     1,
			Difficulty: DifficultyEasy,
		})
	}

	if agg.DreamsCount < questMinDreams && agg.EntriesTotal >= questMinDreams {
		out = append(out, Quest{
			Title:      "Capture three dreams next period",
			Why:        fmt.Sprintf("Only %d dream note(s) this period; dream quality tracking is running blind.", agg.DreamsCount),
			Metric:     "dreams",
			Target:     questMinDreams,
			Difficulty: DifficultyMedium,
		})
	}

	if agg.EntriesTotal >= questMinEntries && agg.NegativeMoodShare() >= questNegativeShare {
		out = append(out, Quest{
			Title:      "Plan one restorative block per week",
			Why:        fmt.Sprintf("%.0f%% of logged days were low or bad mood; aim under %.0f%%.", agg.NegativeMoodShare()*100, questNegativeShare*100),
			Metric:     MetricMoodScore,
			Target:     questNegativeShare,
			Difficulty: DifficultyMedium,
		})
	}

	if avg := agg.Averages[MetricEnergy]; avg != nil && *avg <= questLowEnergyAvg && agg.EntriesTotal >= questMinEntries {
		out = append(out, Quest{
			Title:      "Get morning light before screens for a week",
			Why:        fmt.Sprintf("Average energy was %.2f this period; push it above %.1f.", *avg, questLowEnergyAvg),
			Metric:     MetricEnergy,
			Target:     questLowEnergyAvg,
			Difficulty: DifficultyHard,
		})
	}

	if longest, current := Streaks(agg.Series[MetricEnergy]); longest >= questStreakMin && current > 0 {
		out = append(out, Quest{
			Title:      fmt.Sprintf("Extend your streak past %d days", longest),
			Why:        fmt.Sprintf("You're on a %d-day run with a best of %d this period.", current, longest),
			Metric:     "streak",
			Target:     float64(longest + 1),
			Difficulty: DifficultyHard,
		})
	}

	// Pattern-driven quests: any keyword pattern that fired gets a follow-up
	// experiment next period.
	for _, p := range patterns {
		if p.Suggestion == "" || !strings.Contains(p.Pattern, "days shift") {
			continue
		}
		out = append(out, Quest{
			Title:      p.Suggestion,
			Why:        p.Why,
			Metric:     "keyword:" + p.Pattern,
			Target:     1,
			Difficulty: DifficultyMedium,
		})
	}

	out = dedupeQuests(out)
	if len(out) > maxQuests {
		out = out[:maxQuests]
	}
	return out
}

func dedupeQuests(quests []Quest) []Quest {
	seen := make(map[string]bool, len(quests))
	out := quests[:0]
	for _, q := range quests {
		key := fmt.Sprintf("%s|%g", q.Metric, q.Target)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

// Signature distills the period into three short tags for the report header.
// Falls back to neutral words when the period is too empty to characterize.
func Signature(agg *Aggregates, patterns []Pattern) []string {
	var tags []string

	if agg.EntriesTotal == 0 {
		return []string{"quiet", "unlogged", "blank"}
	}

	if mood := agg.DominantMood(); mood != "" {
		tags = append(tags, mood)
	}

	switch Trend(agg.Series[MetricEnergy]) {
	case TrendUp:
		tags = append(tags, "energizing")
	case TrendDown:
		tags = append(tags, "draining")
	case TrendVolatile:
		tags = append(tags, "turbulent")
	}

	// Most-hit keyword rule, ties broken alphabetically.
	if len(agg.KeywordHits) > 0 {
		names := make([]string, 0, len(agg.KeywordHits))
		for name := range agg.KeywordHits {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if agg.KeywordHits[names[i]] != agg.KeywordHits[names[j]] {
				return agg.KeywordHits[names[i]] > agg.KeywordHits[names[j]]
			}
			return names[i] < names[j]
		})
		tags = append(tags, names[0])
	}

	if agg.Fortunes.InPeriod > 0 {
		tags = append(tags, "fortunate")
	}

	for _, filler := range []string{"steady", "observant", "tracked"} {
		if len(tags) >= 3 {
			break
		}
		tags = append(tags, filler)
	}
	return tags[:3]
}
