package report

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

func weekOf(t *testing.T, weekStart string) Period {
	t.Helper()
	p, err := ResolvePeriod(internal.ReportWeekly, PeriodParams{WeekStart: weekStart})
	require.NoError(t, err)
	return p
}

func entry(date time.Time, mood string, energy int) internal.Entry {
	return internal.Entry{
		ID:           internal.DateKey(date),
		UserID:       "u1",
		Date:         date,
		Mood:         mood,
		Energy:       energy,
		DreamQuality: 5,
	}
}

func TestBuildAggregatesDenseSeries(t *testing.T) {
	period := weekOf(t, "2026-01-05")
	entries := []internal.Entry{
		entry(day(2026, 1, 5), internal.MoodGood, 3),
		entry(day(2026, 1, 7), internal.MoodLow, 1),
	}

	agg := BuildAggregates(period, entries, FortuneCounts{Before: 2, InPeriod: 1, Cumulative: 3})

	require.Len(t, agg.Series[MetricEnergy], 7)
	assert.NotNil(t, agg.Series[MetricEnergy][0].Value)
	assert.Nil(t, agg.Series[MetricEnergy][1].Value)
	assert.NotNil(t, agg.Series[MetricEnergy][2].Value)
	for i := 3; i < 7; i++ {
		assert.Nil(t, agg.Series[MetricEnergy][i].Value, "day %d", i)
	}

	assert.Equal(t, 2, agg.EntriesTotal)
	assert.Equal(t, 1, agg.MoodCounts[internal.MoodGood])
	assert.Equal(t, 1, agg.MoodCounts[internal.MoodLow])
	assert.Equal(t, FortuneCounts{Before: 2, InPeriod: 1, Cumulative: 3}, agg.Fortunes)
}

func TestBuildAggregatesAverages(t *testing.T) {
	period := weekOf(t, "2026-01-05")
	entries := []internal.Entry{
		entry(day(2026, 1, 5), internal.MoodGood, 1),
		entry(day(2026, 1, 6), internal.MoodGood, 2),
		entry(day(2026, 1, 7), internal.MoodGood, 4),
	}

	agg := BuildAggregates(period, entries, FortuneCounts{})

	require.NotNil(t, agg.Averages[MetricEnergy])
	assert.Equal(t, 2.33, *agg.Averages[MetricEnergy])
	// Mood "good" scores 4.
	require.NotNil(t, agg.Averages[MetricMoodScore])
	assert.Equal(t, 4.0, *agg.Averages[MetricMoodScore])
}

func TestBuildAggregatesEmptyPeriod(t *testing.T) {
	period := weekOf(t, "2026-01-05")
	agg := BuildAggregates(period, nil, FortuneCounts{})

	assert.Zero(t, agg.EntriesTotal)
	assert.Nil(t, agg.Averages[MetricEnergy])
	require.Len(t, agg.Series[MetricMoodScore], 7)
	for _, p := range agg.Series[MetricMoodScore] {
		assert.Nil(t, p.Value)
	}
	assert.Empty(t, agg.Highlights)
	assert.Zero(t, agg.NegativeMoodShare())
	assert.Empty(t, agg.DominantMood())
}

func TestStripMarkers(t *testing.T) {
	assert.Equal(t, "slept well", StripMarkers("[mood: good] slept well [energy:3]"))
	assert.Equal(t, "", StripMarkers("[note:]"))
	assert.Equal(t, "plain text", StripMarkers("plain text"))
}

func TestContentCountsIgnoreMarkerOnlyFields(t *testing.T) {
	period := weekOf(t, "2026-01-05")
	e := entry(day(2026, 1, 5), internal.MoodOkay, 3)
	e.Notes = "[mood: okay]"
	e.DreamText = "flying over the city"
	agg := BuildAggregates(period, []internal.Entry{e}, FortuneCounts{})

	assert.Zero(t, agg.NotesCount)
	assert.Equal(t, 1, agg.DreamsCount)
	assert.Zero(t, agg.MealsCount)
}

func TestHighlightsCapAndTruncate(t *testing.T) {
	period := weekOf(t, "2026-01-05")
	long := strings.Repeat("a", 120)
	var entries []internal.Entry
	for i := 0; i < 5; i++ {
		e := entry(day(2026, 1, 5+i), internal.MoodGood, 3)
		e.Notes = long
		entries = append(entries, e)
	}
	agg := BuildAggregates(period, entries, FortuneCounts{})

	require.Len(t, agg.Highlights, 3)
	for _, h := range agg.Highlights {
		assert.LessOrEqual(t, len([]rune(h)), highlightMaxLen+1)
		assert.True(t, strings.HasSuffix(h, "…"))
	}
}

func TestHighlightTruncateKeepsRunesIntact(t *testing.T) {
	period := weekOf(t, "2026-01-05")
	// 79 ASCII bytes then a 3-byte rune straddling the 80-byte cut point.
	e := entry(day(2026, 1, 5), internal.MoodGood, 3)
	e.Notes = strings.Repeat("a", highlightMaxLen-1) + "日本語"
	agg := BuildAggregates(period, []internal.Entry{e}, FortuneCounts{})

	require.Len(t, agg.Highlights, 1)
	h := agg.Highlights[0]
	assert.True(t, utf8.ValidString(h), "truncation must not split a rune: %q", h)
	assert.True(t, strings.HasSuffix(h, "…"))
}

func TestKeywordHits(t *testing.T) {
	period := weekOf(t, "2026-01-05")
	e1 := entry(day(2026, 1, 5), internal.MoodGood, 4)
	e1.Notes = "Morning coffee then gym session"
	e2 := entry(day(2026, 1, 6), internal.MoodOkay, 3)
	e2.Meals = "pasta with too much wine"
	agg := BuildAggregates(period, []internal.Entry{e1, e2}, FortuneCounts{})

	assert.Equal(t, 1, agg.KeywordHits["caffeine"])
	assert.Equal(t, 1, agg.KeywordHits["exercise"])
	assert.Equal(t, 1, agg.KeywordHits["carbs"])
	assert.Equal(t, 1, agg.KeywordHits["alcohol"])
	assert.Zero(t, agg.KeywordHits["money"])
}

func TestNegativeMoodShare(t *testing.T) {
	period := weekOf(t, "2026-01-05")
	entries := []internal.Entry{
		entry(day(2026, 1, 5), internal.MoodBad, 1),
		entry(day(2026, 1, 6), internal.MoodLow, 2),
		entry(day(2026, 1, 7), internal.MoodGreat, 5),
		entry(day(2026, 1, 8), internal.MoodGood, 4),
	}
	agg := BuildAggregates(period, entries, FortuneCounts{})
	assert.InDelta(t, 0.5, agg.NegativeMoodShare(), 1e-9)
}

func TestDominantMoodTieBreak(t *testing.T) {
	period := weekOf(t, "2026-01-05")
	entries := []internal.Entry{
		entry(day(2026, 1, 5), internal.MoodOkay, 3),
		entry(day(2026, 1, 6), internal.MoodGood, 3),
	}
	agg := BuildAggregates(period, entries, FortuneCounts{})
	// Ties resolve in the fixed mood order: good before okay.
	assert.Equal(t, internal.MoodGood, agg.DominantMood())
}
