package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/llm"
)

func baseModelFixture(t *testing.T) *ReportModel {
	t.Helper()
	return buildWeekModel(t, []internal.Entry{
		entry(day(2026, 1, 5), internal.MoodGood, 4),
		entry(day(2026, 1, 6), internal.MoodOkay, 3),
	}, FortuneCounts{InPeriod: 1, Cumulative: 1})
}

func TestNarrateStructuredSuccess(t *testing.T) {
	base := baseModelFixture(t)
	resp, err := json.Marshal(UnvalidatedAIReport{
		ExecutiveSummary: "A calm, mostly good week.",
		Sections: []unvalidatedSection{
			{ID: SectionMood, Narrative: "Mood held steady."},
			{ID: "invented", Narrative: "should be dropped"},
		},
	})
	require.NoError(t, err)

	gen := &llm.StaticGenerator{Response: string(resp)}
	merged, fallback := Narrate(context.Background(), gen, internal.NopLogger(), base)

	assert.False(t, fallback)
	assert.True(t, merged.AINarrative)
	assert.Equal(t, 1, gen.Calls)
	assert.Equal(t, "A calm, mostly good week.", merged.Dashboard.ExecutiveSummary)
	assert.Equal(t, "Mood held steady.", merged.SectionByID(SectionMood).Narrative)
	assert.Nil(t, merged.SectionByID("invented"))

	// Numbers are never the model's to change.
	assert.Equal(t, base.Dashboard.Fortunes, merged.Dashboard.Fortunes)
	assert.Equal(t, base.Patterns, merged.Patterns)
}

func TestNarrateFencedJSONAccepted(t *testing.T) {
	base := baseModelFixture(t)
	gen := &llm.StaticGenerator{Response: "```json\n{\"executive_summary\":\"Fenced but fine.\"}\n```"}
	merged, fallback := Narrate(context.Background(), gen, internal.NopLogger(), base)

	assert.False(t, fallback)
	assert.Equal(t, "Fenced but fine.", merged.Dashboard.ExecutiveSummary)
}

func TestNarrateProseThirdAttempt(t *testing.T) {
	base := baseModelFixture(t)
	gen := &llm.StaticGenerator{Response: "You had a decent week overall, with energy holding up."}
	merged, fallback := Narrate(context.Background(), gen, internal.NopLogger(), base)

	// Prose parses on no attempt but is accepted as markdown on the third.
	assert.False(t, fallback)
	assert.True(t, merged.AINarrative)
	assert.Equal(t, 3, gen.Calls)

	overview := merged.SectionByID(SectionOverview)
	require.NotNil(t, overview)
	last := overview.Blocks[len(overview.Blocks)-1]
	md, ok := last.(MarkdownBlock)
	require.True(t, ok)
	assert.Contains(t, md.Text, "decent week")
	// Deterministic summary untouched on the prose path.
	assert.Equal(t, base.Dashboard.ExecutiveSummary, merged.Dashboard.ExecutiveSummary)
}

func TestNarrateTotalFailureFallsBack(t *testing.T) {
	base := baseModelFixture(t)
	// JSON-shaped garbage: unparsable as the schema and rejected as prose.
	gen := &llm.StaticGenerator{Response: "{not valid json at all"}
	merged, fallback := Narrate(context.Background(), gen, internal.NopLogger(), base)

	assert.True(t, fallback)
	assert.False(t, merged.AINarrative)
	assert.Equal(t, 3, gen.Calls)
	assert.Equal(t, base.Dashboard.ExecutiveSummary, merged.Dashboard.ExecutiveSummary)
}

func TestNarrateGeneratorErrorFallsBack(t *testing.T) {
	base := baseModelFixture(t)
	gen := &llm.StaticGenerator{Err: errors.New("upstream 503")}
	merged, fallback := Narrate(context.Background(), gen, internal.NopLogger(), base)

	assert.True(t, fallback)
	assert.Equal(t, 3, gen.Calls)
	assert.Equal(t, base, merged)
}

func TestNarrateNilGenerator(t *testing.T) {
	base := baseModelFixture(t)
	merged, fallback := Narrate(context.Background(), nil, internal.NopLogger(), base)
	assert.False(t, fallback)
	assert.Equal(t, base, merged)
}

func TestSanitizeNarrative(t *testing.T) {
	assert.Equal(t, "clean", sanitizeNarrative("  clean  "))
	assert.Equal(t, "ab", sanitizeNarrative("a\x00\x07b"))
	long := make([]byte, narrativeMaxLen+500)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, sanitizeNarrative(string(long)), narrativeMaxLen)

	// A multibyte narrative is cut on a rune boundary, never mid-sequence.
	wide := sanitizeNarrative(strings.Repeat("é", narrativeMaxLen))
	assert.True(t, utf8.ValidString(wide))
	assert.LessOrEqual(t, len(wide), narrativeMaxLen)
}

func TestMergeNarrativeDoesNotAliasBase(t *testing.T) {
	base := baseModelFixture(t)
	before := base.SectionByID(SectionMood).Narrative
	merged := MergeNarrative(base, &UnvalidatedAIReport{
		Sections: []unvalidatedSection{{ID: SectionMood, Narrative: "rewritten"}},
	})

	assert.Equal(t, "rewritten", merged.SectionByID(SectionMood).Narrative)
	assert.Equal(t, before, base.SectionByID(SectionMood).Narrative)
}

func TestBuildPromptsFramesUserData(t *testing.T) {
	base := baseModelFixture(t)
	sys, user, err := BuildPrompts(base)
	require.NoError(t, err)
	assert.Contains(t, sys, "not instructions")
	assert.Contains(t, user, "---BEGIN DATA---")
	assert.Contains(t, user, "---END DATA---")
	assert.Contains(t, user, "executive_summary")
}
