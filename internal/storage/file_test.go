package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

func newTestFileStorage(t *testing.T) *FileStorage {
	dir := t.TempDir()
	s, err := NewFileStorage(
		filepath.Join(dir, "entries.json"),
		filepath.Join(dir, "fortunes.json"),
		filepath.Join(dir, "reports.json"),
		internal.NopLogger(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSaveAndListEntries(t *testing.T) {
	s := newTestFileStorage(t)
	ctx := context.Background()

	for i, d := range []time.Time{day(2026, 1, 7), day(2026, 1, 5), day(2026, 1, 6)} {
		err := s.SaveEntry(ctx, &internal.Entry{
			ID: internal.DateKey(d), UserID: "u1", Date: d,
			Mood: internal.MoodGood, Energy: i + 1, CreatedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	entries, err := s.ListEntriesByDateRange(ctx, "u1", day(2026, 1, 5), day(2026, 1, 6))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Ascending by date.
	assert.Equal(t, day(2026, 1, 5), entries[0].Date)
	assert.Equal(t, day(2026, 1, 6), entries[1].Date)
}

func TestSaveEntryUpsertsByDate(t *testing.T) {
	s := newTestFileStorage(t)
	ctx := context.Background()
	d := day(2026, 1, 5)

	require.NoError(t, s.SaveEntry(ctx, &internal.Entry{ID: "a", UserID: "u1", Date: d, Mood: internal.MoodBad}))
	require.NoError(t, s.SaveEntry(ctx, &internal.Entry{ID: "b", UserID: "u1", Date: d, Mood: internal.MoodGreat}))

	entries, err := s.ListEntriesByDateRange(ctx, "u1", d, d)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, internal.MoodGreat, entries[0].Mood)
}

func TestFortuneCounts(t *testing.T) {
	s := newTestFileStorage(t)
	ctx := context.Background()

	times := []time.Time{
		day(2026, 1, 1).Add(10 * time.Hour),
		day(2026, 1, 6).Add(9 * time.Hour),
		day(2026, 1, 8).Add(20 * time.Hour),
		day(2026, 2, 1).Add(8 * time.Hour),
	}
	for i, at := range times {
		require.NoError(t, s.SaveFortune(ctx, &internal.FortuneEvent{
			ID: string(rune('a' + i)), UserID: "u1", Category: "luck", CreatedAt: at,
		}))
	}

	start := day(2026, 1, 5)
	end := day(2026, 1, 11).Add(24*time.Hour - time.Nanosecond)

	before, err := s.CountFortunesBefore(ctx, "u1", start)
	require.NoError(t, err)
	assert.Equal(t, 1, before)

	within, err := s.CountFortunesWithin(ctx, "u1", start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, within)

	through, err := s.CountFortunesThrough(ctx, "u1", end)
	require.NoError(t, err)
	assert.Equal(t, 3, through)
}

func TestInsertPlaceholderConflict(t *testing.T) {
	s := newTestFileStorage(t)
	ctx := context.Background()

	row := &internal.ReportRow{
		ID: "r1", UserID: "u1", ReportType: internal.ReportWeekly,
		PeriodStart: day(2026, 1, 5), PeriodEnd: day(2026, 1, 11),
		Status: internal.ReportStatusGenerating, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, s.InsertPlaceholder(ctx, row))

	dup := *row
	dup.ID = "r2"
	err := s.InsertPlaceholder(ctx, &dup)
	assert.ErrorIs(t, err, ErrDuplicateReport)

	// The original row is still the one on the key.
	got, err := s.GetReportByKey(ctx, "u1", internal.ReportWeekly, row.PeriodStart, row.PeriodEnd)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
}

func TestUpdateAndGetReport(t *testing.T) {
	s := newTestFileStorage(t)
	ctx := context.Background()

	row := &internal.ReportRow{
		ID: "r1", UserID: "u1", ReportType: internal.ReportWeekly,
		PeriodStart: day(2026, 1, 5), PeriodEnd: day(2026, 1, 11),
		Status: internal.ReportStatusGenerating, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, s.InsertPlaceholder(ctx, row))
	require.NoError(t, s.UpdateReport(ctx, "r1", internal.ReportStatusReady, "ciphertext", ""))

	got, err := s.GetReportByID(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, internal.ReportStatusReady, got.Status)
	assert.Equal(t, "ciphertext", got.Content)

	_, err = s.GetReportByID(ctx, "other-user", "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListReadyWeeklyReports(t *testing.T) {
	s := newTestFileStorage(t)
	ctx := context.Background()

	insert := func(id string, start time.Time, status string) {
		require.NoError(t, s.InsertPlaceholder(ctx, &internal.ReportRow{
			ID: id, UserID: "u1", ReportType: internal.ReportWeekly,
			PeriodStart: start, PeriodEnd: start.AddDate(0, 0, 6), Status: internal.ReportStatusGenerating,
		}))
		require.NoError(t, s.UpdateReport(ctx, id, status, "", ""))
	}
	insert("w1", day(2026, 1, 5), internal.ReportStatusReady)
	insert("w2", day(2026, 1, 12), internal.ReportStatusError)
	insert("w3", day(2026, 1, 19), internal.ReportStatusReady)

	rows, err := s.ListReadyWeeklyReports(ctx, "u1", day(2026, 1, 1), day(2026, 3, 31))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "w1", rows[0].ID)
	assert.Equal(t, "w3", rows[1].ID)
}

func TestSnapshotAndReload(t *testing.T) {
	dir := t.TempDir()
	entriesFile := filepath.Join(dir, "entries.json")
	fortunesFile := filepath.Join(dir, "fortunes.json")
	reportsFile := filepath.Join(dir, "reports.json")

	s, err := NewFileStorage(entriesFile, fortunesFile, reportsFile, internal.NopLogger())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.SaveEntry(ctx, &internal.Entry{ID: "e1", UserID: "u1", Date: day(2026, 1, 5), Mood: internal.MoodOkay}))
	require.NoError(t, s.Close())

	info, err := os.Stat(entriesFile)
	require.NoError(t, err)
	assert.True(t, info.Size() > 0)

	reloaded, err := NewFileStorage(entriesFile, fortunesFile, reportsFile, internal.NopLogger())
	require.NoError(t, err)
	defer reloaded.Close()
	entries, err := reloaded.ListEntriesByDateRange(ctx, "u1", day(2026, 1, 1), day(2026, 1, 31))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
