package storage

import (
	"context"
	"errors"
	"time"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// ErrDuplicateReport is returned by InsertPlaceholder when a row already
// exists for the same (user, report_type, period) key.
var ErrDuplicateReport = errors.New("storage: report already exists for this period")

var ErrNotFound = errors.New("storage: not found")

type EntryRepository interface {
	SaveEntry(ctx context.Context, entry *internal.Entry) error
	// ListEntriesByDateRange returns entries with start <= date <= end,
	// ascending by date. Free-text fields come back as stored (encrypted).
	ListEntriesByDateRange(ctx context.Context, userID string, start, end time.Time) ([]internal.Entry, error)
}

type EventRepository interface {
	SaveFortune(ctx context.Context, event *internal.FortuneEvent) error
	// CountFortunesBefore counts events strictly before t.
	CountFortunesBefore(ctx context.Context, userID string, t time.Time) (int, error)
	// CountFortunesWithin counts events with start <= created_at <= end.
	CountFortunesWithin(ctx context.Context, userID string, start, end time.Time) (int, error)
	// CountFortunesThrough counts all events with created_at <= t.
	CountFortunesThrough(ctx context.Context, userID string, t time.Time) (int, error)
}

type ReportRepository interface {
	// InsertPlaceholder creates a new row; ErrDuplicateReport on key conflict.
	InsertPlaceholder(ctx context.Context, row *internal.ReportRow) error
	UpdateReport(ctx context.Context, id, status, content, errorMessage string) error
	GetReportByKey(ctx context.Context, userID, reportType string, start, end time.Time) (*internal.ReportRow, error)
	GetReportByID(ctx context.Context, userID, id string) (*internal.ReportRow, error)
	ListReportsByYear(ctx context.Context, userID string, year int) ([]internal.ReportRow, error)
	// ListReadyWeeklyReports returns ready weekly rows whose period lies
	// fully inside [start, end], ascending by period_start.
	ListReadyWeeklyReports(ctx context.Context, userID string, start, end time.Time) ([]internal.ReportRow, error)
}
