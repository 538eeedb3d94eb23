package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger internal.Logger
}

func NewPostgresStorage(dsn string, logger internal.Logger) (*PostgresStorage, error) {
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Errorf("failed to connect to postgres: %v", err)
		return nil, err
	}
	s := &PostgresStorage{pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		logger.Errorf("failed to run migrations: %v", err)
		return nil, err
	}
	return s, nil
}

func (p *PostgresStorage) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			date DATE NOT NULL,
			mood TEXT NOT NULL,
			energy INT NOT NULL,
			dream_quality INT NOT NULL,
			sickness INT NOT NULL,
			libido_morning INT NOT NULL,
			libido_night INT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			dream_text TEXT NOT NULL DEFAULT '',
			meals TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS fortunes (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fortunes_user_created ON fortunes (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS reports (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			report_type TEXT NOT NULL,
			period_start DATE NOT NULL,
			period_end DATE NOT NULL,
			status TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, report_type, period_start, period_end)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// --- EntryRepository ---

func (p *PostgresStorage) SaveEntry(ctx context.Context, e *internal.Entry) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO entries
		(id, user_id, date, mood, energy, dream_quality, sickness, libido_morning, libido_night, notes, dream_text, meals, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, date) DO UPDATE SET
			mood = EXCLUDED.mood, energy = EXCLUDED.energy, dream_quality = EXCLUDED.dream_quality,
			sickness = EXCLUDED.sickness, libido_morning = EXCLUDED.libido_morning,
			libido_night = EXCLUDED.libido_night, notes = EXCLUDED.notes,
			dream_text = EXCLUDED.dream_text, meals = EXCLUDED.meals`,
		e.ID, e.UserID, e.Date, e.Mood, e.Energy, e.DreamQuality, e.Sickness,
		e.LibidoMorning, e.LibidoNight, e.Notes, e.DreamText, e.Meals, e.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to upsert entry: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) ListEntriesByDateRange(ctx context.Context, userID string, start, end time.Time) ([]internal.Entry, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, user_id, date, mood, energy, dream_quality, sickness,
			libido_morning, libido_night, notes, dream_text, meals, created_at
		FROM entries WHERE user_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date ASC`,
		userID, start, end)
	if err != nil {
		p.logger.Errorf("failed to query entries: %v", err)
		return nil, err
	}
	defer rows.Close()

	var entries []internal.Entry
	for rows.Next() {
		var e internal.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Mood, &e.Energy, &e.DreamQuality,
			&e.Sickness, &e.LibidoMorning, &e.LibidoNight, &e.Notes, &e.DreamText, &e.Meals, &e.CreatedAt); err != nil {
			p.logger.Errorf("failed to scan entry: %v", err)
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- EventRepository ---

func (p *PostgresStorage) SaveFortune(ctx context.Context, ev *internal.FortuneEvent) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO fortunes (id, user_id, category, created_at) VALUES ($1, $2, $3, $4)`,
		ev.ID, ev.UserID, ev.Category, ev.CreatedAt)
	if err != nil {
		p.logger.Errorf("failed to insert fortune: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) countFortunes(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		p.logger.Errorf("failed to count fortunes: %v", err)
		return 0, err
	}
	return n, nil
}

func (p *PostgresStorage) CountFortunesBefore(ctx context.Context, userID string, t time.Time) (int, error) {
	return p.countFortunes(ctx, `SELECT COUNT(*) FROM fortunes WHERE user_id = $1 AND created_at < $2`, userID, t)
}

func (p *PostgresStorage) CountFortunesWithin(ctx context.Context, userID string, start, end time.Time) (int, error) {
	return p.countFortunes(ctx, `SELECT COUNT(*) FROM fortunes WHERE user_id = $1 AND created_at BETWEEN $2 AND $3`, userID, start, end)
}

func (p *PostgresStorage) CountFortunesThrough(ctx context.Context, userID string, t time.Time) (int, error) {
	return p.countFortunes(ctx, `SELECT COUNT(*) FROM fortunes WHERE user_id = $1 AND created_at <= $2`, userID, t)
}

// --- ReportRepository ---

const reportColumns = `id, user_id, report_type, period_start, period_end, status, content, error_message, created_at, updated_at`

func (p *PostgresStorage) InsertPlaceholder(ctx context.Context, row *internal.ReportRow) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO reports
		(id, user_id, report_type, period_start, period_end, status, content, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.ID, row.UserID, row.ReportType, row.PeriodStart, row.PeriodEnd,
		row.Status, row.Content, row.ErrorMessage, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReport
		}
		p.logger.Errorf("failed to insert report placeholder: %v", err)
		return err
	}
	return nil
}

func (p *PostgresStorage) UpdateReport(ctx context.Context, id, status, content, errorMessage string) error {
	_, err := p.pool.Exec(ctx, `UPDATE reports SET status = $2, content = $3, error_message = $4, updated_at = $5 WHERE id = $1`,
		id, status, content, errorMessage, time.Now().UTC())
	if err != nil {
		p.logger.Errorf("failed to update report %s: %v", id, err)
		return err
	}
	return nil
}

func (p *PostgresStorage) scanReport(row pgx.Row) (*internal.ReportRow, error) {
	var r internal.ReportRow
	err := row.Scan(&r.ID, &r.UserID, &r.ReportType, &r.PeriodStart, &r.PeriodEnd,
		&r.Status, &r.Content, &r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *PostgresStorage) GetReportByKey(ctx context.Context, userID, reportType string, start, end time.Time) (*internal.ReportRow, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE user_id = $1 AND report_type = $2 AND period_start = $3 AND period_end = $4`,
		userID, reportType, start, end)
	return p.scanReport(row)
}

func (p *PostgresStorage) GetReportByID(ctx context.Context, userID, id string) (*internal.ReportRow, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE user_id = $1 AND id = $2`, userID, id)
	return p.scanReport(row)
}

func (p *PostgresStorage) listReports(ctx context.Context, query string, args ...any) ([]internal.ReportRow, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Errorf("failed to query reports: %v", err)
		return nil, err
	}
	defer rows.Close()

	var reports []internal.ReportRow
	for rows.Next() {
		var r internal.ReportRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.ReportType, &r.PeriodStart, &r.PeriodEnd,
			&r.Status, &r.Content, &r.ErrorMessage, &r.CreatedAt, &r.UpdatedAt); err != nil {
			p.logger.Errorf("failed to scan report: %v", err)
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (p *PostgresStorage) ListReportsByYear(ctx context.Context, userID string, year int) ([]internal.ReportRow, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return p.listReports(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE user_id = $1 AND period_start BETWEEN $2 AND $3 ORDER BY period_start DESC`,
		userID, start, end)
}

func (p *PostgresStorage) ListReadyWeeklyReports(ctx context.Context, userID string, start, end time.Time) ([]internal.ReportRow, error) {
	return p.listReports(ctx, `SELECT `+reportColumns+` FROM reports
		WHERE user_id = $1 AND report_type = 'weekly' AND status = 'ready'
		AND period_start >= $2 AND period_end <= $3 ORDER BY period_start ASC`,
		userID, start, end)
}

// --- Compile-time assertions ---
var _ EntryRepository = (*PostgresStorage)(nil)
var _ EventRepository = (*PostgresStorage)(nil)
var _ ReportRepository = (*PostgresStorage)(nil)
