package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

// FileStorage keeps everything in memory and debounces JSON snapshots to
// disk. Suitable for development and tests; postgres is the production
// backend.
type FileStorage struct {
	entries      map[string]map[string]*internal.Entry // userID -> dateKey -> Entry
	fortunes     map[string][]*internal.FortuneEvent   // userID -> events sorted ascending
	reports      map[string]*internal.ReportRow        // id -> row
	reportKeys   map[string]string                     // composite key -> id
	mu           sync.RWMutex
	entriesFile  string
	fortunesFile string
	reportsFile  string
	saveChan     chan struct{}
	shutdownChan chan struct{}
	saveDelay    time.Duration
	logger       internal.Logger
}

func NewFileStorage(entriesFile, fortunesFile, reportsFile string, logger internal.Logger) (*FileStorage, error) {
	s := &FileStorage{
		entries:      make(map[string]map[string]*internal.Entry),
		fortunes:     make(map[string][]*internal.FortuneEvent),
		reports:      make(map[string]*internal.ReportRow),
		reportKeys:   make(map[string]string),
		entriesFile:  entriesFile,
		fortunesFile: fortunesFile,
		reportsFile:  reportsFile,
		saveChan:     make(chan struct{}, 1),
		shutdownChan: make(chan struct{}),
		saveDelay:    500 * time.Millisecond,
		logger:       logger,
	}

	if err := s.load(); err != nil {
		logger.Errorf("storage: failed to load data files: %v", err)
		return nil, err
	}

	go s.saveWorker()

	return s, nil
}

func reportKey(userID, reportType string, start, end time.Time) string {
	return userID + "|" + reportType + "|" + internal.DateKey(start) + "|" + internal.DateKey(end)
}

func decodeJSONFile[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var items []T
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

func (s *FileStorage) load() error {
	entries, err := decodeJSONFile[*internal.Entry](s.entriesFile)
	if err != nil {
		return err
	}
	fortunes, err := decodeJSONFile[*internal.FortuneEvent](s.fortunesFile)
	if err != nil {
		return err
	}
	reports, err := decodeJSONFile[*internal.ReportRow](s.reportsFile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if s.entries[e.UserID] == nil {
			s.entries[e.UserID] = make(map[string]*internal.Entry)
		}
		s.entries[e.UserID][internal.DateKey(e.Date)] = e
	}
	for _, f := range fortunes {
		s.fortunes[f.UserID] = append(s.fortunes[f.UserID], f)
	}
	for userID := range s.fortunes {
		evs := s.fortunes[userID]
		sort.Slice(evs, func(i, j int) bool { return evs[i].CreatedAt.Before(evs[j].CreatedAt) })
	}
	for _, r := range reports {
		s.reports[r.ID] = r
		s.reportKeys[reportKey(r.UserID, r.ReportType, r.PeriodStart, r.PeriodEnd)] = r.ID
	}
	return nil
}

func atomicWriteFileJSON(filePath string, data interface{}) error {
	tempFile := filePath + ".tmp"
	f, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempFile)
		return err
	}

	if err := f.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, filePath)
}

func (s *FileStorage) snapshot() error {
	s.mu.RLock()
	entries := make([]*internal.Entry, 0)
	for _, byDate := range s.entries {
		for _, e := range byDate {
			entries = append(entries, e)
		}
	}
	fortunes := make([]*internal.FortuneEvent, 0)
	for _, evs := range s.fortunes {
		fortunes = append(fortunes, evs...)
	}
	reports := make([]*internal.ReportRow, 0, len(s.reports))
	for _, r := range s.reports {
		reports = append(reports, r)
	}
	s.mu.RUnlock()

	if err := atomicWriteFileJSON(s.entriesFile, entries); err != nil {
		return err
	}
	if err := atomicWriteFileJSON(s.fortunesFile, fortunes); err != nil {
		return err
	}
	return atomicWriteFileJSON(s.reportsFile, reports)
}

func (s *FileStorage) saveWorker() {
	timer := time.NewTimer(s.saveDelay)
	defer timer.Stop()

	for {
		select {
		case <-s.saveChan:
			timer.Reset(s.saveDelay)
		case <-timer.C:
			if err := s.snapshot(); err != nil {
				s.logger.Errorf("storage: error writing snapshot: %v", err)
			}
		case <-s.shutdownChan:
			return
		}
	}
}

func (s *FileStorage) markDirty() {
	select {
	case s.saveChan <- struct{}{}:
	default:
	}
}

func (s *FileStorage) Close() error {
	close(s.shutdownChan)
	return s.snapshot()
}

// --- EntryRepository ---

func (s *FileStorage) SaveEntry(ctx context.Context, e *internal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[e.UserID] == nil {
		s.entries[e.UserID] = make(map[string]*internal.Entry)
	}
	s.entries[e.UserID][internal.DateKey(e.Date)] = e
	s.markDirty()
	return nil
}

func (s *FileStorage) ListEntriesByDateRange(ctx context.Context, userID string, start, end time.Time) ([]internal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byDate, ok := s.entries[userID]
	if !ok {
		return []internal.Entry{}, nil
	}
	var out []internal.Entry
	for _, e := range byDate {
		if !e.Date.Before(start) && !e.Date.After(end) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if out == nil {
		out = []internal.Entry{}
	}
	return out, nil
}

// --- EventRepository ---

func (s *FileStorage) SaveFortune(ctx context.Context, ev *internal.FortuneEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	evs := s.fortunes[ev.UserID]
	evs = append(evs, ev)
	sort.Slice(evs, func(i, j int) bool { return evs[i].CreatedAt.Before(evs[j].CreatedAt) })
	s.fortunes[ev.UserID] = evs
	s.markDirty()
	return nil
}

func (s *FileStorage) countFortunes(userID string, match func(time.Time) bool) int {
	n := 0
	for _, ev := range s.fortunes[userID] {
		if match(ev.CreatedAt) {
			n++
		}
	}
	return n
}

func (s *FileStorage) CountFortunesBefore(ctx context.Context, userID string, t time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countFortunes(userID, func(at time.Time) bool { return at.Before(t) }), nil
}

func (s *FileStorage) CountFortunesWithin(ctx context.Context, userID string, start, end time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countFortunes(userID, func(at time.Time) bool {
		return !at.Before(start) && !at.After(end)
	}), nil
}

func (s *FileStorage) CountFortunesThrough(ctx context.Context, userID string, t time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countFortunes(userID, func(at time.Time) bool { return !at.After(t) }), nil
}

// --- ReportRepository ---

func (s *FileStorage) InsertPlaceholder(ctx context.Context, row *internal.ReportRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reportKey(row.UserID, row.ReportType, row.PeriodStart, row.PeriodEnd)
	if _, exists := s.reportKeys[key]; exists {
		return ErrDuplicateReport
	}
	clone := *row
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	clone.UpdatedAt = clone.CreatedAt
	s.reports[row.ID] = &clone
	s.reportKeys[key] = row.ID
	s.markDirty()
	return nil
}

func (s *FileStorage) UpdateReport(ctx context.Context, id, status, content, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.Content = content
	r.ErrorMessage = errorMessage
	r.UpdatedAt = time.Now().UTC()
	s.markDirty()
	return nil
}

func (s *FileStorage) GetReportByKey(ctx context.Context, userID, reportType string, start, end time.Time) (*internal.ReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.reportKeys[reportKey(userID, reportType, start, end)]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s.reports[id]
	return &clone, nil
}

func (s *FileStorage) GetReportByID(ctx context.Context, userID, id string) (*internal.ReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok || r.UserID != userID {
		return nil, ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *FileStorage) ListReportsByYear(ctx context.Context, userID string, year int) ([]internal.ReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.ReportRow
	for _, r := range s.reports {
		if r.UserID == userID && r.PeriodStart.Year() == year {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	if out == nil {
		out = []internal.ReportRow{}
	}
	return out, nil
}

func (s *FileStorage) ListReadyWeeklyReports(ctx context.Context, userID string, start, end time.Time) ([]internal.ReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.ReportRow
	for _, r := range s.reports {
		if r.UserID == userID && r.ReportType == internal.ReportWeekly && r.Status == internal.ReportStatusReady &&
			!r.PeriodStart.Before(start) && !r.PeriodEnd.After(end) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	if out == nil {
		out = []internal.ReportRow{}
	}
	return out, nil
}

// --- Compile-time assertions ---
var _ EntryRepository = (*FileStorage)(nil)
var _ EventRepository = (*FileStorage)(nil)
var _ ReportRepository = (*FileStorage)(nil)
