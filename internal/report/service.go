package report

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/auth"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/crypto"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/llm"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/storage"
)

// FallbackUsed is stored in error_message on a READY report whose AI
// narrative pass failed completely; the content is the deterministic base.
const FallbackUsed = "fallback_used"

// GenerateRequest is the payload of a generation call. Period fields are
// conditional on the report type.
type GenerateRequest struct {
	ReportType string `json:"report_type" validate:"required,oneof=weekly quarterly annual"`
	WeekStart  string `json:"week_start,omitempty" validate:"required_if=ReportType weekly,omitempty,datetime=2006-01-02"`
	Year       int    `json:"year,omitempty" validate:"required_unless=ReportType weekly"`
	Quarter    int    `json:"quarter,omitempty" validate:"required_if=ReportType quarterly,omitempty,min=1,max=4"`
	// Force regenerates a ready report instead of returning the cached row.
	Force bool `json:"force,omitempty"`
}

var validate = validator.New()

// Service runs the full report pipeline: resolve, aggregate, detect,
// compose, narrate, persist.
type Service struct {
	entries storage.EntryRepository
	events  storage.EventRepository
	reports storage.ReportRepository
	cipher  *crypto.Service
	gen     llm.TextGenerator
	logger  internal.Logger
}

func NewService(repos *storage.Repositories, cipher *crypto.Service, gen llm.TextGenerator, logger internal.Logger) *Service {
	return &Service{
		entries: repos.Entries,
		events:  repos.Events,
		reports: repos.Reports,
		cipher:  cipher,
		gen:     gen,
		logger:  logger,
	}
}

// GenerateResult pairs the stored row with its decoded content.
type GenerateResult struct {
	Row   *internal.ReportRow
	Model *ReportModel
	// Cached is true when an existing ready report was returned untouched.
	Cached bool
}

// Generate produces (or returns) the report for the requested period.
// Generation is idempotent on (user, type, period): a ready report is
// returned as-is unless the request forces regeneration, a concurrent
// generation surfaces the in-progress row, and a previously failed row is
// retried.
func (s *Service) Generate(ctx context.Context, user *internal.User, req *GenerateRequest) (*GenerateResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, internal.NewAppError(http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
	}
	if !auth.CanGenerate(user.Tier, req.ReportType) {
		return nil, internal.NewAppError(http.StatusForbidden,
			fmt.Sprintf("%s reports are not available on the %s tier", req.ReportType, user.Tier))
	}

	period, err := ResolvePeriod(req.ReportType, PeriodParams{
		WeekStart: req.WeekStart,
		Year:      req.Year,
		Quarter:   req.Quarter,
	})
	if err != nil {
		return nil, err
	}

	row, owned, err := s.claimRow(ctx, user.ID, period, req.Force)
	if err != nil {
		return nil, err
	}
	if row.Status == internal.ReportStatusReady {
		model, err := s.decodeRow(row)
		if err != nil {
			return nil, err
		}
		return &GenerateResult{Row: row, Model: model, Cached: true}, nil
	}
	if !owned {
		// Another request is generating this period; hand back its row.
		return &GenerateResult{Row: row}, nil
	}

	model, fallback, err := s.runPipeline(ctx, user.ID, period)
	if err != nil {
		s.markError(ctx, row.ID, err)
		return nil, err
	}

	payload, err := model.Encode()
	if err != nil {
		err = stageErr(StageEncode, err)
		s.markError(ctx, row.ID, err)
		return nil, err
	}
	sealed, err := s.cipher.Encrypt(string(payload))
	if err != nil {
		err = stageErr(StageEncrypt, err)
		s.markError(ctx, row.ID, err)
		return nil, err
	}

	errMsg := ""
	if fallback {
		errMsg = FallbackUsed
	}
	if err := s.reports.UpdateReport(ctx, row.ID, internal.ReportStatusReady, sealed, errMsg); err != nil {
		return nil, stageErr(StagePersist, err)
	}

	stored, err := s.reports.GetReportByID(ctx, user.ID, row.ID)
	if err != nil {
		return nil, stageErr(StagePersist, err)
	}
	s.logger.Infof("report %s generated for user %s (%s %s..%s, fallback=%t)",
		stored.ID, user.ID, period.Type, internal.DateKey(period.Start), internal.DateKey(period.End), fallback)
	return &GenerateResult{Row: stored, Model: model}, nil
}

// claimRow finds or creates the row for this period. The unique key on
// (user, type, period) makes the insert the race arbiter: losers recover the
// winner's row instead of erroring. owned reports whether this caller should
// run the pipeline for the returned row. force reclaims a ready row for
// regeneration; a row another request is still generating is never reclaimed.
func (s *Service) claimRow(ctx context.Context, userID string, period Period, force bool) (*internal.ReportRow, bool, error) {
	existing, err := s.reports.GetReportByKey(ctx, userID, period.Type, period.Start, period.End)
	switch {
	case err == nil:
		reclaim := existing.Status == internal.ReportStatusError ||
			(force && existing.Status == internal.ReportStatusReady)
		if reclaim {
			if err := s.reports.UpdateReport(ctx, existing.ID, internal.ReportStatusGenerating, "", ""); err != nil {
				return nil, false, stageErr(StagePersist, err)
			}
			existing.Status = internal.ReportStatusGenerating
			return existing, true, nil
		}
		return existing, false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, false, stageErr(StagePersist, err)
	}

	now := time.Now().UTC()
	row := &internal.ReportRow{
		ID:          uuid.NewString(),
		UserID:      userID,
		ReportType:  period.Type,
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
		Status:      internal.ReportStatusGenerating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.reports.InsertPlaceholder(ctx, row)
	if errors.Is(err, storage.ErrDuplicateReport) {
		// Lost the race; the winner's row is authoritative.
		winner, err := s.reports.GetReportByKey(ctx, userID, period.Type, period.Start, period.End)
		if err != nil {
			return nil, false, stageErr(StagePersist, err)
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, stageErr(StagePersist, err)
	}
	return row, true, nil
}

// markError records the failure stage on the row. The raw cause stays in the
// logs; it is never surfaced to the report's reader.
func (s *Service) markError(ctx context.Context, rowID string, cause error) {
	msg := "generation failed"
	var stage *StageError
	if errors.As(cause, &stage) {
		msg = "failed at stage: " + stage.Stage
	}
	s.logger.Errorf("report %s generation failed: %v", rowID, cause)
	if err := s.reports.UpdateReport(ctx, rowID, internal.ReportStatusError, "", msg); err != nil {
		s.logger.Errorf("failed to mark report %s as errored: %v", rowID, err)
	}
}

func (s *Service) runPipeline(ctx context.Context, userID string, period Period) (*ReportModel, bool, error) {
	var (
		model *ReportModel
		err   error
	)
	switch period.Type {
	case internal.ReportWeekly:
		model, err = s.buildWeekly(ctx, userID, period)
	default:
		model, err = s.buildLongPeriod(ctx, userID, period)
	}
	if err != nil {
		return nil, false, err
	}

	merged, fallback := Narrate(ctx, s.gen, s.logger, model)
	return merged, fallback, nil
}

func (s *Service) buildWeekly(ctx context.Context, userID string, period Period) (*ReportModel, error) {
	agg, err := s.loadAggregates(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	patterns := DetectPatterns(agg)
	quests := ProposeQuests(agg, patterns)
	rollup := BuildWeeklyRollup(agg)
	return BuildBaseModel(agg, patterns, quests, rollup, nil), nil
}

// buildLongPeriod composes quarterly/annual reports from stored weekly
// rollups when every expected week is present, raw entries otherwise.
func (s *Service) buildLongPeriod(ctx context.Context, userID string, period Period) (*ReportModel, error) {
	rows, err := s.reports.ListReadyWeeklyReports(ctx, userID, period.Start, period.End)
	if err != nil {
		return nil, stageErr(StageCompose, err)
	}

	have := make(map[string]*WeeklyRollup, len(rows))
	inputs := &RollupInputs{WeeklyReportsUsed: []string{}, WeeklyReportsMissing: []string{}}
	for _, row := range rows {
		weekly, err := s.decodeRow(&row)
		if err != nil {
			s.logger.Warnf("skipping unreadable weekly report %s: %v", row.ID, err)
			continue
		}
		if weekly.Rollup == nil {
			continue
		}
		have[weekly.Rollup.WeekStart] = weekly.Rollup
	}

	var rollups []*WeeklyRollup
	for d := period.Start; !d.After(period.End); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Monday || d.AddDate(0, 0, 6).After(period.End) {
			continue
		}
		key := internal.DateKey(d)
		if r, ok := have[key]; ok {
			rollups = append(rollups, r)
			inputs.WeeklyReportsUsed = append(inputs.WeeklyReportsUsed, key)
		} else {
			inputs.WeeklyReportsMissing = append(inputs.WeeklyReportsMissing, key)
		}
	}

	expected := ExpectedWeeks(period)
	if expected > 0 && len(rollups) == expected {
		agg := ComposeFromRollups(period, rollups)
		patterns := DetectRollupPatterns(agg)
		quests := ProposeQuests(agg, patterns)
		return BuildBaseModel(agg, patterns, quests, nil, inputs), nil
	}

	// Not every week has a ready report; fall back to raw entries so the
	// long report is still complete.
	inputs.UsedRawFallback = true
	agg, err := s.loadAggregates(ctx, userID, period)
	if err != nil {
		return nil, err
	}
	patterns := DetectPatterns(agg)
	quests := ProposeQuests(agg, patterns)
	return BuildBaseModel(agg, patterns, quests, nil, inputs), nil
}

// loadAggregates fetches and decrypts raw entries and fans out the three
// fortune counts concurrently.
func (s *Service) loadAggregates(ctx context.Context, userID string, period Period) (*Aggregates, error) {
	entries, err := s.entries.ListEntriesByDateRange(ctx, userID, period.Start, period.End)
	if err != nil {
		return nil, stageErr(StageAggregate, err)
	}
	for i := range entries {
		entries[i].Notes = s.decryptField(entries[i].ID, "notes", entries[i].Notes)
		entries[i].DreamText = s.decryptField(entries[i].ID, "dream_text", entries[i].DreamText)
		entries[i].Meals = s.decryptField(entries[i].ID, "meals", entries[i].Meals)
	}

	endOfDay := period.EndOfDay()
	var counts FortuneCounts
	errs := make(chan error, 3)
	go func() {
		n, err := s.events.CountFortunesBefore(ctx, userID, period.Start)
		counts.Before = n
		errs <- err
	}()
	go func() {
		n, err := s.events.CountFortunesWithin(ctx, userID, period.Start, endOfDay)
		counts.InPeriod = n
		errs <- err
	}()
	go func() {
		n, err := s.events.CountFortunesThrough(ctx, userID, endOfDay)
		counts.Cumulative = n
		errs <- err
	}()
	for i := 0; i < 3; i++ {
		if err := <-errs; err != nil {
			return nil, stageErr(StageAggregate, err)
		}
	}

	return BuildAggregates(period, entries, counts), nil
}

// decryptField degrades per field: an unreadable ciphertext is dropped from
// the report rather than failing the whole generation.
func (s *Service) decryptField(entryID, field, value string) string {
	plain, err := s.cipher.Decrypt(value)
	if err != nil {
		s.logger.Warnf("entry %s: cannot decrypt %s, omitting from report: %v", entryID, field, err)
		return ""
	}
	return plain
}

func (s *Service) decodeRow(row *internal.ReportRow) (*ReportModel, error) {
	plain, err := s.cipher.Decrypt(row.Content)
	if err != nil {
		return nil, fmt.Errorf("decrypt report %s: %w", row.ID, err)
	}
	return Decode([]byte(plain))
}

// GetReport returns a stored report with its decoded content when ready.
func (s *Service) GetReport(ctx context.Context, user *internal.User, id string) (*internal.ReportRow, *ReportModel, error) {
	row, err := s.reports.GetReportByID(ctx, user.ID, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, internal.NewAppError(http.StatusNotFound, "report not found")
	}
	if err != nil {
		return nil, nil, err
	}
	if row.Status != internal.ReportStatusReady {
		return row, nil, nil
	}
	model, err := s.decodeRow(row)
	if err != nil {
		return nil, nil, err
	}
	return row, model, nil
}

// ReportSummary is the list-view projection of a report row.
type ReportSummary struct {
	ID           string    `json:"id"`
	ReportType   string    `json:"report_type"`
	PeriodStart  string    `json:"period_start"`
	PeriodEnd    string    `json:"period_end"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListReports returns summaries of the user's reports whose period starts in
// the given year. Content is never included in the listing.
func (s *Service) ListReports(ctx context.Context, user *internal.User, year int) ([]ReportSummary, error) {
	rows, err := s.reports.ListReportsByYear(ctx, user.ID, year)
	if err != nil {
		return nil, err
	}
	out := make([]ReportSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, ReportSummary{
			ID:           row.ID,
			ReportType:   row.ReportType,
			PeriodStart:  internal.DateKey(row.PeriodStart),
			PeriodEnd:    internal.DateKey(row.PeriodEnd),
			Status:       row.Status,
			ErrorMessage: row.ErrorMessage,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return out, nil
}
