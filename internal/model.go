package internal

import "time"

// Mood values recorded on an entry.
const (
	MoodGreat = "great"
	MoodGood  = "good"
	MoodOkay  = "okay"
	MoodLow   = "low"
	MoodBad   = "bad"
)

// Moods lists every accepted mood value.
var Moods = []string{MoodGreat, MoodGood, MoodOkay, MoodLow, MoodBad}

// NegativeMoods are the moods counted toward the negative-mood share.
var NegativeMoods = map[string]bool{MoodLow: true, MoodBad: true}

type User struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
	Tier  string `json:"tier"` // free, premium
}

// Entry is one calendar day's lifestyle record. The three free-text fields
// are stored encrypted; everything else is plain.
type Entry struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Date          time.Time `json:"date"` // UTC midnight, unique per user
	Mood          string    `json:"mood"`
	Energy        int       `json:"energy"`         // 0–5
	DreamQuality  int       `json:"dream_quality"`  // 1–10
	Sickness      int       `json:"sickness"`       // 0–5
	LibidoMorning int       `json:"libido_morning"` // 0–5
	LibidoNight   int       `json:"libido_night"`   // 0–5
	Notes         string    `json:"notes,omitempty"`
	DreamText     string    `json:"dream_text,omitempty"`
	Meals         string    `json:"meals,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// FortuneEvent is a discrete logged occurrence; the report engine only ever
// consumes these through aggregate counts.
type FortuneEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Report row lifecycle states.
const (
	ReportStatusGenerating = "generating"
	ReportStatusReady      = "ready"
	ReportStatusError      = "error"
)

// Report types.
const (
	ReportWeekly    = "weekly"
	ReportQuarterly = "quarterly"
	ReportAnnual    = "annual"
)

// ReportRow is the persisted report record. Content holds the encrypted
// report model JSON. At most one row exists per
// (user_id, report_type, period_start, period_end).
type ReportRow struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ReportType   string    `json:"report_type"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
	Status       string    `json:"status"`
	Content      string    `json:"content,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func NewAppError(code int, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// DateKey formats a time as the canonical YYYY-MM-DD day key.
func DateKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// Day truncates a time to UTC midnight.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
