package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/auth"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/crypto"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/llm"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/report"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/storage"
)

type testApp struct {
	logger  internal.Logger
	repos   *storage.Repositories
	cipher  *crypto.Service
	reports *report.Service
}

func (a *testApp) Logger() internal.Logger          { return a.logger }
func (a *testApp) Reports() *report.Service         { return a.reports }
func (a *testApp) Entries() storage.EntryRepository { return a.repos.Entries }
func (a *testApp) Events() storage.EventRepository  { return a.repos.Events }
func (a *testApp) Cipher() *crypto.Service          { return a.cipher }

const testToken = "TEST-TOKEN"

func newTestRouter(t *testing.T) (*gin.Engine, *testApp) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	repos, err := storage.NewFileRepositories(
		filepath.Join(dir, "entries.json"),
		filepath.Join(dir, "fortunes.json"),
		filepath.Join(dir, "reports.json"),
		internal.NopLogger(),
	)
	require.NoError(t, err)

	cipher, err := crypto.NewService("test-passphrase", "")
	require.NoError(t, err)

	app := &testApp{
		logger: internal.NopLogger(),
		repos:  repos,
		cipher: cipher,
		reports: report.NewService(repos, cipher,
			&llm.StaticGenerator{Response: `{"executive_summary":"ok"}`}, internal.NopLogger()),
	}
	provider := auth.NewLocalAuthProvider(testToken, internal.NopLogger())
	return NewRouter(app, provider), app
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func validEntry(date string) map[string]any {
	return map[string]any{
		"date": date, "mood": "good", "energy": 4, "dream_quality": 7,
		"sickness": 0, "libido_morning": 2, "libido_night": 3,
		"notes": "quiet day, morning coffee",
	}
}

func TestAuthRequired(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/reports", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthzOpen(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSaveEntryEncryptsFreeText(t *testing.T) {
	r, app := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/entries", validEntry("2026-01-05"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	entries, err := app.Entries().ListEntriesByDateRange(context.Background(), "u1",
		mustDay("2026-01-05"), mustDay("2026-01-05"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEqual(t, "quiet day, morning coffee", entries[0].Notes)
	assert.Contains(t, entries[0].Notes, "enc:v1:")

	plain, err := app.Cipher().Decrypt(entries[0].Notes)
	require.NoError(t, err)
	assert.Equal(t, "quiet day, morning coffee", plain)
}

func TestSaveEntryValidation(t *testing.T) {
	r, _ := newTestRouter(t)
	cases := []map[string]any{
		{"mood": "good", "energy": 3, "dream_quality": 5},
		{"date": "2026-01-05", "mood": "ecstatic", "energy": 3, "dream_quality": 5},
		{"date": "2026-01-05", "mood": "good", "energy": 9, "dream_quality": 5},
		{"date": "2026-01-05", "mood": "good", "energy": 3, "dream_quality": 0},
		{"date": "not-a-date", "mood": "good", "energy": 3, "dream_quality": 5},
	}
	for _, body := range cases {
		w := doJSON(t, r, http.MethodPost, "/api/entries", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %+v", body)
	}
}

func TestSaveFortune(t *testing.T) {
	r, app := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/fortunes", map[string]any{"category": "career"})
	require.Equal(t, http.StatusOK, w.Code)

	n, err := app.Events().CountFortunesThrough(context.Background(), "u1", mustDay("2100-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	w = doJSON(t, r, http.MethodPost, "/api/fortunes", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateReportEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/api/entries", validEntry("2026-01-05")).Code)

	w := doJSON(t, r, http.MethodPost, "/api/reports/generate", map[string]any{
		"report_type": "weekly", "week_start": "2026-01-05",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, "ready", data["status"])
	assert.Equal(t, "weekly", data["report_type"])
	require.Contains(t, data, "content")

	content := data["content"].(map[string]any)
	assert.EqualValues(t, 1, content["schema_version"])

	// Second call is served from storage.
	w = doJSON(t, r, http.MethodPost, "/api/reports/generate", map[string]any{
		"report_type": "weekly", "week_start": "2026-01-05",
	})
	require.Equal(t, http.StatusOK, w.Code)
	meta := decodeBody(t, w)["meta"].(map[string]any)
	assert.Equal(t, true, meta["cached"])
}

func TestGenerateReportForce(t *testing.T) {
	r, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/api/entries", validEntry("2026-01-05")).Code)
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/api/reports/generate", map[string]any{
		"report_type": "weekly", "week_start": "2026-01-05",
	}).Code)
	require.Equal(t, http.StatusOK, doJSON(t, r, http.MethodPost, "/api/entries", validEntry("2026-01-06")).Code)

	w := doJSON(t, r, http.MethodPost, "/api/reports/generate", map[string]any{
		"report_type": "weekly", "week_start": "2026-01-05", "force": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, false, body["meta"].(map[string]any)["cached"])
	content := body["data"].(map[string]any)["content"].(map[string]any)
	rollup := content["rollup"].(map[string]any)
	assert.EqualValues(t, 2, rollup["entries_total"], "forced run sees the new entry")
}

func TestHandleErrorHidesInternalCauses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "rid")

	HandleError(c, internal.NopLogger(),
		errors.New("pq: password=hunter2 authentication failed"), 500, "failed to generate report")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.Contains(t, w.Body.String(), "failed to generate report")
}

func TestGenerateReportBadPeriod(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/reports/generate", map[string]any{
		"report_type": "weekly", "week_start": "2026-01-06",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndListReportEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/api/reports/generate", map[string]any{
		"report_type": "weekly", "week_start": "2026-01-05",
	})
	require.Equal(t, http.StatusOK, w.Code)
	id := decodeBody(t, w)["data"].(map[string]any)["id"].(string)

	w = doJSON(t, r, http.MethodGet, "/api/reports/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, id, data["id"])
	assert.Contains(t, data, "content")

	w = doJSON(t, r, http.MethodGet, "/api/reports/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/reports?year=2026", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody(t, w)["data"].([]any)
	require.Len(t, list, 1)
	first := list[0].(map[string]any)
	assert.Equal(t, id, first["id"])
	assert.NotContains(t, first, "content")

	w = doJSON(t, r, http.MethodGet, "/api/reports?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func mustDay(s string) (t time.Time) {
	t, _ = time.Parse("2006-01-02", s)
	return t
}
