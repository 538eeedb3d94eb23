package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/report"
)

// GenerateReportHandler handles POST /api/reports/generate. Generation is
// synchronous and idempotent: repeating the call for a period returns the
// stored report unless the body sets force.
func GenerateReportHandler(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			HandleError(c, app.Logger(), errors.New("no user in context"), http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req report.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid request body")
			return
		}

		result, err := app.Reports().Generate(c.Request.Context(), user, &req)
		if err != nil {
			HandleAppError(c, app.Logger(), err, "Failed to generate report")
			return
		}

		HandleSuccess(c, app.Logger(), reportPayload(result.Row, result.Model), map[string]any{
			"cached": result.Cached,
		})
	}
}

// GetReportHandler handles GET /api/reports/:id.
func GetReportHandler(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			HandleError(c, app.Logger(), errors.New("no user in context"), http.StatusUnauthorized, "Unauthorized")
			return
		}

		row, model, err := app.Reports().GetReport(c.Request.Context(), user, c.Param("id"))
		if err != nil {
			HandleAppError(c, app.Logger(), err, "Failed to load report")
			return
		}
		HandleSuccess(c, app.Logger(), reportPayload(row, model), nil)
	}
}

// ListReportsHandler handles GET /api/reports?year=YYYY. Defaults to the
// current UTC year.
func ListReportsHandler(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			HandleError(c, app.Logger(), errors.New("no user in context"), http.StatusUnauthorized, "Unauthorized")
			return
		}

		year := time.Now().UTC().Year()
		if raw := c.Query("year"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 2000 || parsed > 2100 {
				HandleError(c, app.Logger(), errors.New("year must be a number between 2000 and 2100"), http.StatusBadRequest, "Invalid year")
				return
			}
			year = parsed
		}

		summaries, err := app.Reports().ListReports(c.Request.Context(), user, year)
		if err != nil {
			HandleAppError(c, app.Logger(), err, "Failed to list reports")
			return
		}
		HandleSuccess(c, app.Logger(), summaries, map[string]any{"year": year, "count": len(summaries)})
	}
}

// reportPayload is the wire shape for a single report. Content appears only
// when the row is ready.
func reportPayload(row *internal.ReportRow, model *report.ReportModel) gin.H {
	payload := gin.H{
		"id":           row.ID,
		"report_type":  row.ReportType,
		"period_start": internal.DateKey(row.PeriodStart),
		"period_end":   internal.DateKey(row.PeriodEnd),
		"status":       row.Status,
		"created_at":   row.CreatedAt,
		"updated_at":   row.UpdatedAt,
	}
	if row.ErrorMessage != "" {
		payload["error_message"] = row.ErrorMessage
	}
	if model != nil {
		payload["content"] = model
	}
	return payload
}
