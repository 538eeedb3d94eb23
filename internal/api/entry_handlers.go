package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
)

var validate = validator.New()

// EntryRequest is the payload for logging one day.
type EntryRequest struct {
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Mood          string `json:"mood" validate:"required,oneof=great good okay low bad"`
	Energy        int    `json:"energy" validate:"min=0,max=5"`
	DreamQuality  int    `json:"dream_quality" validate:"min=1,max=10"`
	Sickness      int    `json:"sickness" validate:"min=0,max=5"`
	LibidoMorning int    `json:"libido_morning" validate:"min=0,max=5"`
	LibidoNight   int    `json:"libido_night" validate:"min=0,max=5"`
	Notes         string `json:"notes"`
	DreamText     string `json:"dream_text"`
	Meals         string `json:"meals"`
}

// SaveEntryHandler handles POST /api/entries. Free-text fields are encrypted
// before they touch storage; a second entry for the same date replaces the
// first.
func SaveEntryHandler(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			HandleError(c, app.Logger(), errors.New("no user in context"), http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req EntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid entry")
			return
		}

		date, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
		if err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid date")
			return
		}

		entry := &internal.Entry{
			ID:            uuid.NewString(),
			UserID:        user.ID,
			Date:          date,
			Mood:          req.Mood,
			Energy:        req.Energy,
			DreamQuality:  req.DreamQuality,
			Sickness:      req.Sickness,
			LibidoMorning: req.LibidoMorning,
			LibidoNight:   req.LibidoNight,
			CreatedAt:     time.Now().UTC(),
		}
		for _, f := range []struct {
			src string
			dst *string
		}{
			{req.Notes, &entry.Notes},
			{req.DreamText, &entry.DreamText},
			{req.Meals, &entry.Meals},
		} {
			sealed, err := app.Cipher().Encrypt(f.src)
			if err != nil {
				HandleError(c, app.Logger(), err, http.StatusInternalServerError, "Failed to store entry")
				return
			}
			*f.dst = sealed
		}

		if err := app.Entries().SaveEntry(c.Request.Context(), entry); err != nil {
			HandleError(c, app.Logger(), err, http.StatusInternalServerError, "Failed to store entry")
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{"id": entry.ID, "date": req.Date}, nil)
	}
}

// FortuneRequest logs one fortune event.
type FortuneRequest struct {
	Category string `json:"category" validate:"required,max=64"`
}

// SaveFortuneHandler handles POST /api/fortunes.
func SaveFortuneHandler(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			HandleError(c, app.Logger(), errors.New("no user in context"), http.StatusUnauthorized, "Unauthorized")
			return
		}

		var req FortuneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := validate.Struct(&req); err != nil {
			HandleError(c, app.Logger(), err, http.StatusBadRequest, "Invalid fortune")
			return
		}

		event := &internal.FortuneEvent{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Category:  req.Category,
			CreatedAt: time.Now().UTC(),
		}
		if err := app.Events().SaveFortune(c.Request.Context(), event); err != nil {
			HandleError(c, app.Logger(), err, http.StatusInternalServerError, "Failed to store fortune")
			return
		}
		HandleSuccess(c, app.Logger(), gin.H{"id": event.ID}, nil)
	}
}
