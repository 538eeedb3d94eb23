package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal"
	"github.com/JLEscolaDev/magnet-fortune-tracker-sub000/internal/response"
)

func HandleError(c *gin.Context, logger internal.Logger, err error, status int, msg string) {
	requestID := c.GetString("request_id")
	logger.Errorf("[request_id=%s] %s: %v", requestID, msg, err)
	var resp response.APIResponse
	switch status {
	case 400:
		resp = response.BadRequest(msg + ": " + err.Error())
	case 403:
		resp = response.Forbidden(msg + ": " + err.Error())
	case 404:
		resp = response.NotFound(msg + ": " + err.Error())
	case 500:
		// Internal causes stay in the logs; clients get the summary only.
		resp = response.InternalError(msg)
	default:
		resp = response.NewAppError(status, msg)
	}
	c.JSON(status, resp)
}

// HandleAppError routes an error through its AppError status when it carries
// one, 500 otherwise.
func HandleAppError(c *gin.Context, logger internal.Logger, err error, msg string) {
	var appErr *internal.AppError
	if errors.As(err, &appErr) {
		HandleError(c, logger, err, appErr.Code, msg)
		return
	}
	HandleError(c, logger, err, 500, msg)
}

func HandleSuccess(c *gin.Context, logger internal.Logger, data interface{}, meta map[string]any) {
	requestID := c.GetString("request_id")
	logger.Infof("[request_id=%s] Success", requestID)
	c.JSON(200, response.Success(data, meta))
}
