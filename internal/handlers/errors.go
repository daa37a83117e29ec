package handlers

import (
	"errors"
	"net/http"

	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// respondError maps a service error onto its HTTP status. Anything outside
// the business taxonomy is logged and reported as 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		blocking   *models.BlockingConflictError
		schedule   *models.ScheduleConflictError
		locked     *models.WeekLockedError
		hours      *models.InvalidHoursError
		closed     *models.JobClosedError
		validation *models.ValidationError
	)

	switch {
	case errors.As(err, &blocking):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "blocking_conflict",
			Message: err.Error(),
			Code:    "BLOCKING_CONFLICT",
			Details: blocking.Conflicts,
		})
	case errors.As(err, &schedule):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "schedule_conflict",
			Message: err.Error(),
			Code:    "SCHEDULE_CONFLICT",
			Details: schedule.Conflicts,
		})
	case errors.As(err, &locked):
		c.JSON(http.StatusLocked, ErrorResponse{
			Error:   "week_locked",
			Message: err.Error(),
			Code:    "WEEK_LOCKED",
			Details: gin.H{
				"employee_id":      locked.EmployeeID,
				"week_ending_date": locked.WeekEndingDate.Format(models.DateLayout),
			},
		})
	case errors.As(err, &hours):
		details := gin.H{}
		if hours.Index >= 0 {
			details["entry"] = hours.Index
		}
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid_hours",
			Message: err.Error(),
			Code:    "INVALID_HOURS",
			Details: details,
		})
	case errors.As(err, &closed):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "job_closed",
			Message: err.Error(),
			Code:    "JOB_CLOSED",
		})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validation.Message,
			Code:    "VALIDATION_ERROR",
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
			Code:    "NOT_FOUND",
		})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: "You don't have permission to perform this action",
			Code:    "FORBIDDEN",
		})
	case errors.Is(err, models.ErrTransactionConflict):
		logger.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		}).WithError(err).Warn("Transaction retries exhausted")
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "transaction_conflict",
			Message: "The request raced with another change, please retry",
			Code:    "TRANSACTION_CONFLICT",
		})
	default:
		logger.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"method":     c.Request.Method,
			"request_id": c.GetString("request_id"),
		}).WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
			Code:    "INTERNAL_ERROR",
		})
	}
}

// respondBindError reports a malformed request body or query string
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request: " + err.Error(),
		Code:    "VALIDATION_ERROR",
	})
}
