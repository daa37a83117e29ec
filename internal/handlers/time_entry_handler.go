package handlers

import (
	"net/http"

	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TimeEntryHandler handles time ledger HTTP requests
type TimeEntryHandler struct {
	ledger *services.TimeLedgerService
	logger *logrus.Logger
}

// NewTimeEntryHandler creates a new time entry handler
func NewTimeEntryHandler(ledger *services.TimeLedgerService, logger *logrus.Logger) *TimeEntryHandler {
	return &TimeEntryHandler{
		ledger: ledger,
		logger: logger,
	}
}

// RecordTimeEntries handles POST /api/v1/time-entries
func (h *TimeEntryHandler) RecordTimeEntries(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.RecordTimeEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	entries, err := h.ledger.RecordTimeEntries(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// UpdateTimeEntry handles PATCH /api/v1/time-entries/:id
func (h *TimeEntryHandler) UpdateTimeEntry(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req models.UpdateTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	entry, err := h.ledger.UpdateTimeEntry(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteTimeEntry handles DELETE /api/v1/time-entries/:id
func (h *TimeEntryHandler) DeleteTimeEntry(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	if err := h.ledger.DeleteTimeEntry(c.Request.Context(), actor, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EmployeeWeekSummary handles GET /api/v1/time-entries/week?employee=&week_ending=
func (h *TimeEntryHandler) EmployeeWeekSummary(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	employeeID := c.DefaultQuery("employee", actor.Username)
	date, ok := dateValue(c, "week_ending", c.Query("week_ending"))
	if !ok {
		return
	}

	summary, err := h.ledger.EmployeeWeekSummary(c.Request.Context(), actor, employeeID, date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// JobLaborSummary handles GET /api/v1/jobs/:jobId/labor
func (h *TimeEntryHandler) JobLaborSummary(c *gin.Context) {
	jobID, ok := int64Param(c, "jobId")
	if !ok {
		return
	}

	summary, err := h.ledger.JobLaborSummary(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
