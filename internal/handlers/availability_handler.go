package handlers

import (
	"net/http"

	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AvailabilityHandler handles absence requests and call-outs
type AvailabilityHandler struct {
	absences *services.AbsenceService
	callOuts *services.CallOutService
	logger   *logrus.Logger
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(absences *services.AbsenceService, callOuts *services.CallOutService, logger *logrus.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		absences: absences,
		callOuts: callOuts,
		logger:   logger,
	}
}

// RequestAbsence handles POST /api/v1/availability
func (h *AvailabilityHandler) RequestAbsence(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.AbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	record, err := h.absences.RequestAbsence(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// ListAvailability handles GET /api/v1/availability?employee=&from=&to=
func (h *AvailabilityHandler) ListAvailability(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	employeeID := c.DefaultQuery("employee", actor.Username)
	if !actor.CanActFor(employeeID) {
		respondError(c, h.logger, models.ErrForbidden)
		return
	}
	from, ok := dateValue(c, "from", c.Query("from"))
	if !ok {
		return
	}
	to, ok := dateValue(c, "to", c.Query("to"))
	if !ok {
		return
	}

	records, err := h.absences.ListAvailability(c.Request.Context(), employeeID, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employee_id": employeeID,
		"records":     records,
	})
}

// ListPending handles GET /api/v1/availability/pending
func (h *AvailabilityHandler) ListPending(c *gin.Context) {
	records, err := h.absences.ListPendingAbsences(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// ReviewAbsence handles POST /api/v1/availability/:id/review
func (h *AvailabilityHandler) ReviewAbsence(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req models.ReviewAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	record, err := h.absences.ReviewAbsence(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ProcessCallOut handles POST /api/v1/call-outs
func (h *AvailabilityHandler) ProcessCallOut(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.CallOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	report, err := h.callOuts.ProcessCallOut(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
