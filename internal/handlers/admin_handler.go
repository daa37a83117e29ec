package handlers

import (
	"net/http"

	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AdminHandler handles payroll week administration
type AdminHandler struct {
	weekLocks *services.WeekLockService
	cron      *services.CronService
	logger    *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(weekLocks *services.WeekLockService, cron *services.CronService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		weekLocks: weekLocks,
		cron:      cron,
		logger:    logger,
	}
}

// RunWeekLock handles POST /api/v1/admin/week-locks/run. It runs the
// scheduled job now, so the outcome also shows up in the cron status.
func (h *AdminHandler) RunWeekLock(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	h.logger.WithField("actor", actor.Username).Info("Manual week lock run requested")
	run := h.cron.RunWeekLockNow()
	if run.Error != "" {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "job_failed",
			Message: "Week lock job failed",
			Code:    "JOB_FAILED",
			Details: run,
		})
		return
	}
	c.JSON(http.StatusOK, run)
}

// LockWeek handles POST /api/v1/admin/week-locks/lock
func (h *AdminHandler) LockWeek(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.LockWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.weekLocks.LockWeek(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UnlockWeek handles POST /api/v1/admin/week-locks/unlock
func (h *AdminHandler) UnlockWeek(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req models.UnlockWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.weekLocks.UnlockWeek(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CronStatus handles GET /api/v1/admin/cron/status
func (h *AdminHandler) CronStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cron.GetJobStatus())
}
