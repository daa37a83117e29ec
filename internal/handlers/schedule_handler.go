package handlers

import (
	"net/http"

	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ScheduleHandler handles crew scheduling HTTP requests
type ScheduleHandler struct {
	schedule  *services.ScheduleService
	conflicts *services.ConflictService
	logger    *logrus.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(schedule *services.ScheduleService, conflicts *services.ConflictService, logger *logrus.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		schedule:  schedule,
		conflicts: conflicts,
		logger:    logger,
	}
}

// CheckConflict handles GET /api/v1/schedule/conflicts
func (h *ScheduleHandler) CheckConflict(c *gin.Context) {
	var req models.ConflictCheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}
	date, ok := dateValue(c, "date", req.Date)
	if !ok {
		return
	}
	window, err := models.ParseTimeWindow(req.StartTime, req.EndTime, h.conflicts.DefaultWindow())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.conflicts.CheckConflict(c.Request.Context(), req.EmployeeID, date, &window, req.ExcludingAssignment)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AssignCrew handles POST /api/v1/jobs/:jobId/crew
func (h *ScheduleHandler) AssignCrew(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	jobID, ok := int64Param(c, "jobId")
	if !ok {
		return
	}

	var req models.AssignCrewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.schedule.AssignCrew(c.Request.Context(), actor, jobID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	// Nothing written at all is a conflict; partial success is reported inline
	if err := result.Err(); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ListJobCrew handles GET /api/v1/jobs/:jobId/crew?date=
func (h *ScheduleHandler) ListJobCrew(c *gin.Context) {
	jobID, ok := int64Param(c, "jobId")
	if !ok {
		return
	}
	date, ok := dateValue(c, "date", c.Query("date"))
	if !ok {
		return
	}

	crew, err := h.schedule.ListJobCrew(c.Request.Context(), jobID, date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id": jobID,
		"date":   date.Format(models.DateLayout),
		"crew":   crew,
	})
}

// RemoveCrew handles DELETE /api/v1/jobs/:jobId/crew/:date/:employee
func (h *ScheduleHandler) RemoveCrew(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	jobID, ok := int64Param(c, "jobId")
	if !ok {
		return
	}
	date, ok := dateValue(c, "date", c.Param("date"))
	if !ok {
		return
	}

	result, err := h.schedule.RemoveCrew(c.Request.Context(), actor, jobID, date, c.Param("employee"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateAssignment handles PATCH /api/v1/schedule/assignments/:id
func (h *ScheduleHandler) UpdateAssignment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	var req models.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.schedule.UpdateAssignment(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListEmployeeSchedule handles GET /api/v1/employees/:employee/schedule?from=&to=
func (h *ScheduleHandler) ListEmployeeSchedule(c *gin.Context) {
	employeeID := c.Param("employee")
	from, ok := dateValue(c, "from", c.Query("from"))
	if !ok {
		return
	}
	to, ok := dateValue(c, "to", c.Query("to"))
	if !ok {
		return
	}

	assignments, err := h.schedule.ListEmployeeSchedule(c.Request.Context(), employeeID, from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"employee_id": employeeID,
		"from":        from.Format(models.DateLayout),
		"to":          to.Format(models.DateLayout),
		"assignments": assignments,
	})
}
