package handlers

import (
	"github.com/fieldcrew/crew-ledger/internal/middleware"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Health       *HealthHandler
	Schedule     *ScheduleHandler
	Availability *AvailabilityHandler
	TimeEntries  *TimeEntryHandler
	Admin        *AdminHandler
}

// RegisterRoutes mounts the public health check and the authenticated
// /api/v1 routes on router
func RegisterRoutes(router *gin.Engine, h Handlers, jwtService *jwt.Service, logger *logrus.Logger) {
	router.GET("/health", h.Health.Health)

	managers := middleware.RequireRole(models.RoleManager, models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(jwtService, logger))
	{
		schedule := v1.Group("/schedule")
		schedule.Use(managers)
		{
			schedule.GET("/conflicts", h.Schedule.CheckConflict)
			schedule.PATCH("/assignments/:id", h.Schedule.UpdateAssignment)
		}

		jobs := v1.Group("/jobs/:jobId")
		{
			jobs.GET("/crew", h.Schedule.ListJobCrew)
			jobs.POST("/crew", managers, h.Schedule.AssignCrew)
			jobs.DELETE("/crew/:date/:employee", managers, h.Schedule.RemoveCrew)
			jobs.GET("/labor", managers, h.TimeEntries.JobLaborSummary)
		}

		v1.GET("/employees/:employee/schedule", middleware.RequireSelfOrManager("employee"), h.Schedule.ListEmployeeSchedule)

		availability := v1.Group("/availability")
		{
			availability.POST("", h.Availability.RequestAbsence)
			availability.GET("", h.Availability.ListAvailability)
			availability.GET("/pending", managers, h.Availability.ListPending)
			availability.POST("/:id/review", managers, h.Availability.ReviewAbsence)
		}

		v1.POST("/call-outs", h.Availability.ProcessCallOut)

		entries := v1.Group("/time-entries")
		{
			entries.POST("", h.TimeEntries.RecordTimeEntries)
			entries.GET("/week", h.TimeEntries.EmployeeWeekSummary)
			entries.PATCH("/:id", h.TimeEntries.UpdateTimeEntry)
			entries.DELETE("/:id", h.TimeEntries.DeleteTimeEntry)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/week-locks/run", h.Admin.RunWeekLock)
			admin.POST("/week-locks/lock", h.Admin.LockWeek)
			admin.POST("/week-locks/unlock", h.Admin.UnlockWeek)
			admin.GET("/cron/status", h.Admin.CronStatus)
		}
	}
}
