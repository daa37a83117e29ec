package services

import (
	"context"
	"time"

	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/models"
)

// DetectConflicts classifies a proposed window for one employee on date.
// Approved absences covering date are blocking. Other assignments on date
// whose window overlaps are schedule conflicts. excludeID drops the
// assignment being edited. Blocking wins the kind when both are present.
func DetectConflicts(
	window models.TimeWindow,
	date time.Time,
	absences []models.AvailabilityRecord,
	assignments []models.ScheduleAssignment,
	excludeID *int64,
) models.ConflictResult {
	result := models.ConflictResult{Kind: models.ConflictClear}

	for i := range absences {
		a := &absences[i]
		if !a.Blocks(date) {
			continue
		}
		result.Blocking = append(result.Blocking, models.BlockingConflict{
			AvailabilityID: a.ID,
			Reason:         a.Reason,
			StartDate:      a.StartDate.Format(models.DateLayout),
			EndDate:        a.EndDate.Format(models.DateLayout),
		})
	}

	day := models.DateOnly(date)
	for i := range assignments {
		a := &assignments[i]
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if !models.DateOnly(a.WorkDate).Equal(day) {
			continue
		}
		if !window.Overlaps(a.Window()) {
			continue
		}
		result.Schedule = append(result.Schedule, models.ScheduleConflict{
			AssignmentID:   a.ID,
			ConflictingJob: a.JobID,
			Window:         a.Window(),
		})
	}

	switch {
	case len(result.Blocking) > 0:
		result.Kind = models.ConflictBlocking
	case len(result.Schedule) > 0:
		result.Kind = models.ConflictSchedule
	}
	return result
}

// ConflictService loads the state DetectConflicts needs
type ConflictService struct {
	db            database.DB
	assignments   *database.ScheduleAssignmentRepository
	availability  *database.AvailabilityRepository
	defaultWindow models.TimeWindow
}

// NewConflictService creates a new ConflictService. defaultWindow is used
// when a caller supplies no window.
func NewConflictService(db database.DB, defaultWindow models.TimeWindow) *ConflictService {
	return &ConflictService{
		db:            db,
		assignments:   database.NewScheduleAssignmentRepository(db),
		availability:  database.NewAvailabilityRepository(db),
		defaultWindow: defaultWindow,
	}
}

// DefaultWindow returns the standard workday
func (s *ConflictService) DefaultWindow() models.TimeWindow {
	return s.defaultWindow
}

// CheckConflict reports every conflict for a proposed assignment. It never writes.
func (s *ConflictService) CheckConflict(ctx context.Context, employeeID string, date time.Time, window *models.TimeWindow, excluding *int64) (models.ConflictResult, error) {
	w := s.defaultWindow
	if window != nil {
		w = *window
	}
	return s.check(ctx, s.db, employeeID, models.DateOnly(date), w, excluding)
}

// check runs detection through q so writers see their own transaction's rows
func (s *ConflictService) check(ctx context.Context, q database.Queryer, employeeID string, date time.Time, window models.TimeWindow, excluding *int64) (models.ConflictResult, error) {
	absences, err := s.availability.WithTx(q).ListApprovedCovering(ctx, employeeID, date)
	if err != nil {
		return models.ConflictResult{}, err
	}
	assignments, err := s.assignments.WithTx(q).ListForEmployeeOnDate(ctx, employeeID, date)
	if err != nil {
		return models.ConflictResult{}, err
	}
	return DetectConflicts(window, date, absences, assignments, excluding), nil
}
