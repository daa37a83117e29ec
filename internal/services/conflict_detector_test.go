package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func window(start, end string) models.TimeWindow {
	return models.TimeWindow{Start: models.MustParseClock(start), End: models.MustParseClock(end)}
}

func TestDetectConflicts(t *testing.T) {
	date := mustDate(t, "2024-12-02")
	vacation := models.AvailabilityRecord{
		ID: 1, EmployeeID: "tfisher", Reason: models.AbsenceVacation, Status: models.ApprovalApproved,
		StartDate: mustDate(t, "2024-12-01"), EndDate: mustDate(t, "2024-12-03"),
	}
	pending := vacation
	pending.ID, pending.Status = 2, models.ApprovalPending
	denied := vacation
	denied.ID, denied.Status = 3, models.ApprovalDenied

	morning := models.ScheduleAssignment{ID: 10, JobID: 10, WorkDate: date, EmployeeID: "tfisher",
		StartTime: models.MustParseClock("07:00"), EndTime: models.MustParseClock("12:00")}
	afternoon := models.ScheduleAssignment{ID: 11, JobID: 11, WorkDate: date, EmployeeID: "tfisher",
		StartTime: models.MustParseClock("12:00"), EndTime: models.MustParseClock("15:30")}

	tests := []struct {
		name         string
		window       models.TimeWindow
		absences     []models.AvailabilityRecord
		assignments  []models.ScheduleAssignment
		exclude      *int64
		wantKind     models.ConflictKind
		wantBlocking int
		wantSchedule int
	}{
		{"Clear", window("07:00", "15:30"), nil, nil, nil, models.ConflictClear, 0, 0},
		{"Approved absence blocks", window("07:00", "15:30"), []models.AvailabilityRecord{vacation}, nil, nil, models.ConflictBlocking, 1, 0},
		{"Pending and denied ignored", window("07:00", "15:30"), []models.AvailabilityRecord{pending, denied}, nil, nil, models.ConflictClear, 0, 0},
		{"Overlap", window("11:00", "13:00"), nil, []models.ScheduleAssignment{morning, afternoon}, nil, models.ConflictSchedule, 0, 2},
		{"Touching windows do not overlap", window("12:00", "12:30"), nil, []models.ScheduleAssignment{morning}, nil, models.ConflictClear, 0, 0},
		{"Zero-length conflicts with everything", window("18:00", "18:00"), nil, []models.ScheduleAssignment{morning}, nil, models.ConflictSchedule, 0, 1},
		{"Excluded assignment ignored", window("07:00", "12:00"), nil, []models.ScheduleAssignment{morning}, int64Ptr(10), models.ConflictClear, 0, 0},
		{"Blocking dominates, both reported", window("07:00", "15:30"), []models.AvailabilityRecord{vacation}, []models.ScheduleAssignment{morning}, nil, models.ConflictBlocking, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectConflicts(tt.window, date, tt.absences, tt.assignments, tt.exclude)
			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Len(t, result.Blocking, tt.wantBlocking)
			assert.Len(t, result.Schedule, tt.wantSchedule)
		})
	}
}

func TestDetectConflicts_OtherDateIgnored(t *testing.T) {
	date := mustDate(t, "2024-12-02")
	other := models.ScheduleAssignment{ID: 1, JobID: 9, WorkDate: date.AddDate(0, 0, 1),
		StartTime: models.MustParseClock("07:00"), EndTime: models.MustParseClock("15:30")}
	absence := models.AvailabilityRecord{ID: 1, Status: models.ApprovalApproved, Reason: models.AbsenceSick,
		StartDate: date.AddDate(0, 0, 1), EndDate: date.AddDate(0, 0, 2)}

	result := DetectConflicts(window("07:00", "15:30"), date, []models.AvailabilityRecord{absence}, []models.ScheduleAssignment{other}, nil)
	assert.True(t, result.IsClear())
}

func TestConflictService_CheckConflict(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewConflictService(db, window("07:00", "15:30"))
	date := mustDate(t, "2024-12-25")

	mock.ExpectQuery("FROM availability_records WHERE employee_id = \\$1 AND status = 'approved'").
		WithArgs("nraffery", date).
		WillReturnRows(sqlmock.NewRows(availabilityCols).AddRow(
			int64(5), "nraffery", mustDate(t, "2024-12-24"), mustDate(t, "2024-12-26"), "vacation", "approved", true, nil, nil,
			nil, "nraffery", "dispatch", time.Now(), nil, time.Now(), time.Now()))
	mock.ExpectQuery("FROM schedule_assignments WHERE employee_id = \\$1 AND work_date = \\$2").
		WithArgs("nraffery", date).
		WillReturnRows(sqlmock.NewRows(assignmentCols))

	result, err := service.CheckConflict(context.Background(), "nraffery", date, nil, nil)
	require.NoError(t, err)
	assert.True(t, result.IsBlocking())
	require.Len(t, result.Blocking, 1)
	assert.Equal(t, models.AbsenceVacation, result.Blocking[0].Reason)
	assert.Equal(t, "2024-12-24", result.Blocking[0].StartDate)

	assert.NoError(t, mock.ExpectationsWereMet())
}
