package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCallOutService(t *testing.T) (*CallOutService, sqlmock.Sqlmock, *recordingGateway) {
	db, mock := newMockDB(t)
	gateway := &recordingGateway{}
	service := NewCallOutService(db,
		NewAuditService(true, testLogger()),
		NewNotificationService(gateway, testLogger()),
		testLogger())
	service.now = fixedClock(time.Date(2024, 12, 5, 6, 30, 0, 0, time.UTC))
	return service, mock, gateway
}

func expectNewCallOutRecord(mock sqlmock.Sqlmock, employee string, date time.Time, id int64) {
	mock.ExpectQuery("AND reason = \\$4 AND status = 'approved'").
		WithArgs(employee, date, date, models.AbsenceSick).
		WillReturnRows(sqlmock.NewRows(availabilityCols))
	mock.ExpectQuery("INSERT INTO availability_records").
		WithArgs(employee, date, date, models.AbsenceSick, models.ApprovalApproved, true,
			nil, nil, nil, "dispatch", "dispatch", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id, time.Now(), time.Now()))
}

func TestProcessCallOut_LeadPromoted(t *testing.T) {
	service, mock, gateway := newCallOutService(t)
	date := mustDate(t, "2024-12-05")
	created := time.Now().Add(-24 * time.Hour)

	mock.ExpectBegin()
	expectEmployee(mock, "nraffery")
	expectAdvisoryLock(mock, "schedule:nraffery:2024-12-05")
	expectNewCallOutRecord(mock, "nraffery", date, 77)
	mock.ExpectQuery("WHERE employee_id = \\$1 AND work_date BETWEEN \\$2 AND \\$3 ORDER BY work_date, job_id FOR UPDATE").
		WithArgs("nraffery", date, date).
		WillReturnRows(assignmentRow(sqlmock.NewRows(assignmentCols), 5, 34, date, "nraffery", true, "07:00", "15:30", created))
	mock.ExpectExec("DELETE FROM schedule_assignments").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("WHERE job_id = \\$1 AND work_date = \\$2 ORDER BY created_at").
		WithArgs(int64(34), date).
		WillReturnRows(assignmentRow(sqlmock.NewRows(assignmentCols), 6, 34, date, "tfisher", false, "07:00", "15:30", created))
	mock.ExpectExec("UPDATE schedule_assignments SET is_lead = true").
		WithArgs(int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectAudit(mock, "dispatch", AuditCallOut)
	mock.ExpectCommit()

	report, err := service.ProcessCallOut(context.Background(), managerActor, &models.CallOutRequest{
		EmployeeID: "nraffery",
		StartDate:  "2024-12-05",
		EndDate:    "2024-12-05",
		Reason:     "sick",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), report.AvailabilityID)
	assert.False(t, report.Reused)
	require.Len(t, report.AffectedJobs, 1)

	job := report.AffectedJobs[0]
	assert.Equal(t, int64(34), job.JobID)
	assert.Equal(t, "2024-12-05", job.Date)
	assert.True(t, job.WasLead)
	require.NotNil(t, job.PromotedTo)
	assert.Equal(t, "tfisher", *job.PromotedTo)
	assert.Equal(t, []string{"tfisher"}, job.RemainingCrew)
	assert.False(t, job.NeedsReassignment)

	require.Len(t, gateway.sent(), 1)
	assert.Equal(t, NotifyTypeCallOut, gateway.sent()[0].Type)
	assert.False(t, gateway.sent()[0].Urgent)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessCallOut_OnlyCrewMember(t *testing.T) {
	service, mock, gateway := newCallOutService(t)
	date := mustDate(t, "2024-12-05")

	mock.ExpectBegin()
	expectEmployee(mock, "nraffery")
	expectAdvisoryLock(mock, "schedule:nraffery:2024-12-05")
	expectNewCallOutRecord(mock, "nraffery", date, 78)
	mock.ExpectQuery("WHERE employee_id = \\$1 AND work_date BETWEEN").
		WithArgs("nraffery", date, date).
		WillReturnRows(assignmentRow(sqlmock.NewRows(assignmentCols), 9, 35, date, "nraffery", true, "07:00", "15:30", time.Now()))
	mock.ExpectExec("DELETE FROM schedule_assignments").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("WHERE job_id = \\$1 AND work_date = \\$2 ORDER BY created_at").
		WithArgs(int64(35), date).
		WillReturnRows(sqlmock.NewRows(assignmentCols))
	expectAudit(mock, "dispatch", AuditCallOut)
	mock.ExpectCommit()

	report, err := service.ProcessCallOut(context.Background(), managerActor, &models.CallOutRequest{
		EmployeeID: "nraffery",
		StartDate:  "2024-12-05",
		EndDate:    "2024-12-05",
		Reason:     "sick",
	})
	require.NoError(t, err)
	require.Len(t, report.AffectedJobs, 1)
	assert.True(t, report.AffectedJobs[0].WasLead)
	assert.Nil(t, report.AffectedJobs[0].PromotedTo)
	assert.Empty(t, report.AffectedJobs[0].RemainingCrew)
	assert.True(t, report.AffectedJobs[0].NeedsReassignment)
	assert.True(t, report.NeedsAttention())

	require.Len(t, gateway.sent(), 1)
	assert.True(t, gateway.sent()[0].Urgent)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessCallOut_ReusesIdenticalRecord(t *testing.T) {
	service, mock, _ := newCallOutService(t)
	from, to := mustDate(t, "2024-12-05"), mustDate(t, "2024-12-06")
	now := time.Now()
	keep := false

	mock.ExpectBegin()
	expectEmployee(mock, "nraffery")
	expectAdvisoryLock(mock, "schedule:nraffery:2024-12-05")
	expectAdvisoryLock(mock, "schedule:nraffery:2024-12-06")
	mock.ExpectQuery("AND reason = \\$4 AND status = 'approved'").
		WithArgs("nraffery", from, to, models.AbsenceSick).
		WillReturnRows(sqlmock.NewRows(availabilityCols).AddRow(
			int64(77), "nraffery", from, to, "sick", "approved", true, nil, nil,
			nil, "dispatch", "dispatch", now, nil, now, now))
	expectAudit(mock, "dispatch", AuditCallOut)
	mock.ExpectCommit()

	report, err := service.ProcessCallOut(context.Background(), managerActor, &models.CallOutRequest{
		EmployeeID:         "nraffery",
		StartDate:          "2024-12-05",
		EndDate:            "2024-12-06",
		Reason:             "sick",
		RemoveFromSchedule: &keep,
	})
	require.NoError(t, err)
	assert.True(t, report.Reused)
	assert.Equal(t, int64(77), report.AvailabilityID)
	assert.Empty(t, report.AffectedJobs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessCallOut_Rejections(t *testing.T) {
	t.Run("Technician for someone else", func(t *testing.T) {
		service, mock, _ := newCallOutService(t)
		_, err := service.ProcessCallOut(context.Background(), technician("tfisher"), &models.CallOutRequest{
			EmployeeID: "nraffery", StartDate: "2024-12-05", EndDate: "2024-12-05", Reason: "sick",
		})
		assert.True(t, errors.Is(err, models.ErrForbidden))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Range reversed", func(t *testing.T) {
		service, mock, _ := newCallOutService(t)
		_, err := service.ProcessCallOut(context.Background(), managerActor, &models.CallOutRequest{
			EmployeeID: "nraffery", StartDate: "2024-12-06", EndDate: "2024-12-05", Reason: "sick",
		})
		var ve *models.ValidationError
		assert.True(t, errors.As(err, &ve))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure rolls back", func(t *testing.T) {
		service, mock, gateway := newCallOutService(t)
		date := mustDate(t, "2024-12-05")

		mock.ExpectBegin()
		expectEmployee(mock, "nraffery")
		expectAdvisoryLock(mock, "schedule:nraffery:2024-12-05")
		expectNewCallOutRecord(mock, "nraffery", date, 79)
		mock.ExpectQuery("WHERE employee_id = \\$1 AND work_date BETWEEN").
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		_, err := service.ProcessCallOut(context.Background(), managerActor, &models.CallOutRequest{
			EmployeeID: "nraffery", StartDate: "2024-12-05", EndDate: "2024-12-05", Reason: "sick",
		})
		require.Error(t, err)
		assert.Empty(t, gateway.sent())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
