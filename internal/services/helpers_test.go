package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fieldcrew/crew-ledger/internal/database"
	"github.com/fieldcrew/crew-ledger/internal/models"
	"github.com/fieldcrew/crew-ledger/pkg/notify"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var (
	assignmentCols = []string{
		"id", "job_id", "work_date", "employee_id", "is_lead", "start_time", "end_time",
		"scheduled_hours", "overridden", "override_reason", "assigned_by", "created_at", "updated_at",
	}
	availabilityCols = []string{
		"id", "employee_id", "start_date", "end_date", "reason", "status", "all_day", "start_time", "end_time",
		"notes", "requested_by", "reviewed_by", "reviewed_at", "review_notes", "created_at", "updated_at",
	}
	timeEntryCols = []string{
		"id", "job_id", "category", "employee_id", "work_date", "hours_worked", "billable_rate", "pay_rate",
		"week_ending_date", "is_locked", "locked_at", "relock_after", "notes", "entered_by",
		"deleted_at", "created_at", "updated_at",
	}
	employeeCols = []string{"username", "role", "hourly_rate", "overtime_rate", "is_active"}
	jobCols      = []string{"id", "customer_id", "job_type", "status"}
)

var (
	managerActor = models.Actor{
		Username:  "dispatch",
		Roles:     []string{models.RoleManager},
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
	adminActor = models.Actor{
		Username:  "root",
		Roles:     []string{models.RoleAdmin},
		IPAddress: "203.0.113.9",
		UserAgent: "curl/8.4.0",
	}
)

func technician(username string) models.Actor {
	return models.Actor{Username: username, Roles: []string{models.RoleTechnician}, UserAgent: "CrewTablet/2.1"}
}

func newMockDB(t *testing.T) (*database.PostgresDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &database.PostgresDB{
		DB:           sqlx.NewDb(db, "sqlmock"),
		MaxTxRetries: 3,
	}, mock
}

func testLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := models.ParseDate(value)
	require.NoError(t, err)
	return d
}

func strPtr(s string) *string { return &s }

func int64Ptr(i int64) *int64 { return &i }

func expectAdvisoryLock(mock sqlmock.Sqlmock, key string) {
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(key).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectSharedWeekLock(mock sqlmock.Sqlmock) {
	mock.ExpectExec("SELECT pg_advisory_xact_lock_shared").
		WithArgs("payroll-week-lock").
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectAudit(mock sqlmock.Sqlmock, actor, action string) {
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(actor, action, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func expectEmployee(mock sqlmock.Sqlmock, username string) {
	mock.ExpectQuery("SELECT username, role, hourly_rate, overtime_rate, is_active FROM employees").
		WithArgs(username).
		WillReturnRows(sqlmock.NewRows(employeeCols).AddRow(username, "technician", "35.00", "52.50", true))
}

func expectJob(mock sqlmock.Sqlmock, jobID int64, status models.JobStatus) {
	mock.ExpectQuery("SELECT id, customer_id, job_type, status FROM jobs").
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows(jobCols).AddRow(jobID, int64(7), "hvac", string(status)))
}

func assignmentRow(rows *sqlmock.Rows, id, jobID int64, date time.Time, employee string, lead bool, start, end string, created time.Time) *sqlmock.Rows {
	return rows.AddRow(id, jobID, date, employee, lead, start+":00", end+":00", "8.5", false, nil, "dispatch", created, created)
}

// recordingGateway captures notifications in memory
type recordingGateway struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (g *recordingGateway) Send(ctx context.Context, msg notify.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = append(g.messages, msg)
	return g.err
}

func (g *recordingGateway) GetName() string { return "recording" }

func (g *recordingGateway) sent() []notify.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]notify.Message(nil), g.messages...)
}
