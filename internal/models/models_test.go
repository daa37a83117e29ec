package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := ParseDate(value)
	require.NoError(t, err)
	return d
}

func strPtr(s string) *string { return &s }

func window(t *testing.T, start, end string) TimeWindow {
	t.Helper()
	w, err := ParseTimeWindow(&start, &end, TimeWindow{})
	require.NoError(t, err)
	return w
}

func TestClock(t *testing.T) {
	t.Run("Parses both layouts", func(t *testing.T) {
		c, err := ParseClock("07:30")
		require.NoError(t, err)
		assert.Equal(t, Clock(450), c)

		c, err = ParseClock("16:45:00")
		require.NoError(t, err)
		assert.Equal(t, "16:45", c.String())
	})

	t.Run("Rejects garbage", func(t *testing.T) {
		_, err := ParseClock("25:00")
		assert.Error(t, err)
		_, err = ParseClock("noon")
		assert.Error(t, err)
	})

	t.Run("Scans postgres TIME", func(t *testing.T) {
		var c Clock
		require.NoError(t, c.Scan([]byte("12:30:00.000000")))
		assert.Equal(t, "12:30", c.String())

		v, err := c.Value()
		require.NoError(t, err)
		assert.Equal(t, "12:30:00", v)
	})

	t.Run("JSON", func(t *testing.T) {
		var w TimeWindow
		require.NoError(t, json.Unmarshal([]byte(`{"start":"08:00","end":"16:00:00"}`), &w))
		out, err := json.Marshal(w)
		require.NoError(t, err)
		assert.JSONEq(t, `{"start":"08:00","end":"16:00"}`, string(out))
	})
}

func TestTimeWindow_Overlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     TimeWindow
		overlaps bool
	}{
		{"Disjoint", window(t, "08:00", "12:00"), window(t, "13:00", "17:00"), false},
		{"Touching ends do not overlap", window(t, "08:00", "12:00"), window(t, "12:00", "16:00"), false},
		{"Partial", window(t, "08:00", "12:00"), window(t, "11:00", "15:00"), true},
		{"Contained", window(t, "08:00", "17:00"), window(t, "10:00", "11:00"), true},
		{"Zero length conflicts with anything", window(t, "09:00", "09:00"), window(t, "13:00", "17:00"), true},
		{"Zero length on the other side", window(t, "13:00", "17:00"), window(t, "06:00", "06:00"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overlaps, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.overlaps, tt.b.Overlaps(tt.a))
		})
	}
}

func TestParseTimeWindow(t *testing.T) {
	def := window(t, "08:00", "16:30")

	w, err := ParseTimeWindow(nil, nil, def)
	require.NoError(t, err)
	assert.Equal(t, def, w)
	assert.Equal(t, "8.5", w.Hours().String())

	_, err = ParseTimeWindow(strPtr("08:00"), nil, def)
	assert.True(t, errors.As(err, new(*ValidationError)))

	_, err = ParseTimeWindow(strPtr("14:00"), strPtr("09:00"), def)
	assert.True(t, errors.As(err, new(*ValidationError)))
}

func TestWeekEndingDate(t *testing.T) {
	tests := []struct {
		workDate string
		want     string
	}{
		{"2024-12-02", "2024-12-08"}, // Monday
		{"2024-12-05", "2024-12-08"},
		{"2024-12-08", "2024-12-08"}, // Sunday is its own week ending
		{"2024-12-09", "2024-12-15"},
		{"2024-12-30", "2025-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.workDate, func(t *testing.T) {
			got := WeekEndingDate(date(t, tt.workDate))
			assert.Equal(t, tt.want, got.Format(DateLayout))
			assert.Equal(t, time.Sunday, got.Weekday())
		})
	}

	assert.Equal(t, "2024-12-02", WeekStartDate(date(t, "2024-12-08")).Format(DateLayout))
}

func TestIsWeekCompleted(t *testing.T) {
	weekEnding := date(t, "2024-12-08")

	assert.False(t, IsWeekCompleted(weekEnding, time.Date(2024, 12, 8, 23, 59, 0, 0, time.UTC)))
	assert.True(t, IsWeekCompleted(weekEnding, time.Date(2024, 12, 9, 0, 5, 0, 0, time.UTC)))
	assert.False(t, IsWeekCompleted(date(t, "2024-12-15"), time.Date(2024, 12, 9, 6, 0, 0, 0, time.UTC)))
}

func TestDatesInRange(t *testing.T) {
	dates := DatesInRange(date(t, "2024-12-30"), date(t, "2025-01-02"))
	require.Len(t, dates, 4)
	assert.Equal(t, "2025-01-02", dates[3].Format(DateLayout))

	assert.Nil(t, DatesInRange(date(t, "2024-12-05"), date(t, "2024-12-04")))
}

func TestResolveBillingRate(t *testing.T) {
	customer, otherCustomer, jobType := int64(7), int64(8), "hvac"
	job := Job{ID: 1, CustomerID: &customer, JobType: &jobType}
	on := date(t, "2024-06-01")
	expired := date(t, "2024-03-31")

	rates := []BillingRate{
		{ID: 1, HourlyRate: decimal.NewFromInt(95), EffectiveFrom: date(t, "2023-01-01")},
		{ID: 2, JobType: &jobType, HourlyRate: decimal.NewFromInt(110), EffectiveFrom: date(t, "2023-01-01")},
		{ID: 3, CustomerID: &otherCustomer, HourlyRate: decimal.NewFromInt(200), EffectiveFrom: date(t, "2023-01-01")},
		{ID: 4, CustomerID: &customer, HourlyRate: decimal.NewFromInt(115), EffectiveFrom: date(t, "2023-01-01"), EffectiveTo: &expired},
	}

	t.Run("Job type when customer rate expired", func(t *testing.T) {
		rate, ok := ResolveBillingRate(rates, job, on)
		require.True(t, ok)
		assert.Equal(t, "110", rate.String())
	})

	t.Run("Customer rate wins", func(t *testing.T) {
		withCustomer := append(rates, BillingRate{ID: 5, CustomerID: &customer, HourlyRate: decimal.NewFromInt(125), EffectiveFrom: date(t, "2024-04-01")})
		rate, ok := ResolveBillingRate(withCustomer, job, on)
		require.True(t, ok)
		assert.Equal(t, "125", rate.String())
	})

	t.Run("Most recent within tier", func(t *testing.T) {
		withNewer := append(rates, BillingRate{ID: 6, JobType: &jobType, HourlyRate: decimal.NewFromInt(118), EffectiveFrom: date(t, "2024-05-01")})
		rate, ok := ResolveBillingRate(withNewer, job, on)
		require.True(t, ok)
		assert.Equal(t, "118", rate.String())
	})

	t.Run("Default for unknown job type", func(t *testing.T) {
		rate, ok := ResolveBillingRate(rates, Job{ID: 2}, on)
		require.True(t, ok)
		assert.Equal(t, "95", rate.String())
	})

	t.Run("Nothing effective", func(t *testing.T) {
		_, ok := ResolveBillingRate(rates, job, date(t, "2022-06-01"))
		assert.False(t, ok)
	})
}

func TestAssignCrewRequest_Parse(t *testing.T) {
	def := window(t, "08:00", "16:00")

	t.Run("Deduplicates and sorts", func(t *testing.T) {
		req := AssignCrewRequest{
			Dates:        []string{"2024-12-03", "2024-12-02", "2024-12-03"},
			Employees:    []string{"tfisher", " nraffery ", "tfisher"},
			LeadEmployee: strPtr("tfisher"),
		}
		a, err := req.Parse(10, def)
		require.NoError(t, err)
		require.Len(t, a.Dates, 2)
		assert.Equal(t, "2024-12-02", a.Dates[0].Format(DateLayout))
		assert.Equal(t, []string{"nraffery", "tfisher"}, a.Employees)
		assert.Equal(t, def, a.Window)
		assert.Equal(t, "8", a.ScheduledHours.String())
	})

	t.Run("Explicit hours override the window length", func(t *testing.T) {
		hours := decimal.RequireFromString("6.5")
		req := AssignCrewRequest{Dates: []string{"2024-12-02"}, Employees: []string{"tfisher"}, ScheduledHours: &hours}
		a, err := req.Parse(10, def)
		require.NoError(t, err)
		assert.True(t, a.ScheduledHours.Equal(hours))
	})

	rejects := map[string]AssignCrewRequest{
		"No dates":         {Employees: []string{"tfisher"}},
		"No employees":     {Dates: []string{"2024-12-02"}},
		"Bad date":         {Dates: []string{"12/02/2024"}, Employees: []string{"tfisher"}},
		"Lead not in crew": {Dates: []string{"2024-12-02"}, Employees: []string{"tfisher"}, LeadEmployee: strPtr("nraffery")},
		"Blank employee":   {Dates: []string{"2024-12-02"}, Employees: []string{"  "}},
	}
	for name, req := range rejects {
		req := req
		t.Run(name, func(t *testing.T) {
			_, err := req.Parse(10, def)
			assert.True(t, errors.As(err, new(*ValidationError)), "got %v", err)
		})
	}

	t.Run("Non-positive job", func(t *testing.T) {
		req := AssignCrewRequest{Dates: []string{"2024-12-02"}, Employees: []string{"tfisher"}}
		_, err := req.Parse(0, def)
		assert.Error(t, err)
	})
}

func TestAbsenceRequest_Parse(t *testing.T) {
	t.Run("All day by default", func(t *testing.T) {
		req := AbsenceRequest{EmployeeID: "nraffery", StartDate: "2024-12-23", EndDate: "2024-12-27", Reason: "vacation"}
		a, err := req.Parse()
		require.NoError(t, err)
		assert.True(t, a.AllDay)
		assert.Nil(t, a.Window)
		assert.Equal(t, AbsenceVacation, a.Reason)
	})

	t.Run("Partial day needs a window", func(t *testing.T) {
		allDay := false
		req := AbsenceRequest{EmployeeID: "nraffery", StartDate: "2024-12-05", EndDate: "2024-12-05", Reason: "personal", AllDay: &allDay}
		_, err := req.Parse()
		assert.Error(t, err)

		req.StartTime, req.EndTime = strPtr("13:00"), strPtr("15:00")
		a, err := req.Parse()
		require.NoError(t, err)
		require.NotNil(t, a.Window)
		assert.Equal(t, "13:00-15:00", a.Window.String())
	})

	t.Run("Range backwards", func(t *testing.T) {
		req := AbsenceRequest{EmployeeID: "nraffery", StartDate: "2024-12-05", EndDate: "2024-12-04", Reason: "sick"}
		_, err := req.Parse()
		assert.True(t, errors.As(err, new(*ValidationError)))
	})

	t.Run("Unknown reason", func(t *testing.T) {
		req := AbsenceRequest{EmployeeID: "nraffery", StartDate: "2024-12-05", EndDate: "2024-12-05", Reason: "jury"}
		_, err := req.Parse()
		assert.Error(t, err)
	})
}

func TestAvailabilityRecord_Blocks(t *testing.T) {
	rec := AvailabilityRecord{
		StartDate: date(t, "2024-12-23"),
		EndDate:   date(t, "2024-12-27"),
		Status:    ApprovalApproved,
	}
	assert.True(t, rec.Blocks(date(t, "2024-12-23")))
	assert.True(t, rec.Blocks(date(t, "2024-12-27")))
	assert.False(t, rec.Blocks(date(t, "2024-12-28")))

	rec.Status = ApprovalPending
	assert.False(t, rec.Blocks(date(t, "2024-12-24")))
}

func TestRecordTimeEntriesRequest_Parse(t *testing.T) {
	job := func(id int64) *int64 { return &id }

	t.Run("Valid batch", func(t *testing.T) {
		req := RecordTimeEntriesRequest{
			EmployeeID: "nraffery",
			WorkDate:   "2024-12-03",
			Entries: []TimeEntryInput{
				{JobID: job(33), Hours: decimal.RequireFromString("6.5")},
				{Category: strPtr("travel"), Hours: decimal.RequireFromString("1.5")},
			},
		}
		b, err := req.Parse()
		require.NoError(t, err)
		assert.Equal(t, "2024-12-08", b.WeekEndingDate.Format(DateLayout))
		assert.Len(t, b.Entries, 2)
	})

	t.Run("Entry over 24 hours names its index", func(t *testing.T) {
		req := RecordTimeEntriesRequest{
			EmployeeID: "nraffery",
			WorkDate:   "2024-12-03",
			Entries: []TimeEntryInput{
				{JobID: job(33), Hours: decimal.NewFromInt(2)},
				{JobID: job(34), Hours: decimal.NewFromInt(25)},
			},
		}
		_, err := req.Parse()
		var hoursErr *InvalidHoursError
		require.True(t, errors.As(err, &hoursErr))
		assert.Equal(t, 1, hoursErr.Index)
		assert.True(t, errors.Is(err, ErrInvalidHours))
	})

	t.Run("Zero hours", func(t *testing.T) {
		req := RecordTimeEntriesRequest{EmployeeID: "nraffery", WorkDate: "2024-12-03", Entries: []TimeEntryInput{{JobID: job(33), Hours: decimal.Zero}}}
		_, err := req.Parse()
		assert.True(t, errors.Is(err, ErrInvalidHours))
	})

	t.Run("Day total over 24", func(t *testing.T) {
		req := RecordTimeEntriesRequest{
			EmployeeID: "nraffery",
			WorkDate:   "2024-12-03",
			Entries: []TimeEntryInput{
				{JobID: job(33), Hours: decimal.NewFromInt(14)},
				{Category: strPtr("shop"), Hours: decimal.NewFromInt(11)},
			},
		}
		_, err := req.Parse()
		var hoursErr *InvalidHoursError
		require.True(t, errors.As(err, &hoursErr))
		assert.Equal(t, -1, hoursErr.Index)
	})

	t.Run("Needs exactly one of job or category", func(t *testing.T) {
		req := RecordTimeEntriesRequest{EmployeeID: "nraffery", WorkDate: "2024-12-03", Entries: []TimeEntryInput{
			{JobID: job(33), Category: strPtr("shop"), Hours: decimal.NewFromInt(1)},
		}}
		_, err := req.Parse()
		assert.True(t, errors.As(err, new(*ValidationError)))
	})

	t.Run("More than two decimal places", func(t *testing.T) {
		req := RecordTimeEntriesRequest{EmployeeID: "nraffery", WorkDate: "2024-12-03", Entries: []TimeEntryInput{
			{JobID: job(33), Hours: decimal.RequireFromString("8.333")},
		}}
		_, err := req.Parse()
		var hoursErr *InvalidHoursError
		require.True(t, errors.As(err, &hoursErr))
		assert.Equal(t, 0, hoursErr.Index)
		assert.True(t, errors.Is(err, ErrInvalidHours))
	})

	t.Run("Trailing zeros are fine", func(t *testing.T) {
		req := RecordTimeEntriesRequest{EmployeeID: "nraffery", WorkDate: "2024-12-03", Entries: []TimeEntryInput{
			{JobID: job(33), Hours: decimal.RequireFromString("8.500")},
		}}
		_, err := req.Parse()
		assert.NoError(t, err)
	})

	t.Run("Duplicate slot", func(t *testing.T) {
		req := RecordTimeEntriesRequest{EmployeeID: "nraffery", WorkDate: "2024-12-03", Entries: []TimeEntryInput{
			{JobID: job(33), Hours: decimal.NewFromInt(1)},
			{JobID: job(33), Hours: decimal.NewFromInt(2)},
		}}
		_, err := req.Parse()
		assert.True(t, errors.As(err, new(*ValidationError)))
	})
}

func TestSummarizeWeek(t *testing.T) {
	entry := func(hours string, locked bool) TimeEntry {
		return TimeEntry{
			HoursWorked:  decimal.RequireFromString(hours),
			BillableRate: decimal.NewFromInt(125),
			PayRate:      decimal.NewFromInt(35),
			IsLocked:     locked,
		}
	}

	t.Run("Overtime split", func(t *testing.T) {
		s := SummarizeWeek("nraffery", date(t, "2024-12-08"), []TimeEntry{
			entry("10", false), entry("10", false), entry("10", false), entry("10.5", true), entry("3.5", false),
		})
		assert.Equal(t, "44", s.TotalHours.String())
		assert.Equal(t, "40", s.RegularHours.String())
		assert.Equal(t, "4", s.OvertimeHours.String())
		assert.Equal(t, "1540", s.TotalPay.String())
		assert.Equal(t, "5500", s.TotalBillable.String())
		assert.True(t, s.IsLocked)
	})

	t.Run("Empty week", func(t *testing.T) {
		s := SummarizeWeek("nraffery", date(t, "2024-12-08"), nil)
		assert.NotNil(t, s.Entries)
		assert.True(t, s.OvertimeHours.IsZero())
		assert.Equal(t, "2024-12-08", s.WeekEndingDate)
	})
}

func TestTimeEntry_MarshalJSON(t *testing.T) {
	jobID := int64(33)
	e := TimeEntry{
		ID:           1,
		JobID:        &jobID,
		EmployeeID:   "nraffery",
		HoursWorked:  decimal.RequireFromString("8.25"),
		BillableRate: decimal.NewFromInt(125),
		PayRate:      decimal.NewFromInt(35),
	}
	out, err := json.Marshal(e)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "1031.25", got["billable_amount"])
	assert.Equal(t, "288.75", got["pay_amount"])
	assert.NotContains(t, got, "deleted_at")
}

func TestTimeEntry_AmountsAreExact(t *testing.T) {
	e := TimeEntry{
		HoursWorked:  decimal.RequireFromString("8.25"),
		BillableRate: decimal.RequireFromString("125.03"),
		PayRate:      decimal.RequireFromString("35.01"),
	}
	assert.Equal(t, "1031.4975", e.BillableAmount().String())
	assert.Equal(t, "288.8325", e.PayAmount().String())

	out, err := json.Marshal(e)
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "288.8325", got["pay_amount"])

	s := SummarizeWeek("nraffery", date(t, "2024-12-08"), []TimeEntry{e, e})
	assert.Equal(t, "577.665", s.TotalPay.String())
}

func TestUpdateTimeEntryRequest_Validate(t *testing.T) {
	hours := decimal.RequireFromString("1.005")
	err := (&UpdateTimeEntryRequest{Hours: &hours}).Validate()
	assert.True(t, errors.Is(err, ErrInvalidHours))

	hours = decimal.RequireFromString("1.25")
	assert.NoError(t, (&UpdateTimeEntryRequest{Hours: &hours}).Validate())
}

func TestWeekLockRequests(t *testing.T) {
	_, err := (&LockWeekRequest{WeekEndingDate: "2024-12-07"}).Parse()
	assert.True(t, errors.As(err, new(*ValidationError)))

	d, err := (&LockWeekRequest{WeekEndingDate: "2024-12-08"}).Parse()
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d.Weekday())

	_, err = (&UnlockWeekRequest{EmployeeID: "nraffery", WeekEndingDate: "2024-12-08", Reason: " "}).Parse()
	assert.True(t, errors.As(err, new(*ValidationError)))
}

func TestActor_CanActFor(t *testing.T) {
	tech := Actor{Username: "nraffery", Roles: []string{RoleTechnician}}
	assert.True(t, tech.CanActFor("nraffery"))
	assert.False(t, tech.CanActFor("tfisher"))

	manager := Actor{Username: "dispatch", Roles: []string{RoleManager}}
	assert.True(t, manager.CanActFor("tfisher"))
	assert.False(t, manager.IsAdmin())
	assert.True(t, SystemActor.IsAdmin())
}
