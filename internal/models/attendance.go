package models

import (
	"encoding/json"
	"time"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// Attendance is one student's status for one calendar day.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	Date      time.Time        `db:"date" json:"-"`
	Status    AttendanceStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

type attendanceJSON struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id"`
	Date      string           `json:"date"`
	Status    AttendanceStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// MarshalJSON renders the date as a calendar day.
func (a Attendance) MarshalJSON() ([]byte, error) {
	return json.Marshal(attendanceJSON{
		ID:        a.ID,
		StudentID: a.StudentID,
		Date:      a.Date.Format(DateLayout),
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
	})
}

// UnmarshalJSON accepts the calendar day format produced by MarshalJSON.
func (a *Attendance) UnmarshalJSON(data []byte) error {
	var raw attendanceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.ID = raw.ID
	a.StudentID = raw.StudentID
	a.Status = raw.Status
	a.CreatedAt = raw.CreatedAt
	a.Date = time.Time{}
	if raw.Date != "" {
		date, err := ParseDate(raw.Date)
		if err != nil {
			return err
		}
		a.Date = date
	}
	return nil
}

// SameDay reports whether the record belongs to the calendar day of date.
func (a Attendance) SameDay(date time.Time) bool {
	return a.Date.Format(DateLayout) == date.Format(DateLayout)
}

// AttendanceFilter scopes attendance listing to a day and optionally a student.
type AttendanceFilter struct {
	Date      time.Time
	StudentID string
}

// AttendanceSummary aggregates a day's register against the roster size.
type AttendanceSummary struct {
	Date          string  `json:"date"`
	TotalStudents int     `json:"total_students"`
	Present       int     `json:"present"`
	Absent        int     `json:"absent"`
	Unmarked      int     `json:"unmarked"`
	PresentRate   float64 `json:"present_rate"`
}

// AttendanceHistoryRow is one day in a student's attendance history.
type AttendanceHistoryRow struct {
	Date   time.Time        `db:"date" json:"-"`
	Status AttendanceStatus `db:"status" json:"status"`
}

// MarshalJSON renders the date as a calendar day.
func (r AttendanceHistoryRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date   string           `json:"date"`
		Status AttendanceStatus `json:"status"`
	}{Date: r.Date.Format(DateLayout), Status: r.Status})
}

// StatusCount is a grouped count of records by status.
type StatusCount struct {
	Status AttendanceStatus `db:"status"`
	Count  int              `db:"cnt"`
}
