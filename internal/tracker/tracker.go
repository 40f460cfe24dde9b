// Package tracker holds the client-side state behind the roster and attendance views:
// which tab is open, the roster, the selected day and that day's attendance.
//
// A Board is meant to be driven from a single goroutine and does no locking.
package tracker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rollcall-api/internal/models"
)

// Tab names a view.
type Tab string

const (
	TabStudents   Tab = "students"
	TabAttendance Tab = "attendance"
)

// Notification messages shown to the user after each action.
const (
	MsgStudentAdded       = "Student added successfully"
	MsgStudentAddFailed   = "Failed to add student"
	MsgStudentUpdated     = "Student updated successfully"
	MsgStudentUpdateFail  = "Failed to update student"
	MsgStudentDeleted     = "Student deleted successfully"
	MsgStudentDeleteFail  = "Failed to delete student"
	MsgAttendanceMarked   = "Attendance marked successfully"
	MsgAttendanceMarkFail = "Failed to mark attendance"
)

// Backend is the data store the board reads from and writes to.
type Backend interface {
	// ListStudents returns the roster ordered by name.
	ListStudents(ctx context.Context) ([]models.Student, error)
	CreateStudent(ctx context.Context, name, rollNumber string) (*models.Student, error)
	UpdateStudent(ctx context.Context, id, name, rollNumber string) (*models.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	ListAttendance(ctx context.Context, date time.Time) ([]models.Attendance, error)
	InsertAttendance(ctx context.Context, studentID string, date time.Time, status models.AttendanceStatus) (*models.Attendance, error)
	UpdateAttendanceStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.Attendance, error)
}

// Notifier surfaces the outcome of user actions.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// Board is the tracker state container.
type Board struct {
	backend Backend
	notify  Notifier
	logger  *zap.Logger

	tab        Tab
	date       time.Time
	students   []models.Student
	attendance []models.Attendance
}

// New returns a board on the students tab with today selected.
func New(backend Backend, notify Notifier, logger *zap.Logger, today time.Time) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notify == nil {
		notify = discard{}
	}
	return &Board{
		backend: backend,
		notify:  notify,
		logger:  logger,
		tab:     TabStudents,
		date:    models.Today(today, today.Location()),
	}
}

// Tab returns the active tab.
func (b *Board) Tab() Tab { return b.tab }

// Date returns the selected day.
func (b *Board) Date() time.Time { return b.date }

// Students returns the roster in the backend's name order.
func (b *Board) Students() []models.Student { return b.students }

// Attendance returns the cached records for the selected day.
func (b *Board) Attendance() []models.Attendance { return b.attendance }

// TotalStudents returns the roster size.
func (b *Board) TotalStudents() int { return len(b.students) }

// Refresh reloads the roster.
func (b *Board) Refresh(ctx context.Context) {
	b.loadStudents(ctx)
}

// SetTab switches views. Opening the attendance tab loads the selected day.
func (b *Board) SetTab(ctx context.Context, tab Tab) {
	b.tab = tab
	if tab == TabAttendance {
		b.loadAttendance(ctx)
	}
}

// SelectDate changes the selected day and reloads its attendance while that tab is open.
func (b *Board) SelectDate(ctx context.Context, date time.Time) {
	b.date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if b.tab == TabAttendance {
		b.loadAttendance(ctx)
	}
}

// AddStudent creates a student and reloads the roster.
func (b *Board) AddStudent(ctx context.Context, name, rollNumber string) error {
	if _, err := b.backend.CreateStudent(ctx, name, rollNumber); err != nil {
		b.fail(MsgStudentAddFailed, err)
		return err
	}
	b.loadStudents(ctx)
	b.notify.Success(MsgStudentAdded)
	return nil
}

// UpdateStudent replaces a student's name and roll number and reloads the roster.
func (b *Board) UpdateStudent(ctx context.Context, id, name, rollNumber string) error {
	if _, err := b.backend.UpdateStudent(ctx, id, name, rollNumber); err != nil {
		b.fail(MsgStudentUpdateFail, err)
		return err
	}
	b.loadStudents(ctx)
	b.notify.Success(MsgStudentUpdated)
	return nil
}

// DeleteStudent removes a student and reloads the roster.
func (b *Board) DeleteStudent(ctx context.Context, id string) error {
	if err := b.backend.DeleteStudent(ctx, id); err != nil {
		b.fail(MsgStudentDeleteFail, err)
		return err
	}
	b.loadStudents(ctx)
	b.notify.Success(MsgStudentDeleted)
	return nil
}

// MarkAttendance sets the student's status for the selected day. The existing record is
// looked up in the cached attendance set, not re-queried: if it is stale, or another
// client inserts the same pair first, the backend's unique constraint rejects the insert
// and the failure is reported like any other.
func (b *Board) MarkAttendance(ctx context.Context, studentID string, status models.AttendanceStatus) error {
	var err error
	if existing := b.find(studentID); existing != nil {
		_, err = b.backend.UpdateAttendanceStatus(ctx, existing.ID, status)
	} else {
		_, err = b.backend.InsertAttendance(ctx, studentID, b.date, status)
	}
	if err != nil {
		b.fail(MsgAttendanceMarkFail, err)
		return err
	}
	b.loadAttendance(ctx)
	b.notify.Success(MsgAttendanceMarked)
	return nil
}

// StatusOf returns the cached status for the student on the selected day.
func (b *Board) StatusOf(studentID string) (models.AttendanceStatus, bool) {
	if rec := b.find(studentID); rec != nil {
		return rec.Status, true
	}
	return "", false
}

func (b *Board) find(studentID string) *models.Attendance {
	for i := range b.attendance {
		if b.attendance[i].StudentID == studentID && b.attendance[i].SameDay(b.date) {
			return &b.attendance[i]
		}
	}
	return nil
}

func (b *Board) loadStudents(ctx context.Context) {
	students, err := b.backend.ListStudents(ctx)
	if err != nil {
		b.logger.Error("fetch students failed", zap.Error(err))
		return
	}
	b.students = students
}

func (b *Board) loadAttendance(ctx context.Context) {
	records, err := b.backend.ListAttendance(ctx, b.date)
	if err != nil {
		b.logger.Error("fetch attendance failed", zap.Error(err), zap.String("date", b.date.Format(models.DateLayout)))
		return
	}
	b.attendance = records
}

func (b *Board) fail(message string, err error) {
	b.logger.Warn(message, zap.Error(err))
	b.notify.Failure(message)
}

type discard struct{}

func (discard) Success(string) {}
func (discard) Failure(string) {}
