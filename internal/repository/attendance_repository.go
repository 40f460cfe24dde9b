package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/rollcall-api/internal/models"
)

const attendanceColumns = "id, student_id, date, status, created_at"

// AttendanceRepository handles persistence for daily attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns the records for one calendar day, optionally narrowed to a student.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	where := []string{"date = $1"}
	args := []interface{}{filter.Date.Format(models.DateLayout)}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE %s ORDER BY created_at, id", attendanceColumns, strings.Join(where, " AND "))
	rows := []models.Attendance{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// FindByID fetches a single record.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, "SELECT "+attendanceColumns+" FROM attendance WHERE id = $1", id); err != nil {
		return nil, missingOnMalformedID(err)
	}
	return &record, nil
}

// FindByStudentAndDate returns the record for (student, day) or sql.ErrNoRows.
func (r *AttendanceRepository) FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.Attendance, error) {
	var record models.Attendance
	query := "SELECT " + attendanceColumns + " FROM attendance WHERE student_id = $1 AND date = $2 LIMIT 1"
	if err := r.db.GetContext(ctx, &record, query, studentID, date.Format(models.DateLayout)); err != nil {
		return nil, missingOnMalformedID(err)
	}
	return &record, nil
}

// Create inserts a record. A second record for the same (student, day) yields ErrDuplicate.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance (id, student_id, date, status, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.StudentID, record.Date.Format(models.DateLayout), record.Status, record.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create attendance: %w", ErrDuplicate)
		}
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// UpdateStatus changes only the status column. It returns sql.ErrNoRows when the id is unknown.
func (r *AttendanceRepository) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE attendance SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("update attendance status: %w", missingOnMalformedID(err))
	}
	return expectAffected(res, "update attendance status")
}

// History returns a student's records within an optional date range, newest first.
func (r *AttendanceRepository) History(ctx context.Context, studentID string, from, to *time.Time) ([]models.AttendanceHistoryRow, error) {
	where := []string{"student_id = $1"}
	args := []interface{}{studentID}
	if from != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, from.Format(models.DateLayout))
	}
	if to != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, to.Format(models.DateLayout))
	}
	query := fmt.Sprintf("SELECT date, status FROM attendance WHERE %s ORDER BY date DESC", strings.Join(where, " AND "))
	rows := []models.AttendanceHistoryRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("student attendance history: %w", err)
	}
	return rows, nil
}

// CountByStatus groups one day's records by status.
func (r *AttendanceRepository) CountByStatus(ctx context.Context, date time.Time) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS cnt FROM attendance WHERE date = $1 GROUP BY status`
	rows := []models.StatusCount{}
	if err := r.db.SelectContext(ctx, &rows, query, date.Format(models.DateLayout)); err != nil {
		return nil, fmt.Errorf("count attendance by status: %w", err)
	}
	return rows, nil
}
