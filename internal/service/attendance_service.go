package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/rollcall-api/internal/models"
	"github.com/noah-isme/rollcall-api/internal/repository"
	appErrors "github.com/noah-isme/rollcall-api/pkg/errors"
)

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.Attendance, error)
	Create(ctx context.Context, record *models.Attendance) error
	UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) error
	History(ctx context.Context, studentID string, from, to *time.Time) ([]models.AttendanceHistoryRow, error)
	CountByStatus(ctx context.Context, date time.Time) ([]models.StatusCount, error)
}

type rosterReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Count(ctx context.Context) (int, error)
}

// InsertAttendanceRequest creates a record without looking for an existing one.
type InsertAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// MarkAttendanceRequest applies the update-else-insert rule for (student, date).
type MarkAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required,attendance_status"`
}

// UpdateAttendanceStatusRequest changes the status of an existing record.
type UpdateAttendanceStatusRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
}

// AttendanceService coordinates attendance workflows.
type AttendanceService struct {
	repo      attendanceRepository
	students  rosterReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// AttendanceServiceParams groups constructor dependencies.
type AttendanceServiceParams struct {
	Repo      attendanceRepository
	Students  rosterReader
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	CacheTTL  time.Duration
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(params AttendanceServiceParams) *AttendanceService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = validate.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		return normaliseStatus(fl.Field().String()).Valid()
	})
	return &AttendanceService{
		repo:      params.Repo,
		students:  params.Students,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  params.CacheTTL,
	}
}

// ListByDate returns the records for exactly one calendar day.
func (s *AttendanceService) ListByDate(ctx context.Context, date time.Time) ([]models.Attendance, bool, error) {
	key := cacheKeyAttendance + "date:" + date.Format(models.DateLayout)
	var rows []models.Attendance
	if s.cache.Get(ctx, key, &rows) {
		return rows, true, nil
	}
	done := s.metrics.timeQuery("attendance.list")
	rows, err := s.repo.List(ctx, models.AttendanceFilter{Date: date})
	done()
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	s.cache.Set(ctx, key, rows, s.cacheTTL)
	return rows, false, nil
}

// Insert stores a new record. A second record for the same (student, date) is a conflict.
func (s *AttendanceService) Insert(ctx context.Context, req InsertAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := parseDay(req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}
	record := &models.Attendance{StudentID: req.StudentID, Date: date, Status: normaliseStatus(req.Status)}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "attendance already recorded for this student and date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	s.afterWrite(ctx, record, MarkOutcomeCreated)
	return record, nil
}

// UpdateStatus changes only the status field of an existing record.
func (s *AttendanceService) UpdateStatus(ctx context.Context, id string, req UpdateAttendanceStatusRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	status := normaliseStatus(req.Status)
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	record.Status = status
	s.afterWrite(ctx, record, MarkOutcomeUpdated)
	return record, nil
}

// Mark looks up the record for (student, date); it updates the status when one exists and
// inserts a new record otherwise. The boolean reports whether a record was created.
// The lookup and the write are separate statements: if a concurrent writer inserts the
// same pair in between, the unique constraint rejects our insert and the winner's record
// is updated instead.
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (*models.Attendance, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	date, err := parseDay(req.Date)
	if err != nil {
		return nil, false, err
	}
	if err := s.ensureStudent(ctx, req.StudentID); err != nil {
		return nil, false, err
	}
	status := normaliseStatus(req.Status)

	existing, err := s.repo.FindByStudentAndDate(ctx, req.StudentID, date)
	switch {
	case err == nil:
		return s.updateExisting(ctx, existing, status, MarkOutcomeUpdated)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	record := &models.Attendance{StudentID: req.StudentID, Date: date, Status: status}
	if err := s.repo.Create(ctx, record); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
		}
		winner, findErr := s.repo.FindByStudentAndDate(ctx, req.StudentID, date)
		if findErr != nil {
			return nil, false, appErrors.Wrap(findErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "attendance changed concurrently")
		}
		s.logger.Info("attendance insert lost race, updating existing record",
			zap.String("student_id", req.StudentID), zap.String("date", req.Date))
		return s.updateExisting(ctx, winner, status, MarkOutcomeRaced)
	}
	s.afterWrite(ctx, record, MarkOutcomeCreated)
	return record, true, nil
}

func (s *AttendanceService) updateExisting(ctx context.Context, record *models.Attendance, status models.AttendanceStatus, outcome string) (*models.Attendance, bool, error) {
	if err := s.repo.UpdateStatus(ctx, record.ID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrConflict, "attendance record removed concurrently")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	record.Status = status
	s.afterWrite(ctx, record, outcome)
	return record, false, nil
}

// Summary counts the day's marks against the roster size.
func (s *AttendanceService) Summary(ctx context.Context, date time.Time) (*models.AttendanceSummary, error) {
	total, err := s.students.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	counts, err := s.repo.CountByStatus(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	summary := &models.AttendanceSummary{Date: date.Format(models.DateLayout), TotalStudents: total}
	for _, c := range counts {
		switch c.Status {
		case models.AttendanceStatusPresent:
			summary.Present += c.Count
		case models.AttendanceStatusAbsent:
			summary.Absent += c.Count
		}
	}
	summary.Unmarked = total - summary.Present - summary.Absent
	if summary.Unmarked < 0 {
		summary.Unmarked = 0
	}
	if total > 0 {
		summary.PresentRate = float64(summary.Present) / float64(total) * 100
	}
	return summary, nil
}

// History returns a student's attendance between the optional bounds.
func (s *AttendanceService) History(ctx context.Context, studentID string, from, to *time.Time) ([]models.AttendanceHistoryRow, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}
	rows, err := s.repo.History(ctx, studentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance history")
	}
	return rows, nil
}

func (s *AttendanceService) ensureStudent(ctx context.Context, id string) error {
	if _, err := s.students.FindByID(ctx, id); err != nil {
		return studentLookupError(err)
	}
	return nil
}

func (s *AttendanceService) afterWrite(ctx context.Context, record *models.Attendance, outcome string) {
	s.metrics.RecordMark(outcome, string(record.Status))
	s.cache.Invalidate(ctx, cacheKeyAttendance+"date:"+record.Date.Format(models.DateLayout))
	s.logger.Debug("attendance written",
		zap.String("id", record.ID),
		zap.String("student_id", record.StudentID),
		zap.String("status", string(record.Status)),
		zap.String("outcome", outcome))
}

func normaliseStatus(raw string) models.AttendanceStatus {
	return models.AttendanceStatus(strings.ToLower(strings.TrimSpace(raw)))
}

func parseDay(raw string) (time.Time, error) {
	date, err := models.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return date, nil
}
