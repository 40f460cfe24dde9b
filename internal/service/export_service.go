package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rollcall-api/internal/models"
	appErrors "github.com/noah-isme/rollcall-api/pkg/errors"
	"github.com/noah-isme/rollcall-api/pkg/export"
)

const (
	exportPageSize = 500
	statusUnmarked = "unmarked"
)

type studentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type attendanceLister interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the daily attendance register.
type ExportService struct {
	students   studentLister
	attendance attendanceLister
	logger     *zap.Logger
	render     func(export.Format, export.Dataset) ([]byte, error)
}

// NewExportService constructs the export service.
func NewExportService(students studentLister, attendance attendanceLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{students: students, attendance: attendance, logger: logger, render: export.Render}
}

// DailyRegister lists every student by name with their status for the day, or "unmarked".
func (s *ExportService) DailyRegister(ctx context.Context, date time.Time, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be csv or pdf")
	}

	roster, err := s.allStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{Date: date})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	statusByStudent := make(map[string]models.AttendanceStatus, len(records))
	for _, r := range records {
		statusByStudent[r.StudentID] = r.Status
	}

	day := date.Format(models.DateLayout)
	dataset := export.Dataset{
		Title:    "Attendance Register",
		Subtitle: day,
		Headers:  []string{"Name", "Roll Number", "Status"},
		Rows:     make([]map[string]string, 0, len(roster)),
	}
	for _, st := range roster {
		status := statusUnmarked
		if v, ok := statusByStudent[st.ID]; ok {
			status = string(v)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Name":        st.Name,
			"Roll Number": st.RollNumber,
			"Status":      status,
		})
	}

	body, err := s.render(format, dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register")
	}
	s.logger.Info("attendance register exported", zap.String("date", day), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("attendance-%s.%s", day, format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

func (s *ExportService) allStudents(ctx context.Context) ([]models.Student, error) {
	var all []models.Student
	for page := 1; ; page++ {
		batch, total, err := s.students.List(ctx, models.StudentFilter{Page: page, PageSize: exportPageSize, SortBy: "name", SortOrder: "ASC"})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < exportPageSize || len(all) >= total {
			return all, nil
		}
	}
}
