package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rollcall-api/internal/models"
	"github.com/noah-isme/rollcall-api/internal/service"
	appErrors "github.com/noah-isme/rollcall-api/pkg/errors"
)

type fakeStudentSrv struct {
	students   []models.Student
	hit        bool
	err        error
	lastFilter models.StudentFilter
	lastCreate service.CreateStudentRequest
	lastUpdate service.UpdateStudentRequest
	deleted    []string
}

func (f *fakeStudentSrv) List(_ context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, bool, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, nil, false, f.err
	}
	return f.students, &models.Pagination{Page: 1, PageSize: 100, TotalCount: len(f.students)}, f.hit, nil
}

func (f *fakeStudentSrv) Get(_ context.Context, id string) (*models.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (f *fakeStudentSrv) Create(_ context.Context, req service.CreateStudentRequest) (*models.Student, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: "new", Name: req.Name, RollNumber: req.RollNumber}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, id string, req service.UpdateStudentRequest) (*models.Student, error) {
	f.lastUpdate = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id, Name: req.Name, RollNumber: req.RollNumber}, nil
}

func (f *fakeStudentSrv) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAttendanceSrv struct {
	records     []models.Attendance
	hit         bool
	created     bool
	err         error
	listedDate  time.Time
	lastMark    service.MarkAttendanceRequest
	lastInsert  service.InsertAttendanceRequest
	lastUpdate  service.UpdateAttendanceStatusRequest
	historyFrom *time.Time
	historyTo   *time.Time
}

func (f *fakeAttendanceSrv) ListByDate(_ context.Context, date time.Time) ([]models.Attendance, bool, error) {
	f.listedDate = date
	return f.records, f.hit, f.err
}

func (f *fakeAttendanceSrv) Insert(_ context.Context, req service.InsertAttendanceRequest) (*models.Attendance, error) {
	f.lastInsert = req
	if f.err != nil {
		return nil, f.err
	}
	date, _ := models.ParseDate(req.Date)
	return &models.Attendance{ID: "att-1", StudentID: req.StudentID, Date: date, Status: models.AttendanceStatus(req.Status)}, nil
}

func (f *fakeAttendanceSrv) UpdateStatus(_ context.Context, id string, req service.UpdateAttendanceStatusRequest) (*models.Attendance, error) {
	f.lastUpdate = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Attendance{ID: id, Status: models.AttendanceStatus(req.Status)}, nil
}

func (f *fakeAttendanceSrv) Mark(_ context.Context, req service.MarkAttendanceRequest) (*models.Attendance, bool, error) {
	f.lastMark = req
	if f.err != nil {
		return nil, false, f.err
	}
	date, _ := models.ParseDate(req.Date)
	return &models.Attendance{ID: "att-1", StudentID: req.StudentID, Date: date, Status: models.AttendanceStatus(req.Status)}, f.created, nil
}

func (f *fakeAttendanceSrv) Summary(_ context.Context, date time.Time) (*models.AttendanceSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.AttendanceSummary{Date: date.Format(models.DateLayout), TotalStudents: 2, Present: 1, Unmarked: 1, PresentRate: 50}, nil
}

func (f *fakeAttendanceSrv) History(_ context.Context, _ string, from, to *time.Time) ([]models.AttendanceHistoryRow, error) {
	f.historyFrom, f.historyTo = from, to
	return []models.AttendanceHistoryRow{}, f.err
}

type fakeExporter struct {
	format string
	date   time.Time
}

func (f *fakeExporter) DailyRegister(_ context.Context, date time.Time, format string) (*service.ExportFile, error) {
	f.format, f.date = format, date
	if format == "xlsx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.ExportFile{Filename: "attendance-" + date.Format(models.DateLayout) + ".csv", ContentType: "text/csv", Body: []byte("Name,Roll Number,Status\n")}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type testEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

type testServer struct {
	engine     *gin.Engine
	students   *fakeStudentSrv
	attendance *fakeAttendanceSrv
	exporter   *fakeExporter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts := &testServer{
		engine:     gin.New(),
		students:   &fakeStudentSrv{},
		attendance: &fakeAttendanceSrv{},
		exporter:   &fakeExporter{},
	}
	attendanceHandler := NewAttendanceHandler(ts.attendance, ts.exporter, time.UTC)
	attendanceHandler.now = func() time.Time { return time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC) }
	Register(ts.engine, RouterConfig{
		APIPrefix:  "/api/v1",
		Students:   NewStudentHandler(ts.students),
		Attendance: attendanceHandler,
		Metrics:    NewMetricsHandler(service.NewMetricsService(), fakePinger{}),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Header().Get("Content-Type") == "application/json; charset=utf-8" && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

var errBoom = errors.New("boom")
