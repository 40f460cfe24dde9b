package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rollcall-api/internal/models"
)

func TestAttendanceHandlerListDefaultsToToday(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/api/v1/attendance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-01", ts.attendance.listedDate.Format(models.DateLayout))
}

func TestAttendanceHandlerListByDate(t *testing.T) {
	ts := newTestServer(t)
	date, _ := models.ParseDate("2024-02-10")
	ts.attendance.records = []models.Attendance{{ID: "a1", StudentID: "s1", Date: date, Status: models.AttendanceStatusPresent}}

	rec, env := ts.do(t, http.MethodGet, "/api/v1/attendance?date=2024-02-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-02-10", ts.attendance.listedDate.Format(models.DateLayout))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-02-10", rows[0]["date"])
	assert.Equal(t, "present", rows[0]["status"])
	assert.Equal(t, false, env.Meta["cache_hit"])
}

func TestAttendanceHandlerListRejectsBadDate(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/attendance?date=10/02/2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestAttendanceHandlerMarkStatusCodes(t *testing.T) {
	ts := newTestServer(t)
	payload := map[string]string{"student_id": "s1", "date": "2024-03-01", "status": "present"}

	ts.attendance.created = true
	rec, _ := ts.do(t, http.MethodPost, "/api/v1/attendance/mark", payload)
	assert.Equal(t, http.StatusCreated, rec.Code)

	ts.attendance.created = false
	rec, _ = ts.do(t, http.MethodPost, "/api/v1/attendance/mark", payload)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttendanceHandlerMarkDefaultsDate(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodPost, "/api/v1/attendance/mark", map[string]string{"student_id": "s1", "status": "absent"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-01", ts.attendance.lastMark.Date)
}

func TestAttendanceHandlerInsertAndPatch(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodPost, "/api/v1/attendance", map[string]string{"student_id": "s1", "date": "2024-03-01", "status": "present"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "s1", ts.attendance.lastInsert.StudentID)

	rec, env := ts.do(t, http.MethodPatch, "/api/v1/attendance/att-1", map[string]string{"status": "absent"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "absent", ts.attendance.lastUpdate.Status)
	assert.Contains(t, string(env.Data), `"status":"absent"`)
}

func TestAttendanceHandlerSummary(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/attendance/summary?date=2024-03-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.AttendanceSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 2, summary.TotalStudents)
	assert.Equal(t, 1, summary.Unmarked)
}

func TestAttendanceHandlerExport(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/api/v1/attendance/export?date=2024-03-01&format=CSV", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", ts.exporter.format)
	assert.Equal(t, `attachment; filename="attendance-2024-03-01.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/attendance/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendanceHandlerHistory(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodGet, "/api/v1/students/s1/attendance?from=2024-02-01", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.attendance.historyFrom)
	assert.Equal(t, "2024-02-01", ts.attendance.historyFrom.Format(models.DateLayout))
	assert.Nil(t, ts.attendance.historyTo)

	rec, _ = ts.do(t, http.MethodGet, "/api/v1/students/s1/attendance?to=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
