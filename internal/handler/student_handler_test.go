package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rollcall-api/internal/models"
)

func TestStudentHandlerList(t *testing.T) {
	ts := newTestServer(t)
	ts.students.students = []models.Student{{ID: "s1", Name: "Ada", RollNumber: "01"}}
	ts.students.hit = true

	rec, env := ts.do(t, http.MethodGet, "/api/v1/students?search=ad&page=2&limit=10&order=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ad", ts.students.lastFilter.Search)
	assert.Equal(t, 2, ts.students.lastFilter.Page)
	assert.Equal(t, 10, ts.students.lastFilter.PageSize)
	assert.Equal(t, "desc", ts.students.lastFilter.SortOrder)
	assert.Equal(t, true, env.Meta["cache_hit"])
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)

	var students []models.Student
	require.NoError(t, json.Unmarshal(env.Data, &students))
	assert.Equal(t, "Ada", students[0].Name)
}

func TestStudentHandlerListFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.students.err = errBoom

	rec, env := ts.do(t, http.MethodGet, "/api/v1/students", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
}

func TestStudentHandlerCreate(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/students", map[string]string{"name": "Ada", "roll_number": "01"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Ada", ts.students.lastCreate.Name)

	var student models.Student
	require.NoError(t, json.Unmarshal(env.Data, &student))
	assert.Equal(t, "new", student.ID)
	assert.Equal(t, "01", student.RollNumber)
}

func TestStudentHandlerCreateRejectsBadJSON(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodPost, "/api/v1/students", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/students/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestStudentHandlerUpdate(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodPut, "/api/v1/students/s1", map[string]string{"name": "Ada L", "roll_number": "02"})
	require.Equal(t, http.StatusOK, rec.Code)

	var student models.Student
	require.NoError(t, json.Unmarshal(env.Data, &student))
	assert.Equal(t, "s1", student.ID)
	assert.Equal(t, "Ada L", student.Name)
}

func TestStudentHandlerDelete(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(t, http.MethodDelete, "/api/v1/students/s1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"s1"}, ts.students.deleted)
}
