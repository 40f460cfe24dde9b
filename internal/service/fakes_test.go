package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/rollcall-api/internal/models"
	"github.com/noah-isme/rollcall-api/internal/repository"
	appErrors "github.com/noah-isme/rollcall-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]models.Student
	seq      int
	err      error
	listed   int
}

func newMockStudentRepo(students ...models.Student) *mockStudentRepo {
	repo := &mockStudentRepo{students: make(map[string]models.Student)}
	for _, s := range students {
		repo.students[s.ID] = s
	}
	return repo
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	m.listed++
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		if filter.Search == "" || strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Search)) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	start := (filter.Page - 1) * filter.PageSize
	if start > len(out) {
		start = len(out)
	}
	end := start + filter.PageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Count(ctx context.Context) (int, error) {
	return len(m.students), m.err
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.err != nil {
		return m.err
	}
	m.seq++
	student.ID = fmt.Sprintf("student-%d", m.seq)
	student.CreatedAt = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	return nil
}

type mockAttendanceRepo struct {
	records map[string]models.Attendance
	seq     int
	// raceOnCreate simulates another writer inserting the same pair between lookup and insert.
	raceOnCreate *models.Attendance
	creates      int
	updates      int
	listErr      error
	lastFilter   models.AttendanceFilter
}

func newMockAttendanceRepo(records ...models.Attendance) *mockAttendanceRepo {
	repo := &mockAttendanceRepo{records: make(map[string]models.Attendance)}
	for _, r := range records {
		repo.records[r.ID] = r
	}
	return repo
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.Attendance, error) {
	m.lastFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.Attendance{}
	for _, r := range m.records {
		if r.SameDay(filter.Date) && (filter.StudentID == "" || r.StudentID == filter.StudentID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockAttendanceRepo) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	if r, ok := m.records[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) FindByStudentAndDate(ctx context.Context, studentID string, date time.Time) (*models.Attendance, error) {
	for _, r := range m.records {
		if r.StudentID == studentID && r.SameDay(date) {
			return &r, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAttendanceRepo) Create(ctx context.Context, record *models.Attendance) error {
	m.creates++
	if m.raceOnCreate != nil {
		m.records[m.raceOnCreate.ID] = *m.raceOnCreate
		m.raceOnCreate = nil
	}
	for _, r := range m.records {
		if r.StudentID == record.StudentID && r.SameDay(record.Date) {
			return fmt.Errorf("create attendance: %w", repository.ErrDuplicate)
		}
	}
	m.seq++
	record.ID = fmt.Sprintf("att-%d", m.seq)
	m.records[record.ID] = *record
	return nil
}

func (m *mockAttendanceRepo) UpdateStatus(ctx context.Context, id string, status models.AttendanceStatus) error {
	m.updates++
	r, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	r.Status = status
	m.records[id] = r
	return nil
}

func (m *mockAttendanceRepo) History(ctx context.Context, studentID string, from, to *time.Time) ([]models.AttendanceHistoryRow, error) {
	out := []models.AttendanceHistoryRow{}
	for _, r := range m.records {
		if r.StudentID == studentID {
			out = append(out, models.AttendanceHistoryRow{Date: r.Date, Status: r.Status})
		}
	}
	return out, nil
}

func (m *mockAttendanceRepo) CountByStatus(ctx context.Context, date time.Time) ([]models.StatusCount, error) {
	counts := map[models.AttendanceStatus]int{}
	for _, r := range m.records {
		if r.SameDay(date) {
			counts[r.Status]++
		}
	}
	out := []models.StatusCount{}
	for status, n := range counts {
		out = append(out, models.StatusCount{Status: status, Count: n})
	}
	return out, nil
}

type memoryCache struct {
	entries     map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func day(raw string) time.Time {
	d, err := models.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}
