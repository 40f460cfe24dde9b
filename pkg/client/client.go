// Package client is a typed HTTP client for the rollcall API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/rollcall-api/internal/models"
	appErrors "github.com/noah-isme/rollcall-api/pkg/errors"
	"github.com/noah-isme/rollcall-api/pkg/middleware/requestid"
)

const rosterPageSize = 500

// Client talks to the API under a base URL that includes the API prefix,
// e.g. http://localhost:8080/api/v1.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends the bearer token with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// New constructs a Client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *appErrors.Error   `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

type studentPayload struct {
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
}

type attendancePayload struct {
	StudentID string `json:"student_id"`
	Date      string `json:"date"`
	Status    string `json:"status"`
}

// ListStudents returns the whole roster ordered by name.
func (c *Client) ListStudents(ctx context.Context) ([]models.Student, error) {
	var all []models.Student
	for page := 1; ; page++ {
		query := url.Values{"page": {fmt.Sprint(page)}, "limit": {fmt.Sprint(rosterPageSize)}}
		var batch []models.Student
		pagination, err := c.do(ctx, http.MethodGet, "/students?"+query.Encode(), nil, &batch)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if pagination == nil || len(batch) < rosterPageSize || len(all) >= pagination.TotalCount {
			return all, nil
		}
	}
}

// CreateStudent adds a student.
func (c *Client) CreateStudent(ctx context.Context, name, rollNumber string) (*models.Student, error) {
	var student models.Student
	if _, err := c.do(ctx, http.MethodPost, "/students", studentPayload{Name: name, RollNumber: rollNumber}, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// UpdateStudent replaces a student's name and roll number.
func (c *Client) UpdateStudent(ctx context.Context, id, name, rollNumber string) (*models.Student, error) {
	var student models.Student
	if _, err := c.do(ctx, http.MethodPut, "/students/"+url.PathEscape(id), studentPayload{Name: name, RollNumber: rollNumber}, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// DeleteStudent removes a student.
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/students/"+url.PathEscape(id), nil, nil)
	return err
}

// ListAttendance returns the records for one day.
func (c *Client) ListAttendance(ctx context.Context, date time.Time) ([]models.Attendance, error) {
	var records []models.Attendance
	if _, err := c.do(ctx, http.MethodGet, "/attendance?date="+date.Format(models.DateLayout), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// InsertAttendance records a status without looking for an existing record.
func (c *Client) InsertAttendance(ctx context.Context, studentID string, date time.Time, status models.AttendanceStatus) (*models.Attendance, error) {
	var record models.Attendance
	payload := attendancePayload{StudentID: studentID, Date: date.Format(models.DateLayout), Status: string(status)}
	if _, err := c.do(ctx, http.MethodPost, "/attendance", payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateAttendanceStatus changes the status of an existing record.
func (c *Client) UpdateAttendanceStatus(ctx context.Context, id string, status models.AttendanceStatus) (*models.Attendance, error) {
	var record models.Attendance
	payload := map[string]string{"status": string(status)}
	if _, err := c.do(ctx, http.MethodPatch, "/attendance/"+url.PathEscape(id), payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkAttendance asks the server to update or create the record for (student, date).
func (c *Client) MarkAttendance(ctx context.Context, studentID string, date time.Time, status models.AttendanceStatus) (*models.Attendance, error) {
	var record models.Attendance
	payload := attendancePayload{StudentID: studentID, Date: date.Format(models.DateLayout), Status: string(status)}
	if _, err := c.do(ctx, http.MethodPost, "/attendance/mark", payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Summary returns the day's counts.
func (c *Client) Summary(ctx context.Context, date time.Time) (*models.AttendanceSummary, error) {
	var summary models.AttendanceSummary
	if _, err := c.do(ctx, http.MethodGet, "/attendance/summary?date="+date.Format(models.DateLayout), nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}) (*models.Pagination, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "api unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 400 {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	if resp.StatusCode >= 400 {
		if env.Error != nil && env.Error.Code != "" {
			if env.Error.Status == 0 {
				env.Error.Status = resp.StatusCode
			}
			return nil, env.Error
		}
		return nil, appErrors.New("HTTP_ERROR", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return env.Pagination, nil
}
