package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/noah-isme/rollcall-api/internal/models"
	"github.com/noah-isme/rollcall-api/internal/service"
	"github.com/noah-isme/rollcall-api/internal/tracker"
	"github.com/noah-isme/rollcall-api/pkg/config"
)

// errReported marks failures the tracker already surfaced through the notifier.
var errReported = errors.New("reported")

func isReported(err error) bool { return errors.Is(err, errReported) }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", errReported, err)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (a *app) students(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("students: missing subcommand")
	}
	fs := flag.NewFlagSet("students "+args[0], flag.ContinueOnError)
	id := fs.String("id", "", "student id")
	name := fs.String("name", "", "student name")
	roll := fs.String("roll", "", "roll number")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "list":
		a.board.Refresh(ctx)
		a.printRoster(a.board.Students(), nil)
		return nil
	case "add":
		if trimmed(*name) == "" || trimmed(*roll) == "" {
			return errors.New("students add: -name and -roll are required")
		}
		return reported(a.board.AddStudent(ctx, *name, *roll))
	case "edit":
		if trimmed(*id) == "" || trimmed(*name) == "" || trimmed(*roll) == "" {
			return errors.New("students edit: -id, -name and -roll are required")
		}
		return reported(a.board.UpdateStudent(ctx, *id, *name, *roll))
	case "delete":
		if trimmed(*id) == "" {
			return errors.New("students delete: -id is required")
		}
		return reported(a.board.DeleteStudent(ctx, *id))
	default:
		return fmt.Errorf("students: unknown subcommand %q", args[0])
	}
}

func (a *app) attendance(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("attendance: missing subcommand")
	}
	fs := flag.NewFlagSet("attendance "+args[0], flag.ContinueOnError)
	rawDate := fs.String("date", "", "day as YYYY-MM-DD (default today)")
	studentID := fs.String("student", "", "student id")
	status := fs.String("status", "", "present or absent")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	date := models.Today(a.today, time.Local)
	if trimmed(*rawDate) != "" {
		parsed, err := models.ParseDate(trimmed(*rawDate))
		if err != nil {
			return fmt.Errorf("invalid -date %q, expected YYYY-MM-DD", *rawDate)
		}
		date = parsed
	}

	switch args[0] {
	case "list":
		a.board.Refresh(ctx)
		a.board.SelectDate(ctx, date)
		a.board.SetTab(ctx, tracker.TabAttendance)
		a.printRoster(a.board.Students(), a.board.StatusOf)
		return nil
	case "mark":
		st := models.AttendanceStatus(trimmed(*status))
		if trimmed(*studentID) == "" || !st.Valid() {
			return errors.New("attendance mark: -student and -status present|absent are required")
		}
		a.board.SelectDate(ctx, date)
		a.board.SetTab(ctx, tracker.TabAttendance)
		return reported(a.board.MarkAttendance(ctx, *studentID, st))
	case "summary":
		summary, err := a.client.Summary(ctx, date)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: %d students, %d present, %d absent, %d unmarked (%.1f%% present)\n",
			summary.Date, summary.TotalStudents, summary.Present, summary.Absent, summary.Unmarked, summary.PresentRate)
		return nil
	default:
		return fmt.Errorf("attendance: unknown subcommand %q", args[0])
	}
}

func (a *app) printRoster(students []models.Student, statusOf func(string) (models.AttendanceStatus, bool)) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	header := "ID\tNAME\tROLL"
	if statusOf != nil {
		header += "\tSTATUS"
	}
	fmt.Fprintln(tw, header)
	for _, s := range students {
		line := s.ID + "\t" + s.Name + "\t" + s.RollNumber
		if statusOf != nil {
			status, ok := statusOf(s.ID)
			if !ok {
				status = "-"
			}
			line += "\t" + string(status)
		}
		fmt.Fprintln(tw, line)
	}
	_ = tw.Flush()
	fmt.Fprintf(a.out, "Total students: %d\n", len(students))
}

// issueToken signs an API token with the server's JWT settings.
func issueToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	role := fs.String("role", string(models.RoleReader), "reader or editor")
	subject := fs.String("subject", "rollcall-cli", "token subject")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "error: load config:", err)
		return 1
	}
	auth := service.NewAuthService(service.AuthConfig{Secret: cfg.Auth.Secret, Issuer: cfg.Auth.Issuer, Expiry: cfg.Auth.Expiration})
	token, expiresAt, err := auth.IssueToken(*subject, models.ClientRole(*role))
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
	return 0
}
