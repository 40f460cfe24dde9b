package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noah-isme/rollcall-api/internal/tracker"
	"github.com/noah-isme/rollcall-api/pkg/client"
	"github.com/noah-isme/rollcall-api/pkg/middleware/requestid"
)

var _ tracker.Backend = (*client.Client)(nil)

const usage = `usage: rollcall [flags] <command> [args]

commands:
  students list
  students add -name NAME -roll ROLL
  students edit -id ID -name NAME -roll ROLL
  students delete -id ID
  attendance list [-date YYYY-MM-DD]
  attendance mark -student ID -status present|absent [-date YYYY-MM-DD]
  attendance summary [-date YYYY-MM-DD]
  token -role reader|editor [-subject NAME]

flags:
`

type app struct {
	client *client.Client
	board  *tracker.Board
	logger *zap.Logger
	out    io.Writer
	today  time.Time
}

type printNotifier struct{ out io.Writer }

func (p printNotifier) Success(message string) { fmt.Fprintln(p.out, message) }
func (p printNotifier) Failure(message string) { fmt.Fprintln(p.out, "error: "+message) }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	v := viper.New()
	v.SetEnvPrefix("ROLLCALL")
	v.AutomaticEnv()
	v.SetDefault("API", "http://localhost:8080/api/v1")
	v.SetDefault("TIMEOUT", "10s")

	fs := flag.NewFlagSet("rollcall", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		apiURL  string
		token   string
		timeout time.Duration
		verbose bool
	)
	fs.StringVar(&apiURL, "api", v.GetString("API"), "API base URL including prefix (ROLLCALL_API)")
	fs.StringVar(&token, "token", v.GetString("TOKEN"), "bearer token (ROLLCALL_TOKEN)")
	fs.DurationVar(&timeout, "timeout", v.GetDuration("TIMEOUT"), "request timeout (ROLLCALL_TIMEOUT)")
	fs.BoolVar(&verbose, "v", false, "log requests and fetch failures")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logr := newLogger(stderr, verbose)
	defer logr.Sync() //nolint:errcheck

	if fs.Arg(0) == "token" {
		return issueToken(fs.Args()[1:], stdout, stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = requestid.NewContext(ctx, "cli-"+uuid.NewString())

	api := client.New(apiURL, client.WithToken(token), client.WithHTTPClient(newHTTPClient(timeout)))
	now := time.Now()
	a := &app{
		client: api,
		board:  tracker.New(api, printNotifier{out: stdout}, logr, now),
		logger: logr,
		out:    stdout,
		today:  now,
	}

	var err error
	switch fs.Arg(0) {
	case "students":
		err = a.students(ctx, fs.Args()[1:])
	case "attendance":
		err = a.attendance(ctx, fs.Args()[1:])
	default:
		err = fmt.Errorf("unknown command %q", fs.Arg(0))
	}
	if err != nil {
		if !isReported(err) {
			fmt.Fprintln(stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.ErrorLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func trimmed(s string) string { return strings.TrimSpace(s) }
