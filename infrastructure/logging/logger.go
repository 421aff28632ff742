package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the caller's request id, generated when absent
const RequestIDHeader = "X-Request-ID"

// Options configures a logger
type Options struct {
	Level  string    // debug, info, warn or error; anything else means info
	Format string    // "json" for JSON lines, otherwise human readable text
	Output io.Writer // defaults to stderr so stdout stays free for transcripts
}

// Logger is a logrus entry with helpers for the fields this service logs
type Logger struct {
	*logrus.Entry
}

// New builds a logger from options
func New(opts Options) *Logger {
	base := logrus.New()

	if strings.EqualFold(opts.Format, "json") {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	base.SetOutput(out)
	base.SetLevel(ParseLevel(opts.Level))

	return &Logger{Entry: logrus.NewEntry(base)}
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return New(Options{Level: "error", Output: io.Discard})
}

// ParseLevel maps a level name to a logrus level, defaulting to info
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithRequest attaches request metadata and returns an entry along with the
// request id used
func (l *Logger) WithRequest(r *http.Request) (*logrus.Entry, string) {
	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}

	return l.WithFields(logrus.Fields{
		"req_id":    reqID,
		"method":    r.Method,
		"path":      r.URL.Path,
		"remote_ip": r.RemoteAddr,
	}), reqID
}

// WithError standardizes error logging
func (l *Logger) WithError(err error) *logrus.Entry {
	if err == nil {
		return l.Entry
	}
	return l.Entry.WithField("error", err.Error())
}
