// Package logging provides JSON structured logging to stderr, with
// correlation IDs so a single GTP session's log lines can be grouped.
// Stdout is reserved for GTP wire replies (spec.md §6), so every log
// line, success or failure, goes to stderr exclusively.
//
// Grounded on dmmcquay-katago-mcp's internal/logging: the LogEntry shape,
// leveled Logger, and google/uuid correlation IDs are carried over
// directly; the WithContext/WithFields chaining and the Fatal/file-writer
// machinery that engine needed for its MCP transport are dropped since
// nothing here runs multiple transports.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level orders log severities; only entries >= the logger's level are
// written.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Entry is one structured log line.
type Entry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         string                 `json:"level"`
	Service       string                 `json:"service"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Message       string                 `json:"message"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

// Logger writes Entry values as JSON to an underlying writer.
type Logger struct {
	mu            sync.Mutex
	out           io.Writer
	level         Level
	service       string
	correlationID string
}

// New creates a Logger that writes to w at the given level. service
// identifies the process in every line (always "tenuki-gtp" in
// practice, but parameterized for tests).
func New(w io.Writer, service string, level Level) *Logger {
	return &Logger{out: w, service: service, level: level}
}

// NewStderr is the constructor cmd/tenuki wires up by default.
func NewStderr(service string, level Level) *Logger {
	return New(os.Stderr, service, level)
}

// WithCorrelationID returns a derived Logger that stamps every entry
// with id. Used once per GTP session (see internal/gtp).
func (l *Logger) WithCorrelationID(id string) *Logger {
	return &Logger{out: l.out, level: l.level, service: l.service, correlationID: id}
}

// NewCorrelationID mints a fresh correlation id using google/uuid.
func NewCorrelationID() string {
	return uuid.New().String()
}

func (l *Logger) SetLevel(level Level) { l.mu.Lock(); l.level = level; l.mu.Unlock() }

func (l *Logger) log(level Level, fields map[string]interface{}, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	entry := Entry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339Nano),
		Level:         level.String(),
		Service:       l.service,
		CorrelationID: l.correlationID,
		Message:       msg,
		Fields:        fields,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	enc := json.NewEncoder(l.out)
	if err := enc.Encode(entry); err != nil {
		fmt.Fprintf(l.out, "%s [%s] %s (log encoding failed: %v)\n", entry.Timestamp, entry.Level, entry.Message, err)
	}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(DebugLevel, nil, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(InfoLevel, nil, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WarnLevel, nil, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ErrorLevel, nil, format, args...) }

// InfoFields logs at info level with structured key/value context, used
// by internal/gtp to attach command/vertex/duration data without baking
// it into the message string.
func (l *Logger) InfoFields(fields map[string]interface{}, format string, args ...interface{}) {
	l.log(InfoLevel, fields, format, args...)
}

func (l *Logger) ErrorFields(fields map[string]interface{}, format string, args ...interface{}) {
	l.log(ErrorLevel, fields, format, args...)
}
