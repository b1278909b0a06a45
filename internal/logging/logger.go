// Package logging provides structured logging for the tinyfit server and CLI.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log entry.
type LogLevel string

const (
	// DebugLevel logs are voluminous and usually disabled in production.
	DebugLevel LogLevel = "DEBUG"
	// InfoLevel is the default logging priority.
	InfoLevel LogLevel = "INFO"
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel LogLevel = "WARN"
	// ErrorLevel logs are high-priority.
	ErrorLevel LogLevel = "ERROR"
	// FatalLevel logs a message, then exits the process.
	FatalLevel LogLevel = "FATAL"
)

var levelRank = map[LogLevel]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
	FatalLevel: 4,
}

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// sink is shared by a logger and everything derived from it so that
// concurrent entries never interleave.
type sink struct {
	mu     sync.Mutex
	output io.Writer
	format string
	exit   func(int)
}

// Logger represents an active logging object.
type Logger struct {
	level  LogLevel
	sink   *sink
	fields map[string]interface{}
}

// New creates a new JSON Logger with the specified log level and output.
func New(level LogLevel, output io.Writer) *Logger {
	return NewWithFormat(level, output, FormatJSON)
}

// NewWithFormat creates a Logger writing entries in the given format.
// Unknown formats fall back to JSON.
func NewWithFormat(level LogLevel, output io.Writer, format string) *Logger {
	if format != FormatText {
		format = FormatJSON
	}
	return &Logger{
		level:  level,
		sink:   &sink{output: output, format: format, exit: os.Exit},
		fields: make(map[string]interface{}),
	}
}

// Level returns the minimum level the logger writes.
func (l *Logger) Level() LogLevel {
	return l.level
}

// WithFields returns a new Logger with the specified fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		level:  l.level,
		sink:   l.sink,
		fields: newFields,
	}
}

// log writes a log entry. An empty caller is resolved from the stack,
// assuming log was reached through one of the level methods.
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}, caller string) {
	if !l.shouldLog(level) {
		return
	}

	if caller == "" {
		caller = callerAt(3)
	}

	entry := make(map[string]interface{}, len(l.fields)+len(fields)+4)
	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level
	entry["message"] = msg
	entry["caller"] = caller

	var line []byte
	if l.sink.format == FormatText {
		line = formatText(entry)
	} else {
		var err error
		line, err = json.Marshal(entry)
		if err != nil {
			line = []byte(fmt.Sprintf("%s [%s] %s: %+v", entry["timestamp"], level, msg, fields))
		}
	}
	line = append(line, '\n')

	l.sink.mu.Lock()
	_, _ = l.sink.output.Write(line)
	l.sink.mu.Unlock()

	if level == FatalLevel {
		l.sink.exit(1)
	}
}

func callerAt(depth int) string {
	_, file, line, ok := runtime.Caller(depth)
	if !ok {
		return "???:0"
	}
	// Only keep the last two parts of the file path
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// formatText renders "timestamp LEVEL message key=value ..." with the
// remaining keys sorted.
func formatText(entry map[string]interface{}) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", entry["timestamp"], entry["level"], entry["message"])

	keys := make([]string, 0, len(entry))
	for k := range entry {
		switch k {
		case "timestamp", "level", "message":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry[k])
	}
	return []byte(b.String())
}

// shouldLog returns true if the given level should be logged.
func (l *Logger) shouldLog(level LogLevel) bool {
	want, ok := levelRank[level]
	if !ok {
		return false
	}
	current, ok := levelRank[l.level]
	if !ok {
		return false
	}
	return want >= current
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DebugLevel, msg, first(fields), "")
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(InfoLevel, msg, first(fields), "")
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WarnLevel, msg, first(fields), "")
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ErrorLevel, msg, first(fields), "")
}

// Fatal logs a message at FatalLevel then exits with status 1.
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FatalLevel, msg, first(fields), "")
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// CtxLogger is a logger that can be used with context.
type CtxLogger struct {
	*Logger
}

// Lookup returns the logger stored in ctx, if any.
func Lookup(ctx context.Context) (*CtxLogger, bool) {
	logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger)
	return logger, ok
}

// WithContext returns a new context with the logger.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

type ctxLoggerKey struct{}
