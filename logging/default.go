package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// Format selects how DefaultLogger renders a record
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// DefaultLogger is the logger used when the application does not install its own.
// Debug/Info go to the out writer, Warn and above to the err writer.
// Text output is colored when the out writer is a terminal.
type DefaultLogger struct {
	stdoutLogger *log.Logger
	stderrLogger *log.Logger
	level        *atomic.Int32
	fields       Fields
	format       Format
	useColors    bool
}

// NewDefaultLogger creates a text logger writing to stdout/stderr
func NewDefaultLogger() *DefaultLogger {
	return NewDefaultLoggerWithWriters(os.Stdout, os.Stderr, FormatText)
}

// NewDefaultLoggerWithWriters creates a logger writing to the given writers.
// The text format keeps the standard log timestamp prefix; JSON records carry a "ts" field instead.
func NewDefaultLoggerWithWriters(out, errOut io.Writer, format Format) *DefaultLogger {
	flags := log.LstdFlags
	if format == FormatJSON {
		flags = 0
	}

	level := &atomic.Int32{}
	level.Store(int32(InfoLevel))

	return &DefaultLogger{
		stdoutLogger: log.New(out, "", flags),
		stderrLogger: log.New(errOut, "", flags),
		level:        level,
		fields:       make(Fields),
		format:       format,
		useColors:    format == FormatText && isTerminal(out),
	}
}

// isTerminal reports whether w is a character device
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if fileInfo, _ := f.Stat(); fileInfo != nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

func (d *DefaultLogger) mergeFields(fields ...Fields) Fields {
	allFields := make(Fields, len(d.fields))
	maps.Copy(allFields, d.fields)
	for _, f := range fields {
		maps.Copy(allFields, f)
	}
	return allFields
}

func (d *DefaultLogger) formatText(level Level, err error, msg string, fields Fields) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level.String(), msg)

	if err != nil {
		fmt.Fprintf(&b, ": %v", err)
	}

	// Sorted keys keep the output stable between runs
	keys := slices.Sorted(maps.Keys(fields))
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}

	logMsg := b.String()
	if d.useColors {
		switch level {
		case WarnLevel:
			logMsg = ColorYellow + logMsg + ColorReset
		case ErrorLevel:
			logMsg = ColorRed + logMsg + ColorReset
		case FatalLevel:
			logMsg = ColorBold + ColorRed + logMsg + ColorReset
		}
	}
	return logMsg
}

func (d *DefaultLogger) formatJSON(level Level, err error, msg string, fields Fields) string {
	record := make(map[string]any, len(fields)+4)
	maps.Copy(record, fields)
	record["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	record["level"] = strings.ToLower(level.String())
	record["msg"] = msg
	if err != nil {
		record["error"] = err.Error()
	}

	encoded, marshalErr := json.Marshal(record)
	if marshalErr != nil {
		// Unencodable field values fall back to their fmt representation
		safe := make(map[string]string, len(record))
		for k, v := range record {
			safe[k] = fmt.Sprintf("%v", v)
		}
		encoded, _ = json.Marshal(safe)
	}
	return string(encoded)
}

func (d *DefaultLogger) log(level Level, err error, msg string, fields ...Fields) {
	if level < Level(d.level.Load()) {
		return
	}

	allFields := d.mergeFields(fields...)

	var formattedMsg string
	if d.format == FormatJSON {
		formattedMsg = d.formatJSON(level, err, msg, allFields)
	} else {
		formattedMsg = d.formatText(level, err, msg, allFields)
	}

	switch level {
	case DebugLevel, InfoLevel:
		d.stdoutLogger.Println(formattedMsg)
	case WarnLevel, ErrorLevel:
		d.stderrLogger.Println(formattedMsg)
	case FatalLevel:
		d.stderrLogger.Println(formattedMsg)
		os.Exit(1)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields...)
}

func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields...)
}

// WithFields returns a child logger. The child shares the parent's level.
func (d *DefaultLogger) WithFields(fields Fields) Logger {
	return &DefaultLogger{
		stdoutLogger: d.stdoutLogger,
		stderrLogger: d.stderrLogger,
		level:        d.level,
		fields:       d.mergeFields(fields),
		format:       d.format,
		useColors:    d.useColors,
	}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.level.Store(int32(level))
}

// NoOpLogger discards everything. Tests install it to keep output quiet.
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
