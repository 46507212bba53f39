// Package log provides the leveled logging interface used across the store,
// paths and gather packages. Loggers bound to a context via WithContext
// mirror every log line onto the active OpenTelemetry span, if any, as a
// span event carrying the logger's fields as attributes — so a trace viewer
// shows the same narrative a log tail would, without a second instrumentation
// call at every site.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Level is a logging severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("LEVEL(%d)", l)
	}
}

// Logger is the interface every component logs through. Library code never
// calls Fatal; it is provided for host-process use only.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithField(key string, value interface{}) Logger
	WithContext(ctx context.Context) Logger
	GetLevel() Level
	SetLevel(level Level)
}

// StandardLogger writes leveled, field-annotated lines to an io.Writer, and,
// when bound to a context carrying a recording span, also mirrors each line
// onto that span as an event.
type StandardLogger struct {
	mu     sync.Mutex
	level  Level
	out    io.Writer
	fields map[string]interface{}
	span   trace.Span
}

// Option configures a StandardLogger at construction time.
type Option func(*StandardLogger)

func WithLevel(level Level) Option {
	return func(l *StandardLogger) { l.level = level }
}

func WithOutput(out io.Writer) Option {
	return func(l *StandardLogger) { l.out = out }
}

func WithInitialFields(fields map[string]interface{}) Option {
	return func(l *StandardLogger) {
		for k, v := range fields {
			l.fields[k] = v
		}
	}
}

// New creates a StandardLogger, defaulting to Info level on stderr.
func New(opts ...Option) *StandardLogger {
	l := &StandardLogger{
		level:  LevelInfo,
		out:    os.Stderr,
		fields: make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *StandardLogger) log(level Level, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")

	fieldsStr := ""
	for k, v := range l.fields {
		fieldsStr += fmt.Sprintf(" %s=%v", k, v)
	}

	fmt.Fprintf(l.out, "[%s] [%s]%s %s\n", timestamp, level.String(), fieldsStr, formatted)

	if l.span != nil && l.span.IsRecording() {
		l.span.AddEvent(formatted, trace.WithAttributes(attrsFromFields(l.fields)...))
		if level == LevelError || level == LevelFatal {
			l.span.SetStatus(codes.Error, formatted)
		}
	}

	if level == LevelFatal {
		os.Exit(1)
	}
}

// attrsFromFields converts a logger's fields into span-event attributes,
// falling back to fmt.Sprint for types attribute.KeyValue has no direct
// constructor for.
func attrsFromFields(fields map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return attrs
}

func (l *StandardLogger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args...) }
func (l *StandardLogger) Info(msg string, args ...interface{})  { l.log(LevelInfo, msg, args...) }
func (l *StandardLogger) Warn(msg string, args ...interface{})  { l.log(LevelWarn, msg, args...) }
func (l *StandardLogger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args...) }
func (l *StandardLogger) Fatal(msg string, args ...interface{}) { l.log(LevelFatal, msg, args...) }

func (l *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	next := &StandardLogger{
		level:  l.level,
		out:    l.out,
		span:   l.span,
		fields: make(map[string]interface{}, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		next.fields[k] = v
	}
	for k, v := range fields {
		next.fields[k] = v
	}
	return next
}

func (l *StandardLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithContext binds the logger to ctx's active span (if any), so every
// subsequent log line is also emitted as a span event. The receiver itself
// is left untouched; a derived copy-on-write logger is returned, matching
// WithFields/WithField.
func (l *StandardLogger) WithContext(ctx context.Context) Logger {
	next := &StandardLogger{
		level:  l.level,
		out:    l.out,
		span:   trace.SpanFromContext(ctx),
		fields: make(map[string]interface{}, len(l.fields)),
	}
	for k, v := range l.fields {
		next.fields[k] = v
	}
	return next
}

func (l *StandardLogger) GetLevel() Level     { return l.level }
func (l *StandardLogger) SetLevel(level Level) { l.level = level }

var defaultLogger = New()

// SetDefault replaces the package-level default logger.
func SetDefault(logger *StandardLogger) { defaultLogger = logger }

// Default returns the package-level default logger.
func Default() *StandardLogger { return defaultLogger }

func Debug(msg string, args ...interface{}) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...interface{})  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...interface{})  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...interface{}) { defaultLogger.Error(msg, args...) }
func Fatal(msg string, args ...interface{}) { defaultLogger.Fatal(msg, args...) }

func WithFields(fields map[string]interface{}) Logger { return defaultLogger.WithFields(fields) }
func WithField(key string, value interface{}) Logger   { return defaultLogger.WithField(key, value) }
func WithContext(ctx context.Context) Logger           { return defaultLogger.WithContext(ctx) }
