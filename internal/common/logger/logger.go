package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Falconext/pos-web-sub003/internal/common/constants"
)

type Fields map[string]interface{}

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	CRITICAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config selects where a Logger writes. An empty Dir logs to stdout only.
type Config struct {
	Dir     string
	Service string
	Level   string
	Format  string
}

// sink is shared by a Logger and every child made with With.
type sink struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

type Logger struct {
	sink    *sink
	level   LogLevel
	service string
	json    bool
	base    Fields
}

// New builds a logger writing to stdout and, with cfg.Dir set, to a rotated
// <service>.log file in that directory.
func New(cfg Config) (*Logger, error) {
	var w io.Writer = os.Stdout
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, cfg.Service+".log"),
			MaxSize:    constants.LoggerMaxSize,
			MaxBackups: constants.LoggerMaxBackups,
			MaxAge:     constants.LoggerMaxAge,
			Compress:   true,
		})
	}
	return newLogger(w, cfg), nil
}

func NewWithWriter(w io.Writer, service, level string) *Logger {
	return newLogger(w, Config{Service: service, Level: level})
}

func newLogger(w io.Writer, cfg Config) *Logger {
	return &Logger{
		sink:    &sink{w: w, now: time.Now},
		level:   parseLevel(cfg.Level),
		service: cfg.Service,
		json:    strings.EqualFold(strings.TrimSpace(cfg.Format), FormatJSON),
	}
}

// With returns a child logger that stamps fields on every line.
func (l *Logger) With(fields Fields) *Logger {
	child := *l
	child.base = merge(l.base, fields)
	return &child
}

func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.level
}

func (l *Logger) WithFields(ctx context.Context, fields Fields) *Entry {
	return &Entry{logger: l, ctx: ctx, fields: fields}
}

func (l *Logger) Debug(msg string) { l.emit(DEBUG, nil, nil, msg) }
func (l *Logger) Info(msg string)  { l.emit(INFO, nil, nil, msg) }
func (l *Logger) Warn(msg string)  { l.emit(WARNING, nil, nil, msg) }
func (l *Logger) Error(msg string) { l.emit(ERROR, nil, nil, msg) }

func (l *Logger) Debugf(format string, args ...any) { l.emit(DEBUG, nil, nil, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.emit(INFO, nil, nil, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.emit(WARNING, nil, nil, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.emit(ERROR, nil, nil, fmt.Sprintf(format, args...)) }

func (l *Logger) Fatalf(format string, args ...any) {
	l.emit(CRITICAL, nil, nil, fmt.Sprintf(format, args...))
	os.Exit(1)
}

type Entry struct {
	logger *Logger
	ctx    context.Context
	fields Fields
}

func (e *Entry) Debug(msg string) { e.logger.emit(DEBUG, e.ctx, e.fields, msg) }
func (e *Entry) Info(msg string)  { e.logger.emit(INFO, e.ctx, e.fields, msg) }
func (e *Entry) Warn(msg string)  { e.logger.emit(WARNING, e.ctx, e.fields, msg) }
func (e *Entry) Error(msg string) { e.logger.emit(ERROR, e.ctx, e.fields, msg) }

func (e *Entry) Debugf(format string, args ...any) {
	e.logger.emit(DEBUG, e.ctx, e.fields, fmt.Sprintf(format, args...))
}

func (e *Entry) Infof(format string, args ...any) {
	e.logger.emit(INFO, e.ctx, e.fields, fmt.Sprintf(format, args...))
}

func (e *Entry) Warnf(format string, args ...any) {
	e.logger.emit(WARNING, e.ctx, e.fields, fmt.Sprintf(format, args...))
}

func (e *Entry) Errorf(format string, args ...any) {
	e.logger.emit(ERROR, e.ctx, e.fields, fmt.Sprintf(format, args...))
}

func (e *Entry) Criticalf(format string, args ...any) {
	e.logger.emit(CRITICAL, e.ctx, e.fields, fmt.Sprintf(format, args...))
}

// emit is always called two frames below the public method, which keeps the
// caller lookup stable.
func (l *Logger) emit(level LogLevel, ctx context.Context, fields Fields, msg string) {
	if !l.Enabled(level) {
		return
	}

	all := merge(l.base, fields)
	if ctx != nil {
		if traceID, ok := ctx.Value(constants.TraceIDKey).(string); ok && traceID != "" {
			all = merge(all, Fields{"trace_id": traceID})
		}
	}

	caller := "unknown:0"
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	ts := l.sink.now()
	var line string
	if l.json {
		line = l.jsonLine(ts, level, caller, all, msg)
	} else {
		line = l.textLine(ts, level, caller, all, msg)
	}
	_, _ = io.WriteString(l.sink.w, line+"\n")
}

func (l *Logger) textLine(ts time.Time, level LogLevel, caller string, fields Fields, msg string) string {
	var b strings.Builder
	b.WriteString(ts.Format("2006/01/02 15:04:05"))
	fmt.Fprintf(&b, " [%s]", level)
	if l.service != "" {
		fmt.Fprintf(&b, " [%s]", l.service)
	}
	if len(fields) > 0 {
		b.WriteString(" [")
		for i, k := range fieldKeys(fields) {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%v", k, fields[k])
		}
		b.WriteByte(']')
	}
	fmt.Fprintf(&b, " %s %s", caller, msg)
	return b.String()
}

func (l *Logger) jsonLine(ts time.Time, level LogLevel, caller string, fields Fields, msg string) string {
	record := make(map[string]any, len(fields)+5)
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		record[k] = v
	}
	record["ts"] = ts.UTC().Format(time.RFC3339Nano)
	record["level"] = level.String()
	record["service"] = l.service
	record["caller"] = caller
	record["msg"] = msg

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Sprintf(`{"level":%q,"msg":%q,"log_error":%q}`, level, msg, err.Error())
	}
	return string(data)
}

// fieldKeys puts trace_id first, the rest sorted.
func fieldKeys(fields Fields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "trace_id" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := fields["trace_id"]; ok {
		keys = append([]string{"trace_id"}, keys...)
	}
	return keys
}

func merge(a, b Fields) Fields {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make(Fields, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func parseLevel(value string) LogLevel {
	switch strings.TrimSpace(strings.ToUpper(value)) {
	case "DEBUG":
		return DEBUG
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	case "CRITICAL":
		return CRITICAL
	default:
		return INFO
	}
}
