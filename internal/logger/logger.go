package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is a logging threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseLevel(s string) (Level, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range levelNames {
		if s == name {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value // "text" or "json"

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stderr
	logFile  io.Closer
	useColor bool
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")
	useColor = isTerminal(os.Stderr.Fd())
	reconfigure()
}

// reconfigure rebuilds the slog logger from the current output, level and
// format.
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: Level(currentLevel.Load()).slogLevel()}

	var h slog.Handler
	if format, _ := currentFormat.Load().(string); format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewColorTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// openOutput resolves an output name to a writer. Files are opened for
// append and never colored.
func openOutput(name string) (w io.Writer, color bool, closer io.Closer, err error) {
	switch strings.ToLower(name) {
	case "stdout":
		return os.Stdout, isTerminal(os.Stdout.Fd()), nil, nil
	case "stderr":
		return os.Stderr, isTerminal(os.Stderr.Fd()), nil, nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, false, nil, fmt.Errorf("failed to open log file %q: %w", name, err)
	}
	return f, false, f, nil
}

// setOutput swaps the destination, closing a log file opened by a previous
// Init.
func setOutput(w io.Writer, color bool, closer io.Closer) {
	mu.Lock()
	prev := logFile
	output, useColor, logFile = w, color, closer
	mu.Unlock()

	if prev != nil && prev != closer {
		_ = prev.Close()
	}
}

// Init configures the logger. Output can be "stdout", "stderr", or a file
// path; empty fields keep their current value.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, color, closer, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		setOutput(w, color, closer)
	}
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	reconfigure()
	return nil
}

// InitWithWriter directs logs to w. Used by tests.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	setOutput(w, enableColor, nil)
	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
	reconfigure()
}

// SetLevel sets the minimum log level. Unknown names are ignored.
func SetLevel(level string) {
	l, ok := parseLevel(level)
	if !ok {
		return
	}
	currentLevel.Store(int32(l))
	reconfigure()
}

// SetFormat sets the output format (text or json). Unknown formats are
// ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	currentFormat.Store(format)
	reconfigure()
}

// Enabled reports whether messages at level would be emitted.
func Enabled(level Level) bool {
	return level >= Level(currentLevel.Load())
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// emit writes one record. Errors are always written.
func emit(ctx context.Context, level Level, msg string, args []any) {
	if level != LevelError && !Enabled(level) {
		return
	}
	args = appendContextFields(ctx, args)
	getLogger().Log(ctx, level.slogLevel(), msg, args...)
}

// Debug logs at debug level: Debug("message", "key1", value1, ...)
func Debug(msg string, args ...any) { emit(context.Background(), LevelDebug, msg, args) }

// Info logs at info level.
func Info(msg string, args ...any) { emit(context.Background(), LevelInfo, msg, args) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { emit(context.Background(), LevelWarn, msg, args) }

// Error logs at error level.
func Error(msg string, args ...any) { emit(context.Background(), LevelError, msg, args) }

// DebugCtx logs at debug level, prefixed with the LogContext fields of ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelDebug, msg, args) }

// InfoCtx logs at info level with context fields.
func InfoCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelInfo, msg, args) }

// WarnCtx logs at warn level with context fields.
func WarnCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelWarn, msg, args) }

// ErrorCtx logs at error level with context fields.
func ErrorCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelError, msg, args) }

// appendContextFields prepends the non-empty LogContext fields of ctx to
// args.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := [...]struct{ key, val string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyRequestID, lc.RequestID},
		{KeyOperation, lc.Operation},
		{KeyBucket, lc.Bucket},
		{KeyBatchID, lc.BatchID},
	}
	out := make([]any, 0, 2*len(fields)+len(args))
	for _, f := range fields {
		if f.val != "" {
			out = append(out, f.key, f.val)
		}
	}
	return append(out, args...)
}

// With returns a logger with pre-bound attributes.
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// Duration returns the time since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
