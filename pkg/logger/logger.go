// nolint: sloglint
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultLevel is the default minimum reporting level for the logger
const DefaultLevel = slog.LevelInfo

var (
	// minimum reporting level for the logger
	lvl = new(slog.LevelVar)

	// top-level logger
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
)

func init() {
	lvl.Set(DefaultLevel)
	slog.SetDefault(logger)
}

// Config is the logger configuration.
type Config struct {
	// Output is the logger output format. Possible values: "text" (default), "json".
	Output string `mapstructure:"output"`

	// Debug lowers the minimum reporting level to Debug.
	Debug bool `mapstructure:"debug"`
}

// Init replaces the top-level logger according to the given configuration.
func Init(config Config) error {
	if config.Debug {
		lvl.Set(slog.LevelDebug)
	} else {
		lvl.Set(DefaultLevel)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(config.Output) {
	case "", "text":
		logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
	case "json":
		logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	default:
		return errors.Newf("unsupported logger output format: %q", config.Output)
	}
	slog.SetDefault(logger)
	return nil
}

// SetLevel sets the minimum reporting level for the logger
func SetLevel(level slog.Level) (old slog.Level) {
	old = lvl.Level()
	lvl.Set(level)
	return old
}

// With returns a Logger that includes the given attributes in each output operation.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

// Debug logs at [slog.LevelDebug].
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs at [slog.LevelInfo].
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs at [slog.LevelWarn].
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs at [slog.LevelError].
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// Panic logs at [slog.LevelError] and then panics.
func Panic(msg string, args ...any) {
	logger.Error(msg, args...)
	panic(msg)
}

// DebugContext logs at [slog.LevelDebug] with the context logger.
func DebugContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).DebugContext(ctx, msg, args...)
}

// InfoContext logs at [slog.LevelInfo] with the context logger.
func InfoContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).InfoContext(ctx, msg, args...)
}

// WarnContext logs at [slog.LevelWarn] with the context logger.
func WarnContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).WarnContext(ctx, msg, args...)
}

// ErrorContext logs at [slog.LevelError] with the context logger.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).ErrorContext(ctx, msg, args...)
}

// PanicContext logs at [slog.LevelError] with the context logger and then panics.
func PanicContext(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).ErrorContext(ctx, msg, args...)
	panic(msg)
}
