package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
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
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Config selects where and how log lines are written.
type Config struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string

	// Format is "text" (console encoder) or "json"
	Format string

	// Output is "stdout", "stderr" or a file path. Files are rotated.
	Output string

	// Rotation limits, only used for file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar = newSugar(consoleEncoder(), zapcore.AddSync(os.Stdout))
	base  *zap.Logger
)

func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " "
	return zapcore.NewConsoleEncoder(cfg)
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func newSugar(enc zapcore.Encoder, out zapcore.WriteSyncer) *zap.SugaredLogger {
	base = zap.New(zapcore.NewCore(enc, out, level), zap.AddCaller(), zap.AddCallerSkip(1))
	return base.Sugar()
}

func writerFor(cfg Config) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Output,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
	}), nil
}

// Init replaces the global logger according to cfg.
func Init(cfg Config) error {
	out, err := writerFor(cfg)
	if err != nil {
		return err
	}

	var enc zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		enc = consoleEncoder()
	case "json":
		enc = jsonEncoder()
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	mu.Lock()
	_ = base.Sync()
	sugar = newSugar(enc, out)
	mu.Unlock()

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	return nil
}

// Sync flushes buffered log entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return base.Sync()
}

func SetLevel(lvl string) {
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		level.SetLevel(LevelDebug.zapLevel())
	case "INFO":
		level.SetLevel(LevelInfo.zapLevel())
	case "WARN":
		level.SetLevel(LevelWarn.zapLevel())
	case "ERROR":
		level.SetLevel(LevelError.zapLevel())
	}
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debug(format string, v ...any) {
	current().Debugf(format, v...)
}

func Info(format string, v ...any) {
	current().Infof(format, v...)
}

func Warn(format string, v ...any) {
	current().Warnf(format, v...)
}

func Error(format string, v ...any) {
	current().Errorf(format, v...)
}

// With returns a structured logger carrying the given key-value pairs.
// The HTTP adapter uses it for per-request fields.
func With(keysAndValues ...any) *zap.SugaredLogger {
	return current().With(keysAndValues...)
}
