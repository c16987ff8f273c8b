package util

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents logging severity levels.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Logger provides leveled logging to stdout and an optional file.
type Logger struct {
	mu     sync.Mutex
	level  LogLevel
	logger *log.Logger
	file   *os.File
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// GetLogger returns the default logger instance.
func GetLogger() *Logger {
	once.Do(func() {
		defaultLogger = NewLogger(LevelInfo, "")
	})
	return defaultLogger
}

// InitLogger initializes the default logger with config.
func InitLogger(level string, filePath string) {
	once.Do(func() {
		defaultLogger = NewLogger(ParseLevel(level), filePath)
	})
}

// NewLogger creates a new logger with the specified level and optional file path.
func NewLogger(level LogLevel, filePath string) *Logger {
	l := &Logger{level: level}

	writers := []io.Writer{os.Stdout}
	if filePath != "" {
		if err := EnsureDir(filepath.Dir(filePath)); err == nil {
			file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				l.file = file
				writers = append(writers, file)
			}
		}
	}

	l.logger = log.New(io.MultiWriter(writers...), "", 0)
	return l
}

// ParseLevel parses a string log level.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel sets the logging level.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close closes the log file if open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] %s: %s", timestamp, levelNames[level], msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }

// Info logs an info message.
func (l *Logger) Info(format string, args ...interface{}) { l.log(LevelInfo, format, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) { l.log(LevelWarn, format, args...) }

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

// Debug logs a debug message using the default logger.
func Debug(format string, args ...interface{}) { GetLogger().Debug(format, args...) }

// Info logs an info message using the default logger.
func Info(format string, args ...interface{}) { GetLogger().Info(format, args...) }

// Warn logs a warning message using the default logger.
func Warn(format string, args ...interface{}) { GetLogger().Warn(format, args...) }

// Error logs an error message using the default logger.
func Error(format string, args ...interface{}) { GetLogger().Error(format, args...) }

// RunLog is the per-batch-run log file. Each run of a test kind gets its own
// file so the web layer can serve and download a single run's log.
type RunLog struct {
	*Logger
	Path string
}

// NewRunLog opens logs/<kind>_<unix>.log under dir. A file open failure
// degrades to stdout-only logging rather than blocking the run.
func NewRunLog(dir, kind string) *RunLog {
	path := ""
	if dir != "" {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.log", kind, time.Now().Unix()))
	}
	return &RunLog{
		Logger: NewLogger(LevelInfo, path),
		Path:   path,
	}
}

// StartBanner writes the run-start banner.
func (r *RunLog) StartBanner(name string, total int) {
	r.Info("=== %s TEST STARTED (%d devices) ===", strings.ToUpper(name), total)
}

// EndBanner writes the summary line and run-end banner.
func (r *RunLog) EndBanner(name, summary string) {
	if summary != "" {
		r.Info("%s", summary)
	}
	r.Info("=== %s TEST COMPLETED ===", strings.ToUpper(name))
}

// DeviceLine records one device's outcome followed by its detail fields.
func (r *RunLog) DeviceLine(label, address, status string, fields map[string]string) {
	r.Info("Device: %s | IP: %s | Status: %s", label, address, status)
	for k, v := range fields {
		r.Info("  %s: %s", k, v)
	}
	r.Info("%s", strings.Repeat("-", 50))
}
