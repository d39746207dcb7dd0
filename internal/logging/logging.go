// Package logging provides the leveled line logger used by long-running components.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
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

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Logger writes "time LEVEL component: message" lines.
type Logger struct {
	logger    *log.Logger
	level     Level
	component string
}

func New(w io.Writer, level Level) *Logger {
	return &Logger{logger: log.New(w, "", 0), level: level}
}

// Default logs to stderr at info level.
func Default() *Logger {
	return New(os.Stderr, LevelInfo)
}

// Discard drops everything; handy in tests.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

// With returns a logger sharing the output but tagged with component.
func (l *Logger) With(component string) *Logger {
	return &Logger{logger: l.logger, level: l.level, component: component}
}

func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, format, args...) }

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if l.component == "" {
		l.logger.Printf("%s %s %s", time.Now().Format(time.RFC3339), level, msg)
		return
	}
	l.logger.Printf("%s %s %s: %s", time.Now().Format(time.RFC3339), level, l.component, msg)
}
