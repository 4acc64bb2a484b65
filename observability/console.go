package observability

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Level filters console output; messages below it are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	debugPaint = color.New(color.FgHiBlack)
	infoPaint  = color.New(color.FgCyan)
	warnPaint  = color.New(color.FgYellow)
	errorPaint = color.New(color.FgRed, color.Bold)
)

// ConsoleLogger writes human-readable lines to a single destination. Safe for
// use from multiple goroutines.
type ConsoleLogger struct {
	mu    *sync.Mutex
	out   io.Writer
	level Level
	bound []Field
}

// NewConsoleLogger returns a logger writing at or above the given level.
func NewConsoleLogger(out io.Writer, level Level) *ConsoleLogger {
	return &ConsoleLogger{mu: &sync.Mutex{}, out: out, level: level}
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) {
	l.emit(LevelDebug, debugPaint, "DEBUG", msg, fields)
}
func (l *ConsoleLogger) Info(msg string, fields ...Field) {
	l.emit(LevelInfo, infoPaint, "INFO", msg, fields)
}
func (l *ConsoleLogger) Warn(msg string, fields ...Field) {
	l.emit(LevelWarn, warnPaint, "WARN", msg, fields)
}
func (l *ConsoleLogger) Error(msg string, fields ...Field) {
	l.emit(LevelError, errorPaint, "ERROR", msg, fields)
}

func (l *ConsoleLogger) With(fields ...Field) Logger {
	child := *l
	child.bound = append(append([]Field(nil), l.bound...), fields...)
	return &child
}

func (l *ConsoleLogger) emit(level Level, paint *color.Color, tag, msg string, fields []Field) {
	if level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	paint.Fprintf(l.out, "%-5s", tag)
	fmt.Fprintf(l.out, " %s", msg)
	for _, f := range l.bound {
		fmt.Fprintf(l.out, " %s=%v", f.Key(), f.Value())
	}
	for _, f := range fields {
		fmt.Fprintf(l.out, " %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(l.out)
}
