// Package logger is docagent's diagnostic output on stderr. Errors always
// print. Everything else prints only under --verbose, tracing ingestion,
// index mutations and retrieval.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Level orders messages by severity.
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
	default:
		return "ERROR"
	}
}

var (
	mu        sync.Mutex
	threshold Level     = LevelError
	output    io.Writer = os.Stderr
)

// SetVerbose lowers the threshold to LevelDebug, or raises it back to
// LevelError.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	if v {
		threshold = LevelDebug
	} else {
		threshold = LevelError
	}
}

// IsVerbose reports whether debug messages print.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return threshold == LevelDebug
}

// SetOutput redirects all messages. Tests pass a buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }
func Info(format string, args ...any) { logf(LevelInfo, format, args...) }
func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// Section prints a banner before a group of debug lines.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if threshold == LevelDebug {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

func logf(l Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if l < threshold {
		return
	}
	fmt.Fprintf(output, "[%s] %s\n", l, fmt.Sprintf(format, args...))
}
