// Package logger is the process-wide log for propdocs. Warnings and errors
// always print; debug, info and section headers need --verbose. Lines go
// to stderr unless SetOutput says otherwise.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
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
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

var (
	mu      sync.Mutex
	verbose bool
	stamps  bool
	output  io.Writer = os.Stderr
	now               = time.Now
)

// SetVerbose turns debug and info output on or off.
func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()
}

// IsVerbose reports whether debug and info output is on.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetTimestamps prefixes every line with the local time. Long-running
// commands such as serve and watch turn it on.
func SetTimestamps(on bool) {
	mu.Lock()
	stamps = on
	mu.Unlock()
}

// SetOutput redirects log lines to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

// Enabled reports whether a message at l would be written.
func Enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l >= LevelWarn || verbose
}

// logf writes one line. Holding mu for the write keeps concurrent lines
// from interleaving.
func logf(l Level, format string, args []any) {
	mu.Lock()
	defer mu.Unlock()
	if l < LevelWarn && !verbose {
		return
	}
	prefix := "[" + l.String() + "] "
	if stamps {
		prefix = now().Format("15:04:05.000") + " " + prefix
	}
	fmt.Fprintf(output, prefix+format+"\n", args...)
}

func Debug(format string, args ...any) { logf(LevelDebug, format, args) }

func Info(format string, args ...any) { logf(LevelInfo, format, args) }

func Warn(format string, args ...any) { logf(LevelWarn, format, args) }

func Error(format string, args ...any) { logf(LevelError, format, args) }

// Section prints a header separating the stages of one operation.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}
