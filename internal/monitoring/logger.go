// Package monitoring carries the process-wide diagnostic logger used by the
// solvers. The CLI routes it through a structured logger; tests mute or
// capture it with SetLogger.
package monitoring

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

type logFunc = func(format string, v ...any)

var logger atomic.Pointer[logFunc]

func init() {
	f := logFunc(log.Printf)
	logger.Store(&f)
}

// Logf writes a diagnostic line through the current logger. It defaults to
// log.Printf and is safe for concurrent use by workspace workers.
func Logf(format string, v ...any) {
	(*logger.Load())(format, v...)
}

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		f = func(string, ...any) {}
	}
	logger.Store(&f)
}

// Capture installs a logger that appends every formatted line to the
// returned slice pointer and returns a function restoring the previous
// logger. It is intended for tests.
func Capture() (*[]string, func()) {
	prev := logger.Load()
	var (
		mu    sync.Mutex
		lines []string
	)
	SetLogger(func(format string, v ...any) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines, func() { logger.Store(prev) }
}
