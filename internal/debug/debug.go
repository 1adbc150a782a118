// Package debug provides conditional debug logging.
//
// Set PERCOLATOR_DEBUG to any non-empty value to write timestamped messages
// to stderr. When unset every function is a no-op.
//
//	defer debug.LogEnterExit("fill")()
package debug

import (
	"log"
	"os"
	"sync/atomic"
	"time"
)

const prefix = "[PERCOLATOR_DEBUG] "

var (
	enabled atomic.Bool
	logger  = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
)

func init() {
	enabled.Store(os.Getenv("PERCOLATOR_DEBUG") != "")
}

// Enabled reports whether debug logging is on.
func Enabled() bool { return enabled.Load() }

// SetEnabled turns debug logging on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// SetOutput redirects debug output, mainly for tests.
func SetOutput(l *log.Logger) {
	if l != nil {
		logger = l
	}
}

// Log writes a printf-style message.
func Log(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes how long name took.
func LogTiming(name string, d time.Duration) {
	if !enabled.Load() {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogEnterExit logs entry immediately and exit, with elapsed time, when the
// returned function runs.
func LogEnterExit(name string) func() {
	if !enabled.Load() {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}
