// internal/recovery/recovery.go
// Package recovery turns panics in main and in long-running goroutines into
// a logged report and a non-zero exit.
package recovery

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
)

// Output receives the panic report.
var Output io.Writer = os.Stderr

// exit is replaced in tests.
var exit = os.Exit

// HandlePanic should be deferred at the top of main().
// It reports the panic and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		report(r)
		exit(1)
	}
}

// HandlePanicFunc should be deferred at the top of a goroutine. It reports
// the panic, runs cleanup (which may be nil) and exits with code 1.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		report(r)
		if cleanup != nil {
			runCleanup(cleanup)
		}
		exit(1)
	}
}

// runCleanup keeps a panicking cleanup from skipping the exit.
func runCleanup(cleanup func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during cleanup", "panic", r)
		}
	}()
	cleanup()
}

func report(r any) {
	slog.Error("fatal panic", "panic", r)
	_, _ = fmt.Fprintf(Output, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
}
