// Package logger wraps the standard library logger with the leveled
// Info/Error/Fatal calls the builder CLI uses to report build, verify,
// archive, and restore progress.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level selects which of Info/Error get written.
type Level int

const (
	LevelError Level = iota
	LevelInfo
)

var (
	currentLevel = LevelInfo
	mu           sync.Mutex
)

// SetLevel sets the global log level. Unset, it defaults to LevelInfo.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = l
}

// Setup points the standard logger at w and enables date/time/file
// prefixes, the way the CLI entry point does on startup.
func Setup(w io.Writer) {
	log.SetOutput(w)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
}

// Info reports build/verify/archive progress when the level allows it.
func Info(format string, v ...interface{}) {
	if currentLevel >= LevelInfo {
		output("INFO: "+format, v...)
	}
}

// Error reports a recoverable failure, independent of whether the caller
// also returns an error up the stack.
func Error(format string, v ...interface{}) {
	if currentLevel >= LevelError {
		output("ERROR: "+format, v...)
	}
}

// Fatal reports an unrecoverable failure and exits the process, regardless
// of the current level. Used by cmd/hashbuild's top-level error handling.
func Fatal(format string, v ...interface{}) {
	output("FATAL: "+format, v...)
	os.Exit(1)
}

func output(format string, v ...interface{}) {
	// Calldepth 3 skips this function and Info/Error/Fatal to blame the
	// actual call site in the log line.
	log.Output(3, fmt.Sprintf(format, v...))
}
