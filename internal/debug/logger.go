// Package debug provides an opt-in file-backed logger for verbose pipeline
// traces. A nil *Logger is safe to use and logs nothing.
package debug

import (
	"log"
	"os"
)

type Logger struct {
	enabled bool
	l       *log.Logger
}

// NewLogger returns a logger appending to the given path when enabled.
// Falls back to stderr if the file cannot be opened.
func NewLogger(enabled bool, path string) *Logger {
	if !enabled {
		return &Logger{}
	}
	if path == "" {
		path = "debug.log"
	}
	out := log.Default().Writer()
	if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666); err == nil {
		out = f
	}
	l := log.New(out, "", log.LstdFlags)
	l.Printf("=== DEBUG MODE ENABLED ===")
	return &Logger{enabled: true, l: l}
}

func (d *Logger) Printf(format string, args ...any) {
	if d == nil || !d.enabled {
		return
	}
	d.l.Printf(format, args...)
}

func (d *Logger) Println(args ...any) {
	if d == nil || !d.enabled {
		return
	}
	d.l.Println(args...)
}
