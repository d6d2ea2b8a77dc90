package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ItemLog appends timestamped lines to a per-item log file. The file is
// only ever opened for append; it is the audit trail across retries and
// overwrites and must never be truncated.
type ItemLog struct {
	path string
}

// NewItemLog creates an item log writer for the given path
func NewItemLog(path string) *ItemLog {
	return &ItemLog{path: path}
}

// Path returns the log file path
func (l *ItemLog) Path() string {
	return l.path
}

// Write appends a timestamped line to the log file. Logging failures are
// swallowed; the audit trail must not take the pipeline down.
func (l *ItemLog) Write(message string) {
	if l == nil || l.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] %s\n", timestamp, message)
}

// Writef appends a formatted timestamped line to the log file
func (l *ItemLog) Writef(format string, args ...interface{}) {
	l.Write(fmt.Sprintf(format, args...))
}
