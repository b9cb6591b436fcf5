package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Logger is a simple console logger. Arguments are alternating key/value
// pairs appended to the message.
type Logger struct {
	*log.Logger
}

// NewLogger creates a new Logger writing to stdout.
func NewLogger() *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) {
	l.Println("INFO: " + withFields(msg, args))
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.Println("WARN: " + withFields(msg, args))
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.Println("ERROR: " + withFields(msg, args))
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.Println("DEBUG: " + withFields(msg, args))
}

func withFields(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	return b.String()
}
