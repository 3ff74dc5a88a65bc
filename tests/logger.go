package testutil

import (
	"fmt"
	"sync"

	"github.com/coinsforstudy/coins/core"
)

// Logger records log lines instead of printing them.
type Logger struct {
	mu    sync.Mutex
	Lines []string
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger { return &Logger{} }

func (l *Logger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, fmt.Sprintf("%s: %s", level, msg))
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.log("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.log("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.log("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.log("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.log("FATAL", msg) }

func (l *Logger) Logged() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	lines := make([]string, len(l.Lines))
	copy(lines, l.Lines)
	return lines
}
