// Package logging provides the leveled console logger shared by every job.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/backmassage/loopforge/internal/config"
	"github.com/backmassage/loopforge/internal/term"
)

// sink is the shared, mutex-guarded output of a Logger and all its children.
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	file   *os.File
}

// Logger provides leveled, optionally colored logging with an optional file
// sink. It is safe for concurrent use; loggers derived with [Logger.With]
// share the parent's outputs.
type Logger struct {
	s       *sink
	prefix  string
	verbose bool
}

// NewLogger initializes colors from cfg and optionally opens the log file.
// Call Close() when done if a log file was set.
func NewLogger(cfg config.Logging) (*Logger, error) {
	term.Configure(cfg.Color)
	l := &Logger{
		s:       &sink{out: os.Stdout, errOut: os.Stderr},
		verbose: cfg.Verbose,
	}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.s.file = f
	}
	return l, nil
}

// New returns a logger writing to out and errOut without a file sink. Used
// by tests and by callers that capture output.
func New(out, errOut io.Writer, verbose bool) *Logger {
	return &Logger{s: &sink{out: out, errOut: errOut}, verbose: verbose}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, io.Discard, false)
}

// With returns a child logger that prefixes every line with "[prefix] ".
func (l *Logger) With(prefix string) *Logger {
	p := "[" + prefix + "] "
	if l.prefix != "" {
		p = l.prefix + p
	}
	return &Logger{s: l.s, prefix: p, verbose: l.verbose}
}

// Verbose reports whether DEBUG lines are emitted.
func (l *Logger) Verbose() bool { return l.verbose }

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.file != nil {
		err := l.s.file.Close()
		l.s.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(level, color, text string) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	text = l.prefix + text
	plain := ts + " [" + level + "] " + text + "\n"

	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	out := l.s.out
	if level == "ERROR" {
		out = l.s.errOut
	}
	if color != "" {
		_, _ = io.WriteString(out, ts+" "+color+"["+level+"]"+term.NC+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, plain)
	}
	if l.s.file != nil {
		_, _ = io.WriteString(l.s.file, plain)
	}
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...any) {
	l.line("INFO", term.Blue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green).
func (l *Logger) Success(format string, args ...any) {
	l.line("SUCCESS", term.Green, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...any) {
	l.line("WARN", term.Yellow, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...any) {
	l.line("ERROR", term.Red, fmt.Sprintf(format, args...))
}

// Render logs at RENDER level (magenta). Used for ffmpeg stage announcements.
func (l *Logger) Render(format string, args ...any) {
	l.line("RENDER", term.Magenta, fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level (cyan) only when verbose.
func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.line("DEBUG", term.Cyan, fmt.Sprintf(format, args...))
}
