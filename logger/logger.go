// Package logger is a small levelled logger that writes to a line-limited
// file. The daemon and the demo both log to files because stdout belongs to
// the RPC stream or the terminal UI.
package logger

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

var noopFunc = func() {}

// Trace returns a function that logs the time elapsed since Trace was
// called. Returns a no-op when TRACE is disabled.
// Usage: defer logger.Trace("engine.fetch")()
func Trace(name string) func() {
	l := current()
	if !l.shouldLog(LogLevelTrace) {
		return noopFunc
	}
	start := time.Now()
	return func() {
		l.logWithLevel(LogLevelTrace, "%s: %v", name, time.Since(start))
	}
}

// defaultLogger is used until Init installs a file logger
var defaultLogger = &LimitedLogger{
	file:     os.Stderr,
	level:    LogLevelInfo,
	maxLines: 0,
}

// MaxLogLines is the default number of lines kept in a log file
const MaxLogLines = 5000

type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelTrace:
		return "TRACE"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a level name, case-insensitive. Unknown names map to
// INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LogLevelTrace
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LimitedLogger appends timestamped lines to a file and trims the file to
// the last maxLines lines once it grows past that. maxLines <= 0 disables
// trimming.
type LimitedLogger struct {
	file      *os.File
	lineCount int
	maxLines  int
	level     LogLevel
	mutex     sync.Mutex
}

var (
	globalMu     sync.RWMutex
	globalLogger *LimitedLogger
)

func current() *LimitedLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger
	}
	return defaultLogger
}

// NewLimitedLogger wraps an open file. The existing line count is read so
// trimming works across restarts.
func NewLimitedLogger(file *os.File, level LogLevel, maxLines int) *LimitedLogger {
	ll := &LimitedLogger{
		file:     file,
		level:    level,
		maxLines: maxLines,
	}
	ll.countExistingLines()
	return ll
}

// Init opens (or creates) path for appending and installs it as the global
// logger.
func Init(path string, level LogLevel) (*LimitedLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	ll := NewLimitedLogger(f, level, MaxLogLines)
	SetGlobal(ll)
	return ll, nil
}

// SetGlobal replaces the global logger. nil restores stderr logging.
func SetGlobal(ll *LimitedLogger) {
	globalMu.Lock()
	globalLogger = ll
	globalMu.Unlock()
}

func (ll *LimitedLogger) SetLevel(level LogLevel) {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()
	ll.level = level
}

// SetGlobalLevel sets the level of whichever logger is active.
func SetGlobalLevel(level LogLevel) {
	current().SetLevel(level)
}

func (ll *LimitedLogger) shouldLog(level LogLevel) bool {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()
	return level >= ll.level
}

func (ll *LimitedLogger) logWithLevel(level LogLevel, format string, v ...any) {
	if !ll.shouldLog(level) {
		return
	}
	msg := fmt.Sprintf("%s [%s] %s\n", time.Now().Format("2006/01/02 15:04:05"), level.String(), fmt.Sprintf(format, v...))
	ll.Write([]byte(msg))
}

func (ll *LimitedLogger) Debug(format string, v ...any) {
	ll.logWithLevel(LogLevelDebug, format, v...)
}

func (ll *LimitedLogger) Info(format string, v ...any) {
	ll.logWithLevel(LogLevelInfo, format, v...)
}

func (ll *LimitedLogger) Warn(format string, v ...any) {
	ll.logWithLevel(LogLevelWarn, format, v...)
}

func (ll *LimitedLogger) Error(format string, v ...any) {
	ll.logWithLevel(LogLevelError, format, v...)
}

// Fatal logs at ERROR and exits with code 1.
func (ll *LimitedLogger) Fatal(format string, v ...any) {
	ll.logWithLevel(LogLevelError, format, v...)
	os.Exit(1)
}

// Printf logs at DEBUG. It has the shape the RPC library expects for its
// own diagnostics.
func (ll *LimitedLogger) Printf(format string, v ...any) {
	ll.logWithLevel(LogLevelDebug, format, v...)
}

func Debug(format string, v ...any) { current().Debug(format, v...) }
func Info(format string, v ...any)  { current().Info(format, v...) }
func Warn(format string, v ...any)  { current().Warn(format, v...) }
func Error(format string, v ...any) { current().Error(format, v...) }
func Fatal(format string, v ...any) { current().Fatal(format, v...) }

// Printf forwards to the active logger at DEBUG.
func Printf(format string, v ...any) { current().Printf(format, v...) }

func (ll *LimitedLogger) countExistingLines() {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()

	if _, err := ll.file.Seek(0, 0); err != nil {
		// not seekable (stderr, pipes)
		return
	}
	scanner := bufio.NewScanner(ll.file)
	count := 0
	for scanner.Scan() {
		count++
	}
	ll.lineCount = count
	ll.file.Seek(0, 2)
}

// Write implements io.Writer.
func (ll *LimitedLogger) Write(p []byte) (n int, err error) {
	ll.mutex.Lock()
	defer ll.mutex.Unlock()

	n, err = ll.file.Write(p)
	if err != nil {
		return n, err
	}

	ll.lineCount += strings.Count(string(p), "\n")
	if ll.maxLines > 0 && ll.lineCount > ll.maxLines {
		ll.trim()
	}
	return n, nil
}

// trim rewrites the file with only the last maxLines lines.
func (ll *LimitedLogger) trim() {
	if _, err := ll.file.Seek(0, 0); err != nil {
		return
	}
	scanner := bufio.NewScanner(ll.file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) > ll.maxLines {
		lines = lines[len(lines)-ll.maxLines:]
	}

	ll.file.Truncate(0)
	ll.file.Seek(0, 0)
	w := bufio.NewWriter(ll.file)
	for _, line := range lines {
		w.WriteString(line)
		w.WriteByte('\n')
	}
	w.Flush()
	ll.lineCount = len(lines)
}

func (ll *LimitedLogger) Close() error {
	return ll.file.Close()
}
