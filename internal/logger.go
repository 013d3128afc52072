package internal

import (
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents different logging levels.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// SecureLogger is a leveled logger that redacts session credentials
// before anything reaches the sink. Tokens, signatures and direct
// links are all short-lived secrets; leaking them into a log file
// hands out downloads.
type SecureLogger struct {
	logger    *log.Logger
	level     LogLevel
	debug     bool
	quiet     bool
	redactors []Redactor
}

// Redactor removes sensitive information from a log line.
type Redactor interface {
	Redact(input string) string
}

// ParamRedactor blanks the values of known sensitive key=value pairs
// wherever they appear in a message (URLs, cookie strings, headers).
type ParamRedactor struct {
	keys []string
}

// NewParamRedactor creates a redactor for the given parameter names.
func NewParamRedactor(keys ...string) *ParamRedactor {
	return &ParamRedactor{keys: keys}
}

func (r *ParamRedactor) Redact(input string) string {
	result := input
	lower := strings.ToLower(result)
	for _, key := range r.keys {
		marker := strings.ToLower(key) + "="
		from := 0
		for {
			idx := strings.Index(lower[from:], marker)
			if idx == -1 {
				break
			}
			start := from + idx + len(marker)
			end := start
			for end < len(result) && !isValueEnd(result[end]) {
				end++
			}
			if end > start {
				result = result[:start] + "[REDACTED]" + result[end:]
				lower = strings.ToLower(result)
				from = start + len("[REDACTED]")
			} else {
				from = start
			}
		}
	}
	return result
}

func isValueEnd(c byte) bool {
	return c == '&' || c == ';' || c == ' ' || c == '\n' || c == '\r' || c == '"'
}

var defaultRedactors = []Redactor{
	NewParamRedactor("jsToken", "sign", "browserid", "BDUSS", "STOKEN", "ndus", "dlink", "token", "access_token"),
}

// NewSecureLogger creates a logger writing to output.
func NewSecureLogger(output io.Writer, level LogLevel, debug, quiet bool) *SecureLogger {
	return &SecureLogger{
		logger:    log.New(output, "", 0),
		level:     level,
		debug:     debug,
		quiet:     quiet,
		redactors: defaultRedactors,
	}
}

// NewDefaultLogger creates a stderr logger with sensible defaults.
func NewDefaultLogger(debug, quiet bool) *SecureLogger {
	level := LogLevelInfo
	if debug {
		level = LogLevelDebug
	}
	if quiet {
		level = LogLevelError
	}
	return NewSecureLogger(os.Stderr, level, debug, quiet)
}

func (sl *SecureLogger) redact(input string) string {
	result := input
	for _, r := range sl.redactors {
		result = r.Redact(result)
	}
	return result
}

func (sl *SecureLogger) formatMessage(level LogLevel, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if sl.debug {
		for depth := 3; depth <= 5; depth++ {
			_, file, line, ok := runtime.Caller(depth)
			if ok && !strings.Contains(file, "logger.go") && !strings.Contains(file, "log.go") {
				parts := strings.Split(file, "/")
				return fmt.Sprintf("[%s] %s %s:%d %s", timestamp, level, parts[len(parts)-1], line, message)
			}
		}
	}
	return fmt.Sprintf("[%s] %s %s", timestamp, level, message)
}

func (sl *SecureLogger) shouldLog(level LogLevel) bool {
	if sl.quiet && level > LogLevelError {
		return false
	}
	return level <= sl.level
}

func (sl *SecureLogger) logf(level LogLevel, format string, args ...any) {
	if !sl.shouldLog(level) {
		return
	}
	message := sl.redact(fmt.Sprintf(format, args...))
	sl.logger.Print(sl.formatMessage(level, message))
}

// Error logs an error message.
func (sl *SecureLogger) Error(format string, args ...any) { sl.logf(LogLevelError, format, args...) }

// Warn logs a warning message.
func (sl *SecureLogger) Warn(format string, args ...any) { sl.logf(LogLevelWarn, format, args...) }

// Info logs an info message.
func (sl *SecureLogger) Info(format string, args ...any) { sl.logf(LogLevelInfo, format, args...) }

// Debug logs a debug message.
func (sl *SecureLogger) Debug(format string, args ...any) { sl.logf(LogLevelDebug, format, args...) }

// SetLevel sets the logging level.
func (sl *SecureLogger) SetLevel(level LogLevel) { sl.level = level }

// AddRedactor adds a custom redactor.
func (sl *SecureLogger) AddRedactor(r Redactor) { sl.redactors = append(sl.redactors, r) }
