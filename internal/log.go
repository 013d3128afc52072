package internal

import (
	"io"
	"os"
	"strings"
	"sync"
)

var (
	globalLogger *SecureLogger
	loggerMutex  sync.RWMutex
)

// InitLogger initializes the global logger from the configuration.
func InitLogger(config *Config) error {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	level := parseLogLevel(config.LogLevel)

	var output io.Writer = os.Stderr
	if config.LogFile != "" {
		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return NewConfigError("log_file", "failed to open log file: "+err.Error())
		}
		output = file
	}

	globalLogger = NewSecureLogger(output, level, config.Debug, config.Quiet)
	return nil
}

// GetLogger returns the global logger, creating a default one if
// InitLogger has not run.
func GetLogger() *SecureLogger {
	loggerMutex.RLock()
	l := globalLogger
	loggerMutex.RUnlock()
	if l != nil {
		return l
	}

	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefaultLogger(false, false)
	}
	return globalLogger
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LogError logs an error message using the global logger.
func LogError(format string, args ...any) { GetLogger().Error(format, args...) }

// LogWarn logs a warning message using the global logger.
func LogWarn(format string, args ...any) { GetLogger().Warn(format, args...) }

// LogInfo logs an info message using the global logger.
func LogInfo(format string, args ...any) { GetLogger().Info(format, args...) }

// LogDebug logs a debug message using the global logger.
func LogDebug(format string, args ...any) { GetLogger().Debug(format, args...) }
