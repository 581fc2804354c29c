// Package logger provides leveled logging for the library.
//
// Loggers are named per component (engine, lockmgr, bench, ...) and share
// one output format so interleaved log lines from the scheduler and the
// workers stay readable. Levels are configured per logger, typically once
// at startup from the CLI's --log-level flag via InitLoggers.
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

type LogLevel int

const (
	CRITICAL LogLevel = iota
	ERROR
	WARNING
	INFO
	DEBUG
)

// ParseLogLevel converts a string level to a LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warning", "warn":
		return WARNING
	case "error":
		return ERROR
	case "critical":
		return CRITICAL
	default:
		panic(fmt.Sprintf("invalid log level: %s. must be one of debug, info, warn, error, critical", level))
	}
}

// --------------------------------------------------------------------------
// Logger
// --------------------------------------------------------------------------

// Logger writes leveled, component-tagged log lines.
type Logger struct {
	name   string
	level  LogLevel
	logger *log.Logger
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= INFO {
		l.log("INFO", format, args...)
	}
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	if l.level >= WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level >= ERROR {
		l.log("ERROR", format, args...)
	}
}

// Panicf logs and aborts. Used for protocol-invariant violations that must
// not be recovered from.
func (l *Logger) Panicf(format string, args ...interface{}) {
	panic(fmt.Sprintf(format, args...))
}

// log formats and writes a log message. this internal helper is used by the public methods
func (l *Logger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Registry
// --------------------------------------------------------------------------

var (
	mu      sync.Mutex
	loggers = make(map[string]*Logger)
)

// GetLogger returns the named logger, creating it at INFO level on first
// use. The same instance is returned for the same name.
func GetLogger(name string) *Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[name]; ok {
		return l
	}

	l := &Logger{
		name:   name,
		level:  INFO,
		logger: log.New(os.Stdout, "", log.Ldate|log.Ltime),
	}
	loggers[name] = l
	return l
}

// InitLoggers sets the level of all known component loggers.
func InitLoggers(level string) {
	parsed := ParseLogLevel(level)
	for _, name := range []string{"engine"} {
		GetLogger(name).SetLevel(parsed)
	}
}
