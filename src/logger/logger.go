package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	levelNames = map[LogLevel]string{
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
	}

	levelColors = map[LogLevel]string{
		DEBUG: "\033[36m",
		INFO:  "\033[32m",
		WARN:  "\033[33m",
		ERROR: "\033[31m",
	}
)

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a level name to a LogLevel. Unknown names fall back to INFO.
func ParseLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Options configures the default logger
type Options struct {
	Level        string
	Output       io.Writer
	EnableColors bool
}

// Logger is a leveled printf-style logger. Loggers derived with WithPrefix
// share level state with their parent.
type Logger struct {
	state     *levelState
	output    io.Writer
	colors    bool
	prefix    string
	stdLogger *log.Logger
}

type levelState struct {
	mu    sync.RWMutex
	level LogLevel
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
	once          sync.Once
)

// Init configures the default logger from the environment.
//   - LOG_LEVEL: DEBUG, INFO, WARN, ERROR. Default: INFO
//   - LOG_COLOR: false or 0 disables ANSI colors. Default: true
func Init() {
	once.Do(func() {
		colors := true
		if v := os.Getenv("LOG_COLOR"); v == "false" || v == "0" {
			colors = false
		}
		setDefault(New(ParseLevel(os.Getenv("LOG_LEVEL")), os.Stdout, colors, ""))
	})
}

// Configure replaces the default logger. Used once config has been loaded.
func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	once.Do(func() {})
	setDefault(New(ParseLevel(opts.Level), out, opts.EnableColors, ""))
}

func setDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// New creates a new Logger instance
func New(level LogLevel, output io.Writer, enableColors bool, prefix string) *Logger {
	return &Logger{
		state:     &levelState{level: level},
		output:    output,
		colors:    enableColors,
		prefix:    prefix,
		stdLogger: log.New(output, "", log.LstdFlags),
	}
}

// SetLevel changes the current log level
func (l *Logger) SetLevel(level LogLevel) {
	l.state.mu.Lock()
	defer l.state.mu.Unlock()
	l.state.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.state.mu.RLock()
	defer l.state.mu.RUnlock()
	return l.state.level
}

// IsLevelEnabled checks if a specific log level is enabled
func (l *Logger) IsLevelEnabled(level LogLevel) bool {
	return level >= l.GetLevel()
}

func (l *Logger) log(level LogLevel, format string, args ...any) {
	if !l.IsLevelEnabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	tag := "[" + level.String() + "]"
	if l.colors {
		tag = levelColors[level] + tag + "\033[0m"
	}

	var output string
	if l.prefix != "" {
		output = fmt.Sprintf("%s [%s] %s", tag, l.prefix, msg)
	} else {
		output = fmt.Sprintf("%s %s", tag, msg)
	}

	_ = l.stdLogger.Output(3, output)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...any) {
	l.log(DEBUG, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...any) {
	l.log(INFO, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...any) {
	l.log(WARN, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	l.log(ERROR, format, args...)
}

// WithPrefix creates a new logger with a prefix
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		state:     l.state,
		output:    l.output,
		colors:    l.colors,
		prefix:    prefix,
		stdLogger: l.stdLogger,
	}
}

// ForSession returns a logger prefixed with the component and a short
// session id, e.g. "Conversation 1f3a9c2e".
func (l *Logger) ForSession(component, sessionID string) *Logger {
	id := sessionID
	if len(id) > 8 {
		id = id[:8]
	}
	return l.WithPrefix(component + " " + id)
}

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l == nil {
		Init()
		defaultMu.RLock()
		l = defaultLogger
		defaultMu.RUnlock()
	}
	return l
}

// SetLevel sets the log level for the default logger
func SetLevel(level LogLevel) {
	GetDefault().SetLevel(level)
}

// GetLevel returns the current log level of the default logger
func GetLevel() LogLevel {
	return GetDefault().GetLevel()
}

// IsDebugEnabled checks if debug logging is enabled
func IsDebugEnabled() bool {
	return GetDefault().IsLevelEnabled(DEBUG)
}

func Debug(format string, args ...any) {
	GetDefault().log(DEBUG, format, args...)
}

func Info(format string, args ...any) {
	GetDefault().log(INFO, format, args...)
}

func Warn(format string, args ...any) {
	GetDefault().log(WARN, format, args...)
}

func Error(format string, args ...any) {
	GetDefault().log(ERROR, format, args...)
}

// WithPrefix creates a new logger with a prefix from the default logger
func WithPrefix(prefix string) *Logger {
	return GetDefault().WithPrefix(prefix)
}

// ForSession is GetDefault().ForSession.
func ForSession(component, sessionID string) *Logger {
	return GetDefault().ForSession(component, sessionID)
}
