package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogSettings controls where and how the process logger writes.
type LogSettings struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	JSON       bool
	Console    bool
}

// DefaultLogSettings returns the settings used when no configuration was loaded.
func DefaultLogSettings() LogSettings {
	return LogSettings{
		File:       ".reqgen/reqgen.log",
		MaxSizeMB:  15,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// Logger represents the service logger.
type Logger struct {
	mu            sync.Mutex
	logger        *log.Logger
	console       io.Writer
	jsonMode      bool
	correlationID string
}

var (
	globalLogger *Logger
	once         sync.Once
)

// ConfigureLogger installs the process-wide logger. It must be called before the
// first GetLogger call to take effect; later calls are ignored.
func ConfigureLogger(settings LogSettings) *Logger {
	once.Do(func() {
		globalLogger = newRotatingLogger(settings)
	})
	return globalLogger
}

// GetLogger returns the singleton instance of Logger.
// It initializes the logger with a file handler that rotates logs.
func GetLogger() *Logger {
	once.Do(func() {
		globalLogger = newRotatingLogger(DefaultLogSettings())
	})
	return globalLogger
}

func newRotatingLogger(settings LogSettings) *Logger {
	if settings.File == "" {
		settings.File = DefaultLogSettings().File
	}
	logFile := &lumberjack.Logger{
		Filename:   settings.File,
		MaxSize:    settings.MaxSizeMB, // megabytes
		MaxBackups: settings.MaxBackups,
		MaxAge:     settings.MaxAgeDays, // days
		Compress:   true,
	}
	l := NewLoggerWithWriter(logFile)
	l.jsonMode = settings.JSON || os.Getenv("REQGEN_JSON_LOGS") == "1"
	if settings.Console {
		l.console = os.Stderr
	}
	return l
}

// NewLoggerWithWriter creates a logger that writes to w instead of the rotating file.
func NewLoggerWithWriter(w io.Writer) *Logger {
	l := &Logger{
		logger: log.New(w, "", log.LstdFlags),
	}
	if os.Getenv("REQGEN_JSON_LOGS") == "1" {
		l.jsonMode = true
	}
	if cid := os.Getenv("REQGEN_CORRELATION_ID"); cid != "" {
		l.correlationID = cid
	}
	return l
}

// SetConsole echoes process steps to w. A nil writer disables console output.
func (w *Logger) SetConsole(out io.Writer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.console = out
}

// Close closes the logger resources.
func (w *Logger) Close() error {
	if logFile, ok := w.logger.Writer().(*lumberjack.Logger); ok {
		return logFile.Close()
	}
	return nil
}

// LogProcessStep logs the current step in a process and echoes it to the console
// writer when one is configured.
func (w *Logger) LogProcessStep(step string) {
	w.write("info", step, nil)
	w.mu.Lock()
	console := w.console
	w.mu.Unlock()
	if console != nil {
		fmt.Fprintln(console, step)
	}
}

// Log logs a general message only to the log file.
func (w *Logger) Log(message string) {
	w.write("info", message, nil)
}

// Logf logs a formatted general message only to the log file.
func (w *Logger) Logf(format string, v ...interface{}) {
	w.write("info", fmt.Sprintf(format, v...), nil)
}

// LogError logs an error.
func (w *Logger) LogError(err error) {
	if err == nil {
		return
	}
	w.write("error", FormatError(err), nil)
}

// LogFields logs a message with structured fields. In text mode the fields are
// appended as key=value pairs.
func (w *Logger) LogFields(message string, fields map[string]any) {
	w.write("info", message, fields)
}

func (w *Logger) write(level, message string, fields map[string]any) {
	if w.jsonMode {
		record := map[string]any{"level": level, "msg": message, "cid": w.correlationID}
		for k, v := range fields {
			record[k] = v
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		_ = json.NewEncoder(w.logger.Writer()).Encode(record)
		return
	}

	line := message
	if level == "error" {
		line = "Error: " + message
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%v", k, fields[k])
	}
	w.logger.Print(line)
}
