package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"ppemonitor/internal/config"
)

// Log file names, one per level. Debug entries go to the info file.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (debug/info/warning/error) to rotated files
// and stdout/stderr.
type Logger struct {
	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      map[string]*lumberjack.Logger
	logDir     string
	debug      bool
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(cfg *config.Config) *Logger {
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	l := &Logger{
		logDir: cfg.LogDirectory,
		debug:  cfg.LogDebug,
		files:  make(map[string]*lumberjack.Logger),
	}
	l.setupLoggers(cfg.LogMaxSizeMB)
	return l
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		debugLog:   log.New(io.Discard, "", 0),
		infoLog:    log.New(io.Discard, "", 0),
		warningLog: log.New(io.Discard, "", 0),
		errorLog:   log.New(io.Discard, "", 0),
		files:      map[string]*lumberjack.Logger{},
	}
}

// setupLoggers initializes rotating writers and per-level loggers.
func (l *Logger) setupLoggers(maxSizeMB int) {
	for _, name := range []string{InfoFile, WarningFile, ErrorFile} {
		l.files[name] = &lumberjack.Logger{
			Filename:   filepath.Join(l.logDir, name),
			MaxSize:    maxSizeMB,
			MaxBackups: 3,
			MaxAge:     28,
		}
	}

	infoWriter := io.MultiWriter(os.Stdout, l.files[InfoFile])
	warningWriter := io.MultiWriter(os.Stdout, l.files[WarningFile])
	errorWriter := io.MultiWriter(os.Stderr, l.files[ErrorFile])

	flags := log.Ldate | log.Ltime | log.Lshortfile
	l.debugLog = log.New(infoWriter, "DEBUG   ", flags)
	l.infoLog = log.New(infoWriter, "INFO    ", flags)
	l.warningLog = log.New(warningWriter, "WARNING ", flags)
	l.errorLog = log.New(errorWriter, "ERROR   ", flags)
}

// Debug writes a formatted debug-level entry when debug logging is enabled.
func (l *Logger) Debug(format string, v ...interface{}) {
	if !l.debug {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugLog.Printf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}

// Path returns the location of a level file.
func (l *Logger) Path(fileName string) (string, error) {
	if _, ok := l.files[fileName]; !ok {
		return "", errors.Errorf("unknown log file %q", fileName)
	}
	return filepath.Join(l.logDir, fileName), nil
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	path, err := l.Path(fileName)
	if err != nil {
		return err
	}

	l.mu.Lock()
	// the rotating writer reopens the file on the next write
	closeErr := l.files[fileName].Close()
	truncErr := os.Truncate(path, 0)
	l.mu.Unlock()

	if closeErr != nil {
		return errors.Wrapf(closeErr, "failed to close %s", fileName)
	}
	if truncErr != nil && !os.IsNotExist(truncErr) {
		return errors.Wrapf(truncErr, "failed to truncate %s", fileName)
	}

	l.Info("File %s has been cleared", fileName)
	return nil
}

// Close flushes and closes the log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
