package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/turtleterm/pkg/configuration"
)

// LogLevel orders log entries by severity.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// LogArea names a subsystem that can be switched on and off separately
// with a Debug.log_<area> key.
type LogArea string

const (
	AreaWebSocket   LogArea = "websocket"
	AreaTerminal    LogArea = "terminal"
	AreaAuth        LogArea = "auth"
	AreaDatabase    LogArea = "database"
	AreaSession     LogArea = "session"
	AreaConfig      LogArea = "config"
	AreaGeneral     LogArea = "general"
	AreaInterpreter LogArea = "interpreter"
	AreaCanvas      LogArea = "canvas"
	AreaGallery     LogArea = "gallery"
	AreaSecurity    LogArea = "security"
)

var allAreas = []LogArea{
	AreaWebSocket, AreaTerminal, AreaAuth, AreaDatabase, AreaSession,
	AreaConfig, AreaGeneral, AreaInterpreter, AreaCanvas, AreaGallery,
	AreaSecurity,
}

// Logger writes area-filtered entries to a size-rotated file.
type Logger struct {
	enabled       int32 // atomic bool
	level         int32 // atomic LogLevel
	areaEnabled   map[LogArea]*int32
	out           io.Writer
	file          *os.File
	mutex         sync.Mutex
	logPath       string
	maxSizeMB     int64
	rotationCount int
	currentSize   int64
}

var (
	globalLogger *Logger
	initOnce     sync.Once
)

// Initialize sets up the global logger from the [Debug] section.
func Initialize() error {
	var err error
	initOnce.Do(func() {
		globalLogger, err = newLogger()
	})
	return err
}

// InitializeWriter routes all entries to w instead of a file. Every area is
// enabled at DEBUG level. Used by tests and the command line tools.
func InitializeWriter(w io.Writer) {
	l := &Logger{areaEnabled: make(map[LogArea]*int32), out: w}
	for _, area := range allAreas {
		l.areaEnabled[area] = new(int32)
		atomic.StoreInt32(l.areaEnabled[area], 1)
	}
	atomic.StoreInt32(&l.enabled, 1)
	atomic.StoreInt32(&l.level, int32(DEBUG))
	globalLogger = l
}

func newLogger() (*Logger, error) {
	l := &Logger{
		areaEnabled: make(map[LogArea]*int32),
	}
	for _, area := range allAreas {
		l.areaEnabled[area] = new(int32)
	}

	if err := l.loadConfig(); err != nil {
		return nil, err
	}
	if err := l.openLogFile(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) loadConfig() error {
	enabled := configuration.GetBool("Debug", "enable_debug_logging", true)
	atomic.StoreInt32(&l.enabled, boolToInt32(enabled))

	level := parseLogLevel(configuration.GetString("Debug", "log_level", "INFO"))
	atomic.StoreInt32(&l.level, int32(level))

	l.logPath = configuration.GetString("Debug", "log_file", "turtleterm.log")
	l.maxSizeMB = int64(configuration.GetInt("Debug", "max_log_size_mb", 10))
	l.rotationCount = configuration.GetInt("Debug", "log_rotation_count", 3)

	for area, flag := range l.areaEnabled {
		on := configuration.GetBool("Debug", "log_"+string(area), false)
		atomic.StoreInt32(flag, boolToInt32(on))
	}
	return nil
}

func (l *Logger) openLogFile() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.file != nil {
		l.file.Close()
	}
	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.out = file
	if stat, err := file.Stat(); err == nil {
		l.currentSize = stat.Size()
	}
	return nil
}

// rotateLocked shifts turtleterm.log to .1, .1 to .2 and so on.
// The caller holds l.mutex.
func (l *Logger) rotateLocked() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	for i := l.rotationCount - 1; i >= 1; i-- {
		oldName := fmt.Sprintf("%s.%d", l.logPath, i)
		newName := fmt.Sprintf("%s.%d", l.logPath, i+1)
		if i == l.rotationCount-1 {
			os.Remove(newName)
		}
		os.Rename(oldName, newName)
	}
	os.Rename(l.logPath, l.logPath+".1")

	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.out = nil
		return err
	}
	l.file = file
	l.out = file
	l.currentSize = 0
	return nil
}

func (l *Logger) isAreaEnabled(area LogArea) bool {
	if flag, ok := l.areaEnabled[area]; ok {
		return atomic.LoadInt32(flag) != 0
	}
	return false
}

func (l *Logger) shouldLog(level LogLevel, area LogArea) bool {
	if atomic.LoadInt32(&l.enabled) == 0 {
		return false
	}
	if atomic.LoadInt32(&l.level) > int32(level) {
		return false
	}
	return l.isAreaEnabled(area)
}

func (l *Logger) writeLog(level LogLevel, area LogArea, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	_, file, line, _ := runtime.Caller(2)
	entry := fmt.Sprintf("[%s] %s [%s:%d] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"),
		logLevelNames[level],
		filepath.Base(file),
		line,
		strings.ToUpper(string(area)),
		message)

	l.mutex.Lock()
	if l.out != nil {
		n, err := io.WriteString(l.out, entry)
		if err == nil && l.file != nil {
			l.currentSize += int64(n)
			if l.maxSizeMB > 0 && l.currentSize > l.maxSizeMB*1024*1024 {
				l.rotateLocked()
			}
		}
	}
	l.mutex.Unlock()

	// Warnings and worse also go to the console.
	if level >= WARN {
		log.Printf("[%s] [%s] %s", logLevelNames[level], strings.ToUpper(string(area)), message)
	}
}

// Debug logs a DEBUG entry for area.
func Debug(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.shouldLog(DEBUG, area) {
		globalLogger.writeLog(DEBUG, area, format, args...)
	}
}

// Info logs an INFO entry for area.
func Info(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.shouldLog(INFO, area) {
		globalLogger.writeLog(INFO, area, format, args...)
	}
}

// Warn logs a WARN entry for area.
func Warn(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.shouldLog(WARN, area) {
		globalLogger.writeLog(WARN, area, format, args...)
	}
}

// Error logs an ERROR entry for area.
func Error(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.shouldLog(ERROR, area) {
		globalLogger.writeLog(ERROR, area, format, args...)
	}
}

// Fatal logs unconditionally and exits.
func Fatal(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.writeLog(FATAL, area, format, args...)
	}
	log.Fatalf("[FATAL] [%s] %s", strings.ToUpper(string(area)), fmt.Sprintf(format, args...))
}

// WebSocket
func WebSocketDebug(format string, args ...interface{}) { Debug(AreaWebSocket, format, args...) }
func WebSocketInfo(format string, args ...interface{})  { Info(AreaWebSocket, format, args...) }
func WebSocketWarn(format string, args ...interface{})  { Warn(AreaWebSocket, format, args...) }
func WebSocketError(format string, args ...interface{}) { Error(AreaWebSocket, format, args...) }

// Auth
func AuthDebug(format string, args ...interface{}) { Debug(AreaAuth, format, args...) }
func AuthInfo(format string, args ...interface{})  { Info(AreaAuth, format, args...) }
func AuthWarn(format string, args ...interface{})  { Warn(AreaAuth, format, args...) }
func AuthError(format string, args ...interface{}) { Error(AreaAuth, format, args...) }

// Session
func SessionDebug(format string, args ...interface{}) { Debug(AreaSession, format, args...) }
func SessionInfo(format string, args ...interface{})  { Info(AreaSession, format, args...) }
func SessionWarn(format string, args ...interface{})  { Warn(AreaSession, format, args...) }

// Security
func SecurityInfo(format string, args ...interface{})  { Info(AreaSecurity, format, args...) }
func SecurityWarn(format string, args ...interface{})  { Warn(AreaSecurity, format, args...) }
func SecurityError(format string, args ...interface{}) { Error(AreaSecurity, format, args...) }

// Config
func ConfigInfo(format string, args ...interface{})  { Info(AreaConfig, format, args...) }
func ConfigWarn(format string, args ...interface{})  { Warn(AreaConfig, format, args...) }
func ConfigError(format string, args ...interface{}) { Error(AreaConfig, format, args...) }

// ReloadConfig re-reads the [Debug] section.
func ReloadConfig() error {
	if globalLogger != nil {
		return globalLogger.loadConfig()
	}
	return fmt.Errorf("logger not initialized")
}

// EnableArea switches logging for area on.
func EnableArea(area LogArea) {
	if globalLogger != nil {
		if flag, ok := globalLogger.areaEnabled[area]; ok {
			atomic.StoreInt32(flag, 1)
		}
	}
}

// DisableArea switches logging for area off.
func DisableArea(area LogArea) {
	if globalLogger != nil {
		if flag, ok := globalLogger.areaEnabled[area]; ok {
			atomic.StoreInt32(flag, 0)
		}
	}
}

// GetAreaStatus reports whether area is being logged.
func GetAreaStatus(area LogArea) bool {
	if globalLogger != nil {
		return globalLogger.isAreaEnabled(area)
	}
	return false
}

// ListAreas returns every known area.
func ListAreas() []LogArea {
	out := make([]LogArea, len(allAreas))
	copy(out, allAreas)
	return out
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Close flushes and closes the log file.
func Close() {
	if globalLogger == nil {
		return
	}
	globalLogger.mutex.Lock()
	defer globalLogger.mutex.Unlock()
	if globalLogger.file != nil {
		globalLogger.file.Sync()
		globalLogger.file.Close()
		globalLogger.file = nil
		globalLogger.out = nil
	}
}
