package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "sqlexport.log"

var rotator *lumberjack.Logger

type lineFormatter struct{}

// Format renders entries as:
// 2024-01-02 15:04:05 INFO finalized orders/2023-12-31 rows=120
func (lineFormatter) Format(entry *log.Entry) ([]byte, error) {
	msg := fmt.Sprintf("%s %s %s", entry.Time.Format("2006-01-02 15:04:05"),
		levelName(entry.Level), entry.Message)
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msg += fmt.Sprintf(" %s=%v", k, entry.Data[k])
	}
	return []byte(msg + "\n"), nil
}

func levelName(l log.Level) string {
	switch l {
	case log.PanicLevel:
		return "PANIC"
	case log.FatalLevel:
		return "FATAL"
	case log.ErrorLevel:
		return "ERROR"
	case log.WarnLevel:
		return "WARN"
	case log.DebugLevel:
		return "DEBUG"
	case log.TraceLevel:
		return "TRACE"
	default:
		return "INFO"
	}
}

// InitLogger sends log output to stderr and, when logDir is set, to a rotated
// file under logDir. level is a logrus level name such as "info" or "debug".
func InitLogger(logDir string, level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	log.SetFormatter(lineFormatter{})

	if logDir == "" {
		log.SetOutput(os.Stderr)
		return nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("create log dir %q: %w", logDir, err)
	}
	rotator = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, logFileName),
		MaxSize:    100, // MB
		MaxBackups: 10,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	return nil
}

func Close() {
	if rotator != nil {
		rotator.Close()
	}
}

func WithFields(fields map[string]interface{}) *log.Entry {
	return log.WithFields(log.Fields(fields))
}

func Info(format string, v ...interface{}) {
	log.Infof(format, v...)
}

func Infof(format string, v ...interface{}) {
	log.Infof(format, v...)
}

func Debugf(format string, v ...interface{}) {
	log.Debugf(format, v...)
}

func Error(format string, v ...interface{}) {
	log.Errorf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	log.Errorf(format, v...)
}

func Warn(format string, v ...interface{}) {
	log.Warnf(format, v...)
}

func Warnf(format string, v ...interface{}) {
	log.Warnf(format, v...)
}
