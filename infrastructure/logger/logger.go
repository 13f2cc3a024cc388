package logger

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// Logger is a subsystem logger for a Backend.
type Logger struct {
	level uint32 // atomic
	tag   string
	b     *Backend
}

// Level returns the current logging level.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32(&l.level))
}

// SetLevel changes the logging level to the passed level.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32(&l.level, uint32(level))
}

// Backend returns the log backend
func (l *Logger) Backend() *Backend {
	return l.b
}

// Tracef formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.Writef(LevelTrace, format, args...)
}

// Debugf formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Writef(LevelDebug, format, args...)
}

// Infof formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Writef(LevelInfo, format, args...)
}

// Warnf formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Writef(LevelWarn, format, args...)
}

// Errorf formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Writef(LevelError, format, args...)
}

// Criticalf formats message according to format specifier, prepends the prefix as
// necessary, and writes to log with LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.Writef(LevelCritical, format, args...)
}

// Writef formats the message and writes it to the backend if the logger
// level allows it.
func (l *Logger) Writef(logLevel Level, format string, args ...interface{}) {
	if l.Level() > logLevel {
		return
	}
	l.write(logLevel, fmt.Sprintf(format, args...))
}

func (l *Logger) write(logLevel Level, message string) {
	if !l.b.IsRunning() {
		return
	}
	buf := bytes.NewBuffer(make([]byte, 0, normalLogSize))
	t := time.Now()
	buf.WriteString(t.Format("2006-01-02 15:04:05.000"))
	buf.WriteString(" [")
	buf.WriteString(logLevel.String())
	buf.WriteString("] ")
	buf.WriteString(l.tag)
	buf.WriteString(": ")
	if l.b.flag&(LogFlagShortFile|LogFlagLongFile) != 0 {
		buf.WriteString(callsite(l.b.flag))
		buf.WriteString(": ")
	}
	buf.WriteString(message)
	if !strings.HasSuffix(message, "\n") {
		buf.WriteByte('\n')
	}

	defer func() {
		// The channel may have been closed by Backend.Close
		if recover() != nil {
			_, _ = os.Stderr.Write(buf.Bytes())
		}
	}()
	l.b.entries <- logEntry{log: buf.Bytes(), level: logLevel}
}

func callsite(flag uint32) string {
	_, file, line, ok := runtime.Caller(4)
	if !ok {
		return "???:0"
	}
	if flag&LogFlagShortFile != 0 {
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if os.IsPathSeparator(file[i]) {
				short = file[i+1:]
				break
			}
		}
		file = short
	}
	return fmt.Sprintf("%s:%d", file, line)
}
