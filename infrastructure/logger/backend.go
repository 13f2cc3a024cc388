package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
)

const normalLogSize = 512

// Flags to modify Backend's behavior.
const (
	// LogFlagLongFile prefixes every entry with the full path and line
	// of the logging callsite, e.g. /a/b/c/main.go:123.
	LogFlagLongFile uint32 = 1 << iota

	// LogFlagShortFile prefixes every entry with the file name and line
	// of the logging callsite, e.g. main.go:123. It takes precedence
	// over LogFlagLongFile.
	LogFlagShortFile
)

// defaultFlags are read once from the comma separated LOGFLAGS
// environment variable, e.g. LOGFLAGS=shortfile
var defaultFlags = flagsFromEnv(os.Getenv("LOGFLAGS"))

func flagsFromEnv(value string) uint32 {
	var flags uint32
	for _, name := range strings.Split(value, ",") {
		switch strings.TrimSpace(name) {
		case "longfile":
			flags |= LogFlagLongFile
		case "shortfile":
			flags |= LogFlagShortFile
		}
	}
	return flags
}

// entryQueueSize is how many entries may wait for the writers before
// logging blocks the caller
const entryQueueSize = 256

type logEntry struct {
	log   []byte
	level Level
}

// LogFileRotation is when a log file is rolled over and how many old
// files are kept
type LogFileRotation struct {
	ThresholdKB int64
	MaxRolls    int
}

// DefaultLogFileRotation rolls log files over at 100 MB and keeps the
// last 8 of them
var DefaultLogFileRotation = LogFileRotation{ThresholdKB: 100 * 1000, MaxRolls: 8}

type logWriter struct {
	io.WriteCloser
	level Level
}

// Backend serializes the entries of every subsystem logger and hands
// each of them to the writers whose level it reaches. Writers are added
// before Run and closed by Close once every queued entry is written.
type Backend struct {
	flag    uint32
	writers []logWriter
	entries chan logEntry

	isRunning uint32
	hasRun    uint32
	drained   chan struct{}
	closeOnce sync.Once
}

// NewBackendWithFlags returns a Backend using flags instead of the ones
// set through LOGFLAGS
func NewBackendWithFlags(flags uint32) *Backend {
	return &Backend{
		flag:    flags,
		entries: make(chan logEntry, entryQueueSize),
		drained: make(chan struct{}),
	}
}

// NewBackend creates a new logger backend.
func NewBackend() *Backend {
	return NewBackendWithFlags(defaultFlags)
}

func (b *Backend) addWriter(writer io.WriteCloser, level Level) error {
	if atomic.LoadUint32(&b.hasRun) != 0 {
		return errors.New("writers can't be added once the logger runs")
	}
	b.writers = append(b.writers, logWriter{WriteCloser: writer, level: level})
	return nil
}

// AddLogWriter adds a writer receiving every entry of at least level
func (b *Backend) AddLogWriter(writer io.WriteCloser, level Level) error {
	return b.addWriter(writer, level)
}

// AddLogFile adds a file receiving every entry of at least level,
// rotated by DefaultLogFileRotation. The file and its directory are
// created if missing.
func (b *Backend) AddLogFile(logFile string, level Level) error {
	return b.AddRotatingLogFile(logFile, level, DefaultLogFileRotation)
}

// AddRotatingLogFile is AddLogFile with custom rotation settings
func (b *Backend) AddRotatingLogFile(logFile string, level Level, rotation LogFileRotation) error {
	if atomic.LoadUint32(&b.hasRun) != 0 {
		return errors.New("log files can't be added once the logger runs")
	}
	logDir := filepath.Dir(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		return errors.Wrapf(err, "failed to create log directory %s", logDir)
	}
	fileRotator, err := rotator.New(logFile, rotation.ThresholdKB, false, rotation.MaxRolls)
	if err != nil {
		return errors.Wrapf(err, "failed to create a rotator for %s", logFile)
	}
	return b.addWriter(fileRotator, level)
}

// Run starts writing queued entries in the background. It may only be
// called once.
func (b *Backend) Run() error {
	if !atomic.CompareAndSwapUint32(&b.hasRun, 0, 1) {
		return errors.New("the logger already ran or was closed")
	}
	atomic.StoreUint32(&b.isRunning, 1)
	go func() {
		defer close(b.drained)
		defer func() {
			err := recover()
			if err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "Fatal error in the logger backend: %+v\n%s", err, debug.Stack())
			}
		}()
		b.drain()
	}()
	return nil
}

func (b *Backend) drain() {
	for entry := range b.entries {
		for _, writer := range b.writers {
			if entry.level >= writer.level {
				_, _ = writer.Write(entry.log)
			}
		}
	}
}

// IsRunning returns whether the backend accepts entries
func (b *Backend) IsRunning() bool {
	return atomic.LoadUint32(&b.isRunning) != 0
}

// Close stops accepting entries, waits until the queued ones are written
// and closes every writer. Calls after the first are no-ops.
func (b *Backend) Close() {
	b.closeOnce.Do(func() {
		atomic.StoreUint32(&b.isRunning, 0)
		close(b.entries)
		// A backend that never ran can't be started anymore
		if !atomic.CompareAndSwapUint32(&b.hasRun, 0, 1) {
			<-b.drained
		}
		for _, writer := range b.writers {
			_ = writer.Close()
		}
	})
}

// Logger returns a new logger for a particular subsystem that writes to the
// Backend b. A tag describes the subsystem and is included in all log
// messages. The logger is off until its level is set.
func (b *Backend) Logger(subsystemTag string) *Logger {
	return &Logger{level: uint32(LevelOff), tag: subsystemTag, b: b}
}
