package logger

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type bufferCloser struct {
	bytes.Buffer
}

func (b *bufferCloser) Close() error { return nil }

func TestBackendFiltersByWriterLevel(t *testing.T) {
	backend := NewBackend()
	infoWriter := &bufferCloser{}
	warnWriter := &bufferCloser{}
	err := backend.AddLogWriter(infoWriter, LevelInfo)
	if err != nil {
		t.Fatalf("TestBackendFiltersByWriterLevel: AddLogWriter: %s", err)
	}
	err = backend.AddLogWriter(warnWriter, LevelWarn)
	if err != nil {
		t.Fatalf("TestBackendFiltersByWriterLevel: AddLogWriter: %s", err)
	}
	err = backend.Run()
	if err != nil {
		t.Fatalf("TestBackendFiltersByWriterLevel: Run: %s", err)
	}
	if backend.AddLogWriter(&bufferCloser{}, LevelInfo) == nil {
		t.Fatalf("TestBackendFiltersByWriterLevel: expected an error adding a writer to a running backend")
	}

	log := backend.Logger("TEST")
	log.SetLevel(LevelDebug)
	log.Debugf("debug message")
	log.Infof("info message")
	log.Warnf("warn message")
	backend.Close()

	infoOutput := infoWriter.String()
	if strings.Contains(infoOutput, "debug message") {
		t.Fatalf("TestBackendFiltersByWriterLevel: the info writer got a debug message")
	}
	if !strings.Contains(infoOutput, "[INF] TEST: info message") ||
		!strings.Contains(infoOutput, "[WRN] TEST: warn message") {
		t.Fatalf("TestBackendFiltersByWriterLevel: unexpected info writer output %q", infoOutput)
	}
	warnOutput := warnWriter.String()
	if strings.Contains(warnOutput, "info message") || !strings.Contains(warnOutput, "warn message") {
		t.Fatalf("TestBackendFiltersByWriterLevel: unexpected warn writer output %q", warnOutput)
	}
}

func TestBackendWritesLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	backend := NewBackend()
	err := backend.AddLogFile(logFile, LevelTrace)
	if err != nil {
		t.Fatalf("TestBackendWritesLogFile: AddLogFile: %s", err)
	}
	err = backend.Run()
	if err != nil {
		t.Fatalf("TestBackendWritesLogFile: Run: %s", err)
	}
	log := backend.Logger("FILE")
	log.SetLevel(LevelTrace)
	log.Tracef("written to %s", "a file")
	backend.Close()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("TestBackendWritesLogFile: ReadFile: %s", err)
	}
	if !strings.Contains(string(content), "[TRC] FILE: written to a file") {
		t.Fatalf("TestBackendWritesLogFile: unexpected log file content %q", content)
	}
}

func TestBackendCloseWritesQueuedEntries(t *testing.T) {
	backend := NewBackend()
	writer := &bufferCloser{}
	err := backend.AddLogWriter(writer, LevelTrace)
	if err != nil {
		t.Fatalf("TestBackendCloseWritesQueuedEntries: AddLogWriter: %s", err)
	}
	err = backend.Run()
	if err != nil {
		t.Fatalf("TestBackendCloseWritesQueuedEntries: Run: %s", err)
	}

	const entryCount = 4 * entryQueueSize
	log := backend.Logger("QUEUE")
	log.SetLevel(LevelTrace)
	for i := 0; i < entryCount; i++ {
		log.Infof("entry %d", i)
	}
	backend.Close()
	backend.Close()

	lines := strings.Count(writer.String(), "\n")
	if lines != entryCount {
		t.Fatalf("TestBackendCloseWritesQueuedEntries: expected %d entries, got %d", entryCount, lines)
	}
	if !strings.Contains(writer.String(), fmt.Sprintf("QUEUE: entry %d\n", entryCount-1)) {
		t.Fatalf("TestBackendCloseWritesQueuedEntries: the last entry is missing")
	}

	// Entries logged after Close are dropped
	log.Infof("too late")
	if strings.Contains(writer.String(), "too late") {
		t.Fatalf("TestBackendCloseWritesQueuedEntries: an entry was written after Close")
	}
}

func TestBackendCloseWithoutRun(t *testing.T) {
	writer := &closeRecorder{}
	backend := NewBackend()
	err := backend.AddLogWriter(writer, LevelInfo)
	if err != nil {
		t.Fatalf("TestBackendCloseWithoutRun: AddLogWriter: %s", err)
	}
	backend.Close()
	if !writer.closed {
		t.Fatalf("TestBackendCloseWithoutRun: the writer wasn't closed")
	}
	if backend.Run() == nil {
		t.Fatalf("TestBackendCloseWithoutRun: expected an error running a closed backend")
	}
}

type closeRecorder struct {
	bufferCloser
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestFlagsFromEnv(t *testing.T) {
	tests := []struct {
		value         string
		expectedFlags uint32
	}{
		{value: "", expectedFlags: 0},
		{value: "shortfile", expectedFlags: LogFlagShortFile},
		{value: "longfile, shortfile", expectedFlags: LogFlagLongFile | LogFlagShortFile},
		{value: "nosuchflag", expectedFlags: 0},
	}
	for _, test := range tests {
		flags := flagsFromEnv(test.value)
		if flags != test.expectedFlags {
			t.Fatalf("TestFlagsFromEnv: %q: expected %d, got %d", test.value, test.expectedFlags, flags)
		}
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		name          string
		expectedLevel Level
		expectedOK    bool
	}{
		{name: "trace", expectedLevel: LevelTrace, expectedOK: true},
		{name: "DBG", expectedLevel: LevelDebug, expectedOK: true},
		{name: "Warn", expectedLevel: LevelWarn, expectedOK: true},
		{name: "crt", expectedLevel: LevelCritical, expectedOK: true},
		{name: "off", expectedLevel: LevelOff, expectedOK: true},
		{name: "loud", expectedLevel: LevelInfo, expectedOK: false},
	}
	for _, test := range tests {
		level, ok := LevelFromString(test.name)
		if level != test.expectedLevel || ok != test.expectedOK {
			t.Fatalf("TestLevelFromString: %s: expected (%s, %t) but got (%s, %t)",
				test.name, test.expectedLevel, test.expectedOK, level, ok)
		}
	}
}

func TestParseAndSetLogLevels(t *testing.T) {
	first := RegisterSubSystem("TST1")
	second := RegisterSubSystem("TST2")

	err := ParseAndSetLogLevels("TST1=debug,TST2=error")
	if err != nil {
		t.Fatalf("TestParseAndSetLogLevels: %s", err)
	}
	if first.Level() != LevelDebug || second.Level() != LevelError {
		t.Fatalf("TestParseAndSetLogLevels: unexpected levels %s, %s", first.Level(), second.Level())
	}

	invalidLevels := []string{"TST1=loud", "NOSUCHSUBSYSTEM=info", "TST1", "TST1=info,TST2"}
	for _, levels := range invalidLevels {
		if ParseAndSetLogLevels(levels) == nil {
			t.Fatalf("TestParseAndSetLogLevels: expected an error for %q", levels)
		}
	}
}
