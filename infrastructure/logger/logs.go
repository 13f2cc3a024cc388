package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// BackendLog is the logging backend used to create all subsystem loggers.
var BackendLog = NewBackend()

var (
	subsystemLoggers     = make(map[string]*Logger)
	subsystemLoggersLock sync.Mutex
)

// RegisterSubSystem registers a new subsystem logger, should be called in a global variable,
// returns the existing one if the subsystem is already registered
func RegisterSubSystem(subsystem string) *Logger {
	subsystemLoggersLock.Lock()
	defer subsystemLoggersLock.Unlock()
	logger, exists := subsystemLoggers[subsystem]
	if !exists {
		logger = BackendLog.Logger(subsystem)
		subsystemLoggers[subsystem] = logger
	}
	return logger
}

// InitLog attaches log file and error log file to the backend log.
func InitLog(logFile, errLogFile string) {
	err := BackendLog.AddLogFile(logFile, LevelTrace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s", logFile, LevelTrace, err)
		os.Exit(1)
	}
	err = BackendLog.AddLogFile(errLogFile, LevelWarn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s as log rotator for level %s: %s", errLogFile, LevelWarn, err)
		os.Exit(1)
	}
	err = BackendLog.AddLogWriter(os.Stdout, LevelInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding stdout to the loggerfor level %s: %s", LevelWarn, err)
		os.Exit(1)
	}
	err = BackendLog.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting the logger: %s ", err)
		os.Exit(1)
	}
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	subsystemLoggersLock.Lock()
	defer subsystemLoggersLock.Unlock()

	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// SetLogLevel sets the logging level for provided subsystem. Invalid
// subsystems are ignored. Uninitialized subsystems are dynamically created as
// needed.
func SetLogLevel(subsystemID string, logLevel string) error {
	subsystemLoggersLock.Lock()
	defer subsystemLoggersLock.Unlock()

	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return errors.Errorf("'%s' Isn't a valid subsystem", subsystemID)
	}
	level, err := ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	return nil
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func SetLogLevels(logLevel string) error {
	level, err := ParseLevel(logLevel)
	if err != nil {
		return err
	}

	subsystemLoggersLock.Lock()
	defer subsystemLoggersLock.Unlock()
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
	return nil
}

// ParseAndSetLogLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid. The level string is either a single level applied to every
// subsystem, or a comma-separated list of subsystem=level pairs.
func ParseAndSetLogLevels(debugLevel string) error {
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		return SetLogLevels(debugLevel)
	}

	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return errors.Errorf("the specified debug level contains an invalid "+
				"subsystem/level pair [%s]", logLevelPair)
		}
		fields := strings.Split(logLevelPair, "=")
		err := SetLogLevel(fields[0], fields[1])
		if err != nil {
			return err
		}
	}
	return nil
}
