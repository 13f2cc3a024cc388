package logger

import (
	"strings"

	"github.com/pkg/errors"
)

// Level is the level at which a logger is configured. Messages below the
// configured level are dropped.
type Level uint32

// Level constants.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

var levelTags = [...]string{"TRC", "DBG", "INF", "WRN", "ERR", "CRT", "OFF"}

var levelNames = map[string]Level{
	"trace":    LevelTrace,
	"debug":    LevelDebug,
	"info":     LevelInfo,
	"warn":     LevelWarn,
	"error":    LevelError,
	"critical": LevelCritical,
	"off":      LevelOff,
}

// LevelFromString returns the level named s, either by its full name or
// by its three letter tag. Unknown names return LevelInfo and false.
func LevelFromString(s string) (l Level, ok bool) {
	s = strings.ToLower(s)
	if level, ok := levelNames[s]; ok {
		return level, true
	}
	for level, tag := range levelTags {
		if strings.EqualFold(tag, s) {
			return Level(level), true
		}
	}
	return LevelInfo, false
}

// ParseLevel is LevelFromString returning an error for unknown names
func ParseLevel(s string) (Level, error) {
	level, ok := LevelFromString(s)
	if !ok {
		return LevelInfo, errors.Errorf("'%s' Isn't a valid log level", s)
	}
	return level, nil
}

// String returns the tag of the level used in log messages
func (l Level) String() string {
	if l >= LevelOff {
		return "OFF"
	}
	return levelTags[l]
}
