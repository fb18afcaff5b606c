package xr

import (
	"strings"

	"github.com/achilleasa/mirage/log"
)

var logger = log.New("xr")

type DebugSeverity uint8

const (
	SeverityVerbose DebugSeverity = 1 << iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

type DebugType uint8

const (
	TypeGeneral DebugType = 1 << iota
	TypeValidation
	TypePerformance
	TypeConformance
)

// Return a comma separated tag list for the type bits, for example
// "GEN,VAL".
func (t DebugType) String() string {
	var tags []string
	if t&TypeGeneral != 0 {
		tags = append(tags, "GEN")
	}
	if t&TypeValidation != 0 {
		tags = append(tags, "VAL")
	}
	if t&TypePerformance != 0 {
		tags = append(tags, "PERF")
	}
	if t&TypeConformance != 0 {
		tags = append(tags, "CONF")
	}
	return strings.Join(tags, ",")
}

type DebugMessage struct {
	Severity DebugSeverity
	Type     DebugType
	Function string
	Message  string
}

// DebugCallback receives runtime debug messages.
type DebugCallback func(DebugMessage)

// Map a debug message severity to a log level.
func (s DebugSeverity) Level() log.Level {
	switch {
	case s&SeverityError != 0:
		return log.Error
	case s&SeverityWarning != 0:
		return log.Warning
	}
	return log.Info
}

// LogDebugMessage forwards a runtime debug message to the xr logger.
func LogDebugMessage(msg DebugMessage) {
	switch msg.Severity.Level() {
	case log.Error:
		logger.Errorf("[%s] %s: %s", msg.Type, msg.Function, msg.Message)
	case log.Warning:
		logger.Warningf("[%s] %s: %s", msg.Type, msg.Function, msg.Message)
	default:
		logger.Infof("[%s] %s: %s", msg.Type, msg.Function, msg.Message)
	}
}
