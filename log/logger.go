package log

import (
	"io"
	"os"
	"sync"

	"github.com/op/go-logging"
)

type Level logging.Level

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

// The logger format
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	// Guards leveledBackend; SetSink may race with module level updates
	// coming from the config loader.
	backendMu sync.Mutex

	// The internal leveled logger backend
	leveledBackend logging.LeveledBackend
)

// The logger interface
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// Create a new named logger.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// Override the backend output sink. Module levels are reset to Notice.
func SetSink(sink io.Writer) {
	backendMu.Lock()
	defer backendMu.Unlock()

	backend := logging.NewLogBackend(sink, "", 0)
	backendWithFormatter := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(backendWithFormatter)
	leveledBackend.SetLevel(logging.NOTICE, "")
	logging.SetBackend(leveledBackend)
}

// Set logger verbosity for all modules.
func SetLevel(level Level) {
	SetModuleLevel("", level)
}

// Set logger verbosity for a single module. An empty module name
// sets the default level.
func SetModuleLevel(module string, level Level) {
	backendMu.Lock()
	defer backendMu.Unlock()

	leveledBackend.SetLevel(level.backendLevel(), module)
}

// Check whether a message with the given level would be emitted for module.
func IsEnabled(module string, level Level) bool {
	backendMu.Lock()
	defer backendMu.Unlock()

	return leveledBackend.IsEnabledFor(level.backendLevel(), module)
}

func (level Level) backendLevel() logging.Level {
	switch level {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	}
	return logging.NOTICE
}

func init() {
	SetSink(os.Stdout)
	SetLevel(Notice)
}
