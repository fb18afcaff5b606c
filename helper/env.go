package helper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/achilleasa/mirage/config"
)

// Environment variables understood by the helper.
const (
	EnvLibraryPath = "LD_LIBRARY_PATH"
	EnvNodesPath   = "MIRAGE_NODES_PATH"
	EnvLockPath    = "MIRAGE_LOCK_PATH"
	EnvHostIDPath  = "MIRAGE_HOST_ID_PATH"
	EnvDriverPath  = "MIRAGE_DRIVER_PATH"
	EnvLogLevel    = "MIRAGE_LOG_LEVEL"
	EnvLogLineBuf  = "MIRAGE_LOG_LINEBUF"
)

// Environment is the complete environment the helper is started with. The
// compositor's own environment is not inherited.
type Environment struct {
	LibraryPath  string
	NodesPath    string
	LockPath     string
	HostIDPath   string
	DriverPath   string
	Verbosity    string
	LineBuffered bool
}

// EnvironmentFromConfig copies the helper section of the config.
func EnvironmentFromConfig(c config.Helper) Environment {
	return Environment{
		LibraryPath:  c.LibraryPath,
		NodesPath:    c.NodesPath,
		LockPath:     c.LockPath,
		HostIDPath:   c.HostIDPath,
		DriverPath:   c.DriverPath,
		Verbosity:    c.Verbosity,
		LineBuffered: c.LineBuffered,
	}
}

// Vars returns the environment as KEY=value pairs. Unset values are
// omitted.
func (e Environment) Vars() []string {
	var vars []string
	add := func(key, val string) {
		if val != "" {
			vars = append(vars, key+"="+val)
		}
	}

	add(EnvLibraryPath, e.LibraryPath)
	add(EnvLogLevel, e.Verbosity)
	if e.LineBuffered {
		add(EnvLogLineBuf, "true")
	}
	add(EnvNodesPath, e.NodesPath)
	add(EnvLockPath, e.LockPath)
	add(EnvHostIDPath, e.HostIDPath)
	add(EnvDriverPath, e.DriverPath)
	return vars
}

// Prepare creates the directories that hold the helper's state files.
func (e Environment) Prepare() error {
	for _, path := range []string{e.NodesPath, e.LockPath, e.HostIDPath} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("helper: could not create state dir for %s: %w", path, err)
		}
	}
	return nil
}
