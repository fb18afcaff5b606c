package log

import (
	"fmt"
	"strings"
)

// A verbosity directive is a comma-separated list of module=level pairs.
// The module "*" addresses the default level. Levels are given either by
// name ("debug", "info", ...) or by their first letter; "v" (verbose) is an
// alias for debug. For example:
//
//	*=v,handshake=i
type Directive []DirectiveEntry

type DirectiveEntry struct {
	Module string
	Level  Level
}

// Parse a verbosity directive.
func ParseDirective(s string) (Directive, error) {
	var out Directive

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		tokens := strings.SplitN(part, "=", 2)
		if len(tokens) != 2 {
			return nil, fmt.Errorf("log: malformed directive entry %q", part)
		}

		level, err := ParseLevel(tokens[1])
		if err != nil {
			return nil, err
		}

		module := strings.TrimSpace(tokens[0])
		if module == "*" {
			module = ""
		}
		out = append(out, DirectiveEntry{Module: module, Level: level})
	}

	return out, nil
}

// Apply directive entries in order. Default level entries are applied first
// so that module specific overrides always win.
func (d Directive) Apply() {
	for _, e := range d {
		if e.Module == "" {
			SetLevel(e.Level)
		}
	}
	for _, e := range d {
		if e.Module != "" {
			SetModuleLevel(e.Module, e.Level)
		}
	}
}

func (d Directive) String() string {
	parts := make([]string, 0, len(d))
	for _, e := range d {
		module := e.Module
		if module == "" {
			module = "*"
		}
		parts = append(parts, module+"="+e.Level.String())
	}
	return strings.Join(parts, ",")
}

// Parse a level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v", "verbose", "d", "debug":
		return Debug, nil
	case "i", "info":
		return Info, nil
	case "n", "notice":
		return Notice, nil
	case "w", "warn", "warning":
		return Warning, nil
	case "e", "error":
		return Error, nil
	}
	return Notice, fmt.Errorf("log: unknown level %q", s)
}

func (level Level) String() string {
	switch level {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "notice"
}
