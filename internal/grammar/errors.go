package grammar

import "fmt"

// ConfigError is returned for grammars that cannot be used for scanning:
// syntax errors, undefined symbols, invalid patterns and automaton conflicts.
// It is always reported at compile time, never while matching.
type ConfigError struct {
	Line int // grammar source line, 0 when not tied to one
	Msg  string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("grammar line %d: %s", e.Line, e.Msg)
	}
	return "grammar: " + e.Msg
}

func configErrorf(line int, format string, args ...any) *ConfigError {
	return &ConfigError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
