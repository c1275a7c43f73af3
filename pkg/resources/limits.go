package resources

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antibyte/turtleterm/pkg/configuration"
)

var (
	ErrScriptTooLarge = errors.New("script too large")
	ErrLineTooLong    = errors.New("line too long")
)

// ScriptLimits bound the size of submitted scripts. Zero disables a check.
type ScriptLimits struct {
	MaxLines      int
	MaxLineLength int
}

// DefaultScriptLimits reads max_script_lines and max_line_length from
// [Interpreter].
func DefaultScriptLimits() ScriptLimits {
	return ScriptLimits{
		MaxLines:      configuration.GetInt("Interpreter", "max_script_lines", 2000),
		MaxLineLength: configuration.GetInt("Interpreter", "max_line_length", 256),
	}
}

// Check rejects scripts exceeding the limits.
func (l ScriptLimits) Check(script string) error {
	lines := strings.Split(strings.ReplaceAll(script, "\r\n", "\n"), "\n")
	if l.MaxLines > 0 && len(lines) > l.MaxLines {
		return fmt.Errorf("%w: %d lines, at most %d allowed", ErrScriptTooLarge, len(lines), l.MaxLines)
	}
	if l.MaxLineLength > 0 {
		for i, line := range lines {
			if len(line) > l.MaxLineLength {
				return fmt.Errorf("%w: line %d has %d characters, at most %d allowed",
					ErrLineTooLong, i+1, len(line), l.MaxLineLength)
			}
		}
	}
	return nil
}
