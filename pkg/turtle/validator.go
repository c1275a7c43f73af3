package turtle

import (
	"errors"
	"strings"
)

// ValidationResult reports the first line that failed a static check.
type ValidationResult struct {
	OK         bool      `json:"ok"`
	LineNumber int       `json:"line,omitempty"`
	Line       string    `json:"text,omitempty"`
	Kind       ErrorKind `json:"-"`
	KindName   string    `json:"kind,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	UsageHint  string    `json:"usage,omitempty"`
}

func failed(lineNo int, line string, err error) ValidationResult {
	kind := KindOf(err)
	res := ValidationResult{LineNumber: lineNo, Line: line, Kind: kind, KindName: kind.String(), Reason: err.Error()}
	var te *Error
	if errors.As(err, &te) {
		res.UsageHint = te.UsageHint
	}
	return res
}

// Validate checks the shape of every line of script without executing
// anything: keywords, argument counts and types, conditions, block
// balance and calls to methods defined in the same script. Variables are
// not checked since their values only exist at run time.
func Validate(script string) ValidationResult {
	return ValidateWith(script, nil)
}

// ValidateWith is Validate for a script that continues an earlier run.
// known maps methods that are already defined to their parameter count;
// definitions in script take precedence.
func ValidateWith(script string, known map[string]int) ValidationResult {
	lines := splitLines(script)

	// Calls may only target known methods or methods defined in this script.
	arity := make(map[string]int, len(known))
	for name, n := range known {
		arity[name] = n
	}
	for _, raw := range lines {
		if firstKeyword(raw) != "method" {
			continue
		}
		if cmd, err := ParseLine(raw); err == nil {
			if def, ok := cmd.(MethodDef); ok {
				arity[def.Name] = len(def.Params)
			}
		}
	}

	var open []captureKind
	openAt := make([]int, 0, 2)
	contains := func(k captureKind) bool {
		for _, o := range open {
			if o == k {
				return true
			}
		}
		return false
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if isBlank(line) {
			continue
		}
		lineNo := i + 1

		cmd, err := ParseLine(line)
		if err != nil {
			return failed(lineNo, line, err)
		}

		switch c := cmd.(type) {
		case Loop:
			if contains(captureLoop) {
				return failed(lineNo, line, newError(KindNestedBlockNotSupported, "loop inside loop"))
			}
			open = append(open, captureLoop)
			openAt = append(openAt, lineNo)
		case MethodDef:
			if contains(captureMethod) {
				return failed(lineNo, line, newError(KindNestedBlockNotSupported, "method inside method"))
			}
			open = append(open, captureMethod)
			openAt = append(openAt, lineNo)
		case EndLoop:
			if len(open) == 0 || open[len(open)-1] != captureLoop {
				return failed(lineNo, line, newError(KindMismatchedBlock, "endloop without loop"))
			}
			open, openAt = open[:len(open)-1], openAt[:len(openAt)-1]
		case EndMethod:
			if len(open) == 0 || open[len(open)-1] != captureMethod {
				return failed(lineNo, line, newError(KindMismatchedBlock, "endmethod without method"))
			}
			open, openAt = open[:len(open)-1], openAt[:len(openAt)-1]
		case If:
			if _, err := skipIfBlock(lines, i+1); err != nil {
				return failed(lineNo, line, err)
			}
		case Call:
			n, known := arity[c.Name]
			if !known {
				if c.Bare {
					return failed(lineNo, line, newError(KindUnknownCommand, "unknown command %q", c.Name))
				}
				return failed(lineNo, line, newError(KindUndefinedMethod, "method %q not defined", c.Name))
			}
			if n != len(c.Args) {
				return failed(lineNo, line, newError(KindArityMismatch, "method %q expects %d argument(s), got %d", c.Name, n, len(c.Args)))
			}
		}
	}

	if len(open) > 0 {
		at := openAt[len(openAt)-1]
		line := strings.TrimSpace(lines[at-1])
		if open[len(open)-1] == captureLoop {
			return failed(at, line, newError(KindMismatchedBlock, "loop without endloop"))
		}
		return failed(at, line, newError(KindMismatchedBlock, "method without endmethod"))
	}
	return ValidationResult{OK: true}
}
