package turtle

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	callPattern  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)$`)
)

// keywords is the set of reserved words, aliases included.
var keywords = map[string]bool{
	"moveto": true, "drawto": true, "rectangle": true, "square": true,
	"circle": true, "triangle": true, "color": true, "pen": true,
	"textcolor": true, "reset": true, "fill": true, "linewidth": true,
	"rotate": true, "text": true, "print": true, "clear": true,
	"var": true, "set": true, "if": true, "endif": true, "loop": true,
	"endloop": true, "method": true, "endmethod": true,
}

// IsKeyword reports whether word (any case) is reserved.
func IsKeyword(word string) bool {
	return keywords[strings.ToLower(word)]
}

// isComment reports whether a trimmed line is a comment.
func isComment(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//")
}

// isBlank reports whether the line carries no command.
func isBlank(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || isComment(line)
}

// splitLines normalises line endings and splits a script into raw lines.
func splitLines(script string) []string {
	script = strings.ReplaceAll(script, "\r\n", "\n")
	script = strings.ReplaceAll(script, "\r", "\n")
	return strings.Split(script, "\n")
}

// firstKeyword returns the lower-cased first token of a line.
func firstKeyword(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// restOfLine returns everything after the first token, keeping inner spacing.
func restOfLine(line string) string {
	line = strings.TrimSpace(line)
	idx := strings.IndexFunc(line, unicode.IsSpace)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(line[idx:])
}

// parseNumber parses a finite float literal.
func parseNumber(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// isOperand reports whether tok can stand where a number is expected.
func isOperand(tok string) bool {
	if _, ok := parseNumber(tok); ok {
		return true
	}
	return identPattern.MatchString(tok) && !IsKeyword(tok)
}

func malformed(keyword, format string, args ...interface{}) *Error {
	return newError(KindMalformedCommand, format, args...).WithCommand(keyword)
}

func operands(keyword string, args []string, want int) ([]Operand, error) {
	if len(args) != want {
		return nil, malformed(keyword, "%s expects %d argument(s), got %d", keyword, want, len(args))
	}
	ops := make([]Operand, want)
	for i, a := range args {
		if !isOperand(a) {
			return nil, malformed(keyword, "%s: %q is not a number or variable", keyword, a)
		}
		ops[i] = Operand(a)
	}
	return ops, nil
}

func colorArg(keyword string, args []string) (Color, error) {
	if len(args) != 1 {
		return Color{}, malformed(keyword, "%s expects 1 argument, got %d", keyword, len(args))
	}
	c, ok := ParseColor(args[0])
	if !ok {
		return Color{}, malformed(keyword, "unknown color %q", args[0])
	}
	return c, nil
}

func noArgs(keyword string, args []string, cmd Command) (Command, error) {
	if len(args) != 0 {
		return nil, malformed(keyword, "%s takes no arguments", keyword)
	}
	return cmd, nil
}

// parseCondition splits an if-condition into its three parts.
func parseCondition(text string) (string, compareOp, string, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return "", "", "", newError(KindMalformedCondition, "condition %q needs <lhs> <op> <rhs>", text)
	}
	op := compareOp(fields[1])
	if !op.valid() {
		return "", "", "", newError(KindUnknownOperator, "unknown operator %q", fields[1])
	}
	for _, side := range []string{fields[0], fields[2]} {
		if !isOperand(side) {
			return "", "", "", newError(KindInvalidOperand, "%q is not a number or variable", side)
		}
	}
	return fields[0], op, fields[2], nil
}

// parseParamList accepts "a b", "a, b" and "(a, b)".
func parseParamList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func parseCall(name, argText string, bare bool) (Command, error) {
	raw := parseParamList(argText)
	args := make([]Operand, len(raw))
	for i, a := range raw {
		if !isOperand(a) {
			if bare {
				return nil, newError(KindUnknownCommand, "unknown command %q", name)
			}
			return nil, malformed(name, "argument %q is not a number or variable", a)
		}
		args[i] = Operand(a)
	}
	return Call{Name: name, Args: args, Bare: bare}, nil
}

func parseMethodDef(rest string) (Command, error) {
	rest = strings.TrimSpace(rest)
	name := rest
	params := ""
	if idx := strings.IndexFunc(rest, func(r rune) bool { return r == '(' || unicode.IsSpace(r) }); idx >= 0 {
		name, params = rest[:idx], rest[idx:]
	}
	if !identPattern.MatchString(name) || IsKeyword(name) {
		return nil, malformed("method", "invalid method name %q", name)
	}
	list := parseParamList(params)
	seen := make(map[string]bool, len(list))
	for _, p := range list {
		if !identPattern.MatchString(p) || IsKeyword(p) {
			return nil, malformed("method", "invalid parameter name %q", p)
		}
		if seen[p] {
			return nil, malformed("method", "duplicate parameter %q", p)
		}
		seen[p] = true
	}
	if list == nil {
		list = []string{}
	}
	return MethodDef{Name: name, Params: list}, nil
}

func parseAssignment(keyword string, args []string) (string, Operand, error) {
	if len(args) != 2 {
		return "", "", malformed(keyword, "%s expects a name and a value", keyword)
	}
	if !identPattern.MatchString(args[0]) || IsKeyword(args[0]) {
		return "", "", malformed(keyword, "invalid variable name %q", args[0])
	}
	if !isOperand(args[1]) {
		return "", "", malformed(keyword, "%q is not a number or variable", args[1])
	}
	return args[0], Operand(args[1]), nil
}

// ParseLine turns one non-blank script line into a Command. Keywords are
// case-insensitive; variable and method names are not.
func ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, newError(KindMalformedCommand, "empty line")
	}

	if m := callPattern.FindStringSubmatch(line); m != nil && !IsKeyword(m[1]) {
		return parseCall(m[1], m[2], false)
	}

	fields := strings.Fields(line)
	keyword := strings.ToLower(fields[0])
	args := fields[1:]

	switch keyword {
	case "moveto":
		ops, err := operands(keyword, args, 2)
		if err != nil {
			return nil, err
		}
		return MoveTo{X: ops[0], Y: ops[1]}, nil
	case "drawto":
		ops, err := operands(keyword, args, 2)
		if err != nil {
			return nil, err
		}
		return DrawTo{X: ops[0], Y: ops[1]}, nil
	case "rectangle":
		ops, err := operands(keyword, args, 2)
		if err != nil {
			return nil, err
		}
		return Rectangle{W: ops[0], H: ops[1]}, nil
	case "square":
		ops, err := operands(keyword, args, 1)
		if err != nil {
			return nil, err
		}
		return Square{Size: ops[0]}, nil
	case "circle":
		ops, err := operands(keyword, args, 1)
		if err != nil {
			return nil, err
		}
		return Circle{R: ops[0]}, nil
	case "triangle":
		ops, err := operands(keyword, args, 6)
		if err != nil {
			return nil, err
		}
		var t Triangle
		copy(t.Coords[:], ops)
		return t, nil
	case "color", "pen":
		c, err := colorArg(keyword, args)
		if err != nil {
			return nil, err
		}
		return SetColor{Color: c}, nil
	case "textcolor":
		c, err := colorArg(keyword, args)
		if err != nil {
			return nil, err
		}
		return TextColor{Color: c}, nil
	case "reset":
		return noArgs(keyword, args, Reset{})
	case "clear":
		return noArgs(keyword, args, Clear{})
	case "fill":
		if len(args) != 1 {
			return nil, malformed(keyword, "fill expects on or off")
		}
		switch strings.ToLower(args[0]) {
		case "on":
			return Fill{On: true}, nil
		case "off":
			return Fill{On: false}, nil
		}
		return nil, malformed(keyword, "fill expects on or off, got %q", args[0])
	case "linewidth":
		ops, err := operands(keyword, args, 1)
		if err != nil {
			return nil, err
		}
		return LineWidth{W: ops[0]}, nil
	case "rotate":
		ops, err := operands(keyword, args, 1)
		if err != nil {
			return nil, err
		}
		return Rotate{Angle: ops[0]}, nil
	case "text", "print":
		rest := restOfLine(line)
		if rest == "" {
			return nil, malformed(keyword, "%s needs something to write", keyword)
		}
		return Text{Text: rest}, nil
	case "var":
		name, value, err := parseAssignment(keyword, args)
		if err != nil {
			return nil, err
		}
		return VarDef{Name: name, Value: value}, nil
	case "set":
		name, value, err := parseAssignment(keyword, args)
		if err != nil {
			return nil, err
		}
		return VarSet{Name: name, Value: value}, nil
	case "if":
		cond := restOfLine(line)
		if _, _, _, err := parseCondition(cond); err != nil {
			return nil, err
		}
		return If{Condition: cond}, nil
	case "endif":
		return noArgs(keyword, args, EndIf{})
	case "loop":
		return noArgs(keyword, args, Loop{})
	case "endloop":
		return noArgs(keyword, args, EndLoop{})
	case "method":
		return parseMethodDef(restOfLine(line))
	case "endmethod":
		return noArgs(keyword, args, EndMethod{})
	}

	if identPattern.MatchString(fields[0]) {
		return parseCall(fields[0], strings.Join(args, " "), true)
	}
	return nil, newError(KindUnknownCommand, "unknown command %q", fields[0])
}
