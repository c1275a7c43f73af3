package turtle

import (
	"context"
	"strings"
	"sync"

	"github.com/antibyte/turtleterm/pkg/configuration"
	"github.com/antibyte/turtleterm/pkg/logger"
)

// Limits bound the work a single run may do.
type Limits struct {
	MaxCallDepth     int // nested method calls
	MaxExecutedLines int // lines executed per run, 0 = unlimited
}

// DefaultLimits reads the [Interpreter] section of the configuration.
func DefaultLimits() Limits {
	return Limits{
		MaxCallDepth:     configuration.GetInt("Interpreter", "max_call_depth", 32),
		MaxExecutedLines: configuration.GetInt("Interpreter", "max_executed_lines", 100000),
	}
}

// Interpreter executes scripts against a Canvas. All state belongs to the
// instance; one script runs at a time per instance.
type Interpreter struct {
	mu        sync.Mutex
	canvas    Canvas
	vars      *Variables
	eval      *Evaluator
	methods   *Methods
	flow      Tracker
	pen       PenState
	limits    Limits
	executed  int
	sessionID string
}

// NewInterpreter creates an interpreter drawing onto canvas.
func NewInterpreter(canvas Canvas) *Interpreter {
	it := &Interpreter{
		canvas: canvas,
		limits: DefaultLimits(),
	}
	it.resetState()
	return it
}

// SetLimits replaces the run limits.
func (it *Interpreter) SetLimits(l Limits) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.limits = l
}

// SetSessionID tags log output with the owning session.
func (it *Interpreter) SetSessionID(id string) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.sessionID = id
}

func (it *Interpreter) resetState() {
	it.vars = NewVariables()
	it.eval = NewEvaluator(it.vars)
	it.methods = NewMethods()
	it.flow.Reset()
	it.pen = DefaultPenState()
}

// Reset discards variables, methods, flow and pen state.
func (it *Interpreter) Reset() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.resetState()
}

// Execute runs script as a fresh program: all state is reset first. The
// first failing line aborts the run and is returned as a *ScriptError.
func (it *Interpreter) Execute(ctx context.Context, script string) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.resetState()
	return it.run(ctx, script)
}

// Continue runs script on top of the existing state, like direct-mode input.
func (it *Interpreter) Continue(ctx context.Context, script string) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.run(ctx, script)
}

func (it *Interpreter) run(ctx context.Context, script string) error {
	it.executed = 0
	lines := splitLines(script)
	logger.Debug(logger.AreaInterpreter, "session %s: running %d lines", it.sessionID, len(lines))

	if err := it.runBlock(ctx, lines, 0); err != nil {
		logger.Debug(logger.AreaInterpreter, "session %s: run aborted: %v", it.sessionID, err)
		return err
	}
	it.canvas.Refresh()
	return nil
}

// Invoke calls a defined method with numeric arguments. Each call gets
// its own line budget.
func (it *Interpreter) Invoke(ctx context.Context, name string, args ...float64) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.executed = 0
	if err := it.invoke(ctx, name, args, 0); err != nil {
		return err
	}
	it.canvas.Refresh()
	return nil
}

// Pen returns the current drawing state.
func (it *Interpreter) Pen() PenState {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.pen
}

// Variable returns the value of a global variable.
func (it *Interpreter) Variable(name string) (float64, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.vars.Get(name)
}

// VariableNames lists defined variables.
func (it *Interpreter) VariableNames() []string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.vars.Names()
}

// HasMethod reports whether a method is defined.
func (it *Interpreter) HasMethod(name string) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.methods.Has(name)
}

// MethodNames lists defined methods.
func (it *Interpreter) MethodNames() []string {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.methods.Names()
}

// MethodArities maps defined methods to their parameter counts.
func (it *Interpreter) MethodArities() map[string]int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.methods.Arities()
}

// Flow returns the control-flow flags.
func (it *Interpreter) Flow() FlowState {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.flow.State()
}

// runBlock executes lines once, top to bottom. Any capture opened inside
// the block must also be closed inside it.
func (it *Interpreter) runBlock(ctx context.Context, lines []string, depth int) error {
	openedAt := -1
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if isBlank(line) {
			continue
		}
		if err := ctx.Err(); err != nil {
			it.flow.Reset()
			return &ScriptError{Line: i + 1, Text: line, Err: newError(KindCancelled, "%v", err)}
		}
		it.executed++
		if it.limits.MaxExecutedLines > 0 && it.executed > it.limits.MaxExecutedLines {
			it.flow.Reset()
			return &ScriptError{Line: i + 1, Text: line, Err: newError(KindLimitExceeded, "more than %d lines executed", it.limits.MaxExecutedLines)}
		}

		wasCapturing := it.flow.Capturing()
		next, err := it.step(ctx, lines, i, depth)
		if err != nil {
			it.flow.Reset()
			return &ScriptError{Line: i + 1, Text: line, Err: err}
		}
		if !wasCapturing && it.flow.Capturing() {
			openedAt = i
		}
		i = next
	}

	if it.flow.Capturing() {
		state := it.flow.State()
		it.flow.Reset()
		err := newError(KindMismatchedBlock, "loop without endloop")
		if state.InsideMethod {
			err = newError(KindMismatchedBlock, "method %q without endmethod", state.MethodName)
		}
		return &ScriptError{Line: openedAt + 1, Text: strings.TrimSpace(lines[openedAt]), Err: err}
	}
	return nil
}

// step handles the line at index i and returns the index of the last line
// it consumed.
func (it *Interpreter) step(ctx context.Context, lines []string, i int, depth int) (int, error) {
	line := strings.TrimSpace(lines[i])
	if it.flow.Capturing() {
		terminator, err := it.flow.intercept(line)
		if err != nil || !terminator {
			return i, err
		}
		return i, it.closeCapture(ctx, depth)
	}

	cmd, err := ParseLine(line)
	if err != nil {
		return i, err
	}
	return it.dispatch(ctx, cmd, lines, i, depth)
}

func (it *Interpreter) closeCapture(ctx context.Context, depth int) error {
	if it.flow.State().InsideLoop {
		body, err := it.flow.EndLoop()
		if err != nil {
			return err
		}
		return it.runBlock(ctx, body, depth)
	}
	name, params, body, err := it.flow.EndMethod()
	if err != nil {
		return err
	}
	if err := it.methods.Define(name, params, body); err != nil {
		return err
	}
	logger.Debug(logger.AreaInterpreter, "session %s: method %s(%s) defined with %d lines",
		it.sessionID, name, strings.Join(params, ", "), len(body))
	return nil
}

// dispatch executes a parsed command outside of any capture.
func (it *Interpreter) dispatch(ctx context.Context, cmd Command, lines []string, i int, depth int) (int, error) {
	switch c := cmd.(type) {
	case MoveTo:
		return i, it.cmdMoveTo(c)
	case DrawTo:
		return i, it.cmdDrawTo(c)
	case Rectangle:
		return i, it.cmdRectangle(c.W, c.H)
	case Square:
		return i, it.cmdRectangle(c.Size, c.Size)
	case Circle:
		return i, it.cmdCircle(c)
	case Triangle:
		return i, it.cmdTriangle(c)
	case SetColor:
		it.pen.Color = c.Color
		return i, nil
	case TextColor:
		it.pen.TextColor = c.Color
		return i, nil
	case Reset:
		it.pen.Position = Point{}
		it.canvas.MoveCursor(it.pen.Position)
		return i, nil
	case Fill:
		it.pen.Fill = c.On
		return i, nil
	case LineWidth:
		return i, it.cmdLineWidth(c)
	case Rotate:
		return i, it.cmdRotate(c)
	case Text:
		it.canvas.DrawText(c.Text, it.pen.Position, it.pen.TextColor)
		it.canvas.Refresh()
		return i, nil
	case Clear:
		it.canvas.Clear(White)
		it.pen.Position = Point{}
		it.canvas.MoveCursor(it.pen.Position)
		it.canvas.Refresh()
		return i, nil
	case VarDef:
		v, err := it.eval.Value(c.Value)
		if err != nil {
			return i, err
		}
		return i, it.vars.Define(c.Name, v)
	case VarSet:
		v, err := it.eval.Value(c.Value)
		if err != nil {
			return i, err
		}
		return i, it.vars.Set(c.Name, v)
	case If:
		ok, err := it.eval.EvaluateCondition(c.Condition)
		if err != nil {
			return i, err
		}
		if ok {
			it.flow.EnterIf()
			return i, nil
		}
		return skipIfBlock(lines, i+1)
	case EndIf:
		it.flow.ExitIf()
		return i, nil
	case Loop:
		return i, it.flow.BeginLoop()
	case EndLoop:
		_, err := it.flow.EndLoop()
		return i, err
	case MethodDef:
		return i, it.flow.BeginMethod(c.Name, c.Params)
	case EndMethod:
		_, _, _, err := it.flow.EndMethod()
		return i, err
	case Call:
		return i, it.cmdCall(ctx, c, depth)
	}
	return i, newError(KindUnknownCommand, "unknown command %q", cmd.Keyword())
}

func (it *Interpreter) cmdCall(ctx context.Context, c Call, depth int) error {
	if !it.methods.Has(c.Name) {
		if c.Bare {
			return newError(KindUnknownCommand, "unknown command %q", c.Name)
		}
		return newError(KindUndefinedMethod, "method %q not defined", c.Name)
	}
	args, err := it.eval.Values(c.Args...)
	if err != nil {
		return err
	}
	return it.invoke(ctx, c.Name, args, depth)
}

// invoke binds parameters as transient overrides, runs the body and
// restores whatever the parameters shadowed, also on failure.
func (it *Interpreter) invoke(ctx context.Context, name string, args []float64, depth int) error {
	params, body, err := it.methods.Lookup(name)
	if err != nil {
		return err
	}
	if err := checkArity(name, params, len(args)); err != nil {
		return err
	}
	if it.limits.MaxCallDepth > 0 && depth+1 > it.limits.MaxCallDepth {
		return newError(KindNestedBlockNotSupported, "method calls nested deeper than %d", it.limits.MaxCallDepth)
	}

	bindings := make([]binding, len(params))
	for i, p := range params {
		bindings[i] = it.vars.bind(p, args[i])
	}
	defer it.vars.restore(bindings)

	return it.runBlock(ctx, body, depth+1)
}
