package turtle

// captureKind names the block whose body is being collected.
type captureKind int

const (
	captureNone captureKind = iota
	captureLoop
	captureMethod
)

// FlowState is a snapshot of the control-flow flags.
type FlowState struct {
	InsideIf     bool
	InsideLoop   bool
	InsideMethod bool
	MethodName   string
}

// Tracker holds the if/loop/method state of a run. While a capture is open
// lines are buffered instead of executed.
type Tracker struct {
	insideIf     bool
	capture      captureKind
	methodName   string
	methodParams []string
	buffer       []string
}

// State returns the current flags.
func (t *Tracker) State() FlowState {
	return FlowState{
		InsideIf:     t.insideIf,
		InsideLoop:   t.capture == captureLoop,
		InsideMethod: t.capture == captureMethod,
		MethodName:   t.methodName,
	}
}

// Capturing reports whether lines are being buffered.
func (t *Tracker) Capturing() bool { return t.capture != captureNone }

// EnterIf marks an if-block whose condition held.
func (t *Tracker) EnterIf() { t.insideIf = true }

// ExitIf clears the if flag. Outside an if-block this is a no-op.
func (t *Tracker) ExitIf() { t.insideIf = false }

// BeginLoop opens a loop capture.
func (t *Tracker) BeginLoop() error {
	switch t.capture {
	case captureLoop:
		return newError(KindNestedBlockNotSupported, "loop inside loop")
	case captureMethod:
		return newError(KindNestedBlockNotSupported, "loop opened while method %q is being defined", t.methodName)
	}
	t.capture = captureLoop
	t.buffer = t.buffer[:0]
	return nil
}

// EndLoop closes the loop capture and hands back its body for replay.
func (t *Tracker) EndLoop() ([]string, error) {
	if t.capture != captureLoop {
		return nil, newError(KindMismatchedBlock, "endloop without loop")
	}
	body := append([]string(nil), t.buffer...)
	t.reset()
	return body, nil
}

// BeginMethod opens a method capture.
func (t *Tracker) BeginMethod(name string, params []string) error {
	switch t.capture {
	case captureMethod:
		return newError(KindNestedBlockNotSupported, "method %q opened inside method %q", name, t.methodName)
	case captureLoop:
		return newError(KindNestedBlockNotSupported, "method %q opened inside loop", name)
	}
	t.capture = captureMethod
	t.methodName = name
	t.methodParams = append([]string(nil), params...)
	t.buffer = t.buffer[:0]
	return nil
}

// EndMethod closes the method capture and returns the collected definition.
func (t *Tracker) EndMethod() (string, []string, []string, error) {
	if t.capture != captureMethod {
		return "", nil, nil, newError(KindMismatchedBlock, "endmethod without method")
	}
	name, params := t.methodName, t.methodParams
	body := append([]string(nil), t.buffer...)
	t.reset()
	return name, params, body, nil
}

// Capture appends a raw line to the open body.
func (t *Tracker) Capture(line string) {
	t.buffer = append(t.buffer, line)
}

// intercept decides what happens to a line while a capture is open. It
// reports whether the line terminates the capture; any other line is
// buffered, except an opener of the same kind, which cannot nest.
func (t *Tracker) intercept(line string) (terminator bool, err error) {
	kw := firstKeyword(line)
	switch t.capture {
	case captureLoop:
		switch kw {
		case "endloop":
			return true, nil
		case "loop":
			return false, newError(KindNestedBlockNotSupported, "loop inside loop")
		}
	case captureMethod:
		switch kw {
		case "endmethod":
			return true, nil
		case "method":
			return false, newError(KindNestedBlockNotSupported, "method inside method %q", t.methodName)
		}
	}
	t.Capture(line)
	return false, nil
}

func (t *Tracker) reset() {
	t.capture = captureNone
	t.methodName = ""
	t.methodParams = nil
	t.buffer = t.buffer[:0]
}

// Reset clears all flow state.
func (t *Tracker) Reset() {
	t.insideIf = false
	t.reset()
}

// skipIfBlock scans lines from start (the line after a false if) for the
// matching endif, counting nested ifs, and returns its index. The scan
// never leaves the given slice.
func skipIfBlock(lines []string, start int) (int, error) {
	depth := 1
	for i := start; i < len(lines); i++ {
		switch firstKeyword(lines[i]) {
		case "if":
			depth++
		case "endif":
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return -1, newError(KindMismatchedBlock, "if without matching endif")
}
