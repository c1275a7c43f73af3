package turtle

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestExecuteVariables(t *testing.T) {
	it, _ := newTestInterpreter()
	ctx := context.Background()

	if err := it.Execute(ctx, script("var x 5", "set x 10")); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if v, ok := it.Variable("x"); !ok || v != 10 {
		t.Errorf("Expected x=10, got %v (defined=%v)", v, ok)
	}

	err := it.Execute(ctx, script("set y 1"))
	if !errors.Is(err, ErrUndefinedVariable) {
		t.Errorf("Expected UndefinedVariable, got %v", err)
	}

	err = it.Execute(ctx, script("var x 1", "var x 2"))
	if !errors.Is(err, ErrDuplicateDefinition) {
		t.Errorf("Expected DuplicateDefinition, got %v", err)
	}
	var se *ScriptError
	if !errors.As(err, &se) || se.Line != 2 || se.Text != "var x 2" {
		t.Errorf("Expected error on line 2, got %v", err)
	}
}

func TestExecuteResetsBetweenRuns(t *testing.T) {
	it, _ := newTestInterpreter()
	ctx := context.Background()

	if err := it.Execute(ctx, "var x 1\nmoveto 5 5"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := it.Execute(ctx, "var x 2"); err != nil {
		t.Errorf("Second run should start fresh, got %v", err)
	}
	if p := it.Pen().Position; p != (Point{}) {
		t.Errorf("Expected pen reset to origin, got %v", p)
	}

	if err := it.Continue(ctx, "set x 3"); err != nil {
		t.Fatalf("Continue failed: %v", err)
	}
	if v, _ := it.Variable("x"); v != 3 {
		t.Errorf("Expected x=3 after Continue, got %v", v)
	}
}

func TestExecuteDrawing(t *testing.T) {
	it, canvas := newTestInterpreter()

	src := script(
		"# a comment",
		"moveto 10 20",
		"color red",
		"linewidth 2",
		"drawto 30 40",
		"",
		"rectangle 5 6",
		"fill on",
		"circle 7",
		"triangle 0 0 10 0 5 5",
		"textcolor blue",
		"text hello world",
		"rotate 90",
		"reset",
		"clear",
	)
	if err := it.Execute(context.Background(), src); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	expected := []string{
		"line 10 20 30 40 #ff0000 2",
		"rect 30 40 5 6",
		"fillellipse 30 40 7 7",
		"fillpolygon [{0 0} {10 0} {5 5}]",
		"text 30 40 #0000ff hello world",
		"clear #ffffff",
	}
	if got := canvas.drawOps(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Unexpected canvas ops:\n got  %q\n want %q", got, expected)
	}
	// one refresh per drawing command plus the final one
	if canvas.refreshes != len(expected)+1 {
		t.Errorf("Expected %d refreshes, got %d", len(expected)+1, canvas.refreshes)
	}

	pen := it.Pen()
	if pen.Position != (Point{}) || pen.Rotation != 90 || !pen.Fill || pen.Width != 2 {
		t.Errorf("Unexpected pen state %+v", pen)
	}
}

func TestExecuteVariablesAsOperands(t *testing.T) {
	it, canvas := newTestInterpreter()

	src := script("var x 15", "var y x", "moveto x y", "circle x")
	if err := it.Execute(context.Background(), src); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := canvas.drawOps(); len(got) != 1 || got[0] != "ellipse 15 15 15 15" {
		t.Errorf("Unexpected ops %q", got)
	}
}

func TestExecuteIfBlocks(t *testing.T) {
	it, canvas := newTestInterpreter()
	ctx := context.Background()

	if err := it.Continue(ctx, script("var x 5", "if x > 3")); err != nil {
		t.Fatalf("Continue failed: %v", err)
	}
	if !it.Flow().InsideIf {
		t.Fatal("Expected an open if-block after a true condition")
	}
	if err := it.Continue(ctx, "endif"); err != nil {
		t.Fatalf("endif failed: %v", err)
	}
	if it.Flow().InsideIf {
		t.Fatal("Expected endif to close the if-block")
	}

	src := script(
		"var x 5",
		"if x > 30",
		"  var skipped 1",
		"  if x > 1",
		"    circle 1",
		"  endif",
		"  circle 2",
		"endif",
		"circle 3",
	)
	if err := it.Execute(ctx, src); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if _, ok := it.Variable("skipped"); ok {
		t.Error("Skipped block must not have side effects")
	}
	if got := canvas.drawOps(); len(got) != 1 || got[0] != "ellipse 0 0 3 3" {
		t.Errorf("Expected only the circle after the block, got %q", got)
	}
	if it.Flow().InsideIf {
		t.Error("Expected the if-block to be closed after skipping")
	}
}

func TestExecuteIfErrors(t *testing.T) {
	it, _ := newTestInterpreter()
	ctx := context.Background()

	if err := it.Execute(ctx, script("if 1 > 2", "circle 1")); !errors.Is(err, ErrMismatchedBlock) {
		t.Errorf("Expected MismatchedBlock for unterminated false if, got %v", err)
	}
	if err := it.Execute(ctx, "endif"); err != nil {
		t.Errorf("Stray endif should be a no-op, got %v", err)
	}
	if err := it.Execute(ctx, "if 1 ~ 2"); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("Expected UnknownOperator, got %v", err)
	}
}

func TestExecuteLoop(t *testing.T) {
	it, canvas := newTestInterpreter()
	ctx := context.Background()

	src := script("loop", "moveto 1 1", "circle 1", "moveto 2 2", "circle 2", "endloop", "circle 3")
	if err := it.Execute(ctx, src); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	expected := []string{"ellipse 1 1 1 1", "ellipse 2 2 2 2", "ellipse 2 2 3 3"}
	if got := canvas.drawOps(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Loop body should run exactly once in order:\n got  %q\n want %q", got, expected)
	}
	if it.Flow().InsideLoop {
		t.Error("Expected loop to be closed")
	}

	if err := it.Execute(ctx, script("loop", "loop")); !errors.Is(err, ErrNestedBlockNotSupported) {
		t.Errorf("Expected NestedBlockNotSupported, got %v", err)
	}
	if err := it.Execute(ctx, "endloop"); !errors.Is(err, ErrMismatchedBlock) {
		t.Errorf("Expected MismatchedBlock, got %v", err)
	}
	err := it.Execute(ctx, script("circle 1", "loop", "circle 2"))
	var se *ScriptError
	if !errors.Is(err, ErrMismatchedBlock) || !errors.As(err, &se) || se.Line != 2 {
		t.Errorf("Expected MismatchedBlock at the loop line, got %v", err)
	}
}

func TestExecuteLoopBodyErrorNests(t *testing.T) {
	it, _ := newTestInterpreter()

	err := it.Execute(context.Background(), script("loop", "circle 1", "circle r", "endloop"))
	if !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("Expected UndefinedVariable, got %v", err)
	}
	var se *ScriptError
	if !errors.As(err, &se) || se.Line != 4 {
		t.Errorf("Expected outer error at endloop (line 4), got %v", err)
	}
	if line, text := RootLine(err); line != 2 || text != "circle r" {
		t.Errorf("Expected root failure at body line 2, got %d %q", line, text)
	}
}

func TestExecuteMethods(t *testing.T) {
	it, canvas := newTestInterpreter()
	ctx := context.Background()

	src := script(
		"method MyMethod",
		"moveto 100 100",
		"endmethod",
		"MyMethod()",
	)
	if err := it.Execute(ctx, src); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if p := it.Pen().Position; p != (Point{100, 100}) {
		t.Errorf("Expected position (100,100), got %v", p)
	}

	src = script(
		"method DrawSquare size",
		"rectangle size size",
		"endmethod",
		"DrawSquare(50)",
	)
	if err := it.Execute(ctx, src); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := canvas.drawOps(); got[len(got)-1] != "rect 0 0 50 50" {
		t.Errorf("Expected a 50x50 rectangle, got %q", got)
	}
	if _, ok := it.Variable("size"); ok {
		t.Error("Parameter must not leave a global binding")
	}
}

func TestExecuteMethodShadowsGlobal(t *testing.T) {
	it, canvas := newTestInterpreter()

	src := script(
		"var size 7",
		"method Grow size",
		"set size 99",
		"circle size",
		"endmethod",
		"Grow 3",
		"circle size",
	)
	if err := it.Execute(context.Background(), src); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	expected := []string{"ellipse 0 0 99 99", "ellipse 0 0 7 7"}
	if got := canvas.drawOps(); !reflect.DeepEqual(got, expected) {
		t.Errorf("got %q, want %q", got, expected)
	}
	if v, _ := it.Variable("size"); v != 7 {
		t.Errorf("Expected global size restored to 7, got %v", v)
	}
}

func TestExecuteMethodErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		err    error
	}{
		{name: "redefinition", script: script("method m", "endmethod", "method m", "endmethod"), err: ErrDuplicateDefinition},
		{name: "undefined call", script: "nothing()", err: ErrUndefinedMethod},
		{name: "unknown bare word", script: "invalid_command", err: ErrUnknownCommand},
		{name: "arity", script: script("method m a", "endmethod", "m(1, 2)"), err: ErrArityMismatch},
		{name: "zero arity with args", script: script("method m", "endmethod", "m 1"), err: ErrArityMismatch},
		{name: "nested definition", script: script("method a", "method b"), err: ErrNestedBlockNotSupported},
		{name: "stray endmethod", script: "endmethod", err: ErrMismatchedBlock},
		{name: "unterminated", script: script("method a", "circle 1"), err: ErrMismatchedBlock},
		{name: "recursion depth", script: script("method r", "r()", "endmethod", "r()"), err: ErrNestedBlockNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, _ := newTestInterpreter()
			if err := it.Execute(context.Background(), tt.script); !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestExecuteMethodBodyFailureRestoresBindings(t *testing.T) {
	it, _ := newTestInterpreter()
	ctx := context.Background()

	if err := it.Continue(ctx, script("var w 1", "method Bad w", "circle missing", "endmethod")); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := it.Continue(ctx, "Bad(5)"); !errors.Is(err, ErrUndefinedVariable) {
		t.Fatalf("Expected UndefinedVariable, got %v", err)
	}
	if v, _ := it.Variable("w"); v != 1 {
		t.Errorf("Expected w restored to 1, got %v", v)
	}
}

func TestExecuteLoopInsideMethod(t *testing.T) {
	it, canvas := newTestInterpreter()

	src := script(
		"method Row n",
		"loop",
		"circle n",
		"endloop",
		"endmethod",
		"Row(4)",
	)
	if err := it.Execute(context.Background(), src); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got := canvas.drawOps(); len(got) != 1 || got[0] != "ellipse 0 0 4 4" {
		t.Errorf("Unexpected ops %q", got)
	}
}

func TestInvoke(t *testing.T) {
	it, canvas := newTestInterpreter()
	ctx := context.Background()

	if err := it.Continue(ctx, script("method Dot r", "circle r", "endmethod")); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := it.Invoke(ctx, "Dot", 9); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got := canvas.drawOps(); len(got) != 1 || got[0] != "ellipse 0 0 9 9" {
		t.Errorf("Unexpected ops %q", got)
	}
	if err := it.Invoke(ctx, "Dot"); !errors.Is(err, ErrArityMismatch) {
		t.Errorf("Expected ArityMismatch, got %v", err)
	}
	if err := it.Invoke(ctx, "Nope"); !errors.Is(err, ErrUndefinedMethod) {
		t.Errorf("Expected UndefinedMethod, got %v", err)
	}
}

func TestInvokeLineBudgetPerCall(t *testing.T) {
	it, canvas := newTestInterpreter()
	it.SetLimits(Limits{MaxCallDepth: 8, MaxExecutedLines: 5})
	ctx := context.Background()

	if err := it.Continue(ctx, script("method Dot", "circle 1", "endmethod")); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	for i := 0; i < 8; i++ {
		if err := it.Invoke(ctx, "Dot"); err != nil {
			t.Fatalf("Invoke %d failed: %v", i+1, err)
		}
	}
	if got := canvas.drawOps(); len(got) != 8 {
		t.Errorf("Expected 8 ellipses, got %q", got)
	}
}

func TestExecuteFailFast(t *testing.T) {
	it, canvas := newTestInterpreter()

	err := it.Execute(context.Background(), script("circle 1", "bogus 1 2", "circle 2"))
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("Expected UnknownCommand, got %v", err)
	}
	if got := canvas.drawOps(); len(got) != 1 {
		t.Errorf("Nothing after the failing line may run, got %q", got)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected line number in %q", err.Error())
	}
}

func TestExecuteLimitsAndCancel(t *testing.T) {
	it, _ := newTestInterpreter()
	it.SetLimits(Limits{MaxCallDepth: 8, MaxExecutedLines: 3})

	if err := it.Execute(context.Background(), script("circle 1", "circle 1", "circle 1", "circle 1")); !errors.Is(err, ErrLimitExceeded) {
		t.Errorf("Expected LimitExceeded, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := it.Execute(ctx, "circle 1"); !errors.Is(err, ErrCancelled) {
		t.Errorf("Expected Cancelled, got %v", err)
	}
}

func TestExecuteSerializesRuns(t *testing.T) {
	it, _ := newTestInterpreter()
	it.SetLimits(Limits{MaxCallDepth: 8})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := it.Execute(context.Background(), script("var x 1", "loop", "set x 2", "circle x", "endloop")); err != nil {
				t.Errorf("Concurrent Execute failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
