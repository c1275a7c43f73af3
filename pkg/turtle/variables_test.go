package turtle

import (
	"errors"
	"testing"
)

func TestVariablesDefineAndSet(t *testing.T) {
	vars := NewVariables()

	if err := vars.Define("x", 5); err != nil {
		t.Fatalf("Define failed: %v", err)
	}
	if v, ok := vars.Get("x"); !ok || v != 5 {
		t.Errorf("Expected x=5, got %v (defined=%v)", v, ok)
	}

	if err := vars.Set("x", 10); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := vars.Get("x"); v != 10 {
		t.Errorf("Expected x=10 after set, got %v", v)
	}

	if err := vars.Define("x", 1); !errors.Is(err, ErrDuplicateDefinition) {
		t.Errorf("Expected DuplicateDefinition, got %v", err)
	}
	if err := vars.Set("y", 1); !errors.Is(err, ErrUndefinedVariable) {
		t.Errorf("Expected UndefinedVariable, got %v", err)
	}
}

func TestVariablesResolve(t *testing.T) {
	vars := NewVariables()
	vars.Define("size", 42)

	tests := []struct {
		name     string
		token    string
		expected float64
		kind     ErrorKind
	}{
		{name: "variable", token: "size", expected: 42},
		{name: "integer literal", token: "7", expected: 7},
		{name: "negative float literal", token: "-2.5", expected: -2.5},
		{name: "unknown identifier", token: "width", kind: KindUndefinedVariable},
		{name: "garbage", token: "12abc!", kind: KindInvalidOperand},
		{name: "not a number", token: "NaN", kind: KindUndefinedVariable},
		{name: "infinity symbol", token: "+Inf", kind: KindInvalidOperand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := vars.Resolve(tt.token)
			if tt.kind != KindNone {
				if KindOf(err) != tt.kind {
					t.Errorf("Resolve(%q): expected %v, got %v", tt.token, tt.kind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.token, err)
			}
			if v != tt.expected {
				t.Errorf("Resolve(%q) = %v, want %v", tt.token, v, tt.expected)
			}
		})
	}
}

func TestVariablesBindRestore(t *testing.T) {
	vars := NewVariables()
	vars.Define("a", 1)

	b1 := vars.bind("a", 100)
	b2 := vars.bind("b", 200)
	if v, _ := vars.Get("a"); v != 100 {
		t.Errorf("Expected bound a=100, got %v", v)
	}
	vars.restore([]binding{b1, b2})

	if v, _ := vars.Get("a"); v != 1 {
		t.Errorf("Expected a restored to 1, got %v", v)
	}
	if _, ok := vars.Get("b"); ok {
		t.Error("Expected b to be removed after restore")
	}
}
