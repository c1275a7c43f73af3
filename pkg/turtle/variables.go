package turtle

import "sort"

// Variables is the single global namespace of a program run.
type Variables struct {
	values map[string]float64
}

// NewVariables returns an empty store.
func NewVariables() *Variables {
	return &Variables{values: make(map[string]float64)}
}

// Define creates name. Defining an existing name is an error.
func (v *Variables) Define(name string, value float64) error {
	if _, exists := v.values[name]; exists {
		return newError(KindDuplicateDefinition, "variable %q already defined", name)
	}
	v.values[name] = value
	return nil
}

// Set updates an existing variable.
func (v *Variables) Set(name string, value float64) error {
	if _, exists := v.values[name]; !exists {
		return newError(KindUndefinedVariable, "variable %q not defined", name)
	}
	v.values[name] = value
	return nil
}

// Get returns the value of name.
func (v *Variables) Get(name string) (float64, bool) {
	value, ok := v.values[name]
	return value, ok
}

// Resolve returns the value of a variable named tok, or tok parsed as a
// numeric literal. Variables win over literals.
func (v *Variables) Resolve(tok string) (float64, error) {
	if value, ok := v.values[tok]; ok {
		return value, nil
	}
	if value, ok := parseNumber(tok); ok {
		return value, nil
	}
	if identPattern.MatchString(tok) && !IsKeyword(tok) {
		return 0, newError(KindUndefinedVariable, "variable %q not defined", tok)
	}
	return 0, newError(KindInvalidOperand, "%q is not a number or variable", tok)
}

// Names returns the defined names in sorted order.
func (v *Variables) Names() []string {
	names := make([]string, 0, len(v.values))
	for name := range v.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// binding remembers what a transient override replaced.
type binding struct {
	name    string
	value   float64
	defined bool
}

// bind overrides name for the duration of a method call and returns what
// must be restored afterwards.
func (v *Variables) bind(name string, value float64) binding {
	old, defined := v.values[name]
	v.values[name] = value
	return binding{name: name, value: old, defined: defined}
}

// restore undoes bindings in reverse order.
func (v *Variables) restore(bindings []binding) {
	for i := len(bindings) - 1; i >= 0; i-- {
		b := bindings[i]
		if b.defined {
			v.values[b.name] = b.value
		} else {
			delete(v.values, b.name)
		}
	}
}
