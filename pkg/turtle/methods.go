package turtle

import "sort"

// Method is a named, parameterized sequence of raw script lines.
type Method struct {
	Name   string
	Params []string
	Body   []string
}

// Methods holds every method defined during a run.
type Methods struct {
	defs map[string]*Method
}

// NewMethods returns an empty registry.
func NewMethods() *Methods {
	return &Methods{defs: make(map[string]*Method)}
}

// Define registers a method. Methods are immutable; redefinition fails.
func (m *Methods) Define(name string, params, body []string) error {
	if _, exists := m.defs[name]; exists {
		return newError(KindDuplicateDefinition, "method %q already defined", name)
	}
	m.defs[name] = &Method{
		Name:   name,
		Params: append([]string(nil), params...),
		Body:   append([]string(nil), body...),
	}
	return nil
}

// Lookup returns the parameters and body of name.
func (m *Methods) Lookup(name string) ([]string, []string, error) {
	def, ok := m.defs[name]
	if !ok {
		return nil, nil, newError(KindUndefinedMethod, "method %q not defined", name)
	}
	return def.Params, def.Body, nil
}

// Has reports whether name is defined.
func (m *Methods) Has(name string) bool {
	_, ok := m.defs[name]
	return ok
}

// Names returns the defined method names in sorted order.
func (m *Methods) Names() []string {
	names := make([]string, 0, len(m.defs))
	for name := range m.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Arities maps every defined method to its parameter count.
func (m *Methods) Arities() map[string]int {
	out := make(map[string]int, len(m.defs))
	for name, def := range m.defs {
		out[name] = len(def.Params)
	}
	return out
}

// checkArity validates a call's argument count against the definition.
func checkArity(name string, params []string, got int) error {
	if len(params) != got {
		return newError(KindArityMismatch, "method %q expects %d argument(s), got %d", name, len(params), got)
	}
	return nil
}
