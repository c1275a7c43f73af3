package turtle

type compareOp string

const (
	opGreater      compareOp = ">"
	opGreaterEqual compareOp = ">="
	opLess         compareOp = "<"
	opLessEqual    compareOp = "<="
	opEqual        compareOp = "=="
	opNotEqual     compareOp = "!="
)

func (op compareOp) valid() bool {
	switch op {
	case opGreater, opGreaterEqual, opLess, opLessEqual, opEqual, opNotEqual:
		return true
	}
	return false
}

// apply compares with plain IEEE-754 semantics. == and != are exact, so
// values produced by arithmetic elsewhere may not compare equal.
func (op compareOp) apply(lhs, rhs float64) bool {
	switch op {
	case opGreater:
		return lhs > rhs
	case opGreaterEqual:
		return lhs >= rhs
	case opLess:
		return lhs < rhs
	case opLessEqual:
		return lhs <= rhs
	case opEqual:
		return lhs == rhs
	case opNotEqual:
		return lhs != rhs
	}
	return false
}

// Evaluator resolves operands and conditions against a variable store.
type Evaluator struct {
	vars *Variables
}

// NewEvaluator binds an evaluator to vars.
func NewEvaluator(vars *Variables) *Evaluator {
	return &Evaluator{vars: vars}
}

// Value resolves a single operand.
func (e *Evaluator) Value(op Operand) (float64, error) {
	return e.vars.Resolve(string(op))
}

// Values resolves operands in order, stopping at the first failure.
func (e *Evaluator) Values(ops ...Operand) ([]float64, error) {
	out := make([]float64, len(ops))
	for i, op := range ops {
		v, err := e.Value(op)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EvaluateCondition evaluates "<lhs> <op> <rhs>".
func (e *Evaluator) EvaluateCondition(text string) (bool, error) {
	lhsTok, op, rhsTok, err := parseCondition(text)
	if err != nil {
		return false, err
	}
	lhs, err := e.vars.Resolve(lhsTok)
	if err != nil {
		return false, err
	}
	rhs, err := e.vars.Resolve(rhsTok)
	if err != nil {
		return false, err
	}
	return op.apply(lhs, rhs), nil
}
