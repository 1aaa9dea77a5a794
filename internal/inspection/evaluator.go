package inspection

import (
	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// maxEvalDepth turns a pathologically nested campaign document into a
// rejected-evaluation (undefined result) instead of a runaway recursive
// walk.
const maxEvalDepth = 256

// evalRound carries the per-round state threaded through one walk of a
// campaign's AST: which custom functions actually ran (for ConditionEnd),
// and the current timestamp used by window functions.
type evalRound struct {
	now           domain.Timestamp
	invokedThisRound map[InvocationID]string // invocation id -> function name
}

// evaluator walks a compiled campaign AST against live history and the
// custom-function registry. One evaluator is reused across rounds; it
// holds no per-campaign state itself (that lives in history/campaign).
type evaluator struct {
	history  *historyStore
	registry *CustomFuncRegistry
	obs      ports.Observability
}

func newEvaluator(history *historyStore, registry *CustomFuncRegistry, obs ports.Observability) *evaluator {
	return &evaluator{history: history, registry: registry, obs: obs}
}

// evaluate runs the campaign's condition expression and returns its
// boolean activation result (undefined coerces to false in boolean
// context) along with the raw value for diagnostics, plus the set of
// invocation ids that actually ran this round.
func (e *evaluator) evaluate(c *Campaign, now domain.Timestamp) (active bool, raw domain.Value, invoked map[InvocationID]string) {
	round := &evalRound{now: now, invokedThisRound: make(map[InvocationID]string)}
	raw = e.eval(c.Root, round, 0)
	return raw.AsBool() && !raw.IsUndefined(), raw, round.invokedThisRound
}

func (e *evaluator) eval(n *Node, round *evalRound, depth int) domain.Value {
	if n == nil || depth > maxEvalDepth {
		return domain.Undefined
	}

	switch n.Kind {
	case NodeNumberLit:
		return domain.NumValue(n.NumberLit)
	case NodeStringLit:
		return domain.StringValue(n.StringLit)
	case NodeBoolLit:
		return domain.BoolValue(n.BoolLit)
	case NodeSignalRef:
		return e.latestValue(n.Signal)
	case NodeArith:
		return e.evalArith(n, round, depth)
	case NodeCompare:
		return e.evalCompare(n, round, depth)
	case NodeLogical:
		return e.evalLogical(n, round, depth)
	case NodeNot:
		v := e.eval(n.Operand, round, depth+1)
		if v.IsUndefined() {
			return domain.Undefined
		}
		return domain.BoolValue(!v.AsBool())
	case NodeConditional:
		cond := e.eval(n.Cond, round, depth+1)
		if cond.IsUndefined() {
			return domain.Undefined
		}
		if cond.AsBool() {
			return e.eval(n.Then, round, depth+1)
		}
		return e.eval(n.Else, round, depth+1)
	case NodeWindowFunc:
		return e.evalWindow(n, round.now)
	case NodeCustomFunc:
		return e.evalCustomFunc(n, round, depth)
	default:
		return domain.Undefined
	}
}

func (e *evaluator) latestValue(id domain.SignalID) domain.Value {
	if sh, ok := e.history.strings[id]; ok {
		if s, ok := sh.latest(); ok {
			return domain.StringValue(s.str)
		}
		return domain.Undefined
	}
	if nh, ok := e.history.numeric[id]; ok {
		if s, ok := nh.latest(); ok {
			return s.val
		}
	}
	return domain.Undefined
}

func (e *evaluator) evalArith(n *Node, round *evalRound, depth int) domain.Value {
	l := e.eval(n.Left, round, depth+1)
	r := e.eval(n.Right, round, depth+1)
	if l.IsUndefined() || r.IsUndefined() {
		return domain.Undefined
	}
	a, ok1 := l.AsNumber()
	b, ok2 := r.AsNumber()
	if !ok1 || !ok2 {
		e.typeMismatch("arithmetic operand not numeric")
		return domain.Undefined
	}
	switch n.ArithOp {
	case OpAdd:
		return domain.NumValue(a + b)
	case OpSub:
		return domain.NumValue(a - b)
	case OpMul:
		return domain.NumValue(a * b)
	case OpDiv:
		if b == 0 {
			return domain.Undefined
		}
		return domain.NumValue(a / b)
	case OpMod:
		if b == 0 {
			return domain.Undefined
		}
		return domain.NumValue(float64(int64(a) % int64(b)))
	default:
		return domain.Undefined
	}
}

func (e *evaluator) evalCompare(n *Node, round *evalRound, depth int) domain.Value {
	l := e.eval(n.Left, round, depth+1)
	r := e.eval(n.Right, round, depth+1)
	if l.IsUndefined() || r.IsUndefined() {
		return domain.Undefined
	}

	switch n.CompareOp {
	case OpEQ, OpNE:
		eq, ok := l.Equal(r)
		if !ok {
			e.typeMismatch("comparison operand type mismatch")
			return domain.Undefined
		}
		if n.CompareOp == OpNE {
			eq = !eq
		}
		return domain.BoolValue(eq)
	default:
		if l.Kind == domain.KindString || r.Kind == domain.KindString {
			e.typeMismatch("ordered comparison on string operand")
			return domain.Undefined
		}
		a, ok1 := l.AsNumber()
		b, ok2 := r.AsNumber()
		if !ok1 || !ok2 {
			e.typeMismatch("ordered comparison operand not numeric")
			return domain.Undefined
		}
		switch n.CompareOp {
		case OpLT:
			return domain.BoolValue(a < b)
		case OpLE:
			return domain.BoolValue(a <= b)
		case OpGT:
			return domain.BoolValue(a > b)
		case OpGE:
			return domain.BoolValue(a >= b)
		default:
			return domain.Undefined
		}
	}
}

func (e *evaluator) evalLogical(n *Node, round *evalRound, depth int) domain.Value {
	l := e.eval(n.Left, round, depth+1)
	switch n.LogicalOp {
	case OpAnd:
		if !l.IsUndefined() && !l.AsBool() {
			return domain.BoolValue(false) // short-circuit: right not evaluated
		}
	case OpOr:
		if !l.IsUndefined() && l.AsBool() {
			return domain.BoolValue(true) // short-circuit: right not evaluated
		}
	}
	r := e.eval(n.Right, round, depth+1)
	if l.IsUndefined() || r.IsUndefined() {
		return domain.Undefined
	}
	switch n.LogicalOp {
	case OpAnd:
		return domain.BoolValue(l.AsBool() && r.AsBool())
	case OpOr:
		return domain.BoolValue(l.AsBool() || r.AsBool())
	default:
		return domain.Undefined
	}
}

func (e *evaluator) evalWindow(n *Node, now domain.Timestamp) domain.Value {
	h, ok := e.history.numeric[n.Signal]
	if !ok {
		if n.WindowKind == WindowSince {
			return domain.BoolValue(false)
		}
		return domain.Undefined
	}

	switch n.WindowKind {
	case WindowLatest:
		if s, ok := h.latest(); ok {
			return s.val
		}
		return domain.Undefined
	case WindowPrevious:
		if s, ok := h.previous(); ok {
			return s.val
		}
		return domain.Undefined
	case WindowSince:
		return domain.BoolValue(h.sinceSample(domain.Timestamp(n.WindowSpan)))
	case WindowMin, WindowMax, WindowSum, WindowCount, WindowAverage:
		var samples []sample
		if n.WindowSpan > 0 {
			samples = h.windowBySpan(now, n.WindowSpan)
		} else {
			samples = h.windowByCount(n.WindowN)
		}
		switch n.WindowKind {
		case WindowMin:
			if v, ok := rollingMin(samples); ok {
				return domain.NumValue(v)
			}
		case WindowMax:
			if v, ok := rollingMax(samples); ok {
				return domain.NumValue(v)
			}
		case WindowSum:
			v, _ := rollingSum(samples)
			return domain.NumValue(v)
		case WindowCount:
			return domain.NumValue(float64(len(samples)))
		case WindowAverage:
			if v, ok := rollingAverage(samples); ok {
				return domain.NumValue(v)
			}
		}
		return domain.Undefined
	default:
		return domain.Undefined
	}
}

func (e *evaluator) evalCustomFunc(n *Node, round *evalRound, depth int) domain.Value {
	fn, ok := e.registry.Lookup(n.FuncName)
	if !ok {
		e.typeMismatch("unknown custom function " + n.FuncName)
		return domain.Undefined
	}

	args := make([]domain.Value, len(n.Args))
	for i, a := range n.Args {
		args[i] = e.eval(a, round, depth+1)
	}

	status, val := fn.Invoke(n.InvocationID, args)
	round.invokedThisRound[n.InvocationID] = n.FuncName

	switch status {
	case ports.CustomFuncOK:
		return val
	case ports.CustomFuncTypeMismatch:
		e.typeMismatch("custom function " + n.FuncName + " type mismatch")
		return domain.Undefined
	default:
		if e.obs != nil {
			e.obs.LogError("custom_function_runtime_error", nil, ports.Field{Key: "function", Value: n.FuncName})
		}
		return domain.Undefined
	}
}

func (e *evaluator) typeMismatch(reason string) {
	if e.obs != nil {
		e.obs.IncCounter("inspection_expression_type_mismatch_total", 1)
		e.obs.LogInfo("expression_type_mismatch", ports.Field{Key: "reason", Value: reason})
	}
}
