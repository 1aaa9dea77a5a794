package inspection

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// InvocationID identifies one textual custom_function(...) call site.
type InvocationID = ports.InvocationID

// CustomFunction is the registry entry shape; see ports.CustomFunction for
// the full contract (Invoke/ConditionEnd/Cleanup).
type CustomFunction = ports.CustomFunction

// CustomFuncRegistry holds named custom functions by name -> instance.
// Built-ins are registered once at construction; integrators register
// more before campaigns referencing them are compiled.
type CustomFuncRegistry struct {
	mu    sync.RWMutex
	funcs map[string]CustomFunction
}

// NewCustomFuncRegistry returns a registry pre-populated with the
// built-ins required for parity with the original data collection agent:
// abs, ceil, floor, min, max, pow, log, and MULTI_RISING_EDGE_TRIGGER.
func NewCustomFuncRegistry() *CustomFuncRegistry {
	r := &CustomFuncRegistry{funcs: make(map[string]CustomFunction)}
	r.Register("abs", unaryMathFunc(math.Abs))
	r.Register("ceil", unaryMathFunc(math.Ceil))
	r.Register("floor", unaryMathFunc(math.Floor))
	r.Register("min", variadicMathFuncNew(math.Min, 2))
	r.Register("max", variadicMathFuncNew(math.Max, 2))
	r.Register("pow", powFunc{})
	r.Register("log", logFunc{})
	r.Register("MULTI_RISING_EDGE_TRIGGER", newMultiRisingEdgeTrigger("Vehicle.MultiRisingEdgeTrigger"))
	return r
}

// Register adds or replaces a named custom function.
func (r *CustomFuncRegistry) Register(name string, fn CustomFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the function registered under name, if any.
func (r *CustomFuncRegistry) Lookup(name string) (CustomFunction, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// --- built-ins -------------------------------------------------------

type unaryMathFunc func(float64) float64

func (f unaryMathFunc) Invoke(_ InvocationID, args []domain.Value) (ports.CustomFuncStatus, domain.Value) {
	if len(args) != 1 {
		return ports.CustomFuncTypeMismatch, domain.Undefined
	}
	if args[0].IsUndefined() {
		return ports.CustomFuncOK, domain.Undefined
	}
	n, ok := args[0].AsNumber()
	if !ok {
		return ports.CustomFuncTypeMismatch, domain.Undefined
	}
	return ports.CustomFuncOK, domain.NumValue(f(n))
}

func (unaryMathFunc) ConditionEnd(InvocationID, map[domain.SignalID]struct{}, domain.Timestamp, *[]domain.CollectedSignal) {
}
func (unaryMathFunc) Cleanup(InvocationID) {}

type variadicMathFunc struct {
	reduce  func(a, b float64) float64
	minArgs int
}

func variadicMathFuncNew(reduce func(a, b float64) float64, minArgs int) variadicMathFunc {
	return variadicMathFunc{reduce: reduce, minArgs: minArgs}
}

func (f variadicMathFunc) Invoke(_ InvocationID, args []domain.Value) (ports.CustomFuncStatus, domain.Value) {
	if len(args) < f.minArgs {
		return ports.CustomFuncTypeMismatch, domain.Undefined
	}
	acc, ok := args[0].AsNumber()
	if args[0].IsUndefined() {
		return ports.CustomFuncOK, domain.Undefined
	}
	if !ok {
		return ports.CustomFuncTypeMismatch, domain.Undefined
	}
	for _, a := range args[1:] {
		if a.IsUndefined() {
			return ports.CustomFuncOK, domain.Undefined
		}
		n, ok := a.AsNumber()
		if !ok {
			return ports.CustomFuncTypeMismatch, domain.Undefined
		}
		acc = f.reduce(acc, n)
	}
	return ports.CustomFuncOK, domain.NumValue(acc)
}

func (variadicMathFunc) ConditionEnd(InvocationID, map[domain.SignalID]struct{}, domain.Timestamp, *[]domain.CollectedSignal) {
}
func (variadicMathFunc) Cleanup(InvocationID) {}

type powFunc struct{}

func (powFunc) Invoke(_ InvocationID, args []domain.Value) (ports.CustomFuncStatus, domain.Value) {
	if len(args) != 2 {
		return ports.CustomFuncTypeMismatch, domain.Undefined
	}
	if args[0].IsUndefined() || args[1].IsUndefined() {
		return ports.CustomFuncOK, domain.Undefined
	}
	x, ok1 := args[0].AsNumber()
	y, ok2 := args[1].AsNumber()
	if !ok1 || !ok2 {
		return ports.CustomFuncTypeMismatch, domain.Undefined
	}
	return ports.CustomFuncOK, domain.NumValue(math.Pow(x, y))
}
func (powFunc) ConditionEnd(InvocationID, map[domain.SignalID]struct{}, domain.Timestamp, *[]domain.CollectedSignal) {
}
func (powFunc) Cleanup(InvocationID) {}

type logFunc struct{}

func (logFunc) Invoke(_ InvocationID, args []domain.Value) (ports.CustomFuncStatus, domain.Value) {
	if len(args) != 2 {
		return ports.CustomFuncTypeMismatch, domain.Undefined
	}
	if args[0].IsUndefined() || args[1].IsUndefined() {
		return ports.CustomFuncOK, domain.Undefined
	}
	base, ok1 := args[0].AsNumber()
	x, ok2 := args[1].AsNumber()
	if !ok1 || !ok2 {
		return ports.CustomFuncTypeMismatch, domain.Undefined
	}
	return ports.CustomFuncOK, domain.NumValue(math.Log(x) / math.Log(base))
}
func (logFunc) ConditionEnd(InvocationID, map[domain.SignalID]struct{}, domain.Timestamp, *[]domain.CollectedSignal) {
}
func (logFunc) Cleanup(InvocationID) {}

// multiRisingEdgeTrigger implements MULTI_RISING_EDGE_TRIGGER: returns
// true iff at least one named boolean had a rising edge since the last
// invocation for that invocation id; ConditionEnd appends the JSON array
// of names that rose to the designated output signal.
type multiRisingEdgeTrigger struct {
	outputSignalName string
	outputSignalID   domain.SignalID

	mu    sync.Mutex
	prior map[InvocationID]map[string]bool
	rose  map[InvocationID][]string
}

func newMultiRisingEdgeTrigger(outputSignalName string) *multiRisingEdgeTrigger {
	return &multiRisingEdgeTrigger{
		outputSignalName: outputSignalName,
		prior:            make(map[InvocationID]map[string]bool),
		rose:             make(map[InvocationID][]string),
	}
}

// SetOutputSignalID resolves the fully-qualified output name to a signal
// id once the decoder dictionary / signal catalog is known.
func (m *multiRisingEdgeTrigger) SetOutputSignalID(id domain.SignalID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputSignalID = id
}

// Invoke expects args as alternating (name string, bool) pairs.
func (m *multiRisingEdgeTrigger) Invoke(id InvocationID, args []domain.Value) (ports.CustomFuncStatus, domain.Value) {
	if len(args) == 0 || len(args)%2 != 0 {
		return ports.CustomFuncTypeMismatch, domain.Undefined
	}
	// Check every pair before touching per-invocation state, so an
	// undefined or mistyped later pair leaves earlier pairs' state intact.
	for i := 0; i < len(args); i += 2 {
		if args[i].IsUndefined() || args[i+1].IsUndefined() {
			return ports.CustomFuncOK, domain.Undefined
		}
		if args[i].Kind != domain.KindString {
			return ports.CustomFuncTypeMismatch, domain.Undefined
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	priorState := m.prior[id]
	if priorState == nil {
		priorState = make(map[string]bool)
	}

	var rose []string
	for i := 0; i < len(args); i += 2 {
		name := args[i].Str
		cur := args[i+1].AsBool()
		if cur && !priorState[name] {
			rose = append(rose, name)
		}
		priorState[name] = cur
	}

	m.prior[id] = priorState
	m.rose[id] = rose

	return ports.CustomFuncOK, domain.BoolValue(len(rose) > 0)
}

func (m *multiRisingEdgeTrigger) ConditionEnd(id InvocationID, collected map[domain.SignalID]struct{}, ts domain.Timestamp, out *[]domain.CollectedSignal) {
	m.mu.Lock()
	rose := m.rose[id]
	outID := m.outputSignalID
	m.mu.Unlock()

	if len(rose) == 0 {
		return
	}
	if _, ok := collected[outID]; !ok {
		return
	}

	b, err := json.Marshal(rose)
	if err != nil {
		return
	}
	*out = append(*out, domain.CollectedSignal{
		SignalID:  outID,
		Timestamp: ts,
		Value:     domain.StringValue(string(b)),
		Type:      domain.SignalTypeString,
	})
}

func (m *multiRisingEdgeTrigger) Cleanup(id InvocationID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prior, id)
	delete(m.rose, id)
}
