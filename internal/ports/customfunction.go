package ports

import "github.com/ridgeline-iot/canopy-edge/internal/domain"

// InvocationID identifies one textual custom_function(...) call site
// within a campaign's AST; it is assigned once at campaign-compile time
// and stable for that campaign's lifetime.
type InvocationID uint64

// CustomFuncStatus is the outcome of one CustomFunction.Invoke call.
type CustomFuncStatus uint8

const (
	CustomFuncOK CustomFuncStatus = iota
	CustomFuncTypeMismatch
	CustomFuncRuntimeError
)

// CustomFunction is a named, externally supplied triple registered by
// integrators: Invoke runs synchronously inside the inspection worker and
// must never block; ConditionEnd runs at most once per evaluation round,
// only for invocations that actually ran that round (short-circuited
// calls do not get a ConditionEnd); Cleanup runs exactly once when an
// invocation identity retires (campaign removed or reloaded).
type CustomFunction interface {
	Invoke(id InvocationID, args []domain.Value) (CustomFuncStatus, domain.Value)
	ConditionEnd(id InvocationID, collectedSignalIDs map[domain.SignalID]struct{}, ts domain.Timestamp, out *[]domain.CollectedSignal)
	Cleanup(id InvocationID)
}
