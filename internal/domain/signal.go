// Package domain holds the value types shared by every layer of the
// inspection engine: signal identity, the tagged signal value union, and
// the CAN wire-level records the decoder produces.
package domain

// SignalID is an opaque identifier assigned by the cloud decoder manifest.
type SignalID uint32

// InvalidSignalID is the sentinel meaning "unknown/invalid" signal.
const InvalidSignalID SignalID = 0xFFFFFFFF

// ChannelID names one CAN bus instance on the vehicle.
type ChannelID uint8

// Timestamp is monotonic milliseconds since an agent-chosen epoch.
type Timestamp uint64

// SignalType is the declared storage type for a signal; decoding always
// yields exactly this type.
type SignalType uint8

const (
	SignalTypeUnknown SignalType = iota
	SignalTypeDouble
	SignalTypeInt8
	SignalTypeUint8
	SignalTypeInt16
	SignalTypeUint16
	SignalTypeInt32
	SignalTypeUint32
	SignalTypeInt64
	SignalTypeUint64
	SignalTypeBool
	SignalTypeString
)

// ValueKind tags which field of Value is populated.
type ValueKind uint8

const (
	KindUndefined ValueKind = iota
	KindBool
	KindDouble
	KindString
)

// Value is the tagged union over {undefined, bool, double, string} used
// everywhere a signal's current value is read or compared.
type Value struct {
	Kind ValueKind
	Bool bool
	Num  float64
	Str  string
}

// Undefined is the canonical undefined value.
var Undefined = Value{Kind: KindUndefined}

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NumValue wraps a float64.
func NumValue(f float64) Value { return Value{Kind: KindDouble, Num: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// IsUndefined reports whether v carries no usable payload.
func (v Value) IsUndefined() bool { return v.Kind == KindUndefined }

// AsNumber coerces v to a float64 for arithmetic/comparison purposes.
// Bool coerces to 0/1. String never coerces, and ok is false for
// undefined or string inputs.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindDouble:
		return v.Num, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsBool coerces v to a boolean for logical-operator and activation
// purposes. Double coerces by != 0. Undefined is false here, but callers
// that need to distinguish "false" from "undefined" should check
// IsUndefined first — this method collapses that distinction by design.
func (v Value) AsBool() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindDouble:
		return v.Num != 0
	default:
		return false
	}
}

// Equal reports exact equality per the type policy: numeric compares
// coerce bool<->double, strings compare exactly and never coerce.
func (v Value) Equal(other Value) (bool, bool) {
	if v.Kind == KindString || other.Kind == KindString {
		if v.Kind != KindString || other.Kind != KindString {
			return false, false
		}
		return v.Str == other.Str, true
	}
	a, ok1 := v.AsNumber()
	b, ok2 := other.AsNumber()
	if !ok1 || !ok2 {
		return false, false
	}
	return a == b, true
}
