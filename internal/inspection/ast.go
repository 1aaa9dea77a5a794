package inspection

import "github.com/ridgeline-iot/canopy-edge/internal/domain"

// NodeKind discriminates the campaign expression AST.
type NodeKind uint8

const (
	NodeNumberLit NodeKind = iota
	NodeStringLit
	NodeBoolLit
	NodeSignalRef
	NodeArith
	NodeCompare
	NodeLogical
	NodeNot
	NodeConditional
	NodeWindowFunc
	NodeCustomFunc
)

// ArithOp enumerates the arithmetic operators.
type ArithOp uint8

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

// CompareOp enumerates the comparison operators.
type CompareOp uint8

const (
	OpLT CompareOp = iota
	OpLE
	OpGT
	OpGE
	OpEQ
	OpNE
)

// LogicalOp enumerates the short-circuiting logical operators.
type LogicalOp uint8

const (
	OpAnd LogicalOp = iota
	OpOr
)

// WindowFuncKind enumerates the rolling-window queries the evaluator can
// perform over a signal's history.
type WindowFuncKind uint8

const (
	WindowLatest WindowFuncKind = iota
	WindowPrevious
	WindowMin
	WindowMax
	WindowSum
	WindowCount
	WindowAverage
	WindowSince
)

// Node is one AST node of a campaign's condition expression. Every
// campaign document compiles to an immutable tree of Nodes; evaluation is
// a pure recursive walk (see evaluator.go).
type Node struct {
	Kind NodeKind

	// Literals.
	NumberLit float64
	StringLit string
	BoolLit   bool

	// Signal reference.
	Signal domain.SignalID

	// Arithmetic / comparison / logical operators.
	ArithOp   ArithOp
	CompareOp CompareOp
	LogicalOp LogicalOp
	Left      *Node
	Right     *Node

	// Unary not.
	Operand *Node

	// Conditional ?: .
	Cond *Node
	Then *Node
	Else *Node

	// Window function: WindowFuncKind over Signal, with N samples or Span
	// milliseconds (whichever the campaign document specified; zero means
	// "not specified" for that axis). For WindowSince, WindowSpan holds the
	// "received since" timestamp instead of a span.
	WindowKind WindowFuncKind
	WindowN    int
	WindowSpan uint64

	// Custom function call.
	FuncName     string
	Args         []*Node
	InvocationID InvocationID
}
