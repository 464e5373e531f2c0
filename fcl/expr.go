package fcl

import (
	"github.com/JeremyLWright/uplink/fcl/value"
)

// BinOp is a binary operator.
type BinOp int

// Binary operators.
const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpAnd
	OpOr
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// String returns the operator's surface syntax.
func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	default:
		return "?"
	}
}

// UnOp is a unary operator.
type UnOp int

// Unary operators.
const (
	OpNot UnOp = iota
)

// Expr is the closed set of FCL expression forms.
type Expr interface {
	isExpr()
}

// Seq evaluates A then B, returning B's value.
type Seq struct {
	A Expr
	B Expr
}

// Ret evaluates its expression as the method result.
type Ret struct {
	Expr Expr
}

// NoOp does nothing and returns void.
type NoOp struct{}

// Lit lifts a literal value.
type Lit struct {
	Val value.Value
}

// Var reads a variable: global storage first, then temp storage.
type Var struct {
	Name string
}

// Assign writes a variable. The storage scope is resolved from the
// declared definitions: globals update global storage and emit a delta,
// locals run the local-delta machinery, anything else is a temp.
type Assign struct {
	Name string
	RHS  Expr
}

// UnOpE applies a unary operator.
type UnOpE struct {
	Op   UnOp
	Expr Expr
}

// BinOpE applies a binary operator.
type BinOpE struct {
	Op BinOp
	A  Expr
	B  Expr
}

// CallE invokes a primitive.
type CallE struct {
	Prim PrimOp
	Args []Expr
}

// If branches on a boolean condition.
type If struct {
	Cond Expr
	Then Expr
	Else Expr
}

// Before runs the body only when the block time is at or before the
// given instant.
type Before struct {
	Time Expr
	Body Expr
}

// After runs the body only when the block time is at or after the given
// instant.
type After struct {
	Time Expr
	Body Expr
}

// Between runs the body only when the block time is inside the half-open
// interval [Start, End).
type Between struct {
	Start Expr
	End   Expr
	Body  Expr
}

func (Seq) isExpr()     {}
func (Ret) isExpr()     {}
func (NoOp) isExpr()    {}
func (Lit) isExpr()     {}
func (Var) isExpr()     {}
func (Assign) isExpr()  {}
func (UnOpE) isExpr()   {}
func (BinOpE) isExpr()  {}
func (CallE) isExpr()   {}
func (If) isExpr()      {}
func (Before) isExpr()  {}
func (After) isExpr()   {}
func (Between) isExpr() {}
