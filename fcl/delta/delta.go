// Package delta defines the append-only mutation records emitted by
// contract evaluation.
//
// Deltas are the observable output of a method call: counterparties
// replay them against their own storage, so emission order is significant
// and no reordering is permitted.
package delta

import (
	"fmt"

	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/fcl/value"
	"github.com/JeremyLWright/uplink/types"
)

// Kind tags a delta variant.
type Kind int

// Delta kinds.
const (
	KindModifyGlobal Kind = iota
	KindModifyLocal
	KindModifyAsset
	KindModifyState
	KindTerminate
)

// Delta is the closed set of mutation records.
type Delta interface {
	// Kind returns the variant tag.
	Kind() Kind

	// String renders the delta for logs and diagnostics.
	String() string

	isDelta()
}

// ModifyGlobal records a write to a contract's global storage.
type ModifyGlobal struct {
	Name  string
	Value value.Value
}

// LocalUpdate describes a local storage write symbolically so that
// counterparties can replay it against their private values.
type LocalUpdate interface {
	isLocalUpdate()
}

// ReplaceWith replaces the local variable with another local variable's
// value.
type ReplaceWith struct {
	Var string
}

// ApplyOp combines the local variable with an operand under a binary
// operator. VarOnRight records which side of the operator the variable sits on.
type ApplyOp struct {
	Op      fcl.BinOp
	Operand value.Value

	// VarOnRight is true when the variable is the right operand. The
	// distinction matters for non-commutative operators.
	VarOnRight bool
}

func (ReplaceWith) isLocalUpdate() {}
func (ApplyOp) isLocalUpdate()     {}

// ModifyLocal records a symbolic write to a local variable.
type ModifyLocal struct {
	Name   string
	Update LocalUpdate
}

// AssetOp distinguishes the asset transfer primitives.
type AssetOp int

// Asset operations.
const (
	// AssetTransferTo moves units from the transaction issuer to the
	// contract.
	AssetTransferTo AssetOp = iota

	// AssetTransferFrom moves units from the contract to a holder.
	AssetTransferFrom

	// AssetTransferHoldings moves units between two holders.
	AssetTransferHoldings
)

// String returns a human-readable description of the asset operation.
func (op AssetOp) String() string {
	switch op {
	case AssetTransferTo:
		return "TransferTo"
	case AssetTransferFrom:
		return "TransferFrom"
	case AssetTransferHoldings:
		return "TransferHoldings"
	default:
		return "Unknown"
	}
}

// ModifyAsset records an asset holding movement.
type ModifyAsset struct {
	Op     AssetOp
	Asset  types.Address
	From   types.Address
	To     types.Address
	Amount int64
}

// ModifyState records a graph state transition.
type ModifyState struct {
	State fcl.GraphState
}

// Terminate records contract termination with a farewell message.
type Terminate struct {
	Msg []byte
}

func (ModifyGlobal) Kind() Kind { return KindModifyGlobal }
func (ModifyLocal) Kind() Kind  { return KindModifyLocal }
func (ModifyAsset) Kind() Kind  { return KindModifyAsset }
func (ModifyState) Kind() Kind  { return KindModifyState }
func (Terminate) Kind() Kind    { return KindTerminate }

func (ModifyGlobal) isDelta() {}
func (ModifyLocal) isDelta()  {}
func (ModifyAsset) isDelta()  {}
func (ModifyState) isDelta()  {}
func (Terminate) isDelta()    {}

func (d ModifyGlobal) String() string {
	return fmt.Sprintf("ModifyGlobal(%s, %s)", d.Name, d.Value)
}

func (d ModifyLocal) String() string {
	switch u := d.Update.(type) {
	case ReplaceWith:
		return fmt.Sprintf("ModifyLocal(%s, ReplaceWith(%s))", d.Name, u.Var)
	case ApplyOp:
		return fmt.Sprintf("ModifyLocal(%s, Op(%s, %s))", d.Name, u.Op, u.Operand)
	default:
		return fmt.Sprintf("ModifyLocal(%s)", d.Name)
	}
}

func (d ModifyAsset) String() string {
	return fmt.Sprintf("ModifyAsset(%s, %s, %s -> %s, %d)", d.Op, d.Asset, d.From, d.To, d.Amount)
}

func (d ModifyState) String() string {
	return fmt.Sprintf("ModifyState(%s)", d.State)
}

func (d Terminate) String() string {
	return fmt.Sprintf("Terminate(%q)", string(d.Msg))
}

// Log is an append-only delta sequence.
type Log []Delta

// Append adds deltas to the log.
func (l *Log) Append(ds ...Delta) {
	*l = append(*l, ds...)
}
