// Package eval implements the FCL method interpreter.
//
// An Evaluator holds an immutable Context (block, transaction and
// contract facts) and a mutable State (storage scopes, graph position,
// world view, delta log). Every expression form returns a value or a
// Fail; a failure aborts the method with no further deltas. All inputs
// are block-derived: the interpreter consults neither the wall clock nor
// any entropy source, so identical inputs produce identical outputs on
// every validator.
package eval

import (
	"github.com/JeremyLWright/uplink/fcl"
	"github.com/JeremyLWright/uplink/fcl/delta"
	"github.com/JeremyLWright/uplink/fcl/storage"
	"github.com/JeremyLWright/uplink/fcl/value"
	"github.com/JeremyLWright/uplink/keys"
	"github.com/JeremyLWright/uplink/logging"
	"github.com/JeremyLWright/uplink/types"
	"github.com/JeremyLWright/uplink/world"
)

// Context carries the facts fixed for the duration of one method call.
type Context struct {
	// BlockIndex is the current block height.
	BlockIndex types.Height

	// Validator is the current block's proposing validator.
	Validator types.Address

	// TxHash is the current transaction's hash.
	TxHash types.Hash

	// Timestamp is the current block time in microseconds. This is the
	// only notion of "now" available to scripts.
	Timestamp types.Timestamp

	// Created is the contract's deployment time.
	Created types.Timestamp

	// Deployer is the contract's deploying account.
	Deployer types.Address

	// TxIssuer is the origin account of the current transaction.
	TxIssuer types.Address

	// Address is the evaluated contract's address.
	Address types.Address

	// PrivKey is the evaluating node's signing key for the sign
	// primitive.
	PrivKey *keys.PrivateKey

	// StorageKey is the contract-owned Paillier public key for
	// homomorphic values. It is stable across invocations of the same
	// contract.
	StorageKey *keys.PaillierPub
}

// State is the mutable evaluation state for one method call.
type State struct {
	// Temp is method-scoped scratch storage, discarded on return.
	Temp storage.Storage

	// Global is the contract's persistent storage.
	Global storage.Storage

	// LocalVars is the set of declared local variable names.
	LocalVars map[string]struct{}

	// Local is per-counterparty storage keyed by address.
	Local map[string]storage.Storage

	// Graph is the contract's control flow position.
	Graph fcl.GraphState

	// World is the ledger view. Asset primitives move the world through
	// pure transitions.
	World *world.World

	// Side is the side-graph machine position.
	Side fcl.SideState

	// Lock is the side-graph lock, nil when unlocked.
	Lock *fcl.SideLock

	// Deltas is the append-only mutation log. Emission order is part of
	// the observable output.
	Deltas delta.Log
}

// NewState builds evaluation state from a contract and a world view.
func NewState(c *world.Contract, w *world.World) *State {
	local := make(map[string]storage.Storage, len(c.LocalStorage))
	for k, v := range c.LocalStorage {
		local[k] = v.Clone()
	}
	vars := make(map[string]struct{}, len(c.LocalStorageVars))
	for k := range c.LocalStorageVars {
		vars[k] = struct{}{}
	}
	var lock *fcl.SideLock
	if c.SideLock != nil {
		l := *c.SideLock
		lock = &l
	}
	return &State{
		Temp:      storage.New(),
		Global:    c.GlobalStorage.Clone(),
		LocalVars: vars,
		Local:     local,
		Graph:     c.State,
		World:     w,
		Side:      c.SideState,
		Lock:      lock,
	}
}

// Evaluator interprets method bodies against a context and state.
type Evaluator struct {
	ctx *Context
	st  *State
	log *logging.Logger
}

// New creates an evaluator. A nil logger discards output.
func New(ctx *Context, st *State, log *logging.Logger) *Evaluator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Evaluator{ctx: ctx, st: st, log: log.WithComponent("eval")}
}

// State returns the evaluator's mutable state.
func (e *Evaluator) State() *State {
	return e.st
}

// EvalMethod runs a method against the supplied argument values. The
// typechecker has already validated argument types; the evaluator checks
// arity, the side-graph lock, and the graph position before binding
// arguments and evaluating the body.
func (e *Evaluator) EvalMethod(m *fcl.Method, args []value.Value) (value.Value, error) {
	if len(m.Args) != len(args) {
		return nil, failf(FailMethodArity, "%s expects %d args, got %d", m.Name, len(m.Args), len(args))
	}
	if err := e.checkSideGraph(m); err != nil {
		return nil, err
	}
	if err := e.checkGraph(m); err != nil {
		return nil, err
	}
	for i, a := range m.Args {
		e.st.Temp.Put(a.Name, args[i])
	}

	e.log.Debug("evaluating method",
		logging.Contract(e.ctx.Address.String()),
		logging.Method(m.Name),
		logging.State(e.st.Graph.Label()),
	)

	v, err := e.eval(m.Body)
	if err != nil {
		e.log.Debug("method failed",
			logging.Method(m.Name),
			logging.Error(err),
		)
		return nil, err
	}
	return v, nil
}

// checkSideGraph enforces the side-graph lock. An expired lock is
// released implicitly; a live lock admits only subgraph methods.
func (e *Evaluator) checkSideGraph(m *fcl.Method) error {
	if e.st.Lock == nil {
		return nil
	}
	if e.ctx.Timestamp.Int64() > e.st.Lock.Deadline {
		e.st.Lock = nil
		return nil
	}
	if m.Tag.Kind != fcl.TagSubgraph {
		return failf(FailSubgraphLock, "side graph locked until %d", e.st.Lock.Deadline)
	}
	return nil
}

// checkGraph enforces the main-graph position. Terminal is absorbing:
// no method runs on a terminated contract.
func (e *Evaluator) checkGraph(m *fcl.Method) error {
	if e.st.Graph.IsTerminal() {
		return failf(FailTerminalState, "contract %s is terminated", e.ctx.Address)
	}
	if m.Tag.Kind != fcl.TagMain {
		return nil
	}
	required := fcl.GraphLabel(m.Tag.Label)
	if !required.Equal(e.st.Graph) {
		return failf(FailInvalidState, "%s requires %s, contract is at %s", m.Name, required, e.st.Graph)
	}
	return nil
}

// eval interprets one expression.
func (e *Evaluator) eval(expr fcl.Expr) (value.Value, error) {
	switch ex := expr.(type) {
	case fcl.Seq:
		if _, err := e.eval(ex.A); err != nil {
			return nil, err
		}
		return e.eval(ex.B)

	case fcl.Ret:
		return e.eval(ex.Expr)

	case fcl.NoOp:
		return value.Void{}, nil

	case fcl.Lit:
		return ex.Val, nil

	case fcl.Var:
		return e.evalVar(ex.Name)

	case fcl.Assign:
		return e.evalAssign(ex)

	case fcl.UnOpE:
		return e.evalUnOp(ex)

	case fcl.BinOpE:
		a, err := e.eval(ex.A)
		if err != nil {
			return nil, err
		}
		b, err := e.eval(ex.B)
		if err != nil {
			return nil, err
		}
		return e.applyBinOp(ex.Op, a, b)

	case fcl.CallE:
		return e.evalPrim(ex.Prim, ex.Args)

	case fcl.If:
		cond, err := e.eval(ex.Cond)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(value.Bool)
		if !ok {
			return nil, failf(FailImpossible, "if condition is %s, not bool", cond.Kind())
		}
		if bool(b) {
			return e.eval(ex.Then)
		}
		return e.eval(ex.Else)

	case fcl.Before:
		t, err := e.evalDateTime(ex.Time)
		if err != nil {
			return nil, err
		}
		if e.now() <= t {
			return e.eval(ex.Body)
		}
		return value.Void{}, nil

	case fcl.After:
		t, err := e.evalDateTime(ex.Time)
		if err != nil {
			return nil, err
		}
		if e.now() >= t {
			return e.eval(ex.Body)
		}
		return value.Void{}, nil

	case fcl.Between:
		s, err := e.evalDateTime(ex.Start)
		if err != nil {
			return nil, err
		}
		end, err := e.evalDateTime(ex.End)
		if err != nil {
			return nil, err
		}
		if now := e.now(); s <= now && now < end {
			return e.eval(ex.Body)
		}
		return value.Void{}, nil

	default:
		return nil, failf(FailImpossible, "unknown expression form %T", expr)
	}
}

// now is the block time as a datetime value.
func (e *Evaluator) now() value.DateTime {
	return value.DateTime(e.ctx.Timestamp)
}

func (e *Evaluator) evalDateTime(expr fcl.Expr) (value.DateTime, error) {
	v, err := e.eval(expr)
	if err != nil {
		return 0, err
	}
	dt, ok := v.(value.DateTime)
	if !ok {
		return 0, failf(FailImpossible, "expected datetime, got %s", v.Kind())
	}
	return dt, nil
}

// evalVar resolves a variable: global storage first, then temp. Declared
// locals that reach here have no settled value in either scope.
func (e *Evaluator) evalVar(name string) (value.Value, error) {
	if v, ok := e.st.Global.Get(name); ok {
		return v, nil
	}
	if v, ok := e.st.Temp.Get(name); ok {
		return v, nil
	}
	if e.isLocal(name) {
		return nil, failf(FailLocalVarNotFound, "%s", name)
	}
	return nil, failf(FailImpossible, "unbound variable %s", name)
}

func (e *Evaluator) isLocal(name string) bool {
	_, ok := e.st.LocalVars[name]
	return ok
}

func (e *Evaluator) isGlobal(name string) bool {
	return e.st.Global.Has(name)
}

// evalAssign dispatches a write on the target's storage scope.
func (e *Evaluator) evalAssign(ex fcl.Assign) (value.Value, error) {
	switch {
	case e.isGlobal(ex.Name):
		v, err := e.eval(ex.RHS)
		if err != nil {
			return nil, err
		}
		e.st.Global.Put(ex.Name, v)
		e.st.Deltas.Append(delta.ModifyGlobal{Name: ex.Name, Value: v})
		return value.Void{}, nil

	case e.isLocal(ex.Name):
		return e.evalLocalAssign(ex)

	default:
		v, err := e.eval(ex.RHS)
		if err != nil {
			return nil, err
		}
		e.st.Temp.Put(ex.Name, v)
		return value.Void{}, nil
	}
}

// evalLocalAssign runs the local-delta machinery. A local write must
// describe itself symbolically so counterparties can replay it against
// their private values; the accepted right-hand shapes are an API
// contract of the compiler, and anything else is an impossible branch.
func (e *Evaluator) evalLocalAssign(ex fcl.Assign) (value.Value, error) {
	switch rhs := ex.RHS.(type) {
	case fcl.Var:
		if !e.isLocal(rhs.Name) {
			return nil, failf(FailImpossible, "local %s assigned from non-local %s", ex.Name, rhs.Name)
		}
		v, err := e.localValue(rhs.Name)
		if err != nil {
			return nil, err
		}
		e.putLocal(ex.Name, v)
		e.st.Deltas.Append(delta.ModifyLocal{
			Name:   ex.Name,
			Update: delta.ReplaceWith{Var: rhs.Name},
		})
		return value.Void{}, nil

	case fcl.BinOpE:
		lhsLeft := isVarNamed(rhs.A, ex.Name)
		lhsRight := isVarNamed(rhs.B, ex.Name)
		if lhsLeft == lhsRight {
			return nil, failf(FailImpossible, "local %s update must reference itself exactly once", ex.Name)
		}
		var operandExpr fcl.Expr
		if lhsLeft {
			operandExpr = rhs.B
		} else {
			operandExpr = rhs.A
		}
		operand, err := e.eval(operandExpr)
		if err != nil {
			return nil, err
		}
		cur, err := e.localValue(ex.Name)
		if err != nil {
			return nil, err
		}
		var next value.Value
		if lhsLeft {
			next, err = e.applyBinOp(rhs.Op, cur, operand)
		} else {
			next, err = e.applyBinOp(rhs.Op, operand, cur)
		}
		if err != nil {
			return nil, err
		}
		e.putLocal(ex.Name, next)
		e.st.Deltas.Append(delta.ModifyLocal{
			Name: ex.Name,
			Update: delta.ApplyOp{
				Op:         rhs.Op,
				Operand:    operand,
				VarOnRight: lhsRight,
			},
		})
		return value.Void{}, nil

	default:
		return nil, failf(FailImpossible, "local %s assigned from unsupported shape %T", ex.Name, ex.RHS)
	}
}

func isVarNamed(expr fcl.Expr, name string) bool {
	v, ok := expr.(fcl.Var)
	return ok && v.Name == name
}

// localValue reads the issuer's settled value for a local variable.
func (e *Evaluator) localValue(name string) (value.Value, error) {
	s, ok := e.st.Local[e.ctx.TxIssuer.Key()]
	if !ok {
		return nil, failf(FailLocalVarNotFound, "%s", name)
	}
	v, ok := s.Get(name)
	if !ok {
		return nil, failf(FailLocalVarNotFound, "%s", name)
	}
	return v, nil
}

// putLocal writes the issuer's value for a local variable.
func (e *Evaluator) putLocal(name string, v value.Value) {
	key := e.ctx.TxIssuer.Key()
	s, ok := e.st.Local[key]
	if !ok {
		s = storage.New()
		e.st.Local[key] = s
	}
	s.Put(name, v)
}

func (e *Evaluator) evalUnOp(ex fcl.UnOpE) (value.Value, error) {
	v, err := e.eval(ex.Expr)
	if err != nil {
		return nil, err
	}
	switch ex.Op {
	case fcl.OpNot:
		b, ok := v.(value.Bool)
		if !ok {
			return nil, failf(FailImpossible, "not applied to %s", v.Kind())
		}
		return value.Bool(!b), nil
	default:
		return nil, failf(FailImpossible, "unknown unary operator")
	}
}
