// Package fcl defines the script model the evaluator consumes: the typed
// expression AST, method signatures with their graph tags, and contract
// graph state.
//
// Parsing and typechecking FCL source is an external collaborator; the
// types here are the boundary contract. The evaluator assumes every
// expression it sees has passed the typechecker, so shape violations are
// surfaced as impossible-branch failures rather than handled.
package fcl

import (
	"errors"
	"fmt"

	"github.com/JeremyLWright/uplink/fcl/value"
)

// ErrNoSuchMethod is returned when a script has no method with the
// requested name.
var ErrNoSuchMethod = errors.New("no such method")

// graphKind tags a GraphState variant.
type graphKind int

const (
	graphInitial graphKind = iota
	graphTerminal
	graphLabel
)

// GraphState is a contract's position in its control flow automaton:
// initial, terminal, or a named label. Terminal is absorbing.
type GraphState struct {
	kind  graphKind
	label string
}

// GraphInitial is the starting graph position.
func GraphInitial() GraphState {
	return GraphState{kind: graphInitial}
}

// GraphTerminal is the absorbing final graph position.
func GraphTerminal() GraphState {
	return GraphState{kind: graphTerminal}
}

// GraphLabel is a named intermediate graph position.
func GraphLabel(name string) GraphState {
	switch name {
	case string(value.StateInitial):
		return GraphInitial()
	case string(value.StateTerminal):
		return GraphTerminal()
	}
	return GraphState{kind: graphLabel, label: name}
}

// IsInitial reports whether the state is the initial position.
func (g GraphState) IsInitial() bool {
	return g.kind == graphInitial
}

// IsTerminal reports whether the state is the terminal position.
func (g GraphState) IsTerminal() bool {
	return g.kind == graphTerminal
}

// Label returns the label naming this position. Initial and terminal
// return their distinguished names.
func (g GraphState) Label() string {
	switch g.kind {
	case graphInitial:
		return string(value.StateInitial)
	case graphTerminal:
		return string(value.StateTerminal)
	default:
		return g.label
	}
}

// Equal reports whether two graph states are the same position.
func (g GraphState) Equal(other GraphState) bool {
	return g.kind == other.kind && g.label == other.label
}

// String returns the position label.
func (g GraphState) String() string {
	return g.Label()
}

// SideState is the side-graph machine position, persisted on the
// contract between calls.
type SideState int

// Side-graph positions.
const (
	// SideNone means no side-graph interaction has occurred.
	SideNone SideState = iota

	// SideInit means novation has been initiated.
	SideInit

	// SideStop means novation has been stopped; the lock persists until
	// release or timeout.
	SideStop
)

// SideLock is the timed side-graph lock entered via novationInit. While
// held, only subgraph-tagged methods may run. Times are block-derived
// microsecond timestamps; the wall clock plays no part.
type SideLock struct {
	Start    int64
	Deadline int64
}

// TagKind distinguishes main-graph methods from side-graph methods.
type TagKind int

const (
	// TagMain gates a method on the contract's main graph position.
	TagMain TagKind = iota

	// TagSubgraph marks a method callable while the side-graph lock is
	// held.
	TagSubgraph
)

// MethodTag is a method's graph annotation: which half of the two-level
// state machine it belongs to, and for main methods, the required graph
// position label.
type MethodTag struct {
	Kind  TagKind
	Label string
}

// Arg is a declared method parameter.
type Arg struct {
	Name string
	Type string
}

// Method is a callable contract method.
type Method struct {
	Name string
	Tag  MethodTag
	Args []Arg
	Body Expr
}

// Def is a top-level variable definition. Local definitions are settled
// per counterparty; the rest live in global storage.
type Def struct {
	Name  string
	Local bool
	Init  value.Value
}

// Transition is one edge of the contract's declared control flow graph.
type Transition struct {
	From string
	To   string
}

// Script is a parsed, typechecked FCL contract.
type Script struct {
	Definitions []Def
	Graph       []Transition
	Methods     []*Method
}

// Method returns the named method.
func (s *Script) Method(name string) (*Method, error) {
	for _, m := range s.Methods {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSuchMethod, name)
}

// LocalVars returns the set of declared local variable names.
func (s *Script) LocalVars() map[string]struct{} {
	out := make(map[string]struct{})
	for _, d := range s.Definitions {
		if d.Local {
			out[d.Name] = struct{}{}
		}
	}
	return out
}

// Parser turns UTF-8 FCL source into a typechecked script. Parsing is an
// external collaborator of the validation core.
type Parser interface {
	Parse(src []byte) (*Script, error)
}
