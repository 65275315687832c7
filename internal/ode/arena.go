package ode

import (
	"fmt"
	"math"

	"github.com/roach88/popdyn/internal/kinetics"
	"github.com/roach88/popdyn/internal/model"
)

// NodeID addresses a node inside its Arena.
type NodeID int

// Kind is the node variant.
type Kind int

const (
	KindConst Kind = iota
	KindVar
	KindSum
	KindProduct
	KindPower
	KindMin
	KindFactorial
)

var kindNames = [...]string{
	KindConst:     "const",
	KindVar:       "var",
	KindSum:       "sum",
	KindProduct:   "product",
	KindPower:     "power",
	KindMin:       "min",
	KindFactorial: "fact",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Variable identifies a state's count read delay steps back.
type Variable struct {
	State model.StateID `json:"state"`
	Delay int           `json:"delay"`
}

// Node is one vertex of an expression tree.
//
// Value is set for KindConst, Var for KindVar. Args holds the operands of
// every other kind: Power has exactly two (base, exponent), Factorial one.
type Node struct {
	Kind  Kind
	Value float64
	Var   Variable
	Args  []NodeID
}

// Arena owns the nodes of one equation system.
//
// INVARIANTS:
//   - every Args entry of node i is < i
//   - vars maps each Variable to the single node representing it
type Arena struct {
	nodes []Node
	vars  map[Variable]NodeID
	order []Variable
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{vars: make(map[Variable]NodeID)}
}

// Len returns the number of nodes.
func (a *Arena) Len() int {
	return len(a.nodes)
}

// Node returns the node with the given id. Panics on an unknown id.
func (a *Arena) Node(id NodeID) Node {
	a.check(id)
	return a.nodes[id]
}

// Variables returns every memoised variable in creation order.
func (a *Arena) Variables() []Variable {
	return append([]Variable(nil), a.order...)
}

func (a *Arena) check(ids ...NodeID) {
	for _, id := range ids {
		if id < 0 || int(id) >= len(a.nodes) {
			panic(fmt.Sprintf("ode: node %d is not in the arena (len %d)", id, len(a.nodes)))
		}
	}
}

func (a *Arena) add(n Node) NodeID {
	a.check(n.Args...)
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

// Const adds a constant.
func (a *Arena) Const(v float64) NodeID {
	return a.add(Node{Kind: KindConst, Value: v})
}

// Var returns the node for state at delay, creating it on first use.
func (a *Arena) Var(state model.StateID, delay int) NodeID {
	v := Variable{State: state, Delay: delay}
	if id, ok := a.vars[v]; ok {
		return id
	}
	id := a.add(Node{Kind: KindVar, Var: v})
	a.vars[v] = id
	a.order = append(a.order, v)
	return id
}

// Sum adds the sum of args. A single operand is returned as is.
// Panics with no operands.
func (a *Arena) Sum(args ...NodeID) NodeID {
	return a.nary(KindSum, args)
}

// Product adds the product of args. A single operand is returned as is.
// Panics with no operands.
func (a *Arena) Product(args ...NodeID) NodeID {
	return a.nary(KindProduct, args)
}

// Min adds the minimum of args. A single operand is returned as is.
// Panics with no operands.
func (a *Arena) Min(args ...NodeID) NodeID {
	return a.nary(KindMin, args)
}

func (a *Arena) nary(kind Kind, args []NodeID) NodeID {
	switch len(args) {
	case 0:
		panic(fmt.Sprintf("ode: %s needs at least one operand", kind))
	case 1:
		a.check(args[0])
		return args[0]
	}
	return a.add(Node{Kind: kind, Args: append([]NodeID(nil), args...)})
}

// Power adds base^exp.
func (a *Arena) Power(base, exp NodeID) NodeID {
	return a.add(Node{Kind: KindPower, Args: []NodeID{base, exp}})
}

// Factorial adds the probabilistic factorial of arg.
func (a *Arena) Factorial(arg NodeID) NodeID {
	return a.add(Node{Kind: KindFactorial, Args: []NodeID{arg}})
}

// Neg adds -1 · x.
func (a *Arena) Neg(x NodeID) NodeID {
	return a.Product(a.Const(-1), x)
}

// Inverse adds x^-1.
func (a *Arena) Inverse(x NodeID) NodeID {
	return a.Power(x, a.Const(-1))
}

// Eval evaluates the tree rooted at id directly, reading variables from
// values. Returns ErrMissingVariable if a variable has no value.
func (a *Arena) Eval(id NodeID, values Values) (float64, error) {
	n := a.Node(id)
	switch n.Kind {
	case KindConst:
		return n.Value, nil
	case KindVar:
		v, ok := values[n.Var]
		if !ok {
			return 0, missing(n.Var)
		}
		return v, nil
	}

	args := make([]float64, len(n.Args))
	for i, arg := range n.Args {
		v, err := a.Eval(arg, values)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	switch n.Kind {
	case KindSum:
		acc := args[0]
		for _, v := range args[1:] {
			acc += v
		}
		return acc, nil
	case KindProduct:
		acc := args[0]
		for _, v := range args[1:] {
			acc *= v
		}
		return acc, nil
	case KindMin:
		return minOf(args), nil
	case KindPower:
		return power(args[0], args[1]), nil
	case KindFactorial:
		return kinetics.Factorial(args[0]), nil
	default:
		panic(fmt.Sprintf("ode: unknown node kind %s", n.Kind))
	}
}

// power is math.Pow with 0^negative defined as 0.
func power(base, exp float64) float64 {
	if base == 0 && exp < 0 {
		return 0
	}
	return math.Pow(base, exp)
}

func minOf(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
