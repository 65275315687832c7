package ode

import (
	"fmt"
	"slices"

	"github.com/roach88/popdyn/internal/kinetics"
	"github.com/roach88/popdyn/internal/model"
)

// Builder converts a task into an equation System.
//
// A Builder holds no state between calls; Convert can be called again
// after the task changes.
type Builder struct {
	task *model.Task

	arena      *Arena
	index      map[model.StateID]int
	terms      [][]NodeID
	population NodeID
}

// NewBuilder creates a builder for the task.
func NewBuilder(task *model.Task) *Builder {
	return &Builder{task: task}
}

// Convert builds one equation per state, in task order, each equal to the
// change the engine applies to that state in one step.
//
// Entries whose coefficient is zero contribute no term. Returns an error
// wrapping kinetics.ErrUnknownTransitionType for a transition of unknown
// type, or if an entry references a state outside the task.
func (b *Builder) Convert() (*System, error) {
	b.arena = NewArena()
	b.index = b.task.StateIndex()
	b.terms = make([][]NodeID, len(b.task.States))
	b.population = -1

	// Designated variables first, so they lead the arena in state order.
	for _, s := range b.task.States {
		b.arena.Var(s.ID, 0)
	}

	for _, tr := range b.task.Transitions {
		if err := b.visit(tr); err != nil {
			return nil, err
		}
	}

	names := make(map[model.StateID]string, len(b.task.States))
	for _, s := range b.task.States {
		names[s.ID] = s.Label()
	}

	sys := &System{Arena: b.arena}
	for i, s := range b.task.States {
		root := b.sumOrZero(b.terms[i])
		infix := b.arena.Infix(root, names)
		postfix, err := ToPostfix(infix)
		if err != nil {
			return nil, fmt.Errorf("state %s: %w", s, err)
		}
		sys.Equations = append(sys.Equations, Equation{
			State:   s.ID,
			Name:    s.Label(),
			Root:    root,
			Infix:   infix,
			Postfix: postfix,
		})
	}

	sys.Variables = b.arena.Variables()
	slices.SortStableFunc(sys.Variables, func(x, y Variable) int {
		if c := b.index[x.State] - b.index[y.State]; c != 0 {
			return c
		}
		return x.Delay - y.Delay
	})
	return sys, nil
}

func (b *Builder) visit(tr *model.Transition) error {
	for _, e := range tr.ActualStates() {
		if _, ok := b.index[e.State.ID]; !ok {
			return fmt.Errorf("transition %d: state %s is not part of the task", tr.ID, e.State)
		}
		if e.Delay < 0 {
			return fmt.Errorf("transition %d: state %s has negative delay %d", tr.ID, e.State, e.Delay)
		}
	}

	total, err := b.total(tr)
	if err != nil {
		return err
	}
	intensity, err := b.intensity(tr, total)
	if err != nil {
		return err
	}
	a := b.arena
	rate := a.Product(a.Const(tr.Probability), intensity, total)

	if !tr.HasResidual() {
		for _, e := range tr.ActualStates() {
			if c := e.Coefficient(); c != 0 {
				b.add(e.State, a.Product(a.Const(c), rate))
			}
		}
		return nil
	}

	var leftovers []NodeID
	for _, e := range tr.ActualStates() {
		if e.Mode != model.Residual {
			continue
		}
		leftover := a.Sum(a.Var(e.State.ID, e.Delay), a.Neg(rate))
		leftovers = append(leftovers, leftover)
		b.add(e.State, a.Neg(leftover))
	}
	pool := a.Sum(leftovers...)
	for _, e := range tr.ActualStates() {
		if e.Mode == model.Residual || e.Out == 0 {
			continue
		}
		if c := e.Coefficient(); c != 0 {
			b.add(e.State, a.Product(a.Const(c), pool))
		}
	}
	return nil
}

// total mirrors kinetics.TotalCount.
func (b *Builder) total(tr *model.Transition) (NodeID, error) {
	a := b.arena
	switch tr.Type {
	case model.Linear:
		return a.Const(1), nil
	case model.Solute:
		if b.population < 0 {
			vars := make([]NodeID, len(b.task.States))
			for i, s := range b.task.States {
				vars[i] = a.Var(s.ID, 0)
			}
			b.population = b.sumOrZero(vars)
		}
		return b.population, nil
	case model.Blend:
		var vars []NodeID
		for _, s := range tr.DistinctStates() {
			vars = append(vars, a.Var(s.ID, 0))
		}
		return b.sumOrZero(vars), nil
	default:
		return 0, fmt.Errorf("transition %d: %w %q", tr.ID, kinetics.ErrUnknownTransitionType, tr.Type)
	}
}

// intensity mirrors kinetics.Intensity.
func (b *Builder) intensity(tr *model.Transition, total NodeID) (NodeID, error) {
	a := b.arena
	var terms []NodeID

	switch tr.Type {
	case model.Linear:
		for _, e := range tr.ActualStates() {
			if e.In <= 0 {
				continue
			}
			count := a.Var(e.State.ID, e.Delay)
			q := a.Product(count, a.Inverse(a.Const(e.In)))
			if e.Mode == model.Inhibitor {
				q = a.Sum(count, a.Neg(q))
			}
			terms = append(terms, q)
		}
		if len(terms) == 0 {
			return a.Const(0), nil
		}
		return a.Min(terms...), nil

	case model.Solute, model.Blend:
		for _, e := range tr.ActualStates() {
			if e.In <= 0 {
				continue
			}
			count := a.Var(e.State.ID, e.Delay)
			term := a.Product(
				a.Power(count, a.Const(e.In)),
				a.Inverse(a.Factorial(a.Const(e.In))),
				a.Power(total, a.Const(-e.In)),
			)
			if e.Mode == model.Inhibitor {
				term = a.Sum(a.Const(1), a.Neg(term))
			}
			terms = append(terms, term)
		}
		if len(terms) == 0 {
			return a.Const(1), nil
		}
		return a.Product(terms...), nil

	default:
		return 0, fmt.Errorf("transition %d: %w %q", tr.ID, kinetics.ErrUnknownTransitionType, tr.Type)
	}
}

func (b *Builder) add(s *model.State, term NodeID) {
	i := b.index[s.ID]
	b.terms[i] = append(b.terms[i], term)
}

func (b *Builder) sumOrZero(ids []NodeID) NodeID {
	if len(ids) == 0 {
		return b.arena.Const(0)
	}
	return b.arena.Sum(ids...)
}
