// Package ode expresses a task's dynamics as a system of symbolic
// equations, one per state, equal to the per-step change the engine
// applies.
//
// # Architecture
//
// Trees are built into an Arena of Nodes addressed by NodeID. A node only
// references nodes created before it, so every tree is acyclic and the
// arena can be walked or serialised without cycle checks. Variable nodes
// are memoised by (state, delay): every transition that reads the same
// quantity shares one node.
//
// Each tree is rendered to infix Tokens and converted to postfix by
// ToPostfix. Eval runs a postfix sequence on a plain operand stack, so an
// evaluator never needs the tree shape.
//
//	task ──Builder.Convert──▶ Arena trees ──Infix──▶ []Token ──ToPostfix──▶ []Token ──Eval──▶ float64
//
// # Conventions
//
// Divisions are written as Power(x, -1). Power(0, negative) evaluates to 0,
// the same saturating rule the engine applies to a zero normaliser.
//
// Block expressions are not part of the symbolic form.
package ode
