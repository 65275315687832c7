package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/popdyn/internal/model"
	tu "github.com/roach88/popdyn/internal/testutil"
)

// TestAnalyzeCycles_NoTransitions tests that a static task produces no warnings.
func TestAnalyzeCycles_NoTransitions(t *testing.T) {
	task := tu.NewTask("idle", 1).State("a", 1).Build()
	assert.Empty(t, AnalyzeCycles(task))
}

// TestAnalyzeCycles_Chain tests that a one-way chain produces no warnings.
func TestAnalyzeCycles_Chain(t *testing.T) {
	task := tu.NewTask("chain", 1).
		State("a", 1).
		State("b", 0).
		State("c", 0).
		Transition(model.Linear, 0.5, tu.Consume("a", 1), tu.Produce("b", 1)).
		Transition(model.Linear, 0.5, tu.Consume("b", 1), tu.Produce("c", 1)).
		Build()

	assert.Empty(t, AnalyzeCycles(task))
}

// TestAnalyzeCycles_CatalystsAreNotEdges tests that in == out entries do not feed anything.
func TestAnalyzeCycles_CatalystsAreNotEdges(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(tu.Inhibited()))
	assert.Empty(t, AnalyzeCycles(tu.Residual(model.Linear)))
}

// TestAnalyzeCycles_Epidemic tests the infection/recovery loop.
func TestAnalyzeCycles_Epidemic(t *testing.T) {
	warnings := AnalyzeCycles(tu.Epidemic(model.Solute, 0.6, model.Linear, 0.2))

	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"infected", "healthy", "infected"}, warnings[0].Path)
	assert.Equal(t, "info", warnings[0].Level)
	assert.Equal(t, "Feedback loop: infected → healthy → infected", warnings[0].Message)
}

// TestAnalyzeCycles_SelfLoop tests autocatalysis without a return path.
func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	task := tu.NewTask("growth", 1).
		State("cells", 1).
		State("food", 100).
		Transition(model.Solute, 0.1, tu.Flow("cells", 1, 2), tu.Consume("food", 1)).
		Build()

	warnings := AnalyzeCycles(task)

	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"cells", "cells"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
}

// TestAnalyzeCycles_Deterministic tests that repeated analysis gives the same result.
func TestAnalyzeCycles_Deterministic(t *testing.T) {
	task := tu.Mixed()
	first := AnalyzeCycles(task)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, AnalyzeCycles(task))
	}
}

// TestAnalyzeCycles_UsesAliases tests that paths name states by label.
func TestAnalyzeCycles_UsesAliases(t *testing.T) {
	task := tu.Delays()
	task.States[0].Alias = "N"
	task.States[1].Alias = "P"

	warnings := AnalyzeCycles(task)

	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"N", "P", "N"}, warnings[0].Path)
}
