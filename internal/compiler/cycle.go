package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/popdyn/internal/model"
)

// CycleWarning represents a feedback loop in a task's flow graph.
//
// Loops are reported, not rejected, because most population models are
// built on them:
//   - Autocatalysis (infected + healthy -> 2 infected)
//   - Recovery back into a susceptible pool
//   - Predator/prey oscillation
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["infected", "healthy", "infected"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static feedback analysis on a task.
//
// The algorithm:
//  1. Build state → state flow graph: an edge from every entry that drives a
//     transition (in > 0) to every entry the transition grows (out > in)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a feedback loop
//
// Self-loops are autocatalytic and reported at "warning" level since they
// grow without bound unless another transition drains them. Larger loops
// are "info". Output order follows the task's state order.
func AnalyzeCycles(task *model.Task) []CycleWarning {
	if len(task.Transitions) == 0 {
		return []CycleWarning{}
	}

	graph, order := buildFlowGraph(task)
	sccs := tarjanSCC(graph, order)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}

	return warnings
}

// flowGraph maps state label → labels of states it feeds, without repeats.
type flowGraph map[string][]string

// buildFlowGraph constructs the flow graph and returns the labels in task
// order so traversal is deterministic.
func buildFlowGraph(task *model.Task) (flowGraph, []string) {
	graph := make(flowGraph)
	order := make([]string, 0, len(task.States))
	for _, s := range task.States {
		graph[s.Label()] = []string{}
		order = append(order, s.Label())
	}

	edges := make(map[[2]string]bool)
	for _, tr := range task.Transitions {
		for _, from := range tr.ActualStates() {
			if from.In <= 0 {
				continue
			}
			for _, to := range tr.ActualStates() {
				if to.Coefficient() <= 0 {
					continue
				}
				edge := [2]string{from.State.Label(), to.State.Label()}
				if edges[edge] {
					continue
				}
				edges[edge] = true
				graph[edge[0]] = append(graph[edge[0]], edge[1])
			}
		}
	}

	return graph, order
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph flowGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, each listed from its root in discovery order.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph flowGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// Root node: pop the stack down to v
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			// Popped order is reverse discovery; start the path at the root.
			for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
				scc[i], scc[j] = scc[j], scc[i]
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, graph flowGraph) CycleWarning {
	if len(scc) == 1 {
		state := scc[0]
		return CycleWarning{
			Path:    []string{state, state},
			Message: fmt.Sprintf("Autocatalytic state: %s feeds itself", state),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Feedback loop: %s", strings.Join(path, " → ")),
		Level:   "info",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph flowGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if neighbor == current {
				continue
			}
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
