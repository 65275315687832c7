package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/popdyn/internal/model"
	"github.com/roach88/popdyn/internal/timeexpr"
)

// CompileTasks compiles every task under the root's "task" field, in
// declaration order.
//
//	task: sir: { ... }
//	task: predators: { ... }
func CompileTasks(root cue.Value) ([]*model.Task, error) {
	if err := root.Err(); err != nil {
		return nil, cueError(err)
	}

	tasksVal := root.LookupPath(labelPath("task"))
	if !tasksVal.Exists() {
		return nil, nil
	}

	iter, err := tasksVal.Fields()
	if err != nil {
		return nil, cueError(err)
	}

	var tasks []*model.Task
	for iter.Next() {
		task, err := CompileTask(iter.Value())
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// CompileTask parses a CUE value into a Task.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the task struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`task: sir: { ... }`)
//	task, err := CompileTask(v.LookupPath(cue.ParsePath("task.sir")))
//
// States are numbered first, then transitions, from one sequence, in
// declaration order. Entries reference states by name or alias.
func CompileTask(v cue.Value) (*model.Task, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}

	task := &model.Task{}

	// Task name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		task.Name = label(labels[len(labels)-1])
	}

	start, err := optionalInt(v, "start", 0)
	if err != nil {
		return nil, err
	}
	task.Start = start

	steps, err := optionalInt(v, "steps", 0)
	if err != nil {
		return nil, err
	}
	task.Steps = steps

	seq := model.NewSequence()

	task.States, err = parseStates(v, seq)
	if err != nil {
		return nil, err
	}
	if len(task.States) == 0 {
		return nil, &CompileError{
			Field:   "state",
			Message: "at least one state is required",
			Pos:     v.Pos(),
		}
	}

	task.Transitions, err = parseTransitions(v, task, seq)
	if err != nil {
		return nil, err
	}

	return task, nil
}

// parseStates accepts either a struct or a bare count per state:
//
//	state: {
//		infected: { count: 20, alias: "I" }
//		healthy:  80
//	}
func parseStates(v cue.Value, seq *model.Sequence) ([]*model.State, error) {
	stateVal := v.LookupPath(labelPath("state"))
	if !stateVal.Exists() {
		return nil, nil
	}

	iter, err := stateVal.Fields()
	if err != nil {
		return nil, cueError(err)
	}

	var states []*model.State
	for iter.Next() {
		name := label(iter.Selector())
		value := iter.Value()
		state := &model.State{ID: seq.NextState(), Name: name}

		if value.IncompleteKind()&cue.NumberKind != 0 && value.IncompleteKind()&cue.StructKind == 0 {
			count, err := value.Float64()
			if err != nil {
				return nil, cueError(err)
			}
			state.Count = count
			states = append(states, state)
			continue
		}

		field := "state." + name
		state.Count, err = requiredFloat(value, field, "count")
		if err != nil {
			return nil, err
		}
		state.Alias, err = optionalString(value, "alias", "")
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}

	return states, nil
}

// parseTransitions extracts transition definitions from the task.
func parseTransitions(v cue.Value, task *model.Task, seq *model.Sequence) ([]*model.Transition, error) {
	trVal := v.LookupPath(labelPath("transition"))
	if !trVal.Exists() {
		return nil, nil
	}

	iter, err := trVal.Fields()
	if err != nil {
		return nil, cueError(err)
	}

	var transitions []*model.Transition
	for iter.Next() {
		name := label(iter.Selector())
		value := iter.Value()
		field := "transition." + name

		tr := &model.Transition{ID: seq.NextTransition(), Name: name}

		tr.Probability, err = requiredFloat(value, field, "probability")
		if err != nil {
			return nil, err
		}

		typeName, err := optionalString(value, "type", string(model.Linear))
		if err != nil {
			return nil, err
		}
		tr.Type, err = model.ParseTransitionType(typeName)
		if err != nil {
			return nil, &CompileError{
				Field:   field + ".type",
				Message: err.Error(),
				Pos:     value.LookupPath(labelPath("type")).Pos(),
				Err:     err,
			}
		}

		tr.Block, err = optionalString(value, "block", "")
		if err != nil {
			return nil, err
		}
		if tr.Block != "" && !timeexpr.Valid(tr.Block) {
			return nil, &CompileError{
				Field:   field + ".block",
				Message: fmt.Sprintf("block %q is not a constant, linear or exponential form in t", tr.Block),
				Pos:     value.LookupPath(labelPath("block")).Pos(),
			}
		}

		tr.States, err = parseEntries(value, field, task)
		if err != nil {
			return nil, err
		}

		transitions = append(transitions, tr)
	}

	return transitions, nil
}

// parseEntries extracts the states list of a transition.
func parseEntries(v cue.Value, field string, task *model.Task) ([]*model.StateInTransition, error) {
	statesVal := v.LookupPath(labelPath("states"))
	if !statesVal.Exists() {
		return nil, &CompileError{
			Field:   field + ".states",
			Message: "transition states are required",
			Pos:     v.Pos(),
		}
	}

	list, err := statesVal.List()
	if err != nil {
		return nil, cueError(err)
	}

	var entries []*model.StateInTransition
	for i := 0; list.Next(); i++ {
		ev := list.Value()
		entryField := fmt.Sprintf("%s.states[%d]", field, i)

		ref, err := requiredString(ev, entryField, "state")
		if err != nil {
			return nil, err
		}
		state := task.StateByName(ref)
		if state == nil {
			return nil, &CompileError{
				Field:   entryField + ".state",
				Message: fmt.Sprintf("unknown state %q", ref),
				Pos:     ev.LookupPath(labelPath("state")).Pos(),
			}
		}

		entry := &model.StateInTransition{State: state}
		if entry.In, err = optionalFloat(ev, "in", 0); err != nil {
			return nil, err
		}
		if entry.Out, err = optionalFloat(ev, "out", 0); err != nil {
			return nil, err
		}
		if entry.Delay, err = optionalInt(ev, "delay", 0); err != nil {
			return nil, err
		}

		modeName, err := optionalString(ev, "mode", "")
		if err != nil {
			return nil, err
		}
		entry.Mode, err = model.ParseStateMode(modeName)
		if err != nil {
			return nil, &CompileError{
				Field:   entryField + ".mode",
				Message: err.Error(),
				Pos:     ev.LookupPath(labelPath("mode")).Pos(),
				Err:     err,
			}
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func requiredFloat(v cue.Value, field, name string) (float64, error) {
	fv := v.LookupPath(labelPath(name))
	if !fv.Exists() {
		return 0, &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, cueError(err)
	}
	return f, nil
}

func optionalFloat(v cue.Value, name string, def float64) (float64, error) {
	fv := v.LookupPath(labelPath(name))
	if !fv.Exists() {
		return def, nil
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, cueError(err)
	}
	return f, nil
}

func optionalInt(v cue.Value, name string, def int) (int, error) {
	iv := v.LookupPath(labelPath(name))
	if !iv.Exists() {
		return def, nil
	}
	i, err := iv.Int64()
	if err != nil {
		return 0, cueError(err)
	}
	return int(i), nil
}

func requiredString(v cue.Value, field, name string) (string, error) {
	sv := v.LookupPath(labelPath(name))
	if !sv.Exists() {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := sv.String()
	if err != nil {
		return "", cueError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, name, def string) (string, error) {
	sv := v.LookupPath(labelPath(name))
	if !sv.Exists() {
		return def, nil
	}
	s, err := sv.String()
	if err != nil {
		return "", cueError(err)
	}
	return s, nil
}

// labelPath builds a single-label path. Labels such as "in" are CUE keywords,
// which ParsePath would reject.
func labelPath(name string) cue.Path {
	return cue.MakePath(cue.Str(name))
}

func label(sel cue.Selector) string {
	if sel.IsString() {
		return sel.Unquoted()
	}
	return sel.String()
}
