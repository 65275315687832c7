package model

import (
	"encoding/json"
	"fmt"
)

// Document is the serialisable form of a Task. Entries reference states by
// id instead of by pointer so a decoded task never aliases.
type Document struct {
	Version     string               `json:"version"`
	Name        string               `json:"name"`
	Start       int                  `json:"start"`
	Steps       int                  `json:"steps"`
	States      []State              `json:"states"`
	Transitions []TransitionDocument `json:"transitions"`
}

// TransitionDocument is the serialisable form of a Transition.
type TransitionDocument struct {
	ID          TransitionID    `json:"id"`
	Name        string          `json:"name,omitempty"`
	Probability float64         `json:"probability"`
	Type        TransitionType  `json:"type"`
	Block       string          `json:"block,omitempty"`
	States      []EntryDocument `json:"states"`
}

// EntryDocument is the serialisable form of a StateInTransition.
type EntryDocument struct {
	StateID StateID   `json:"state_id"`
	In      float64   `json:"in"`
	Out     float64   `json:"out"`
	Delay   int       `json:"delay"`
	Mode    StateMode `json:"mode"`
}

// Document converts the task to its serialisable form.
// Placeholder entries are preserved with EmptyStateID.
func (t *Task) Document() Document {
	doc := Document{
		Version:     DocumentVersion,
		Name:        t.Name,
		Start:       t.Start,
		Steps:       t.Steps,
		States:      make([]State, len(t.States)),
		Transitions: make([]TransitionDocument, len(t.Transitions)),
	}
	for i, s := range t.States {
		doc.States[i] = *s
	}
	for i, tr := range t.Transitions {
		td := TransitionDocument{
			ID:          tr.ID,
			Name:        tr.Name,
			Probability: tr.Probability,
			Type:        tr.Type,
			Block:       tr.Block,
			States:      make([]EntryDocument, len(tr.States)),
		}
		for j, e := range tr.States {
			id := EmptyStateID
			if e.State != nil {
				id = e.State.ID
			}
			td.States[j] = EntryDocument{
				StateID: id,
				In:      e.In,
				Out:     e.Out,
				Delay:   e.Delay,
				Mode:    e.Mode,
			}
		}
		doc.Transitions[i] = td
	}
	return doc
}

// Task rebuilds a Task from the document. Transitions listing a state more
// than once are merged with NormalizeStates; others keep their entries,
// placeholders included.
// Returns an error if an entry references a state the document does not define.
func (d Document) Task() (*Task, error) {
	if d.Version != "" && d.Version != DocumentVersion {
		return nil, fmt.Errorf("unsupported task document version %q", d.Version)
	}

	t := &Task{
		Name:        d.Name,
		Start:       d.Start,
		Steps:       d.Steps,
		States:      make([]*State, len(d.States)),
		Transitions: make([]*Transition, len(d.Transitions)),
	}
	byID := make(map[StateID]*State, len(d.States))
	for i := range d.States {
		s := d.States[i]
		t.States[i] = &s
		byID[s.ID] = t.States[i]
	}
	for i, td := range d.Transitions {
		tr := &Transition{
			ID:          td.ID,
			Name:        td.Name,
			Probability: td.Probability,
			Type:        td.Type,
			Block:       td.Block,
			States:      make([]*StateInTransition, len(td.States)),
		}
		for j, ed := range td.States {
			var s *State
			if ed.StateID == EmptyStateID {
				s = EmptyState()
			} else {
				var ok bool
				s, ok = byID[ed.StateID]
				if !ok {
					return nil, fmt.Errorf("transition %d entry %d: unknown state id %d", td.ID, j, ed.StateID)
				}
			}
			tr.States[j] = &StateInTransition{
				State: s,
				In:    ed.In,
				Out:   ed.Out,
				Delay: ed.Delay,
				Mode:  ed.Mode,
			}
		}
		if tr.hasDuplicateStates() {
			tr.NormalizeStates()
		}
		t.Transitions[i] = tr
	}
	return t, nil
}

// MarshalTask encodes a task as its JSON document.
func MarshalTask(t *Task) ([]byte, error) {
	data, err := json.Marshal(t.Document())
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}
	return data, nil
}

// UnmarshalTask decodes a JSON task document.
func UnmarshalTask(data []byte) (*Task, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return doc.Task()
}
