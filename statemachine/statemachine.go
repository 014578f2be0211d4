// Package statemachine implements the StateMachine fobject and its
// StateMachine.Sub children (spec.md §3, §4.6, §4.9): an ordered list of
// states and transitions, each individually enable-able, plus a current
// state pointer settable by host command.
package statemachine

import (
	"faraabin/dict"
	"faraabin/event"
	"faraabin/fobject"
)

// Sub is a single state or transition child (spec.md §4.9 dispatch table
// row "StateMachine.Sub": Setting/enable only).
type Sub struct {
	Fobject  fobject.Fobject
	From, To string // transition endpoints; both left empty for plain states
}

// StateMachine is a named, host-inspectable state machine.
type StateMachine struct {
	Fobject     fobject.Fobject
	States      []Sub
	Transitions []Sub
	Current     string
}

// New constructs an empty StateMachine rooted at "root".
func New(handle fobject.Handle, name string) *StateMachine {
	return &StateMachine{Fobject: fobject.Fobject{
		Kind: fobject.KindStateMachine, Handle: handle,
		Initialized: true, Enabled: true, Name: name, Path: "root",
	}}
}

// AddState appends a named state, in declaration order (spec.md §4.6
// "state machine states+transitions" children).
func (sm *StateMachine) AddState(handle fobject.Handle, name string) {
	sm.States = append(sm.States, Sub{Fobject: sm.childFobject(handle, name)})
}

// AddTransition appends a named from→to transition.
func (sm *StateMachine) AddTransition(handle fobject.Handle, name, from, to string) {
	sm.Transitions = append(sm.Transitions, Sub{
		Fobject: sm.childFobject(handle, name), From: from, To: to,
	})
}

func (sm *StateMachine) childFobject(handle fobject.Handle, name string) fobject.Fobject {
	return fobject.Fobject{
		Kind: fobject.KindStateMachineSub, Handle: handle,
		Initialized: true, Enabled: true, Name: name,
		Path: sm.Fobject.Path + "/" + sm.Fobject.Name,
	}
}

// findSub locates a state or transition by handle, for per-sub enable
// toggling (spec.md §4.9 "StateMachine.Sub | Setting (enable)").
func (sm *StateMachine) findSub(handle fobject.Handle) *fobject.Fobject {
	for i := range sm.States {
		if sm.States[i].Fobject.Handle == handle {
			return &sm.States[i].Fobject
		}
	}
	for i := range sm.Transitions {
		if sm.Transitions[i].Fobject.Handle == handle {
			return &sm.Transitions[i].Fobject
		}
	}
	return nil
}

// View returns the dict.Emittable projection for dictionary enumeration.
func (sm *StateMachine) View() dict.Emittable { return &emittable{sm} }

type emittable struct{ sm *StateMachine }

func (e *emittable) Fobject() *fobject.Fobject { return &e.sm.Fobject }
func (e *emittable) EmitSelf(w *event.Writer) {
	w.AddString(e.sm.Fobject.Name)
	w.AddString(e.sm.Fobject.Path)
	w.AddString(e.sm.Current)
}
func (e *emittable) Children() []dict.Emittable {
	children := make([]dict.Emittable, 0, len(e.sm.States)+len(e.sm.Transitions))
	for i := range e.sm.States {
		children = append(children, &subEmittable{&e.sm.States[i]})
	}
	for i := range e.sm.Transitions {
		children = append(children, &subEmittable{&e.sm.Transitions[i]})
	}
	return children
}

type subEmittable struct{ s *Sub }

func (e *subEmittable) Fobject() *fobject.Fobject  { return &e.s.Fobject }
func (e *subEmittable) Children() []dict.Emittable { return nil }
func (e *subEmittable) EmitSelf(w *event.Writer) {
	w.AddString(e.s.Fobject.Name)
	w.AddString(e.s.From)
	w.AddString(e.s.To)
}
