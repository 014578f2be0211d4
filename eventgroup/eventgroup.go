// Package eventgroup implements the EventGroup fobject (spec.md §3): a
// destination label for event frames that carries a user-terminal
// callback invoked when the host addresses terminal data to it.
package eventgroup

import (
	"faraabin/dict"
	"faraabin/event"
	"faraabin/fobject"
)

// TerminalFunc handles user-terminal bytes the host sends to this group
// (spec.md §4.9 dispatch table row "EventGroup", Event group).
type TerminalFunc func(data []byte)

// EventGroup is a named destination event frames are tagged with.
type EventGroup struct {
	Fobject  fobject.Fobject
	Terminal TerminalFunc
}

// New constructs an EventGroup rooted at "root"; terminal may be nil if
// the group never receives host terminal data.
func New(handle fobject.Handle, name string, terminal TerminalFunc) *EventGroup {
	return &EventGroup{
		Fobject: fobject.Fobject{
			Kind: fobject.KindEventGroup, Handle: handle,
			Initialized: true, Enabled: true, Name: name, Path: "root",
		},
		Terminal: terminal,
	}
}

// View returns the dict.Emittable projection for dictionary enumeration.
func (g *EventGroup) View() dict.Emittable { return &emittable{g} }

type emittable struct{ g *EventGroup }

func (e *emittable) Fobject() *fobject.Fobject  { return &e.g.Fobject }
func (e *emittable) Children() []dict.Emittable { return nil }
func (e *emittable) EmitSelf(w *event.Writer) {
	w.AddString(e.g.Fobject.Name)
	w.AddString(e.g.Fobject.Path)
}
