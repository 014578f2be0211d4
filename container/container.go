// Package container implements the Container fobject (spec.md §3, §4.6):
// a user-defined grouping fobject whose dictionary body comes from a
// caller-supplied enumeration callback rather than a fixed member list.
// It carries no command surface — spec.md §4.9's dispatch table has no
// row for Container, so it is dict-only.
package container

import (
	"faraabin/dict"
	"faraabin/event"
	"faraabin/fobject"
)

// EnumFunc produces a Container's body on demand (spec.md §9 "boxed
// closure registered at init").
type EnumFunc func() []dict.Emittable

// Container groups related fobjects under one dictionary entry.
type Container struct {
	Fobject fobject.Fobject
	Enum    EnumFunc
}

// New constructs a Container rooted at "root"; enum may be nil for an
// empty body.
func New(handle fobject.Handle, name string, enum EnumFunc) *Container {
	if enum == nil {
		enum = func() []dict.Emittable { return nil }
	}
	return &Container{
		Fobject: fobject.Fobject{
			Kind: fobject.KindContainer, Handle: handle,
			Initialized: true, Enabled: true, Name: name, Path: "root",
		},
		Enum: enum,
	}
}

// View returns the dict.Emittable projection to hand to
// faraabin/runtime.RegisterFobject.
func (c *Container) View() dict.Emittable { return &emittable{c} }

type emittable struct{ c *Container }

func (e *emittable) Fobject() *fobject.Fobject  { return &e.c.Fobject }
func (e *emittable) Children() []dict.Emittable { return e.c.Enum() }
func (e *emittable) EmitSelf(w *event.Writer) {
	w.AddString(e.c.Fobject.Name)
	w.AddString(e.c.Fobject.Path)
}
