// Package codeblock implements the CodeBlock fobject (spec.md §4.7): a
// CPU-profiler sample-insertion point that can be bound, exclusively, to
// one DataBus channel.
package codeblock

import (
	"faraabin/databus"
	"faraabin/dict"
	"faraabin/errcode"
	"faraabin/event"
	"faraabin/fobject"
)

// CodeBlock is a named profiler instrumentation point.
type CodeBlock struct {
	Fobject   fobject.Fobject
	Bus       *databus.DataBus
	BusHandle fobject.Handle
	Channel   int
	Attached  bool
}

// New constructs an unattached CodeBlock rooted at "root".
func New(handle fobject.Handle, name string) *CodeBlock {
	return &CodeBlock{Fobject: fobject.Fobject{
		Kind: fobject.KindCodeBlock, Handle: handle,
		Initialized: true, Enabled: true, Name: name, Path: "root",
	}}
}

// AttachTo exclusively binds this CodeBlock to channel ch on bus
// (spec.md §4.7 "attach_codeblock_to_channel" exclusive-ownership check).
func (cb *CodeBlock) AttachTo(bus *databus.DataBus, busHandle fobject.Handle, ch int) error {
	if err := bus.AttachCodeblockToChannel(ch, cb.Attached); err != nil {
		return err
	}
	cb.Bus, cb.BusHandle, cb.Channel, cb.Attached = bus, busHandle, ch, true
	return nil
}

// Detach clears the DataBus channel slot and this CodeBlock's reverse
// pointer (spec.md §4.7 "also clears the reverse pointer on the CodeBlock").
func (cb *CodeBlock) Detach() error {
	if !cb.Attached {
		return nil
	}
	err := cb.Bus.DetachFromChannel(cb.Channel)
	cb.Bus, cb.BusHandle, cb.Channel, cb.Attached = nil, fobject.Null, 0, false
	return err
}

// Sample forwards a profiler-captured value into the bound DataBus
// channel (spec.md §4.7 "Run_CodeBlock callbacks").
func (cb *CodeBlock) Sample(ts uint32, value [8]byte) error {
	if !cb.Attached {
		return errcode.NotInit
	}
	return cb.Bus.RunCodeBlockSample(cb.Channel, cb.Fobject.Handle, ts, value)
}

// View returns the dict.Emittable projection for dictionary enumeration.
func (cb *CodeBlock) View() dict.Emittable { return &emittable{cb} }

type emittable struct{ cb *CodeBlock }

func (e *emittable) Fobject() *fobject.Fobject  { return &e.cb.Fobject }
func (e *emittable) Children() []dict.Emittable { return nil }
func (e *emittable) EmitSelf(w *event.Writer) {
	w.AddString(e.cb.Fobject.Name)
	w.AddString(e.cb.Fobject.Path)
	w.AddU32(uint32(e.cb.BusHandle))
}
