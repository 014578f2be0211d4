// cmd/example/main.go demonstrates wiring faraabin/runtime to a mock port
// and registering a user variable.
package main

import (
	"time"

	"faraabin/config"
	"faraabin/dict"
	"faraabin/event"
	"faraabin/eventgroup"
	"faraabin/fobject"
	"faraabin/link"
	"faraabin/runtime"
	"faraabin/statemachine"
	"faraabin/vartype"
	"faraabin/wire"
	"faraabin/x/critsec"
)

// mockPort is a host-runnable faraabin/port.Port that prints what it would
// send, standing in for a real UART transport.
type mockPort struct {
	tx, rx []byte
	tick   uint32
}

func newMockPort() *mockPort {
	return &mockPort{tx: make([]byte, 1024), rx: make([]byte, 256)}
}

func (p *mockPort) FWName() string     { return "faraabin-example" }
func (p *mockPort) FWInfo() string     { return `{"board":"host-sim"}` }
func (p *mockPort) TXBuffer() []byte   { return p.tx }
func (p *mockPort) RXBuffer() []byte   { return p.rx }
func (p *mockPort) Send(b []byte) error {
	println("[tx]", len(b), "bytes")
	return nil
}
func (p *mockPort) IsSending() bool { return false }
func (p *mockPort) ResetMCU()       { println("[mcu] reset requested") }
func (p *mockPort) Tick() uint32    { p.tick++; return p.tick }

// counterEmittable makes the registered "counter" variable dict-enumerable.
type counterEmittable struct {
	fo         *fobject.Fobject
	typeHandle fobject.Handle
}

func (c *counterEmittable) Fobject() *fobject.Fobject { return c.fo }
func (c *counterEmittable) Children() []dict.Emittable { return nil }
func (c *counterEmittable) EmitSelf(w *event.Writer) {
	w.AddU32(uint32(c.typeHandle))
	w.AddString(c.fo.Name)
	w.AddString(c.fo.Path)
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(cf wire.ClientFrame, fo *fobject.Fobject) error { return nil }

func main() {
	println("[faraabin] boot")
	p := newMockPort()
	rt := runtime.Init(p, config.Default(), critsec.Noop{})

	counter := uint32(0)
	fo := &fobject.Fobject{
		Kind: fobject.KindVarType, Handle: 100, Initialized: true, Enabled: true,
		Name: "counter", Path: "root",
	}
	rt.RegisterFobject(fo, noopDispatcher{}, &counterEmittable{fo: fo, typeHandle: 0x1005 /* u32 */})
	_ = vartype.U32 // referenced for documentation of the matching primitive handle above

	diag := eventgroup.New(101, "diag", func(data []byte) { println("[diag]", string(data)) })
	rt.RegisterFobject(&diag.Fobject, &link.EventGroupDispatcher{Group: diag, Serial: rt.Serial, Now: p.Tick}, diag.View())

	power := statemachine.New(102, "power")
	power.AddState(103, "off")
	power.AddState(104, "on")
	power.AddTransition(105, "turn_on", "off", "on")
	power.Current = "off"
	rt.RegisterFobject(&power.Fobject, &link.StateMachineDispatcher{SM: power, Serial: rt.Serial, Now: p.Tick}, power.View())
	for i := range power.States {
		rt.RegisterFobject(&power.States[i].Fobject, &link.StateMachineSubDispatcher{Serial: rt.Serial, Now: p.Tick}, nil)
	}
	for i := range power.Transitions {
		rt.RegisterFobject(&power.Transitions[i].Fobject, &link.StateMachineSubDispatcher{Serial: rt.Serial, Now: p.Tick}, nil)
	}

	for i := 0; i < 5; i++ {
		counter++
		rt.Run()
		time.Sleep(10 * time.Millisecond)
	}
	println("[faraabin] done, counter=", counter)
}
