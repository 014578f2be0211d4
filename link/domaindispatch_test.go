package link

import (
	"testing"

	"faraabin/codeblock"
	"faraabin/databus"
	"faraabin/event"
	"faraabin/eventgroup"
	"faraabin/fobject"
	"faraabin/ring"
	"faraabin/statemachine"
	"faraabin/wire"
	"faraabin/x/critsec"
)

func newTestSerial() *event.Serializer {
	return event.New(ring.New(make([]byte, 1024), critsec.Noop{}), critsec.Noop{})
}

func TestEventGroupDispatcherSettingTogglesEnabled(t *testing.T) {
	g := eventgroup.New(1, "diag", nil)
	d := &EventGroupDispatcher{Group: g, Serial: newTestSerial(), Now: func() uint32 { return 1 }}
	cf := wire.ClientFrame{FobjectProp: wire.Property(wire.GroupSetting, 0), Payload: []byte{0}}
	if err := d.Dispatch(cf, &g.Fobject); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if g.Fobject.Enabled {
		t.Fatal("expected Enabled false after setting payload 0")
	}
}

func TestEventGroupDispatcherEventInvokesTerminal(t *testing.T) {
	var got []byte
	g := eventgroup.New(1, "diag", func(data []byte) { got = data })
	d := &EventGroupDispatcher{Group: g, Serial: newTestSerial(), Now: func() uint32 { return 1 }}
	cf := wire.ClientFrame{FobjectProp: wire.Property(wire.GroupEvent, 0), Payload: []byte("hi")}
	if err := d.Dispatch(cf, &g.Fobject); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if string(got) != "hi" {
		t.Fatalf("expected terminal callback invoked with payload, got %q", got)
	}
}

func TestCodeBlockDispatcherCommandDetaches(t *testing.T) {
	bus := databus.New(1, 2, critsec.Noop{}, func() uint32 { return 0 }, 16)
	cb := codeblock.New(10, "profiler")
	if err := cb.AttachTo(bus, 1, 0); err != nil {
		t.Fatalf("attach: %v", err)
	}
	d := &CodeBlockDispatcher{Block: cb, Serial: newTestSerial(), Now: func() uint32 { return 1 }}
	cf := wire.ClientFrame{FobjectProp: wire.Property(wire.GroupCommand, CbCmdDetach)}
	if err := d.Dispatch(cf, &cb.Fobject); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if cb.Attached {
		t.Fatal("expected Detach command to clear Attached")
	}
}

func TestStateMachineDispatcherSetStateCommand(t *testing.T) {
	sm := statemachine.New(1, "power")
	sm.AddState(2, "off")
	sm.AddState(3, "on")
	d := &StateMachineDispatcher{SM: sm, Serial: newTestSerial(), Now: func() uint32 { return 1 }}
	cf := wire.ClientFrame{FobjectProp: wire.Property(wire.GroupCommand, SmCmdSetState), Payload: []byte("on")}
	if err := d.Dispatch(cf, &sm.Fobject); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sm.Current != "on" {
		t.Fatalf("expected Current=on, got %q", sm.Current)
	}
}

func TestStateMachineSubDispatcherSettingTogglesEnabled(t *testing.T) {
	sm := statemachine.New(1, "power")
	sm.AddState(2, "off")
	d := &StateMachineSubDispatcher{Serial: newTestSerial(), Now: func() uint32 { return 1 }}
	cf := wire.ClientFrame{FobjectProp: wire.Property(wire.GroupSetting, 0), Payload: []byte{0}}
	if err := d.Dispatch(cf, &sm.States[0].Fobject); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if sm.States[0].Fobject.Enabled {
		t.Fatal("expected sub fobject disabled")
	}
}
