package link

import (
	"faraabin/errcode"
	"faraabin/event"
	"faraabin/fobject"
	"faraabin/statemachine"
	"faraabin/wire"
)

// StateMachine command property ids (spec.md §4.9 dispatch table row
// "StateMachine": Setting, Monitoring, Command, Event).
const (
	SmCmdSetState uint8 = 0
)

// StateMachineDispatcher implements Dispatcher for a single StateMachine.
// Setting toggles enable; Monitoring reports the current state name;
// Command forces a transition to the state named by the payload.
type StateMachineDispatcher struct {
	SM     *statemachine.StateMachine
	Serial *event.Serializer
	Now    func() uint32
}

func (d *StateMachineDispatcher) Dispatch(cf wire.ClientFrame, fo *fobject.Fobject) error {
	switch cf.Group() {
	case wire.GroupSetting:
		return d.dispatchSetting(cf, fo)
	case wire.GroupMonitoring:
		return d.dispatchMonitoring(cf, fo)
	case wire.GroupCommand:
		return d.dispatchCommand(cf, fo)
	case wire.GroupEvent:
		d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupEvent, cf.PropID(), true, nil, nil)
		return nil
	default:
		return errcode.UnsupportedFobjectProperty
	}
}

func (d *StateMachineDispatcher) dispatchSetting(cf wire.ClientFrame, fo *fobject.Fobject) error {
	if len(cf.Payload) < 1 {
		return errcode.Param
	}
	fo.Enabled = cf.Payload[0] != 0
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupSetting, cf.PropID(), true, nil, nil)
	return nil
}

func (d *StateMachineDispatcher) dispatchMonitoring(cf wire.ClientFrame, fo *fobject.Fobject) error {
	w := &event.Writer{}
	w.AddString(d.SM.Current)
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupMonitoring, cf.PropID(), true, nil, w.Bytes())
	return nil
}

func (d *StateMachineDispatcher) dispatchCommand(cf wire.ClientFrame, fo *fobject.Fobject) error {
	switch cf.PropID() {
	case SmCmdSetState:
		d.SM.Current = string(cf.Payload)
	default:
		return errcode.UnsupportedFobjectProperty
	}
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupCommand, cf.PropID(), true, nil, nil)
	return nil
}

// StateMachineSubDispatcher implements Dispatcher for a single state or
// transition child (spec.md §4.9 dispatch table row "StateMachine.Sub":
// Setting/enable only). Its fobject.Fobject is a *statemachine.Sub's
// embedded Fobject, registered independently so the host can address it
// by its own handle.
type StateMachineSubDispatcher struct {
	Serial *event.Serializer
	Now    func() uint32
}

func (d *StateMachineSubDispatcher) Dispatch(cf wire.ClientFrame, fo *fobject.Fobject) error {
	if cf.Group() != wire.GroupSetting {
		return errcode.UnsupportedFobjectProperty
	}
	if len(cf.Payload) < 1 {
		return errcode.Param
	}
	fo.Enabled = cf.Payload[0] != 0
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupSetting, cf.PropID(), true, nil, nil)
	return nil
}
