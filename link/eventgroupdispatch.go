package link

import (
	"faraabin/errcode"
	"faraabin/event"
	"faraabin/eventgroup"
	"faraabin/fobject"
	"faraabin/wire"
)

// EventGroupDispatcher implements Dispatcher for a single EventGroup
// (spec.md §4.9 dispatch table row "EventGroup": Setting, Event).
type EventGroupDispatcher struct {
	Group  *eventgroup.EventGroup
	Serial *event.Serializer
	Now    func() uint32
}

func (d *EventGroupDispatcher) Dispatch(cf wire.ClientFrame, fo *fobject.Fobject) error {
	switch cf.Group() {
	case wire.GroupSetting:
		return d.dispatchSetting(cf, fo)
	case wire.GroupEvent:
		return d.dispatchEvent(cf, fo)
	default:
		return errcode.UnsupportedFobjectProperty
	}
}

func (d *EventGroupDispatcher) dispatchSetting(cf wire.ClientFrame, fo *fobject.Fobject) error {
	if len(cf.Payload) < 1 {
		return errcode.Param
	}
	fo.Enabled = cf.Payload[0] != 0
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupSetting, cf.PropID(), true, nil, nil)
	return nil
}

// dispatchEvent implements "host sends user-terminal data addressed to
// this group" (spec.md §3 EventGroup).
func (d *EventGroupDispatcher) dispatchEvent(cf wire.ClientFrame, fo *fobject.Fobject) error {
	if d.Group.Terminal != nil {
		d.Group.Terminal(cf.Payload)
	}
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupEvent, cf.PropID(), true, nil, nil)
	return nil
}
