package link

import (
	"faraabin/codeblock"
	"faraabin/errcode"
	"faraabin/event"
	"faraabin/fobject"
	"faraabin/wire"
)

// CodeBlock command property ids (spec.md §4.9 dispatch table row
// "CodeBlock": Setting, Monitoring, Command, Event).
const (
	CbCmdDetach uint8 = 0
)

// CodeBlockDispatcher implements Dispatcher for a single CodeBlock.
// Setting toggles enable; Monitoring reports the bound DataBus handle and
// channel index; Command detaches it from its DataBus. Event-group frames
// are answered with UnsupportedFobjectProperty.
type CodeBlockDispatcher struct {
	Block  *codeblock.CodeBlock
	Serial *event.Serializer
	Now    func() uint32
}

func (d *CodeBlockDispatcher) Dispatch(cf wire.ClientFrame, fo *fobject.Fobject) error {
	switch cf.Group() {
	case wire.GroupSetting:
		return d.dispatchSetting(cf, fo)
	case wire.GroupMonitoring:
		return d.dispatchMonitoring(cf, fo)
	case wire.GroupCommand:
		return d.dispatchCommand(cf, fo)
	default:
		return errcode.UnsupportedFobjectProperty
	}
}

func (d *CodeBlockDispatcher) dispatchSetting(cf wire.ClientFrame, fo *fobject.Fobject) error {
	if len(cf.Payload) < 1 {
		return errcode.Param
	}
	fo.Enabled = cf.Payload[0] != 0
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupSetting, cf.PropID(), true, nil, nil)
	return nil
}

func (d *CodeBlockDispatcher) dispatchMonitoring(cf wire.ClientFrame, fo *fobject.Fobject) error {
	w := &event.Writer{}
	w.AddU32(uint32(d.Block.BusHandle))
	w.AddU32(uint32(d.Block.Channel))
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupMonitoring, cf.PropID(), true, nil, w.Bytes())
	return nil
}

func (d *CodeBlockDispatcher) dispatchCommand(cf wire.ClientFrame, fo *fobject.Fobject) error {
	switch cf.PropID() {
	case CbCmdDetach:
		if err := d.Block.Detach(); err != nil {
			return err
		}
	default:
		return errcode.UnsupportedFobjectProperty
	}
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupCommand, cf.PropID(), true, nil, nil)
	return nil
}
