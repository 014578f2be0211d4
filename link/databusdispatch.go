package link

import (
	"faraabin/databus"
	"faraabin/errcode"
	"faraabin/event"
	"faraabin/fobject"
	"faraabin/wire"
)

// DataBus command property ids (spec.md §4.7 states/transitions, §4.9
// dispatch table row "DataBus").
const (
	DbCmdStartStream  uint8 = 0
	DbCmdStartTimer   uint8 = 1
	DbCmdStartTrigger uint8 = 2
	DbCmdCaptureSend  uint8 = 3
	DbCmdStop         uint8 = 4
)

// DataBusDispatcher implements Dispatcher for a single DataBus
// (spec.md §4.9 dispatch table row "DataBus"). Command payloads are
// little-endian-packed parameter lists specific to each command.
type DataBusDispatcher struct {
	DB     *databus.DataBus
	Serial *event.Serializer
	Now    func() uint32
}

func (d *DataBusDispatcher) Dispatch(cf wire.ClientFrame, fo *fobject.Fobject) error {
	switch cf.Group() {
	case wire.GroupCommand:
		return d.dispatchCommand(cf, fo)
	default:
		return errcode.UnsupportedFobjectProperty
	}
}

func (d *DataBusDispatcher) dispatchCommand(cf wire.ClientFrame, fo *fobject.Fobject) error {
	p := cf.Payload
	switch cf.PropID() {
	case DbCmdStartStream:
		if len(p) < 4 {
			return errcode.Param
		}
		d.DB.StartStream(int(le32(p[:4])))
	case DbCmdStartTimer:
		if len(p) < 8 {
			return errcode.Param
		}
		d.DB.StartTimer(int(le32(p[:4])), le32(p[4:8]))
	case DbCmdStartTrigger:
		if len(p) < 1+1+8+4 {
			return errcode.Param
		}
		divideBy := int(p[0])
		srcCh := int(p[1])
		var threshold [8]byte
		copy(threshold[:], p[2:10])
		afterMs := le32(p[10:14])
		d.DB.StartTrigger(divideBy, srcCh, databus.TrigRising, threshold, afterMs)
	case DbCmdCaptureSend:
		if len(p) < 4 {
			return errcode.Param
		}
		d.DB.StartCaptureSend(int(le32(p[:4])))
	case DbCmdStop:
		d.DB.Stop()
	default:
		return errcode.UnsupportedFobjectProperty
	}
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupCommand, cf.PropID(), true, nil, nil)
	return nil
}
