package link

import (
	"faraabin/errcode"
	"faraabin/event"
	"faraabin/fobject"
	"faraabin/function"
	"faraabin/wire"
)

// Function command property ids (spec.md §4.9 dispatch table row "Function").
const (
	FnCmdRun    uint8 = 0
	FnCmdStop   uint8 = 1
	FnCmdPause  uint8 = 2
	FnCmdResume uint8 = 3
)

// Event ids for the function engine's extended system events
// (spec.md §4.8 Run()).
const (
	EventInfoRun  uint16 = 0x0100
	EventInfoStop uint16 = 0x0101
)

// FunctionDispatcher implements Dispatcher for a single registered
// Function (spec.md §4.9 dispatch table row "Function"). The object
// handle a command targets travels in the frame payload's first 4 bytes
// (little-endian), matching the extended-handle shape used on responses.
type FunctionDispatcher struct {
	Fn     *function.Function
	Engine *function.Engine
	Serial *event.Serializer
	Now    func() uint32
}

func (d *FunctionDispatcher) Dispatch(cf wire.ClientFrame, fo *fobject.Fobject) error {
	if cf.Group() != wire.GroupCommand {
		return errcode.UnsupportedFobjectProperty
	}
	if len(cf.Payload) < 4 {
		return errcode.ParamQty
	}
	obj := fobject.Handle(le32(cf.Payload[:4]))
	argText := string(cf.Payload[4:])

	switch cf.PropID() {
	case FnCmdRun:
		status, err := d.Engine.Start(d.Fn, obj, argText)
		if status == function.Started {
			h := obj
			d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupCommand, FnCmdRun, true, &h, nil)
		} else {
			d.Serial.SendEvent(fo, d.Now(), cf.ReqSeq(), event.SeverityError, uint16(EventInfoRun), uint32(obj), nil)
			return err
		}
	case FnCmdStop:
		return d.Engine.Stop(d.Fn, obj)
	case FnCmdPause:
		return d.Engine.Pause(d.Fn, obj)
	case FnCmdResume:
		return d.Engine.Resume(d.Fn, obj)
	default:
		return errcode.UnsupportedFobjectProperty
	}
	return nil
}

// ReportCompletions translates finished function-engine slots into the
// extended system events spec.md §4.8 Run() describes. Called by the
// runtime glue once per tick after Engine.Run.
func ReportCompletions(serial *event.Serializer, fo *fobject.Fobject, now func() uint32, completions []function.Completion) {
	for _, c := range completions {
		h := c.Object
		w := &event.Writer{}
		w.AddU8(uint8(c.Result))
		w.AddU32(c.ElapsedUs)
		serial.SendResponse(fo, now(), 0, wire.GroupEvent, 0, true, &h, w.Bytes())
	}
}
