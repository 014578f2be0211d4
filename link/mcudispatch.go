package link

import (
	"faraabin/dict"
	"faraabin/errcode"
	"faraabin/event"
	"faraabin/fobject"
	"faraabin/mcu"
	"faraabin/wire"
)

// MCU command property ids (spec.md §4.9 "MCU commands").
const (
	McuCmdPing             uint8 = 0
	McuCmdSendLive         uint8 = 1
	McuCmdSendWhoAmI       uint8 = 2
	McuCmdSendAllDict      uint8 = 3
	McuCmdResetCpu         uint8 = 4
	McuCmdClearFlagBufferOvf uint8 = 5
)

// WhoAmIInfo is the static identity the port/config layer supplies for
// the SendWhoAmI response (spec.md §8 scenario S2).
type WhoAmIInfo struct {
	Endianness      uint8
	Major, Minor    uint8
	RxBufferSize    uint32
	TickToNsCoeff   uint32
	TickTop         uint32
	Name, Info      string
}

// McuDispatcher implements Dispatcher for the MCU singleton
// (spec.md §4.9 dispatch table row "Mcu").
type McuDispatcher struct {
	Mcu      *mcu.Mcu
	Serial   *event.Serializer
	Now      func() uint32
	Info     WhoAmIInfo
	Registry *fobject.Registry
	Walker   *dict.Walker
	Password uint32 // configured password; compared only when FeaturePassword is set

	tx       *ringFlusher
	startJob func(items []dict.Item, reqSeq uint8, emit func(dict.Item), onDone func())
}

// ringFlusher holds the blocking-flush callback McuDispatcher uses for
// SendAllDict; the runtime wiring sets this to Handler.FlushBlocking.
type ringFlusher struct{ flush func() }

// SetFlusher wires the blocking-flush callback used by SendAllDict.
func (d *McuDispatcher) SetFlusher(flush func()) { d.tx = &ringFlusher{flush: flush} }

// SetDictJobStarter wires the non-blocking, one-item-per-tick pacing
// callback used by SendAllDict (spec.md §4.9 SendAllDict, non-blocking
// mode); the runtime wiring sets this to Handler.StartDictJob.
func (d *McuDispatcher) SetDictJobStarter(start func(items []dict.Item, reqSeq uint8, emit func(dict.Item), onDone func())) {
	d.startJob = start
}

func (d *McuDispatcher) Dispatch(cf wire.ClientFrame, fo *fobject.Fobject) error {
	switch cf.Group() {
	case wire.GroupCommand:
		return d.dispatchCommand(cf, fo)
	default:
		return errcode.UnsupportedFobjectProperty
	}
}

func (d *McuDispatcher) dispatchCommand(cf wire.ClientFrame, fo *fobject.Fobject) error {
	switch cf.PropID() {
	case McuCmdPing:
		d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupMonitoring, McuCmdPing, true, nil, cf.Payload)
	case McuCmdSendLive:
		d.Mcu.TouchLive(d.Now())
		w := &event.Writer{}
		w.AddU32(uint32(d.Mcu.Status))
		w.AddU32(d.Mcu.SessionID)
		d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupMonitoring, McuCmdSendLive, true, nil, w.Bytes())
	case McuCmdSendWhoAmI:
		d.sendWhoAmI(cf, fo)
	case McuCmdSendAllDict:
		d.sendAllDict(cf, fo)
	case McuCmdResetCpu:
		// accepted with no effect: McuDispatcher holds no port, so
		// Port.ResetMCU is not called and no response is sent
	case McuCmdClearFlagBufferOvf:
		d.Mcu.ClearStatus(mcu.StatusBufferOverflow)
	default:
		return errcode.UnsupportedFobjectProperty
	}
	return nil
}

func (d *McuDispatcher) sendWhoAmI(cf wire.ClientFrame, fo *fobject.Fobject) {
	w := &event.Writer{}
	w.AddU8(d.Info.Endianness)
	w.AddU8(d.Info.Major)
	w.AddU8(d.Info.Minor)
	w.AddU32(uint32(d.Mcu.Features))
	w.AddU32(uint32(d.Registry.Count()))
	w.AddU32(uint32(d.countDictFrames()))
	w.AddU32(d.Info.RxBufferSize)
	w.AddU32(d.Info.TickToNsCoeff)
	w.AddU32(d.Info.TickTop)
	w.AddU32(d.Mcu.BootTimeMs)
	w.AddU16(uint16(len(d.Info.Name)))
	w.AddBytes([]byte(d.Info.Name))
	w.AddU16(uint16(len(d.Info.Info)))
	w.AddBytes([]byte(d.Info.Info))
	w.AddU8(0)
	d.Serial.SendResponse(fo, d.Now(), cf.ReqSeq(), wire.GroupMonitoring, McuCmdSendWhoAmI, true, nil, w.Bytes())
}

func (d *McuDispatcher) countDictFrames() int {
	total := 0
	d.Walker.Run(func(int, int, int, bool, dict.Emittable) { total++ })
	return total
}

// sendAllDict implements spec.md §4.9 SendAllDict: password gate, ring
// clear, then either an inline blocking enumeration or a latched
// non-blocking job Run() paces one item per tick, both via faraabin/dict,
// both terminated by DictEnd and a cleared NewDict status.
func (d *McuDispatcher) sendAllDict(cf wire.ClientFrame, fo *fobject.Fobject) {
	blocking := false
	if len(cf.Payload) >= 5 {
		blocking = cf.Payload[0] != 0
		password := le32(cf.Payload[1:5])
		if d.Mcu.Features&mcu.FeaturePassword != 0 && password != d.Password {
			d.Serial.SendEvent(fo, d.Now(), cf.ReqSeq(), event.SeverityError, passwordErrorEventID, 0, nil)
			return
		}
	}
	d.Serial.ClearRing()
	if blocking {
		d.runBlockingDictEnumeration(cf.ReqSeq())
		return
	}
	d.startNonBlockingDictEnumeration(cf.ReqSeq())
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

const passwordErrorEventID = 0xFF03
const dictEndEventID = 0xFF04

func (d *McuDispatcher) emitDictItem(reqSeq uint8, it dict.Item) {
	e := it.Emittable
	d.Serial.SendDict(e.Fobject(), d.Now(), reqSeq, uint16(it.DictIdx), uint16(it.TotalSub), uint16(it.CurSubIdx), it.IsLast, func(w *event.Writer) {
		e.EmitSelf(w)
	})
}

// finishDictEnumeration implements the SendAllDict completion side
// effects common to both modes (spec.md §4.9, invariant #8): terminal
// DictEnd, then clearing the sendingDict guard and NewDict status.
func (d *McuDispatcher) finishDictEnumeration(reqSeq uint8) {
	d.Serial.SendEvent(&d.Mcu.Fobject, d.Now(), reqSeq, event.SeverityInfo, dictEndEventID, 0, nil)
	d.Registry.SetSendingDict(false)
	d.Registry.AckNewDict()
}

// runBlockingDictEnumeration implements "In blocking mode: enumerate
// every dict inline, flushing after each" (spec.md §4.9 SendAllDict).
func (d *McuDispatcher) runBlockingDictEnumeration(reqSeq uint8) {
	d.Registry.SetSendingDict(true)
	for _, it := range d.Walker.Items() {
		d.emitDictItem(reqSeq, it)
		if d.tx != nil {
			d.tx.flush()
		}
	}
	d.finishDictEnumeration(reqSeq)
}

// startNonBlockingDictEnumeration latches a DictSendingMode job the link
// handler's Run() advances by one dict entry per cooperative tick
// (spec.md §2/§4.9: "enumerate one dict per Run() iteration").
func (d *McuDispatcher) startNonBlockingDictEnumeration(reqSeq uint8) {
	d.Registry.SetSendingDict(true)
	items := d.Walker.Items()
	if d.startJob == nil {
		// No pacing collaborator wired (e.g. a test using McuDispatcher
		// standalone): fall back to emitting inline rather than dropping
		// the dictionary silently.
		for _, it := range items {
			d.emitDictItem(reqSeq, it)
		}
		d.finishDictEnumeration(reqSeq)
		return
	}
	d.startJob(items, reqSeq, func(it dict.Item) {
		d.emitDictItem(reqSeq, it)
	}, func() {
		d.finishDictEnumeration(reqSeq)
	})
}
