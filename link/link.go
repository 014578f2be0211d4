// Package link implements the Link Handler described in spec.md §4.9: the
// RX byte pump that decodes inbound frames and dispatches them, and the TX
// flush loop that drains the event serializer's ring into the port.
package link

import (
	"faraabin/dict"
	"faraabin/errcode"
	"faraabin/event"
	"faraabin/fobject"
	"faraabin/mcu"
	"faraabin/port"
	"faraabin/ring"
	"faraabin/wire"
	"faraabin/x/chrono"
	"faraabin/x/critsec"
)

// DictSendingMode mirrors the source's latch for an in-flight SendAllDict
// (spec.md §4.9 SendAllDict).
type DictSendingMode struct {
	SendFlag  bool
	ReqSeq    uint8
	IsBlocking bool
}

// Dispatcher resolves (kind, group, id) to a handler; registered per
// fobject kind by the owning package (databus, function, mcu, …) so link
// stays free of downstream-package knowledge beyond the Handle type.
type Dispatcher interface {
	// Dispatch handles one inbound frame addressed to a known fobject.
	// It returns errcode.UnsupportedFobjectProperty if (group, id) is not
	// recognized for this fobject's kind.
	Dispatch(cf wire.ClientFrame, fo *fobject.Fobject) error
}

// KindResolver maps a handle to its fobject header and its Dispatcher,
// substituting the MCU singleton when handle is wire.McuHandle
// (spec.md §4.9 Dispatch).
type KindResolver interface {
	Resolve(handle fobject.Handle) (*fobject.Fobject, Dispatcher, bool)
}

// Handler is the Link Handler instance (spec.md §4.9).
type Handler struct {
	rxScratch    []byte
	rxLimit      int
	newFrame     bool // IsNewFrameDetected
	pendingFrame wire.ClientFrame
	pendingValid bool

	tx      *ring.Buffer
	txSec   critsec.Section
	prt     port.Port
	txBytes uint32

	resolver KindResolver
	mcu      *mcu.Mcu
	serial   *event.Serializer

	now func() uint32

	// dictSending latches an in-flight SendAllDict (spec.md §4.9). In
	// non-blocking mode Run advances dictJobItems by exactly one entry per
	// cooperative tick via stepDictJob; blocking mode never touches these
	// fields, since McuDispatcher paces itself inline.
	dictSending  DictSendingMode
	dictJobItems []dict.Item
	dictJobPos   int
	dictJobEmit  func(dict.Item)
	dictJobDone  func()
}

// New wires a Handler around the port, TX ring, resolver, and serializer
// the runtime package assembles at Init (spec.md §3 global lifecycle).
func New(prt port.Port, tx *ring.Buffer, txSec critsec.Section, resolver KindResolver, m *mcu.Mcu, serial *event.Serializer, now func() uint32) *Handler {
	if txSec == nil {
		txSec = critsec.Noop{}
	}
	return &Handler{
		rxLimit:  len(prt.RXBuffer()),
		tx:       tx,
		txSec:    txSec,
		prt:      prt,
		resolver: resolver,
		mcu:      m,
		serial:   serial,
		now:      now,
	}
}

// OnByte implements on_byte(b) (spec.md §4.9 RX path). It may be called
// from an interrupt or equivalent preemptor. It appends to the RX scratch
// slice and updates the RX counters in mcu.Stats; on EOF it dispatches a
// priority frame inline, or stores a low-priority frame in pendingFrame and
// sets newFrame. While newFrame is set, OnByte leaves pendingFrame alone and
// only counts an override error until Run clears the latch. Neither OnByte
// nor Run takes a critical section.
func (h *Handler) OnByte(b byte) {
	if h.newFrame {
		// A previously decoded frame is still queued: latch override and
		// reset scratch (spec.md §4.9).
		h.mcu.Stats.RXOverrideErrors++
		h.rxScratch = h.rxScratch[:0]
		return
	}
	if b != wire.EOF {
		h.rxScratch = append(h.rxScratch, b)
		if len(h.rxScratch) > h.rxLimit {
			h.mcu.Stats.RXMinSizeErrors++ // oversize counted alongside min-size per §7 decode-error bucket
			h.rxScratch = h.rxScratch[:0]
		}
		return
	}
	frameLen := len(h.rxScratch)
	cf, err := wire.DecodeClientFrame(h.rxScratch)
	h.rxScratch = h.rxScratch[:0]
	if err != nil {
		h.countDecodeError(err)
		return
	}
	h.mcu.Stats.RXFrames++
	h.mcu.Stats.RXBytes += uint32(frameLen)
	if cf.Priority() {
		h.dispatch(cf)
	} else {
		h.pendingFrame = cf
		h.pendingValid = true
		h.newFrame = true
	}
}

func (h *Handler) countDecodeError(err error) {
	switch err {
	case errcode.EscapeError:
		h.mcu.Stats.RXEscapeErrors++
	case errcode.ChecksumErr:
		h.mcu.Stats.RXChecksumErrors++
	case errcode.MinimumSize:
		h.mcu.Stats.RXMinSizeErrors++
	}
}

// dispatch resolves the fobject (substituting the MCU singleton for
// wire.McuHandle) and hands the frame to its Dispatcher (spec.md §4.9
// Dispatch). Unknown handles/properties never panic.
func (h *Handler) dispatch(cf wire.ClientFrame) {
	handle := fobject.Handle(cf.FobjectHandle)
	fo, d, ok := h.resolver.Resolve(handle)
	if !ok || fo == nil {
		return
	}
	if !fo.Initialized {
		h.serial.SendEvent(&h.mcu.Fobject, h.now(), cf.ReqSeq(), event.SeverityError, uninitializedFaraabinEventID, uint32(cf.FobjectHandle), nil)
		return
	}
	if err := d.Dispatch(cf, fo); err == errcode.UnsupportedFobjectProperty {
		h.serial.SendEvent(fo, h.now(), cf.ReqSeq(), event.SeverityError, unsupportedPropertyEventID, uint32(cf.FobjectProp), nil)
	}
}

const (
	uninitializedFaraabinEventID = 0xFF01
	unsupportedPropertyEventID   = 0xFF02
)

// StartDictJob latches a non-blocking SendAllDict job (spec.md §4.9): Run
// advances it by exactly one item per cooperative tick via emit, invoking
// onDone once every item has been emitted (or immediately, if items is
// empty).
func (h *Handler) StartDictJob(items []dict.Item, reqSeq uint8, emit func(dict.Item), onDone func()) {
	h.dictSending = DictSendingMode{SendFlag: true, ReqSeq: reqSeq, IsBlocking: false}
	h.dictJobItems = items
	h.dictJobPos = 0
	h.dictJobEmit = emit
	h.dictJobDone = onDone
	if len(items) == 0 {
		h.finishDictJob()
	}
}

func (h *Handler) stepDictJob() {
	if !h.dictSending.SendFlag || h.dictJobPos >= len(h.dictJobItems) {
		return
	}
	h.dictJobEmit(h.dictJobItems[h.dictJobPos])
	h.dictJobPos++
	if h.dictJobPos >= len(h.dictJobItems) {
		h.finishDictJob()
	}
}

func (h *Handler) finishDictJob() {
	h.dictSending = DictSendingMode{}
	h.dictJobItems = nil
	h.dictJobEmit = nil
	done := h.dictJobDone
	h.dictJobDone = nil
	if done != nil {
		done()
	}
}

// Run executes one cooperative tick of the Link Handler (spec.md §4.9,
// §5 scheduling model): processes at most one deferred low-priority
// frame, then drives the TX flush loop.
func (h *Handler) Run() {
	if h.newFrame && h.pendingValid {
		cf := h.pendingFrame
		h.pendingValid = false
		h.newFrame = false
		h.dispatch(cf)
	}
	h.mcu.CheckLiveTimeout(h.now())
	h.stepDictJob()
	h.flush(false)
}

// flush implements the TX path (spec.md §4.9): drains the ring while there
// is data, in both blocking and non-blocking mode — the ring only ever
// hands back one contiguous run at a time, so a single Flush() call can
// leave a wrapped remainder behind that still needs sending this tick.
// blocking additionally spins on the port's "sending" indicator up to a
// chrono-derived timeout (spec.md §5 "Cancellation / timeouts") instead of
// giving up as soon as the port is busy: the wait ends once 2*byteTimeMs
// ticks per byte still queued have passed since flush started.
func (h *Handler) flush(blocking bool) {
	const byteTimeMs = 1 // BYTE_TIME_MS, port/board-specific in the original; kept conservative here
	start := h.now()
	for {
		if h.prt.IsSending() {
			if !blocking {
				return
			}
			if h.now()-start >= uint32(h.tx.Len())*byteTimeMs*2 {
				return
			}
			continue
		}
		chunk := h.tx.Flush()
		if len(chunk) == 0 {
			return
		}
		h.txBytes += uint32(len(chunk))
		err := h.prt.Send(chunk)
		h.mcu.Stats.TXFrames++ // one count per Send call, whether or not it succeeds
		if err != nil {
			return // a failed Send ends this flush; no exception event is emitted for it
		}
		h.mcu.Stats.TXBytes += uint32(len(chunk))
	}
}

// FlushBlocking is the exported entry point for SendAllDict's blocking
// mode (spec.md §4.9 SendAllDict): "enumerate every dict inline flushing
// after each".
func (h *Handler) FlushBlocking() { h.flush(true) }

// ChronoSource exposes this handler's tick source as a chrono.Source,
// for collaborators (DataBus windows, function-engine pacing) that need
// one without importing port directly.
func (h *Handler) ChronoSource() chrono.Source { return tickSource(h.now) }

type tickSource func() uint32

func (t tickSource) Tick() uint32 { return t() }
