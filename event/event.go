// Package event implements the Event Serializer described in spec.md §4.5:
// it turns severities, printf-style text, enum values, and dictionary
// bodies into outbound frames written into the link handler's TX ring.
// Every entry point goes through a single payload-generator primitive so
// the checksum and byte-stuffing stay centralized (spec.md §4.5 "payload
// generator pattern").
package event

import (
	"faraabin/errcode"
	"faraabin/fobject"
	"faraabin/ring"
	"faraabin/wire"
	"faraabin/x/critsec"
	"faraabin/x/fmtx"
)

// Severity matches the severity byte carried by send_event/send_printf.
type Severity uint8

const (
	SeverityTrace Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityFatal
)

// TextEventMaxReentrance bounds concurrent in-flight send_printf calls
// (spec.md §4.5, §9 "unbounded printf re-entrancy").
const TextEventMaxReentrance = 4

// NodeSeq is the process-wide 4-bit sequence incremented per emitted frame
// (spec.md §4.5, §5 ordering guarantees).
type NodeSeq struct{ v uint8 }

func (n *NodeSeq) Next() uint8 {
	n.v = (n.v + 1) & 0x0F
	return n.v
}

// Serializer writes outbound frames into ring, computing sequence numbers
// and guarding multi-write frame assembly with a critical section so a
// preemptor (e.g. an IRQ calling into DataBus capture) cannot interleave
// partial frames (spec.md §5 "ordering guarantees").
type Serializer struct {
	ring *ring.Buffer
	node NodeSeq
	sec  critsec.Section

	reentrance int // current send_printf nesting depth
}

// New builds a Serializer writing into r, guarded by sec (nil is valid:
// critsec.Noop semantics via a plain nil check).
func New(r *ring.Buffer, sec critsec.Section) *Serializer {
	return &Serializer{ring: r, sec: sec}
}

// ClearRing discards whatever is currently queued in the TX ring
// (spec.md §4.9 SendAllDict: cleared before enumeration starts).
func (s *Serializer) ClearRing() { s.ring.Clear() }

func (s *Serializer) enter() {
	if s.sec != nil {
		s.sec.Enter()
	}
}
func (s *Serializer) leave() {
	if s.sec != nil {
		s.sec.Leave()
	}
}

// IsAllowEvent reports whether fo may currently emit (spec.md §4.5: "all
// serializer entry points short-circuit when is_allow_event is false").
func IsAllowEvent(fo *fobject.Fobject, runtimeEnabled, dictSending bool) bool {
	return fo.Enabled && runtimeEnabled && !dictSending
}

// frameHeader bundles the bookkeeping common to every emitted frame.
type frameHeader struct {
	typ           wire.FrameType
	isEnd         bool
	reqSeq        uint8
	fobjectHandle fobject.Handle
	extHandle     *fobject.Handle
	prop          uint8
	timestamp     uint32
}

// emit assembles and writes one outbound frame. It is the single choke
// point every public entry point funnels through, so the critical section
// and sequence bookkeeping live in exactly one place.
func (s *Serializer) emit(fo *fobject.Fobject, h frameHeader, payload []byte) {
	s.enter()
	defer s.leave()

	fSeq := fo.NextSeq()
	nSeq := s.node.Next()

	var ext *uint32
	if h.extHandle != nil {
		v := uint32(*h.extHandle)
		ext = &v
	}

	f := wire.OutboundFrame{
		Type:           h.typ,
		IsEnd:          h.isEnd,
		ReqSeq:         h.reqSeq,
		FobjectSeq:     fSeq,
		NodeSeq:        nSeq,
		Timestamp:      h.timestamp,
		FobjectHandle:  uint32(h.fobjectHandle),
		ExtendedHandle: ext,
		FobjectProp:    h.prop,
		Payload:        payload,
	}
	s.ring.Put(wire.Encode(f))
}

// SendEvent implements send_event: severity + event id + user param, with
// an optional payload generator appended raw (spec.md §4.5 table row 1).
func (s *Serializer) SendEvent(fo *fobject.Fobject, timestamp uint32, reqSeq uint8, severity Severity, eventID uint16, userParam uint32, extra []byte) {
	payload := make([]byte, 0, 7+len(extra))
	payload = append(payload, byte(severity))
	payload = append(payload, byte(eventID), byte(eventID>>8))
	payload = appendLE32(payload, userParam)
	payload = append(payload, extra...)
	s.emit(fo, frameHeader{
		typ:           wire.FrameEvent,
		isEnd:         true,
		reqSeq:        reqSeq,
		fobjectHandle: fo.Handle,
		prop:          wire.Property(wire.GroupEvent, 0),
		timestamp:     timestamp,
	}, payload)
}

// SendPuts implements send_puts: a literal byte string at severity
// (spec.md §4.5 table row 3).
func (s *Serializer) SendPuts(fo *fobject.Fobject, timestamp uint32, severity Severity, msg string) {
	payload := make([]byte, 0, 3+len(msg))
	payload = append(payload, byte(severity), 0, 0) // event_id = 0
	payload = append(payload, msg...)
	s.emit(fo, frameHeader{
		typ: wire.FrameEvent, isEnd: true, fobjectHandle: fo.Handle,
		prop: wire.Property(wire.GroupEvent, 0), timestamp: timestamp,
	}, payload)
}

// SendPrintf implements send_printf (spec.md §4.5 table row 2): bounded
// re-entrancy, each re-entry formatting into its own scratch (Go's fmt
// already allocates per call, so the only thing to model explicitly is the
// depth cap and its error code).
func (s *Serializer) SendPrintf(fo *fobject.Fobject, timestamp uint32, severity Severity, format string, args ...any) error {
	if s.reentrance >= TextEventMaxReentrance {
		return errcode.MaxPrintfReentrant
	}
	s.reentrance++
	defer func() { s.reentrance-- }()

	text := fmtx.Sprintf(format, args...)
	s.SendPuts(fo, timestamp, severity, text)
	return nil
}

// SendEventEnum implements send_event_enum: severity + event id + the
// handle of an enum VarType describing the value's meaning (spec.md §4.5
// table row 4).
func (s *Serializer) SendEventEnum(fo *fobject.Fobject, timestamp uint32, severity Severity, eventID uint16, enumTypeHandle fobject.Handle) {
	payload := make([]byte, 0, 7)
	payload = append(payload, byte(severity))
	payload = append(payload, byte(eventID), byte(eventID>>8))
	payload = appendLE32(payload, uint32(enumTypeHandle))
	s.emit(fo, frameHeader{
		typ: wire.FrameEvent, isEnd: true, fobjectHandle: fo.Handle,
		prop: wire.Property(wire.GroupEvent, 0), timestamp: timestamp,
	}, payload)
}

// Generator writes a response body directly via the primitive add_*
// helpers (spec.md §4.5 "payload generator pattern"). Implementations
// build the payload bytes; checksum/stuffing remain centralized in emit.
type Generator func(w *Writer)

// Writer is the primitive byte/int accumulator handed to a Generator.
type Writer struct{ buf []byte }

func (w *Writer) AddU8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) AddU16(v uint16) { w.buf = append(w.buf, byte(v), byte(v>>8)) }
func (w *Writer) AddU32(v uint32) { w.buf = appendLE32(w.buf, v) }
func (w *Writer) AddU64(v uint64) {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}
func (w *Writer) AddBytes(b []byte)  { w.buf = append(w.buf, b...) }
func (w *Writer) AddString(s string) { w.buf = append(w.buf, s...); w.buf = append(w.buf, 0) }
func (w *Writer) Bytes() []byte      { return w.buf }

// SendDict implements send_dict (spec.md §4.5 table row 5, §4.6): a
// response frame carrying the dictionary iterator's bookkeeping header
// plus a caller-supplied body generator.
func (s *Serializer) SendDict(fo *fobject.Fobject, timestamp uint32, reqSeq uint8, curDictIdx, totalSub, curSubIdx uint16, isEnd bool, gen Generator) {
	w := &Writer{}
	w.AddU16(curDictIdx)
	w.AddU16(totalSub)
	w.AddU16(curSubIdx)
	if gen != nil {
		gen(w)
	}
	s.emit(fo, frameHeader{
		typ: wire.FrameResponse, isEnd: isEnd, reqSeq: reqSeq,
		fobjectHandle: fo.Handle, prop: wire.Property(wire.GroupDict, 0),
		timestamp: timestamp,
	}, w.Bytes())
}

// SendResponse emits a generic command/setting/monitoring response frame
// with an arbitrary generated payload and optional extended handle
// (used by MCU/Function/DataBus command replies).
func (s *Serializer) SendResponse(fo *fobject.Fobject, timestamp uint32, reqSeq uint8, group wire.PropGroup, propID uint8, isEnd bool, extHandle *fobject.Handle, payload []byte) {
	s.emit(fo, frameHeader{
		typ: wire.FrameResponse, isEnd: isEnd, reqSeq: reqSeq,
		fobjectHandle: fo.Handle, extHandle: extHandle,
		prop: wire.Property(group, propID), timestamp: timestamp,
	}, payload)
}

func appendLE32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
