// Package databus implements the streaming/capture engine described in
// spec.md §4.7: a channel table, a fixed-capacity capture ring, a 6-state
// machine, and edge-triggered acquisition.
package databus

import (
	"math"

	"faraabin/errcode"
	"faraabin/event"
	"faraabin/fobject"
	"faraabin/vartype"
	"faraabin/x/critsec"
	"faraabin/x/mathx"
)

// State is one of the DataBus's six run states (spec.md §4.7).
type State uint8

const (
	Off State = iota
	Stream
	Timer
	TrigWait
	TrigWindow
	CaptureSend
)

// ChannelKind distinguishes what a channel samples (spec.md §4.7).
type ChannelKind uint8

const (
	ChannelVar ChannelKind = iota
	ChannelEntityNumerical
	ChannelCodeBlock
)

// TrigType is the edge/level condition a trigger channel evaluates
// (spec.md §4.7).
type TrigType uint8

const (
	TrigChange TrigType = iota
	TrigRising
	TrigFalling
)

// TrigSource records what caused a trigger to fire.
type TrigSource uint8

const (
	TrigSourceChannel TrigSource = iota
	TrigSourceAPI
	TrigSourceManual
)

// Channel is one slot of the channel table (spec.md §3).
type Channel struct {
	Kind          ChannelKind
	ItemHandle    fobject.Handle
	ItemParamSize int // ≤ 8
	VartypeArch   *vartype.VarType
	PrimitiveID   vartype.PrimitiveID
	Enabled       bool

	source     func() []byte // reads current raw bytes, ≤8 bytes, little endian as received
	lastValue  [8]byte
	hasLast    bool

	// codeblock reverse-pointer bookkeeping (spec.md §4.7 attach_codeblock_to_channel).
	codeblockAttached bool
}

// CaptureSample is the fixed wire-level sample record (spec.md §9: "keep
// this exact wire layout").
type CaptureSample struct {
	FobjectKind fobject.Kind
	FobjectHandle fobject.Handle
	Timestamp   uint32
	Value       [8]byte
}

// TriggerConfig holds the trigger source channel, condition, and state
// (spec.md §3).
type TriggerConfig struct {
	SourceChannel int
	Type          TrigType
	Threshold     [8]byte
	LastSampled   [8]byte
	APIEnable     bool

	IsTriggered  bool
	TrigTimestamp uint32
	Source        TrigSource
}

// DataBus is one streaming/capture engine instance (spec.md §3, §4.7).
type DataBus struct {
	Fobject fobject.Fobject

	Channels []Channel // len == ChannelQty

	captureRing      []CaptureSample
	captureHead      int
	captureCount     int
	captureOverwrite bool

	State State

	StreamDivideBy, TimerDivideBy, TrigDivideBy int
	streamCounter, timerCounter, trigCounter    int

	Trigger TriggerConfig

	TrigWindowMs     uint32 // TimeAfterTrigMs
	TimerWindowMs    uint32
	windowChrono     uint32 // now() at which the current window started
	windowDurationMs uint32

	CaptureSendingQty int
	captureSendingCnt int
	captureReplayIdx  int

	attachedCount  int
	availableCount int

	sec critsec.Section

	now func() uint32 // port tick, injected
}

// New constructs a DataBus with channelQty channels, all initially empty.
func New(handle fobject.Handle, channelQty int, sec critsec.Section, now func() uint32, captureCapacity int) *DataBus {
	if sec == nil {
		sec = critsec.Noop{}
	}
	return &DataBus{
		Fobject:     fobject.Fobject{Kind: fobject.KindDataBus, Handle: handle, Initialized: true, Enabled: true},
		Channels:    make([]Channel, channelQty),
		captureRing: make([]CaptureSample, captureCapacity),
		sec:         sec,
		now:         now,
	}
}

// AttachVariableToChannel implements attach_variable_to_channel (spec.md
// §4.7). source reads the variable's current raw bytes (≤8 bytes).
func (d *DataBus) AttachVariableToChannel(ch int, source func() []byte, size int, arch *vartype.VarType, primID vartype.PrimitiveID, kind ChannelKind) error {
	if ch < 0 || ch >= len(d.Channels) {
		return errcode.ChannelOutOfRange
	}
	if source == nil {
		return errcode.ActionWithNullReference
	}
	d.Channels[ch] = Channel{
		Kind: kind, ItemHandle: fobject.Null, ItemParamSize: size,
		VartypeArch: arch, PrimitiveID: primID, Enabled: true, source: source,
	}
	d.attachedCount++
	d.availableCount++
	return nil
}

// AttachCodeblockToChannel additionally verifies exclusive CodeBlock
// ownership before binding (spec.md §4.7).
func (d *DataBus) AttachCodeblockToChannel(ch int, already bool) error {
	if ch < 0 || ch >= len(d.Channels) {
		return errcode.ChannelOutOfRange
	}
	if already {
		return errcode.CodeBlockAlreadyAttached
	}
	d.Channels[ch] = Channel{Kind: ChannelCodeBlock, Enabled: true, codeblockAttached: true}
	d.attachedCount++
	d.availableCount++
	return nil
}

// AttachFirstFree finds the first free slot and delegates to
// AttachVariableToChannel (spec.md §4.7 "attach_* (no channel)").
func (d *DataBus) AttachFirstFree(source func() []byte, size int, arch *vartype.VarType, primID vartype.PrimitiveID, kind ChannelKind) (int, error) {
	for i := range d.Channels {
		if d.Channels[i].source == nil && !d.Channels[i].codeblockAttached {
			return i, d.AttachVariableToChannel(i, source, size, arch, primID, kind)
		}
	}
	return -1, errcode.Overflow
}

// DetachFromChannel clears a slot (spec.md §4.7).
func (d *DataBus) DetachFromChannel(ch int) error {
	if ch < 0 || ch >= len(d.Channels) {
		return errcode.ChannelOutOfRange
	}
	c := &d.Channels[ch]
	wasAttached := c.source != nil || c.codeblockAttached
	*c = Channel{}
	if wasAttached {
		d.attachedCount--
		d.availableCount--
	}
	return nil
}

// DetachAllChannels detaches every channel in turn.
func (d *DataBus) DetachAllChannels() {
	for i := range d.Channels {
		d.DetachFromChannel(i)
	}
}

// ---- state transitions (spec.md §4.7 diagram) ----

func (d *DataBus) clearCaptureRing() {
	d.captureHead, d.captureCount, d.captureOverwrite = 0, 0, false
}

// StartStream transitions Off → Stream. divideBy values below 1 are stored
// as 1, which emits a stream frame on every tick.
func (d *DataBus) StartStream(divideBy int) {
	d.State = Stream
	d.StreamDivideBy = mathx.Max(divideBy, 1)
	d.streamCounter = 0
}

// StartTimer transitions Off → Timer, clearing the capture ring.
func (d *DataBus) StartTimer(divideBy int, windowMs uint32) {
	d.clearCaptureRing()
	d.State = Timer
	d.TimerDivideBy = mathx.Max(divideBy, 1)
	d.TimerWindowMs = windowMs
	d.timerCounter = 0
	d.windowChrono = d.now()
}

// resetTrigger sets the trigger's reset level to the current source value
// (spec.md §4.7 "reset_trigger").
func (d *DataBus) resetTrigger() {
	if d.Trigger.SourceChannel < 0 || d.Trigger.SourceChannel >= len(d.Channels) {
		return
	}
	c := &d.Channels[d.Trigger.SourceChannel]
	if c.source == nil {
		return
	}
	var buf [8]byte
	copy(buf[:], c.source())
	d.Trigger.LastSampled = buf
	c.lastValue = buf
	c.hasLast = true
}

// StartTrigger transitions Off → TrigWait, clearing the capture ring.
func (d *DataBus) StartTrigger(divideBy int, sourceChannel int, typ TrigType, threshold [8]byte, afterTrigMs uint32) {
	d.clearCaptureRing()
	d.State = TrigWait
	d.TrigDivideBy = mathx.Max(divideBy, 1)
	d.trigCounter = 0
	d.Trigger = TriggerConfig{SourceChannel: sourceChannel, Type: typ, Threshold: threshold}
	d.TrigWindowMs = afterTrigMs
	d.resetTrigger()
}

// StartCaptureSend transitions Off → CaptureSend.
func (d *DataBus) StartCaptureSend(itemsQty int) {
	d.State = CaptureSend
	d.CaptureSendingQty = itemsQty
	d.captureSendingCnt = 0
	d.captureReplayIdx = 0
}

// Stop returns to Off from any state (spec.md §4.7).
func (d *DataBus) Stop() {
	d.State = Off
}

// ---- capture ring ----

// pushSample inserts a sample, applying overwrite-on-full (spec.md §3
// invariant, §8 invariant #5). It takes the critical section itself, since
// it may be invoked from a CodeBlock profiler collaborator.
func (d *DataBus) pushSample(s CaptureSample) {
	d.sec.Enter()
	defer d.sec.Leave()

	if len(d.captureRing) == 0 {
		return
	}
	idx := (d.captureHead + d.captureCount) % len(d.captureRing)
	d.captureRing[idx] = s
	if d.captureCount < len(d.captureRing) {
		d.captureCount++
	} else {
		d.captureHead = (d.captureHead + 1) % len(d.captureRing)
		d.captureOverwrite = true
	}
}

// PopCapture removes and returns the oldest queued sample.
func (d *DataBus) PopCapture() (CaptureSample, error) {
	d.sec.Enter()
	defer d.sec.Leave()
	if d.captureCount == 0 {
		return CaptureSample{}, errcode.CaptureQueueEmpty
	}
	s := d.captureRing[d.captureHead]
	d.captureHead = (d.captureHead + 1) % len(d.captureRing)
	d.captureCount--
	return s, nil
}

// CaptureLen reports how many samples are queued.
func (d *DataBus) CaptureLen() int { return d.captureCount }

// sampleChannel builds a CaptureSample from channel ch's current value
// (spec.md §4.7 "Channel sampling").
func (d *DataBus) sampleChannel(ch int, ts uint32) (CaptureSample, bool) {
	c := &d.Channels[ch]
	if !c.Enabled || c.ItemHandle == fobject.Null && c.source == nil {
		return CaptureSample{}, false
	}
	if c.Kind != ChannelVar && c.Kind != ChannelEntityNumerical {
		return CaptureSample{}, false
	}
	raw := c.source()
	var v [8]byte
	n := c.ItemParamSize
	if n > 8 {
		n = 8
	}
	copy(v[:n], raw[:min(n, len(raw))])
	c.lastValue = v
	c.hasLast = true
	return CaptureSample{FobjectKind: fobject.KindDataBus, FobjectHandle: c.ItemHandle, Timestamp: ts, Value: v}, true
}

// evaluateTrigger implements spec.md §4.7 "Trigger detection" for the
// configured trigger channel, returning whether it fired on this sample.
func (d *DataBus) evaluateTrigger(ts uint32) bool {
	tc := &d.Trigger
	if tc.SourceChannel < 0 || tc.SourceChannel >= len(d.Channels) {
		return false
	}
	c := &d.Channels[tc.SourceChannel]
	if c.source == nil {
		return false
	}
	raw := c.source()
	var cur [8]byte
	copy(cur[:], raw[:min(8, len(raw))])

	fired := evalCondition(tc.Type, c.PrimitiveID, cur, tc.LastSampled, tc.Threshold)
	tc.LastSampled = cur
	c.lastValue = cur
	c.hasLast = true
	if fired {
		tc.IsTriggered = true
		tc.TrigTimestamp = ts
		tc.Source = TrigSourceChannel
	}
	return fired
}

// evalCondition compares cur against last/threshold per spec.md §4.7:
// Change fires on inequality, float types included; Rising/Falling compare
// against threshold with the channel's signedness.
func evalCondition(typ TrigType, prim vartype.PrimitiveID, cur, last, threshold [8]byte) bool {
	if prim.Float() {
		switch typ {
		case TrigRising:
			return asFloat(prim, cur) > asFloat(prim, threshold) && asFloat(prim, last) <= asFloat(prim, threshold)
		case TrigFalling:
			return asFloat(prim, cur) < asFloat(prim, threshold) && asFloat(prim, last) >= asFloat(prim, threshold)
		default: // Change is "unreliable" but preserved per spec.md §9 open question
			return asFloat(prim, cur) != asFloat(prim, last)
		}
	}
	if prim.Signed() {
		cv, lv, tv := asSignedInt(prim, cur), asSignedInt(prim, last), asSignedInt(prim, threshold)
		switch typ {
		case TrigRising:
			return cv > tv && lv <= tv
		case TrigFalling:
			return cv < tv && lv >= tv
		default:
			return cv != lv
		}
	}
	cv, lv, tv := asUnsignedInt(prim, cur), asUnsignedInt(prim, last), asUnsignedInt(prim, threshold)
	switch typ {
	case TrigRising:
		return cv > tv && lv <= tv
	case TrigFalling:
		return cv < tv && lv >= tv
	default:
		return cv != lv
	}
}

func asUnsignedInt(prim vartype.PrimitiveID, b [8]byte) uint64 {
	n := prim.Size()
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func asSignedInt(prim vartype.PrimitiveID, b [8]byte) int64 {
	n := prim.Size()
	u := asUnsignedInt(prim, b)
	if n == 8 {
		return int64(u)
	}
	signBit := uint64(1) << (8*n - 1)
	if u&signBit != 0 {
		u |= ^uint64(0) << (8 * n)
	}
	return int64(u)
}

func asFloat(prim vartype.PrimitiveID, b [8]byte) float64 {
	u := asUnsignedInt(prim, b)
	if prim == vartype.F32 {
		return float64(math.Float32frombits(uint32(u)))
	}
	return math.Float64frombits(u)
}

// EmitFn is how DataBus hands a ready frame to the event serializer
// without importing it directly (keeps databus free of wire-encoding
// concerns beyond the raw capture-sample layout).
type EmitFn func(kind FrameKind, payload []byte)

// FrameKind distinguishes the events a DataBus Run() tick can emit.
type FrameKind uint8

const (
	FrameStreamValue FrameKind = iota
	FrameCaptureEnd
	FrameStateChange
	FrameCaptureSample
)

// Run executes one tick of the per-tick dispatch described in spec.md
// §4.7. channelsAvailable reports whether at least one attached channel is
// enabled. emit receives every frame this tick produces, pre-serialized by
// the caller-supplied Writer-producing closures passed via buildFrame.
func (d *DataBus) Run(channelsAvailable bool, emit EmitFn, buildFrame func(kind FrameKind, w *event.Writer)) {
	ts := d.now()
	if !d.Fobject.Enabled || !channelsAvailable {
		return
	}
	switch d.State {
	case Stream:
		d.streamCounter++
		if d.streamCounter >= d.StreamDivideBy {
			d.streamCounter = 0
			w := &event.Writer{}
			buildFrame(FrameStreamValue, w)
			for i := range d.Channels {
				c := &d.Channels[i]
				if !c.Enabled || c.source == nil {
					continue
				}
				raw := c.source()
				w.AddBytes(raw)
			}
			emit(FrameStreamValue, w.Bytes())
		}
	case Timer:
		d.timerCounter++
		if d.timerCounter >= d.TimerDivideBy {
			d.timerCounter = 0
			for i := range d.Channels {
				if s, ok := d.sampleChannel(i, ts); ok {
					d.pushSample(s)
				}
			}
		}
		if ts-d.windowChrono >= d.TimerWindowMs {
			d.State = Off
			w := &event.Writer{}
			buildFrame(FrameCaptureEnd, w)
			emit(FrameCaptureEnd, w.Bytes())
		}
	case TrigWait:
		d.trigCounter++
		if d.trigCounter >= d.TrigDivideBy {
			d.trigCounter = 0
			for i := range d.Channels {
				if s, ok := d.sampleChannel(i, ts); ok {
					d.pushSample(s)
				}
			}
			if d.evaluateTrigger(ts) {
				d.windowChrono = ts
				d.State = TrigWindow
				w := &event.Writer{}
				buildFrame(FrameStateChange, w)
				w.AddU8(uint8(TrigWindow))
				w.AddU8(uint8(d.Trigger.Source))
				w.AddU32(d.Trigger.TrigTimestamp)
				emit(FrameStateChange, w.Bytes())
			}
		}
	case TrigWindow:
		d.trigCounter++
		if d.trigCounter >= d.TrigDivideBy {
			d.trigCounter = 0
			for i := range d.Channels {
				if s, ok := d.sampleChannel(i, ts); ok {
					d.pushSample(s)
				}
			}
		}
		if ts-d.windowChrono >= d.TrigWindowMs {
			d.State = Off
			w := &event.Writer{}
			buildFrame(FrameCaptureEnd, w)
			emit(FrameCaptureEnd, w.Bytes())
		}
	case CaptureSend:
		sent := 0
		const captureSendItems = 4 // CAPTURE_SEND_ITEMS
		for sent < captureSendItems {
			s, err := d.PopCapture()
			if err != nil {
				d.State = Off
				w := &event.Writer{}
				buildFrame(FrameStateChange, w)
				w.AddU8(uint8(Off))
				emit(FrameStateChange, w.Bytes())
				return
			}
			w := &event.Writer{}
			w.AddU8(uint8(s.FobjectKind))
			w.AddU32(uint32(s.FobjectHandle))
			w.AddU32(s.Timestamp)
			w.AddBytes(s.Value[:])
			emit(FrameCaptureSample, w.Bytes())
			sent++
			d.captureSendingCnt++
			if d.captureSendingCnt >= d.CaptureSendingQty {
				d.State = Off
				w2 := &event.Writer{}
				buildFrame(FrameStateChange, w2)
				w2.AddU8(uint8(Off))
				emit(FrameStateChange, w2.Bytes())
				return
			}
		}
	}
}

// RunCodeBlockSample is the dedicated entry point CodeBlock profiler
// collaborators use to push samples while respecting DataBus state
// (spec.md §4.7 "Channel sampling").
func (d *DataBus) RunCodeBlockSample(ch int, handle fobject.Handle, ts uint32, value [8]byte) error {
	if d.State == Off {
		return nil
	}
	if ch < 0 || ch >= len(d.Channels) || !d.Channels[ch].codeblockAttached {
		return errcode.ChannelOutOfRange
	}
	d.pushSample(CaptureSample{FobjectKind: fobject.KindCodeBlock, FobjectHandle: handle, Timestamp: ts, Value: value})
	return nil
}
