package databus

import (
	"testing"

	"faraabin/event"
	"faraabin/vartype"
	"faraabin/x/critsec"
)

func tick(start uint32) func() uint32 {
	t := start
	return func() uint32 { return t }
}

func TestAttachDetachCounts(t *testing.T) {
	d := New(1, 4, critsec.Noop{}, tick(0), 16)
	v := uint32(7)
	src := func() []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }
	if err := d.AttachVariableToChannel(0, src, 4, nil, vartype.U32, ChannelVar); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if d.attachedCount != 1 || d.availableCount != 1 {
		t.Fatalf("attached=%d available=%d", d.attachedCount, d.availableCount)
	}
	if err := d.DetachFromChannel(0); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if d.attachedCount != 0 || d.availableCount != 0 {
		t.Fatalf("attached=%d available=%d after detach", d.attachedCount, d.availableCount)
	}
}

func TestAttachChannelOutOfRange(t *testing.T) {
	d := New(1, 2, critsec.Noop{}, tick(0), 16)
	if err := d.AttachVariableToChannel(5, func() []byte { return nil }, 4, nil, vartype.U32, ChannelVar); err == nil {
		t.Fatal("expected ChannelOutOfRange")
	}
}

// Invariant #5: capture ring of capacity N fed M>N items retains newest N in order.
func TestCaptureRingRetainsNewest(t *testing.T) {
	d := New(1, 1, critsec.Noop{}, tick(0), 3)
	for i := 0; i < 5; i++ {
		d.pushSample(CaptureSample{Timestamp: uint32(i)})
	}
	if d.CaptureLen() != 3 {
		t.Fatalf("expected 3 retained, got %d", d.CaptureLen())
	}
	var got []uint32
	for {
		s, err := d.PopCapture()
		if err != nil {
			break
		}
		got = append(got, s.Timestamp)
	}
	want := []uint32{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

// S4 — DataBus streaming.
func TestScenarioS4_Streaming(t *testing.T) {
	now := tick(0)
	d := New(1, 4, critsec.Noop{}, now, 16)
	var v uint32 = 99
	d.AttachVariableToChannel(0, func() []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }, 4, nil, vartype.U32, ChannelVar)
	d.StartStream(5)

	var streamFrames int
	emit := func(kind FrameKind, payload []byte) {
		if kind == FrameStreamValue {
			streamFrames++
		}
	}
	build := func(kind FrameKind, w *event.Writer) {}
	for i := 0; i < 25; i++ {
		d.Run(true, emit, build)
	}
	if streamFrames != 5 {
		t.Fatalf("expected 5 stream frames over 25 ticks at divide-by-5, got %d", streamFrames)
	}
}

// S5 — DataBus rising-edge trigger.
func TestScenarioS5_RisingTrigger(t *testing.T) {
	values := []int32{0, 5, 9, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12, 12}
	idx := 0
	tcounter := uint32(0)
	now := func() uint32 { return tcounter }

	d := New(1, 4, critsec.Noop{}, now, 64)
	read := func() []byte {
		v := values[idx]
		if idx < len(values)-1 {
			idx++
		}
		return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	}
	d.AttachVariableToChannel(0, read, 4, nil, vartype.I32, ChannelVar)

	var threshold [8]byte
	th := int32(10)
	threshold[0], threshold[1], threshold[2], threshold[3] = byte(th), byte(th>>8), byte(th>>16), byte(th>>24)
	d.StartTrigger(1, 0, TrigRising, threshold, 10)

	var stateChanges, captureEnds int
	emit := func(kind FrameKind, payload []byte) {
		switch kind {
		case FrameStateChange:
			stateChanges++
		case FrameCaptureEnd:
			captureEnds++
		}
	}
	build := func(kind FrameKind, w *event.Writer) {}

	for i := 0; i < 30; i++ {
		tcounter++
		d.Run(true, emit, build)
	}

	if stateChanges != 1 {
		t.Fatalf("expected trigger to fire exactly once, got %d state-change emits", stateChanges)
	}
	if captureEnds != 1 {
		t.Fatalf("expected window to close exactly once, got %d", captureEnds)
	}
	if d.State != Off {
		t.Fatalf("expected return to Off, got %v", d.State)
	}
	if d.CaptureLen() == 0 {
		t.Fatal("expected capture ring to retain pre-trigger-through-window samples")
	}
}

func TestTriggerNeverFiresWhenAlwaysAboveThreshold(t *testing.T) {
	tcounter := uint32(0)
	now := func() uint32 { return tcounter }
	d := New(1, 2, critsec.Noop{}, now, 64)
	var v int32 = 20
	d.AttachVariableToChannel(0, func() []byte { return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)} }, 4, nil, vartype.I32, ChannelVar)

	var threshold [8]byte
	th := int32(10)
	threshold[0] = byte(th)
	d.StartTrigger(1, 0, TrigRising, threshold, 10)
	d.Trigger.LastSampled[0] = byte(th + 1) // force last already above threshold

	var fires int
	emit := func(kind FrameKind, payload []byte) {
		if kind == FrameStateChange {
			fires++
		}
	}
	build := func(kind FrameKind, w *event.Writer) {}
	for i := 0; i < 10; i++ {
		tcounter++
		d.Run(true, emit, build)
	}
	if fires != 0 {
		t.Fatalf("expected no trigger fire, got %d", fires)
	}
}

func TestStopReturnsToOffFromAnyState(t *testing.T) {
	d := New(1, 1, critsec.Noop{}, tick(0), 4)
	d.StartStream(1)
	d.Stop()
	if d.State != Off {
		t.Fatalf("expected Off, got %v", d.State)
	}
}
