package event

import (
	"testing"

	"faraabin/fobject"
	"faraabin/ring"
	"faraabin/wire"
	"faraabin/x/critsec"
)

func newTestSerializer(capacity int) (*Serializer, *ring.Buffer) {
	r := ring.New(make([]byte, capacity), critsec.Noop{})
	return New(r, critsec.Noop{}), r
}

func drainFrame(t *testing.T, r *ring.Buffer) wire.OutboundFrame {
	t.Helper()
	var all []byte
	for {
		chunk := r.Flush()
		if len(chunk) == 0 {
			break
		}
		all = append(all, chunk...)
	}
	// strip trailing EOF
	if len(all) == 0 || all[len(all)-1] != wire.EOF {
		t.Fatalf("expected EOF-terminated frame, got %v", all)
	}
	f, err := wire.DecodeOutbound(all[:len(all)-1])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return f
}

func TestSendEventRoundTrip(t *testing.T) {
	s, r := newTestSerializer(256)
	fo := &fobject.Fobject{Kind: fobject.KindContainer, Handle: 7, Enabled: true}
	s.SendEvent(fo, 100, 0, SeverityInfo, 42, 0xDEADBEEF, nil)
	f := drainFrame(t, r)
	if f.Type != wire.FrameEvent || !f.IsEnd || f.FobjectHandle != 7 {
		t.Fatalf("unexpected frame: %+v", f)
	}
	if f.Payload[0] != byte(SeverityInfo) {
		t.Fatalf("expected severity byte, got %v", f.Payload)
	}
}

// Invariant #7: per-fobject sequence is monotonic mod 16.
func TestPerFobjectSeqMonotonicMod16(t *testing.T) {
	s, r := newTestSerializer(4096)
	fo := &fobject.Fobject{Kind: fobject.KindContainer, Handle: 1, Enabled: true}
	var seqs []uint8
	for i := 0; i < 20; i++ {
		s.SendPuts(fo, 0, SeverityDebug, "x")
		f := drainFrame(t, r)
		seqs = append(seqs, f.FobjectSeq)
	}
	for i, seq := range seqs {
		want := uint8((i + 1) % 16)
		if seq != want {
			t.Fatalf("seq[%d] = %d want %d", i, seq, want)
		}
	}
}

func TestSendPrintfReentranceCap(t *testing.T) {
	s, r := newTestSerializer(4096)
	fo := &fobject.Fobject{Kind: fobject.KindContainer, Handle: 1, Enabled: true}

	s.reentrance = TextEventMaxReentrance
	if err := s.SendPrintf(fo, 0, SeverityError, "x"); err == nil {
		t.Fatal("expected MaxPrintfReentrant error at cap")
	}
	s.reentrance = 0
	if err := s.SendPrintf(fo, 0, SeverityError, "value=%d", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := drainFrame(t, r)
	if string(f.Payload[3:]) != "value=5" {
		t.Fatalf("got payload %q", f.Payload[3:])
	}
}

func TestSendDictHeaderFields(t *testing.T) {
	s, r := newTestSerializer(4096)
	fo := &fobject.Fobject{Kind: fobject.KindVarType, Handle: 3, Enabled: true}
	s.SendDict(fo, 0, 9, 0, 5, 2, false, func(w *Writer) {
		w.AddString("member")
	})
	f := drainFrame(t, r)
	if f.Type != wire.FrameResponse || f.IsEnd {
		t.Fatalf("unexpected frame: %+v", f)
	}
	curDictIdx := uint16(f.Payload[0]) | uint16(f.Payload[1])<<8
	totalSub := uint16(f.Payload[2]) | uint16(f.Payload[3])<<8
	curSubIdx := uint16(f.Payload[4]) | uint16(f.Payload[5])<<8
	if curDictIdx != 0 || totalSub != 5 || curSubIdx != 2 {
		t.Fatalf("got %d %d %d", curDictIdx, totalSub, curSubIdx)
	}
}
