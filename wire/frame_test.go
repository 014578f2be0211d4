package wire

import (
	"bytes"
	"testing"

	"faraabin/errcode"
)

func TestStuffDestuffRoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x01, 0x02, 0x03},
		{EOF, ESC, 0x00, EOF},
		{},
		{ESC, ESC, EOF},
	}
	for _, c := range cases {
		stuffed := Stuff(c)
		got, err := Destuff(stuffed)
		if err != nil {
			t.Fatalf("destuff(%v): %v", c, err)
		}
		if !bytes.Equal(got, c) {
			t.Fatalf("roundtrip mismatch: in=%v out=%v", c, got)
		}
	}
}

func TestDestuffBadEscape(t *testing.T) {
	_, err := Destuff([]byte{ESC, 0x01})
	if err != errcode.EscapeError {
		t.Fatalf("expected EscapeError, got %v", err)
	}
	_, err = Destuff([]byte{0x01, ESC})
	if err != errcode.EscapeError {
		t.Fatalf("expected EscapeError for trailing ESC, got %v", err)
	}
}

func TestClientFrameRoundTrip(t *testing.T) {
	cf := ClientFrame{
		Control:       0b0010_0001,
		FobjectProp:   Property(GroupCommand, 5),
		FobjectHandle: McuHandle,
		Payload:       []byte{0xDE, 0xAD, EOF, ESC}, // includes reserved bytes to force stuffing
	}
	wireBytes := EncodeClientFrame(cf)
	if wireBytes[len(wireBytes)-1] != EOF {
		t.Fatalf("expected trailing EOF")
	}
	decoded, err := DecodeClientFrame(wireBytes[:len(wireBytes)-1])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Control != cf.Control || decoded.FobjectProp != cf.FobjectProp ||
		decoded.FobjectHandle != cf.FobjectHandle || !bytes.Equal(decoded.Payload, cf.Payload) {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", decoded, cf)
	}
}

// S1 — Encode/decode sanity (spec.md §8).
func TestScenarioS1_PingResponseRoundTrip(t *testing.T) {
	cf := ClientFrame{
		Control:       0b0000_0010,
		FobjectProp:   0x50, // Monitoring group, id=16
		FobjectHandle: McuHandle,
		Payload:       []byte{0x55},
	}
	wireBytes := EncodeClientFrame(cf)
	if wireBytes[len(wireBytes)-1] != EOF {
		t.Fatalf("expected encoded bytes to end with EOF")
	}
	decoded, err := DecodeClientFrame(wireBytes[:len(wireBytes)-1])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := ClientFrame{Control: 0b0000_0010, FobjectProp: 0x50, FobjectHandle: McuHandle, Payload: []byte{0x55}}
	if decoded.Control != want.Control || decoded.FobjectProp != want.FobjectProp ||
		decoded.FobjectHandle != want.FobjectHandle || !bytes.Equal(decoded.Payload, want.Payload) {
		t.Fatalf("got %+v want %+v", decoded, want)
	}
}

func TestChecksumErrorDetected(t *testing.T) {
	cf := ClientFrame{Control: 1, FobjectProp: 2, FobjectHandle: 3, Payload: []byte{9}}
	wireBytes := EncodeClientFrame(cf)
	body := wireBytes[:len(wireBytes)-1]
	unstuffed, _ := Destuff(body)
	unstuffed[len(unstuffed)-1] ^= 0xFF // corrupt checksum
	corrupted := Stuff(unstuffed)
	if _, err := DecodeClientFrame(corrupted); err != errcode.ChecksumErr {
		t.Fatalf("expected ChecksumErr, got %v", err)
	}
}

func TestMinimumSizeRejected(t *testing.T) {
	if _, err := DecodeClientFrame([]byte{1, 2, 3}); err != errcode.MinimumSize {
		t.Fatalf("expected MinimumSize, got %v", err)
	}
}

func TestOutboundRoundTrip(t *testing.T) {
	ext := uint32(0x1234)
	f := OutboundFrame{
		Type:           FrameResponse,
		IsEnd:          true,
		ReqSeq:         3,
		FobjectSeq:     7,
		NodeSeq:        9,
		Timestamp:      0xAABBCCDD,
		FobjectHandle:  42,
		ExtendedHandle: &ext,
		FobjectProp:    Property(GroupMonitoring, 1),
		Payload:        []byte{1, 2, 3},
	}
	wireBytes := Encode(f)
	got, err := DecodeOutbound(wireBytes[:len(wireBytes)-1])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != f.Type || got.IsEnd != f.IsEnd || got.ReqSeq != f.ReqSeq ||
		got.FobjectSeq != f.FobjectSeq || got.NodeSeq != f.NodeSeq ||
		got.Timestamp != f.Timestamp || got.FobjectHandle != f.FobjectHandle ||
		got.ExtendedHandle == nil || *got.ExtendedHandle != ext ||
		got.FobjectProp != f.FobjectProp || !bytes.Equal(got.Payload, f.Payload) {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", got, f)
	}
}

func TestOutboundRoundTripNoExtendedHandle(t *testing.T) {
	f := OutboundFrame{Type: FrameEvent, FobjectHandle: 1, FobjectProp: 0x04}
	wireBytes := Encode(f)
	got, err := DecodeOutbound(wireBytes[:len(wireBytes)-1])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ExtendedHandle != nil {
		t.Fatalf("expected no extended handle")
	}
}
