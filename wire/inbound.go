package wire

import "faraabin/errcode"

// AccessType distinguishes read from write requests (spec.md §3 ClientFrame
// control bit layout, bit6).
type AccessType uint8

const (
	AccessRead  AccessType = 0
	AccessWrite AccessType = 1
)

// PropGroup enumerates the five wire property groups (spec.md §6.2).
type PropGroup uint8

const (
	GroupDict       PropGroup = 0
	GroupSetting    PropGroup = 1
	GroupMonitoring PropGroup = 2
	GroupCommand    PropGroup = 3
	GroupEvent      PropGroup = 4
)

// ClientFrame is a parsed inbound (host→device) frame (spec.md §3).
type ClientFrame struct {
	Control       uint8
	FobjectProp   uint8
	FobjectHandle uint32
	Payload       []byte
}

// ReqSeq returns bits [0..3] of the control byte.
func (c ClientFrame) ReqSeq() uint8 { return c.Control & 0x0F }

// Priority returns bit 5 of the control byte (high priority ⇒ dispatch
// synchronously from on_byte; low priority ⇒ deferred to the next Run()).
func (c ClientFrame) Priority() bool { return c.Control&(1<<5) != 0 }

// Access returns bit 6 of the control byte: 0=read, 1=write.
func (c ClientFrame) Access() AccessType {
	if c.Control&(1<<6) != 0 {
		return AccessWrite
	}
	return AccessRead
}

// Group returns bits [5..7] of the property byte.
func (c ClientFrame) Group() PropGroup { return PropGroup(c.FobjectProp >> 5) }

// PropID returns bits [0..4] of the property byte.
func (c ClientFrame) PropID() uint8 { return c.FobjectProp & 0x1F }

// Property packs a group and id into the wire property byte.
func Property(group PropGroup, id uint8) uint8 {
	return uint8(group)<<5 | (id & 0x1F)
}

// DecodeClientFrame destuffs, checksum-verifies, and parses a single
// inbound frame. raw must contain exactly one frame's bytes, NOT including
// the terminating EOF (the caller strips it while accumulating on_byte).
func DecodeClientFrame(raw []byte) (ClientFrame, error) {
	body, err := Destuff(raw)
	if err != nil {
		return ClientFrame{}, err
	}
	if len(body) < MinInboundLen {
		return ClientFrame{}, errcode.MinimumSize
	}
	if !VerifyChecksum(body) {
		return ClientFrame{}, errcode.ChecksumErr
	}
	payload := body[:len(body)-1] // drop checksum byte
	cf := ClientFrame{
		Control:       payload[0],
		FobjectProp:   payload[1],
		FobjectHandle: le32(payload[2:6]),
	}
	if len(payload) > 6 {
		cf.Payload = append([]byte(nil), payload[6:]...)
	}
	return cf, nil
}

// EncodeClientFrame builds the wire bytes for an inbound frame, for use by
// host-side tooling (cmd/hostsim) and tests that need to synthesize
// requests against the link handler. It returns the stuffed bytes
// including the terminating EOF.
func EncodeClientFrame(cf ClientFrame) []byte {
	body := make([]byte, 0, 6+len(cf.Payload)+1)
	body = append(body, cf.Control, cf.FobjectProp)
	body = appendLE32(body, cf.FobjectHandle)
	body = append(body, cf.Payload...)
	body = append(body, Checksum(body))
	out := Stuff(body)
	out = append(out, EOF)
	return out
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func appendLE32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
