// cmd/hostsim/main.go is a host-side REPL that drives an in-process
// faraabin/runtime.Runtime over the wire codec, the way a real Faraabin
// Studio client drives a device over a serial port. It uses bus to decouple
// the "link RX" producer from its console display loop, and shlex to
// tokenize typed commands.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/google/shlex"

	"faraabin/bus"
	"faraabin/config"
	"faraabin/fobject"
	"faraabin/runtime"
	"faraabin/wire"
	"faraabin/x/critsec"
)

func tFrameIn() bus.Topic { return bus.T("hostsim", "link", "frame_in") }
func tLineOut() bus.Topic { return bus.T("hostsim", "console", "line") }

// loopbackPort feeds whatever the runtime writes on Send straight back into
// the bus as inbound frame bytes, simulating a device looped back to its
// own host tool for the purposes of this demo. Send's chunk is a raw ring
// flush, not necessarily one frame, so loopbackPort reassembles on the
// EOF terminator the way a real host-side deframer would.
type loopbackPort struct {
	tx, rx  []byte
	conn    *bus.Connection
	tick    uint32
	pending []byte
}

func (p *loopbackPort) FWName() string   { return "hostsim-target" }
func (p *loopbackPort) FWInfo() string   { return `{"sim":"hostsim"}` }
func (p *loopbackPort) TXBuffer() []byte { return p.tx }
func (p *loopbackPort) RXBuffer() []byte { return p.rx }
func (p *loopbackPort) IsSending() bool  { return false }
func (p *loopbackPort) ResetMCU()        {}
func (p *loopbackPort) Tick() uint32     { p.tick++; return p.tick }

func (p *loopbackPort) Send(b []byte) error {
	p.pending = append(p.pending, b...)
	for {
		i := indexByte(p.pending, wire.EOF)
		if i < 0 {
			return nil
		}
		frame := append([]byte(nil), p.pending[:i]...)
		p.pending = p.pending[i+1:]
		p.conn.Publish(p.conn.NewMessage(tFrameIn(), frame))
	}
}

func indexByte(b []byte, target byte) int {
	for i, v := range b {
		if v == target {
			return i
		}
	}
	return -1
}

func main() {
	b := bus.NewBus(8)
	conn := b.NewConnection("hostsim")
	defer conn.Disconnect()

	p := &loopbackPort{tx: make([]byte, 1024), rx: make([]byte, 256), conn: conn}
	rt := runtime.Init(p, config.Default(), critsec.Noop{})

	frames := conn.Subscribe(tFrameIn())
	go func() {
		for msg := range frames.Channel() {
			raw := msg.Payload.([]byte)
			of, err := wire.DecodeOutbound(raw)
			if err != nil {
				conn.Publish(conn.NewMessage(tLineOut(), fmt.Sprintf("<- decode error: %v", err)))
				continue
			}
			conn.Publish(conn.NewMessage(tLineOut(), fmt.Sprintf(
				"<- type=%d handle=0x%X prop=0x%02X payload=% X", of.Type, of.FobjectHandle, of.FobjectProp, of.Payload)))
		}
	}()

	lines := conn.Subscribe(tLineOut())
	go func() {
		for msg := range lines.Channel() {
			fmt.Println(msg.Payload.(string))
		}
	}()

	fmt.Println("faraabin hostsim — commands: ping | whoami | dict | quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		args, err := shlex.Split(scanner.Text())
		if err != nil || len(args) == 0 {
			continue
		}
		switch args[0] {
		case "quit", "exit":
			return
		case "ping":
			sendCommand(rt, 0)
		case "whoami":
			sendCommand(rt, 2)
		case "dict":
			sendCommand(rt, 3)
		default:
			fmt.Println("unknown command:", args[0])
		}
	}
}

// sendCommand encodes a synchronous MCU group-command request and feeds it
// byte-by-byte through the runtime's RX path, mirroring how a real UART ISR
// would deliver bytes one at a time.
func sendCommand(rt *runtime.Runtime, propID uint8) {
	cf := wire.ClientFrame{
		Control:       1 << 5, // priority: synchronous dispatch
		FobjectProp:   wire.Property(wire.GroupCommand, propID),
		FobjectHandle: uint32(fobject.McuHandle),
	}
	frame := wire.EncodeClientFrame(cf)
	for _, bt := range frame {
		rt.OnByte(bt)
	}
	rt.Run()
}
