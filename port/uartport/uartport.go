//go:build tinygo

// Package uartport implements faraabin/port.Port over a real UART using
// github.com/jangala-dev/tinygo-uartx, the way the teacher's rp2 resource
// provider wraps the same driver for its HAL serial ports.
package uartport

import (
	"context"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"machine"
)

// Port adapts a uartx.UART to faraabin/port.Port.
type Port struct {
	u    *uartx.UART
	name string
	info string

	txBuf, rxBuf []byte
	sending      bool

	tickSource func() uint32
}

// Config configures the underlying UART the same way the teacher's
// provider does (baud rate plus TX/RX pin assignment).
type Config struct {
	Name, Info   string
	BaudRate     uint32
	TX, RX       machine.Pin
	TXBufSize    int
	RXBufSize    int
	Tick         func() uint32
}

// New configures hw and returns a ready Port.
func New(hw *uartx.UART, cfg Config) (*Port, error) {
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: cfg.BaudRate,
		TX:       cfg.TX,
		RX:       cfg.RX,
	}); err != nil {
		return nil, err
	}
	txSize, rxSize := cfg.TXBufSize, cfg.RXBufSize
	if txSize <= 0 {
		txSize = 1024
	}
	if rxSize <= 0 {
		rxSize = 256
	}
	return &Port{
		u: hw, name: cfg.Name, info: cfg.Info,
		txBuf: make([]byte, txSize), rxBuf: make([]byte, rxSize),
		tickSource: cfg.Tick,
	}, nil
}

func (p *Port) FWName() string   { return p.name }
func (p *Port) FWInfo() string   { return p.info }
func (p *Port) TXBuffer() []byte { return p.txBuf }
func (p *Port) RXBuffer() []byte { return p.rxBuf }

func (p *Port) Send(b []byte) error {
	p.sending = true
	defer func() { p.sending = false }()
	_, err := p.u.Write(b)
	return err
}

func (p *Port) IsSending() bool { return p.sending }

func (p *Port) ResetMCU() { machine.CPUReset() }

func (p *Port) Tick() uint32 {
	if p.tickSource != nil {
		return p.tickSource()
	}
	return 0
}

// Pump reads whatever bytes are currently available and forwards them to
// onByte, mirroring the teacher's uart_worker reader loop but synchronous
// and allocation-free for the link handler's OnByte RX path.
func (p *Port) Pump(ctx context.Context, onByte func(byte)) error {
	n, err := p.u.RecvSomeContext(ctx, p.rxBuf)
	for i := 0; i < n; i++ {
		onByte(p.rxBuf[i])
	}
	return err
}
