// Package port defines the collaborator contract the Faraabin core calls
// into (spec.md §6.1): firmware identity strings, the TX/RX backing
// buffers, byte transmission, and the free-running tick source. Concrete
// implementations live in build-tag-isolated subpackages (e.g.
// faraabin/port/uartport for tinygo hardware builds); host builds and
// tests use a mock.
package port

// Port is implemented once per target (spec.md §6.1).
type Port interface {
	// FWName is exposed via WhoAmI.
	FWName() string
	// FWInfo is arbitrary, optionally JSON.
	FWInfo() string
	// TXBuffer is the core's outbound ring buffer backing storage.
	TXBuffer() []byte
	// RXBuffer is the link-handler RX scratch backing storage.
	RXBuffer() []byte
	// Send hands off a contiguous run of bytes to the transport.
	Send(b []byte) error
	// IsSending reports the transport's "busy" indicator for TX pacing.
	IsSending() bool
	// ResetMCU triggers a system reset; may not return.
	ResetMCU()
	// Tick returns the free-running counter backing faraabin/x/chrono.
	Tick() uint32
}
