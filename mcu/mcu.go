// Package mcu implements the MCU singleton fobject described in spec.md
// §4.10: process-wide statistics, session bookkeeping, and the thin
// system-event helpers the link handler and other components call into.
package mcu

import "faraabin/fobject"

// Stats holds the RX/TX counters spec.md §4.10 requires.
type Stats struct {
	RXFrames, RXBytes               uint32
	RXEscapeErrors, RXChecksumErrors uint32
	RXOverrideErrors, RXMinSizeErrors uint32
	TXFrames, TXBytes uint32
}

// FeatureFlags and StatusFlags are the 32-bit bitmaps exposed in Live
// frames (spec.md §6.3).
type FeatureFlags uint32
type StatusFlags uint32

const (
	FeatureDefaultDataBus FeatureFlags = 1 << iota
	FeatureDefaultEventGroup
	FeatureMcuCLI
	FeatureBufferOverflowNotify
	FeaturePassword
	FeatureCPUProfiler
	FeatureStateMachine
	FeatureUnity
	FeatureAllowBlockingDict
)

const (
	StatusMcuReset StatusFlags = 1 << iota
	StatusNewDict
	StatusBufferOverflow
	StatusDictOverflow
	StatusNullDict
	StatusUnexpectedDict
	StatusProfilerSendOvf
	StatusProfilerListOvf
	StatusProfilerDepthOvf
	StatusProfilerDuplicate
	StatusDictDuplicate
	StatusUninitializedFaraabin
)

// Mcu is the singleton fobject addressed on the wire by handle 0xFFFFFFFF
// (spec.md §4.10).
type Mcu struct {
	Fobject fobject.Fobject

	Stats Stats

	Features FeatureFlags
	Status   StatusFlags

	HostConnected bool
	SessionID     uint32
	BootTimeMs    uint32

	UserTerminalCb func(data []byte)

	liveTimeoutMs    uint32
	lastLiveTickMs   uint32
	cpuProfilerSend  bool
}

// New constructs the singleton, already initialized (spec.md §3 lifecycle
// step 2 happens alongside registry/link setup in faraabin/runtime).
func New(bootTimeMs uint32, features FeatureFlags, liveTimeoutMs uint32) *Mcu {
	return &Mcu{
		Fobject:       fobject.Fobject{Kind: fobject.KindMcu, Handle: fobject.McuHandle, Initialized: true, Enabled: true},
		Features:      features,
		BootTimeMs:    bootTimeMs,
		liveTimeoutMs: liveTimeoutMs,
	}
}

// TouchLive refreshes the host-connected chrono (spec.md §4.9 SendLive).
func (m *Mcu) TouchLive(nowMs uint32) {
	m.HostConnected = true
	m.lastLiveTickMs = nowMs
}

// CheckLiveTimeout implements the "Live timeout" design note (spec.md
// §4.9): on expiry, is_host_connected clears.
func (m *Mcu) CheckLiveTimeout(nowMs uint32) {
	if m.HostConnected && nowMs-m.lastLiveTickMs >= m.liveTimeoutMs {
		m.HostConnected = false
	}
}

func (m *Mcu) SetStatus(f StatusFlags)   { m.Status |= f }
func (m *Mcu) ClearStatus(f StatusFlags) { m.Status &^= f }
func (m *Mcu) HasStatus(f StatusFlags) bool { return m.Status&f != 0 }
