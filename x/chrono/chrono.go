// Package chrono wraps the port-provided free-running tick counter into
// the small elapsed-time helpers the rest of the core uses for timeouts
// and window expiry (spec.md §4.9 "Live timeout", §4.7 window durations,
// §5 "flush-with-blocking" cancellation).
package chrono

// Source is the minimal port surface chrono needs: a monotonic,
// wrapping, free-running tick counter. The tick-to-nanosecond coefficient
// advertised via WhoAmI is not part of this interface.
type Source interface {
	Tick() uint32
}

// Chrono measures elapsed ticks since a Start call, tolerating uint32
// wraparound the same way the port's free-running counter does.
type Chrono struct {
	src   Source
	start uint32
	armed bool
}

// New builds a Chrono reading ticks from src.
func New(src Source) *Chrono { return &Chrono{src: src} }

// Start (re)arms the chrono at the current tick.
func (c *Chrono) Start() { c.start = c.src.Tick(); c.armed = true }

// Elapsed returns ticks since Start. Zero if never started.
func (c *Chrono) Elapsed() uint32 {
	if !c.armed {
		return 0
	}
	return c.src.Tick() - c.start // wraparound-safe: unsigned subtraction
}

// Expired reports whether Elapsed has reached at least durationTicks.
func (c *Chrono) Expired(durationTicks uint32) bool {
	return c.armed && c.Elapsed() >= durationTicks
}
