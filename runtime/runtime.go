// Package runtime wires every component into the global lifecycle
// described in spec.md §3: link buffer allocation, registry/MCU/function
// engine construction, primitive vartype registration, and the per-tick
// Run() that fans out to the link handler, DataBus instances, and the
// function engine.
package runtime

import (
	"faraabin/config"
	"faraabin/dict"
	"faraabin/event"
	"faraabin/fobject"
	"faraabin/function"
	"faraabin/link"
	"faraabin/mcu"
	"faraabin/port"
	"faraabin/ring"
	"faraabin/vartype"
	"faraabin/x/critsec"
)

const maxFobjects = 64
const maxConcurrentFunction = 4

// Runtime is the assembled Faraabin core instance (spec.md §2 table:
// "glue (Init/Run)").
type Runtime struct {
	Port     port.Port
	Registry *fobject.Registry
	Mcu      *mcu.Mcu
	Serial   *event.Serializer
	Link     *link.Handler
	Functions *function.Engine

	txRing *ring.Buffer

	dispatchers map[fobject.Handle]link.Dispatcher
	walker      *dict.Walker
	emittables  map[fobject.Handle]dict.Emittable
	functionOwner map[*function.Function]*fobject.Fobject

	sec critsec.Section

	initDone bool
}

// resolver adapts Runtime to link.KindResolver.
type resolver struct{ rt *Runtime }

func (r *resolver) Resolve(h fobject.Handle) (*fobject.Fobject, link.Dispatcher, bool) {
	if h == fobject.McuHandle {
		return &r.rt.Mcu.Fobject, r.rt.dispatchers[fobject.McuHandle], true
	}
	fo := r.rt.Registry.Lookup(h)
	if fo == nil {
		return nil, nil, false
	}
	d, ok := r.rt.dispatchers[h]
	if !ok {
		return fo, nil, false
	}
	return fo, d, true
}

// Init performs spec.md §3 global lifecycle step 2: allocates the link
// buffer, zeroes the registry, constructs the MCU singleton, clears the
// function engine, and registers primitive vartypes. cfg is typically
// produced by faraabin/config.Parse against an embedded boot blob. sec is
// the critical-section primitive guarding the ring and DataBus capture
// insertion (spec.md §5); pass critsec.Noop{} on single-threaded hosts.
func Init(p port.Port, cfg config.BootConfig, sec critsec.Section) *Runtime {
	if sec == nil {
		sec = critsec.Noop{}
	}
	rt := &Runtime{
		Port:        p,
		Registry:    fobject.New(maxFobjects),
		sec:         sec,
		dispatchers:   make(map[fobject.Handle]link.Dispatcher),
		emittables:    make(map[fobject.Handle]dict.Emittable),
		functionOwner: make(map[*function.Function]*fobject.Fobject),
	}

	rt.txRing = ring.New(p.TXBuffer(), sec)
	rt.Serial = event.New(rt.txRing, sec)

	var features mcu.FeatureFlags
	if cfg.FeatureDefaultDataBus {
		features |= mcu.FeatureDefaultDataBus
	}
	if cfg.FeatureDefaultEventGroup {
		features |= mcu.FeatureDefaultEventGroup
	}
	if cfg.FeatureMcuCLI {
		features |= mcu.FeatureMcuCLI
	}
	if cfg.FeatureBufferOverflowNotify {
		features |= mcu.FeatureBufferOverflowNotify
	}
	if cfg.FeaturePassword {
		features |= mcu.FeaturePassword
	}
	if cfg.FeatureCPUProfiler {
		features |= mcu.FeatureCPUProfiler
	}
	if cfg.FeatureStateMachine {
		features |= mcu.FeatureStateMachine
	}
	if cfg.FeatureUnity {
		features |= mcu.FeatureUnity
	}
	if cfg.FeatureAllowBlockingDict {
		features |= mcu.FeatureAllowBlockingDict
	}

	rt.Mcu = mcu.New(p.Tick(), features, cfg.LiveTimeoutMs)
	rt.Functions = function.New(maxConcurrentFunction, p.Tick)

	rt.walker = &dict.Walker{
		Source:    rt.Registry,
		Emittable: func(h fobject.Handle) dict.Emittable { return rt.emittables[h] },
	}

	mcuDispatcher := &link.McuDispatcher{
		Mcu: rt.Mcu, Serial: rt.Serial, Now: p.Tick,
		Info: link.WhoAmIInfo{
			Major: 1, Minor: 0,
			RxBufferSize: uint32(len(p.RXBuffer())),
			Name:         cfg.FirmwareName, Info: cfg.FirmwareInfo,
		},
		Registry: rt.Registry,
		Walker:   rt.walker,
		Password: cfg.Password,
	}
	rt.dispatchers[fobject.McuHandle] = mcuDispatcher

	rt.Link = link.New(p, rt.txRing, sec, &resolver{rt: rt}, rt.Mcu, rt.Serial, p.Tick)
	mcuDispatcher.SetFlusher(rt.Link.FlushBlocking)
	mcuDispatcher.SetDictJobStarter(rt.Link.StartDictJob)

	for id, name := range primitiveNames {
		vt := vartype.NewPrimitive(fobject.Handle(0x1000+uint32(id)), id, name)
		rt.Registry.Add(&vt.Fobject)
	}

	rt.initDone = true
	rt.Serial.SendEvent(&rt.Mcu.Fobject, p.Tick(), 0, event.SeverityInfo, bootEventID, 0, nil)
	return rt
}

// bootEventID marks "init_done = true; boot event enqueued" (spec.md §3
// global lifecycle step 2), mirrored alongside link's own 0xFFxx
// system-event ids.
const bootEventID = 0xFF00

var primitiveNames = map[vartype.PrimitiveID]string{
	vartype.Bool: "bool", vartype.U8: "u8", vartype.I8: "i8",
	vartype.U16: "u16", vartype.I16: "i16",
	vartype.U32: "u32", vartype.I32: "i32",
	vartype.U64: "u64", vartype.I64: "i64",
	vartype.F32: "f32", vartype.F64: "f64",
}

// RegisterFobject appends a user fobject to the registry (spec.md §3
// lifecycle step 3), wiring its dispatcher and dict Emittable view so the
// link handler and dictionary iterator can reach it.
func (rt *Runtime) RegisterFobject(fo *fobject.Fobject, d link.Dispatcher, e dict.Emittable) (fobject.AddStatus, error) {
	status, err := rt.Registry.Add(fo)
	if err != nil {
		return status, err
	}
	if d != nil {
		rt.dispatchers[fo.Handle] = d
	}
	if e != nil {
		rt.emittables[fo.Handle] = e
	}
	return status, nil
}

// RegisterFunction registers a Function fobject and remembers the pairing
// so Run() can translate its engine completions into the extended system
// events spec.md §4.8 describes (scenario S6).
func (rt *Runtime) RegisterFunction(fo *fobject.Fobject, fn *function.Function, d link.Dispatcher, e dict.Emittable) (fobject.AddStatus, error) {
	status, err := rt.RegisterFobject(fo, d, e)
	if err == nil {
		rt.functionOwner[fn] = fo
	}
	return status, err
}

// OnByte forwards to the link handler's RX path (spec.md §4.9); safe to
// call from an interrupt/preemptor per spec.md §5.
func (rt *Runtime) OnByte(b byte) {
	if !rt.initDone {
		return
	}
	rt.Link.OnByte(b)
}

// Run executes one cooperative tick: the function engine, then the link
// handler (deferred-frame dispatch plus TX flush). DataBus instances are
// driven by the application from their own Run(), since each carries its
// own per-tick divider state (spec.md §4.7); wiring one in is a single
// extra call from the embedding application's loop.
func (rt *Runtime) Run() {
	if !rt.initDone {
		return
	}
	for _, c := range rt.Functions.Run(nil) {
		fo, ok := rt.functionOwner[c.Function]
		if !ok {
			continue
		}
		link.ReportCompletions(rt.Serial, fo, rt.Port.Tick, []function.Completion{c})
	}
	rt.Link.Run()
}

// Uninitialized reports spec.md §7's "uninitialized faraabin" condition:
// operations against Runtime before Init completes are no-ops.
func (rt *Runtime) Uninitialized() bool { return !rt.initDone }
