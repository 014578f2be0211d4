// Package function implements the Function Engine described in spec.md
// §4.8: a bounded pool of run-to-completion/looping host-invoked command
// slots. Argument text arrives as a single string and is tokenized with
// shlex the same way the teacher's command-line tooling parses argv.
package function

import (
	"github.com/google/shlex"

	"faraabin/errcode"
	"faraabin/fobject"
)

// Result is the return code a handler yields from one invocation
// (spec.md §4.8 Run()).
type Result uint8

const (
	Continue      Result = 255 // looping function; leave slot running
	TerminateOK   Result = 200
	ErrorParamQty Result = 201
)

// Handler is a registered function body (spec.md §3 Function).
type Handler func(object fobject.Handle, args []string, isFirstRun bool, chronoStartUs uint32, nowUs uint32) Result

// Function is a registered command (spec.md §3).
type Function struct {
	Fobject     fobject.Fobject
	GroupHandle fobject.Handle
	Help        string
	Handle      Handler
}

// Slot is one FunctionEngineItem (spec.md §3).
type Slot struct {
	Function      *Function
	Object        fobject.Handle
	Args          []string
	IsFirstRun    bool
	ChronoStartUs uint32
	Busy          bool
	Running       bool
}

// StartStatus is the result of Engine.Start (spec.md §4.8).
type StartStatus uint8

const (
	Started StartStatus = iota
	AlreadyRunning
	MaxReached
)

// Engine holds MAX_CONCURRENT_FUNCTION slots (spec.md §4.8).
type Engine struct {
	Slots []Slot
	now   func() uint32
}

// New constructs an Engine with the given slot capacity (MAX_CONCURRENT_FUNCTION).
func New(capacity int, now func() uint32) *Engine {
	return &Engine{Slots: make([]Slot, capacity), now: now}
}

// findRunning returns the index of a running slot bound to (fn, obj), or -1.
func (e *Engine) findRunning(fn *Function, obj fobject.Handle) int {
	for i := range e.Slots {
		s := &e.Slots[i]
		if s.Running && s.Function == fn && s.Object == obj {
			return i
		}
	}
	return -1
}

func (e *Engine) findFree() int {
	for i := range e.Slots {
		if !e.Slots[i].Busy {
			return i
		}
	}
	return -1
}

// findAny returns the index of any (running or paused) slot bound to (fn, obj).
func (e *Engine) findAny(fn *Function, obj fobject.Handle) int {
	for i := range e.Slots {
		s := &e.Slots[i]
		if s.Busy && s.Function == fn && s.Object == obj {
			return i
		}
	}
	return -1
}

// Start implements start(function, object, arg_bytes) (spec.md §4.8,
// invariant #6). argText is tokenized POSIX-shell-style via shlex, the
// same parser the teacher's CLI tooling uses for argv.
func (e *Engine) Start(fn *Function, obj fobject.Handle, argText string) (StartStatus, error) {
	if e.findRunning(fn, obj) >= 0 {
		return AlreadyRunning, errcode.AlreadyRunning
	}
	idx := e.findFree()
	if idx < 0 {
		return MaxReached, errcode.MaxConcurrentReached
	}
	args, err := shlex.Split(argText)
	if err != nil {
		args = nil
	}
	e.Slots[idx] = Slot{
		Function: fn, Object: obj, Args: args,
		IsFirstRun: true, Busy: true, Running: true,
	}
	return Started, nil
}

// Stop implements stop(function, object) (spec.md §4.8): slot state
// transitions running,busy → false immediately (spec.md §5 cancellation).
func (e *Engine) Stop(fn *Function, obj fobject.Handle) error {
	idx := e.findAny(fn, obj)
	if idx < 0 {
		return errcode.NotFound
	}
	e.Slots[idx] = Slot{}
	return nil
}

// Pause sets running=false while preserving busy (spec.md §4.8).
func (e *Engine) Pause(fn *Function, obj fobject.Handle) error {
	idx := e.findAny(fn, obj)
	if idx < 0 {
		return errcode.NotFound
	}
	e.Slots[idx].Running = false
	return nil
}

// Resume sets running=true (spec.md §4.8).
func (e *Engine) Resume(fn *Function, obj fobject.Handle) error {
	idx := e.findAny(fn, obj)
	if idx < 0 {
		return errcode.NotFound
	}
	e.Slots[idx].Running = true
	return nil
}

// Completion reports a finished invocation for the caller (link handler)
// to translate into an extended system event (spec.md §4.8).
type Completion struct {
	Function  *Function
	Object    fobject.Handle
	Result    Result
	ElapsedUs uint32
}

// Run iterates slots, invoking the handler of every running one
// (spec.md §4.8). Completions are appended to out for the caller to
// report; Run does not itself touch the event serializer.
func (e *Engine) Run(out []Completion) []Completion {
	now := e.now()
	for i := range e.Slots {
		s := &e.Slots[i]
		if !s.Running || s.Function == nil {
			continue
		}
		if s.IsFirstRun {
			s.ChronoStartUs = now
		}
		res := s.Function.Handle(s.Object, s.Args, s.IsFirstRun, s.ChronoStartUs, now)
		s.IsFirstRun = false
		if res == Continue {
			continue
		}
		out = append(out, Completion{
			Function: s.Function, Object: s.Object, Result: res,
			ElapsedUs: now - s.ChronoStartUs,
		})
		*s = Slot{}
	}
	return out
}
