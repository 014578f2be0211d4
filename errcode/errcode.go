// Package errcode defines the stable, wire-facing error taxonomy shared by
// every Faraabin component. Codes are comparable, allocation-free, and
// implement error so they can be returned directly from hot paths.
package errcode

// Code is a stable identifier for a failure, suitable for a system-exception
// event payload or a public API return value.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "" // zero value; success

	// Decode / framing (spec §4.1, §7)
	EscapeError Code = "escape_error"
	ChecksumErr Code = "checksum_error"
	MinimumSize Code = "minimum_size"
	OverrunEOF  Code = "overrun_before_eof"
	OversizeRX  Code = "oversize_rx"
	MemoryError Code = "memory_error"

	// Registry (spec §4.3, §7)
	Duplicate      Code = "duplicate"
	NullDict       Code = "null_dict"
	Overflow       Code = "overflow"
	UnexpectedDict Code = "unexpected_dict"

	// DataBus (spec §4.7, §7)
	ChannelOutOfRange        Code = "channel_out_of_range"
	ActionWithNullReference  Code = "action_with_null_reference"
	CodeBlockAlreadyAttached Code = "codeblock_already_attached"
	CaptureQueueEmpty        Code = "capture_queue_empty"
	NoFindFobject            Code = "no_find_fobject"
	Param                    Code = "param"
	Detach                   Code = "detach"
	Attach                   Code = "attach"
	NotInit                  Code = "not_init"

	// Function engine (spec §4.8, §7)
	AlreadyRunning       Code = "already_running"
	MaxConcurrentReached Code = "max_concurrent_reached"
	NotFound             Code = "not_found"
	ParamQty             Code = "param_qty"

	// TX (spec §4.9, §7)
	SendTimeout Code = "send_timeout"
	SendFail    Code = "send_fail"

	// Resource (spec §4.5, §7)
	MaxPrintfReentrant Code = "max_printf_reentrant"

	// Link dispatch (spec §4.9, §7)
	UnsupportedFobjectProperty Code = "unsupported_fobject_property"
	UninitializedFaraabin      Code = "uninitialized_faraabin"
	PasswordError              Code = "password_error"

	Error Code = "error" // generic fallback
)

// E wraps a Code with contextual information while keeping Code as the
// comparable identity host tooling switches on.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
