package dispatch

import "errors"

// Reason is the stable machine-readable code carried on error events.
// None of these crash the process; the only fatal condition is an event
// archive write failure, which is not part of this taxonomy.
type Reason string

const (
	ReasonNoHandler         Reason = "no-handler-found"
	ReasonHandlerTimeout    Reason = "handler-timeout"
	ReasonHandlerFailure    Reason = "handler-failure"
	ReasonDuplicateDispatch Reason = "duplicate-dispatch-rejected"
)

// Presentable returns the user-facing explanation prefix for a reason.
func (r Reason) Presentable() string {
	switch r {
	case ReasonNoHandler:
		return "No handler claimed this command; answered as chat."
	case ReasonHandlerTimeout:
		return "The handler did not finish in time. Its external effect may still have happened."
	case ReasonHandlerFailure:
		return "The handler reported a failure."
	case ReasonDuplicateDispatch:
		return "This command was already dispatched."
	default:
		return "Dispatch failed."
	}
}

// ErrDuplicateDispatch reports a second dispatch of an in-flight or
// completed Command identity. It indicates a caller bug, not a handler
// problem: the handler is never invoked a second time.
var ErrDuplicateDispatch = errors.New("duplicate dispatch rejected")

// ErrNoHandler reports that no registration matched a Command.
var ErrNoHandler = errors.New("no handler found")
