package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tinypirate/tinypirate/pkg/capability"
	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
	"github.com/tinypirate/tinypirate/pkg/logger"
)

// Outcome classifies a dispatch result.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeNotFound
	OutcomeRejected
)

// DispatchResult reports what one dispatch did: the outcome, the failure
// reason when any, and the index range its events occupy in the log.
type DispatchResult struct {
	Outcome    Outcome
	Reason     Reason
	Handler    string
	Err        error
	FirstIndex uint64
	LastIndex  uint64
}

// completedCap bounds the completed-identity set so long-running
// autonomous operation does not grow it without limit.
const completedCap = 8192

// Dispatcher routes each Command to exactly one capability, enforces the
// invocation timeout, and turns the outcome into an atomic event batch.
// A Command identity is dispatched at most once: re-dispatch while
// in-flight or after completion is rejected without touching any handler.
type Dispatcher struct {
	registry *Registry
	fallback capability.Capability
	log      *eventlog.Log
	timeout  time.Duration

	mu        sync.Mutex
	inflight  map[string]struct{}
	completed map[string]struct{}
	order     []string // eviction order for completed

	// fatal is invoked on event log storage failure, the one condition
	// dispatch cannot recover from.
	fatal func(err error)
}

// NewDispatcher creates a Dispatcher. fallback handles commands no
// registration claims; it must not be nil.
func NewDispatcher(registry *Registry, fallback capability.Capability, log *eventlog.Log, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Dispatcher{
		registry:  registry,
		fallback:  fallback,
		log:       log,
		timeout:   timeout,
		inflight:  make(map[string]struct{}),
		completed: make(map[string]struct{}),
		fatal: func(err error) {
			logger.FatalCF("dispatch", "event log storage failed", map[string]any{"error": err.Error()})
		},
	}
}

// SetFatalHook replaces the fatal-condition handler. Tests use this to
// observe archive failures without exiting.
func (d *Dispatcher) SetFatalHook(fn func(error)) {
	d.fatal = fn
}

// Dispatch runs cmd through resolution, invocation, and event append.
// Called once per Command identity; duplicates are rejected.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command) DispatchResult {
	if !d.begin(cmd.ID) {
		return d.reject(cmd)
	}
	defer d.finish(cmd.ID)

	reg, err := d.registry.Resolve(cmd)
	if err != nil {
		return d.demote(ctx, cmd)
	}

	drafts, err := d.invoke(ctx, reg.Capability, cmd)
	if err != nil {
		reason := ReasonHandlerFailure
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonHandlerTimeout
		}
		return d.fail(cmd, reg.Name, reason, err)
	}

	first, last, appendErr := d.log.Append(cmd.ID, drafts)
	if appendErr != nil {
		d.fatal(appendErr)
		return DispatchResult{Outcome: OutcomeFailure, Handler: reg.Name, Err: appendErr}
	}

	logger.DebugCF("dispatch", "command handled", map[string]any{
		"command": cmd.ID,
		"handler": reg.Name,
		"events":  len(drafts),
	})

	return DispatchResult{
		Outcome:    OutcomeSuccess,
		Handler:    reg.Name,
		FirstIndex: first,
		LastIndex:  last,
	}
}

// invoke runs the capability under the dispatch timeout. The handler runs
// in its own goroutine so a handler that ignores its context still gets
// force-failed on time; its external side effect is NOT rolled back
// (external systems may already have acted).
func (d *Dispatcher) invoke(ctx context.Context, c capability.Capability, cmd command.Command) ([]eventlog.Draft, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type invokeResult struct {
		drafts []eventlog.Draft
		err    error
	}
	done := make(chan invokeResult, 1)

	go func() {
		drafts, err := c.Invoke(ctx, cmd)
		done <- invokeResult{drafts, err}
	}()

	select {
	case res := <-done:
		return res.drafts, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// demote answers an unroutable command through the fallback chat path,
// after surfacing the miss as an error event.
func (d *Dispatcher) demote(ctx context.Context, cmd command.Command) DispatchResult {
	drafts := []eventlog.Draft{
		eventlog.Error(string(ReasonNoHandler), fmt.Sprintf("%s (kind=%s source=%s)", ReasonNoHandler.Presentable(), cmd.Kind, cmd.Source)),
	}

	fallbackDrafts, err := d.invoke(ctx, d.fallback, cmd)
	if err != nil {
		drafts = append(drafts, eventlog.Error(string(ReasonHandlerFailure), fmt.Sprintf("%s %v", ReasonHandlerFailure.Presentable(), err)))
	} else {
		drafts = append(drafts, fallbackDrafts...)
	}

	first, last, appendErr := d.log.Append(cmd.ID, drafts)
	if appendErr != nil {
		d.fatal(appendErr)
		return DispatchResult{Outcome: OutcomeFailure, Err: appendErr}
	}

	return DispatchResult{
		Outcome:    OutcomeNotFound,
		Reason:     ReasonNoHandler,
		Handler:    d.fallback.Name(),
		FirstIndex: first,
		LastIndex:  last,
	}
}

// fail appends exactly one error event for a failed or timed-out
// invocation.
func (d *Dispatcher) fail(cmd command.Command, handler string, reason Reason, cause error) DispatchResult {
	logger.WarnCF("dispatch", "command failed", map[string]any{
		"command": cmd.ID,
		"handler": handler,
		"reason":  string(reason),
		"error":   cause.Error(),
	})

	draft := eventlog.Error(string(reason), fmt.Sprintf("%s %v", reason.Presentable(), cause))
	first, last, appendErr := d.log.Append(cmd.ID, []eventlog.Draft{draft})
	if appendErr != nil {
		d.fatal(appendErr)
		return DispatchResult{Outcome: OutcomeFailure, Handler: handler, Err: appendErr}
	}

	return DispatchResult{
		Outcome:    OutcomeFailure,
		Reason:     reason,
		Handler:    handler,
		Err:        cause,
		FirstIndex: first,
		LastIndex:  last,
	}
}

// reject records a duplicate-dispatch attempt. The capability is not
// invoked; this surfaces a caller bug, not a handler problem.
func (d *Dispatcher) reject(cmd command.Command) DispatchResult {
	logger.WarnCF("dispatch", "duplicate dispatch rejected", map[string]any{"command": cmd.ID})

	draft := eventlog.Error(string(ReasonDuplicateDispatch), ReasonDuplicateDispatch.Presentable())
	first, last, appendErr := d.log.Append(cmd.ID, []eventlog.Draft{draft})
	if appendErr != nil {
		d.fatal(appendErr)
		return DispatchResult{Outcome: OutcomeRejected, Err: appendErr}
	}

	return DispatchResult{
		Outcome:    OutcomeRejected,
		Reason:     ReasonDuplicateDispatch,
		Err:        ErrDuplicateDispatch,
		FirstIndex: first,
		LastIndex:  last,
	}
}

// begin marks cmd in-flight. Returns false when the identity is already
// in-flight or completed.
func (d *Dispatcher) begin(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.inflight[id]; ok {
		return false
	}
	if _, ok := d.completed[id]; ok {
		return false
	}
	d.inflight[id] = struct{}{}
	return true
}

// finish moves cmd from in-flight to completed, evicting the oldest
// completed identity past the cap.
func (d *Dispatcher) finish(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, id)
	d.completed[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > completedCap {
		delete(d.completed, d.order[0])
		d.order = d.order[1:]
	}
}
