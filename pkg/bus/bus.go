// Package bus decouples submission and timer threads from dispatch
// execution. User ingress and autonomous schedules publish classified
// Commands into one queue; dispatch workers consume it, so a slow handler
// never blocks acceptance of new traffic.
package bus

import (
	"context"
	"sync"

	"github.com/tinypirate/tinypirate/pkg/command"
)

// CommandBus is the single funnel between producers and the dispatch
// core. Publishing after Close is a no-op.
type CommandBus struct {
	queue  chan command.Command
	closed bool
	mu     sync.RWMutex
}

// NewCommandBus creates a bus with the given queue depth.
func NewCommandBus(depth int) *CommandBus {
	if depth <= 0 {
		depth = 100
	}
	return &CommandBus{
		queue: make(chan command.Command, depth),
	}
}

// Publish enqueues a Command for dispatch. Blocks when the queue is full.
func (cb *CommandBus) Publish(cmd command.Command) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	if cb.closed {
		return
	}
	cb.queue <- cmd
}

// Consume returns the next queued Command and whether the read succeeded.
// The bool is false when the context is cancelled or the bus is closed.
func (cb *CommandBus) Consume(ctx context.Context) (command.Command, bool) {
	select {
	case cmd, ok := <-cb.queue:
		return cmd, ok
	case <-ctx.Done():
		return command.Command{}, false
	}
}

// Pending returns the current queue depth.
func (cb *CommandBus) Pending() int {
	return len(cb.queue)
}

// Close shuts the queue. Consumers drain remaining Commands, then read
// false.
func (cb *CommandBus) Close() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.closed {
		return
	}
	cb.closed = true
	close(cb.queue)
}
