package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/tinypirate/tinypirate/pkg/bus"
	"github.com/tinypirate/tinypirate/pkg/capability"
	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
)

func TestLoopDrainsBus(t *testing.T) {
	echo := capability.Func{
		CapName: "echo",
		Fn: func(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error) {
			return []eventlog.Draft{eventlog.Text(cmd.Payload)}, nil
		},
	}
	d, log := newTestDispatcher([]Registration{
		{Name: "echo", Match: MatchKind(command.KindChat), Priority: 10, Capability: echo},
	}, time.Second)

	commandBus := bus.NewCommandBus(10)
	loop := NewLoop(d, commandBus, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop.Start(ctx)

	for i := 0; i < 5; i++ {
		commandBus.Publish(command.New(command.KindChat, "user", "hello", command.OriginUser))
	}

	deadline := time.After(2 * time.Second)
	for log.Watermark() < 5 {
		select {
		case <-deadline:
			t.Fatalf("only %d events after deadline, want 5", log.Watermark())
		case <-time.After(5 * time.Millisecond):
		}
	}

	loop.Stop()
	loop.Stop() // idempotent
}

func TestLoopStopForceFailsInflight(t *testing.T) {
	started := make(chan struct{})
	slow := capability.Func{
		CapName: "slow",
		Fn: func(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	d, log := newTestDispatcher([]Registration{
		{Name: "slow", Match: MatchKind(command.KindChat), Priority: 10, Capability: slow},
	}, time.Minute)

	commandBus := bus.NewCommandBus(10)
	loop := NewLoop(d, commandBus, 1)
	loop.Start(context.Background())

	commandBus.Publish(command.New(command.KindChat, "user", "x", command.OriginUser))
	<-started
	loop.Stop()

	// Shutdown cancellation is a handler failure, not a timeout: the
	// dispatch is recorded before the worker exits.
	events := log.FetchSince(0).Events
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Reason != string(ReasonHandlerFailure) {
		t.Errorf("reason = %q, want %q", events[0].Reason, ReasonHandlerFailure)
	}
}
