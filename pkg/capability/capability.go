// Package capability defines the handler boundary consumed by dispatch.
// A Capability executes one Command's side effect and emits event drafts;
// the dispatch core treats it as opaque, possibly slow, possibly failing.
package capability

import (
	"context"

	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
)

// Capability is the invocable unit a Command routes to.
type Capability interface {
	Name() string
	Invoke(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error)
}

// Func adapts a plain function into a Capability.
type Func struct {
	CapName string
	Fn      func(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error)
}

func (f Func) Name() string { return f.CapName }

func (f Func) Invoke(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error) {
	return f.Fn(ctx, cmd)
}
