package dispatch

import (
	"context"
	"sync"

	"github.com/tinypirate/tinypirate/pkg/bus"
	"github.com/tinypirate/tinypirate/pkg/logger"
)

// Loop drains the command bus with a bounded worker pool. Workers run
// dispatches concurrently so one slow external handler never stalls
// unrelated traffic; per-resource exclusion is the Exclusive wrapper's
// job, not the loop's. Event order across Commands therefore follows
// dispatch-completion order, not submission order.
type Loop struct {
	dispatcher *Dispatcher
	commandBus *bus.CommandBus
	workers    int

	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewLoop creates a Loop with the given worker count.
func NewLoop(dispatcher *Dispatcher, commandBus *bus.CommandBus, workers int) *Loop {
	if workers <= 0 {
		workers = 4
	}
	return &Loop{
		dispatcher: dispatcher,
		commandBus: commandBus,
		workers:    workers,
	}
}

// Start launches the worker pool. Returns immediately.
func (l *Loop) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)

	for i := 0; i < l.workers; i++ {
		l.wg.Add(1)
		go l.worker(ctx, i)
	}

	logger.InfoCF("dispatch", "dispatch loop started", map[string]any{"workers": l.workers})
}

func (l *Loop) worker(ctx context.Context, id int) {
	defer l.wg.Done()
	for {
		cmd, ok := l.commandBus.Consume(ctx)
		if !ok {
			return
		}
		res := l.dispatcher.Dispatch(ctx, cmd)
		if res.Err != nil {
			logger.DebugCF("dispatch", "worker finished with error", map[string]any{
				"worker":  id,
				"command": cmd.ID,
				"reason":  string(res.Reason),
			})
		}
	}
}

// Stop cancels the workers and waits for in-flight dispatches to finish.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		if l.cancel != nil {
			l.cancel()
		}
		l.wg.Wait()
		logger.InfoC("dispatch", "dispatch loop stopped")
	})
}
