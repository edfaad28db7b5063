package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/tinypirate/tinypirate/pkg/bus"
	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/logger"
)

// Service runs one timer loop per schedule. Each loop arms a timer at a
// uniformly random instant between min and max after the previous fire
// (randomization avoids synchronized bursts across schedules and
// trivially predictable external-site request timing), publishes a
// synthetic Command through the shared bus, and immediately rearms —
// independent of how long the dispatch takes. A failed dispatch never
// stops a loop; only an explicit disable does, and that cancels pending
// fires only, never an in-flight dispatch.
type Service struct {
	classifier *command.Classifier
	commandBus *bus.CommandBus

	mu        sync.RWMutex
	schedules map[string]*Schedule
	wake      map[string]chan struct{}

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewService creates a scheduler over the given schedules.
func NewService(classifier *command.Classifier, commandBus *bus.CommandBus, schedules []*Schedule) *Service {
	svc := &Service{
		classifier: classifier,
		commandBus: commandBus,
		schedules:  make(map[string]*Schedule),
		wake:       make(map[string]chan struct{}),
	}
	for _, s := range schedules {
		svc.schedules[s.ID()] = s
		svc.wake[s.ID()] = make(chan struct{}, 1)
	}
	return svc
}

// Start launches all schedule loops.
func (svc *Service) Start(ctx context.Context) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.started {
		return fmt.Errorf("scheduler already started")
	}
	svc.started = true

	ctx, svc.cancel = context.WithCancel(ctx)
	for id, s := range svc.schedules {
		svc.wg.Add(1)
		go svc.run(ctx, s, svc.wake[id])
	}

	logger.InfoCF("scheduler", "scheduler started", map[string]any{"schedules": len(svc.schedules)})
	return nil
}

// Stop cancels all pending timers and waits for the loops to exit.
func (svc *Service) Stop() {
	svc.mu.Lock()
	cancel := svc.cancel
	svc.started = false
	svc.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	svc.wg.Wait()
	logger.InfoC("scheduler", "scheduler stopped")
}

// SetSchedule is the single external mutation point for schedule state:
// it toggles enablement and updates the fire window, then wakes the loop
// so the change takes effect immediately.
func (svc *Service) SetSchedule(id string, enabled bool, min, max time.Duration) error {
	svc.mu.RLock()
	s, ok := svc.schedules[id]
	wake := svc.wake[id]
	svc.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown schedule: %s", id)
	}

	if min > 0 || max > 0 {
		s.setIntervals(min, max)
	}
	s.setEnabled(enabled)

	select {
	case wake <- struct{}{}:
	default:
	}

	logger.InfoCF("scheduler", "schedule updated", map[string]any{
		"schedule": id,
		"enabled":  enabled,
		"min":      min.String(),
		"max":      max.String(),
	})
	return nil
}

// Snapshots returns the current state of every schedule.
func (svc *Service) Snapshots() []Snapshot {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	out := make([]Snapshot, 0, len(svc.schedules))
	for _, s := range svc.schedules {
		out = append(out, s.Snapshot())
	}
	return out
}

// Snapshot returns one schedule's state.
func (svc *Service) Snapshot(id string) (Snapshot, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	s, ok := svc.schedules[id]
	if !ok {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

func (svc *Service) run(ctx context.Context, s *Schedule, wake chan struct{}) {
	defer svc.wg.Done()

	for {
		if !s.Enabled() {
			s.setState(StateDisabled)
			select {
			case <-ctx.Done():
				return
			case <-wake:
				continue
			}
		}

		delay, err := svc.nextDelay(s)
		if err != nil {
			// Enabled reflects operator intent only. Park until the next
			// toggle rather than silently flipping the schedule off.
			logger.ErrorCF("scheduler", "bad schedule expression", map[string]any{
				"schedule": s.ID(),
				"error":    err.Error(),
			})
			s.setState(StateIdle)
			select {
			case <-ctx.Done():
				return
			case <-wake:
			}
			continue
		}

		s.setNextFire(time.Now().Add(delay))
		s.setState(StateIdle)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-wake:
			// Toggled: drop the pending timer and re-evaluate.
			timer.Stop()
			continue
		case <-timer.C:
		}

		if !s.Enabled() {
			continue
		}

		s.setState(StateFiring)
		svc.fire(s)
		s.markFired(time.Now())
		s.setState(StateIdle)
	}
}

// nextDelay computes the wait before the next fire: a uniform random
// point in (min, max] for interval schedules, or the cron expression's
// next due time.
func (svc *Service) nextDelay(s *Schedule) (time.Duration, error) {
	s.mu.RLock()
	cron := s.cron
	s.mu.RUnlock()

	if cron != "" {
		next, err := gronx.NextTick(cron, false)
		if err != nil {
			return 0, err
		}
		return time.Until(next), nil
	}

	min, max := s.intervals()
	if max <= min {
		return min, nil
	}
	return min + time.Duration(rand.Int63n(int64(max-min))+1), nil
}

// fire publishes the synthetic Command. Source is forced to the
// capability id so resolution routes directly to its handler; origin
// marks it autonomous. Dispatch happens on the shared worker pool, so
// the loop rearms without waiting for completion.
func (svc *Service) fire(s *Schedule) {
	s.mu.RLock()
	prompt := s.prompt
	id := s.id
	s.mu.RUnlock()

	classified, ok := svc.classifier.Classify(prompt, command.OriginAutonomous)
	if !ok {
		logger.WarnCF("scheduler", "schedule produced empty prompt", map[string]any{"schedule": id})
		return
	}

	cmd := command.New(classified.Kind, id, classified.Payload, command.OriginAutonomous)
	svc.commandBus.Publish(cmd)

	logger.DebugCF("scheduler", "schedule fired", map[string]any{
		"schedule": id,
		"command":  cmd.ID,
	})
}
