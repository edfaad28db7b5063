// Package scheduler runs timer-driven autonomous command generation, one
// independent schedule per capability, feeding the same dispatch path as
// user traffic.
package scheduler

import (
	"sync"
	"time"
)

// State is the schedule lifecycle: disabled -> idle -> firing -> idle.
type State string

const (
	StateDisabled State = "disabled"
	StateIdle     State = "idle"
	StateFiring   State = "firing"
)

// Schedule owns the timer configuration for one autonomous capability.
// It is mutated only by explicit enable/disable toggles and by the
// scheduler advancing nextFire after each fire; handler code never
// touches it.
type Schedule struct {
	mu          sync.RWMutex
	id          string
	enabled     bool
	minInterval time.Duration
	maxInterval time.Duration
	cron        string // optional cron expression; empty = interval kind
	prompt      string
	state       State
	nextFire    time.Time
	lastFire    time.Time
}

// Snapshot is the externally visible schedule state.
type Snapshot struct {
	ID          string        `json:"id"`
	Enabled     bool          `json:"enabled"`
	MinInterval time.Duration `json:"min_interval"`
	MaxInterval time.Duration `json:"max_interval"`
	Cron        string        `json:"cron,omitempty"`
	State       State         `json:"state"`
	NextFire    time.Time     `json:"next_fire,omitzero"`
	LastFire    time.Time     `json:"last_fire,omitzero"`
}

// NewSchedule creates a schedule in the disabled state.
func NewSchedule(id string, min, max time.Duration, cron, prompt string) *Schedule {
	if max < min {
		max = min
	}
	return &Schedule{
		id:          id,
		minInterval: min,
		maxInterval: max,
		cron:        cron,
		prompt:      prompt,
		state:       StateDisabled,
	}
}

// ID returns the capability id this schedule drives.
func (s *Schedule) ID() string { return s.id }

// Enabled reports whether the schedule is active.
func (s *Schedule) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Snapshot returns a copy of the current state.
func (s *Schedule) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ID:          s.id,
		Enabled:     s.enabled,
		MinInterval: s.minInterval,
		MaxInterval: s.maxInterval,
		Cron:        s.cron,
		State:       s.state,
		NextFire:    s.nextFire,
		LastFire:    s.lastFire,
	}
}

func (s *Schedule) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *Schedule) setEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	if !enabled {
		s.state = StateDisabled
		s.nextFire = time.Time{}
	}
}

func (s *Schedule) setIntervals(min, max time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max < min {
		max = min
	}
	s.minInterval = min
	s.maxInterval = max
}

func (s *Schedule) intervals() (time.Duration, time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minInterval, s.maxInterval
}

func (s *Schedule) markFired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFire = now
}

func (s *Schedule) setNextFire(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFire = t
}
