package dispatch

import (
	"github.com/tinypirate/tinypirate/pkg/capability"
	"github.com/tinypirate/tinypirate/pkg/command"
)

// Registration binds a match predicate over (kind, source) to a
// capability. Registrations are fixed at startup and read-only after.
type Registration struct {
	Name       string
	Match      func(kind command.Kind, source string) bool
	Priority   int
	Capability capability.Capability
}

// Registry resolves a Command to at most one capability: among matching
// registrations the highest priority wins, ties broken by registration
// order. Source-keyed registrations carry high priority so a command
// naming a specific external capability never falls through a generic
// handler and double-fires its side effect.
type Registry struct {
	regs []Registration
}

// NewRegistry creates a Registry from the startup registration list.
func NewRegistry(regs []Registration) *Registry {
	return &Registry{regs: regs}
}

// MatchSource builds a predicate matching one source tag exactly.
func MatchSource(source string) func(command.Kind, string) bool {
	return func(_ command.Kind, s string) bool { return s == source }
}

// MatchKind builds a predicate matching one command kind.
func MatchKind(kind command.Kind) func(command.Kind, string) bool {
	return func(k command.Kind, _ string) bool { return k == kind }
}

// Resolve picks the registration for cmd, or ErrNoHandler.
func (r *Registry) Resolve(cmd command.Command) (Registration, error) {
	best := -1
	for i, reg := range r.regs {
		if reg.Match == nil || !reg.Match(cmd.Kind, cmd.Source) {
			continue
		}
		// Strict > keeps the earliest registration on priority ties.
		if best == -1 || reg.Priority > r.regs[best].Priority {
			best = i
		}
	}
	if best == -1 {
		return Registration{}, ErrNoHandler
	}
	return r.regs[best], nil
}
